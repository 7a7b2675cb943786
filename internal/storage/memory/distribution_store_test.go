package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

func testDistribution(id string, seq uint64) *domain.Distribution {
	return &domain.Distribution{
		DistributionID:          id,
		TrancheID:               "t1",
		PaymentAsset:            "USDC",
		TotalAmount:             10_000,
		TrancheAmount:           9_000,
		SecondaryAmount:         1_000,
		EffectiveBps:            1000,
		SnapshotSeq:             seq - 1,
		TrancheSupplyAtSnapshot: 100_000 * domain.UnitScale,
		ClaimDeadline:           1_700_000_000_000,
		CreatedAt:               1_699_000_000_000,
		CreatedSeq:              seq,
	}
}

func TestDistributionStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewDistributionStore()

	require.NoError(t, s.Insert(ctx, testDistribution("d1", 10)))
	assert.ErrorIs(t, s.Insert(ctx, testDistribution("d1", 10)), storage.ErrDuplicateKey)

	got, err := s.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, uint64(9_000), got.TrancheAmount)

	_, err = s.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDistributionStore_GetByTranche_Ordered(t *testing.T) {
	ctx := context.Background()
	s := NewDistributionStore()
	require.NoError(t, s.Insert(ctx, testDistribution("d2", 20)))
	require.NoError(t, s.Insert(ctx, testDistribution("d1", 10)))

	dists, err := s.GetByTranche(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, dists, 2)
	assert.Equal(t, "d1", dists[0].DistributionID)
	assert.Equal(t, "d2", dists[1].DistributionID)

	none, err := s.GetByTranche(ctx, "t2")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDistributionStore_Claims(t *testing.T) {
	ctx := context.Background()
	s := NewDistributionStore()
	require.NoError(t, s.Insert(ctx, testDistribution("d1", 10)))

	claim := &domain.Claim{
		DistributionID: "d1",
		Holder:         "alice",
		Amount:         5_400,
		ClaimedAt:      1_699_500_000_000,
		ClaimedSeq:     11,
	}
	require.NoError(t, s.InsertClaim(ctx, claim))
	assert.ErrorIs(t, s.InsertClaim(ctx, claim), storage.ErrDuplicateKey)
	assert.ErrorIs(t, s.InsertClaim(ctx, &domain.Claim{DistributionID: "missing", Holder: "x"}), storage.ErrNotFound)

	require.NoError(t, s.UpdateTotalClaimed(ctx, "d1", 5_400))
	got, err := s.GetByID(ctx, "d1")
	require.NoError(t, err)
	assert.Equal(t, uint64(5_400), got.TotalClaimed)

	claims, err := s.GetClaims(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, claims, 1)
	assert.Equal(t, domain.Address("alice"), claims[0].Holder)
}
