package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

func testTranche(id string, seq uint64) *domain.Tranche {
	return &domain.Tranche{
		TrancheID:    id,
		Name:         "Harbor District Rooftop",
		Symbol:       "HDR",
		Description:  "solar rooftop, phase one",
		FundingGoal:  10_000_000,
		UnitPrice:    1_000,
		PaymentAsset: "USDC",
		Treasury:     domain.Address("11111111111111111111111111111111"),
		Operator:     domain.Address("11111111111111111111111111111112"),
		CreatedAt:    1700000000000,
		CreatedSeq:   seq,
		IsActive:     true,
	}
}

func TestTrancheStore(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTrancheStore(pool)

	t.Run("insert and get by id", func(t *testing.T) {
		tr := testTranche("tr-1", 1)
		require.NoError(t, store.Insert(ctx, tr))

		got, err := store.GetByID(ctx, "tr-1")
		require.NoError(t, err)
		assert.Equal(t, tr.Name, got.Name)
		assert.Equal(t, tr.FundingGoal, got.FundingGoal)
		assert.Equal(t, tr.Operator, got.Operator)
		assert.True(t, got.IsActive)
	})

	t.Run("insert duplicate returns ErrDuplicateKey", func(t *testing.T) {
		err := store.Insert(ctx, testTranche("tr-1", 1))
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("get missing returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetByID(ctx, "tr-missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("fresh tranche starts with open funding", func(t *testing.T) {
		st, err := store.GetFunding(ctx, "tr-1")
		require.NoError(t, err)
		assert.True(t, st.FundingActive)
		assert.False(t, st.FundingComplete)
		assert.Zero(t, st.TotalRaised)
		assert.Zero(t, st.TotalSupply)
		assert.Equal(t, domain.StatusActive, st.Status)
	})

	t.Run("update funding round-trips", func(t *testing.T) {
		st := domain.FundingState{
			TrancheID:       "tr-1",
			FundingActive:   false,
			FundingComplete: true,
			TotalRaised:     10_000_000,
			TotalSupply:     10_000 * domain.UnitScale,
			Status:          domain.StatusActive,
			UpdatedSeq:      7,
		}
		require.NoError(t, store.UpdateFunding(ctx, st))

		got, err := store.GetFunding(ctx, "tr-1")
		require.NoError(t, err)
		assert.Equal(t, st, *got)
	})

	t.Run("update funding for missing tranche returns ErrNotFound", func(t *testing.T) {
		err := store.UpdateFunding(ctx, domain.FundingState{
			TrancheID: "tr-missing",
			Status:    domain.StatusActive,
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("set operator", func(t *testing.T) {
		next := domain.Address("11111111111111111111111111111113")
		require.NoError(t, store.SetOperator(ctx, "tr-1", next, 8))

		got, err := store.GetByID(ctx, "tr-1")
		require.NoError(t, err)
		assert.Equal(t, next, got.Operator)
	})

	t.Run("set active filters listings", func(t *testing.T) {
		tr2 := testTranche("tr-2", 2)
		tr2.Symbol = "HDR2"
		require.NoError(t, store.Insert(ctx, tr2))
		require.NoError(t, store.SetActive(ctx, "tr-1", false, 9))

		all, err := store.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "tr-1", all[0].TrancheID)

		active, err := store.GetActive(ctx)
		require.NoError(t, err)
		require.Len(t, active, 1)
		assert.Equal(t, "tr-2", active[0].TrancheID)
	})

	t.Run("set active on missing tranche returns ErrNotFound", func(t *testing.T) {
		err := store.SetActive(ctx, "tr-missing", true, 10)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
