package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

func TestEventStore_AppendAndRead(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()

	for seq := uint64(1); seq <= 5; seq++ {
		trancheID := "t1"
		if seq%2 == 0 {
			trancheID = "t2"
		}
		require.NoError(t, s.Append(ctx, &domain.Event{
			Seq:       seq,
			Op:        domain.OpInvest,
			TrancheID: trancheID,
			Actor:     "alice",
			Amount:    100 * seq,
		}))
	}

	assert.ErrorIs(t, s.Append(ctx, &domain.Event{Seq: 3}), storage.ErrDuplicateKey)
	assert.ErrorIs(t, s.Append(ctx, &domain.Event{}), storage.ErrInvalidInput)

	t1Events, err := s.GetByTranche(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, t1Events, 3)
	assert.Equal(t, uint64(1), t1Events[0].Seq)
	assert.Equal(t, uint64(5), t1Events[2].Seq)

	limited, err := s.GetByTranche(ctx, "t1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestEventStore_GetSince(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()
	for seq := uint64(1); seq <= 4; seq++ {
		require.NoError(t, s.Append(ctx, &domain.Event{Seq: seq, Op: domain.OpClaim, TrancheID: "t1"}))
	}

	since, err := s.GetSince(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, since, 2)
	assert.Equal(t, uint64(3), since[0].Seq)

	latest, err := s.LatestSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), latest)
}

func TestEventStore_Empty(t *testing.T) {
	ctx := context.Background()
	s := NewEventStore()

	latest, err := s.LatestSeq(ctx)
	require.NoError(t, err)
	assert.Zero(t, latest)

	events, err := s.GetSince(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestRefundStore(t *testing.T) {
	ctx := context.Background()
	s := NewRefundStore()

	_, err := s.GetByTranche(ctx, "t1")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	st := domain.RefundState{TrancheID: "t1", RefundPool: 50_000, SnapshotSupply: 50_000 * domain.UnitScale}
	require.NoError(t, s.Upsert(ctx, st))

	st.TotalRefundsClaimed = 50_000
	require.NoError(t, s.Upsert(ctx, st))

	got, err := s.GetByTranche(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, uint64(50_000), got.TotalRefundsClaimed)

	assert.ErrorIs(t, s.Upsert(ctx, domain.RefundState{}), storage.ErrInvalidInput)
}
