package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revora-ledger/internal/domain"
)

func archiveEvent(seq uint64, op domain.Op, trancheID string, amount uint64) *domain.Event {
	return &domain.Event{
		Seq:         seq,
		Timestamp:   1700000000000 + int64(seq),
		Op:          op,
		TrancheID:   trancheID,
		Actor:       domain.Address("11111111111111111111111111111111"),
		Amount:      amount,
		ResultState: string(domain.StatusActive),
	}
}

func TestEventArchiveStore(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewEventArchiveStore(conn)

	t.Run("empty archive has zero latest seq", func(t *testing.T) {
		seq, err := store.LatestSeq(ctx)
		require.NoError(t, err)
		assert.Zero(t, seq)
	})

	t.Run("archive and read back in seq order", func(t *testing.T) {
		events := []*domain.Event{
			archiveEvent(1, domain.OpCreateTranche, "tr-a", 0),
			archiveEvent(2, domain.OpInvest, "tr-a", 5000),
			archiveEvent(3, domain.OpInvest, "tr-a", 3000),
			archiveEvent(4, domain.OpCreateTranche, "tr-b", 0),
		}
		require.NoError(t, store.ArchiveBulk(ctx, events))

		got, err := store.GetByTranche(ctx, "tr-a", 0)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, uint64(1), got[0].Seq)
		assert.Equal(t, domain.OpInvest, got[1].Op)
		assert.Equal(t, uint64(5000), got[1].Amount)
		assert.Equal(t, uint64(3), got[2].Seq)

		seq, err := store.LatestSeq(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(4), seq)
	})

	t.Run("limit caps the result", func(t *testing.T) {
		got, err := store.GetByTranche(ctx, "tr-a", 2)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("replayed batch does not duplicate", func(t *testing.T) {
		// An archiver that crashed mid-batch re-sends from its last
		// checkpoint; FINAL reads must still see one row per seq.
		require.NoError(t, store.ArchiveBulk(ctx, []*domain.Event{
			archiveEvent(2, domain.OpInvest, "tr-a", 5000),
			archiveEvent(3, domain.OpInvest, "tr-a", 3000),
		}))

		got, err := store.GetByTranche(ctx, "tr-a", 0)
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("count by op", func(t *testing.T) {
		counts, err := store.CountByOp(ctx, "tr-a")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), counts[domain.OpCreateTranche])
		assert.Equal(t, uint64(2), counts[domain.OpInvest])
	})

	t.Run("unknown tranche is empty", func(t *testing.T) {
		got, err := store.GetByTranche(ctx, "tr-missing", 0)
		require.NoError(t, err)
		assert.Empty(t, got)

		counts, err := store.CountByOp(ctx, "tr-missing")
		require.NoError(t, err)
		assert.Empty(t, counts)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, store.ArchiveBulk(ctx, nil))
	})
}
