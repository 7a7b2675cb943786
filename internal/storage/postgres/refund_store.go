package postgres

import (
	"context"
	"fmt"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

// RefundStore implements storage.RefundStore using PostgreSQL.
type RefundStore struct {
	pool *Pool
}

// NewRefundStore creates a new RefundStore.
func NewRefundStore(pool *Pool) *RefundStore {
	return &RefundStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RefundStore = (*RefundStore)(nil)

// Upsert writes the refund state of a tranche.
func (s *RefundStore) Upsert(ctx context.Context, st domain.RefundState) error {
	if st.TrancheID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO refund_states (tranche_id, refund_pool, snapshot_supply, total_refunds_claimed)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tranche_id) DO UPDATE
		SET refund_pool = EXCLUDED.refund_pool,
		    total_refunds_claimed = EXCLUDED.total_refunds_claimed
	`

	_, err := s.pool.Exec(ctx, query,
		st.TrancheID,
		int64(st.RefundPool),
		int64(st.SnapshotSupply),
		int64(st.TotalRefundsClaimed),
	)
	if err != nil {
		return fmt.Errorf("upsert refund state: %w", err)
	}
	return nil
}

// GetByTranche retrieves a tranche's refund state.
func (s *RefundStore) GetByTranche(ctx context.Context, trancheID string) (*domain.RefundState, error) {
	query := `
		SELECT tranche_id, refund_pool, snapshot_supply, total_refunds_claimed
		FROM refund_states
		WHERE tranche_id = $1
	`

	var (
		st             domain.RefundState
		pool           int64
		snapshotSupply int64
		totalClaimed   int64
	)
	err := s.pool.QueryRow(ctx, query, trancheID).Scan(&st.TrancheID, &pool, &snapshotSupply, &totalClaimed)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get refund state: %w", err)
	}
	st.RefundPool = uint64(pool)
	st.SnapshotSupply = uint64(snapshotSupply)
	st.TotalRefundsClaimed = uint64(totalClaimed)
	return &st, nil
}
