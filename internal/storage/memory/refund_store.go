package memory

import (
	"context"
	"sync"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

// RefundStore is an in-memory implementation of storage.RefundStore.
type RefundStore struct {
	mu   sync.RWMutex
	data map[string]domain.RefundState // keyed by tranche_id
}

// NewRefundStore creates a new in-memory refund store.
func NewRefundStore() *RefundStore {
	return &RefundStore{data: make(map[string]domain.RefundState)}
}

// Compile-time interface check.
var _ storage.RefundStore = (*RefundStore)(nil)

// Upsert writes the refund state of a tranche.
func (s *RefundStore) Upsert(_ context.Context, st domain.RefundState) error {
	if st.TrancheID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[st.TrancheID] = st
	return nil
}

// GetByTranche retrieves a tranche's refund state.
func (s *RefundStore) GetByTranche(_ context.Context, trancheID string) (*domain.RefundState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, exists := s.data[trancheID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return &st, nil
}
