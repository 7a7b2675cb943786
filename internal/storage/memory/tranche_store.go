package memory

import (
	"context"
	"sync"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

// trancheRow pairs the immutable record with its mutable state.
type trancheRow struct {
	tranche domain.Tranche
	funding domain.FundingState
}

// TrancheStore is an in-memory implementation of storage.TrancheStore.
type TrancheStore struct {
	mu    sync.RWMutex
	data  map[string]*trancheRow // keyed by tranche_id
	order []string
}

// NewTrancheStore creates a new in-memory tranche store.
func NewTrancheStore() *TrancheStore {
	return &TrancheStore{data: make(map[string]*trancheRow)}
}

// Compile-time interface check.
var _ storage.TrancheStore = (*TrancheStore)(nil)

// Insert adds a new tranche. Returns ErrDuplicateKey if tranche_id exists.
func (s *TrancheStore) Insert(_ context.Context, t *domain.Tranche) error {
	if t == nil || t.TrancheID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TrancheID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[t.TrancheID] = &trancheRow{
		tranche: *t,
		funding: domain.FundingState{
			TrancheID:     t.TrancheID,
			FundingActive: true,
			Status:        domain.StatusActive,
			UpdatedSeq:    t.CreatedSeq,
		},
	}
	s.order = append(s.order, t.TrancheID)
	return nil
}

// UpdateFunding overwrites the mutable funding fields of a tranche.
func (s *TrancheStore) UpdateFunding(_ context.Context, st domain.FundingState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.data[st.TrancheID]
	if !exists {
		return storage.ErrNotFound
	}
	row.funding = st
	return nil
}

// SetActive toggles the registry activity flag.
func (s *TrancheStore) SetActive(_ context.Context, trancheID string, active bool, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.data[trancheID]
	if !exists {
		return storage.ErrNotFound
	}
	row.tranche.IsActive = active
	row.funding.UpdatedSeq = seq
	return nil
}

// SetOperator records an ownership transfer.
func (s *TrancheStore) SetOperator(_ context.Context, trancheID string, operator domain.Address, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, exists := s.data[trancheID]
	if !exists {
		return storage.ErrNotFound
	}
	row.tranche.Operator = operator
	row.funding.UpdatedSeq = seq
	return nil
}

// GetByID retrieves a tranche by its id. Returns ErrNotFound if not exists.
func (s *TrancheStore) GetByID(_ context.Context, trancheID string) (*domain.Tranche, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, exists := s.data[trancheID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	t := row.tranche
	return &t, nil
}

// GetFunding retrieves the funding state of a tranche.
func (s *TrancheStore) GetFunding(_ context.Context, trancheID string) (*domain.FundingState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, exists := s.data[trancheID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	f := row.funding
	return &f, nil
}

// GetAll retrieves all tranches in creation order.
func (s *TrancheStore) GetAll(_ context.Context) ([]*domain.Tranche, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Tranche, 0, len(s.order))
	for _, id := range s.order {
		t := s.data[id].tranche
		out = append(out, &t)
	}
	return out, nil
}

// GetActive retrieves all active tranches in creation order.
func (s *TrancheStore) GetActive(_ context.Context) ([]*domain.Tranche, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Tranche
	for _, id := range s.order {
		if row := s.data[id]; row.tranche.IsActive {
			t := row.tranche
			out = append(out, &t)
		}
	}
	return out, nil
}
