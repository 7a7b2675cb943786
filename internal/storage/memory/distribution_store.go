package memory

import (
	"context"
	"sort"
	"sync"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

// DistributionStore is an in-memory implementation of
// storage.DistributionStore.
type DistributionStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.Distribution           // keyed by distribution_id
	claims map[string]map[domain.Address]domain.Claim // distribution_id -> holder
}

// NewDistributionStore creates a new in-memory distribution store.
func NewDistributionStore() *DistributionStore {
	return &DistributionStore{
		data:   make(map[string]*domain.Distribution),
		claims: make(map[string]map[domain.Address]domain.Claim),
	}
}

// Compile-time interface check.
var _ storage.DistributionStore = (*DistributionStore)(nil)

// Insert adds a new distribution. Returns ErrDuplicateKey if it exists.
func (s *DistributionStore) Insert(_ context.Context, d *domain.Distribution) error {
	if d == nil || d.DistributionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[d.DistributionID]; exists {
		return storage.ErrDuplicateKey
	}
	distCopy := *d
	s.data[d.DistributionID] = &distCopy
	s.claims[d.DistributionID] = make(map[domain.Address]domain.Claim)
	return nil
}

// UpdateTotalClaimed overwrites a distribution's monotonic claim total.
func (s *DistributionStore) UpdateTotalClaimed(_ context.Context, distributionID string, totalClaimed uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, exists := s.data[distributionID]
	if !exists {
		return storage.ErrNotFound
	}
	d.TotalClaimed = totalClaimed
	return nil
}

// InsertClaim records one holder's claim.
func (s *DistributionStore) InsertClaim(_ context.Context, c *domain.Claim) error {
	if c == nil || c.DistributionID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	claims, exists := s.claims[c.DistributionID]
	if !exists {
		return storage.ErrNotFound
	}
	if _, dup := claims[c.Holder]; dup {
		return storage.ErrDuplicateKey
	}
	claims[c.Holder] = *c
	return nil
}

// GetByID retrieves a distribution. Returns ErrNotFound if not exists.
func (s *DistributionStore) GetByID(_ context.Context, distributionID string) (*domain.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.data[distributionID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	distCopy := *d
	return &distCopy, nil
}

// GetByTranche retrieves a tranche's distributions in creation order.
func (s *DistributionStore) GetByTranche(_ context.Context, trancheID string) ([]*domain.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Distribution
	for _, d := range s.data {
		if d.TrancheID == trancheID {
			distCopy := *d
			out = append(out, &distCopy)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedSeq < out[j].CreatedSeq
	})
	return out, nil
}

// GetClaims retrieves all claims against a distribution, ordered by
// claim sequence.
func (s *DistributionStore) GetClaims(_ context.Context, distributionID string) ([]*domain.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	claims, exists := s.claims[distributionID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	out := make([]*domain.Claim, 0, len(claims))
	for _, c := range claims {
		claimCopy := c
		out = append(out, &claimCopy)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ClaimedSeq < out[j].ClaimedSeq
	})
	return out, nil
}
