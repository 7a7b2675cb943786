package memory

import (
	"context"
	"sync"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/storage"
)

// EventStore is an in-memory implementation of storage.EventStore.
// Events arrive in sequence order (the core serializes operations), so a
// slice is sufficient.
type EventStore struct {
	mu     sync.RWMutex
	events []domain.Event
	seen   map[uint64]bool
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{seen: make(map[uint64]bool)}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Append adds one event. Returns ErrDuplicateKey on a repeated seq.
func (s *EventStore) Append(_ context.Context, e *domain.Event) error {
	if e == nil || e.Seq == 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[e.Seq] {
		return storage.ErrDuplicateKey
	}
	s.seen[e.Seq] = true
	s.events = append(s.events, *e)
	return nil
}

// GetByTranche retrieves a tranche's events in sequence order.
func (s *EventStore) GetByTranche(_ context.Context, trancheID string, limit int) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Event
	for i := range s.events {
		if s.events[i].TrancheID != trancheID {
			continue
		}
		eventCopy := s.events[i]
		out = append(out, &eventCopy)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// GetSince retrieves events with seq > after, in sequence order.
func (s *EventStore) GetSince(_ context.Context, after uint64, limit int) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Event
	for i := range s.events {
		if s.events[i].Seq <= after {
			continue
		}
		eventCopy := s.events[i]
		out = append(out, &eventCopy)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// LatestSeq returns the highest stored sequence number, zero when empty.
func (s *EventStore) LatestSeq(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.events) == 0 {
		return 0, nil
	}
	return s.events[len(s.events)-1].Seq, nil
}
