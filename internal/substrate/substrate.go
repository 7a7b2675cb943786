// Package substrate defines the execution-substrate boundary the ledger
// core consumes: atomic value transfers, the monotonic time/sequence
// source. The real substrate lives outside this service; package-local
// implementations exist for local mode and tests.
package substrate

import (
	"time"

	"revora-ledger/internal/domain"
)

// Bank is the atomic value-transfer primitive for designated payment
// assets. A Transfer either fully succeeds or has no effect.
type Bank interface {
	// Transfer moves amount of asset from one account to another.
	Transfer(asset string, from, to domain.Address, amount uint64) error

	// Balance returns the current balance of account in asset.
	Balance(asset string, account domain.Address) uint64
}

// Clock is the monotonic time source. Sequential executions observe
// non-decreasing timestamps.
type Clock interface {
	// NowMs returns the current Unix timestamp in milliseconds.
	NowMs() int64
}

// SystemClock is the wall-clock Clock used by the server.
type SystemClock struct{}

// NowMs returns the current Unix timestamp in milliseconds.
func (SystemClock) NowMs() int64 {
	return time.Now().UnixMilli()
}

// Sequencer hands out the strictly increasing sequence numbers that order
// all state-changing operations and key the checkpoint log.
type Sequencer struct {
	next uint64
}

// NewSequencer starts a sequencer at the given next sequence number.
func NewSequencer(next uint64) *Sequencer {
	if next == 0 {
		next = 1
	}
	return &Sequencer{next: next}
}

// Next returns the next sequence number and advances.
// Callers serialize access; the core runs one operation at a time.
func (s *Sequencer) Next() uint64 {
	seq := s.next
	s.next++
	return seq
}

// Current returns the most recently issued sequence number, or zero if
// none was issued yet.
func (s *Sequencer) Current() uint64 {
	return s.next - 1
}
