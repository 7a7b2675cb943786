// Package refund implements the post-cancellation refund flow: the
// operator funds a pool, holders redeem their ownership units for a
// proportional slice of it based on the cancellation snapshot.
package refund

import (
	"fmt"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/ledger"
)

// state is one tranche's refund bookkeeping.
type state struct {
	pool           uint64
	snapshotSupply uint64
	totalClaimed   uint64
	claimed        map[domain.Address]bool
}

// Manager tracks refund pools across cancelled tranches.
// Not safe for concurrent use; the core executor serializes operations.
type Manager struct {
	states map[string]*state
}

// NewManager creates an empty refund manager.
func NewManager() *Manager {
	return &Manager{states: make(map[string]*state)}
}

// Open registers the cancellation snapshot for a tranche. Called by the
// registry/core exactly once, when the tranche is marked cancelled.
func (m *Manager) Open(trancheID string, snapshotSupply uint64) {
	m.states[trancheID] = &state{
		snapshotSupply: snapshotSupply,
		claimed:        make(map[domain.Address]bool),
	}
}

// Deposit adds amount to a cancelled tranche's refund pool. Operator-only,
// cumulative: multiple deposits are allowed.
func (m *Manager) Deposit(caller domain.Address, l *ledger.Ledger, amount uint64) error {
	if caller != l.Operator() {
		return fmt.Errorf("%w: caller %s is not the tranche operator", domain.ErrUnauthorized, caller)
	}
	if l.Status() != domain.StatusClosedCancelled {
		return fmt.Errorf("%w: tranche %s is not cancelled", domain.ErrInvalidState, l.TrancheID())
	}
	if amount == 0 {
		return fmt.Errorf("%w: zero refund deposit", domain.ErrInvalidInput)
	}
	st, ok := m.states[l.TrancheID()]
	if !ok {
		return fmt.Errorf("%w: no refund state for tranche %s", domain.ErrInvalidState, l.TrancheID())
	}
	st.pool += amount
	return nil
}

// Claim redeems caller's entire ownership balance for a proportional
// refund: balance * pool / snapshotSupply, floor division. The claimed
// flag flips and the units burn before any funds move.
func (m *Manager) Claim(caller domain.Address, l *ledger.Ledger, seq uint64) (uint64, error) {
	if l.Status() != domain.StatusClosedCancelled {
		return 0, fmt.Errorf("%w: tranche %s is not cancelled", domain.ErrInvalidState, l.TrancheID())
	}
	st, ok := m.states[l.TrancheID()]
	if !ok {
		return 0, fmt.Errorf("%w: no refund state for tranche %s", domain.ErrInvalidState, l.TrancheID())
	}
	if st.claimed[caller] {
		return 0, fmt.Errorf("%w: %s already claimed refund on tranche %s", domain.ErrAlreadyDone, caller, l.TrancheID())
	}
	if st.pool == 0 {
		return 0, fmt.Errorf("%w: refund pool is empty on tranche %s", domain.ErrInvalidState, l.TrancheID())
	}
	balance := l.Balance(caller)
	if balance == 0 {
		return 0, fmt.Errorf("%w: %s holds no ownership units on tranche %s", domain.ErrInvalidState, caller, l.TrancheID())
	}
	if st.snapshotSupply == 0 {
		return 0, fmt.Errorf("%w: zero snapshot supply on tranche %s", domain.ErrInvalidState, l.TrancheID())
	}

	amount, err := domain.MulDiv(balance, st.pool, st.snapshotSupply)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: refund rounds to zero for %s", domain.ErrInsufficientEffect, caller)
	}

	st.claimed[caller] = true
	st.totalClaimed += amount
	l.BurnAll(caller, seq)
	return amount, nil
}

// Amount mirrors Claim's computation as a pure read, returning zero
// wherever Claim would fail.
func (m *Manager) Amount(holder domain.Address, l *ledger.Ledger) uint64 {
	if l.Status() != domain.StatusClosedCancelled {
		return 0
	}
	st, ok := m.states[l.TrancheID()]
	if !ok || st.claimed[holder] || st.pool == 0 || st.snapshotSupply == 0 {
		return 0
	}
	balance := l.Balance(holder)
	if balance == 0 {
		return 0
	}
	amount, err := domain.MulDiv(balance, st.pool, st.snapshotSupply)
	if err != nil {
		return 0
	}
	return amount
}

// Available reports whether the tranche currently has a claimable pool.
func (m *Manager) Available(l *ledger.Ledger) bool {
	if l.Status() != domain.StatusClosedCancelled {
		return false
	}
	st, ok := m.states[l.TrancheID()]
	return ok && st.pool > 0 && st.snapshotSupply > 0
}

// State snapshots the refund bookkeeping for persistence and the read API.
func (m *Manager) State(trancheID string) (domain.RefundState, bool) {
	st, ok := m.states[trancheID]
	if !ok {
		return domain.RefundState{}, false
	}
	return domain.RefundState{
		TrancheID:           trancheID,
		RefundPool:          st.pool,
		SnapshotSupply:      st.snapshotSupply,
		TotalRefundsClaimed: st.totalClaimed,
	}, true
}
