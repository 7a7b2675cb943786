// Package ledger implements the per-tranche ownership ledger: funding
// lifecycle, ownership-unit balances and the checkpoint log that answers
// historical balance queries for distributions and refunds.
//
// The ledger is pure state. Moving actual payment-asset funds is the
// caller's job (the core executor), which runs every guard here before it
// touches the bank.
package ledger

import (
	"fmt"

	"revora-ledger/internal/domain"
)

// Ledger tracks one tranche's ownership units and funding lifecycle.
// Not safe for concurrent use; the core executor serializes operations.
type Ledger struct {
	trancheID    string
	operator     domain.Address
	fundingGoal  uint64
	unitPrice    uint64
	paymentAsset string

	fundingActive   bool
	fundingComplete bool
	status          domain.TrancheStatus

	totalRaised uint64
	totalSupply uint64
	balances    map[domain.Address]uint64

	holderHistory map[domain.Address]*checkpointLog
	supplyHistory checkpointLog

	// refundSnapshotSupply is captured once, at cancellation.
	refundSnapshotSupply uint64
}

// New creates the ownership ledger for a freshly created tranche.
// Funding starts active with status Active.
func New(t *domain.Tranche) *Ledger {
	return &Ledger{
		trancheID:     t.TrancheID,
		operator:      t.Operator,
		fundingGoal:   t.FundingGoal,
		unitPrice:     t.UnitPrice,
		paymentAsset:  t.PaymentAsset,
		fundingActive: true,
		status:        domain.StatusActive,
		balances:      make(map[domain.Address]uint64),
		holderHistory: make(map[domain.Address]*checkpointLog),
	}
}

// TrancheID returns the owning tranche's id.
func (l *Ledger) TrancheID() string { return l.trancheID }

// Operator returns the controlling operator.
func (l *Ledger) Operator() domain.Address { return l.operator }

// SetOperator hands administrative control to a new operator.
func (l *Ledger) SetOperator(newOperator domain.Address) {
	l.operator = newOperator
}

// Status returns the lifecycle status.
func (l *Ledger) Status() domain.TrancheStatus { return l.status }

// TotalRaised returns the cumulative accepted investment.
func (l *Ledger) TotalRaised() uint64 { return l.totalRaised }

// TotalSupply returns the outstanding ownership units.
func (l *Ledger) TotalSupply() uint64 { return l.totalSupply }

// RemainingGoal returns the unraised portion of the funding goal. An
// investment can never debit more than this.
func (l *Ledger) RemainingGoal() uint64 { return l.fundingGoal - l.totalRaised }

// RefundSnapshotSupply returns the supply captured at cancellation,
// zero if the tranche was never cancelled.
func (l *Ledger) RefundSnapshotSupply() uint64 { return l.refundSnapshotSupply }

// Balance returns holder's current ownership-unit balance.
func (l *Ledger) Balance(holder domain.Address) uint64 {
	return l.balances[holder]
}

// BalanceAt returns holder's balance as of the latest checkpoint at or
// before seq. Pure read; never fails.
func (l *Ledger) BalanceAt(holder domain.Address, seq uint64) uint64 {
	log, ok := l.holderHistory[holder]
	if !ok {
		return 0
	}
	return log.at(seq)
}

// SupplyAt returns the total ownership supply as of seq.
func (l *Ledger) SupplyAt(seq uint64) uint64 {
	return l.supplyHistory.at(seq)
}

// FundingState snapshots the mutable funding fields for persistence and
// the read API.
func (l *Ledger) FundingState(seq uint64) domain.FundingState {
	return domain.FundingState{
		TrancheID:       l.trancheID,
		FundingActive:   l.fundingActive,
		FundingComplete: l.fundingComplete,
		TotalRaised:     l.totalRaised,
		TotalSupply:     l.totalSupply,
		Status:          l.status,
		UpdatedSeq:      seq,
	}
}

// Invest accepts up to amount from caller, capped at the remaining goal.
// Excess is never taken: only min(amount, fundingGoal-totalRaised) is
// debited. Returns the accepted amount and the ownership units minted.
// Crossing the goal exactly auto-completes funding.
func (l *Ledger) Invest(caller domain.Address, amount uint64, seq uint64) (accepted, minted uint64, err error) {
	if !l.fundingActive || l.fundingComplete || l.status != domain.StatusActive {
		return 0, 0, fmt.Errorf("%w: funding not open on tranche %s", domain.ErrInvalidState, l.trancheID)
	}
	if amount == 0 {
		return 0, 0, fmt.Errorf("%w: zero investment amount", domain.ErrInvalidInput)
	}
	if caller == l.operator {
		return 0, 0, fmt.Errorf("%w: operator may not invest in own tranche", domain.ErrUnauthorized)
	}

	remaining := l.fundingGoal - l.totalRaised
	accepted = amount
	if accepted > remaining {
		accepted = remaining
	}

	minted, err = domain.MulDiv(accepted, domain.UnitScale, l.unitPrice)
	if err != nil {
		return 0, 0, err
	}
	if minted == 0 {
		return 0, 0, fmt.Errorf("%w: %d below minimum investment for unit price %d",
			domain.ErrInsufficientEffect, accepted, l.unitPrice)
	}

	l.totalRaised += accepted
	l.mint(caller, minted, seq)

	if l.totalRaised == l.fundingGoal {
		l.fundingComplete = true
		l.fundingActive = false
	}
	return accepted, minted, nil
}

// Pause halts new investment. Operator-only, pre-completion only.
func (l *Ledger) Pause(caller domain.Address) error {
	if err := l.requireOperator(caller); err != nil {
		return err
	}
	if l.fundingComplete || l.status != domain.StatusActive {
		return fmt.Errorf("%w: cannot pause tranche %s", domain.ErrInvalidState, l.trancheID)
	}
	if !l.fundingActive {
		return fmt.Errorf("%w: funding already paused", domain.ErrAlreadyDone)
	}
	l.fundingActive = false
	return nil
}

// Activate resumes investment after a pause. Operator-only.
func (l *Ledger) Activate(caller domain.Address) error {
	if err := l.requireOperator(caller); err != nil {
		return err
	}
	if l.fundingComplete || l.status != domain.StatusActive {
		return fmt.Errorf("%w: cannot activate tranche %s", domain.ErrInvalidState, l.trancheID)
	}
	if l.fundingActive {
		return fmt.Errorf("%w: funding already active", domain.ErrAlreadyDone)
	}
	l.fundingActive = true
	return nil
}

// Complete force-completes funding short of the goal. Operator-only,
// usable only before natural completion.
func (l *Ledger) Complete(caller domain.Address) error {
	if err := l.requireOperator(caller); err != nil {
		return err
	}
	if l.status != domain.StatusActive {
		return fmt.Errorf("%w: tranche %s is closed", domain.ErrInvalidState, l.trancheID)
	}
	if l.fundingComplete {
		return fmt.Errorf("%w: funding already complete", domain.ErrAlreadyDone)
	}
	l.fundingComplete = true
	l.fundingActive = false
	return nil
}

// MarkSuccessful closes the tranche as a success: transfers and further
// investment freeze permanently, distributions continue. One-way,
// operator-only, requires completed funding.
func (l *Ledger) MarkSuccessful(caller domain.Address) error {
	if err := l.requireOperator(caller); err != nil {
		return err
	}
	if l.status.IsTerminal() {
		return fmt.Errorf("%w: tranche %s already closed as %s", domain.ErrAlreadyDone, l.trancheID, l.status)
	}
	if !l.fundingComplete {
		return fmt.Errorf("%w: funding not complete on tranche %s", domain.ErrInvalidState, l.trancheID)
	}
	l.status = domain.StatusClosedSuccess
	l.fundingActive = false
	return nil
}

// MarkCancelled closes the tranche as cancelled, snapshots the current
// total supply for refund accounting and stops funding. One-way,
// operator-only. Returns the snapshot supply.
func (l *Ledger) MarkCancelled(caller domain.Address) (uint64, error) {
	if err := l.requireOperator(caller); err != nil {
		return 0, err
	}
	if l.status.IsTerminal() {
		return 0, fmt.Errorf("%w: tranche %s already closed as %s", domain.ErrAlreadyDone, l.trancheID, l.status)
	}
	l.status = domain.StatusClosedCancelled
	l.fundingActive = false
	l.refundSnapshotSupply = l.totalSupply
	return l.refundSnapshotSupply, nil
}

// Transfer moves ownership units between holders. Blocked outside the
// Active status: closed tranches freeze peer-to-peer transfers.
func (l *Ledger) Transfer(from, to domain.Address, units uint64, seq uint64) error {
	if l.status != domain.StatusActive {
		return fmt.Errorf("%w: transfers frozen on tranche %s (%s)", domain.ErrInvalidState, l.trancheID, l.status)
	}
	if units == 0 {
		return fmt.Errorf("%w: zero transfer units", domain.ErrInvalidInput)
	}
	if l.balances[from] < units {
		return fmt.Errorf("%w: holder %s has %d units, needs %d", domain.ErrInvalidState, from, l.balances[from], units)
	}

	l.setBalance(from, l.balances[from]-units, seq)
	l.setBalance(to, l.balances[to]+units, seq)
	return nil
}

// BurnAll removes holder's entire balance from supply and returns the
// burned amount. Burning is a supply reduction, not a transfer, so the
// transfer freeze does not apply; the refund flow relies on this while
// the tranche is cancelled.
func (l *Ledger) BurnAll(holder domain.Address, seq uint64) uint64 {
	units := l.balances[holder]
	if units == 0 {
		return 0
	}
	l.setBalance(holder, 0, seq)
	l.totalSupply -= units
	l.supplyHistory.record(seq, l.totalSupply)
	return units
}

func (l *Ledger) mint(holder domain.Address, units uint64, seq uint64) {
	l.setBalance(holder, l.balances[holder]+units, seq)
	l.totalSupply += units
	l.supplyHistory.record(seq, l.totalSupply)
}

func (l *Ledger) setBalance(holder domain.Address, balance uint64, seq uint64) {
	if balance == 0 {
		delete(l.balances, holder)
	} else {
		l.balances[holder] = balance
	}
	log, ok := l.holderHistory[holder]
	if !ok {
		log = &checkpointLog{}
		l.holderHistory[holder] = log
	}
	log.record(seq, balance)
}

func (l *Ledger) requireOperator(caller domain.Address) error {
	if caller != l.operator {
		return fmt.Errorf("%w: caller %s is not the tranche operator", domain.ErrUnauthorized, caller)
	}
	return nil
}
