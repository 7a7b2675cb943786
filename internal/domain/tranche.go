package domain

import "fmt"

// TrancheStatus is the one-way lifecycle status of a tranche's ownership
// ledger. Active is the only non-terminal state.
type TrancheStatus string

const (
	StatusActive          TrancheStatus = "ACTIVE"
	StatusClosedSuccess   TrancheStatus = "CLOSED_SUCCESS"
	StatusClosedCancelled TrancheStatus = "CLOSED_CANCELLED"
)

// String returns the string representation of the status.
func (s TrancheStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid value.
func (s TrancheStatus) IsValid() bool {
	return s == StatusActive || s == StatusClosedSuccess || s == StatusClosedCancelled
}

// IsTerminal reports whether the status permits no further transitions.
func (s TrancheStatus) IsTerminal() bool {
	return s == StatusClosedSuccess || s == StatusClosedCancelled
}

// Tranche is the immutable-at-creation record of one funding round.
// Only IsActive is mutable after creation; it is owned by the registry and
// toggled to halt new investment without touching ledger state.
type Tranche struct {
	TrancheID    string  // deterministic hash id, PRIMARY KEY
	Name         string  // display name
	Symbol       string  // short ticker for the ownership units
	Description  string  // free-form description
	FundingGoal  uint64  // cap on totalRaised, in payment-asset base units
	UnitPrice    uint64  // payment-asset base units per whole ownership unit
	PaymentAsset string  // payment-asset identifier
	Treasury     Address // destination for secondary shares and sweeps
	Operator     Address // controlling operator
	CreatedAt    int64   // Unix timestamp in milliseconds
	CreatedSeq   uint64  // sequence number of the creating operation
	IsActive     bool    // registry toggle, gates new investment
}

// Validate checks the creation-time invariants.
func (t *Tranche) Validate() error {
	if t.FundingGoal == 0 {
		return fmt.Errorf("%w: funding goal must be positive", ErrInvalidInput)
	}
	if t.UnitPrice == 0 {
		return fmt.Errorf("%w: unit price must be positive", ErrInvalidInput)
	}
	if t.PaymentAsset == "" {
		return fmt.Errorf("%w: payment asset required", ErrInvalidInput)
	}
	if err := t.Treasury.Validate(); err != nil {
		return fmt.Errorf("treasury: %w", err)
	}
	if err := t.Operator.Validate(); err != nil {
		return fmt.Errorf("operator: %w", err)
	}
	return nil
}

// FundingState is the mutable funding snapshot of a tranche's ledger,
// exposed to the read API and persisted after each mutating operation.
type FundingState struct {
	TrancheID       string
	FundingActive   bool
	FundingComplete bool
	TotalRaised     uint64 // monotonically non-decreasing, <= FundingGoal
	TotalSupply     uint64 // outstanding ownership units
	Status          TrancheStatus
	UpdatedSeq      uint64
}
