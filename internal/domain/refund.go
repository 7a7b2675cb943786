package domain

// RefundState tracks the post-cancellation refund pool of one tranche.
// Only reachable from StatusClosedCancelled.
type RefundState struct {
	TrancheID string

	// RefundPool grows monotonically via operator deposits.
	RefundPool uint64

	// SnapshotSupply is the total ownership supply captured once, at the
	// moment of cancellation. Refund shares divide the pool by it.
	SnapshotSupply uint64

	TotalRefundsClaimed uint64
}
