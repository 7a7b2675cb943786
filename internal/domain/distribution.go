package domain

// Distribution is one deposit-and-split revenue event for a tranche.
// Immutable after creation except for the monotonic TotalClaimed.
type Distribution struct {
	DistributionID string // deterministic hash id, PRIMARY KEY
	TrancheID      string
	PaymentAsset   string

	TotalAmount     uint64 // TrancheAmount + SecondaryAmount, exactly
	TrancheAmount   uint64 // claimable by ownership-unit holders
	SecondaryAmount uint64 // secondary beneficiary's cut
	EffectiveBps    uint32 // bonus-adjusted split actually applied

	// SnapshotSeq references the ownership-ledger checkpoint the claims are
	// computed against: the sequence step immediately before the creating
	// operation, so the trigger itself is excluded from the supply count.
	SnapshotSeq             uint64
	TrancheSupplyAtSnapshot uint64
	// SecondarySupplyAtSnapshot is zero when no secondary-beneficiary
	// ledger exists; the secondary amount then goes straight to treasury.
	SecondarySupplyAtSnapshot uint64

	ClaimDeadline int64  // Unix milliseconds; claims rejected after this
	TotalClaimed  uint64 // monotonic, <= TotalAmount
	CreatedAt     int64  // Unix milliseconds
	CreatedSeq    uint64
}

// Claim records one holder's successful claim against a distribution.
type Claim struct {
	DistributionID string
	Holder         Address
	Amount         uint64
	ClaimedAt      int64 // Unix milliseconds
	ClaimedSeq     uint64
}
