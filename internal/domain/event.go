package domain

// Op names every state-changing operation, recorded in the event log.
type Op string

const (
	OpCreateTranche      Op = "CREATE_TRANCHE"
	OpConfigureTranche   Op = "CONFIGURE_TRANCHE"
	OpInvest             Op = "INVEST"
	OpPauseFunding       Op = "PAUSE_FUNDING"
	OpActivateFunding    Op = "ACTIVATE_FUNDING"
	OpCompleteFunding    Op = "COMPLETE_FUNDING"
	OpMarkSuccessful     Op = "MARK_SUCCESSFUL"
	OpMarkCancelled      Op = "MARK_CANCELLED"
	OpTransferUnits      Op = "TRANSFER_UNITS"
	OpTransferOwnership  Op = "TRANSFER_OWNERSHIP"
	OpDeactivateTranche  Op = "DEACTIVATE_TRANCHE"
	OpReactivateTranche  Op = "REACTIVATE_TRANCHE"
	OpCreateDistribution Op = "CREATE_DISTRIBUTION"
	OpClaim              Op = "CLAIM"
	OpWithdrawUnclaimed  Op = "WITHDRAW_UNCLAIMED"
	OpDepositRefund      Op = "DEPOSIT_REFUND"
	OpClaimRefund        Op = "CLAIM_REFUND"
)

// Event is the structured record emitted by every successful
// state-changing operation, for external observers and indexers.
type Event struct {
	Seq            uint64 // PRIMARY KEY, operation sequence number
	Timestamp      int64  // Unix milliseconds
	Op             Op
	TrancheID      string
	DistributionID string  // empty unless the op targets a distribution
	Actor          Address // authenticated caller
	Amount         uint64  // primary amount of the op (accepted, split, claimed...)
	UnitsDelta     uint64  // ownership units minted or burned, if any
	ResultState    string  // tranche status after the op
}
