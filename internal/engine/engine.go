// Package engine implements the distribution engine: per-tranche split
// configuration, bonus-adjusted revenue splitting, snapshot-referenced
// distribution records and per-holder claim accounting.
//
// Like the ownership ledger, the engine is pure state: the core executor
// moves the actual funds and calls in here for guards and bookkeeping.
package engine

import (
	"fmt"
	"time"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/idhash"
	"revora-ledger/internal/substrate"
)

// LedgerSource resolves tranche operators and historical ledger state.
// The registry implements it.
type LedgerSource interface {
	// OperatorOf returns the current controlling operator of a tranche.
	OperatorOf(trancheID string) (domain.Address, error)

	// BalanceAt returns a holder's ownership balance at or before seq.
	BalanceAt(trancheID string, holder domain.Address, seq uint64) (uint64, error)

	// SupplyAt returns a tranche's total ownership supply at or before seq.
	SupplyAt(trancheID string, seq uint64) (uint64, error)
}

// Engine holds split configurations and the distribution log.
// Not safe for concurrent use; the core executor serializes operations.
type Engine struct {
	ledgers LedgerSource
	clock   substrate.Clock

	// configurer may set tranche configs besides each tranche's operator;
	// the registry registers initial configs through it on creation.
	configurer domain.Address

	// secondaryLedger, when set, is the tranche whose holders share the
	// secondary amount. When empty, secondary amounts go straight to the
	// tranche treasury.
	secondaryLedger string

	configs       map[string]domain.TrancheConfig
	distributions map[string]*domain.Distribution
	byTranche     map[string][]string
	claimed       map[string]map[domain.Address]bool
}

// New creates a distribution engine.
func New(ledgers LedgerSource, clock substrate.Clock, configurer domain.Address) *Engine {
	return &Engine{
		ledgers:       ledgers,
		clock:         clock,
		configurer:    configurer,
		configs:       make(map[string]domain.TrancheConfig),
		distributions: make(map[string]*domain.Distribution),
		byTranche:     make(map[string][]string),
		claimed:       make(map[string]map[domain.Address]bool),
	}
}

// SetSecondaryLedger designates the tranche whose holders receive the
// secondary share of every distribution.
func (e *Engine) SetSecondaryLedger(trancheID string) {
	e.secondaryLedger = trancheID
}

// Configure sets (or overwrites) a tranche's split configuration.
// Callable by the tranche operator or the authorized configurer.
func (e *Engine) Configure(caller domain.Address, cfg domain.TrancheConfig) error {
	operator, err := e.ledgers.OperatorOf(cfg.TrancheID)
	if err != nil {
		return err
	}
	if caller != operator && caller != e.configurer {
		return fmt.Errorf("%w: caller %s may not configure tranche %s", domain.ErrUnauthorized, caller, cfg.TrancheID)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.IsConfigured = true
	e.configs[cfg.TrancheID] = cfg
	return nil
}

// Config returns a tranche's split configuration.
func (e *Engine) Config(trancheID string) (domain.TrancheConfig, bool) {
	cfg, ok := e.configs[trancheID]
	return cfg, ok
}

// CreateDistribution records one revenue event for a tranche and computes
// its bonus-adjusted split. investmentStart is the wall-clock start of the
// investment period (Unix ms); profitAmount drives the performance bonus.
// The snapshot is taken one sequence step before the creating operation so
// the trigger itself is excluded from the supply count.
//
// The caller (core) must have deposited totalAmount with the escrow before
// calling, and must forward the secondary amount to the treasury when
// SecondarySupplyAtSnapshot is zero.
func (e *Engine) CreateDistribution(
	caller domain.Address,
	trancheID, paymentAsset string,
	totalAmount, profitAmount uint64,
	investmentStart int64,
	seq uint64,
) (*domain.Distribution, error) {
	operator, err := e.ledgers.OperatorOf(trancheID)
	if err != nil {
		return nil, err
	}
	if caller != operator {
		return nil, fmt.Errorf("%w: caller %s is not the tranche operator", domain.ErrUnauthorized, caller)
	}
	cfg, ok := e.configs[trancheID]
	if !ok || !cfg.IsConfigured {
		return nil, fmt.Errorf("%w: tranche %s has no split configuration", domain.ErrInvalidState, trancheID)
	}
	if totalAmount == 0 {
		return nil, fmt.Errorf("%w: zero distribution amount", domain.ErrInvalidInput)
	}

	now := e.clock.NowMs()
	elapsed := time.Duration(now-investmentStart) * time.Millisecond
	effectiveBps := cfg.EffectiveBps(elapsed, profitAmount)

	secondaryAmount, err := domain.ApplyBps(totalAmount, effectiveBps)
	if err != nil {
		return nil, err
	}
	// Exact complement: no rounding leak.
	trancheAmount := totalAmount - secondaryAmount

	snapshotSeq := seq - 1
	trancheSupply, err := e.ledgers.SupplyAt(trancheID, snapshotSeq)
	if err != nil {
		return nil, err
	}
	if trancheSupply == 0 {
		return nil, fmt.Errorf("%w: tranche %s has no ownership outstanding at snapshot", domain.ErrInvalidState, trancheID)
	}

	var secondarySupply uint64
	if e.secondaryLedger != "" {
		secondarySupply, err = e.ledgers.SupplyAt(e.secondaryLedger, snapshotSeq)
		if err != nil {
			return nil, err
		}
	}

	dist := &domain.Distribution{
		DistributionID:            idhash.DistributionID(trancheID, paymentAsset, totalAmount, seq),
		TrancheID:                 trancheID,
		PaymentAsset:              paymentAsset,
		TotalAmount:               totalAmount,
		TrancheAmount:             trancheAmount,
		SecondaryAmount:           secondaryAmount,
		EffectiveBps:              effectiveBps,
		SnapshotSeq:               snapshotSeq,
		TrancheSupplyAtSnapshot:   trancheSupply,
		SecondarySupplyAtSnapshot: secondarySupply,
		ClaimDeadline:             now + cfg.ClaimPeriod.Milliseconds(),
		CreatedAt:                 now,
		CreatedSeq:                seq,
	}

	e.distributions[dist.DistributionID] = dist
	e.byTranche[trancheID] = append(e.byTranche[trancheID], dist.DistributionID)
	e.claimed[dist.DistributionID] = make(map[domain.Address]bool)
	return dist, nil
}

// Distribution returns a distribution record by id.
func (e *Engine) Distribution(distributionID string) (*domain.Distribution, bool) {
	d, ok := e.distributions[distributionID]
	return d, ok
}

// DistributionsOf returns all distribution ids for a tranche, in creation
// order.
func (e *Engine) DistributionsOf(trancheID string) []string {
	return append([]string(nil), e.byTranche[trancheID]...)
}

// HasClaimed reports whether holder already claimed a distribution.
func (e *Engine) HasClaimed(distributionID string, holder domain.Address) bool {
	return e.claimed[distributionID][holder]
}

// ClaimableAmount returns what holder could claim right now. Pure read:
// zero for unknown ids, already-claimed holders, passed deadlines and
// shares that round to zero.
func (e *Engine) ClaimableAmount(distributionID string, holder domain.Address) uint64 {
	dist, ok := e.distributions[distributionID]
	if !ok {
		return 0
	}
	if e.claimed[distributionID][holder] {
		return 0
	}
	if e.clock.NowMs() > dist.ClaimDeadline {
		return 0
	}
	amount, err := e.shareOf(dist, holder)
	if err != nil {
		return 0
	}
	return amount
}

// Claim marks holder's claim on a distribution and returns the amount the
// core must pay out. The claimed flag and TotalClaimed are set here,
// before any funds move: a reentering call observes the claimed state.
func (e *Engine) Claim(caller domain.Address, distributionID string, seq uint64) (uint64, error) {
	dist, ok := e.distributions[distributionID]
	if !ok {
		return 0, fmt.Errorf("%w: distribution %s", domain.ErrNotFound, distributionID)
	}
	if e.claimed[distributionID][caller] {
		return 0, fmt.Errorf("%w: %s already claimed distribution %s", domain.ErrAlreadyDone, caller, distributionID)
	}
	if e.clock.NowMs() > dist.ClaimDeadline {
		return 0, fmt.Errorf("%w: claim deadline passed on distribution %s", domain.ErrDeadlineExceeded, distributionID)
	}
	amount, err := e.shareOf(dist, caller)
	if err != nil {
		return 0, err
	}
	if amount == 0 {
		return 0, fmt.Errorf("%w: nothing to claim on distribution %s", domain.ErrInsufficientEffect, distributionID)
	}

	e.claimed[distributionID][caller] = true
	dist.TotalClaimed += amount
	return amount, nil
}

// WithdrawUnclaimed closes a distribution after its deadline and returns
// the remainder the core must sweep to the treasury. Operator-only.
func (e *Engine) WithdrawUnclaimed(caller domain.Address, distributionID string) (uint64, error) {
	dist, ok := e.distributions[distributionID]
	if !ok {
		return 0, fmt.Errorf("%w: distribution %s", domain.ErrNotFound, distributionID)
	}
	operator, err := e.ledgers.OperatorOf(dist.TrancheID)
	if err != nil {
		return 0, err
	}
	if caller != operator {
		return 0, fmt.Errorf("%w: caller %s is not the tranche operator", domain.ErrUnauthorized, caller)
	}
	if e.clock.NowMs() <= dist.ClaimDeadline {
		return 0, fmt.Errorf("%w: claim window still open on distribution %s", domain.ErrInvalidState, distributionID)
	}
	remainder := dist.TotalAmount - dist.TotalClaimed
	if remainder == 0 {
		return 0, fmt.Errorf("%w: distribution %s already fully claimed or swept", domain.ErrAlreadyDone, distributionID)
	}

	// Close the distribution to further claims.
	dist.TotalClaimed = dist.TotalAmount
	return remainder, nil
}

// shareOf computes holder's proportional share of a distribution from the
// recorded snapshot: tranche share plus, when a secondary-beneficiary
// ledger was snapshotted, the analogous secondary share.
func (e *Engine) shareOf(dist *domain.Distribution, holder domain.Address) (uint64, error) {
	balance, err := e.ledgers.BalanceAt(dist.TrancheID, holder, dist.SnapshotSeq)
	if err != nil {
		return 0, err
	}
	share, err := domain.MulDiv(dist.TrancheAmount, balance, dist.TrancheSupplyAtSnapshot)
	if err != nil {
		return 0, err
	}

	if dist.SecondarySupplyAtSnapshot > 0 && e.secondaryLedger != "" {
		secondaryBalance, err := e.ledgers.BalanceAt(e.secondaryLedger, holder, dist.SnapshotSeq)
		if err != nil {
			return 0, err
		}
		secondaryShare, err := domain.MulDiv(dist.SecondaryAmount, secondaryBalance, dist.SecondarySupplyAtSnapshot)
		if err != nil {
			return 0, err
		}
		share += secondaryShare
	}
	return share, nil
}
