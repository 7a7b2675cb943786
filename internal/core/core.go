// Package core implements the operation executor: it serializes every
// state-changing operation, assigns sequence numbers, runs the domain
// guards, moves funds through the bank and writes through to storage.
//
// The domain packages (ledger, engine, refund, registry) are pure state;
// all money movement happens here, after their guards have passed. Bank
// balances are pre-checked so a transfer can never fail after claimed
// flags flip.
package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/engine"
	"revora-ledger/internal/ledger"
	"revora-ledger/internal/observability"
	"revora-ledger/internal/refund"
	"revora-ledger/internal/registry"
	"revora-ledger/internal/storage"
	"revora-ledger/internal/substrate"
)

// Publisher receives every committed event, for the websocket feed.
type Publisher interface {
	Publish(e *domain.Event)
}

// Stores bundles the persistence backends the core writes through to.
type Stores struct {
	Tranches      storage.TrancheStore
	Distributions storage.DistributionStore
	Refunds       storage.RefundStore
	Events        storage.EventStore
}

// Config carries the platform identities.
type Config struct {
	// Operator administers the registry: creates tranches, toggles
	// activity, transfers ledger ownership.
	Operator domain.Address

	// PlatformTreasury receives the secondary share of distributions when
	// no secondary-beneficiary ledger is designated.
	PlatformTreasury domain.Address
}

// Core is the operation executor. Safe for concurrent use; one mutex
// serializes all operations, which is what gives sequence numbers their
// total order.
type Core struct {
	mu sync.Mutex

	cfg      Config
	registry *registry.Registry
	engine   *engine.Engine
	refunds  *refund.Manager

	bank  substrate.Bank
	clock substrate.Clock
	seq   *substrate.Sequencer

	stores    Stores
	publisher Publisher
	logger    *log.Logger
}

// New wires the executor. startSeq is the first sequence number to issue,
// normally one past the event store's latest.
func New(cfg Config, bank substrate.Bank, clock substrate.Clock, startSeq uint64, stores Stores, logger *log.Logger) *Core {
	if logger == nil {
		logger = log.New(os.Stdout, "[core] ", log.LstdFlags)
	}

	identity := domain.DeriveEscrow("registry", string(cfg.Operator))
	reg := registry.New(cfg.Operator, identity)
	eng := engine.New(reg, clock, identity)
	reg.AttachEngine(eng)

	return &Core{
		cfg:      cfg,
		registry: reg,
		engine:   eng,
		refunds:  refund.NewManager(),
		bank:     bank,
		clock:    clock,
		seq:      substrate.NewSequencer(startSeq),
		stores:   stores,
		logger:   logger,
	}
}

// SetPublisher attaches the event feed. Must be called before operations
// start; events committed earlier are not replayed.
func (c *Core) SetPublisher(p Publisher) { c.publisher = p }

// SetSecondaryLedger designates the tranche whose holders receive the
// secondary share of every subsequent distribution.
func (c *Core) SetSecondaryLedger(trancheID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.SetSecondaryLedger(trancheID)
}

// DistributionEscrow returns the derived account holding a tranche's
// undistributed claim funds.
func DistributionEscrow(trancheID string) domain.Address {
	return domain.DeriveEscrow("distribution", trancheID)
}

// RefundEscrow returns the derived account holding a tranche's refund pool.
func RefundEscrow(trancheID string) domain.Address {
	return domain.DeriveEscrow("refund", trancheID)
}

// CreateTranche creates a tranche, its ownership ledger and its split
// configuration as one operation.
func (c *Core) CreateTranche(ctx context.Context, caller domain.Address, p registry.CreateParams) (*domain.Tranche, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	seq := c.seq.Next()
	t, err := c.registry.CreateTranche(caller, p, seq, c.clock.NowMs())
	if err != nil {
		return nil, c.reject(domain.OpCreateTranche, err)
	}

	if err := c.stores.Tranches.Insert(ctx, t); err != nil {
		return nil, fmt.Errorf("persist tranche %s: %w", t.TrancheID, err)
	}
	observability.DefaultMetrics.TranchesCreated.Inc()
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   t.CreatedAt,
		Op:          domain.OpCreateTranche,
		TrancheID:   t.TrancheID,
		Actor:       caller,
		Amount:      t.FundingGoal,
		ResultState: string(domain.StatusActive),
	}, start)
	return t, nil
}

// ConfigureTranche overwrites a tranche's split configuration.
func (c *Core) ConfigureTranche(ctx context.Context, caller domain.Address, cfg domain.TrancheConfig) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	seq := c.seq.Next()
	if err := c.engine.Configure(caller, cfg); err != nil {
		return c.reject(domain.OpConfigureTranche, err)
	}

	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          domain.OpConfigureTranche,
		TrancheID:   cfg.TrancheID,
		Actor:       caller,
		ResultState: c.statusOf(cfg.TrancheID),
	}, start)
	return nil
}

// Invest accepts caller's investment, capped at the remaining funding
// goal, and moves the accepted amount to the tranche treasury.
func (c *Core) Invest(ctx context.Context, caller domain.Address, trancheID string, amount uint64) (accepted, minted uint64, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	t, err := c.registry.Tranche(trancheID)
	if err != nil {
		return 0, 0, c.reject(domain.OpInvest, err)
	}
	l, _ := c.registry.Ledger(trancheID)

	// The transfer must not be able to fail after the ledger mutates.
	// Excess above the remaining goal is never taken, so the balance check
	// runs against the capped fill, not the requested amount.
	fill := amount
	if remaining := l.RemainingGoal(); fill > remaining {
		fill = remaining
	}
	if c.bank.Balance(t.PaymentAsset, caller) < fill {
		return 0, 0, c.reject(domain.OpInvest,
			fmt.Errorf("%w: %s cannot cover investment of %d %s", domain.ErrInvalidState, caller, fill, t.PaymentAsset))
	}

	seq := c.seq.Next()
	accepted, minted, err = l.Invest(caller, amount, seq)
	if err != nil {
		return 0, 0, c.reject(domain.OpInvest, err)
	}
	if err := c.bank.Transfer(t.PaymentAsset, caller, t.Treasury, accepted); err != nil {
		return 0, 0, fmt.Errorf("invest transfer: %w", err)
	}

	c.persistFunding(ctx, l, seq)
	observability.RecordInvestment(accepted)
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          domain.OpInvest,
		TrancheID:   trancheID,
		Actor:       caller,
		Amount:      accepted,
		UnitsDelta:  minted,
		ResultState: string(l.Status()),
	}, start)
	return accepted, minted, nil
}

// PauseFunding halts new investment on a tranche.
func (c *Core) PauseFunding(ctx context.Context, caller domain.Address, trancheID string) error {
	return c.fundingToggle(ctx, caller, trancheID, domain.OpPauseFunding)
}

// ActivateFunding resumes investment after a pause.
func (c *Core) ActivateFunding(ctx context.Context, caller domain.Address, trancheID string) error {
	return c.fundingToggle(ctx, caller, trancheID, domain.OpActivateFunding)
}

// CompleteFunding force-completes funding short of the goal.
func (c *Core) CompleteFunding(ctx context.Context, caller domain.Address, trancheID string) error {
	return c.fundingToggle(ctx, caller, trancheID, domain.OpCompleteFunding)
}

func (c *Core) fundingToggle(ctx context.Context, caller domain.Address, trancheID string, op domain.Op) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	l, err := c.registry.Ledger(trancheID)
	if err != nil {
		return c.reject(op, err)
	}

	seq := c.seq.Next()
	switch op {
	case domain.OpPauseFunding:
		err = l.Pause(caller)
	case domain.OpActivateFunding:
		err = l.Activate(caller)
	case domain.OpCompleteFunding:
		err = l.Complete(caller)
	}
	if err != nil {
		return c.reject(op, err)
	}

	c.persistFunding(ctx, l, seq)
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          op,
		TrancheID:   trancheID,
		Actor:       caller,
		ResultState: string(l.Status()),
	}, start)
	return nil
}

// MarkSuccessful closes a tranche as a success. One-way.
func (c *Core) MarkSuccessful(ctx context.Context, caller domain.Address, trancheID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	l, err := c.registry.Ledger(trancheID)
	if err != nil {
		return c.reject(domain.OpMarkSuccessful, err)
	}

	seq := c.seq.Next()
	if err := l.MarkSuccessful(caller); err != nil {
		return c.reject(domain.OpMarkSuccessful, err)
	}

	c.persistFunding(ctx, l, seq)
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          domain.OpMarkSuccessful,
		TrancheID:   trancheID,
		Actor:       caller,
		ResultState: string(l.Status()),
	}, start)
	return nil
}

// MarkCancelled closes a tranche as cancelled and opens its refund state
// with the supply snapshotted at cancellation. One-way.
func (c *Core) MarkCancelled(ctx context.Context, caller domain.Address, trancheID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	l, err := c.registry.Ledger(trancheID)
	if err != nil {
		return c.reject(domain.OpMarkCancelled, err)
	}

	seq := c.seq.Next()
	snapshot, err := l.MarkCancelled(caller)
	if err != nil {
		return c.reject(domain.OpMarkCancelled, err)
	}
	c.refunds.Open(trancheID, snapshot)

	c.persistFunding(ctx, l, seq)
	c.persistRefund(ctx, trancheID)
	observability.DefaultMetrics.TranchesCancelled.Inc()
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          domain.OpMarkCancelled,
		TrancheID:   trancheID,
		Actor:       caller,
		UnitsDelta:  snapshot,
		ResultState: string(l.Status()),
	}, start)
	return nil
}

// TransferUnits moves ownership units from the caller to another holder.
func (c *Core) TransferUnits(ctx context.Context, caller domain.Address, trancheID string, to domain.Address, units uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	l, err := c.registry.Ledger(trancheID)
	if err != nil {
		return c.reject(domain.OpTransferUnits, err)
	}
	// Ownership units only live on holder keys, never on derived accounts.
	if err := to.Validate(); err != nil {
		return c.reject(domain.OpTransferUnits, fmt.Errorf("transfer recipient: %w", err))
	}
	if !to.IsOnCurve() {
		return c.reject(domain.OpTransferUnits,
			fmt.Errorf("%w: recipient %s is not a holder address", domain.ErrInvalidInput, to))
	}

	seq := c.seq.Next()
	if err := l.Transfer(caller, to, units, seq); err != nil {
		return c.reject(domain.OpTransferUnits, err)
	}

	observability.DefaultMetrics.UnitsTransferred.Add(float64(units))
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          domain.OpTransferUnits,
		TrancheID:   trancheID,
		Actor:       caller,
		UnitsDelta:  units,
		ResultState: string(l.Status()),
	}, start)
	return nil
}

// TransferOwnership hands administrative control of a tranche's ledger to
// a new operator.
func (c *Core) TransferOwnership(ctx context.Context, caller domain.Address, trancheID string, newOperator domain.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	seq := c.seq.Next()
	if err := c.registry.TransferTrancheOwnership(caller, trancheID, newOperator); err != nil {
		return c.reject(domain.OpTransferOwnership, err)
	}

	if err := c.stores.Tranches.SetOperator(ctx, trancheID, newOperator, seq); err != nil {
		c.logger.Printf("persist operator of %s: %v", trancheID, err)
	}
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          domain.OpTransferOwnership,
		TrancheID:   trancheID,
		Actor:       caller,
		ResultState: c.statusOf(trancheID),
	}, start)
	return nil
}

// DeactivateTranche delists a tranche and pauses its funding.
func (c *Core) DeactivateTranche(ctx context.Context, caller domain.Address, trancheID string) error {
	return c.activityToggle(ctx, caller, trancheID, domain.OpDeactivateTranche)
}

// ReactivateTranche relists a tranche and resumes its funding.
func (c *Core) ReactivateTranche(ctx context.Context, caller domain.Address, trancheID string) error {
	return c.activityToggle(ctx, caller, trancheID, domain.OpReactivateTranche)
}

func (c *Core) activityToggle(ctx context.Context, caller domain.Address, trancheID string, op domain.Op) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	seq := c.seq.Next()
	var err error
	if op == domain.OpDeactivateTranche {
		err = c.registry.DeactivateTranche(caller, trancheID)
	} else {
		err = c.registry.ReactivateTranche(caller, trancheID)
	}
	if err != nil {
		return c.reject(op, err)
	}

	active := op == domain.OpReactivateTranche
	if err := c.stores.Tranches.SetActive(ctx, trancheID, active, seq); err != nil {
		c.logger.Printf("persist activity of %s: %v", trancheID, err)
	}
	if l, err := c.registry.Ledger(trancheID); err == nil {
		c.persistFunding(ctx, l, seq)
	}
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          op,
		TrancheID:   trancheID,
		Actor:       caller,
		ResultState: c.statusOf(trancheID),
	}, start)
	return nil
}

// CreateDistribution deposits caller's revenue, computes the split against
// the pre-operation snapshot and escrows the claimable amount. When no
// secondary-beneficiary ledger is designated, the secondary share goes
// straight to the platform treasury. investmentStartMs anchors the time
// bonus; zero falls back to the tranche's creation time.
func (c *Core) CreateDistribution(ctx context.Context, caller domain.Address, trancheID string, totalAmount, profitAmount uint64, investmentStartMs int64) (*domain.Distribution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	t, err := c.registry.Tranche(trancheID)
	if err != nil {
		return nil, c.reject(domain.OpCreateDistribution, err)
	}
	if c.bank.Balance(t.PaymentAsset, caller) < totalAmount {
		return nil, c.reject(domain.OpCreateDistribution,
			fmt.Errorf("%w: %s cannot cover distribution of %d %s", domain.ErrInvalidState, caller, totalAmount, t.PaymentAsset))
	}
	if investmentStartMs == 0 {
		investmentStartMs = t.CreatedAt
	}

	seq := c.seq.Next()
	dist, err := c.engine.CreateDistribution(caller, trancheID, t.PaymentAsset, totalAmount, profitAmount, investmentStartMs, seq)
	if err != nil {
		return nil, c.reject(domain.OpCreateDistribution, err)
	}

	escrow := DistributionEscrow(trancheID)
	if dist.SecondarySupplyAtSnapshot == 0 && dist.SecondaryAmount > 0 {
		// No secondary ledger: only the tranche amount is claimable, the
		// platform share leaves immediately.
		if err := c.bank.Transfer(t.PaymentAsset, caller, c.cfg.PlatformTreasury, dist.SecondaryAmount); err != nil {
			return nil, fmt.Errorf("secondary transfer: %w", err)
		}
		if dist.TrancheAmount > 0 {
			if err := c.bank.Transfer(t.PaymentAsset, caller, escrow, dist.TrancheAmount); err != nil {
				return nil, fmt.Errorf("escrow transfer: %w", err)
			}
		}
	} else {
		if err := c.bank.Transfer(t.PaymentAsset, caller, escrow, totalAmount); err != nil {
			return nil, fmt.Errorf("escrow transfer: %w", err)
		}
	}

	if err := c.stores.Distributions.Insert(ctx, dist); err != nil {
		c.logger.Printf("persist distribution %s: %v", dist.DistributionID, err)
	}
	observability.DefaultMetrics.DistributionsCreated.Inc()
	observability.DefaultMetrics.DistributedAmount.Add(float64(totalAmount))
	c.commit(ctx, &domain.Event{
		Seq:            seq,
		Timestamp:      dist.CreatedAt,
		Op:             domain.OpCreateDistribution,
		TrancheID:      trancheID,
		DistributionID: dist.DistributionID,
		Actor:          caller,
		Amount:         totalAmount,
		ResultState:    c.statusOf(trancheID),
	}, start)
	return dist, nil
}

// Claim pays out caller's proportional share of a distribution. The
// claimed flag flips in the engine before the escrow transfer.
func (c *Core) Claim(ctx context.Context, caller domain.Address, distributionID string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	dist, ok := c.engine.Distribution(distributionID)
	if !ok {
		return 0, c.reject(domain.OpClaim, fmt.Errorf("%w: distribution %s", domain.ErrNotFound, distributionID))
	}

	seq := c.seq.Next()
	amount, err := c.engine.Claim(caller, distributionID, seq)
	if err != nil {
		return 0, c.reject(domain.OpClaim, err)
	}
	if err := c.bank.Transfer(dist.PaymentAsset, DistributionEscrow(dist.TrancheID), caller, amount); err != nil {
		return 0, fmt.Errorf("claim transfer: %w", err)
	}

	now := c.clock.NowMs()
	if err := c.stores.Distributions.InsertClaim(ctx, &domain.Claim{
		DistributionID: distributionID,
		Holder:         caller,
		Amount:         amount,
		ClaimedAt:      now,
		ClaimedSeq:     seq,
	}); err != nil {
		c.logger.Printf("persist claim on %s: %v", distributionID, err)
	}
	if err := c.stores.Distributions.UpdateTotalClaimed(ctx, distributionID, dist.TotalClaimed); err != nil {
		c.logger.Printf("persist claim total on %s: %v", distributionID, err)
	}
	observability.RecordClaim(amount)
	c.commit(ctx, &domain.Event{
		Seq:            seq,
		Timestamp:      now,
		Op:             domain.OpClaim,
		TrancheID:      dist.TrancheID,
		DistributionID: distributionID,
		Actor:          caller,
		Amount:         amount,
		ResultState:    c.statusOf(dist.TrancheID),
	}, start)
	return amount, nil
}

// WithdrawUnclaimed sweeps a distribution's unclaimed funds back to the
// tranche treasury after the claim deadline and closes it to claims.
func (c *Core) WithdrawUnclaimed(ctx context.Context, caller domain.Address, distributionID string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	dist, ok := c.engine.Distribution(distributionID)
	if !ok {
		return 0, c.reject(domain.OpWithdrawUnclaimed, fmt.Errorf("%w: distribution %s", domain.ErrNotFound, distributionID))
	}
	t, err := c.registry.Tranche(dist.TrancheID)
	if err != nil {
		return 0, c.reject(domain.OpWithdrawUnclaimed, err)
	}

	seq := c.seq.Next()
	remainder, err := c.engine.WithdrawUnclaimed(caller, distributionID)
	if err != nil {
		return 0, c.reject(domain.OpWithdrawUnclaimed, err)
	}

	// The escrow only ever held the tranche amount when the secondary
	// share was forwarded at creation; the sweep covers what is left.
	swept := remainder
	if dist.SecondarySupplyAtSnapshot == 0 {
		swept -= dist.SecondaryAmount
	}
	if swept > 0 {
		if err := c.bank.Transfer(dist.PaymentAsset, DistributionEscrow(dist.TrancheID), t.Treasury, swept); err != nil {
			return 0, fmt.Errorf("sweep transfer: %w", err)
		}
	}

	if err := c.stores.Distributions.UpdateTotalClaimed(ctx, distributionID, dist.TotalClaimed); err != nil {
		c.logger.Printf("persist sweep on %s: %v", distributionID, err)
	}
	observability.DefaultMetrics.UnclaimedSwept.Add(float64(swept))
	c.commit(ctx, &domain.Event{
		Seq:            seq,
		Timestamp:      c.clock.NowMs(),
		Op:             domain.OpWithdrawUnclaimed,
		TrancheID:      dist.TrancheID,
		DistributionID: distributionID,
		Actor:          caller,
		Amount:         swept,
		ResultState:    c.statusOf(dist.TrancheID),
	}, start)
	return swept, nil
}

// DepositRefund moves caller's deposit into the refund escrow of a
// cancelled tranche. Cumulative.
func (c *Core) DepositRefund(ctx context.Context, caller domain.Address, trancheID string, amount uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	t, err := c.registry.Tranche(trancheID)
	if err != nil {
		return c.reject(domain.OpDepositRefund, err)
	}
	l, _ := c.registry.Ledger(trancheID)
	if c.bank.Balance(t.PaymentAsset, caller) < amount {
		return c.reject(domain.OpDepositRefund,
			fmt.Errorf("%w: %s cannot cover refund deposit of %d %s", domain.ErrInvalidState, caller, amount, t.PaymentAsset))
	}

	seq := c.seq.Next()
	if err := c.refunds.Deposit(caller, l, amount); err != nil {
		return c.reject(domain.OpDepositRefund, err)
	}
	if err := c.bank.Transfer(t.PaymentAsset, caller, RefundEscrow(trancheID), amount); err != nil {
		return fmt.Errorf("refund deposit transfer: %w", err)
	}

	c.persistRefund(ctx, trancheID)
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          domain.OpDepositRefund,
		TrancheID:   trancheID,
		Actor:       caller,
		Amount:      amount,
		ResultState: string(l.Status()),
	}, start)
	return nil
}

// ClaimRefund redeems caller's entire holding of a cancelled tranche for
// a proportional refund. Units burn before the escrow transfer.
func (c *Core) ClaimRefund(ctx context.Context, caller domain.Address, trancheID string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	t, err := c.registry.Tranche(trancheID)
	if err != nil {
		return 0, c.reject(domain.OpClaimRefund, err)
	}
	l, _ := c.registry.Ledger(trancheID)
	units := l.Balance(caller)

	seq := c.seq.Next()
	amount, err := c.refunds.Claim(caller, l, seq)
	if err != nil {
		return 0, c.reject(domain.OpClaimRefund, err)
	}
	if err := c.bank.Transfer(t.PaymentAsset, RefundEscrow(trancheID), caller, amount); err != nil {
		return 0, fmt.Errorf("refund transfer: %w", err)
	}

	c.persistRefund(ctx, trancheID)
	c.persistFunding(ctx, l, seq)
	observability.DefaultMetrics.RefundsClaimed.Add(float64(amount))
	c.commit(ctx, &domain.Event{
		Seq:         seq,
		Timestamp:   c.clock.NowMs(),
		Op:          domain.OpClaimRefund,
		TrancheID:   trancheID,
		Actor:       caller,
		Amount:      amount,
		UnitsDelta:  units,
		ResultState: string(l.Status()),
	}, start)
	return amount, nil
}

// --- commit path ---

// commit persists the event, publishes it and records metrics. Runs only
// after the operation succeeded; a storage failure here is logged, not
// rolled back, because the in-memory state is authoritative for the
// process lifetime.
func (c *Core) commit(ctx context.Context, e *domain.Event, start time.Time) {
	if err := c.stores.Events.Append(ctx, e); err != nil {
		c.logger.Printf("persist event seq=%d op=%s: %v", e.Seq, e.Op, err)
	}
	if c.publisher != nil {
		c.publisher.Publish(e)
		observability.DefaultMetrics.EventsPublished.Inc()
	}
	observability.RecordOperation(string(e.Op), time.Since(start).Seconds())
	observability.DefaultMetrics.LastSequence.Set(float64(e.Seq))
}

func (c *Core) reject(op domain.Op, err error) error {
	observability.RecordOperationError(string(op), errReason(err))
	return err
}

func (c *Core) persistFunding(ctx context.Context, l *ledger.Ledger, seq uint64) {
	if err := c.stores.Tranches.UpdateFunding(ctx, l.FundingState(seq)); err != nil {
		c.logger.Printf("persist funding of %s: %v", l.TrancheID(), err)
	}
}

func (c *Core) persistRefund(ctx context.Context, trancheID string) {
	st, ok := c.refunds.State(trancheID)
	if !ok {
		return
	}
	if err := c.stores.Refunds.Upsert(ctx, st); err != nil {
		c.logger.Printf("persist refund state of %s: %v", trancheID, err)
	}
}

func (c *Core) statusOf(trancheID string) string {
	l, err := c.registry.Ledger(trancheID)
	if err != nil {
		return ""
	}
	return string(l.Status())
}

// errReason maps a failure to its taxonomy label for metrics.
func errReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, domain.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, domain.ErrAlreadyDone):
		return "already_done"
	case errors.Is(err, domain.ErrDeadlineExceeded):
		return "deadline_exceeded"
	case errors.Is(err, domain.ErrInsufficientEffect):
		return "insufficient_effect"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}
