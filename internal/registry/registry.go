// Package registry implements the tranche factory and index: it creates
// ownership ledgers, registers their split configuration with the
// distribution engine and tracks active/inactive status across tranches.
package registry

import (
	"errors"
	"fmt"

	"revora-ledger/internal/domain"
	"revora-ledger/internal/engine"
	"revora-ledger/internal/idhash"
	"revora-ledger/internal/ledger"
)

// CreateParams carries everything needed to create a tranche.
type CreateParams struct {
	Name        string
	Symbol      string
	Description string

	FundingGoal  uint64
	UnitPrice    uint64
	PaymentAsset string
	Treasury     domain.Address

	// Config is the split configuration registered with the distribution
	// engine on creation. TrancheID is filled in by the registry.
	Config domain.TrancheConfig
}

// Registry owns the tranche index and every ownership ledger.
// Not safe for concurrent use; the core executor serializes operations.
type Registry struct {
	// operator may create tranches and toggle activity. Newly created
	// ledgers are owned by this operator until ownership is transferred.
	operator domain.Address

	// identity is the registry's own address, authorized as configurer
	// with the distribution engine.
	identity domain.Address

	engine *engine.Engine

	tranches map[string]*domain.Tranche
	ledgers  map[string]*ledger.Ledger
	order    []string
}

// New creates an empty registry. AttachEngine must be called before
// CreateTranche; the engine in turn uses the registry as its LedgerSource.
func New(operator, identity domain.Address) *Registry {
	return &Registry{
		operator: operator,
		identity: identity,
		tranches: make(map[string]*domain.Tranche),
		ledgers:  make(map[string]*ledger.Ledger),
	}
}

// Identity returns the registry's own address.
func (r *Registry) Identity() domain.Address { return r.identity }

// AttachEngine wires the distribution engine. Split configurations are
// registered through it at tranche creation.
func (r *Registry) AttachEngine(e *engine.Engine) {
	r.engine = e
}

// CreateTranche validates economics, instantiates the ownership ledger,
// registers the split configuration and indexes the tranche as active.
// Returns the new tranche record.
func (r *Registry) CreateTranche(caller domain.Address, p CreateParams, seq uint64, nowMs int64) (*domain.Tranche, error) {
	if caller != r.operator {
		return nil, fmt.Errorf("%w: caller %s may not create tranches", domain.ErrUnauthorized, caller)
	}
	if p.Name == "" || p.Symbol == "" {
		return nil, fmt.Errorf("%w: tranche name and symbol required", domain.ErrInvalidInput)
	}

	t := &domain.Tranche{
		TrancheID:    idhash.TrancheID(p.Name, p.Symbol, p.PaymentAsset, r.operator, seq),
		Name:         p.Name,
		Symbol:       p.Symbol,
		Description:  p.Description,
		FundingGoal:  p.FundingGoal,
		UnitPrice:    p.UnitPrice,
		PaymentAsset: p.PaymentAsset,
		Treasury:     p.Treasury,
		Operator:     r.operator,
		CreatedAt:    nowMs,
		CreatedSeq:   seq,
		IsActive:     true,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if _, exists := r.tranches[t.TrancheID]; exists {
		return nil, fmt.Errorf("%w: tranche %s already exists", domain.ErrAlreadyDone, t.TrancheID)
	}

	l := ledger.New(t)
	r.tranches[t.TrancheID] = t
	r.ledgers[t.TrancheID] = l
	r.order = append(r.order, t.TrancheID)

	p.Config.TrancheID = t.TrancheID
	if err := r.engine.Configure(r.identity, p.Config); err != nil {
		// Unwind: creation is all-or-nothing.
		delete(r.tranches, t.TrancheID)
		delete(r.ledgers, t.TrancheID)
		r.order = r.order[:len(r.order)-1]
		return nil, err
	}
	return t, nil
}

// DeactivateTranche halts new investment on a tranche. Fails if the
// tranche is already inactive.
func (r *Registry) DeactivateTranche(caller domain.Address, trancheID string) error {
	t, l, err := r.adminTarget(caller, trancheID)
	if err != nil {
		return err
	}
	if !t.IsActive {
		return fmt.Errorf("%w: tranche %s already inactive", domain.ErrAlreadyDone, trancheID)
	}
	t.IsActive = false
	// The registry acts with the ledger's own authority here; a funding
	// state that cannot pause (already paused, completed, closed) leaves
	// the toggle as the only effect.
	if err := l.Pause(l.Operator()); err != nil &&
		!errors.Is(err, domain.ErrAlreadyDone) && !errors.Is(err, domain.ErrInvalidState) {
		return err
	}
	return nil
}

// ReactivateTranche re-opens a deactivated tranche for investment.
// Fails if the tranche is already active.
func (r *Registry) ReactivateTranche(caller domain.Address, trancheID string) error {
	t, l, err := r.adminTarget(caller, trancheID)
	if err != nil {
		return err
	}
	if t.IsActive {
		return fmt.Errorf("%w: tranche %s already active", domain.ErrAlreadyDone, trancheID)
	}
	t.IsActive = true
	if err := l.Activate(l.Operator()); err != nil &&
		!errors.Is(err, domain.ErrAlreadyDone) && !errors.Is(err, domain.ErrInvalidState) {
		return err
	}
	return nil
}

// TransferTrancheOwnership delegates administrative control of a ledger
// to a new operator.
func (r *Registry) TransferTrancheOwnership(caller domain.Address, trancheID string, newOperator domain.Address) error {
	_, l, err := r.adminTarget(caller, trancheID)
	if err != nil {
		return err
	}
	if err := newOperator.Validate(); err != nil {
		return fmt.Errorf("new operator: %w", err)
	}
	l.SetOperator(newOperator)
	return nil
}

// Tranche returns a tranche record by id.
func (r *Registry) Tranche(trancheID string) (*domain.Tranche, error) {
	t, ok := r.tranches[trancheID]
	if !ok {
		return nil, fmt.Errorf("%w: tranche %s", domain.ErrNotFound, trancheID)
	}
	return t, nil
}

// Ledger returns a tranche's ownership ledger.
func (r *Registry) Ledger(trancheID string) (*ledger.Ledger, error) {
	l, ok := r.ledgers[trancheID]
	if !ok {
		return nil, fmt.Errorf("%w: tranche %s", domain.ErrNotFound, trancheID)
	}
	return l, nil
}

// AllTranches returns every tranche in creation order.
func (r *Registry) AllTranches() []*domain.Tranche {
	out := make([]*domain.Tranche, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.tranches[id])
	}
	return out
}

// ActiveTranches returns the tranches currently open to new investment.
func (r *Registry) ActiveTranches() []*domain.Tranche {
	var out []*domain.Tranche
	for _, id := range r.order {
		if t := r.tranches[id]; t.IsActive {
			out = append(out, t)
		}
	}
	return out
}

// TranchesCount returns the number of registered tranches.
func (r *Registry) TranchesCount() int {
	return len(r.order)
}

// --- engine.LedgerSource ---

// Compile-time interface check.
var _ engine.LedgerSource = (*Registry)(nil)

// OperatorOf returns the current controlling operator of a tranche.
func (r *Registry) OperatorOf(trancheID string) (domain.Address, error) {
	l, err := r.Ledger(trancheID)
	if err != nil {
		return "", err
	}
	return l.Operator(), nil
}

// BalanceAt returns a holder's ownership balance at or before seq.
func (r *Registry) BalanceAt(trancheID string, holder domain.Address, seq uint64) (uint64, error) {
	l, err := r.Ledger(trancheID)
	if err != nil {
		return 0, err
	}
	return l.BalanceAt(holder, seq), nil
}

// SupplyAt returns a tranche's total ownership supply at or before seq.
func (r *Registry) SupplyAt(trancheID string, seq uint64) (uint64, error) {
	l, err := r.Ledger(trancheID)
	if err != nil {
		return 0, err
	}
	return l.SupplyAt(seq), nil
}

func (r *Registry) adminTarget(caller domain.Address, trancheID string) (*domain.Tranche, *ledger.Ledger, error) {
	if caller != r.operator {
		return nil, nil, fmt.Errorf("%w: caller %s is not the registry operator", domain.ErrUnauthorized, caller)
	}
	t, ok := r.tranches[trancheID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: tranche %s", domain.ErrNotFound, trancheID)
	}
	return t, r.ledgers[trancheID], nil
}
