package core

import (
	"revora-ledger/internal/domain"
)

// TrancheView pairs a tranche record with its live funding state, for the
// read API.
type TrancheView struct {
	Tranche *domain.Tranche
	Funding domain.FundingState
}

// RefundView is a holder's view of a tranche's refund state.
type RefundView struct {
	State     domain.RefundState
	Available bool
	Amount    uint64
}

// AllTranches returns every tranche with its funding state, in creation
// order.
func (c *Core) AllTranches() []TrancheView {
	c.mu.Lock()
	defer c.mu.Unlock()

	tranches := c.registry.AllTranches()
	out := make([]TrancheView, 0, len(tranches))
	for _, t := range tranches {
		out = append(out, c.viewOf(t))
	}
	return out
}

// ActiveTranches returns the tranches currently listed for investment.
func (c *Core) ActiveTranches() []TrancheView {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []TrancheView
	for _, t := range c.registry.ActiveTranches() {
		out = append(out, c.viewOf(t))
	}
	return out
}

// Tranche returns one tranche with its funding state.
func (c *Core) Tranche(trancheID string) (TrancheView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := c.registry.Tranche(trancheID)
	if err != nil {
		return TrancheView{}, err
	}
	return c.viewOf(t), nil
}

// Balance returns holder's current ownership units on a tranche.
func (c *Core) Balance(trancheID string, holder domain.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, err := c.registry.Ledger(trancheID)
	if err != nil {
		return 0, err
	}
	return l.Balance(holder), nil
}

// Distributions returns a tranche's distributions in creation order.
func (c *Core) Distributions(trancheID string) ([]*domain.Distribution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.registry.Tranche(trancheID); err != nil {
		return nil, err
	}
	ids := c.engine.DistributionsOf(trancheID)
	out := make([]*domain.Distribution, 0, len(ids))
	for _, id := range ids {
		if d, ok := c.engine.Distribution(id); ok {
			out = append(out, d)
		}
	}
	return out, nil
}

// Distribution returns one distribution record.
func (c *Core) Distribution(distributionID string) (*domain.Distribution, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d, ok := c.engine.Distribution(distributionID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return d, nil
}

// Claimable returns what holder could claim on a distribution right now.
// Zero for unknown ids, claimed holders and passed deadlines.
func (c *Core) Claimable(distributionID string, holder domain.Address) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine.ClaimableAmount(distributionID, holder)
}

// Refund returns holder's view of a tranche's refund state.
func (c *Core) Refund(trancheID string, holder domain.Address) (RefundView, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, err := c.registry.Ledger(trancheID)
	if err != nil {
		return RefundView{}, err
	}
	st, _ := c.refunds.State(trancheID)
	return RefundView{
		State:     st,
		Available: c.refunds.Available(l),
		Amount:    c.refunds.Amount(holder, l),
	}, nil
}

// CurrentSeq returns the most recently issued sequence number.
func (c *Core) CurrentSeq() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq.Current()
}

func (c *Core) viewOf(t *domain.Tranche) TrancheView {
	l, _ := c.registry.Ledger(t.TrancheID)
	return TrancheView{
		Tranche: t,
		Funding: l.FundingState(c.seq.Current()),
	}
}
