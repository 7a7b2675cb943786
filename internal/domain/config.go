package domain

import (
	"fmt"
	"time"
)

// TrancheConfig is the per-tranche revenue-split configuration. Set once
// before any distribution; re-settable by the same configuring authority.
type TrancheConfig struct {
	TrancheID string

	// RevoraShareBps is the base split to the secondary beneficiary.
	RevoraShareBps uint32

	// MinInvestmentPeriod and TimeBonusBps together enable the time bonus:
	// if elapsed time since the investment-start checkpoint is at least
	// MinInvestmentPeriod, TimeBonusBps is added to the split.
	MinInvestmentPeriod time.Duration
	TimeBonusBps        uint32

	// PerformanceThreshold and PerformanceBonusBps together enable the
	// performance bonus: if a distribution's profit amount reaches the
	// threshold, PerformanceBonusBps is added to the split.
	PerformanceThreshold uint64
	PerformanceBonusBps  uint32

	// ClaimPeriod is how long holders may claim after a distribution.
	ClaimPeriod time.Duration

	IsConfigured bool
}

// Validate checks bps ranges and the claim period.
func (c *TrancheConfig) Validate() error {
	if !ValidBps(c.RevoraShareBps) {
		return fmt.Errorf("%w: revora share %d bps out of range", ErrInvalidInput, c.RevoraShareBps)
	}
	if !ValidBps(c.TimeBonusBps) {
		return fmt.Errorf("%w: time bonus %d bps out of range", ErrInvalidInput, c.TimeBonusBps)
	}
	if !ValidBps(c.PerformanceBonusBps) {
		return fmt.Errorf("%w: performance bonus %d bps out of range", ErrInvalidInput, c.PerformanceBonusBps)
	}
	if c.ClaimPeriod <= 0 {
		return fmt.Errorf("%w: claim period must be positive", ErrInvalidInput)
	}
	return nil
}

// EffectiveBps computes the bonus-adjusted split for one distribution.
// elapsed is the wall-clock duration since the investment-start checkpoint.
// The combined share is clamped at 10000 bps.
func (c *TrancheConfig) EffectiveBps(elapsed time.Duration, profitAmount uint64) uint32 {
	bps := c.RevoraShareBps
	if c.MinInvestmentPeriod > 0 && c.TimeBonusBps > 0 && elapsed >= c.MinInvestmentPeriod {
		bps += c.TimeBonusBps
	}
	if c.PerformanceThreshold > 0 && c.PerformanceBonusBps > 0 && profitAmount >= c.PerformanceThreshold {
		bps += c.PerformanceBonusBps
	}
	if bps > BpsDenominator {
		bps = BpsDenominator
	}
	return bps
}
