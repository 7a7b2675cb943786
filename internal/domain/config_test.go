package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() TrancheConfig {
	return TrancheConfig{
		TrancheID:      "t1",
		RevoraShareBps: 1000,
		ClaimPeriod:    30 * 24 * time.Hour,
	}
}

func TestTrancheConfig_Validate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	cfg = validConfig()
	cfg.RevoraShareBps = 10001
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = validConfig()
	cfg.TimeBonusBps = 20000
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)

	cfg = validConfig()
	cfg.ClaimPeriod = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidInput)
}

func TestTrancheConfig_EffectiveBps(t *testing.T) {
	cfg := TrancheConfig{
		RevoraShareBps:       1000,
		MinInvestmentPeriod:  30 * 24 * time.Hour,
		TimeBonusBps:         200,
		PerformanceThreshold: 50_000,
		PerformanceBonusBps:  500,
		ClaimPeriod:          7 * 24 * time.Hour,
	}

	// No bonuses.
	assert.Equal(t, uint32(1000), cfg.EffectiveBps(time.Hour, 10_000))

	// Time bonus only.
	assert.Equal(t, uint32(1200), cfg.EffectiveBps(31*24*time.Hour, 10_000))

	// Performance bonus only: profit 60,000 >= threshold 50,000.
	assert.Equal(t, uint32(1500), cfg.EffectiveBps(time.Hour, 60_000))

	// Both.
	assert.Equal(t, uint32(1700), cfg.EffectiveBps(31*24*time.Hour, 60_000))
}

func TestTrancheConfig_EffectiveBps_Clamped(t *testing.T) {
	cfg := TrancheConfig{
		RevoraShareBps:       9800,
		MinInvestmentPeriod:  time.Hour,
		TimeBonusBps:         300,
		PerformanceThreshold: 1,
		PerformanceBonusBps:  300,
		ClaimPeriod:          time.Hour,
	}
	assert.Equal(t, uint32(BpsDenominator), cfg.EffectiveBps(2*time.Hour, 100))
}

func TestTrancheConfig_EffectiveBps_DisabledBonuses(t *testing.T) {
	// A bonus requires both its fields set; half-configured bonuses stay off.
	cfg := TrancheConfig{RevoraShareBps: 1000, TimeBonusBps: 500, ClaimPeriod: time.Hour}
	assert.Equal(t, uint32(1000), cfg.EffectiveBps(1000*time.Hour, 0))

	cfg = TrancheConfig{RevoraShareBps: 1000, PerformanceThreshold: 10, ClaimPeriod: time.Hour}
	assert.Equal(t, uint32(1000), cfg.EffectiveBps(0, 1_000_000))
}
