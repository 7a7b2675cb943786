package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"revora-ledger/internal/domain"
)

var (
	operator   = domain.Address("operator")
	configurer = domain.Address("registry")
	alice      = domain.Address("alice")
	bob        = domain.Address("bob")
)

// fakeClock is a manually advanced substrate clock.
type fakeClock struct {
	now int64
}

func (c *fakeClock) NowMs() int64 { return c.now }

// fakeLedgers is a canned LedgerSource.
type fakeLedgers struct {
	operators map[string]domain.Address
	balances  map[string]map[domain.Address]uint64
	supplies  map[string]uint64
}

func (f *fakeLedgers) OperatorOf(trancheID string) (domain.Address, error) {
	op, ok := f.operators[trancheID]
	if !ok {
		return "", fmt.Errorf("%w: tranche %s", domain.ErrNotFound, trancheID)
	}
	return op, nil
}

func (f *fakeLedgers) BalanceAt(trancheID string, holder domain.Address, _ uint64) (uint64, error) {
	return f.balances[trancheID][holder], nil
}

func (f *fakeLedgers) SupplyAt(trancheID string, _ uint64) (uint64, error) {
	return f.supplies[trancheID], nil
}

// newFixture builds an engine over a funded 100,000-unit tranche:
// alice holds 60%, bob holds 40%, 10% base split, no bonuses.
func newFixture(t *testing.T) (*Engine, *fakeClock, *fakeLedgers) {
	t.Helper()

	const scale = domain.UnitScale
	ledgers := &fakeLedgers{
		operators: map[string]domain.Address{"t1": operator},
		balances: map[string]map[domain.Address]uint64{
			"t1": {alice: 60_000 * scale, bob: 40_000 * scale},
		},
		supplies: map[string]uint64{"t1": 100_000 * scale},
	}
	clock := &fakeClock{now: 1_700_000_000_000}
	eng := New(ledgers, clock, configurer)

	require.NoError(t, eng.Configure(configurer, domain.TrancheConfig{
		TrancheID:      "t1",
		RevoraShareBps: 1000,
		ClaimPeriod:    30 * 24 * time.Hour,
	}))
	return eng, clock, ledgers
}

func TestConfigure_Authorization(t *testing.T) {
	eng, _, _ := newFixture(t)

	cfg := domain.TrancheConfig{TrancheID: "t1", RevoraShareBps: 500, ClaimPeriod: time.Hour}
	assert.ErrorIs(t, eng.Configure(alice, cfg), domain.ErrUnauthorized)

	// Operator and configurer may both (re-)configure; last write wins.
	require.NoError(t, eng.Configure(operator, cfg))
	got, ok := eng.Config("t1")
	require.True(t, ok)
	assert.Equal(t, uint32(500), got.RevoraShareBps)
	assert.True(t, got.IsConfigured)
}

func TestConfigure_Validation(t *testing.T) {
	eng, _, _ := newFixture(t)

	err := eng.Configure(operator, domain.TrancheConfig{TrancheID: "t1", RevoraShareBps: 10001, ClaimPeriod: time.Hour})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	err = eng.Configure(operator, domain.TrancheConfig{TrancheID: "t1", RevoraShareBps: 100})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "zero claim period")
}

func TestCreateDistribution_BaseSplit(t *testing.T) {
	eng, clock, _ := newFixture(t)

	dist, err := eng.CreateDistribution(operator, "t1", "USDC", 10_000, 0, clock.now, 50)
	require.NoError(t, err)

	// 10% base split, no bonuses.
	assert.Equal(t, uint64(1_000), dist.SecondaryAmount)
	assert.Equal(t, uint64(9_000), dist.TrancheAmount)
	assert.Equal(t, dist.TotalAmount, dist.TrancheAmount+dist.SecondaryAmount)
	assert.Equal(t, uint32(1000), dist.EffectiveBps)
	assert.Equal(t, uint64(49), dist.SnapshotSeq, "snapshot excludes the triggering operation")

	// Proportional claims: 60% and 40% of the tranche amount.
	assert.Equal(t, uint64(5_400), eng.ClaimableAmount(dist.DistributionID, alice))
	assert.Equal(t, uint64(3_600), eng.ClaimableAmount(dist.DistributionID, bob))
}

func TestCreateDistribution_PerformanceBonus(t *testing.T) {
	eng, clock, _ := newFixture(t)
	require.NoError(t, eng.Configure(operator, domain.TrancheConfig{
		TrancheID:            "t1",
		RevoraShareBps:       1000,
		PerformanceThreshold: 50_000,
		PerformanceBonusBps:  500,
		ClaimPeriod:          30 * 24 * time.Hour,
	}))

	// Profit 60,000 >= threshold 50,000: 10% + 5%.
	dist, err := eng.CreateDistribution(operator, "t1", "USDC", 10_000, 60_000, clock.now, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500), dist.SecondaryAmount)
	assert.Equal(t, uint64(8_500), dist.TrancheAmount)
}

func TestCreateDistribution_TimeBonus(t *testing.T) {
	eng, clock, _ := newFixture(t)
	require.NoError(t, eng.Configure(operator, domain.TrancheConfig{
		TrancheID:           "t1",
		RevoraShareBps:      1000,
		MinInvestmentPeriod: 30 * 24 * time.Hour,
		TimeBonusBps:        200,
		ClaimPeriod:         7 * 24 * time.Hour,
	}))

	start := clock.now
	clock.now += (31 * 24 * time.Hour).Milliseconds()

	dist, err := eng.CreateDistribution(operator, "t1", "USDC", 10_000, 0, start, 50)
	require.NoError(t, err)
	assert.Equal(t, uint32(1200), dist.EffectiveBps)
	assert.Equal(t, uint64(1_200), dist.SecondaryAmount)
}

func TestCreateDistribution_Guards(t *testing.T) {
	eng, clock, ledgers := newFixture(t)

	_, err := eng.CreateDistribution(alice, "t1", "USDC", 10_000, 0, clock.now, 50)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = eng.CreateDistribution(operator, "t1", "USDC", 0, 0, clock.now, 50)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	// Unconfigured tranche.
	ledgers.operators["t2"] = operator
	_, err = eng.CreateDistribution(operator, "t2", "USDC", 10_000, 0, clock.now, 50)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// No ownership outstanding at the snapshot.
	ledgers.supplies["t1"] = 0
	_, err = eng.CreateDistribution(operator, "t1", "USDC", 10_000, 0, clock.now, 50)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestClaim_MarksBeforePayoutAndRejectsSecond(t *testing.T) {
	eng, clock, _ := newFixture(t)
	dist, err := eng.CreateDistribution(operator, "t1", "USDC", 10_000, 0, clock.now, 50)
	require.NoError(t, err)

	amount, err := eng.Claim(alice, dist.DistributionID, 51)
	require.NoError(t, err)
	assert.Equal(t, uint64(5_400), amount)
	assert.True(t, eng.HasClaimed(dist.DistributionID, alice))
	assert.Equal(t, uint64(5_400), dist.TotalClaimed)

	// Second claim transfers nothing.
	_, err = eng.Claim(alice, dist.DistributionID, 52)
	assert.ErrorIs(t, err, domain.ErrAlreadyDone)
	assert.Equal(t, uint64(5_400), dist.TotalClaimed)

	// Claimable view mirrors the claimed state.
	assert.Equal(t, uint64(0), eng.ClaimableAmount(dist.DistributionID, alice))
}

func TestClaim_Guards(t *testing.T) {
	eng, clock, _ := newFixture(t)
	dist, err := eng.CreateDistribution(operator, "t1", "USDC", 10_000, 0, clock.now, 50)
	require.NoError(t, err)

	_, err = eng.Claim(alice, "no-such-distribution", 51)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Holder with no snapshot balance has nothing to claim.
	_, err = eng.Claim(domain.Address("stranger"), dist.DistributionID, 51)
	assert.ErrorIs(t, err, domain.ErrInsufficientEffect)

	// Past the deadline.
	clock.now = dist.ClaimDeadline + 1
	_, err = eng.Claim(alice, dist.DistributionID, 52)
	assert.ErrorIs(t, err, domain.ErrDeadlineExceeded)
	assert.Equal(t, uint64(0), eng.ClaimableAmount(dist.DistributionID, alice))
}

func TestClaims_NeverOverpay(t *testing.T) {
	eng, clock, ledgers := newFixture(t)

	// Awkward proportions force truncation.
	const scale = domain.UnitScale
	ledgers.balances["t1"] = map[domain.Address]uint64{
		alice: 1 * scale, bob: 2 * scale, "carol": 4 * scale,
	}
	ledgers.supplies["t1"] = 7 * scale

	dist, err := eng.CreateDistribution(operator, "t1", "USDC", 10_000, 0, clock.now, 50)
	require.NoError(t, err)

	var total uint64
	for _, holder := range []domain.Address{alice, bob, "carol"} {
		amount, err := eng.Claim(holder, dist.DistributionID, 51)
		require.NoError(t, err)
		total += amount
	}
	assert.LessOrEqual(t, total, dist.TrancheAmount, "rounding favors the ledger")
	assert.Equal(t, total, dist.TotalClaimed)
}

func TestWithdrawUnclaimed(t *testing.T) {
	eng, clock, _ := newFixture(t)
	dist, err := eng.CreateDistribution(operator, "t1", "USDC", 10_000, 0, clock.now, 50)
	require.NoError(t, err)

	_, err = eng.Claim(alice, dist.DistributionID, 51)
	require.NoError(t, err)

	// Window still open.
	_, err = eng.WithdrawUnclaimed(operator, dist.DistributionID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	clock.now = dist.ClaimDeadline + 1

	_, err = eng.WithdrawUnclaimed(alice, dist.DistributionID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	remainder, err := eng.WithdrawUnclaimed(operator, dist.DistributionID)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000-5_400), remainder)
	assert.Equal(t, dist.TotalAmount, dist.TotalClaimed, "distribution closed to further claims")

	_, err = eng.WithdrawUnclaimed(operator, dist.DistributionID)
	assert.ErrorIs(t, err, domain.ErrAlreadyDone)
}

func TestSecondaryLedgerShares(t *testing.T) {
	eng, clock, ledgers := newFixture(t)

	// A secondary-beneficiary ledger whose holders split the secondary cut.
	const scale = domain.UnitScale
	ledgers.operators["revora-staking"] = configurer
	ledgers.balances["revora-staking"] = map[domain.Address]uint64{bob: 10 * scale}
	ledgers.supplies["revora-staking"] = 10 * scale
	eng.SetSecondaryLedger("revora-staking")

	dist, err := eng.CreateDistribution(operator, "t1", "USDC", 10_000, 0, clock.now, 50)
	require.NoError(t, err)
	assert.Equal(t, uint64(10*scale), dist.SecondarySupplyAtSnapshot)

	// Bob: 40% of the 9,000 tranche amount plus all of the 1,000 secondary.
	assert.Equal(t, uint64(3_600+1_000), eng.ClaimableAmount(dist.DistributionID, bob))
	assert.Equal(t, uint64(5_400), eng.ClaimableAmount(dist.DistributionID, alice))
}

func TestDistributionsOf(t *testing.T) {
	eng, clock, _ := newFixture(t)

	d1, err := eng.CreateDistribution(operator, "t1", "USDC", 10_000, 0, clock.now, 50)
	require.NoError(t, err)
	d2, err := eng.CreateDistribution(operator, "t1", "USDC", 20_000, 0, clock.now, 60)
	require.NoError(t, err)

	ids := eng.DistributionsOf("t1")
	assert.Equal(t, []string{d1.DistributionID, d2.DistributionID}, ids)
	assert.Empty(t, eng.DistributionsOf("t2"))
}
