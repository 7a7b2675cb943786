// Package main runs end-to-end lifecycle walkthroughs against an
// in-memory stack: funding and split, performance bonus, cancellation
// and refund. Useful as a smoke test and as living documentation of the
// money flows.
package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mr-tron/base58"

	"revora-ledger/internal/core"
	"revora-ledger/internal/domain"
	"revora-ledger/internal/registry"
	"revora-ledger/internal/storage/memory"
	"revora-ledger/internal/substrate"
)

const asset = "USDC"

func main() {
	verbose := flag.Bool("verbose", true, "Print every step")
	flag.Parse()

	logger := log.New(os.Stdout, "[scenario] ", log.LstdFlags)
	if !*verbose {
		logger.SetOutput(os.Stderr)
	}

	if err := run(context.Background(), logger); err != nil {
		logger.Fatalf("Scenario failed: %v", err)
	}
	logger.Println("All scenarios passed")
}

type world struct {
	core *core.Core
	bank *substrate.MemoryBank

	operator domain.Address
	treasury domain.Address
	platform domain.Address
	alice    domain.Address
	bob      domain.Address
}

func newWorld(logger *log.Logger) *world {
	w := &world{
		bank:     substrate.NewMemoryBank(),
		operator: keyAddress(1),
		treasury: keyAddress(2),
		platform: keyAddress(3),
		alice:    keyAddress(4),
		bob:      keyAddress(5),
	}
	w.core = core.New(
		core.Config{Operator: w.operator, PlatformTreasury: w.platform},
		w.bank, substrate.SystemClock{}, 1,
		core.Stores{
			Tranches:      memory.NewTrancheStore(),
			Distributions: memory.NewDistributionStore(),
			Refunds:       memory.NewRefundStore(),
			Events:        memory.NewEventStore(),
		},
		logger,
	)
	return w
}

func keyAddress(seed byte) domain.Address {
	priv := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	return domain.Address(base58.Encode(priv.Public().(ed25519.PublicKey)))
}

func run(ctx context.Context, logger *log.Logger) error {
	if err := fundingAndSplit(ctx, logger); err != nil {
		return fmt.Errorf("funding and split: %w", err)
	}
	if err := performanceBonus(ctx, logger); err != nil {
		return fmt.Errorf("performance bonus: %w", err)
	}
	if err := cancellationRefund(ctx, logger); err != nil {
		return fmt.Errorf("cancellation refund: %w", err)
	}
	return nil
}

// fundingAndSplit: goal 100,000 at unit price 1, two investors at
// 60,000 and 40,000; a 10,000 revenue event with a 10% base split pays
// 1,000 to the platform and leaves 5,400 and 3,600 claimable.
func fundingAndSplit(ctx context.Context, logger *log.Logger) error {
	w := newWorld(logger)
	t, err := w.core.CreateTranche(ctx, w.operator, registry.CreateParams{
		Name:         "Funding and split",
		Symbol:       "FAS",
		FundingGoal:  100_000,
		UnitPrice:    1,
		PaymentAsset: asset,
		Treasury:     w.treasury,
		Config: domain.TrancheConfig{
			RevoraShareBps: 1_000,
			ClaimPeriod:    90 * 24 * time.Hour,
		},
	})
	if err != nil {
		return err
	}

	w.bank.Mint(asset, w.alice, 60_000)
	w.bank.Mint(asset, w.bob, 40_000)
	if _, _, err := w.core.Invest(ctx, w.alice, t.TrancheID, 60_000); err != nil {
		return err
	}
	if _, _, err := w.core.Invest(ctx, w.bob, t.TrancheID, 40_000); err != nil {
		return err
	}
	logger.Printf("Funded %s: raised=%d", t.TrancheID, w.bank.Balance(asset, w.treasury))

	w.bank.Mint(asset, w.operator, 10_000)
	dist, err := w.core.CreateDistribution(ctx, w.operator, t.TrancheID, 10_000, 0, 0)
	if err != nil {
		return err
	}
	if err := expect("secondary amount", dist.SecondaryAmount, 1_000); err != nil {
		return err
	}
	if err := expect("tranche amount", dist.TrancheAmount, 9_000); err != nil {
		return err
	}

	aliceShare, err := w.core.Claim(ctx, w.alice, dist.DistributionID)
	if err != nil {
		return err
	}
	bobShare, err := w.core.Claim(ctx, w.bob, dist.DistributionID)
	if err != nil {
		return err
	}
	if err := expect("alice claim", aliceShare, 5_400); err != nil {
		return err
	}
	if err := expect("bob claim", bobShare, 3_600); err != nil {
		return err
	}
	logger.Printf("Distribution %s: platform=%d alice=%d bob=%d",
		dist.DistributionID, dist.SecondaryAmount, aliceShare, bobShare)
	return nil
}

// performanceBonus: 10% base plus a 5% bonus at a 50,000 profit
// threshold; 60,000 profit on a 10,000 revenue event yields a 1,500
// secondary amount.
func performanceBonus(ctx context.Context, logger *log.Logger) error {
	w := newWorld(logger)
	t, err := w.core.CreateTranche(ctx, w.operator, registry.CreateParams{
		Name:         "Performance bonus",
		Symbol:       "PRF",
		FundingGoal:  100_000,
		UnitPrice:    1,
		PaymentAsset: asset,
		Treasury:     w.treasury,
		Config: domain.TrancheConfig{
			RevoraShareBps:       1_000,
			PerformanceThreshold: 50_000,
			PerformanceBonusBps:  500,
			ClaimPeriod:          90 * 24 * time.Hour,
		},
	})
	if err != nil {
		return err
	}

	w.bank.Mint(asset, w.alice, 100_000)
	if _, _, err := w.core.Invest(ctx, w.alice, t.TrancheID, 100_000); err != nil {
		return err
	}

	w.bank.Mint(asset, w.operator, 10_000)
	dist, err := w.core.CreateDistribution(ctx, w.operator, t.TrancheID, 10_000, 60_000, 0)
	if err != nil {
		return err
	}
	if err := expect("secondary amount", dist.SecondaryAmount, 1_500); err != nil {
		return err
	}
	logger.Printf("Distribution %s: effectiveBps=%d secondary=%d",
		dist.DistributionID, dist.EffectiveBps, dist.SecondaryAmount)
	return nil
}

// cancellationRefund: a single 50,000 investment, cancellation, a full
// 50,000 refund deposit, then one claimant redeems exactly 50,000 and
// holds zero units.
func cancellationRefund(ctx context.Context, logger *log.Logger) error {
	w := newWorld(logger)
	t, err := w.core.CreateTranche(ctx, w.operator, registry.CreateParams{
		Name:         "Cancellation refund",
		Symbol:       "CXL",
		FundingGoal:  100_000,
		UnitPrice:    1,
		PaymentAsset: asset,
		Treasury:     w.treasury,
		Config: domain.TrancheConfig{
			RevoraShareBps: 1_000,
			ClaimPeriod:    90 * 24 * time.Hour,
		},
	})
	if err != nil {
		return err
	}

	w.bank.Mint(asset, w.alice, 50_000)
	if _, _, err := w.core.Invest(ctx, w.alice, t.TrancheID, 50_000); err != nil {
		return err
	}
	if err := w.core.MarkCancelled(ctx, w.operator, t.TrancheID); err != nil {
		return err
	}

	w.bank.Mint(asset, w.operator, 50_000)
	if err := w.core.DepositRefund(ctx, w.operator, t.TrancheID, 50_000); err != nil {
		return err
	}

	refunded, err := w.core.ClaimRefund(ctx, w.alice, t.TrancheID)
	if err != nil {
		return err
	}
	if err := expect("refund", refunded, 50_000); err != nil {
		return err
	}
	units, err := w.core.Balance(t.TrancheID, w.alice)
	if err != nil {
		return err
	}
	if err := expect("remaining units", units, 0); err != nil {
		return err
	}
	logger.Printf("Refund on %s: amount=%d", t.TrancheID, refunded)
	return nil
}

func expect(what string, got, want uint64) error {
	if got != want {
		return fmt.Errorf("%s: got %d, want %d", what, got, want)
	}
	return nil
}
