package idhash

import (
	"testing"

	"revora-ledger/internal/domain"
)

func TestTrancheID(t *testing.T) {
	op := domain.Address("5K3xJ9mQ")

	id1 := TrancheID("Series A", "SRA", "USDC", op, 7)
	id2 := TrancheID("Series A", "SRA", "USDC", op, 7)
	if id1 != id2 {
		t.Errorf("same inputs must produce same id: %s != %s", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("expected 64-char hex id, got %d chars", len(id1))
	}

	id3 := TrancheID("Series A", "SRA", "USDC", op, 8)
	if id1 == id3 {
		t.Error("different sequence must produce different id")
	}
}

func TestDistributionID(t *testing.T) {
	id1 := DistributionID("tranche-a", "USDC", 10_000, 42)
	id2 := DistributionID("tranche-a", "USDC", 10_000, 42)
	if id1 != id2 {
		t.Errorf("same inputs must produce same id: %s != %s", id1, id2)
	}

	id3 := DistributionID("tranche-a", "USDC", 10_000, 43)
	if id1 == id3 {
		t.Error("different sequence must produce different id")
	}
	id4 := DistributionID("tranche-b", "USDC", 10_000, 42)
	if id1 == id4 {
		t.Error("different tranche must produce different id")
	}
}
