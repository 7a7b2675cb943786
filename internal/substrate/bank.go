package substrate

import (
	"fmt"
	"sync"

	"revora-ledger/internal/domain"
)

// MemoryBank is an in-memory Bank for local mode and tests.
type MemoryBank struct {
	mu       sync.Mutex
	balances map[string]map[domain.Address]uint64 // asset -> account -> balance
}

// NewMemoryBank creates an empty in-memory bank.
func NewMemoryBank() *MemoryBank {
	return &MemoryBank{
		balances: make(map[string]map[domain.Address]uint64),
	}
}

// Compile-time interface check.
var _ Bank = (*MemoryBank)(nil)

// Mint credits amount of asset to account out of thin air. Test setup only.
func (b *MemoryBank) Mint(asset string, account domain.Address, amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts(asset)[account] += amount
}

// Transfer moves amount of asset from one account to another, atomically.
func (b *MemoryBank) Transfer(asset string, from, to domain.Address, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: zero transfer amount", domain.ErrInvalidInput)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	accounts := b.accounts(asset)
	if accounts[from] < amount {
		return fmt.Errorf("%w: account %s holds %d %s, needs %d",
			domain.ErrInvalidState, from, accounts[from], asset, amount)
	}
	accounts[from] -= amount
	accounts[to] += amount
	return nil
}

// Balance returns the current balance of account in asset.
func (b *MemoryBank) Balance(asset string, account domain.Address) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accounts(asset)[account]
}

func (b *MemoryBank) accounts(asset string) map[domain.Address]uint64 {
	m, ok := b.balances[asset]
	if !ok {
		m = make(map[domain.Address]uint64)
		b.balances[asset] = m
	}
	return m
}
