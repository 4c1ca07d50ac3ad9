package vault

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryAssetPool is an in-memory AssetTransferor used by tests and
// single-process demos. Real deployments adapt the actual base-asset
// custody behind the same interface.
type MemoryAssetPool struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
	custody  decimal.Decimal
}

// NewMemoryAssetPool seeds holders with base-asset balances.
func NewMemoryAssetPool(balances map[string]decimal.Decimal) *MemoryAssetPool {
	b := make(map[string]decimal.Decimal, len(balances))
	for holder, amount := range balances {
		b[holder] = amount
	}
	return &MemoryAssetPool{balances: b, custody: decimal.Zero}
}

// Pull moves the asset from the holder into custody.
func (p *MemoryAssetPool) Pull(ctx context.Context, holder string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	have := p.balances[holder]
	if have.LessThan(amount) {
		return fmt.Errorf("holder %s has %s of the base asset, needs %s", holder, have, amount)
	}
	p.balances[holder] = have.Sub(amount)
	p.custody = p.custody.Add(amount)
	return nil
}

// Push pays the asset out of custody to the holder.
func (p *MemoryAssetPool) Push(ctx context.Context, holder string, amount decimal.Decimal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.custody.LessThan(amount) {
		return fmt.Errorf("custody holds %s of the base asset, needs %s", p.custody, amount)
	}
	p.custody = p.custody.Sub(amount)
	p.balances[holder] = p.balances[holder].Add(amount)
	return nil
}

// Fund adds base asset straight into custody. Interest makes redemptions
// exceed what deposits pulled in, so someone has to keep custody topped up
// with the reward budget.
func (p *MemoryAssetPool) Fund(amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.custody = p.custody.Add(amount)
}

// BalanceOf returns a holder's base-asset balance.
func (p *MemoryAssetPool) BalanceOf(holder string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.balances[holder]
}
