package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/auth"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/ledger"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/storage/memory"
)

const vaultID = "vault@domain-a"

var rate5e10 = decimal.New(5, 10)

type manualClock struct {
	now int64
}

func (c *manualClock) Now() int64 { return c.now }

func (c *manualClock) Advance(seconds int64) { c.now += seconds }

func newTestVault(t *testing.T, assets AssetTransferor) (*Vault, *ledger.Ledger, *manualClock) {
	t.Helper()

	authority := auth.NewAuthority("admin")
	require.NoError(t, authority.GrantMintBurn("admin", vaultID))

	clock := &manualClock{now: 1_000_000}
	l, err := ledger.NewLedger(context.Background(), ledger.Config{
		Domain:            "domain-a",
		Store:             memory.NewAccountStore(),
		Clock:             clock,
		Authority:         authority,
		InitialGlobalRate: rate5e10,
	})
	require.NoError(t, err)

	return NewVault(vaultID, l, assets), l, clock
}

func TestDepositCreditsLedger(t *testing.T) {
	pool := NewMemoryAssetPool(map[string]decimal.Decimal{"alice": decimal.NewFromInt(100_000)})
	v, l, _ := newTestVault(t, pool)
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, "alice", decimal.NewFromInt(100_000)))

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(100_000)))
	assert.True(t, pool.BalanceOf("alice").IsZero())

	rate, err := l.UserRate(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, rate.Equal(rate5e10), "deposit anchors at the current global rate")
}

func TestDepositWithoutAssetFails(t *testing.T) {
	pool := NewMemoryAssetPool(map[string]decimal.Decimal{"alice": decimal.NewFromInt(10)})
	v, l, _ := newTestVault(t, pool)
	ctx := context.Background()

	err := v.Deposit(ctx, "alice", decimal.NewFromInt(100))
	require.Error(t, err)

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestDepositAccrueRedeemScenario(t *testing.T) {
	pool := NewMemoryAssetPool(map[string]decimal.Decimal{"alice": decimal.NewFromInt(100_000)})
	v, l, clock := newTestVault(t, pool)
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, "alice", decimal.NewFromInt(100_000)))

	clock.Advance(3600)
	first, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, first.GreaterThan(decimal.NewFromInt(100_000)))

	clock.Advance(3600)
	second, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)

	delta1 := first.Sub(decimal.NewFromInt(100_000))
	delta2 := second.Sub(first)
	assert.True(t, delta1.Sub(delta2).Abs().LessThanOrEqual(decimal.NewFromInt(1)))

	// Custody needs the reward budget before interest can be paid out.
	pool.Fund(decimal.NewFromInt(1000))

	paid, err := v.Redeem(ctx, "alice", models.MaxAmount)
	require.NoError(t, err)
	assert.True(t, paid.Equal(second), "max redeem pays exactly the live balance")
	assert.True(t, pool.BalanceOf("alice").Equal(second))

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "max redeem zeroes the account")
}

func TestRedeemPartial(t *testing.T) {
	pool := NewMemoryAssetPool(map[string]decimal.Decimal{"alice": decimal.NewFromInt(1000)})
	v, l, _ := newTestVault(t, pool)
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, "alice", decimal.NewFromInt(1000)))

	paid, err := v.Redeem(ctx, "alice", decimal.NewFromInt(400))
	require.NoError(t, err)
	assert.True(t, paid.Equal(decimal.NewFromInt(400)))

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(600)))
	assert.True(t, pool.BalanceOf("alice").Equal(decimal.NewFromInt(400)))
}

func TestRedeemMaxOnEmptyAccount(t *testing.T) {
	pool := NewMemoryAssetPool(nil)
	v, _, _ := newTestVault(t, pool)

	_, err := v.Redeem(context.Background(), "nobody", models.MaxAmount)
	require.Error(t, err)
	assert.True(t, ledger.IsInsufficientBalance(err))
}

// tickingClock advances one second on every read, the worst case for
// operations that consult the clock more than once.
type tickingClock struct {
	now int64
}

func (c *tickingClock) Now() int64 {
	c.now++
	return c.now
}

func TestRedeemMaxZeroesUnderAdvancingClock(t *testing.T) {
	pool := NewMemoryAssetPool(map[string]decimal.Decimal{"alice": decimal.NewFromInt(100)})
	pool.Fund(decimal.NewFromInt(1_000_000))

	authority := auth.NewAuthority("admin")
	require.NoError(t, authority.GrantMintBurn("admin", vaultID))

	// 0.1 per second: every elapsed second shows up in the balance, so any
	// dust left between a balance read and the burn would be visible.
	l, err := ledger.NewLedger(context.Background(), ledger.Config{
		Domain:            "domain-a",
		Store:             memory.NewAccountStore(),
		Clock:             &tickingClock{},
		Authority:         authority,
		InitialGlobalRate: decimal.New(1, 17),
	})
	require.NoError(t, err)
	v := NewVault(vaultID, l, pool)
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, "alice", decimal.NewFromInt(100)))

	paid, err := v.Redeem(ctx, "alice", models.MaxAmount)
	require.NoError(t, err)
	assert.True(t, paid.GreaterThan(decimal.NewFromInt(100)), "payout includes the accrued interest")

	balance, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balance.IsZero(), "max redeem leaves no dust when the clock advances mid-operation")
}

// brokenPayout accepts deposits but fails every payout.
type brokenPayout struct {
	*MemoryAssetPool
}

func (b brokenPayout) Push(ctx context.Context, holder string, amount decimal.Decimal) error {
	return errors.New("asset transfer reverted")
}

func TestFailedPayoutCompensatesBurn(t *testing.T) {
	pool := NewMemoryAssetPool(map[string]decimal.Decimal{"alice": decimal.NewFromInt(1000)})
	v, l, clock := newTestVault(t, brokenPayout{pool})
	ctx := context.Background()

	require.NoError(t, v.Deposit(ctx, "alice", decimal.NewFromInt(1000)))
	rateBefore, err := l.UserRate(ctx, "alice")
	require.NoError(t, err)
	clock.Advance(3600)

	balanceBefore, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)

	_, err = v.Redeem(ctx, "alice", decimal.NewFromInt(500))
	require.Error(t, err)
	assert.True(t, IsTransferFailed(err))

	// Burned but unpaid is unacceptable: the credits are back in place.
	balanceAfter, err := l.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, balanceAfter.Equal(balanceBefore), "balance %s must be restored to %s", balanceAfter, balanceBefore)

	rateAfter, err := l.UserRate(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, rateAfter.Equal(rateBefore), "compensation keeps the prior rate")
}
