// Package vault is the thin deposit/redeem wrapper that exchanges a base
// asset for ledger credits. It owns no accrual logic; it only sequences
// asset custody against ledger mint/burn.
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/ledger"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
)

// TransferFailedError is returned when the base-asset payout on a redeem
// fails. The ledger-side burn is compensated before this is returned, so
// the caller never observes a burned-but-unpaid state.
type TransferFailedError struct {
	Holder string
	Amount decimal.Decimal
	Cause  error
}

func (e *TransferFailedError) Error() string {
	return fmt.Sprintf("asset payout of %s to %s failed: %v", e.Amount, e.Holder, e.Cause)
}

func (e *TransferFailedError) Unwrap() error { return e.Cause }

// IsTransferFailed reports whether err is a failed asset payout.
func IsTransferFailed(err error) bool {
	var e *TransferFailedError
	return errors.As(err, &e)
}

// AssetTransferor moves the base asset between holders and vault custody.
type AssetTransferor interface {
	// Pull takes amount of the base asset from the holder into custody.
	Pull(ctx context.Context, holder string, amount decimal.Decimal) error
	// Push pays amount of the base asset out of custody to the holder.
	Push(ctx context.Context, holder string, amount decimal.Decimal) error
}

// Vault converts the base asset into ledger credits and back, one-to-one.
// Its identity must hold the ledger's mint/burn capability.
type Vault struct {
	identity string
	ledger   *ledger.Ledger
	assets   AssetTransferor
}

// NewVault creates a vault calling the ledger as identity.
func NewVault(identity string, l *ledger.Ledger, assets AssetTransferor) *Vault {
	return &Vault{identity: identity, ledger: l, assets: assets}
}

// Deposit pulls the base asset from the holder and credits the same amount
// of principal, anchored at the current global rate.
func (v *Vault) Deposit(ctx context.Context, holder string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("deposit amount %s is not positive", amount)
	}
	if err := v.assets.Pull(ctx, holder, amount); err != nil {
		return fmt.Errorf("pull asset from %s: %w", holder, err)
	}
	if err := v.ledger.Mint(ctx, v.identity, holder, amount); err != nil {
		// Hand the asset back; the credit never happened.
		if pushErr := v.assets.Push(ctx, holder, amount); pushErr != nil {
			return fmt.Errorf("mint failed (%v) and asset return failed: %w", err, pushErr)
		}
		return fmt.Errorf("mint for %s: %w", holder, err)
	}
	return nil
}

// Redeem burns ledger credits and pays out the same amount of the base
// asset. The MaxAmount sentinel redeems the holder's full live balance.
// If the payout fails the burn is compensated at the holder's prior rate
// and a TransferFailedError is returned: redemption is all or nothing.
func (v *Vault) Redeem(ctx context.Context, holder string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() && !amount.Equal(models.MaxAmount) {
		return decimal.Zero, fmt.Errorf("redeem amount %s is not positive", amount)
	}
	if amount.Equal(models.MaxAmount) {
		live, err := v.ledger.BalanceOf(ctx, holder)
		if err != nil {
			return decimal.Zero, fmt.Errorf("read balance of %s: %w", holder, err)
		}
		if live.IsZero() {
			return decimal.Zero, &ledger.InsufficientBalanceError{Account: holder, Available: live, Requested: live}
		}
	}

	rate, err := v.ledger.UserRate(ctx, holder)
	if err != nil {
		return decimal.Zero, fmt.Errorf("read rate of %s: %w", holder, err)
	}

	// The sentinel is passed through so the burn resolves the live balance
	// at its own settlement instant; resolving it here first would leave
	// dust accrued between the read and the burn.
	paid, err := v.ledger.Burn(ctx, v.identity, holder, amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("burn for %s: %w", holder, err)
	}
	if err := v.assets.Push(ctx, holder, paid); err != nil {
		// Checks-effects-interactions: the burn already committed, so the
		// failed payout is compensated by re-crediting at the prior rate.
		if restoreErr := v.ledger.MintWithRate(ctx, v.identity, holder, paid, rate); restoreErr != nil {
			return decimal.Zero, fmt.Errorf("payout failed (%v) and compensation failed: %w", err, restoreErr)
		}
		return decimal.Zero, &TransferFailedError{Holder: holder, Amount: paid, Cause: err}
	}
	return paid, nil
}
