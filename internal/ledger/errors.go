package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// RateIncreaseRejectedError is returned when a global-rate update would
// raise the rate. The global accrual rate only ever moves down; an
// attempted increase is a rejected request, never applied partially.
type RateIncreaseRejectedError struct {
	Current   decimal.Decimal
	Attempted decimal.Decimal
}

func (e *RateIncreaseRejectedError) Error() string {
	return fmt.Sprintf("rate increase rejected: current=%s attempted=%s", e.Current, e.Attempted)
}

// InsufficientBalanceError is returned by burn, transfer and redeem paths
// when the live (interest-inclusive) balance cannot cover the amount.
type InsufficientBalanceError struct {
	Account   string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on %s: available=%s requested=%s", e.Account, e.Available, e.Requested)
}

// UnauthorizedError is returned before any state is read beyond the
// permission check itself.
type UnauthorizedError struct {
	Caller     string
	Capability string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("caller %s lacks capability %s", e.Caller, e.Capability)
}

// InvalidAmountError is returned for amounts that are neither positive
// nor the MaxAmount sentinel.
type InvalidAmountError struct {
	Amount decimal.Decimal
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %s: must be positive or the max sentinel", e.Amount)
}

// IsRateIncreaseRejected reports whether err is a rejected rate increase.
// Uses errors.As to handle wrapped errors.
func IsRateIncreaseRejected(err error) bool {
	var e *RateIncreaseRejectedError
	return errors.As(err, &e)
}

// IsInsufficientBalance reports whether err is an insufficient-balance
// rejection. Uses errors.As to handle wrapped errors.
func IsInsufficientBalance(err error) bool {
	var e *InsufficientBalanceError
	return errors.As(err, &e)
}

// IsUnauthorized reports whether err is a capability rejection.
func IsUnauthorized(err error) bool {
	var e *UnauthorizedError
	return errors.As(err, &e)
}
