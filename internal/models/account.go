package models

import (
	"github.com/shopspring/decimal"
)

// Precision is the fixed-point scale for accrual rates. A rate of
// Precision means 100% interest per second on the principal; a typical
// rate is many orders of magnitude smaller (e.g. 5e10).
var Precision = decimal.New(1, 18)

// MaxAmount is the sentinel amount meaning "the full live balance".
// Any other non-positive amount is invalid.
var MaxAmount = decimal.NewFromInt(-1)

// Account is one holder's position on a single domain.
// Principal excludes unrealized interest; the live balance is derived
// from it at read time.
type Account struct {
	ID            string          // holder identity
	Principal     decimal.Decimal // tokens actually credited, in smallest units
	AccrualRate   decimal.Decimal // fixed-point rate scaled by Precision, per second
	LastAccrualAt int64           // unix seconds of last settlement
}
