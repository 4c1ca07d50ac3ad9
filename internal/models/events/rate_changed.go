package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateChanged is published whenever the global accrual rate is lowered.
type RateChanged struct {
	Domain     string          `json:"domain"`
	OldRate    decimal.Decimal `json:"old_rate"`
	NewRate    decimal.Decimal `json:"new_rate"`
	ChangedBy  string          `json:"changed_by"`
	OccurredAt time.Time       `json:"occurred_at"`
}
