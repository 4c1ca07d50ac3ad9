package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransferInitiated is published on the source domain after the outbound
// burn has committed and the message has been handed to the relay.
type TransferInitiated struct {
	MessageID    string          `json:"message_id"`
	SourceDomain string          `json:"source_domain"`
	DestDomain   string          `json:"dest_domain"`
	Sender       string          `json:"sender"`
	Receiver     string          `json:"receiver"`
	Amount       decimal.Decimal `json:"amount"`
	AccrualRate  decimal.Decimal `json:"accrual_rate"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// TransferCompleted is published on the destination domain after the
// inbound mint has committed.
type TransferCompleted struct {
	MessageID    string          `json:"message_id"`
	SourceDomain string          `json:"source_domain"`
	DestDomain   string          `json:"dest_domain"`
	Receiver     string          `json:"receiver"`
	Amount       decimal.Decimal `json:"amount"`
	AccrualRate  decimal.Decimal `json:"accrual_rate"`
	OccurredAt   time.Time       `json:"occurred_at"`
}
