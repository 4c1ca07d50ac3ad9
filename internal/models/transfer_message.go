package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// SchemaVersionV1 is the only transfer payload schema currently in use.
// Both gateways of a lane must agree on the version; a decoder rejects
// anything it does not know so that version skew fails loudly instead of
// silently misreading the carried rate.
const SchemaVersionV1 = 1

// TransferMessage is the payload carried across domains for one transfer.
// It is the entire contract between the outbound and inbound legs: the
// burn on the source domain is final once this message is handed to the
// relay.
type TransferMessage struct {
	SchemaVersion int             `json:"schema_version"`
	MessageID     string          `json:"message_id"`
	SourceDomain  string          `json:"source_domain"`
	DestDomain    string          `json:"dest_domain"`
	Sender        string          `json:"sender"`
	Receiver      string          `json:"receiver"`
	DestToken     string          `json:"dest_token"`
	Amount        decimal.Decimal `json:"amount"`
	AccrualRate   decimal.Decimal `json:"accrual_rate"` // sender's rate at send time
	SentAt        time.Time       `json:"sent_at"`
}

// Encode serializes the message for the relay.
func (m TransferMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeTransferMessage parses a relay payload and checks the schema version.
func DecodeTransferMessage(data []byte) (TransferMessage, error) {
	var m TransferMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return TransferMessage{}, fmt.Errorf("decode transfer message: %w", err)
	}
	if m.SchemaVersion != SchemaVersionV1 {
		return TransferMessage{}, fmt.Errorf("unsupported transfer schema version %d", m.SchemaVersion)
	}
	return m, nil
}
