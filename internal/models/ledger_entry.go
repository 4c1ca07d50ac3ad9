package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind labels why a ledger entry changed an account's principal.
type EntryKind string

const (
	EntryKindMint        EntryKind = "mint"
	EntryKindBurn        EntryKind = "burn"
	EntryKindTransferIn  EntryKind = "transfer_in"
	EntryKindTransferOut EntryKind = "transfer_out"
	EntryKindInterest    EntryKind = "interest"
)

// LedgerEntry represents a single ledger record for an account.
// Every principal mutation (including realized interest at settlement)
// leaves one entry behind, so the journal reconciles against principal.
type LedgerEntry struct {
	ID        string          // unique identifier
	AccountID string          // which account this entry belongs to
	Kind      EntryKind       // what kind of mutation produced it
	Amount    decimal.Decimal // in smallest units (positive or negative)
	CreatedAt time.Time       // timestamp
}
