package interfaces

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
)

// AccountStore persists one domain's ledger state: the account table, the
// single global-rate scalar, the audit journal and the processed-message
// set used to make inbound replays a no-op.
type AccountStore interface {
	// GetAccount returns (nil, nil) when the account does not exist yet;
	// accounts are created lazily on first credit.
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	ListAccounts(ctx context.Context) ([]models.Account, error)

	// GetGlobalRate reports ok=false when no rate has been stored yet.
	GetGlobalRate(ctx context.Context) (rate decimal.Decimal, ok bool, err error)
	SaveGlobalRate(ctx context.Context, rate decimal.Decimal) error

	SaveEntry(ctx context.Context, entry models.LedgerEntry) error
	GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error)
	GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error)

	MessageSeen(ctx context.Context, messageID string) (bool, error)
	MarkMessageSeen(ctx context.Context, messageID string) error
}
