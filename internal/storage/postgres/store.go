package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/crosschain-accrual-ledger/internal/interfaces" // interface AccountStore
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
)

type AccountStore struct {
	db *sql.DB
}

func NewAccountStore(db *sql.DB) *AccountStore {
	return &AccountStore{
		db: db,
	}
}

// Migrate creates the per-domain ledger tables if they do not exist.
func (p *AccountStore) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS accounts (
		id              TEXT PRIMARY KEY,
		principal       NUMERIC NOT NULL,
		accrual_rate    NUMERIC NOT NULL,
		last_accrual_at BIGINT  NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ledger_state (
		id          INT PRIMARY KEY CHECK (id = 1),
		global_rate NUMERIC NOT NULL
	);
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id         TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		kind       TEXT NOT NULL,
		amount     NUMERIC NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS ledger_entries_account_idx ON ledger_entries (account_id);
	CREATE TABLE IF NOT EXISTS processed_messages (
		message_id   TEXT PRIMARY KEY,
		processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);`

	_, err := p.db.ExecContext(ctx, schema)
	return err
}

func (p *AccountStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	const query = `SELECT id, principal, accrual_rate, last_accrual_at FROM accounts WHERE id = $1`

	var acc models.Account
	err := p.db.QueryRowContext(ctx, query, id).Scan(&acc.ID, &acc.Principal, &acc.AccrualRate, &acc.LastAccrualAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (p *AccountStore) SaveAccount(ctx context.Context, account *models.Account) error {
	const query = `INSERT INTO accounts (id, principal, accrual_rate, last_accrual_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id) DO UPDATE
	SET principal = $2, accrual_rate = $3, last_accrual_at = $4`

	_, err := p.db.ExecContext(ctx, query, account.ID, account.Principal, account.AccrualRate, account.LastAccrualAt)
	return err
}

func (p *AccountStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	const query = `SELECT id, principal, accrual_rate, last_accrual_at FROM accounts`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var acc models.Account
		if err := rows.Scan(&acc.ID, &acc.Principal, &acc.AccrualRate, &acc.LastAccrualAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (p *AccountStore) GetGlobalRate(ctx context.Context) (decimal.Decimal, bool, error) {
	const query = `SELECT global_rate FROM ledger_state WHERE id = 1`

	var rate decimal.Decimal
	err := p.db.QueryRowContext(ctx, query).Scan(&rate)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return rate, true, nil
}

func (p *AccountStore) SaveGlobalRate(ctx context.Context, rate decimal.Decimal) error {
	const query = `INSERT INTO ledger_state (id, global_rate) VALUES (1, $1)
	ON CONFLICT (id) DO UPDATE SET global_rate = $1`

	_, err := p.db.ExecContext(ctx, query, rate)
	return err
}

func (p *AccountStore) SaveEntry(ctx context.Context, entry models.LedgerEntry) error {
	const query = `INSERT INTO ledger_entries (id, account_id, kind, amount, created_at)
	VALUES ($1, $2, $3, $4, $5)`

	_, err := p.db.ExecContext(ctx, query, entry.ID, entry.AccountID, string(entry.Kind), entry.Amount, entry.CreatedAt)
	return err
}

func (p *AccountStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	const query = `SELECT id, account_id, kind, amount, created_at FROM ledger_entries ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (p *AccountStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	const query = `SELECT id, account_id, kind, amount, created_at FROM ledger_entries
	WHERE account_id = $1 ORDER BY created_at`

	rows, err := p.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanEntries(rows)
}

func (p *AccountStore) MessageSeen(ctx context.Context, messageID string) (bool, error) {
	const query = `SELECT 1 FROM processed_messages WHERE message_id = $1 LIMIT 1`

	var one int
	err := p.db.QueryRowContext(ctx, query, messageID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *AccountStore) MarkMessageSeen(ctx context.Context, messageID string) error {
	const query = `INSERT INTO processed_messages (message_id) VALUES ($1)
	ON CONFLICT (message_id) DO NOTHING`

	_, err := p.db.ExecContext(ctx, query, messageID)
	return err
}

func scanEntries(rows *sql.Rows) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	for rows.Next() {
		var entry models.LedgerEntry
		var kind string
		if err := rows.Scan(&entry.ID, &entry.AccountID, &kind, &entry.Amount, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Kind = models.EntryKind(kind)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

var _ interfaces.AccountStore = (*AccountStore)(nil)
