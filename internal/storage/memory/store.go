package memory

import (
	"context" // standard Go package for request-scoped context (timeouts, cancellation)
	"sync"    // standard Go package for concurrency primitives like Mutex

	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/crosschain-accrual-ledger/internal/interfaces" // interface AccountStore
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"                // domain models: Account, LedgerEntry
)

// AccountStore is an in-memory implementation of interfaces.AccountStore.
// It keeps one domain's full ledger state in maps and is thread-safe for
// concurrent access.
type AccountStore struct {
	mu         sync.Mutex                 // mutex to protect all maps from concurrent access
	accounts   map[string]models.Account  // account table keyed by holder identity
	entries    []models.LedgerEntry       // slice that holds the audit journal
	seen       map[string]bool            // processed cross-domain message IDs
	globalRate decimal.Decimal            // the single global-rate scalar
	rateSet    bool                       // whether a rate has been stored yet
}

// NewAccountStore creates and returns a new in-memory AccountStore instance.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[string]models.Account),
		entries:  make([]models.LedgerEntry, 0),
		seen:     make(map[string]bool),
	}
}

// GetAccount returns a copy of the stored account, or (nil, nil) if the
// holder has never been credited.
func (m *AccountStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return nil, nil
	}
	// return a copy so external code can't mutate internal state
	out := acc
	return &out, nil
}

// SaveAccount stores the account, replacing any previous version.
func (m *AccountStore) SaveAccount(ctx context.Context, account *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.accounts[account.ID] = *account
	return nil // always succeeds in memory
}

// ListAccounts returns a copy of every stored account.
func (m *AccountStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Account, 0, len(m.accounts))
	for _, acc := range m.accounts {
		out = append(out, acc)
	}
	return out, nil
}

// GetGlobalRate returns the stored rate and whether one has been set.
func (m *AccountStore) GetGlobalRate(ctx context.Context) (decimal.Decimal, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.globalRate, m.rateSet, nil
}

// SaveGlobalRate stores the global rate scalar.
func (m *AccountStore) SaveGlobalRate(ctx context.Context, rate decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.globalRate = rate
	m.rateSet = true
	return nil
}

// SaveEntry appends a LedgerEntry to the in-memory journal.
func (m *AccountStore) SaveEntry(ctx context.Context, entry models.LedgerEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	return nil
}

// GetLedgerEntries returns a copy of the full audit journal.
// Useful for testing, debugging, and reconciling credited supply.
func (m *AccountStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]models.LedgerEntry, len(m.entries))
	copy(copied, m.entries)
	return copied, nil
}

// GetEntriesByAccount returns the journal filtered to one account.
func (m *AccountStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []models.LedgerEntry
	for _, e := range m.entries {
		if e.AccountID == accountID {
			result = append(result, e)
		}
	}
	return result, nil
}

// MessageSeen reports whether an inbound message ID was already processed.
func (m *AccountStore) MessageSeen(ctx context.Context, messageID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.seen[messageID], nil
}

// MarkMessageSeen records an inbound message ID as processed.
func (m *AccountStore) MarkMessageSeen(ctx context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seen[messageID] = true
	return nil
}

// Compile-time check: ensure AccountStore implements interfaces.AccountStore
var _ interfaces.AccountStore = (*AccountStore)(nil)
