// Package badger provides an embedded AccountStore for single-node
// deployments that want durability without an external database.
package badger

import (
	"bytes"
	"context"
	"encoding/gob"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/shopspring/decimal"

	interfaces "github.com/sheikh-saqib/crosschain-accrual-ledger/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
)

// Keys:
// Account:           "account:<id>" -> gob-encoded account
// Global rate:       "ledger:globalrate" -> gob-encoded decimal
// Journal entry:     "entry:<entry id>" -> gob-encoded entry
// Processed message: "message:<message id>" -> empty
const (
	accountPrefix = "account:"
	entryPrefix   = "entry:"
	messagePrefix = "message:"
	globalRateKey = "ledger:globalrate"
)

// AccountStore implements interfaces.AccountStore on BadgerDB.
type AccountStore struct {
	db *badger.DB
}

// NewAccountStore creates or opens a BadgerDB store at the given path.
// If path is empty, it opens an in-memory store (for testing).
func NewAccountStore(path string) (*AccountStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	// Reduce logging noise
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &AccountStore{db: db}, nil
}

func (s *AccountStore) Close() error {
	return s.db.Close()
}

func (s *AccountStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var acc models.Account
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(accountPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&acc)
		})
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (s *AccountStore) SaveAccount(ctx context.Context, account *models.Account) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(account); err != nil {
			return err
		}
		return txn.Set([]byte(accountPrefix+account.ID), buf.Bytes())
	})
}

func (s *AccountStore) ListAccounts(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(accountPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var acc models.Account
			err := it.Item().Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&acc)
			})
			if err != nil {
				return err
			}
			accounts = append(accounts, acc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return accounts, nil
}

func (s *AccountStore) GetGlobalRate(ctx context.Context) (decimal.Decimal, bool, error) {
	var rate decimal.Decimal
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(globalRateKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return gob.NewDecoder(bytes.NewReader(val)).Decode(&rate)
		})
	})
	if err == badger.ErrKeyNotFound {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return rate, true, nil
}

func (s *AccountStore) SaveGlobalRate(ctx context.Context, rate decimal.Decimal) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(rate); err != nil {
			return err
		}
		return txn.Set([]byte(globalRateKey), buf.Bytes())
	})
}

func (s *AccountStore) SaveEntry(ctx context.Context, entry models.LedgerEntry) error {
	return s.db.Update(func(txn *badger.Txn) error {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
			return err
		}
		return txn.Set([]byte(entryPrefix+entry.ID), buf.Bytes())
	})
}

func (s *AccountStore) GetLedgerEntries(ctx context.Context) ([]models.LedgerEntry, error) {
	entries, err := s.loadEntries(func(models.LedgerEntry) bool { return true })
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *AccountStore) GetEntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	return s.loadEntries(func(e models.LedgerEntry) bool { return e.AccountID == accountID })
}

func (s *AccountStore) MessageSeen(ctx context.Context, messageID string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(messagePrefix + messageID))
		return err
	})
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *AccountStore) MarkMessageSeen(ctx context.Context, messageID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(messagePrefix+messageID), nil)
	})
}

// loadEntries scans the journal prefix; keys are entry IDs, so the result
// is re-sorted by creation time before returning.
func (s *AccountStore) loadEntries(keep func(models.LedgerEntry) bool) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(entryPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var entry models.LedgerEntry
			err := it.Item().Value(func(val []byte) error {
				return gob.NewDecoder(bytes.NewReader(val)).Decode(&entry)
			})
			if err != nil {
				return err
			}
			if keep(entry) {
				entries = append(entries, entry)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].CreatedAt.Before(entries[j].CreatedAt) })
	return entries, nil
}

var _ interfaces.AccountStore = (*AccountStore)(nil)
