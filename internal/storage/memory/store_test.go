package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
)

func TestGetAccountMissingReturnsNil(t *testing.T) {
	s := NewAccountStore()

	acc, err := s.GetAccount(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, acc)
}

func TestSaveAndGetAccountCopies(t *testing.T) {
	s := NewAccountStore()
	ctx := context.Background()

	in := &models.Account{
		ID:            "alice",
		Principal:     decimal.NewFromInt(100_000),
		AccrualRate:   decimal.New(5, 10),
		LastAccrualAt: 1_000_000,
	}
	require.NoError(t, s.SaveAccount(ctx, in))

	out, err := s.GetAccount(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.Principal.Equal(in.Principal))
	assert.True(t, out.AccrualRate.Equal(in.AccrualRate))

	// Mutating the returned copy must not affect stored state.
	out.Principal = decimal.Zero
	again, err := s.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, again.Principal.Equal(decimal.NewFromInt(100_000)))
}

func TestGlobalRateUnsetThenSet(t *testing.T) {
	s := NewAccountStore()
	ctx := context.Background()

	_, ok, err := s.GetGlobalRate(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveGlobalRate(ctx, decimal.New(5, 10)))
	rate, ok, err := s.GetGlobalRate(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, rate.Equal(decimal.New(5, 10)))
}

func TestJournalFilterByAccount(t *testing.T) {
	s := NewAccountStore()
	ctx := context.Background()
	now := time.Now().UTC()

	entries := []models.LedgerEntry{
		{ID: "1", AccountID: "alice", Kind: models.EntryKindMint, Amount: decimal.NewFromInt(100), CreatedAt: now},
		{ID: "2", AccountID: "bob", Kind: models.EntryKindMint, Amount: decimal.NewFromInt(50), CreatedAt: now},
		{ID: "3", AccountID: "alice", Kind: models.EntryKindInterest, Amount: decimal.NewFromInt(1), CreatedAt: now},
	}
	for _, e := range entries {
		require.NoError(t, s.SaveEntry(ctx, e))
	}

	all, err := s.GetLedgerEntries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	alice, err := s.GetEntriesByAccount(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, models.EntryKindMint, alice[0].Kind)
	assert.Equal(t, models.EntryKindInterest, alice[1].Kind)
}

func TestMessageSeenMarking(t *testing.T) {
	s := NewAccountStore()
	ctx := context.Background()

	seen, err := s.MessageSeen(ctx, "msg-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.MarkMessageSeen(ctx, "msg-1"))
	seen, err = s.MessageSeen(ctx, "msg-1")
	require.NoError(t, err)
	assert.True(t, seen)
}
