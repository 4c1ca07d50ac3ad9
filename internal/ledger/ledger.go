package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models/events"
)

// Capability names used in authorization errors.
const (
	CapabilityAdmin    = "admin"
	CapabilityMintBurn = "mint_burn"
)

// TopicRateChanged is the event topic for global-rate updates.
const TopicRateChanged = "rate_changed"

// Authority answers capability checks for the two privileged operations:
// rate administration and mint/burn. Both are plain allow-list checks.
type Authority interface {
	IsAdmin(caller string) bool
	IsMinter(caller string) bool
}

// Config wires a Ledger's collaborators.
type Config struct {
	Domain            string                    // this domain's selector, used in events
	Store             interfaces.AccountStore   // required
	Clock             Clock                     // defaults to SystemClock
	Authority         Authority                 // required
	Events            interfaces.EventPublisher // optional
	InitialGlobalRate decimal.Decimal           // used only when the store holds no rate yet
}

// Ledger is one domain's interest-accruing balance ledger. Per-account
// interest accrues linearly on principal and is only materialized when the
// account is touched (settled). All mutations run strictly sequentially
// under one mutex, matching the domain's one-mutation-at-a-time execution
// model.
type Ledger struct {
	mu         sync.Mutex
	domain     string
	store      interfaces.AccountStore
	clock      Clock
	authority  Authority
	events     interfaces.EventPublisher
	globalRate decimal.Decimal
}

// NewLedger creates a ledger bound to a store. A persisted global rate
// wins over cfg.InitialGlobalRate, so restarting a domain never resets its
// rate history.
func NewLedger(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.Store == nil {
		return nil, errors.New("ledger: store is required")
	}
	if cfg.Authority == nil {
		return nil, errors.New("ledger: authority is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.InitialGlobalRate.IsNegative() {
		return nil, fmt.Errorf("ledger: initial global rate %s is negative", cfg.InitialGlobalRate)
	}

	rate, ok, err := cfg.Store.GetGlobalRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("load global rate: %w", err)
	}
	if !ok {
		rate = cfg.InitialGlobalRate
		if err := cfg.Store.SaveGlobalRate(ctx, rate); err != nil {
			return nil, fmt.Errorf("persist initial global rate: %w", err)
		}
	}

	return &Ledger{
		domain:     cfg.Domain,
		store:      cfg.Store,
		clock:      cfg.Clock,
		authority:  cfg.Authority,
		events:     cfg.Events,
		globalRate: rate,
	}, nil
}

// SetGlobalRate lowers (or re-states) the global accrual rate. Raising it
// is rejected with RateIncreaseRejectedError and leaves state unchanged.
// Restricted to the admin capability.
func (l *Ledger) SetGlobalRate(ctx context.Context, caller string, newRate decimal.Decimal) error {
	if !l.authority.IsAdmin(caller) {
		return &UnauthorizedError{Caller: caller, Capability: CapabilityAdmin}
	}
	if newRate.IsNegative() {
		return fmt.Errorf("global rate %s is negative", newRate)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if newRate.GreaterThan(l.globalRate) {
		return &RateIncreaseRejectedError{Current: l.globalRate, Attempted: newRate}
	}
	old := l.globalRate
	if err := l.store.SaveGlobalRate(ctx, newRate); err != nil {
		return fmt.Errorf("persist global rate: %w", err)
	}
	l.globalRate = newRate

	l.publish(TopicRateChanged, events.RateChanged{
		Domain:     l.domain,
		OldRate:    old,
		NewRate:    newRate,
		ChangedBy:  caller,
		OccurredAt: time.Unix(l.clock.Now(), 0).UTC(),
	})
	return nil
}

// Mint credits new principal to an account, anchored at the current global
// rate when the account holds nothing yet. Restricted to the mint/burn
// capability.
func (l *Ledger) Mint(ctx context.Context, caller, accountID string, amount decimal.Decimal) error {
	return l.mint(ctx, caller, accountID, amount, decimal.Zero, false)
}

// MintWithRate credits principal anchored at a caller-supplied rate. This
// is the cross-domain inflow path: the gateway passes the rate carried in
// the transfer payload so the receiver keeps the source domain's rate at
// send time, regardless of this domain's current global rate.
func (l *Ledger) MintWithRate(ctx context.Context, caller, accountID string, amount, rate decimal.Decimal) error {
	if rate.IsNegative() {
		return fmt.Errorf("accrual rate %s is negative", rate)
	}
	return l.mint(ctx, caller, accountID, amount, rate, true)
}

func (l *Ledger) mint(ctx context.Context, caller, accountID string, amount, rate decimal.Decimal, reanchor bool) error {
	if !l.authority.IsMinter(caller) {
		return &UnauthorizedError{Caller: caller, Capability: CapabilityMintBurn}
	}
	if !amount.IsPositive() {
		return &InvalidAmountError{Amount: amount}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !reanchor {
		rate = l.globalRate
	}

	acc, err := l.getOrCreateAccount(ctx, accountID)
	if err != nil {
		return err
	}
	interest := l.settle(acc)

	// First credit anchors to the current global rate. A rate-bearing
	// cross-domain inflow re-anchors unconditionally: interest accrued up
	// to now was already realized by the settlement above at the old rate.
	if acc.Principal.IsZero() || reanchor {
		acc.AccrualRate = rate
	}
	acc.Principal = acc.Principal.Add(amount)

	if err := l.store.SaveAccount(ctx, acc); err != nil {
		return fmt.Errorf("save account %s: %w", accountID, err)
	}
	if err := l.journalInterest(ctx, accountID, interest); err != nil {
		return err
	}
	return l.journal(ctx, accountID, models.EntryKindMint, amount)
}

// Burn debits principal from an account and returns the amount actually
// burned. The MaxAmount sentinel burns the full live balance, resolved at
// the burn's own settlement instant so no dust accrues between a prior
// balance read and the burn. Restricted to the mint/burn capability.
func (l *Ledger) Burn(ctx context.Context, caller, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !l.authority.IsMinter(caller) {
		return decimal.Zero, &UnauthorizedError{Caller: caller, Capability: CapabilityMintBurn}
	}
	if !amount.IsPositive() && !amount.Equal(models.MaxAmount) {
		return decimal.Zero, &InvalidAmountError{Amount: amount}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.getOrCreateAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	interest := l.settle(acc)

	// After settlement the live balance equals the principal.
	if amount.Equal(models.MaxAmount) {
		amount = acc.Principal
	}
	if acc.Principal.LessThan(amount) {
		return decimal.Zero, &InsufficientBalanceError{Account: accountID, Available: acc.Principal, Requested: amount}
	}
	acc.Principal = acc.Principal.Sub(amount)

	if err := l.store.SaveAccount(ctx, acc); err != nil {
		return decimal.Zero, fmt.Errorf("save account %s: %w", accountID, err)
	}
	if err := l.journalInterest(ctx, accountID, interest); err != nil {
		return decimal.Zero, err
	}
	if amount.IsZero() {
		return amount, nil
	}
	return amount, l.journal(ctx, accountID, models.EntryKindBurn, amount.Neg())
}

// Transfer moves principal between two accounts on this domain. The
// MaxAmount sentinel moves the sender's full live balance. A receiver with
// zero live balance inherits the sender's accrual rate instead of the
// current global rate; this is the rate-propagation path that lets an
// early holder's preferential rate flow forward through transfers.
func (l *Ledger) Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() && !amount.Equal(models.MaxAmount) {
		return &InvalidAmountError{Amount: amount}
	}
	if from == to {
		return fmt.Errorf("transfer from %s to itself", from)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	sender, err := l.getOrCreateAccount(ctx, from)
	if err != nil {
		return err
	}
	receiver, err := l.getOrCreateAccount(ctx, to)
	if err != nil {
		return err
	}

	// Both parties settle, even though only the sender's stale clock would
	// matter for this write: leaving the receiver unsettled would let the
	// incoming principal accrue interest for time it was not yet there.
	senderInterest := l.settle(sender)
	receiverInterest := l.settle(receiver)

	if amount.Equal(models.MaxAmount) {
		amount = sender.Principal
	}
	if sender.Principal.LessThan(amount) {
		return &InsufficientBalanceError{Account: from, Available: sender.Principal, Requested: amount}
	}
	if receiver.Principal.IsZero() {
		receiver.AccrualRate = sender.AccrualRate
	}
	sender.Principal = sender.Principal.Sub(amount)
	receiver.Principal = receiver.Principal.Add(amount)

	if err := l.store.SaveAccount(ctx, sender); err != nil {
		return fmt.Errorf("save account %s: %w", from, err)
	}
	if err := l.store.SaveAccount(ctx, receiver); err != nil {
		return fmt.Errorf("save account %s: %w", to, err)
	}
	if err := l.journalInterest(ctx, from, senderInterest); err != nil {
		return err
	}
	if err := l.journalInterest(ctx, to, receiverInterest); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	if err := l.journal(ctx, from, models.EntryKindTransferOut, amount.Neg()); err != nil {
		return err
	}
	return l.journal(ctx, to, models.EntryKindTransferIn, amount)
}

// BalanceOf returns the live, interest-inclusive balance. It mutates
// nothing: the growth since the last settlement is recomputed on every
// read.
func (l *Ledger) BalanceOf(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acc, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if acc == nil {
		return decimal.Zero, nil
	}
	return liveBalanceAt(acc, l.clock.Now()), nil
}

// PrincipalOf returns the actually-credited principal with no interest
// applied, for auditing credited supply against live supply.
func (l *Ledger) PrincipalOf(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acc, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if acc == nil {
		return decimal.Zero, nil
	}
	return acc.Principal, nil
}

// UserRate returns the account's frozen accrual rate, or the current
// global rate for an account that does not exist yet (the rate it would be
// anchored to on first credit).
func (l *Ledger) UserRate(ctx context.Context, accountID string) (decimal.Decimal, error) {
	acc, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if acc == nil {
		return l.GlobalRate(), nil
	}
	return acc.AccrualRate, nil
}

// GlobalRate returns the domain's current global accrual rate.
func (l *Ledger) GlobalRate() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.globalRate
}

// Entries exposes the full audit journal.
func (l *Ledger) Entries(ctx context.Context) ([]models.LedgerEntry, error) {
	return l.store.GetLedgerEntries(ctx)
}

// EntriesByAccount exposes one account's audit journal.
func (l *Ledger) EntriesByAccount(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	return l.store.GetEntriesByAccount(ctx, accountID)
}

// settle folds interest accrued since the last settlement into principal
// and resets the accrual clock. It must run before every write to
// principal or rate; balance reads do not need it because they recompute
// the growth on the fly. The realized delta is returned for the caller to
// journal together with the account save: settle itself persists nothing,
// so a rejected operation leaves no trace in the journal.
func (l *Ledger) settle(acc *models.Account) decimal.Decimal {
	now := l.clock.Now()
	live := liveBalanceAt(acc, now)
	delta := live.Sub(acc.Principal)
	acc.Principal = live
	if now > acc.LastAccrualAt {
		acc.LastAccrualAt = now
	}
	return delta
}

// journalInterest records a realized settlement delta. Called only after
// the settled account has been saved.
func (l *Ledger) journalInterest(ctx context.Context, accountID string, delta decimal.Decimal) error {
	if delta.IsZero() {
		return nil
	}
	return l.journal(ctx, accountID, models.EntryKindInterest, delta)
}

// liveBalanceAt computes principal × (Precision + rate × Δt) / Precision
// with truncation toward zero. Truncating consistently means the ledger
// can under-credit by strictly less than one unit per settlement; that
// dust loss is accepted.
func liveBalanceAt(acc *models.Account, now int64) decimal.Decimal {
	elapsed := now - acc.LastAccrualAt
	if elapsed <= 0 || acc.Principal.IsZero() || acc.AccrualRate.IsZero() {
		return acc.Principal
	}
	growth := models.Precision.Add(acc.AccrualRate.Mul(decimal.NewFromInt(elapsed)))
	live, _ := acc.Principal.Mul(growth).QuoRem(models.Precision, 0)
	return live
}

func (l *Ledger) getOrCreateAccount(ctx context.Context, accountID string) (*models.Account, error) {
	acc, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", accountID, err)
	}
	if acc == nil {
		acc = &models.Account{
			ID:            accountID,
			Principal:     decimal.Zero,
			AccrualRate:   decimal.Zero,
			LastAccrualAt: l.clock.Now(),
		}
	}
	return acc, nil
}

func (l *Ledger) journal(ctx context.Context, accountID string, kind models.EntryKind, amount decimal.Decimal) error {
	entry := models.LedgerEntry{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: time.Unix(l.clock.Now(), 0).UTC(),
	}
	if err := l.store.SaveEntry(ctx, entry); err != nil {
		return fmt.Errorf("save %s entry for %s: %w", kind, accountID, err)
	}
	return nil
}

func (l *Ledger) publish(topic string, event any) {
	if l.events == nil {
		return
	}
	// Best effort; the mutation the event describes has already committed.
	_ = l.events.Publish(topic, event)
}
