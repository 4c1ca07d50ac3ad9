// Package gateway implements the two legs of a cross-domain transfer:
// lock/burn on the source domain and release/mint on the destination. The
// only contract between the legs is the versioned transfer message and the
// relay's ordered, at-least-once delivery within a lane.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/ledger"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models/events"
)

// Event topics published by the gateway.
const (
	TopicTransferInitiated = "transfer_initiated"
	TopicTransferCompleted = "transfer_completed"
)

// Policy is the lane policy the gateway consults: validation for both
// legs plus the destination token address per outbound lane.
type Policy interface {
	Validator
	DestToken(destDomain string) (string, bool)
}

// Config wires a Gateway's collaborators.
type Config struct {
	Domain   string                    // local domain selector
	Identity string                    // caller identity holding the mint/burn capability
	Clearing string                    // gateway-held clearing account burned on outbound legs
	Ledger   *ledger.Ledger            // required
	Store    interfaces.AccountStore   // required; message dedup
	Relay    interfaces.Relay          // required
	Policy   Policy                    // required
	Clock    ledger.Clock              // defaults to SystemClock
	Events   interfaces.EventPublisher // optional
}

// Gateway wraps ledger operations into the outbound and inbound legs of a
// cross-domain transfer, carrying the sender's accrual rate in the
// transfer message so the destination ledger can anchor the receiver to it.
type Gateway struct {
	domain   string
	identity string
	clearing string
	ledger   *ledger.Ledger
	store    interfaces.AccountStore
	relay    interfaces.Relay
	policy   Policy
	clock    ledger.Clock
	events   interfaces.EventPublisher
}

// NewGateway creates a gateway for one domain.
func NewGateway(cfg Config) (*Gateway, error) {
	if cfg.Ledger == nil || cfg.Store == nil || cfg.Relay == nil || cfg.Policy == nil {
		return nil, fmt.Errorf("gateway: ledger, store, relay and policy are required")
	}
	if cfg.Clearing == "" {
		return nil, fmt.Errorf("gateway: clearing account is required")
	}
	if cfg.Clock == nil {
		cfg.Clock = ledger.SystemClock{}
	}
	return &Gateway{
		domain:   cfg.Domain,
		identity: cfg.Identity,
		clearing: cfg.Clearing,
		ledger:   cfg.Ledger,
		store:    cfg.Store,
		relay:    cfg.Relay,
		policy:   cfg.Policy,
		clock:    cfg.Clock,
		events:   cfg.Events,
	}, nil
}

// OutboundRequest describes one outbound transfer. The tokens being
// transferred must already have been moved into the gateway's clearing
// account by the caller.
type OutboundRequest struct {
	Sender     string
	Receiver   string
	Amount     decimal.Decimal
	DestDomain string
}

// LockOrBurn executes the outbound leg: validate, read the sender's rate,
// burn the amount from the clearing account, and hand the transfer message
// to the relay. Once the relay has accepted the message the burn is final;
// an undelivered message is the relay's recovery problem, not a local
// rollback.
func (g *Gateway) LockOrBurn(ctx context.Context, req OutboundRequest) (models.TransferMessage, error) {
	if err := g.policy.ValidateOutbound(ctx, req.DestDomain, req.Sender, req.Amount); err != nil {
		return models.TransferMessage{}, err
	}
	if !req.Amount.IsPositive() {
		return models.TransferMessage{}, &ValidationFailedError{Reason: fmt.Sprintf("amount %s is not positive", req.Amount)}
	}
	destToken, ok := g.policy.DestToken(req.DestDomain)
	if !ok {
		return models.TransferMessage{}, &ValidationFailedError{Reason: fmt.Sprintf("no token configured for lane %s", req.DestDomain)}
	}

	// The carried rate is the sender's, read before the burn: the clearing
	// account's own rate is irrelevant to the transfer.
	rate, err := g.ledger.UserRate(ctx, req.Sender)
	if err != nil {
		return models.TransferMessage{}, fmt.Errorf("read sender rate: %w", err)
	}

	if _, err := g.ledger.Burn(ctx, g.identity, g.clearing, req.Amount); err != nil {
		return models.TransferMessage{}, fmt.Errorf("outbound burn: %w", err)
	}

	msg := models.TransferMessage{
		SchemaVersion: models.SchemaVersionV1,
		MessageID:     uuid.New().String(),
		SourceDomain:  g.domain,
		DestDomain:    req.DestDomain,
		Sender:        req.Sender,
		Receiver:      req.Receiver,
		DestToken:     destToken,
		Amount:        req.Amount,
		AccrualRate:   rate,
		SentAt:        time.Unix(g.clock.Now(), 0).UTC(),
	}

	if err := g.relay.Send(ctx, msg); err != nil {
		// The relay never accepted the message, so the burn can still be
		// compensated locally. This is distinct from a delivery failure
		// after acceptance, which is the relay's concern.
		if restoreErr := g.ledger.MintWithRate(ctx, g.identity, g.clearing, req.Amount, rate); restoreErr != nil {
			return models.TransferMessage{}, fmt.Errorf("relay send failed (%v) and clearing restore failed: %w", err, restoreErr)
		}
		return models.TransferMessage{}, fmt.Errorf("relay send: %w", err)
	}

	g.publish(TopicTransferInitiated, events.TransferInitiated{
		MessageID:    msg.MessageID,
		SourceDomain: msg.SourceDomain,
		DestDomain:   msg.DestDomain,
		Sender:       msg.Sender,
		Receiver:     msg.Receiver,
		Amount:       msg.Amount,
		AccrualRate:  msg.AccrualRate,
		OccurredAt:   msg.SentAt,
	})
	return msg, nil
}

// ReleaseOrMint executes the inbound leg: validate, then mint the carried
// amount to the receiver anchored at the carried accrual rate (the source
// domain's rate at send time, not this domain's current global rate). A
// replayed message is a no-op and reports zero credited.
func (g *Gateway) ReleaseOrMint(ctx context.Context, msg models.TransferMessage) (decimal.Decimal, error) {
	if msg.SchemaVersion != models.SchemaVersionV1 {
		return decimal.Zero, &ValidationFailedError{Reason: fmt.Sprintf("unsupported schema version %d", msg.SchemaVersion)}
	}
	if err := g.policy.ValidateInbound(ctx, msg); err != nil {
		return decimal.Zero, err
	}
	if !msg.Amount.IsPositive() {
		return decimal.Zero, &ValidationFailedError{Reason: fmt.Sprintf("amount %s is not positive", msg.Amount)}
	}

	seen, err := g.store.MessageSeen(ctx, msg.MessageID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("dedup lookup: %w", err)
	}
	if seen {
		return decimal.Zero, nil
	}

	if err := g.ledger.MintWithRate(ctx, g.identity, msg.Receiver, msg.Amount, msg.AccrualRate); err != nil {
		return decimal.Zero, fmt.Errorf("inbound mint: %w", err)
	}

	// Marked after the mint: a crash in between re-delivers the message,
	// which is the at-least-once contract this leg lives under anyway.
	if err := g.store.MarkMessageSeen(ctx, msg.MessageID); err != nil {
		return decimal.Zero, fmt.Errorf("mark message seen: %w", err)
	}

	g.publish(TopicTransferCompleted, events.TransferCompleted{
		MessageID:    msg.MessageID,
		SourceDomain: msg.SourceDomain,
		DestDomain:   msg.DestDomain,
		Receiver:     msg.Receiver,
		Amount:       msg.Amount,
		AccrualRate:  msg.AccrualRate,
		OccurredAt:   time.Unix(g.clock.Now(), 0).UTC(),
	})
	return msg.Amount, nil
}

// Clearing returns the gateway's clearing account ID. Callers move tokens
// here (a plain ledger transfer) before requesting an outbound leg.
func (g *Gateway) Clearing() string {
	return g.clearing
}

func (g *Gateway) publish(topic string, event any) {
	if g.events == nil {
		return
	}
	_ = g.events.Publish(topic, event)
}
