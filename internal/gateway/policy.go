package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
)

// ValidationFailedError is returned when a transfer request or inbound
// message fails lane policy before the ledger is touched.
type ValidationFailedError struct {
	Reason string
}

func (e *ValidationFailedError) Error() string {
	return "transfer validation failed: " + e.Reason
}

// IsValidationFailed reports whether err is a policy rejection. Uses
// errors.As to handle wrapped errors.
func IsValidationFailed(err error) bool {
	var e *ValidationFailedError
	return errors.As(err, &e)
}

// Validator is the relay-side policy the gateway consults before acting:
// outbound requests before the burn, inbound messages before the mint.
type Validator interface {
	ValidateOutbound(ctx context.Context, destDomain, sender string, amount decimal.Decimal) error
	ValidateInbound(ctx context.Context, msg models.TransferMessage) error
}

// Lane describes one remote domain this gateway is paired with.
type Lane struct {
	Domain    string // remote domain selector
	DestToken string // token address on the remote domain (outbound lanes)
}

// LanePolicy is the default Validator: a static allow-list of remote
// domains. Rate limiting, when needed, belongs in a wrapping Validator.
type LanePolicy struct {
	localDomain string
	localToken  string
	lanes       map[string]Lane
}

// NewLanePolicy builds the allow-list for a gateway on localDomain whose
// ledger token is addressed as localToken by remote senders.
func NewLanePolicy(localDomain, localToken string, lanes []Lane) *LanePolicy {
	m := make(map[string]Lane, len(lanes))
	for _, lane := range lanes {
		m[lane.Domain] = lane
	}
	return &LanePolicy{localDomain: localDomain, localToken: localToken, lanes: m}
}

// ValidateOutbound checks the destination is an allowed lane.
func (p *LanePolicy) ValidateOutbound(ctx context.Context, destDomain, sender string, amount decimal.Decimal) error {
	if sender == "" {
		return &ValidationFailedError{Reason: "sender is empty"}
	}
	if _, ok := p.lanes[destDomain]; !ok {
		return &ValidationFailedError{Reason: fmt.Sprintf("destination domain %s is not an allowed lane", destDomain)}
	}
	return nil
}

// ValidateInbound checks the message is addressed to this domain's token
// and arrived over an allowed lane.
func (p *LanePolicy) ValidateInbound(ctx context.Context, msg models.TransferMessage) error {
	if _, ok := p.lanes[msg.SourceDomain]; !ok {
		return &ValidationFailedError{Reason: fmt.Sprintf("source domain %s is not an allowed lane", msg.SourceDomain)}
	}
	if msg.DestDomain != p.localDomain {
		return &ValidationFailedError{Reason: fmt.Sprintf("message addressed to domain %s, this is %s", msg.DestDomain, p.localDomain)}
	}
	if msg.DestToken != p.localToken {
		return &ValidationFailedError{Reason: fmt.Sprintf("message addressed to token %s, this is %s", msg.DestToken, p.localToken)}
	}
	if msg.Receiver == "" {
		return &ValidationFailedError{Reason: "receiver is empty"}
	}
	return nil
}

// DestToken returns the remote token address configured for a lane.
func (p *LanePolicy) DestToken(destDomain string) (string, bool) {
	lane, ok := p.lanes[destDomain]
	return lane.DestToken, ok
}
