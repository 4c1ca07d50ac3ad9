// Package loopback is an in-process relay connecting gateways that live in
// the same process. Delivery is synchronous and ordered; tests use the
// Deliveries knob to exercise the at-least-once (duplicate) case.
package loopback

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/interfaces"
	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
)

// InboundHandler is the destination side of a lane. *gateway.Gateway
// satisfies it.
type InboundHandler interface {
	ReleaseOrMint(ctx context.Context, msg models.TransferMessage) (decimal.Decimal, error)
}

// Relay routes each message to the handler bound to its destination
// domain.
type Relay struct {
	mu         sync.Mutex
	handlers   map[string]InboundHandler
	deliveries int
}

func NewRelay() *Relay {
	return &Relay{
		handlers:   make(map[string]InboundHandler),
		deliveries: 1,
	}
}

// Bind registers the inbound handler for a domain.
func (r *Relay) Bind(domain string, h InboundHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[domain] = h
}

// SetDeliveries makes Send deliver each message n times, simulating an
// at-least-once transport that duplicates.
func (r *Relay) SetDeliveries(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n < 1 {
		n = 1
	}
	r.deliveries = n
}

// Send delivers the message synchronously to the destination handler.
func (r *Relay) Send(ctx context.Context, msg models.TransferMessage) error {
	r.mu.Lock()
	h, ok := r.handlers[msg.DestDomain]
	n := r.deliveries
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("no gateway bound for domain %s", msg.DestDomain)
	}
	for i := 0; i < n; i++ {
		if _, err := h.ReleaseOrMint(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

var _ interfaces.Relay = (*Relay)(nil)
