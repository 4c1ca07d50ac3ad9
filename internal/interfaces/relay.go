package interfaces

import (
	"context"

	"github.com/sheikh-saqib/crosschain-accrual-ledger/internal/models"
)

// Relay transports an outbound transfer message to the paired gateway on
// the destination domain. Delivery is at least once and ordered within a
// single source→destination lane; both guarantees are the transport's
// responsibility, not the caller's.
type Relay interface {
	Send(ctx context.Context, msg models.TransferMessage) error
}
