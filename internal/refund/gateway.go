package refund

import (
	"context"

	"github.com/google/uuid"
)

// Gateway reverses a charge at the external payment processor. Calls are
// best-effort: a failure is logged by the caller and never blocks the wallet
// credit.
type Gateway interface {
	Refund(ctx context.Context, transactionRef string, amount int64, reason string) (GatewayResult, error)
}

// GatewayResult captures the processor's response to a refund attempt.
type GatewayResult struct {
	Reference string
	Status    string
}

// StaticGateway simulates a processor that approves every refund.
type StaticGateway struct{}

// Refund approves the request with a synthetic reference.
func (StaticGateway) Refund(_ context.Context, _ string, _ int64, _ string) (GatewayResult, error) {
	return GatewayResult{Reference: uuid.NewString(), Status: "approved"}, nil
}
