package refund

import (
	"context"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
)

// MidtransGateway refunds charges through the Midtrans Core API using the
// order's original transaction reference.
type MidtransGateway struct {
	client coreapi.Client
}

// NewMidtransGateway builds a gateway against the sandbox or production
// Midtrans environment.
func NewMidtransGateway(serverKey string, production bool) *MidtransGateway {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}
	var client coreapi.Client
	client.New(serverKey, env)
	return &MidtransGateway{client: client}
}

// Refund asks Midtrans to reverse the charge. The refund key makes retried
// attempts idempotent on the processor side.
func (g *MidtransGateway) Refund(_ context.Context, transactionRef string, amount int64, reason string) (GatewayResult, error) {
	refundKey := uuid.NewString()
	res, mErr := g.client.RefundTransaction(transactionRef, &coreapi.RefundReq{
		RefundKey: refundKey,
		Amount:    amount,
		Reason:    reason,
	})
	if mErr != nil {
		return GatewayResult{}, mErr
	}
	return GatewayResult{Reference: refundKey, Status: res.StatusMessage}, nil
}
