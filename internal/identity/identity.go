// Package identity resolves which wallet owners sit behind an order.
package identity

import (
	"context"

	"github.com/pasarlink/pasarlink/internal/order"
)

// Owners names the two wallet owners involved in an order.
type Owners struct {
	BuyerID  string
	SellerID string
}

// Resolver maps orders to wallet owners and knows the escrow account.
type Resolver interface {
	WalletOwners(ctx context.Context, orderID string) (Owners, error)
	PlatformOwnerID() string
}

// OrderResolver resolves owners through the order store.
type OrderResolver struct {
	orders     order.Store
	platformID string
}

// NewOrderResolver builds a resolver over the order boundary. platformID is
// the single platform/escrow wallet owner.
func NewOrderResolver(orders order.Store, platformID string) *OrderResolver {
	return &OrderResolver{orders: orders, platformID: platformID}
}

// WalletOwners returns the buyer and seller owner ids for the order.
func (r *OrderResolver) WalletOwners(ctx context.Context, orderID string) (Owners, error) {
	o, err := r.orders.GetOrder(ctx, orderID)
	if err != nil {
		return Owners{}, err
	}
	return Owners{BuyerID: o.BuyerID, SellerID: o.SellerID}, nil
}

// PlatformOwnerID returns the owner id of the escrow wallet.
func (r *OrderResolver) PlatformOwnerID() string {
	return r.platformID
}
