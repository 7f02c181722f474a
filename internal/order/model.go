// Package order is the boundary to the marketplace order aggregate. The order
// lifecycle itself lives upstream; the financial core only reads order state
// and writes the cancellation and settlement markers.
package order

import "time"

// Status is the order lifecycle state as far as the financial core cares.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// PaymentStatus tells whether the buyer's money has reached the platform.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

// PaymentMethod is the closed set of payment channels an order can carry.
type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodEWallet      PaymentMethod = "EWALLET"
	MethodCard         PaymentMethod = "CREDIT_CARD"
	MethodCOD          PaymentMethod = "COD"
)

// GatewayRefundable reports whether a refund can be attempted against the
// external payment gateway for this method. Cash on delivery never reached
// the gateway, so there is nothing to reverse there.
func (m PaymentMethod) GatewayRefundable() bool {
	switch m {
	case MethodBankTransfer, MethodEWallet, MethodCard:
		return true
	default:
		return false
	}
}

// Item is one purchased line of an order.
type Item struct {
	ID        string
	ProductID string
	VariantID string
	Quantity  int
	UnitPrice int64
}

// Order is the external aggregate read at this boundary. Amounts are currency
// minor units.
type Order struct {
	ID             string
	BuyerID        string
	SellerID       string
	TotalAmount    int64
	Status         Status
	PaymentStatus  PaymentStatus
	PaymentMethod  PaymentMethod
	TransactionRef string
	Items          []Item
	UpdatedAt      time.Time
	SettledAt      *time.Time
}

// TotalQuantity sums the ordered quantity across all lines.
func (o Order) TotalQuantity() int {
	total := 0
	for _, item := range o.Items {
		total += item.Quantity
	}
	return total
}

// ItemByID finds a line by its identifier.
func (o Order) ItemByID(itemID string) (Item, bool) {
	for _, item := range o.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return Item{}, false
}
