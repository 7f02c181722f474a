package order

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the referenced order does not exist.
var ErrNotFound = errors.New("order not found")

// Store is the order collaborator contract. Only the operations the financial
// core needs are exposed.
type Store interface {
	GetOrder(ctx context.Context, id string) (Order, error)

	// ListEligibleForSettlement returns orders that are COMPLETED, PAID, were
	// last updated at or before the cutoff, and have not been settled yet.
	ListEligibleForSettlement(ctx context.Context, cutoff time.Time) ([]Order, error)

	UpdateStatus(ctx context.Context, id string, status Status) error

	// MarkSettled stamps the order so a retried settlement batch cannot pay
	// it twice.
	MarkSettled(ctx context.Context, id string, at time.Time) error
}
