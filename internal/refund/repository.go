package refund

import "context"

// Repository persists refund aggregates. Refunds are never physically deleted.
type Repository interface {
	Create(ctx context.Context, r Refund) error
	Get(ctx context.Context, id string) (Refund, error)

	// Update writes the refund only while its stored status still equals
	// from, failing with ErrInvalidTransition otherwise. The guard keeps a
	// transition from committing over a state someone else already changed.
	Update(ctx context.Context, r Refund, from Status) error

	ListByOrder(ctx context.Context, orderID string) ([]Refund, error)
}
