package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore reads and writes the marketplace orders table at the boundary
// the financial core is allowed to touch.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore builds a Postgres-backed order boundary.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const orderColumns = `id, buyer_id, seller_id, total_amount, status, payment_status,
        payment_method, COALESCE(transaction_ref, ''), updated_at, settled_at`

// GetOrder fetches an order with its items.
func (s *PostgresStore) GetOrder(ctx context.Context, id string) (Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if err != nil {
		return Order{}, err
	}
	if o.Items, err = s.items(ctx, id); err != nil {
		return Order{}, err
	}
	return o, nil
}

// ListEligibleForSettlement returns completed, paid, unsettled orders whose
// last update is at or before the cutoff.
func (s *PostgresStore) ListEligibleForSettlement(ctx context.Context, cutoff time.Time) ([]Order, error) {
	rows, err := s.db.Query(ctx, `SELECT `+orderColumns+` FROM orders
        WHERE status = $1 AND payment_status = $2 AND updated_at <= $3 AND settled_at IS NULL
        ORDER BY updated_at`, string(StatusCompleted), string(PaymentPaid), cutoff.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateStatus writes the order status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	tag, err := s.db.Exec(ctx, `UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkSettled stamps the settlement marker; settling an already settled order
// is rejected so a retried batch cannot double-pay.
func (s *PostgresStore) MarkSettled(ctx context.Context, id string, at time.Time) error {
	tag, err := s.db.Exec(ctx, `UPDATE orders SET settled_at = $1 WHERE id = $2 AND settled_at IS NULL`,
		at.UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) items(ctx context.Context, orderID string) ([]Item, error) {
	rows, err := s.db.Query(ctx, `SELECT id, product_id, variant_id, quantity, unit_price
        FROM order_items WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.ProductID, &item.VariantID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	var status, paymentStatus, paymentMethod string
	if err := row.Scan(&o.ID, &o.BuyerID, &o.SellerID, &o.TotalAmount, &status, &paymentStatus,
		&paymentMethod, &o.TransactionRef, &o.UpdatedAt, &o.SettledAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	o.Status = Status(status)
	o.PaymentStatus = PaymentStatus(paymentStatus)
	o.PaymentMethod = PaymentMethod(paymentMethod)
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}
