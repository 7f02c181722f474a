package refund

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores refunds and their line allocations in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts the refund and its items in one transaction.
func (r *PostgresRepository) Create(ctx context.Context, refund Refund) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if _, err := tx.Exec(ctx, `INSERT INTO refunds
        (id, order_id, buyer_id, status, amount, reason, evidence, requires_return, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.MustParse(refund.ID), refund.OrderID, refund.BuyerID, string(refund.Status), refund.Amount,
		refund.Reason, refund.Evidence, refund.RequiresReturn, refund.CreatedAt.UTC(), refund.UpdatedAt.UTC()); err != nil {
		return err
	}

	for _, item := range refund.Items {
		if _, err := tx.Exec(ctx, `INSERT INTO refund_items (id, refund_id, order_item_id, quantity, amount)
            VALUES ($1, $2, $3, $4, $5)`,
			uuid.New(), uuid.MustParse(refund.ID), item.OrderItemID, item.Quantity, item.Amount); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// Get fetches a refund with its items.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Refund, error) {
	refundID, err := uuid.Parse(id)
	if err != nil {
		return Refund{}, ErrNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, order_id, buyer_id, status, amount, reason, evidence, requires_return, created_at, updated_at
        FROM refunds WHERE id = $1`, refundID)
	refund, err := scanRefund(row)
	if err != nil {
		return Refund{}, err
	}
	if refund.Items, err = r.items(ctx, refundID); err != nil {
		return Refund{}, err
	}
	return refund, nil
}

// Update rewrites the mutable fields of a refund, guarded on the status the
// caller read. Items never change after creation.
func (r *PostgresRepository) Update(ctx context.Context, refund Refund, from Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE refunds SET status = $1, reason = $2, requires_return = $3, updated_at = $4
        WHERE id = $5 AND status = $6`,
		string(refund.Status), refund.Reason, refund.RequiresReturn, time.Now().UTC(), uuid.MustParse(refund.ID), string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, refund.ID); err != nil {
			return err
		}
		return ErrInvalidTransition
	}
	return nil
}

// ListByOrder returns every refund opened against the order.
func (r *PostgresRepository) ListByOrder(ctx context.Context, orderID string) ([]Refund, error) {
	rows, err := r.db.Query(ctx, `SELECT id, order_id, buyer_id, status, amount, reason, evidence, requires_return, created_at, updated_at
        FROM refunds WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refunds []Refund
	for rows.Next() {
		refund, err := scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, refund)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range refunds {
		items, err := r.items(ctx, uuid.MustParse(refunds[i].ID))
		if err != nil {
			return nil, err
		}
		refunds[i].Items = items
	}
	return refunds, nil
}

func (r *PostgresRepository) items(ctx context.Context, refundID uuid.UUID) ([]Item, error) {
	rows, err := r.db.Query(ctx, `SELECT order_item_id, quantity, amount FROM refund_items
        WHERE refund_id = $1 ORDER BY order_item_id`, refundID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.OrderItemID, &item.Quantity, &item.Amount); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanRefund(row pgx.Row) (Refund, error) {
	var refund Refund
	var id uuid.UUID
	var status string
	if err := row.Scan(&id, &refund.OrderID, &refund.BuyerID, &status, &refund.Amount,
		&refund.Reason, &refund.Evidence, &refund.RequiresReturn, &refund.CreatedAt, &refund.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Refund{}, ErrNotFound
		}
		return Refund{}, err
	}
	refund.ID = id.String()
	refund.Status = Status(status)
	refund.CreatedAt = refund.CreatedAt.UTC()
	refund.UpdatedAt = refund.UpdatedAt.UTC()
	return refund, nil
}
