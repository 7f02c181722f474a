// Package inventory is the boundary to product stock. An accepted return puts
// items back on the shelf before any money moves.
package inventory

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Adjuster restores stock counters when goods come back.
type Adjuster interface {
	RestoreStock(ctx context.Context, variantID string, qty int) error
	DecrementSoldCount(ctx context.Context, productID string, qty int) error
}

// MemoryAdjuster tracks stock adjustments in memory for tests and local runs.
type MemoryAdjuster struct {
	mu        sync.Mutex
	Stock     map[string]int
	SoldCount map[string]int
}

// NewMemoryAdjuster builds an empty in-memory adjuster.
func NewMemoryAdjuster() *MemoryAdjuster {
	return &MemoryAdjuster{Stock: make(map[string]int), SoldCount: make(map[string]int)}
}

// RestoreStock adds qty back to the variant's stock.
func (a *MemoryAdjuster) RestoreStock(_ context.Context, variantID string, qty int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Stock[variantID] += qty
	return nil
}

// DecrementSoldCount reduces the product's lifetime sold counter.
func (a *MemoryAdjuster) DecrementSoldCount(_ context.Context, productID string, qty int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.SoldCount[productID] -= qty
	return nil
}

// PostgresAdjuster applies stock corrections to the catalog tables.
type PostgresAdjuster struct {
	db *pgxpool.Pool
}

// NewPostgresAdjuster builds a Postgres-backed adjuster.
func NewPostgresAdjuster(db *pgxpool.Pool) *PostgresAdjuster {
	return &PostgresAdjuster{db: db}
}

// RestoreStock adds qty back to the variant's stock.
func (a *PostgresAdjuster) RestoreStock(ctx context.Context, variantID string, qty int) error {
	_, err := a.db.Exec(ctx, `UPDATE product_variants SET stock = stock + $1 WHERE id = $2`, qty, variantID)
	return err
}

// DecrementSoldCount reduces the product's lifetime sold counter, floored at zero.
func (a *PostgresAdjuster) DecrementSoldCount(ctx context.Context, productID string, qty int) error {
	_, err := a.db.Exec(ctx, `UPDATE products SET sold_count = GREATEST(sold_count - $1, 0) WHERE id = $2`, qty, productID)
	return err
}
