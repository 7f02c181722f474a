package settlement

import (
	"context"
	"errors"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pasarlink/pasarlink/internal/order"
)

// FeePolicy decides the platform's cut for one order. Pluggable so the fee
// scheme can change without touching the settlement flow.
type FeePolicy interface {
	Fee(ctx context.Context, o order.Order) (int64, error)
}

// FeeStore looks up persisted per-order platform fee records.
type FeeStore interface {
	FeeFor(ctx context.Context, orderID string) (int64, error)
}

// RecordedFeePolicy reads the fee from the per-order fee records, defaulting
// to zero when no record exists.
type RecordedFeePolicy struct {
	store FeeStore
}

// NewRecordedFeePolicy builds the record-driven fee policy.
func NewRecordedFeePolicy(store FeeStore) *RecordedFeePolicy {
	return &RecordedFeePolicy{store: store}
}

// Fee returns the recorded fee for the order.
func (p *RecordedFeePolicy) Fee(ctx context.Context, o order.Order) (int64, error) {
	return p.store.FeeFor(ctx, o.ID)
}

// MemoryFeeStore keeps fee records in memory for tests and local runs.
type MemoryFeeStore struct {
	mu   sync.RWMutex
	fees map[string]int64
}

// NewMemoryFeeStore builds an empty in-memory fee store.
func NewMemoryFeeStore() *MemoryFeeStore {
	return &MemoryFeeStore{fees: make(map[string]int64)}
}

// Set records the fee for an order.
func (s *MemoryFeeStore) Set(orderID string, fee int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees[orderID] = fee
}

// FeeFor returns the recorded fee, zero when absent.
func (s *MemoryFeeStore) FeeFor(_ context.Context, orderID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fees[orderID], nil
}

// PostgresFeeStore reads platform fee records from PostgreSQL.
type PostgresFeeStore struct {
	db *pgxpool.Pool
}

// NewPostgresFeeStore builds a Postgres-backed fee store.
func NewPostgresFeeStore(db *pgxpool.Pool) *PostgresFeeStore {
	return &PostgresFeeStore{db: db}
}

// FeeFor returns the recorded fee, zero when no record exists.
func (s *PostgresFeeStore) FeeFor(ctx context.Context, orderID string) (int64, error) {
	var fee int64
	err := s.db.QueryRow(ctx, `SELECT fee_amount FROM platform_fee_records WHERE order_id = $1`, orderID).Scan(&fee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return fee, nil
}
