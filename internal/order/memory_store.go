package order

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory order boundary for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]Order
}

// NewMemoryStore builds an empty in-memory order store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]Order)}
}

// Put inserts or replaces an order. Test seam; the real lifecycle is upstream.
func (s *MemoryStore) Put(o Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o
}

// GetOrder fetches an order by id.
func (s *MemoryStore) GetOrder(_ context.Context, id string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return Order{}, ErrNotFound
	}
	return o, nil
}

// ListEligibleForSettlement filters completed, paid, unsettled orders past the cutoff.
func (s *MemoryStore) ListEligibleForSettlement(_ context.Context, cutoff time.Time) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var eligible []Order
	for _, o := range s.orders {
		if o.Status != StatusCompleted || o.PaymentStatus != PaymentPaid {
			continue
		}
		if o.SettledAt != nil {
			continue
		}
		if o.UpdatedAt.After(cutoff) {
			continue
		}
		eligible = append(eligible, o)
	}
	return eligible, nil
}

// UpdateStatus writes the order status.
func (s *MemoryStore) UpdateStatus(_ context.Context, id string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	return nil
}

// MarkSettled stamps the settlement marker.
func (s *MemoryStore) MarkSettled(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return ErrNotFound
	}
	settled := at.UTC()
	o.SettledAt = &settled
	s.orders[id] = o
	return nil
}
