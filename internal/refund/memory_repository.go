package refund

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Refund
}

// NewMemoryRepository constructs an in-memory repository for tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Refund)}
}

func (r *memoryRepository) Create(_ context.Context, refund Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.storage[refund.ID]; exists {
		return errors.New("refund exists")
	}
	r.storage[refund.ID] = refund
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	refund, ok := r.storage[id]
	if !ok {
		return Refund{}, ErrNotFound
	}
	return refund, nil
}

func (r *memoryRepository) Update(_ context.Context, refund Refund, from Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.storage[refund.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Status != from {
		return fmt.Errorf("update from %s: %w", current.Status, ErrInvalidTransition)
	}
	r.storage[refund.ID] = refund
	return nil
}

func (r *memoryRepository) ListByOrder(_ context.Context, orderID string) ([]Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Refund
	for _, refund := range r.storage {
		if refund.OrderID == orderID {
			out = append(out, refund)
		}
	}
	return out, nil
}
