package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pasarlink/pasarlink/internal/syncutil"
)

type memoryStore struct {
	locks syncutil.KeyMutex

	mu      sync.RWMutex
	wallets map[string]Wallet
	entries map[string][]LedgerEntry
}

// NewMemoryStore creates a concurrency-safe in-memory store useful for unit
// tests and local development. Per-wallet operations are serialized through a
// sharded key mutex so the read-modify-write never interleaves.
func NewMemoryStore() Store {
	return &memoryStore{
		wallets: make(map[string]Wallet),
		entries: make(map[string][]LedgerEntry),
	}
}

func (s *memoryStore) GetOrCreate(_ context.Context, ownerID string, kind OwnerKind) (Wallet, error) {
	unlock := s.locks.Lock(ownerID)
	defer unlock()
	return s.ensure(ownerID, kind), nil
}

func (s *memoryStore) Get(_ context.Context, ownerID string) (Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.wallets[ownerID]
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	return w, nil
}

func (s *memoryStore) Credit(_ context.Context, ownerID string, kind OwnerKind, amount int64, entry EntrySpec) (Wallet, error) {
	if amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}

	unlock := s.locks.Lock(ownerID)
	defer unlock()

	w := s.ensure(ownerID, kind)
	w.Balance += amount
	w.UpdatedAt = time.Now().UTC()
	s.put(w, LedgerEntry{
		WalletID:    w.ID,
		Type:        entry.Type,
		Amount:      amount,
		Description: entry.Description,
		OrderID:     entry.OrderID,
	})
	return w, nil
}

func (s *memoryStore) Debit(_ context.Context, ownerID string, amount int64, entry EntrySpec) (Wallet, error) {
	if amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}

	unlock := s.locks.Lock(ownerID)
	defer unlock()

	s.mu.RLock()
	w, ok := s.wallets[ownerID]
	s.mu.RUnlock()
	if !ok {
		return Wallet{}, ErrWalletNotFound
	}
	if w.Balance < amount {
		return Wallet{}, ErrInsufficientBalance
	}

	w.Balance -= amount
	w.UpdatedAt = time.Now().UTC()
	s.put(w, LedgerEntry{
		WalletID:    w.ID,
		Type:        entry.Type,
		Amount:      -amount,
		Description: entry.Description,
		OrderID:     entry.OrderID,
	})
	return w, nil
}

func (s *memoryStore) Transfer(_ context.Context, fromOwnerID, toOwnerID string, amount int64, debit, credit EntrySpec) (Wallet, Wallet, error) {
	if amount <= 0 {
		return Wallet{}, Wallet{}, ErrInvalidAmount
	}

	unlock := s.locks.LockPair(fromOwnerID, toOwnerID)
	defer unlock()

	s.mu.RLock()
	from, fromOK := s.wallets[fromOwnerID]
	to, toOK := s.wallets[toOwnerID]
	s.mu.RUnlock()
	if !fromOK || !toOK {
		return Wallet{}, Wallet{}, ErrWalletNotFound
	}
	if from.Balance < amount {
		return Wallet{}, Wallet{}, ErrInsufficientBalance
	}

	now := time.Now().UTC()
	from.Balance -= amount
	from.UpdatedAt = now
	to.Balance += amount
	to.UpdatedAt = now

	s.put(from, LedgerEntry{
		WalletID:    from.ID,
		Type:        debit.Type,
		Amount:      -amount,
		Description: debit.Description,
		OrderID:     debit.OrderID,
	})
	s.put(to, LedgerEntry{
		WalletID:    to.ID,
		Type:        credit.Type,
		Amount:      amount,
		Description: credit.Description,
		OrderID:     credit.OrderID,
	})
	return from, to, nil
}

func (s *memoryStore) RecordFee(_ context.Context, ownerID string, amount int64, entry EntrySpec) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	unlock := s.locks.Lock(ownerID)
	defer unlock()

	s.mu.RLock()
	w, ok := s.wallets[ownerID]
	s.mu.RUnlock()
	if !ok {
		return ErrWalletNotFound
	}

	// No balance mutation: fee entries are informational only.
	s.put(w, LedgerEntry{
		WalletID:    w.ID,
		Type:        EntryPlatformFee,
		Amount:      amount,
		Description: entry.Description,
		OrderID:     entry.OrderID,
	})
	return nil
}

func (s *memoryStore) Entries(_ context.Context, ownerID string, limit int) ([]LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.entries[ownerID]
	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	out := make([]LedgerEntry, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// ensure returns the wallet for ownerID, provisioning it with balance 0 on
// first access. Callers must hold the owner's key lock.
func (s *memoryStore) ensure(ownerID string, kind OwnerKind) Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w, ok := s.wallets[ownerID]; ok {
		return w
	}
	now := time.Now().UTC()
	w := Wallet{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		OwnerKind: kind,
		Balance:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.wallets[ownerID] = w
	return w
}

// put commits the updated wallet together with its ledger entry so readers
// never observe one without the other.
func (s *memoryStore) put(w Wallet, e LedgerEntry) {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[w.OwnerID] = w
	s.entries[w.OwnerID] = append(s.entries[w.OwnerID], e)
}
