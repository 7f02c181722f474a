package wallet

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientBalance occurs when a debit would take a wallet below zero.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrWalletNotFound indicates an operation referenced a wallet that was
	// never provisioned. The service auto-provisions before every operation,
	// so callers outside this package should not observe it.
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrInvalidAmount occurs when an operation is given a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

// EntrySpec carries the ledger metadata for a single posting. The amount and
// its sign are supplied by the operation, not the spec.
type EntrySpec struct {
	Type        EntryType
	Description string
	OrderID     string
}

// Store persists wallets and their append-only ledger. Every mutating call is
// atomic per wallet: the balance update and the ledger append commit together,
// and concurrent calls against the same wallet are serialized. Transfer is
// additionally all-or-nothing across both wallets.
type Store interface {
	GetOrCreate(ctx context.Context, ownerID string, kind OwnerKind) (Wallet, error)
	Get(ctx context.Context, ownerID string) (Wallet, error)

	// Credit increases the balance and appends one positive entry. The wallet
	// is provisioned on first use.
	Credit(ctx context.Context, ownerID string, kind OwnerKind, amount int64, entry EntrySpec) (Wallet, error)

	// Debit decreases the balance and appends one negative entry. Fails with
	// ErrInsufficientBalance before any write when funds are too low.
	Debit(ctx context.Context, ownerID string, amount int64, entry EntrySpec) (Wallet, error)

	// Transfer debits from and credits to as one atomic unit. Both wallets
	// must already exist.
	Transfer(ctx context.Context, fromOwnerID, toOwnerID string, amount int64, debit, credit EntrySpec) (Wallet, Wallet, error)

	// RecordFee appends an informational entry with no balance effect.
	RecordFee(ctx context.Context, ownerID string, amount int64, entry EntrySpec) error

	// Entries lists the wallet's ledger, newest first.
	Entries(ctx context.Context, ownerID string, limit int) ([]LedgerEntry, error)
}
