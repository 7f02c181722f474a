package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists wallets and ledger entries in PostgreSQL. Row locks
// (SELECT ... FOR UPDATE) serialize the read-modify-write per wallet, and the
// balance update commits in the same transaction as the ledger append.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed wallet store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetOrCreate provisions the wallet with balance 0 on first access.
func (s *PostgresStore) GetOrCreate(ctx context.Context, ownerID string, kind OwnerKind) (Wallet, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO wallets (id, owner_id, owner_kind, balance, created_at, updated_at)
        VALUES ($1, $2, $3, 0, $4, $4)
        ON CONFLICT (owner_id) DO NOTHING`, uuid.New(), ownerID, string(kind), now)
	if err != nil {
		return Wallet{}, err
	}
	return s.Get(ctx, ownerID)
}

// Get fetches a wallet by owner identifier.
func (s *PostgresStore) Get(ctx context.Context, ownerID string) (Wallet, error) {
	row := s.db.QueryRow(ctx, `SELECT id, owner_id, owner_kind, balance, created_at, updated_at
        FROM wallets WHERE owner_id = $1`, ownerID)
	return scanWallet(row)
}

// Credit increases the balance and appends one positive ledger entry.
func (s *PostgresStore) Credit(ctx context.Context, ownerID string, kind OwnerKind, amount int64, entry EntrySpec) (Wallet, error) {
	if amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}
	if _, err := s.GetOrCreate(ctx, ownerID, kind); err != nil {
		return Wallet{}, err
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, tx, ownerID)
	if err != nil {
		return Wallet{}, err
	}

	w, err = applyDelta(ctx, tx, w, amount)
	if err != nil {
		return Wallet{}, err
	}
	if err := appendEntry(ctx, tx, w.ID, entry.Type, amount, entry); err != nil {
		return Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Debit decreases the balance and appends one negative ledger entry.
func (s *PostgresStore) Debit(ctx context.Context, ownerID string, amount int64, entry EntrySpec) (Wallet, error) {
	if amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	w, err := lockWallet(ctx, tx, ownerID)
	if err != nil {
		return Wallet{}, err
	}
	if w.Balance < amount {
		return Wallet{}, ErrInsufficientBalance
	}

	w, err = applyDelta(ctx, tx, w, -amount)
	if err != nil {
		return Wallet{}, err
	}
	if err := appendEntry(ctx, tx, w.ID, entry.Type, -amount, entry); err != nil {
		return Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// Transfer moves funds between two wallets inside one transaction: both
// balance updates and both ledger appends commit together or not at all.
func (s *PostgresStore) Transfer(ctx context.Context, fromOwnerID, toOwnerID string, amount int64, debit, credit EntrySpec) (Wallet, Wallet, error) {
	if amount <= 0 {
		return Wallet{}, Wallet{}, ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Wallet{}, Wallet{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// Lock rows in a stable order so concurrent opposite-direction transfers
	// cannot deadlock.
	first, second := fromOwnerID, toOwnerID
	if second < first {
		first, second = second, first
	}
	locked := make(map[string]Wallet, 2)
	for _, ownerID := range []string{first, second} {
		w, err := lockWallet(ctx, tx, ownerID)
		if err != nil {
			return Wallet{}, Wallet{}, err
		}
		locked[ownerID] = w
	}

	from, to := locked[fromOwnerID], locked[toOwnerID]
	if from.Balance < amount {
		return Wallet{}, Wallet{}, ErrInsufficientBalance
	}

	from, err = applyDelta(ctx, tx, from, -amount)
	if err != nil {
		return Wallet{}, Wallet{}, err
	}
	to, err = applyDelta(ctx, tx, to, amount)
	if err != nil {
		return Wallet{}, Wallet{}, err
	}
	if err := appendEntry(ctx, tx, from.ID, debit.Type, -amount, debit); err != nil {
		return Wallet{}, Wallet{}, err
	}
	if err := appendEntry(ctx, tx, to.ID, credit.Type, amount, credit); err != nil {
		return Wallet{}, Wallet{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Wallet{}, Wallet{}, err
	}
	return from, to, nil
}

// RecordFee appends a PLATFORM_FEE entry without touching the balance.
func (s *PostgresStore) RecordFee(ctx context.Context, ownerID string, amount int64, entry EntrySpec) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	w, err := s.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO ledger_entries (id, wallet_id, entry_type, amount, description, order_id, created_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`,
		uuid.New(), w.ID, string(EntryPlatformFee), amount, entry.Description, entry.OrderID, time.Now().UTC())
	return err
}

// Entries lists ledger entries for a wallet, newest first.
func (s *PostgresStore) Entries(ctx context.Context, ownerID string, limit int) ([]LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	w, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `SELECT id, wallet_id, entry_type, amount, description, COALESCE(order_id, ''), created_at
        FROM ledger_entries WHERE wallet_id = $1 ORDER BY created_at DESC LIMIT $2`, w.ID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []LedgerEntry
	for rows.Next() {
		var e LedgerEntry
		var id, walletID uuid.UUID
		var entryType string
		if err := rows.Scan(&id, &walletID, &entryType, &e.Amount, &e.Description, &e.OrderID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.WalletID = walletID.String()
		e.Type = EntryType(entryType)
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func lockWallet(ctx context.Context, tx pgx.Tx, ownerID string) (Wallet, error) {
	row := tx.QueryRow(ctx, `SELECT id, owner_id, owner_kind, balance, created_at, updated_at
        FROM wallets WHERE owner_id = $1 FOR UPDATE`, ownerID)
	w, err := scanWallet(row)
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return Wallet{}, fmt.Errorf("wallet for owner %s: %w", ownerID, ErrWalletNotFound)
		}
		return Wallet{}, err
	}
	return w, nil
}

func applyDelta(ctx context.Context, tx pgx.Tx, w Wallet, delta int64) (Wallet, error) {
	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1, updated_at = $2 WHERE id = $3`,
		delta, now, uuid.MustParse(w.ID)); err != nil {
		return Wallet{}, err
	}
	w.Balance += delta
	w.UpdatedAt = now
	return w, nil
}

func appendEntry(ctx context.Context, tx pgx.Tx, walletID string, entryType EntryType, signedAmount int64, spec EntrySpec) error {
	_, err := tx.Exec(ctx, `INSERT INTO ledger_entries (id, wallet_id, entry_type, amount, description, order_id, created_at)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)`,
		uuid.New(), uuid.MustParse(walletID), string(entryType), signedAmount, spec.Description, spec.OrderID, time.Now().UTC())
	return err
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var w Wallet
	var id uuid.UUID
	var kind string
	if err := row.Scan(&id, &w.OwnerID, &kind, &w.Balance, &w.CreatedAt, &w.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.OwnerKind = OwnerKind(kind)
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}
