package wallet

import (
	"context"
	"fmt"
)

// Service owns every balance mutation rule. No other component writes to the
// store; callers describe the movement and the service decides the ledger
// posting.
type Service struct {
	store Store
}

// NewService builds a wallet service instance.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// GetOrCreate returns the owner's wallet, provisioning it with balance 0 on
// first access.
func (s *Service) GetOrCreate(ctx context.Context, ownerID string, kind OwnerKind) (Wallet, error) {
	if ownerID == "" {
		return Wallet{}, fmt.Errorf("owner id is required")
	}
	if !kind.Valid() {
		return Wallet{}, fmt.Errorf("unknown owner kind %q", kind)
	}
	return s.store.GetOrCreate(ctx, ownerID, kind)
}

// Balance returns the current balance for the owner, provisioning the wallet
// if it does not exist yet.
func (s *Service) Balance(ctx context.Context, ownerID string, kind OwnerKind) (int64, error) {
	w, err := s.GetOrCreate(ctx, ownerID, kind)
	if err != nil {
		return 0, err
	}
	return w.Balance, nil
}

// DepositInput captures a wallet credit. Type selects the semantic ledger
// entry type; it defaults to DEPOSIT and must be a credit type.
type DepositInput struct {
	OwnerID     string
	OwnerKind   OwnerKind
	Amount      int64
	Type        EntryType
	Description string
	OrderID     string
}

// Deposit increases the owner's balance and appends exactly one credit entry.
func (s *Service) Deposit(ctx context.Context, input DepositInput) (Wallet, error) {
	if input.Amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}
	if input.Type == "" {
		input.Type = EntryDeposit
	}
	if !input.Type.CreditType() {
		return Wallet{}, fmt.Errorf("entry type %s cannot be used for a credit", input.Type)
	}
	if _, err := s.GetOrCreate(ctx, input.OwnerID, input.OwnerKind); err != nil {
		return Wallet{}, err
	}
	return s.store.Credit(ctx, input.OwnerID, input.OwnerKind, input.Amount, EntrySpec{
		Type:        input.Type,
		Description: input.Description,
		OrderID:     input.OrderID,
	})
}

// WithdrawInput captures a wallet debit.
type WithdrawInput struct {
	OwnerID     string
	OwnerKind   OwnerKind
	Amount      int64
	Description string
	OrderID     string
}

// Withdraw decreases the owner's balance, failing with ErrInsufficientBalance
// before any write when funds are too low.
func (s *Service) Withdraw(ctx context.Context, input WithdrawInput) (Wallet, error) {
	if input.Amount <= 0 {
		return Wallet{}, ErrInvalidAmount
	}
	if _, err := s.GetOrCreate(ctx, input.OwnerID, input.OwnerKind); err != nil {
		return Wallet{}, err
	}
	return s.store.Debit(ctx, input.OwnerID, input.Amount, EntrySpec{
		Type:        EntryWithdrawal,
		Description: input.Description,
		OrderID:     input.OrderID,
	})
}

// TransferInput captures an atomic movement between two wallets. Type is the
// semantic entry type applied to both postings (debit on from, credit on to).
type TransferInput struct {
	FromOwnerID string
	FromKind    OwnerKind
	ToOwnerID   string
	ToKind      OwnerKind
	Amount      int64
	Type        EntryType
	Description string
	OrderID     string
}

// Transfer moves funds between two wallets as one atomic unit: either both
// the debit and the credit commit, with one ledger entry each, or neither does.
func (s *Service) Transfer(ctx context.Context, input TransferInput) (Wallet, Wallet, error) {
	if input.Amount <= 0 {
		return Wallet{}, Wallet{}, ErrInvalidAmount
	}
	if input.FromOwnerID == input.ToOwnerID {
		return Wallet{}, Wallet{}, fmt.Errorf("cannot transfer to the same wallet")
	}
	if input.Type == "" {
		input.Type = EntryDeposit
	}
	if !input.Type.CreditType() {
		return Wallet{}, Wallet{}, fmt.Errorf("entry type %s cannot be used for a transfer", input.Type)
	}
	if _, err := s.GetOrCreate(ctx, input.FromOwnerID, input.FromKind); err != nil {
		return Wallet{}, Wallet{}, err
	}
	if _, err := s.GetOrCreate(ctx, input.ToOwnerID, input.ToKind); err != nil {
		return Wallet{}, Wallet{}, err
	}
	spec := EntrySpec{Type: input.Type, Description: input.Description, OrderID: input.OrderID}
	return s.store.Transfer(ctx, input.FromOwnerID, input.ToOwnerID, input.Amount, spec, spec)
}

// FeeInput captures an informational platform fee record.
type FeeInput struct {
	OwnerID     string
	OwnerKind   OwnerKind
	Amount      int64
	Description string
	OrderID     string
}

// RecordFee writes a PLATFORM_FEE ledger entry with no balance effect.
func (s *Service) RecordFee(ctx context.Context, input FeeInput) error {
	if input.Amount <= 0 {
		return ErrInvalidAmount
	}
	if _, err := s.GetOrCreate(ctx, input.OwnerID, input.OwnerKind); err != nil {
		return err
	}
	return s.store.RecordFee(ctx, input.OwnerID, input.Amount, EntrySpec{
		Description: input.Description,
		OrderID:     input.OrderID,
	})
}

// Entries returns the owner's ledger history, newest first.
func (s *Service) Entries(ctx context.Context, ownerID string, limit int) ([]LedgerEntry, error) {
	return s.store.Entries(ctx, ownerID, limit)
}
