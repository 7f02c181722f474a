package wallet

import "time"

// OwnerKind identifies which side of the marketplace a wallet belongs to.
type OwnerKind string

const (
	OwnerBuyer    OwnerKind = "BUYER"
	OwnerSeller   OwnerKind = "SELLER"
	OwnerPlatform OwnerKind = "PLATFORM"
)

// Valid reports whether the kind is one of the known owner kinds.
func (k OwnerKind) Valid() bool {
	switch k {
	case OwnerBuyer, OwnerSeller, OwnerPlatform:
		return true
	default:
		return false
	}
}

// EntryType classifies a ledger entry.
type EntryType string

const (
	EntryDeposit         EntryType = "DEPOSIT"
	EntryWithdrawal      EntryType = "WITHDRAWAL"
	EntryRefund          EntryType = "REFUND"
	EntryOrderPayment    EntryType = "ORDER_PAYMENT"
	EntryPaymentToSeller EntryType = "PAYMENT_TO_SELLER"
	EntryPlatformFee     EntryType = "PLATFORM_FEE"
)

// CreditType reports whether the type may be used for a wallet credit.
func (t EntryType) CreditType() bool {
	switch t {
	case EntryDeposit, EntryRefund, EntryOrderPayment, EntryPaymentToSeller:
		return true
	default:
		return false
	}
}

// Informational reports whether entries of this type carry no balance effect.
// PLATFORM_FEE entries record fee revenue only and are excluded from the
// reconciliation sum.
func (t EntryType) Informational() bool {
	return t == EntryPlatformFee
}

// Wallet is a stored-value account for a single owner. Balance is kept in
// currency minor units and never goes negative.
type Wallet struct {
	ID        string
	OwnerID   string
	OwnerKind OwnerKind
	Balance   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LedgerEntry is an immutable record of a single balance-affecting event.
// Amount is signed: positive for credits, negative for debits. PLATFORM_FEE
// entries carry a positive amount but do not move balance.
type LedgerEntry struct {
	ID          string
	WalletID    string
	Type        EntryType
	Amount      int64
	Description string
	OrderID     string
	CreatedAt   time.Time
}
