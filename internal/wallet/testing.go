package wallet

import "context"

// SeedBalance is a test helper that funds a wallet through a regular deposit
// entry so the reconciliation invariant keeps holding.
func SeedBalance(store Store, ownerID string, kind OwnerKind, amount int64) {
	_, _ = store.Credit(context.Background(), ownerID, kind, amount, EntrySpec{
		Type:        EntryDeposit,
		Description: "seed",
	})
}

// ReconciliationSum adds up the signed amounts of the wallet's entries,
// skipping informational PLATFORM_FEE entries. After any committed operation
// it must equal the wallet balance.
func ReconciliationSum(entries []LedgerEntry) int64 {
	var sum int64
	for _, e := range entries {
		if e.Type.Informational() {
			continue
		}
		sum += e.Amount
	}
	return sum
}
