package wallet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryStoreReconciliation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.Credit(ctx, "buyer-1", OwnerBuyer, 5_000, EntrySpec{Type: EntryDeposit, Description: "top up"}); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if _, err := store.Debit(ctx, "buyer-1", 1_200, EntrySpec{Type: EntryWithdrawal, Description: "payout"}); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if _, err := store.Credit(ctx, "buyer-1", OwnerBuyer, 300, EntrySpec{Type: EntryRefund, Description: "refund", OrderID: "ord-1"}); err != nil {
		t.Fatalf("refund credit: %v", err)
	}

	w, err := store.Get(ctx, "buyer-1")
	if err != nil {
		t.Fatalf("get wallet: %v", err)
	}
	if w.Balance != 4_100 {
		t.Fatalf("expected balance 4100, got %d", w.Balance)
	}

	entries, err := store.Entries(ctx, "buyer-1", 0)
	if err != nil {
		t.Fatalf("entries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if sum := ReconciliationSum(entries); sum != w.Balance {
		t.Fatalf("reconciliation broken: balance=%d sum=%d", w.Balance, sum)
	}
}

func TestMemoryStoreDebitInsufficientLeavesStateUntouched(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	SeedBalance(store, "buyer-1", OwnerBuyer, 1_000)

	if _, err := store.Debit(ctx, "buyer-1", 1_500, EntrySpec{Type: EntryWithdrawal}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	w, _ := store.Get(ctx, "buyer-1")
	if w.Balance != 1_000 {
		t.Fatalf("balance changed on failed debit: %d", w.Balance)
	}
	entries, _ := store.Entries(ctx, "buyer-1", 0)
	if len(entries) != 1 {
		t.Fatalf("expected only the seed entry, got %d", len(entries))
	}
}

func TestMemoryStoreTransferAtomicity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	SeedBalance(store, "platform", OwnerPlatform, 10_000)
	if _, err := store.GetOrCreate(ctx, "seller-1", OwnerSeller); err != nil {
		t.Fatalf("provision seller: %v", err)
	}

	spec := EntrySpec{Type: EntryPaymentToSeller, Description: "settlement", OrderID: "ord-1"}
	from, to, err := store.Transfer(ctx, "platform", "seller-1", 4_000, spec, spec)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if from.Balance != 6_000 || to.Balance != 4_000 {
		t.Fatalf("unexpected balances after transfer: from=%d to=%d", from.Balance, to.Balance)
	}

	fromEntries, _ := store.Entries(ctx, "platform", 0)
	toEntries, _ := store.Entries(ctx, "seller-1", 0)
	if len(fromEntries) != 2 || fromEntries[0].Amount != -4_000 {
		t.Fatalf("expected one debit entry of -4000 on platform, got %+v", fromEntries)
	}
	if len(toEntries) != 1 || toEntries[0].Amount != 4_000 {
		t.Fatalf("expected one credit entry of 4000 on seller, got %+v", toEntries)
	}

	// Failed transfer produces no entries on either side.
	if _, _, err := store.Transfer(ctx, "platform", "seller-1", 100_000, spec, spec); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	fromEntries, _ = store.Entries(ctx, "platform", 0)
	toEntries, _ = store.Entries(ctx, "seller-1", 0)
	if len(fromEntries) != 2 || len(toEntries) != 1 {
		t.Fatalf("failed transfer left entries behind: from=%d to=%d", len(fromEntries), len(toEntries))
	}
}

func TestMemoryStoreConcurrentWithdrawExactlyOneWins(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	SeedBalance(store, "buyer-1", OwnerBuyer, 1_000)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Debit(ctx, "buyer-1", 600, EntrySpec{Type: EntryWithdrawal})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, failed int
	for err := range results {
		if err == nil {
			succeeded++
		} else if errors.Is(err, ErrInsufficientBalance) {
			failed++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 || failed != 1 {
		t.Fatalf("expected exactly one success and one insufficient-balance failure, got %d/%d", succeeded, failed)
	}

	w, _ := store.Get(ctx, "buyer-1")
	if w.Balance != 400 {
		t.Fatalf("expected final balance 400, got %d", w.Balance)
	}
}

func TestMemoryStoreConcurrentDepositsReconcile(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := store.Credit(ctx, "seller-1", OwnerSeller, 50, EntrySpec{
				Type:        EntryDeposit,
				Description: fmt.Sprintf("deposit %d", i),
			}); err != nil {
				t.Errorf("credit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	w, _ := store.Get(ctx, "seller-1")
	if w.Balance != workers*50 {
		t.Fatalf("expected balance %d, got %d", workers*50, w.Balance)
	}
	entries, _ := store.Entries(ctx, "seller-1", 0)
	if len(entries) != workers {
		t.Fatalf("expected %d entries, got %d", workers, len(entries))
	}
	if sum := ReconciliationSum(entries); sum != w.Balance {
		t.Fatalf("reconciliation broken after concurrency: balance=%d sum=%d", w.Balance, sum)
	}
}

func TestMemoryStoreFeeEntryHasNoBalanceEffect(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	SeedBalance(store, "platform", OwnerPlatform, 2_000)

	if err := store.RecordFee(ctx, "platform", 500, EntrySpec{Description: "fee for ord-1", OrderID: "ord-1"}); err != nil {
		t.Fatalf("record fee: %v", err)
	}

	w, _ := store.Get(ctx, "platform")
	if w.Balance != 2_000 {
		t.Fatalf("fee entry moved balance: %d", w.Balance)
	}
	entries, _ := store.Entries(ctx, "platform", 0)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Type != EntryPlatformFee || entries[0].Amount != 500 {
		t.Fatalf("unexpected fee entry: %+v", entries[0])
	}
	if sum := ReconciliationSum(entries); sum != w.Balance {
		t.Fatalf("fee entry broke reconciliation: balance=%d sum=%d", w.Balance, sum)
	}
}
