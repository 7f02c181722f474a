package settlement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pasarlink/pasarlink/internal/identity"
	"github.com/pasarlink/pasarlink/internal/logging"
	"github.com/pasarlink/pasarlink/internal/order"
	"github.com/pasarlink/pasarlink/internal/wallet"
)

const platformID = "platform"

type fixture struct {
	svc     *Service
	orders  *order.MemoryStore
	fees    *MemoryFeeStore
	wallets *wallet.Service
	store   wallet.Store
}

func newFixture(t *testing.T, resolver identity.Resolver) *fixture {
	t.Helper()
	orders := order.NewMemoryStore()
	fees := NewMemoryFeeStore()
	walletStore := wallet.NewMemoryStore()
	wallets := wallet.NewService(walletStore)
	if resolver == nil {
		resolver = identity.NewOrderResolver(orders, platformID)
	}
	svc := NewService(orders, NewRecordedFeePolicy(fees), wallets, resolver, nil, logging.Discard())
	return &fixture{svc: svc, orders: orders, fees: fees, wallets: wallets, store: walletStore}
}

func eligibleOrder(id, sellerID string, total int64) order.Order {
	return order.Order{
		ID:            id,
		BuyerID:       "buyer-1",
		SellerID:      sellerID,
		TotalAmount:   total,
		Status:        order.StatusCompleted,
		PaymentStatus: order.PaymentPaid,
		PaymentMethod: order.MethodBankTransfer,
		UpdatedAt:     time.Now().UTC().AddDate(0, 0, -10),
	}
}

func TestFindEligibleFilters(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.orders.Put(eligibleOrder("ord-1", "seller-1", 100_000))

	recent := eligibleOrder("ord-2", "seller-1", 100_000)
	recent.UpdatedAt = time.Now().UTC()
	f.orders.Put(recent)

	unpaid := eligibleOrder("ord-3", "seller-1", 100_000)
	unpaid.PaymentStatus = order.PaymentUnpaid
	f.orders.Put(unpaid)

	settled := eligibleOrder("ord-4", "seller-1", 100_000)
	at := time.Now().UTC()
	settled.SettledAt = &at
	f.orders.Put(settled)

	cancelled := eligibleOrder("ord-5", "seller-1", 100_000)
	cancelled.Status = order.StatusCancelled
	f.orders.Put(cancelled)

	eligible, err := f.svc.FindEligible(ctx, 7)
	if err != nil {
		t.Fatalf("find eligible: %v", err)
	}
	if len(eligible) != 1 || eligible[0].ID != "ord-1" {
		t.Fatalf("expected only ord-1 eligible, got %+v", eligible)
	}
}

func TestSettleOnePaysSellerNetOfFee(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	wallet.SeedBalance(f.store, platformID, wallet.OwnerPlatform, 1_000_000)

	o := eligibleOrder("ord-1", "seller-1", 200_000)
	f.orders.Put(o)
	f.fees.Set("ord-1", 20_000)

	if err := f.svc.SettleOne(ctx, o); err != nil {
		t.Fatalf("settle one: %v", err)
	}

	platformBalance, _ := f.wallets.Balance(ctx, platformID, wallet.OwnerPlatform)
	if platformBalance != 820_000 {
		t.Fatalf("expected platform balance 820000, got %d", platformBalance)
	}
	sellerBalance, _ := f.wallets.Balance(ctx, "seller-1", wallet.OwnerSeller)
	if sellerBalance != 180_000 {
		t.Fatalf("expected seller balance 180000, got %d", sellerBalance)
	}

	entries, _ := f.wallets.Entries(ctx, platformID, 10)
	var feeEntries int
	for _, e := range entries {
		if e.Type == wallet.EntryPlatformFee {
			feeEntries++
			if e.Amount != 20_000 {
				t.Fatalf("expected fee entry of 20000, got %d", e.Amount)
			}
		}
	}
	if feeEntries != 1 {
		t.Fatalf("expected exactly one PLATFORM_FEE entry, got %d", feeEntries)
	}
	if sum := wallet.ReconciliationSum(entries); sum != platformBalance {
		t.Fatalf("fee entry broke reconciliation: balance=%d sum=%d", platformBalance, sum)
	}

	got, _ := f.orders.GetOrder(ctx, "ord-1")
	if got.SettledAt == nil {
		t.Fatal("order not marked settled")
	}
}

func TestSettleOneSkipsWhenNothingToPay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	wallet.SeedBalance(f.store, platformID, wallet.OwnerPlatform, 1_000_000)

	o := eligibleOrder("ord-1", "seller-1", 10_000)
	f.orders.Put(o)
	f.fees.Set("ord-1", 10_000)

	if err := f.svc.SettleOne(ctx, o); err != nil {
		t.Fatalf("settle one: %v", err)
	}

	sellerBalance, _ := f.wallets.Balance(ctx, "seller-1", wallet.OwnerSeller)
	if sellerBalance != 0 {
		t.Fatalf("skip moved money: %d", sellerBalance)
	}
	platformBalance, _ := f.wallets.Balance(ctx, platformID, wallet.OwnerPlatform)
	if platformBalance != 1_000_000 {
		t.Fatalf("skip changed platform balance: %d", platformBalance)
	}

	// A skipped order is still stamped so later batches do not re-pick it.
	got, _ := f.orders.GetOrder(ctx, "ord-1")
	if got.SettledAt == nil {
		t.Fatal("skipped order not marked settled")
	}
	eligible, _ := f.svc.FindEligible(ctx, 7)
	if len(eligible) != 0 {
		t.Fatalf("skipped order stayed eligible: %+v", eligible)
	}
}

type flakyResolver struct {
	identity.Resolver
	failFor string
}

func (r flakyResolver) WalletOwners(ctx context.Context, orderID string) (identity.Owners, error) {
	if orderID == r.failFor {
		return identity.Owners{}, fmt.Errorf("seller lookup failed for %s", orderID)
	}
	return r.Resolver.WalletOwners(ctx, orderID)
}

func TestSettleBatchIsolatesFailures(t *testing.T) {
	orders := order.NewMemoryStore()
	base := identity.NewOrderResolver(orders, platformID)
	f := newFixture(t, flakyResolver{Resolver: base, failFor: "ord-2"})
	// the fixture built its own order store; swap in the shared one
	f.orders = orders
	f.svc.orders = orders
	ctx := context.Background()
	wallet.SeedBalance(f.store, platformID, wallet.OwnerPlatform, 1_000_000)

	for i := 1; i <= 3; i++ {
		f.orders.Put(eligibleOrder(fmt.Sprintf("ord-%d", i), fmt.Sprintf("seller-%d", i), 100_000))
	}

	result, err := f.svc.SettleBatch(ctx, 7)
	if err != nil {
		t.Fatalf("settle batch: %v", err)
	}
	if result.Succeeded != 2 || result.Failed != 1 {
		t.Fatalf("expected succeeded=2 failed=1, got %+v", result)
	}

	for _, sellerID := range []string{"seller-1", "seller-3"} {
		balance, _ := f.wallets.Balance(ctx, sellerID, wallet.OwnerSeller)
		if balance != 100_000 {
			t.Fatalf("expected %s paid 100000, got %d", sellerID, balance)
		}
	}
	balance, _ := f.wallets.Balance(ctx, "seller-2", wallet.OwnerSeller)
	if balance != 0 {
		t.Fatalf("failed order must not pay out, seller-2 balance=%d", balance)
	}

	// The failed order is still eligible for the next run.
	eligible, _ := f.svc.FindEligible(ctx, 7)
	if len(eligible) != 1 || eligible[0].ID != "ord-2" {
		t.Fatalf("expected only ord-2 to remain eligible, got %+v", eligible)
	}
}

func TestSettledOrderIsNotPaidTwice(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	wallet.SeedBalance(f.store, platformID, wallet.OwnerPlatform, 1_000_000)

	f.orders.Put(eligibleOrder("ord-1", "seller-1", 100_000))

	if _, err := f.svc.SettleBatch(ctx, 7); err != nil {
		t.Fatalf("first batch: %v", err)
	}
	result, err := f.svc.SettleBatch(ctx, 7)
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if result.Succeeded != 0 || result.Failed != 0 {
		t.Fatalf("second batch touched settled order: %+v", result)
	}

	balance, _ := f.wallets.Balance(ctx, "seller-1", wallet.OwnerSeller)
	if balance != 100_000 {
		t.Fatalf("seller paid twice: %d", balance)
	}
}

func TestSettleOneInsufficientEscrowFails(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	wallet.SeedBalance(f.store, platformID, wallet.OwnerPlatform, 50_000)

	o := eligibleOrder("ord-1", "seller-1", 100_000)
	f.orders.Put(o)

	if err := f.svc.SettleOne(ctx, o); !errors.Is(err, wallet.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}

	got, _ := f.orders.GetOrder(ctx, "ord-1")
	if got.SettledAt != nil {
		t.Fatal("failed settlement must not mark the order settled")
	}
	balance, _ := f.wallets.Balance(ctx, "seller-1", wallet.OwnerSeller)
	if balance != 0 {
		t.Fatalf("failed settlement moved money: %d", balance)
	}
}
