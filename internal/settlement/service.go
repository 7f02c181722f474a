// Package settlement releases escrowed order funds to sellers once the return
// window has passed, net of the platform fee.
package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pasarlink/pasarlink/internal/identity"
	"github.com/pasarlink/pasarlink/internal/notification"
	"github.com/pasarlink/pasarlink/internal/order"
	"github.com/pasarlink/pasarlink/internal/wallet"
)

// BatchResult aggregates the outcome of one settlement run.
type BatchResult struct {
	Succeeded int
	Failed    int
}

// Service pays sellers from the platform escrow wallet.
type Service struct {
	orders   order.Store
	fees     FeePolicy
	wallets  *wallet.Service
	resolver identity.Resolver
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService wires the settlement flow.
func NewService(orders order.Store, fees FeePolicy, wallets *wallet.Service, resolver identity.Resolver, notifier notification.Notifier, logger *slog.Logger) *Service {
	return &Service{
		orders:   orders,
		fees:     fees,
		wallets:  wallets,
		resolver: resolver,
		notifier: notifier,
		logger:   logger,
	}
}

// FindEligible returns orders whose return window of returnPeriodDays has
// passed and that have not been settled yet.
func (s *Service) FindEligible(ctx context.Context, returnPeriodDays int) ([]order.Order, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -returnPeriodDays)
	return s.orders.ListEligibleForSettlement(ctx, cutoff)
}

// SettleOne releases one order's escrowed funds: platform wallet pays the
// seller the order total net of fee, the fee is recorded as an informational
// ledger entry, and the order is stamped settled.
func (s *Service) SettleOne(ctx context.Context, o order.Order) error {
	fee, err := s.fees.Fee(ctx, o)
	if err != nil {
		return fmt.Errorf("fee lookup for order %s: %w", o.ID, err)
	}

	sellerAmount := o.TotalAmount - fee
	if sellerAmount <= 0 {
		s.logger.Info("skipping settlement, nothing to pay out",
			"order_id", o.ID, "total", o.TotalAmount, "fee", fee)
		// Stamp the order anyway or every later batch re-picks it.
		if err := s.orders.MarkSettled(ctx, o.ID, time.Now().UTC()); err != nil {
			return fmt.Errorf("mark order %s settled: %w", o.ID, err)
		}
		return nil
	}

	owners, err := s.resolver.WalletOwners(ctx, o.ID)
	if err != nil {
		return fmt.Errorf("resolve wallet owners for order %s: %w", o.ID, err)
	}
	platformID := s.resolver.PlatformOwnerID()

	if _, _, err := s.wallets.Transfer(ctx, wallet.TransferInput{
		FromOwnerID: platformID,
		FromKind:    wallet.OwnerPlatform,
		ToOwnerID:   owners.SellerID,
		ToKind:      wallet.OwnerSeller,
		Amount:      sellerAmount,
		Type:        wallet.EntryPaymentToSeller,
		Description: fmt.Sprintf("settlement for order %s", o.ID),
		OrderID:     o.ID,
	}); err != nil {
		return fmt.Errorf("transfer to seller for order %s: %w", o.ID, err)
	}

	if fee > 0 {
		if err := s.wallets.RecordFee(ctx, wallet.FeeInput{
			OwnerID:     platformID,
			OwnerKind:   wallet.OwnerPlatform,
			Amount:      fee,
			Description: fmt.Sprintf("platform fee for order %s", o.ID),
			OrderID:     o.ID,
		}); err != nil {
			// The payout already committed; the missing informational entry
			// is logged instead of re-running the transfer.
			s.logger.Error("record platform fee failed", "order_id", o.ID, "fee", fee, "error", err)
		}
	}

	if err := s.orders.MarkSettled(ctx, o.ID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark order %s settled: %w", o.ID, err)
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindSettlementPaid,
			Destination: owners.SellerID,
			Body:        fmt.Sprintf("Payout of %d for order %s has been released", sellerAmount, o.ID),
		})
	}
	return nil
}

// SettleBatch settles every eligible order, each inside its own failure
// boundary: one order's error is logged and counted without stopping the rest.
func (s *Service) SettleBatch(ctx context.Context, returnPeriodDays int) (BatchResult, error) {
	eligible, err := s.FindEligible(ctx, returnPeriodDays)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list eligible orders: %w", err)
	}

	var result BatchResult
	for _, o := range eligible {
		if err := s.SettleOne(ctx, o); err != nil {
			s.logger.Error("settle order failed", "order_id", o.ID, "error", err)
			result.Failed++
			continue
		}
		result.Succeeded++
	}

	s.logger.Info("settlement batch finished",
		"eligible", len(eligible), "succeeded", result.Succeeded, "failed", result.Failed)
	return result, nil
}
