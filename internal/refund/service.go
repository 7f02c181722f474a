package refund

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pasarlink/pasarlink/internal/inventory"
	"github.com/pasarlink/pasarlink/internal/notification"
	"github.com/pasarlink/pasarlink/internal/order"
	"github.com/pasarlink/pasarlink/internal/syncutil"
	"github.com/pasarlink/pasarlink/internal/wallet"
)

const (
	// fullRefundTolerance is how far (in minor units) an amount-based refund
	// may fall short of the order total and still count as a full refund.
	fullRefundTolerance = 1_000

	gatewayTimeout = 5 * time.Second
)

// Service drives the refund state machine. It decides when money must move
// and delegates the movement itself to the wallet service.
type Service struct {
	repo     Repository
	orders   order.Store
	stock    inventory.Adjuster
	wallets  *wallet.Service
	gateway  Gateway
	notifier notification.Notifier
	logger   *slog.Logger

	// locks serializes transitions per refund so two decisions cannot
	// interleave between the status read and the status write.
	locks syncutil.KeyMutex
}

// NewService wires the refund workflow. A nil gateway falls back to the
// approving stub.
func NewService(repo Repository, orders order.Store, stock inventory.Adjuster, wallets *wallet.Service, gateway Gateway, notifier notification.Notifier, logger *slog.Logger) *Service {
	if gateway == nil {
		gateway = StaticGateway{}
	}
	return &Service{
		repo:     repo,
		orders:   orders,
		stock:    stock,
		wallets:  wallets,
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
	}
}

// ItemInput selects a line and quantity to refund.
type ItemInput struct {
	OrderItemID string
	Quantity    int
}

// OpenInput captures a buyer's refund request. Either Items or Amount is
// given: with items the amount is computed from the order's unit prices.
type OpenInput struct {
	OrderID  string
	BuyerID  string
	Amount   int64
	Items    []ItemInput
	Reason   string
	Evidence []string
}

// Open validates the request against the order and creates the refund in
// REQUESTED state. Nothing is mutated on validation failure.
func (s *Service) Open(ctx context.Context, input OpenInput) (Refund, error) {
	o, err := s.orders.GetOrder(ctx, input.OrderID)
	if err != nil {
		return Refund{}, err
	}
	if o.BuyerID != input.BuyerID {
		return Refund{}, validationErrorf("order %s does not belong to buyer %s", input.OrderID, input.BuyerID)
	}
	if o.Status != order.StatusCompleted {
		return Refund{}, validationErrorf("order %s is not completed", input.OrderID)
	}

	var amount int64
	var items []Item
	if len(input.Items) > 0 {
		// One line per order item: a repeated id would let the summed
		// quantity slip past the per-line ceiling.
		seen := make(map[string]bool, len(input.Items))
		for _, in := range input.Items {
			if seen[in.OrderItemID] {
				return Refund{}, validationErrorf("duplicate refund line for item %s", in.OrderItemID)
			}
			seen[in.OrderItemID] = true
			line, ok := o.ItemByID(in.OrderItemID)
			if !ok {
				return Refund{}, validationErrorf("order item %s not found on order %s", in.OrderItemID, input.OrderID)
			}
			if in.Quantity <= 0 {
				return Refund{}, validationErrorf("quantity for item %s must be positive", in.OrderItemID)
			}
			if in.Quantity > line.Quantity {
				return Refund{}, validationErrorf("quantity %d for item %s exceeds ordered %d", in.Quantity, in.OrderItemID, line.Quantity)
			}
			lineAmount := line.UnitPrice * int64(in.Quantity)
			items = append(items, Item{OrderItemID: in.OrderItemID, Quantity: in.Quantity, Amount: lineAmount})
			amount += lineAmount
		}
	} else {
		if input.Amount <= 0 {
			return Refund{}, validationErrorf("refund amount must be positive")
		}
		if input.Amount > o.TotalAmount {
			return Refund{}, validationErrorf("refund amount %d exceeds order total %d", input.Amount, o.TotalAmount)
		}
		amount = input.Amount
	}

	now := time.Now().UTC()
	r := Refund{
		ID:        uuid.NewString(),
		OrderID:   input.OrderID,
		BuyerID:   input.BuyerID,
		Status:    StatusRequested,
		Amount:    amount,
		Reason:    input.Reason,
		Evidence:  input.Evidence,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Refund{}, err
	}
	return r, nil
}

// Get returns the refund by id.
func (s *Service) Get(ctx context.Context, id string) (Refund, error) {
	return s.repo.Get(ctx, id)
}

// ListByOrder returns every refund opened against the order.
func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]Refund, error) {
	return s.repo.ListByOrder(ctx, orderID)
}

// Approve moves REQUESTED to APPROVED, recording whether the goods must come
// back before payout.
func (s *Service) Approve(ctx context.Context, id string, requiresReturn bool) (Refund, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	if r.Status != StatusRequested {
		return Refund{}, fmt.Errorf("approve from %s: %w", r.Status, ErrInvalidTransition)
	}
	r.Status = StatusApproved
	r.RequiresReturn = requiresReturn
	r.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, r, StatusRequested); err != nil {
		return Refund{}, err
	}
	return r, nil
}

// Reject ends the workflow from REQUESTED or APPROVED, appending the decision
// to the reason trail.
func (s *Service) Reject(ctx context.Context, id, rejectReason string) (Refund, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	if r.Status != StatusRequested && r.Status != StatusApproved {
		return Refund{}, fmt.Errorf("reject from %s: %w", r.Status, ErrInvalidTransition)
	}
	prev := r.Status
	r.AppendReason(rejectReason)
	r.Status = StatusRejected
	r.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, r, prev); err != nil {
		return Refund{}, err
	}
	return r, nil
}

// ConfirmReturn settles an APPROVED refund after the returned goods were
// inspected. Accepted returns restore stock, then move the money, then mark
// the refund COMPLETED. A rejected inspection ends in REJECTED.
func (s *Service) ConfirmReturn(ctx context.Context, id string, accepted bool, inspectionNote string) (Refund, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Refund{}, err
	}
	if r.Status != StatusApproved {
		return Refund{}, fmt.Errorf("confirm return from %s: %w", r.Status, ErrInvalidTransition)
	}

	if !accepted {
		r.AppendReason(inspectionNote)
		r.Status = StatusRejected
		r.UpdatedAt = time.Now().UTC()
		if err := s.repo.Update(ctx, r, StatusApproved); err != nil {
			return Refund{}, err
		}
		return r, nil
	}

	o, err := s.orders.GetOrder(ctx, r.OrderID)
	if err != nil {
		return Refund{}, err
	}

	// Inventory correction is a precondition of payout: a failure here aborts
	// before the buyer is credited.
	if err := s.restoreInventory(ctx, r, o); err != nil {
		return Refund{}, fmt.Errorf("restore inventory: %w", err)
	}

	if err := s.processRefund(ctx, &r, o); err != nil {
		return Refund{}, err
	}

	r.AppendReason(inspectionNote)
	r.Status = StatusCompleted
	r.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, r, StatusApproved); err != nil {
		return Refund{}, err
	}

	if s.notifier != nil {
		_ = s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindRefundCompleted,
			Destination: r.BuyerID,
			Body:        fmt.Sprintf("Refund of %d for order %s has been paid to your wallet", r.Amount, r.OrderID),
		})
	}
	return r, nil
}

// restoreInventory puts the refunded lines back in stock. With no line
// allocations the whole order is treated as returned.
func (s *Service) restoreInventory(ctx context.Context, r Refund, o order.Order) error {
	lines := make(map[string]int)
	if len(r.Items) > 0 {
		for _, item := range r.Items {
			lines[item.OrderItemID] = item.Quantity
		}
	} else {
		for _, item := range o.Items {
			lines[item.ID] = item.Quantity
		}
	}

	for itemID, qty := range lines {
		line, ok := o.ItemByID(itemID)
		if !ok {
			return fmt.Errorf("order item %s not found on order %s", itemID, o.ID)
		}
		if err := s.stock.RestoreStock(ctx, line.VariantID, qty); err != nil {
			return err
		}
		if err := s.stock.DecrementSoldCount(ctx, line.ProductID, qty); err != nil {
			return err
		}
	}
	return nil
}

// processRefund performs the money movement: a best-effort gateway reversal,
// the guaranteed buyer wallet credit, and the full-vs-partial consequence on
// the order.
func (s *Service) processRefund(ctx context.Context, r *Refund, o order.Order) error {
	// The gateway call is fire-and-forget relative to the wallet credit and
	// holds no wallet lock. Failures only affect reconciliation with the
	// external provider.
	if o.PaymentMethod.GatewayRefundable() && o.TransactionRef != "" {
		gctx, cancel := context.WithTimeout(ctx, gatewayTimeout)
		res, err := s.gateway.Refund(gctx, o.TransactionRef, r.Amount, r.Reason)
		cancel()
		if err != nil {
			s.logger.Warn("gateway refund failed",
				"refund_id", r.ID, "order_id", o.ID, "transaction_ref", o.TransactionRef, "error", err)
		} else {
			s.logger.Info("gateway refund accepted",
				"refund_id", r.ID, "order_id", o.ID, "reference", res.Reference, "status", res.Status)
		}
	}

	if _, err := s.wallets.Deposit(ctx, wallet.DepositInput{
		OwnerID:     r.BuyerID,
		OwnerKind:   wallet.OwnerBuyer,
		Amount:      r.Amount,
		Type:        wallet.EntryRefund,
		Description: fmt.Sprintf("refund for order %s", o.ID),
		OrderID:     o.ID,
	}); err != nil {
		return fmt.Errorf("credit buyer wallet: %w", err)
	}

	if isFullRefund(*r, o) {
		if err := s.orders.UpdateStatus(ctx, o.ID, order.StatusCancelled); err != nil {
			// The buyer is already compensated; the missed cancellation is
			// surfaced through logs for operator reconciliation.
			s.logger.Error("cancel order after full refund failed", "refund_id", r.ID, "order_id", o.ID, "error", err)
		}
	}
	return nil
}

// isFullRefund decides whether the refund covers the whole order: every line
// at full quantity when allocations are present, or the order total within
// tolerance otherwise.
func isFullRefund(r Refund, o order.Order) bool {
	if len(r.Items) > 0 {
		// Count distinct lines so a repeated item id cannot stand in for
		// lines that were never refunded.
		lines := make(map[string]int, len(r.Items))
		for _, item := range r.Items {
			lines[item.OrderItemID] += item.Quantity
		}
		if len(lines) != len(o.Items) {
			return false
		}
		refunded := 0
		for _, qty := range lines {
			refunded += qty
		}
		return refunded >= o.TotalQuantity()
	}
	return r.Amount >= o.TotalAmount-fullRefundTolerance
}
