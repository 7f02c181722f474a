package refund

import (
	"errors"
	"fmt"
	"time"
)

// Status is the refund state machine position. REJECTED and COMPLETED are
// terminal: once reached, no further transition is legal.
type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// ErrInvalidTransition occurs when a state machine operation is called out of
// order. The refund is left untouched.
var ErrInvalidTransition = errors.New("invalid refund transition")

// ErrNotFound indicates the referenced refund does not exist.
var ErrNotFound = errors.New("refund not found")

// ValidationError reports a precondition failure detected before any mutation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Item allocates part of the refund to a single order line. Amount is the
// refunded value for this line in minor units.
type Item struct {
	OrderItemID string
	Quantity    int
	Amount      int64
}

// Refund is one buyer-initiated refund request against a completed order.
// Reason is an append-only audit trail: decisions add to it, never overwrite.
type Refund struct {
	ID             string
	OrderID        string
	BuyerID        string
	Status         Status
	Amount         int64
	Reason         string
	Evidence       []string
	RequiresReturn bool
	Items          []Item
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AppendReason adds a note to the audit trail without losing prior text.
func (r *Refund) AppendReason(note string) {
	if note == "" {
		return
	}
	if r.Reason == "" {
		r.Reason = note
		return
	}
	r.Reason = r.Reason + " | " + note
}
