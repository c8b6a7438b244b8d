package order

import (
	"fmt"

	"github.com/go-faster/errors"
)

// Sentinel errors for order submission.
var (
	ErrEmptyCart = errors.New("cart is empty")
	ErrNotFound  = errors.New("order not found")
	ErrUnpaid    = errors.New("order is not paid")
	// ErrDuplicateToken is returned by Repository.Create when the pickup
	// token collides with an order persisted by another process. The local
	// bloom filter cannot see tokens issued elsewhere, so callers retry
	// with a fresh token.
	ErrDuplicateToken = errors.New("order token already taken")
)

// MixedStallCartError indicates a submission whose cart lines span more
// than one stall. An order never spans stalls; the caller must submit once
// per stall.
type MixedStallCartError struct {
	WantStallID string
	GotStallID  string
	ProductID   string
}

func (e *MixedStallCartError) Error() string {
	return fmt.Sprintf("product %s belongs to stall %s, not %s: split the cart per stall",
		e.ProductID, e.GotStallID, e.WantStallID)
}

// StallUnavailableError indicates the target stall cannot accept orders.
type StallUnavailableError struct {
	StallID string
}

func (e *StallUnavailableError) Error() string {
	return fmt.Sprintf("stall %s is not accepting orders", e.StallID)
}

// ProductUnavailableError indicates a cart line's product became
// unavailable between add-to-cart and submission.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is no longer available", e.ProductID)
}

// IllegalTransitionError indicates a status change that the transition
// table forbids, or one that lost an optimistic concurrency race.
type IllegalTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("order %s: illegal transition %s -> %s", e.OrderID, e.From, e.To)
}
