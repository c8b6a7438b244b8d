package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/canteen-preorder/internal/domain/cart"
	"github.com/xenking/canteen-preorder/internal/domain/product"
	"github.com/xenking/canteen-preorder/internal/domain/stall"
)

// SalesRecomputer rebuilds the daily sales aggregate for one stall and day.
// It is triggered exactly once per order, when the order completes.
type SalesRecomputer interface {
	Recompute(ctx context.Context, stallID string, date time.Time) error
}

// SubmitRequest holds the input for submitting a cart as an order.
type SubmitRequest struct {
	Cart       *cart.Cart
	StudentID  string
	StallID    string
	PickupSlot time.Time
	Notes      string
}

// Service encapsulates order submission and lifecycle logic.
type Service struct {
	products product.Repository
	stalls   stall.Repository
	orders   Repository
	sales    SalesRecomputer
	tokens   *TokenGenerator
	now      func() time.Time
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	stalls stall.Repository,
	orders Repository,
	sales SalesRecomputer,
) *Service {
	return &Service{
		products: products,
		stalls:   stalls,
		orders:   orders,
		sales:    sales,
		tokens:   NewTokenGenerator(),
		now:      time.Now,
	}
}

// Submit converts the cart into a persisted order for a single stall.
//
// Every cart line must belong to req.StallID; carts spanning stalls must be
// split by the caller and submitted once per stall. The stall and every
// product are re-validated here: availability can change between
// add-to-cart and submission, and the pinned unit price is the product's
// price right now, not the snapshot taken when the line was added. The
// order header and its items are persisted as one atomic unit, and only on
// success are the submitted lines removed from the cart.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Order, error) {
	lines := req.Cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	for _, l := range lines {
		if l.Product.StallID != req.StallID {
			return nil, &MixedStallCartError{
				WantStallID: req.StallID,
				GotStallID:  l.Product.StallID,
				ProductID:   l.Product.ID,
			}
		}
	}

	st, err := s.stalls.GetByID(ctx, req.StallID)
	if err != nil {
		if errors.Is(err, stall.ErrNotFound) {
			return nil, &StallUnavailableError{StallID: req.StallID}
		}
		return nil, errors.Wrap(err, "get stall")
	}
	if !st.Orderable() {
		return nil, &StallUnavailableError{StallID: req.StallID}
	}

	// Re-fetch all products in one batch to pin current prices and catch
	// availability changes since the lines were added.
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.Product.ID
	}
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]Item, len(lines))
	for i, l := range lines {
		p, ok := byID[l.Product.ID]
		if !ok || !p.Available {
			return nil, &ProductUnavailableError{ProductID: l.Product.ID}
		}
		items[i] = Item{
			ProductID: p.ID,
			Quantity:  l.Quantity,
			UnitPrice: p.Price,
		}
	}

	o := &Order{
		ID:            uuid.New().String(),
		StudentID:     req.StudentID,
		StallID:       req.StallID,
		Items:         items,
		TotalAmount:   decimalSum(items),
		Status:        StatusPending,
		PaymentStatus: PaymentPending,
		PickupSlot:    req.PickupSlot,
		Notes:         req.Notes,
		CreatedAt:     s.now(),
	}

	// The bloom filter only knows tokens issued by this process, so the
	// database unique constraint is the real arbiter. On a collision with
	// a token issued elsewhere, draw again.
	for range tokenMaxAttempts {
		token, err := s.tokens.Next()
		if err != nil {
			return nil, errors.Wrap(err, "generate token")
		}
		o.Token = token

		err = s.orders.Create(ctx, o)
		switch {
		case err == nil:
			req.Cart.RemoveStall(req.StallID)
			return o, nil
		case errors.Is(err, ErrDuplicateToken):
			continue
		default:
			return nil, errors.Wrap(err, "create order")
		}
	}
	return nil, ErrTokenSpaceExhausted
}

// Transition moves an order to the next status.
//
// The transition table is checked first, then the update is applied with an
// optimistic guard on the source status so two concurrent requests cannot
// both win. Completion additionally requires the order to be paid, and is
// the single trigger for the daily sales recomputation of the order's
// (stall, creation date) bucket.
func (s *Service) Transition(ctx context.Context, orderID string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, &IllegalTransitionError{OrderID: orderID, To: next}
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !o.Status.CanTransition(next) {
		return nil, &IllegalTransitionError{OrderID: orderID, From: o.Status, To: next}
	}
	if next == StatusCompleted && o.PaymentStatus != PaymentPaid {
		return nil, ErrUnpaid
	}

	applied, err := s.orders.UpdateStatusFrom(ctx, orderID, o.Status, next)
	if err != nil {
		return nil, errors.Wrap(err, "update status")
	}
	if !applied {
		// Lost the race: someone moved the order after our read.
		return nil, &IllegalTransitionError{OrderID: orderID, From: o.Status, To: next}
	}

	prev := o.Status
	o.Status = next

	switch next {
	case StatusCancelled:
		if o.PaymentStatus == PaymentPaid {
			if err := s.orders.SetPaymentStatus(ctx, orderID, PaymentRefunded); err != nil {
				return nil, errors.Wrap(err, "refund payment")
			}
			o.PaymentStatus = PaymentRefunded
		}
	case StatusCompleted:
		// The guarded update above succeeds at most once per order, so the
		// recompute trigger fires at most once. Recompute itself overwrites
		// rather than increments, so a retry cannot double-count either way.
		if err := s.sales.Recompute(ctx, o.StallID, o.CreatedAt); err != nil {
			return nil, errors.Wrapf(err, "recompute sales after %s -> %s", prev, next)
		}
	}

	return o, nil
}

// Cancel is a convenience wrapper for transitioning into cancelled.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	return s.Transition(ctx, orderID, StatusCancelled)
}

// MarkPaid records payment for an order. Cancelled orders cannot be paid.
func (s *Service) MarkPaid(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCancelled {
		return nil, &IllegalTransitionError{OrderID: orderID, From: o.Status, To: o.Status}
	}
	if o.PaymentStatus == PaymentPaid {
		return o, nil
	}
	if err := s.orders.SetPaymentStatus(ctx, orderID, PaymentPaid); err != nil {
		return nil, errors.Wrap(err, "set payment status")
	}
	o.PaymentStatus = PaymentPaid
	return o, nil
}

func decimalSum(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}
