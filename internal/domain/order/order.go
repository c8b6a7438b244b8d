package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks payment independently of fulfilment.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// transitions maps each status to the set of statuses it may move to.
// The happy path is forward-only; cancellation is allowed until the order
// is ready for pickup. Terminal states have no outgoing transitions.
var transitions = map[Status][]Status{
	StatusPending:   {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transitions are possible from s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// CanTransition reports whether moving from s to next is legal.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// Order represents a student's pickup order at a single stall.
// Items and Token are immutable after creation; unit prices are pinned at
// submission time so later menu price changes never rewrite history.
type Order struct {
	ID            string
	StudentID     string
	StallID       string
	Items         []Item
	TotalAmount   decimal.Decimal
	PickupSlot    time.Time
	Token         string
	Status        Status
	PaymentStatus PaymentStatus
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Item is a single order line with its price captured at order time.
type Item struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Subtotal returns unit price x quantity for this item.
func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order header and all items as one atomic unit.
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	GetByToken(ctx context.Context, token string) (*Order, error)
	ListByStall(ctx context.Context, stallID string) ([]Order, error)
	ListByStudent(ctx context.Context, studentID string) ([]Order, error)
	// UpdateStatusFrom applies an optimistic status update guarded by the
	// expected source status. It reports whether a row was updated; false
	// means the order was not in the expected state (or does not exist).
	UpdateStatusFrom(ctx context.Context, id string, from, to Status) (bool, error)
	SetPaymentStatus(ctx context.Context, id string, ps PaymentStatus) error
}
