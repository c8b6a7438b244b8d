package order

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/canteen-preorder/internal/domain/cart"
	"github.com/xenking/canteen-preorder/internal/domain/product"
	"github.com/xenking/canteen-preorder/internal/domain/stall"
)

// --- Mock implementations ---

type mockProductRepo struct {
	byID map[string]product.Product
	err  error
}

func (m *mockProductRepo) ListByStall(context.Context, string) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) ListAvailable(context.Context) ([]product.Product, error) {
	return nil, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return &p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type mockStallRepo struct {
	byID map[string]stall.Stall
}

func (m *mockStallRepo) GetByID(_ context.Context, id string) (*stall.Stall, error) {
	s, ok := m.byID[id]
	if !ok {
		return nil, stall.ErrNotFound
	}
	return &s, nil
}

func (m *mockStallRepo) GetByOwner(context.Context, string) (*stall.Stall, error) {
	return nil, stall.ErrNotFound
}

func (m *mockStallRepo) ListActive(context.Context) ([]stall.Stall, error) { return nil, nil }
func (m *mockStallRepo) Create(context.Context, *stall.Stall) error       { return nil }
func (m *mockStallRepo) SetRegistered(context.Context, string, bool) error {
	return nil
}

type mockOrderRepo struct {
	byID      map[string]*Order
	createErr error
	// tokenClashes makes the first N Create calls fail as if the token
	// were already taken by another process.
	tokenClashes int
	createCalls  int
	seenTokens   []string
	// loseRace forces UpdateStatusFrom to report no row updated.
	loseRace bool
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{byID: make(map[string]*Order)}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.createCalls++
	m.seenTokens = append(m.seenTokens, o.Token)
	if m.createErr != nil {
		return m.createErr
	}
	if m.createCalls <= m.tokenClashes {
		return ErrDuplicateToken
	}
	cp := *o
	m.byID[o.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	o, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepo) GetByToken(_ context.Context, token string) (*Order, error) {
	for _, o := range m.byID {
		if o.Token == token {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockOrderRepo) ListByStall(context.Context, string) ([]Order, error)   { return nil, nil }
func (m *mockOrderRepo) ListByStudent(context.Context, string) ([]Order, error) { return nil, nil }

func (m *mockOrderRepo) UpdateStatusFrom(_ context.Context, id string, from, to Status) (bool, error) {
	if m.loseRace {
		return false, nil
	}
	o, ok := m.byID[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *mockOrderRepo) SetPaymentStatus(_ context.Context, id string, ps PaymentStatus) error {
	o, ok := m.byID[id]
	if !ok {
		return ErrNotFound
	}
	o.PaymentStatus = ps
	return nil
}

type mockRecomputer struct {
	calls []recomputeCall
}

type recomputeCall struct {
	stallID string
	date    time.Time
}

func (m *mockRecomputer) Recompute(_ context.Context, stallID string, date time.Time) error {
	m.calls = append(m.calls, recomputeCall{stallID: stallID, date: date})
	return nil
}

// --- Helpers ---

func testProduct(id, stallID, price string) product.Product {
	return product.Product{
		ID:        id,
		StallID:   stallID,
		Name:      "Item " + id,
		Price:     decimal.RequireFromString(price),
		Category:  "test",
		Available: true,
	}
}

func orderableStall(id string) stall.Stall {
	return stall.Stall{ID: id, Name: "Stall " + id, IsRegistered: true, IsActive: true}
}

type fixture struct {
	svc      *Service
	products *mockProductRepo
	stalls   *mockStallRepo
	orders   *mockOrderRepo
	sales    *mockRecomputer
}

func newFixture(products ...product.Product) *fixture {
	f := &fixture{
		products: &mockProductRepo{byID: make(map[string]product.Product)},
		stalls:   &mockStallRepo{byID: map[string]stall.Stall{"s1": orderableStall("s1")}},
		orders:   newMockOrderRepo(),
		sales:    &mockRecomputer{},
	}
	for _, p := range products {
		f.products.byID[p.ID] = p
	}
	f.svc = NewService(f.products, f.stalls, f.orders, f.sales)
	return f
}

func cartWith(t *testing.T, entries ...struct {
	p   product.Product
	qty int
},
) *cart.Cart {
	t.Helper()
	c := cart.New()
	for _, e := range entries {
		require.NoError(t, c.Add(e.p, e.qty))
	}
	return c
}

func entry(p product.Product, qty int) struct {
	p   product.Product
	qty int
} {
	return struct {
		p   product.Product
		qty int
	}{p, qty}
}

// --- Submit ---

func TestSubmit_EmptyCart(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		Cart:    cart.New(),
		StallID: "s1",
	})
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmit_MixedStallCart(t *testing.T) {
	a := testProduct("a", "s1", "50.00")
	b := testProduct("b", "s2", "30.00")
	f := newFixture(a, b)

	c := cartWith(t, entry(a, 1), entry(b, 1))
	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		Cart:      c,
		StudentID: "u1",
		StallID:   "s1",
	})

	var mixedErr *MixedStallCartError
	require.ErrorAs(t, err, &mixedErr)
	assert.Equal(t, "b", mixedErr.ProductID)
	assert.Empty(t, f.orders.byID, "nothing may be persisted")
	assert.Equal(t, 2, c.Len(), "cart must be left unchanged")
}

func TestSubmit_StallUnavailable(t *testing.T) {
	a := testProduct("a", "s1", "50.00")

	t.Run("unknown stall", func(t *testing.T) {
		f := newFixture(a)
		_, err := f.svc.Submit(context.Background(), SubmitRequest{
			Cart:    cartWith(t, entry(a, 1)),
			StallID: "missing",
		})
		var stallErr *StallUnavailableError
		require.ErrorAs(t, err, &stallErr)
	})

	t.Run("unregistered stall", func(t *testing.T) {
		f := newFixture(a)
		f.stalls.byID["s1"] = stall.Stall{ID: "s1", IsRegistered: false, IsActive: true}
		_, err := f.svc.Submit(context.Background(), SubmitRequest{
			Cart:    cartWith(t, entry(a, 1)),
			StallID: "s1",
		})
		var stallErr *StallUnavailableError
		require.ErrorAs(t, err, &stallErr)
		assert.Equal(t, "s1", stallErr.StallID)
	})
}

func TestSubmit_ProductBecameUnavailable(t *testing.T) {
	a := testProduct("a", "s1", "50.00")
	f := newFixture(a)

	// The product was available when added; it sells out before submit.
	c := cartWith(t, entry(a, 1))
	sold := a
	sold.Available = false
	f.products.byID["a"] = sold

	_, err := f.svc.Submit(context.Background(), SubmitRequest{
		Cart:    c,
		StallID: "s1",
	})

	var unavailErr *ProductUnavailableError
	require.ErrorAs(t, err, &unavailErr)
	assert.Equal(t, "a", unavailErr.ProductID)
	assert.Empty(t, f.orders.byID)
}

func TestSubmit_HappyPath(t *testing.T) {
	a := testProduct("a", "s1", "50.00")
	b := testProduct("b", "s1", "30.00")
	f := newFixture(a, b)

	c := cartWith(t, entry(a, 2), entry(b, 1))
	require.Equal(t, "130", c.Total().String())

	o, err := f.svc.Submit(context.Background(), SubmitRequest{
		Cart:       c,
		StudentID:  "u1",
		StallID:    "s1",
		PickupSlot: time.Date(2025, 1, 10, 12, 30, 0, 0, time.UTC),
		Notes:      "less spicy",
	})
	require.NoError(t, err)

	assert.Equal(t, "130", o.TotalAmount.String())
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, PaymentPending, o.PaymentStatus)
	assert.Len(t, o.Token, TokenLength)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "50", o.Items[0].UnitPrice.String())
	assert.Equal(t, "30", o.Items[1].UnitPrice.String())

	// Total equals the sum of its items exactly.
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.Subtotal())
	}
	assert.True(t, o.TotalAmount.Equal(sum))

	// Persisted and cart cleared.
	assert.Contains(t, f.orders.byID, o.ID)
	assert.Equal(t, 0, c.Len())
}

func TestSubmit_PinsCurrentPriceNotCartSnapshot(t *testing.T) {
	a := testProduct("a", "s1", "45.00")
	f := newFixture(a)

	c := cartWith(t, entry(a, 1))

	// Price changes after the line was added.
	repriced := a
	repriced.Price = decimal.RequireFromString("50.00")
	f.products.byID["a"] = repriced

	o, err := f.svc.Submit(context.Background(), SubmitRequest{Cart: c, StallID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, "50", o.Items[0].UnitPrice.String())
	assert.Equal(t, "50", o.TotalAmount.String())
}

func TestSubmit_RetriesOnTokenCollision(t *testing.T) {
	a := testProduct("a", "s1", "50.00")
	f := newFixture(a)
	// Two tokens are already taken by orders from another replica.
	f.orders.tokenClashes = 2

	c := cartWith(t, entry(a, 1))
	o, err := f.svc.Submit(context.Background(), SubmitRequest{Cart: c, StallID: "s1"})
	require.NoError(t, err)

	assert.Equal(t, 3, f.orders.createCalls)
	require.Len(t, f.orders.seenTokens, 3)
	assert.NotEqual(t, f.orders.seenTokens[0], f.orders.seenTokens[2],
		"each retry must draw a fresh token")
	assert.Equal(t, f.orders.seenTokens[2], o.Token)
	assert.Contains(t, f.orders.byID, o.ID)
	assert.Equal(t, 0, c.Len())
}

func TestSubmit_GivesUpAfterRepeatedCollisions(t *testing.T) {
	a := testProduct("a", "s1", "50.00")
	f := newFixture(a)
	f.orders.tokenClashes = 100

	c := cartWith(t, entry(a, 1))
	_, err := f.svc.Submit(context.Background(), SubmitRequest{Cart: c, StallID: "s1"})
	require.ErrorIs(t, err, ErrTokenSpaceExhausted)
	assert.Equal(t, tokenMaxAttempts, f.orders.createCalls)
	assert.Equal(t, 1, c.Len(), "cart must be left unchanged")
}

func TestSubmit_CreateFailureLeavesCartIntact(t *testing.T) {
	a := testProduct("a", "s1", "50.00")
	f := newFixture(a)
	f.orders.createErr = errors.New("store down")

	c := cartWith(t, entry(a, 1))
	_, err := f.svc.Submit(context.Background(), SubmitRequest{Cart: c, StallID: "s1"})
	require.Error(t, err)
	assert.Equal(t, 1, c.Len())
}

// --- Transition ---

func seedOrder(f *fixture, status Status, ps PaymentStatus) *Order {
	o := &Order{
		ID:            "o1",
		StudentID:     "u1",
		StallID:       "s1",
		Status:        status,
		PaymentStatus: ps,
		TotalAmount:   decimal.RequireFromString("130.00"),
		CreatedAt:     time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	f.orders.byID[o.ID] = o
	return o
}

func TestTransition_HappyPath(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusPending, PaymentPaid)

	o, err := f.svc.Transition(context.Background(), "o1", StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, o.Status)

	o, err = f.svc.Transition(context.Background(), "o1", StatusReady)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, o.Status)

	o, err = f.svc.Transition(context.Background(), "o1", StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, o.Status)
}

func TestTransition_Illegal(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusPending, PaymentPaid)

	_, err := f.svc.Transition(context.Background(), "o1", StatusCompleted)

	var trErr *IllegalTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, StatusPending, trErr.From)
	assert.Equal(t, StatusCompleted, trErr.To)
	assert.Equal(t, StatusPending, f.orders.byID["o1"].Status, "state must not change")
}

func TestTransition_UnknownStatus(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusPending, PaymentPending)

	_, err := f.svc.Transition(context.Background(), "o1", Status("shipped"))
	var trErr *IllegalTransitionError
	require.ErrorAs(t, err, &trErr)
}

func TestTransition_UnknownOrder(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Transition(context.Background(), "missing", StatusPreparing)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTransition_LostRace(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusPreparing, PaymentPending)
	f.orders.loseRace = true

	_, err := f.svc.Transition(context.Background(), "o1", StatusReady)
	var trErr *IllegalTransitionError
	require.ErrorAs(t, err, &trErr)
}

func TestTransition_CompletionRequiresPayment(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusReady, PaymentPending)

	_, err := f.svc.Transition(context.Background(), "o1", StatusCompleted)
	require.ErrorIs(t, err, ErrUnpaid)
	assert.Empty(t, f.sales.calls)
}

func TestTransition_CompletionTriggersRecomputeOnce(t *testing.T) {
	f := newFixture()
	o := seedOrder(f, StatusReady, PaymentPaid)

	_, err := f.svc.Transition(context.Background(), "o1", StatusCompleted)
	require.NoError(t, err)
	require.Len(t, f.sales.calls, 1)
	assert.Equal(t, "s1", f.sales.calls[0].stallID)
	assert.Equal(t, o.CreatedAt, f.sales.calls[0].date)

	// Re-driving completion on an already-completed order fails and must
	// not fire the trigger again.
	_, err = f.svc.Transition(context.Background(), "o1", StatusCompleted)
	var trErr *IllegalTransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Len(t, f.sales.calls, 1)
}

func TestCancel_RefundsPaidOrder(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusPreparing, PaymentPaid)

	o, err := f.svc.Cancel(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, PaymentRefunded, o.PaymentStatus)
}

func TestCancel_ClosedOnceReady(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusReady, PaymentPaid)

	_, err := f.svc.Cancel(context.Background(), "o1")
	var trErr *IllegalTransitionError
	require.ErrorAs(t, err, &trErr)
}

// --- MarkPaid ---

func TestMarkPaid(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusPending, PaymentPending)

	o, err := f.svc.MarkPaid(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)

	// Idempotent.
	o, err = f.svc.MarkPaid(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, o.PaymentStatus)
}

func TestMarkPaid_CancelledOrder(t *testing.T) {
	f := newFixture()
	seedOrder(f, StatusCancelled, PaymentPending)

	_, err := f.svc.MarkPaid(context.Background(), "o1")
	var trErr *IllegalTransitionError
	require.ErrorAs(t, err, &trErr)
}
