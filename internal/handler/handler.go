// Package handler exposes the canteen pre-order API over plain net/http.
package handler

import (
	"net/http"
	"time"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
	"github.com/xenking/canteen-preorder/internal/domain/order"
	"github.com/xenking/canteen-preorder/internal/domain/product"
	"github.com/xenking/canteen-preorder/internal/domain/sales"
	"github.com/xenking/canteen-preorder/internal/domain/stall"
	"github.com/xenking/canteen-preorder/internal/domain/student"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// APIKeyPepper is the HMAC secret for API key hashing.
	APIKeyPepper []byte
	// CartTTL controls how long an idle session cart survives.
	CartTTL time.Duration
}

// Handler wires the HTTP surface to the domain services.
type Handler struct {
	products product.Repository
	stalls   stall.Repository
	orders   order.Repository
	students student.Repository
	apikeys  auth.Repository

	orderSvc *order.Service
	salesAgg *sales.Aggregator

	carts  *SessionCarts
	pepper []byte
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	products product.Repository,
	stalls stall.Repository,
	orders order.Repository,
	students student.Repository,
	apikeys auth.Repository,
	orderSvc *order.Service,
	salesAgg *sales.Aggregator,
) *Handler {
	ttl := cfg.CartTTL
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &Handler{
		products: products,
		stalls:   stalls,
		orders:   orders,
		students: students,
		apikeys:  apikeys,
		orderSvc: orderSvc,
		salesAgg: salesAgg,
		carts:    NewSessionCarts(ttl),
		pepper:   cfg.APIKeyPepper,
	}
}

// Routes registers all API endpoints on the mux. Catalog reads are public;
// everything touching a cart, order, or report requires an API key.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stalls", h.listStalls)
	mux.HandleFunc("GET /api/stalls/{id}/products", h.listStallProducts)
	mux.HandleFunc("GET /api/products", h.listProducts)

	mux.Handle("GET /api/stalls/me", h.authenticated(h.getOwnStall))
	mux.Handle("POST /api/stalls/me/register", h.authenticated(h.registerStall))

	mux.Handle("GET /api/me", h.authenticated(h.getProfile))

	mux.Handle("GET /api/cart", h.authenticated(h.getCart))
	mux.Handle("POST /api/cart/items", h.authenticated(h.addCartItem))
	mux.Handle("DELETE /api/cart/items/{id}", h.authenticated(h.removeCartItem))

	mux.Handle("POST /api/orders", h.authenticated(h.submitOrder))
	mux.Handle("GET /api/orders", h.authenticated(h.listOrders))
	mux.Handle("GET /api/orders/{id}", h.authenticated(h.getOrder))
	mux.Handle("GET /api/orders/token/{token}", h.authenticated(h.getOrderByToken))
	mux.Handle("POST /api/orders/{id}/status", h.authenticated(h.transitionOrder))
	mux.Handle("POST /api/orders/{id}/pay", h.authenticated(h.payOrder))

	mux.Handle("GET /api/stalls/{id}/sales", h.authenticated(h.listSales))
}

// StartCartSweeper launches the background eviction of idle session carts.
func (h *Handler) StartCartSweeper(stop <-chan struct{}) {
	go h.carts.sweep(stop)
}
