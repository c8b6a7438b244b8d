package handler

import (
	"sync"
	"time"

	"github.com/xenking/canteen-preorder/internal/domain/cart"
)

// sessionCart pairs a cart with its last-touched time for TTL eviction.
// Each session carries its own lock so slow work against one cart (order
// submission does database round-trips) never blocks other sessions.
type sessionCart struct {
	mu       sync.Mutex
	cart     *cart.Cart
	lastSeen time.Time
}

// SessionCarts holds the in-memory carts of all active sessions, keyed by
// principal ID. Carts are deliberately never persisted; an idle session's
// cart is evicted after the TTL and the student starts fresh.
// The store mutex only guards the map; cart access is serialized per
// session.
type SessionCarts struct {
	mu    sync.Mutex
	carts map[string]*sessionCart
	ttl   time.Duration
	now   func() time.Time
}

// NewSessionCarts creates a cart store with the given idle TTL.
func NewSessionCarts(ttl time.Duration) *SessionCarts {
	return &SessionCarts{
		carts: make(map[string]*sessionCart),
		ttl:   ttl,
		now:   time.Now,
	}
}

// With runs fn against the session's cart under that session's lock,
// creating an empty cart on first use. Serializing access here keeps the
// cart type itself lock-free, matching its single-session confinement.
func (s *SessionCarts) With(key string, fn func(*cart.Cart) error) error {
	s.mu.Lock()
	sc, ok := s.carts[key]
	if !ok {
		sc = &sessionCart{cart: cart.New()}
		s.carts[key] = sc
	}
	sc.lastSeen = s.now()
	s.mu.Unlock()

	sc.mu.Lock()
	defer sc.mu.Unlock()
	return fn(sc.cart)
}

// Drop discards the session's cart.
func (s *SessionCarts) Drop(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, key)
}

// sweep evicts idle carts every ttl/2 until stop is closed.
func (s *SessionCarts) sweep(stop <-chan struct{}) {
	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.evictIdle()
		}
	}
}

func (s *SessionCarts) evictIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	for key, sc := range s.carts {
		if sc.lastSeen.Before(cutoff) {
			delete(s.carts, key)
		}
	}
}
