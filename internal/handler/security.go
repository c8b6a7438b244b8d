package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
)

// principalKey is the context key for the authenticated principal.
type principalKey struct{}

// principalFrom extracts the authenticated principal from the context.
func principalFrom(ctx context.Context) (*auth.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*auth.Principal)
	return p, ok
}

// HashAPIKey computes the HMAC-SHA256 hash of an API key under the server
// pepper. The same function is used by the seeding tool so hashes match.
func HashAPIKey(key string, pepper []byte) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// authenticated wraps an endpoint with API key authentication. The key is
// presented in the api_key header; its HMAC hash is looked up and the
// resulting principal stored in the request context.
func (h *Handler) authenticated(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("api_key")
		if key == "" {
			respondError(w, http.StatusUnauthorized, "missing api_key header")
			return
		}

		principal, err := h.apikeys.FindByHash(r.Context(), HashAPIKey(key, h.pepper))
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid api key")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireRole returns the principal if it has the wanted role, writing a
// 403 and returning false otherwise.
func requireRole(w http.ResponseWriter, r *http.Request, role auth.Role) (*auth.Principal, bool) {
	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated")
		return nil, false
	}
	if p.Role != role {
		respondError(w, http.StatusForbidden, "wrong account type for this operation")
		return nil, false
	}
	return p, true
}
