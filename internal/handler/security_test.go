package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/canteen-preorder/internal/domain/auth"
)

type mockKeyRepo struct {
	byHash map[string]*auth.Principal
}

func (m *mockKeyRepo) FindByHash(_ context.Context, hash string) (*auth.Principal, error) {
	p, ok := m.byHash[hash]
	if !ok {
		return nil, auth.ErrUnauthorized
	}
	return p, nil
}

func testHandler(keys *mockKeyRepo) *Handler {
	return New(
		Config{APIKeyPepper: []byte("test-pepper")},
		nil, nil, nil, nil, keys, nil, nil,
	)
}

func TestHashAPIKey(t *testing.T) {
	a := HashAPIKey("dev-student-asha", []byte("pepper-a"))
	b := HashAPIKey("dev-student-asha", []byte("pepper-a"))
	assert.Equal(t, a, b, "hashing must be deterministic")

	c := HashAPIKey("dev-student-asha", []byte("pepper-b"))
	assert.NotEqual(t, a, c, "a different pepper must change the hash")

	d := HashAPIKey("dev-student-other", []byte("pepper-a"))
	assert.NotEqual(t, a, d)
	assert.Len(t, a, 64)
}

func TestAuthenticated(t *testing.T) {
	keys := &mockKeyRepo{byHash: map[string]*auth.Principal{
		HashAPIKey("good-key", []byte("test-pepper")): {
			ID:        "k1",
			Role:      auth.RoleStudent,
			SubjectID: "u1",
		},
	}}
	h := testHandler(keys)

	var seen *auth.Principal
	endpoint := h.authenticated(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = principalFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("missing key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		endpoint.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.Header.Set("api_key", "bad-key")
		rec := httptest.NewRecorder()
		endpoint.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		req.Header.Set("api_key", "good-key")
		rec := httptest.NewRecorder()
		endpoint.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "u1", seen.SubjectID)
		assert.Equal(t, auth.RoleStudent, seen.Role)
	})
}

func TestRequireRole(t *testing.T) {
	student := &auth.Principal{ID: "k1", Role: auth.RoleStudent, SubjectID: "u1"}

	withPrincipal := func(p *auth.Principal) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if p == nil {
			return req
		}
		ctx := context.WithValue(req.Context(), principalKey{}, p)
		return req.WithContext(ctx)
	}

	t.Run("matching role", func(t *testing.T) {
		rec := httptest.NewRecorder()
		p, ok := requireRole(rec, withPrincipal(student), auth.RoleStudent)
		require.True(t, ok)
		assert.Equal(t, "u1", p.SubjectID)
	})

	t.Run("wrong role", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := requireRole(rec, withPrincipal(student), auth.RoleStall)
		require.False(t, ok)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no principal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_, ok := requireRole(rec, withPrincipal(nil), auth.RoleStudent)
		require.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
