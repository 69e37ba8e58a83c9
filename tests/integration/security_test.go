package integration

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wellnest/backend/tests/testutil"
)

func TestSecurity_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	srv := NewTestServer(t)
	srv.DB.SeedProduct(testutil.TestProduct(t, "brahmi-tablets", "299", 5))
	customer := srv.Signup("sec@example.com")

	t.Run("Security headers", func(t *testing.T) {
		w := srv.Request(http.MethodGet, "/health", nil, "")
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("SQL injection in search stays a literal", func(t *testing.T) {
		for _, payload := range []string{
			"' OR '1'='1",
			"'; DROP TABLE products; --",
			"brahmi%' UNION SELECT password_hash FROM users --",
		} {
			w := srv.Request(http.MethodGet, "/api/v1/products?search="+url.QueryEscape(payload), nil, "")
			assert.Less(t, w.Code, http.StatusInternalServerError, payload)
			if w.Code == http.StatusOK {
				assert.NotContains(t, w.Body.String(), "password_hash", payload)
				assert.NotContains(t, w.Body.String(), "$2a$", payload)
			}
		}
		assert.Equal(t, 1, countRows(t, srv.DB, "products"))
	})

	t.Run("SQL injection in sort field", func(t *testing.T) {
		w := srv.Request(http.MethodGet, "/api/v1/products?order_by="+url.QueryEscape("title; DELETE FROM users"), nil, "")
		assert.Less(t, w.Code, http.StatusInternalServerError)
		assert.Equal(t, 1, countRows(t, srv.DB, "users"))
	})

	t.Run("Tampered and malformed tokens", func(t *testing.T) {
		parts := strings.Split(customer, ".")
		require.Len(t, parts, 3)
		tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

		for _, token := range []string{tampered, "not-a-jwt", parts[0] + "." + parts[1] + "."} {
			w := srv.Request(http.MethodGet, "/api/v1/me", nil, token)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		}
	})

	t.Run("Malformed bodies are rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"items": [`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+customer)
		w := httptest.NewRecorder()
		srv.Engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = srv.Request(http.MethodPost, "/api/v1/orders", map[string]any{
			"items":        []map[string]any{{"product_id": "not-a-uuid", "quantity": 1}},
			"payment_mode": "cod",
		}, customer)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = srv.Request(http.MethodPost, "/api/v1/orders", map[string]any{
			"items":        []map[string]any{},
			"payment_mode": "bitcoin",
		}, customer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Invalid ids in paths", func(t *testing.T) {
		w := srv.Request(http.MethodGet, "/api/v1/orders/1%20OR%201=1", nil, customer)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Errors do not leak internals", func(t *testing.T) {
		w := srv.Request(http.MethodPost, "/api/v1/auth/login", map[string]any{
			"email":    "nobody@example.com",
			"password": "Whatever123",
		}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		body := strings.ToLower(w.Body.String())
		assert.NotContains(t, body, "sql")
		assert.NotContains(t, body, "record not found")
	})
}
