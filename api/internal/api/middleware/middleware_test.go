package middleware_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"reportvault/api/internal/api/middleware"
	"reportvault/api/internal/core/domain"
)

type stubAuth struct{}

func (stubAuth) ValidateServiceToken(ctx context.Context, token string) (*domain.ServiceClaims, error) {
	if token != "good" {
		return nil, errors.New("bad token")
	}
	return &domain.ServiceClaims{Subject: "renderer", Scopes: []string{"reports:write"}}, nil
}

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

func TestRequireServiceTokenAndScope(t *testing.T) {
	auth := middleware.NewAuthMiddleware(stubAuth{}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	cases := []struct {
		name   string
		header string
		scope  string
		want   int
	}{
		{"missing token", "", "reports:write", http.StatusUnauthorized},
		{"bad token", "Bearer nope", "reports:write", http.StatusUnauthorized},
		{"wrong scheme", "Basic good", "reports:write", http.StatusUnauthorized},
		{"missing scope", "Bearer good", "reports:delete", http.StatusForbidden},
		{"granted", "Bearer good", "reports:write", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := auth.RequireServiceToken(middleware.RequireScope(tc.scope)(ok))
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireScopeWithoutIdentity(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.RequireScope("reports:write")(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.SecurityHeaders(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Strict-Transport-Security"), "max-age=31536000")
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "object-src 'none'")
}

func TestAPILimiter(t *testing.T) {
	limiter := middleware.NewAPILimiter(3, time.Hour)
	h := limiter.Handler(ok)

	hit := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	// Different source ports are the same client
	assert.Equal(t, http.StatusOK, hit("192.0.2.1:1000"))
	assert.Equal(t, http.StatusOK, hit("192.0.2.1:1001"))
	assert.Equal(t, http.StatusOK, hit("192.0.2.1:1002"))
	assert.Equal(t, http.StatusTooManyRequests, hit("192.0.2.1:1003"))
	assert.Equal(t, http.StatusOK, hit("192.0.2.2:1000"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "[2001:db8::1]:443"
	assert.Equal(t, "2001:db8::1", middleware.ClientIP(req))

	req.RemoteAddr = "203.0.113.9"
	assert.Equal(t, "203.0.113.9", middleware.ClientIP(req))
}

func TestMaxBytes(t *testing.T) {
	h := middleware.MaxBytes(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too long")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
