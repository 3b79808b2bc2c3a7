package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"reportvault/api/internal/core/domain"
)

// AuthMiddleware gates producer routes behind service bearer tokens.
type AuthMiddleware struct {
	AuthService domain.AuthService
	Logger      *slog.Logger
}

func NewAuthMiddleware(authService domain.AuthService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		AuthService: authService,
		Logger:      logger,
	}
}

func (m *AuthMiddleware) RequireServiceToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := extractBearer(r)
		if tokenString == "" {
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		claims, err := m.AuthService.ValidateServiceToken(r.Context(), tokenString)
		if err != nil {
			m.Logger.Warn("Rejected service token", slog.String("ip", ClientIP(r)), slog.Any("error", err))
			writeJSONError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), domain.ServiceContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func extractBearer(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"message": "` + message + `"}`))
}
