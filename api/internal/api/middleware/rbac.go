package middleware

import (
	"net/http"

	"reportvault/api/internal/core/domain"
)

// RequireScope only admits callers whose verified claims carry scope.
// It must run after RequireServiceToken.
func RequireScope(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 🛡️ Safe context retrieval
			claims, ok := r.Context().Value(domain.ServiceContextKey).(*domain.ServiceClaims)
			if !ok {
				writeJSONError(w, http.StatusUnauthorized, "Identity context missing")
				return
			}
			if !claims.HasScope(scope) {
				writeJSONError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
