package domain

import "context"

type contextKey string

// ServiceContextKey carries the verified *ServiceClaims of a producer request.
const ServiceContextKey contextKey = "service_claims"

// ServiceClaims is the verified identity of a producer calling the vault.
type ServiceClaims struct {
	Subject string
	Scopes  []string
}

// HasScope reports whether the caller was granted scope.
func (c *ServiceClaims) HasScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// AuthService validates producer bearer tokens.
type AuthService interface {
	ValidateServiceToken(ctx context.Context, tokenString string) (*ServiceClaims, error)
}
