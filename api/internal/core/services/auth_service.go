package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"reportvault/api/internal/core/domain"
)

const serviceIssuer = "reportvault"

// Scopes granted to producer services.
const (
	ScopeReportsWrite     = "reports:write"
	ScopeReportsDelete    = "reports:delete"
	ScopeAssessmentsWrite = "assessments:write"
	ScopeAssessmentsRead  = "assessments:read"
)

// ServiceClaims holds the stateless authorization data of a producer
type ServiceClaims struct {
	Scopes []string `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// AuthService mints and verifies HS256 bearer tokens for producer services.
type AuthService struct {
	secret []byte
}

var _ domain.AuthService = (*AuthService)(nil)

func NewAuthService(secret string) *AuthService {
	return &AuthService{secret: []byte(secret)}
}

// MintServiceToken issues a token for subject carrying scopes.
func (s *AuthService) MintServiceToken(subject string, scopes []string, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("service token secret is empty: %w", domain.ErrConfig)
	}

	now := time.Now()
	claims := ServiceClaims{
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    serviceIssuer,
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign service token: %w", err)
	}
	return signed, nil
}

// ValidateServiceToken validates the signature, expiry and issuer.
func (s *AuthService) ValidateServiceToken(ctx context.Context, tokenString string) (*domain.ServiceClaims, error) {
	if len(s.secret) == 0 {
		return nil, errors.New("service authentication is not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &ServiceClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 🛡️ Zero-Trust: Force the signing method check
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(serviceIssuer), jwt.WithExpirationRequired())

	if err != nil {
		return nil, fmt.Errorf("invalid token signature or expired: %w", err)
	}

	claims, ok := token.Claims.(*ServiceClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token claims")
	}

	return &domain.ServiceClaims{Subject: claims.Subject, Scopes: claims.Scopes}, nil
}
