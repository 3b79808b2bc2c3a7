package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"time"

	"reportvault/api/internal/core/domain"
)

// DefaultDownloadTTL is how long a download token stays valid.
const DefaultDownloadTTL = time.Hour

// DownloadTokenService mints and validates stateless download tokens.
// Nothing is stored server-side: a token cannot be revoked before it expires.
type DownloadTokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDownloadTokenService fails with ErrConfig when the secret is empty.
func NewDownloadTokenService(secret string, ttl time.Duration) (*DownloadTokenService, error) {
	if secret == "" {
		return nil, fmt.Errorf("download secret is empty: %w", domain.ErrConfig)
	}
	if ttl <= 0 {
		ttl = DefaultDownloadTTL
	}
	return &DownloadTokenService{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// WithClock swaps the time source. Intended for tests.
func (s *DownloadTokenService) WithClock(now func() time.Time) *DownloadTokenService {
	s.now = now
	return s
}

// TTL returns the fixed token lifetime.
func (s *DownloadTokenService) TTL() time.Duration {
	return s.ttl
}

// Issue binds a token to reportID and the current instant.
func (s *DownloadTokenService) Issue(reportID string) *domain.DownloadToken {
	issuedAt := s.now().Truncate(time.Millisecond)
	return &domain.DownloadToken{
		Value:     s.sign(reportID, issuedAt),
		ReportID:  reportID,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.ttl),
	}
}

// Validate recomputes the token value for reportID and the token's issuance
// instant. A token minted for one report never validates for another.
func (s *DownloadTokenService) Validate(token *domain.DownloadToken, reportID string) error {
	if token == nil || token.Value == "" {
		return domain.ErrInvalidToken
	}

	// 🛡️ The lifetime is fixed: a stretched expiry is a forgery
	if !token.ExpiresAt.Equal(token.IssuedAt.Add(s.ttl)) {
		return domain.ErrInvalidToken
	}

	provided, err := hex.DecodeString(token.Value)
	if err != nil {
		return domain.ErrInvalidToken
	}
	expected, _ := hex.DecodeString(s.sign(reportID, token.IssuedAt))

	// Constant-time comparison defeats timing attacks
	if subtle.ConstantTimeCompare(expected, provided) != 1 {
		return domain.ErrInvalidToken
	}

	if s.now().After(token.ExpiresAt) {
		return domain.ErrExpiredToken
	}

	return nil
}

// ToWire renders the token in the shape handed to producers.
func (s *DownloadTokenService) ToWire(token *domain.DownloadToken) domain.DownloadTokenWire {
	return domain.DownloadTokenWire{
		Token:        token.Value,
		AssessmentID: token.ReportID,
		Expires:      token.ExpiresAt.UnixMilli(),
	}
}

// FromWire rebuilds a token from its wire shape. The issuance instant is
// reconstructed from the fixed TTL, so an altered expiry fails Validate.
func (s *DownloadTokenService) FromWire(w domain.DownloadTokenWire) *domain.DownloadToken {
	expiresAt := time.UnixMilli(w.Expires)
	return &domain.DownloadToken{
		Value:     w.Token,
		ReportID:  w.AssessmentID,
		IssuedAt:  expiresAt.Add(-s.ttl),
		ExpiresAt: expiresAt,
	}
}

func (s *DownloadTokenService) sign(reportID string, issuedAt time.Time) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(reportID))
	mac.Write([]byte{0})

	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(issuedAt.UnixMilli()))
	mac.Write(ts[:])

	return hex.EncodeToString(mac.Sum(nil))
}
