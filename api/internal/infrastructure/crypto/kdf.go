package crypto

import (
	"fmt"

	"golang.org/x/crypto/scrypt"

	"reportvault/api/internal/core/domain"
)

// scrypt cost parameters. These match the widely deployed defaults
// (N=2^14, r=8, p=1) so keys derived elsewhere from the same secret and
// salt stay interchangeable with ours.
const (
	scryptN = 1 << 14
	scryptR = 8
	scryptP = 1

	// KeySize is the derived key length for AES-256.
	KeySize = 32
)

// DeriveKey stretches an operator secret into a 256-bit key with scrypt.
// It is deterministic: the same secret and salt always yield the same key.
func DeriveKey(secret, salt string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("crypto: encryption secret is empty: %w", domain.ErrConfig)
	}

	key, err := scrypt.Key([]byte(secret), []byte(salt), scryptN, scryptR, scryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("crypto: key derivation failure: %w", err)
	}
	return key, nil
}
