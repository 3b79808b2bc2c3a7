package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"reportvault/api/internal/core/domain"
)

const (
	// NonceSize is used for every new encryption. 16 bytes keeps blobs
	// readable by deployments that sealed fields with a 16-byte IV.
	NonceSize = 16

	// TagSize is the GCM authentication tag length.
	TagSize = 16
)

// AESCryptoService implements domain.CryptoService with AES-256-GCM.
type AESCryptoService struct {
	// 🛡️ Pre-calculated AEADs: one per accepted nonce size
	aead16 cipher.AEAD
	aead12 cipher.AEAD
}

var _ domain.CryptoService = (*AESCryptoService)(nil)

// NewAESCryptoService builds the cipher from a raw 32-byte key.
// The caller's key slice is zeroized once the block cipher holds it.
func NewAESCryptoService(key []byte) (*AESCryptoService, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("crypto: key must be 32 bytes for AES-256: %w", domain.ErrConfig)
	}

	defer func() {
		for i := range key {
			key[i] = 0
		}
	}()

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypto: block cipher failure: %w", err)
	}

	aead16, err := cipher.NewGCMWithNonceSize(block, NonceSize)
	if err != nil {
		return nil, fmt.Errorf("crypto: GCM failure: %w", err)
	}

	aead12, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("crypto: GCM failure: %w", err)
	}

	return &AESCryptoService{aead16: aead16, aead12: aead12}, nil
}

// NewAESCryptoServiceFromSecret derives the key with scrypt and builds the cipher.
func NewAESCryptoServiceFromSecret(secret, salt string) (*AESCryptoService, error) {
	key, err := DeriveKey(secret, salt)
	if err != nil {
		return nil, err
	}
	return NewAESCryptoService(key)
}

func (s *AESCryptoService) Encrypt(ctx context.Context, plaintext []byte) (*domain.EncryptedBlob, error) {
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("crypto: nonce generation failure: %w", err)
	}

	sealed := s.aead16.Seal(nil, nonce, plaintext, nil)
	split := len(sealed) - TagSize

	return &domain.EncryptedBlob{
		IV:      hex.EncodeToString(nonce),
		Content: hex.EncodeToString(sealed[:split]),
		AuthTag: hex.EncodeToString(sealed[split:]),
	}, nil
}

func (s *AESCryptoService) Decrypt(ctx context.Context, blob *domain.EncryptedBlob) ([]byte, error) {
	if blob == nil || blob.IV == "" || blob.AuthTag == "" {
		return nil, fmt.Errorf("crypto: incomplete blob: %w", domain.ErrFormat)
	}

	nonce, err := hex.DecodeString(blob.IV)
	if err != nil {
		return nil, fmt.Errorf("crypto: iv encoding: %w", domain.ErrFormat)
	}
	content, err := hex.DecodeString(blob.Content)
	if err != nil {
		return nil, fmt.Errorf("crypto: content encoding: %w", domain.ErrFormat)
	}
	tag, err := hex.DecodeString(blob.AuthTag)
	if err != nil {
		return nil, fmt.Errorf("crypto: auth tag encoding: %w", domain.ErrFormat)
	}
	if len(tag) != TagSize {
		return nil, fmt.Errorf("crypto: auth tag must be %d bytes: %w", TagSize, domain.ErrFormat)
	}

	var aead cipher.AEAD
	switch len(nonce) {
	case NonceSize:
		aead = s.aead16
	case s.aead12.NonceSize():
		aead = s.aead12
	default:
		return nil, fmt.Errorf("crypto: unsupported iv length %d: %w", len(nonce), domain.ErrFormat)
	}

	sealed := make([]byte, 0, len(content)+len(tag))
	sealed = append(sealed, content...)
	sealed = append(sealed, tag...)

	// 🛡️ AEAD verification: Open returns nothing on tag mismatch
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("crypto: potential tampering detected: %w", domain.ErrIntegrity)
	}

	return plaintext, nil
}
