package domain

import "context"

// EncryptedBlob is the at-rest shape of an encrypted field value.
// All three parts are hex encoded and required for decryption.
type EncryptedBlob struct {
	IV      string `json:"iv"`
	Content string `json:"content"`
	AuthTag string `json:"authTag"`
}

// CryptoService defines the hardened contract for sensitive field values.
// It enforces AEAD (Authenticated Encryption with Associated Data).
type CryptoService interface {
	// Encrypt seals plaintext under a fresh random nonce.
	Encrypt(ctx context.Context, plaintext []byte) (*EncryptedBlob, error)

	// Decrypt verifies the authentication tag and returns the original plaintext.
	// Tampered blobs or a wrong key yield ErrIntegrity, never partial output.
	Decrypt(ctx context.Context, blob *EncryptedBlob) ([]byte, error)
}
