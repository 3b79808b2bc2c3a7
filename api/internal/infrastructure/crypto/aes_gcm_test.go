package crypto_test

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"

	"reportvault/api/internal/core/domain"
	"reportvault/api/internal/infrastructure/crypto"
)

// generateTestKey creates a random 256-bit AES key
func generateTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, crypto.KeySize)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("Failed to generate test key: %v", err)
	}
	return key
}

func newService(t *testing.T) *crypto.AESCryptoService {
	t.Helper()
	svc, err := crypto.NewAESCryptoService(generateTestKey(t))
	if err != nil {
		t.Fatalf("Failed to create crypto service: %v", err)
	}
	return svc
}

// ==============================================================================
// 1. Fundamental Correctness
// ==============================================================================

func TestAESGCM_EncryptDecrypt_RoundTrip(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	for _, plaintext := range []string{"4250.75", "", "monthly spend with unicode: €1.200"} {
		blob, err := svc.Encrypt(ctx, []byte(plaintext))
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}

		decrypted, err := svc.Decrypt(ctx, blob)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}

		if string(decrypted) != plaintext {
			t.Errorf("Round-trip failed: got %q, want %q", decrypted, plaintext)
		}
	}
}

func TestAESGCM_Blob_Shape(t *testing.T) {
	svc := newService(t)

	blob, err := svc.Encrypt(context.Background(), []byte("1200"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if len(blob.IV) != crypto.NonceSize*2 {
		t.Errorf("Expected %d hex chars of IV, got %d", crypto.NonceSize*2, len(blob.IV))
	}
	if len(blob.AuthTag) != crypto.TagSize*2 {
		t.Errorf("Expected %d hex chars of auth tag, got %d", crypto.TagSize*2, len(blob.AuthTag))
	}
	if len(blob.Content) != len("1200")*2 {
		t.Errorf("Expected ciphertext length to match plaintext, got %d hex chars", len(blob.Content))
	}
}

// ==============================================================================
// 2. Nonce Uniqueness (Semantic Security)
// ==============================================================================

func TestAESGCM_Nonce_Uniqueness(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	plaintext := []byte("identical-plaintext")

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		blob, err := svc.Encrypt(ctx, plaintext)
		if err != nil {
			t.Fatalf("Encrypt #%d failed: %v", i, err)
		}
		if seen[blob.IV] || seen[blob.Content] {
			t.Fatalf("SECURITY VIOLATION: Nonce reuse detected at iteration %d", i)
		}
		seen[blob.IV] = true
		seen[blob.Content] = true

		decrypted, err := svc.Decrypt(ctx, blob)
		if err != nil || string(decrypted) != string(plaintext) {
			t.Fatalf("Decrypt #%d failed: %v", i, err)
		}
	}
}

// ==============================================================================
// 3. Key Validation
// ==============================================================================

func TestAESGCM_Rejects_Short_Key(t *testing.T) {
	_, err := crypto.NewAESCryptoService(make([]byte, 16))
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("SECURITY VIOLATION: Accepted 128-bit key, got err=%v", err)
	}
}

func TestAESGCM_Rejects_Empty_Secret(t *testing.T) {
	_, err := crypto.NewAESCryptoServiceFromSecret("", "salt")
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("SECURITY VIOLATION: Accepted empty secret, got err=%v", err)
	}
}

func TestAESGCM_Zeroizes_Caller_Key(t *testing.T) {
	key := generateTestKey(t)
	if _, err := crypto.NewAESCryptoService(key); err != nil {
		t.Fatalf("Failed to create crypto service: %v", err)
	}
	for i, b := range key {
		if b != 0 {
			t.Fatalf("Key byte %d was not zeroized", i)
		}
	}
}

// ==============================================================================
// 4. Tampering & Wrong Key Detection
// ==============================================================================

func TestAESGCM_Wrong_Key_Fails_Closed(t *testing.T) {
	ctx := context.Background()
	blob, err := newService(t).Encrypt(ctx, []byte("SUPER_SECRET_SPEND"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	plaintext, err := newService(t).Decrypt(ctx, blob)
	if !errors.Is(err, domain.ErrIntegrity) {
		t.Fatalf("SECURITY VIOLATION: Decrypt under a different key returned err=%v", err)
	}
	if plaintext != nil {
		t.Fatal("SECURITY VIOLATION: partial plaintext returned on integrity failure")
	}
}

func TestAESGCM_Single_Bit_Flip_Detection(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	blob, err := svc.Encrypt(ctx, []byte("sensitive-data"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	flipEach := func(field string, get func(*domain.EncryptedBlob) *string) {
		raw, _ := hex.DecodeString(*get(blob))
		for i := range raw {
			for bit := 0; bit < 8; bit++ {
				tampered := *blob
				mutated := append([]byte(nil), raw...)
				mutated[i] ^= 1 << bit
				*get(&tampered) = hex.EncodeToString(mutated)

				out, err := svc.Decrypt(ctx, &tampered)
				if !errors.Is(err, domain.ErrIntegrity) {
					t.Fatalf("SECURITY VIOLATION: %s byte %d bit %d flip returned err=%v", field, i, bit, err)
				}
				if out != nil {
					t.Fatalf("SECURITY VIOLATION: %s flip returned altered plaintext", field)
				}
			}
		}
	}

	flipEach("content", func(b *domain.EncryptedBlob) *string { return &b.Content })
	flipEach("authTag", func(b *domain.EncryptedBlob) *string { return &b.AuthTag })
	flipEach("iv", func(b *domain.EncryptedBlob) *string { return &b.IV })
}

// ==============================================================================
// 5. Malformed Blobs
// ==============================================================================

func TestAESGCM_Malformed_Blob(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	good, err := svc.Encrypt(ctx, []byte("1200"))
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	cases := map[string]*domain.EncryptedBlob{
		"nil blob":        nil,
		"missing iv":      {Content: good.Content, AuthTag: good.AuthTag},
		"missing tag":     {IV: good.IV, Content: good.Content},
		"non-hex iv":      {IV: "zz" + good.IV[2:], Content: good.Content, AuthTag: good.AuthTag},
		"non-hex content": {IV: good.IV, Content: "not hex!", AuthTag: good.AuthTag},
		"short tag":       {IV: good.IV, Content: good.Content, AuthTag: good.AuthTag[:8]},
		"odd iv length":   {IV: good.IV[:10], Content: good.Content, AuthTag: good.AuthTag},
	}

	for name, blob := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Decrypt(ctx, blob)
			if !errors.Is(err, domain.ErrFormat) {
				t.Fatalf("Expected ErrFormat, got %v", err)
			}
		})
	}
}

// ==============================================================================
// 6. Interoperability
// ==============================================================================

func TestAESGCM_Accepts_12_Byte_Nonce(t *testing.T) {
	key := generateTestKey(t)
	keyCopy := append([]byte(nil), key...)

	svc, err := crypto.NewAESCryptoService(key)
	if err != nil {
		t.Fatalf("Failed to create crypto service: %v", err)
	}

	block, _ := aes.NewCipher(keyCopy)
	gcm, _ := cipher.NewGCM(block)
	nonce := make([]byte, gcm.NonceSize())
	rand.Read(nonce)
	sealed := gcm.Seal(nil, nonce, []byte("legacy"), nil)
	split := len(sealed) - crypto.TagSize

	out, err := svc.Decrypt(context.Background(), &domain.EncryptedBlob{
		IV:      hex.EncodeToString(nonce),
		Content: hex.EncodeToString(sealed[:split]),
		AuthTag: hex.EncodeToString(sealed[split:]),
	})
	if err != nil {
		t.Fatalf("Decrypt with 12-byte nonce failed: %v", err)
	}
	if string(out) != "legacy" {
		t.Errorf("got %q, want %q", out, "legacy")
	}
}
