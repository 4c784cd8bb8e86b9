package crypto

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

// ============================================================
// Encrypt / Decrypt
// ============================================================

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		plaintext string
	}{
		{"api key", "hl-api-key-1234567890"},
		{"empty string", ""},
		{"unicode", "ключ-доступа"},
		{"long secret", strings.Repeat("s", 4096)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted, err := Encrypt(tt.plaintext, testKey)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}

			decrypted, err := Decrypt(encrypted, testKey)
			if err != nil {
				t.Fatalf("Decrypt failed: %v", err)
			}

			if decrypted != tt.plaintext {
				t.Errorf("round trip mismatch: got %q, want %q", decrypted, tt.plaintext)
			}
		})
	}
}

func TestEncrypt_NonceUnique(t *testing.T) {
	// Одинаковый plaintext должен давать разный ciphertext (случайный nonce)
	a, err := Encrypt("same-secret", testKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	b, err := Encrypt("same-secret", testKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if a == b {
		t.Error("two encryptions produced identical ciphertext")
	}
}

func TestEncrypt_InvalidKeyLength(t *testing.T) {
	for _, key := range [][]byte{nil, []byte("short"), bytes.Repeat([]byte("x"), 33)} {
		if _, err := Encrypt("data", key); !errors.Is(err, ErrInvalidKeyLength) {
			t.Errorf("key len %d: expected ErrInvalidKeyLength, got %v", len(key), err)
		}
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	encrypted, err := Encrypt("secret", testKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	otherKey := []byte("fedcba9876543210fedcba9876543210")
	if _, err := Decrypt(encrypted, otherKey); !errors.Is(err, ErrDecryptionFailed) {
		t.Errorf("expected ErrDecryptionFailed, got %v", err)
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	encrypted, err := Encrypt("secret", testKey)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// Портим последний символ base64
	tampered := encrypted[:len(encrypted)-2] + "A="
	if _, err := Decrypt(tampered, testKey); err == nil {
		t.Error("tampered ciphertext decrypted without error")
	}
}

func TestDecrypt_Garbage(t *testing.T) {
	if _, err := Decrypt("not-base64!!!", testKey); err == nil {
		t.Error("garbage input decrypted without error")
	}
	if _, err := Decrypt("QQ==", testKey); !errors.Is(err, ErrCiphertextTooShort) {
		t.Errorf("expected ErrCiphertextTooShort, got %v", err)
	}
}

// ============================================================
// HashToken / VerifyToken
// ============================================================

func TestHashVerifyToken(t *testing.T) {
	hash, err := HashToken("ops-token-secret")
	if err != nil {
		t.Fatalf("HashToken failed: %v", err)
	}

	if err := VerifyToken("ops-token-secret", hash); err != nil {
		t.Errorf("valid token rejected: %v", err)
	}

	if err := VerifyToken("wrong-token", hash); !errors.Is(err, ErrTokenMismatch) {
		t.Errorf("expected ErrTokenMismatch, got %v", err)
	}
}

func TestHashToken_Validation(t *testing.T) {
	if _, err := HashToken(""); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("expected ErrEmptyToken, got %v", err)
	}

	long := strings.Repeat("t", 73)
	if _, err := HashToken(long); !errors.Is(err, ErrTokenTooLong) {
		t.Errorf("expected ErrTokenTooLong, got %v", err)
	}
}

func TestVerifyToken_EmptyToken(t *testing.T) {
	hash, _ := HashToken("token")
	if err := VerifyToken("", hash); !errors.Is(err, ErrEmptyToken) {
		t.Errorf("expected ErrEmptyToken, got %v", err)
	}
}
