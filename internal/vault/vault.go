// Package vault encrypts bank access tokens at rest with AES-256-GCM.
//
// Ciphertexts are base64(iv || sealed), with a 12-byte random IV.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

const keySize = 32

var (
	// ErrNoKey is returned when no encryption secret is configured.
	ErrNoKey = errors.New("vault: encryption key not configured")
	// ErrMalformed is returned for input that is not a vault ciphertext.
	ErrMalformed = errors.New("vault: malformed ciphertext")
)

// hkdfInfo binds derived keys to this use.
var hkdfInfo = []byte("fintrack bank-token v1")

// Vault seals and opens short secrets.
type Vault struct {
	aead cipher.AEAD
}

// New builds a vault from secret. A secret that decodes (base64 or hex)
// to exactly 32 bytes is used as the key; anything else is stretched with
// HKDF-SHA256.
func New(secret string) (*Vault, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrNoKey
	}
	block, err := aes.NewCipher(deriveKey(secret))
	if err != nil {
		return nil, fmt.Errorf("vault: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: new gcm: %w", err)
	}
	return &Vault{aead: aead}, nil
}

func deriveKey(secret string) []byte {
	if raw, err := base64.StdEncoding.DecodeString(secret); err == nil && len(raw) == keySize {
		return raw
	}
	if raw, err := hex.DecodeString(secret); err == nil && len(raw) == keySize {
		return raw
	}
	key := make([]byte, keySize)
	r := hkdf.New(sha256.New, []byte(secret), nil, hkdfInfo)
	// hkdf can always produce 32 bytes from SHA-256.
	_, _ = io.ReadFull(r, key)
	return key
}

// Encrypt seals plaintext and returns base64(iv || ciphertext).
func (v *Vault) Encrypt(plaintext string) (string, error) {
	iv := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("vault: iv: %w", err)
	}
	sealed := v.aead.Seal(iv, iv, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt.
func (v *Vault) Decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	ns := v.aead.NonceSize()
	if len(data) < ns+v.aead.Overhead() {
		return "", fmt.Errorf("%w: too short", ErrMalformed)
	}
	plain, err := v.aead.Open(nil, data[:ns], data[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("vault: decrypt: %w", err)
	}
	return string(plain), nil
}
