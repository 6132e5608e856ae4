package vault

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	v, err := New("correct horse battery staple")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	enc, err := v.Encrypt("access-sandbox-123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if strings.Contains(enc, "access-sandbox") {
		t.Fatal("ciphertext leaks plaintext")
	}
	got, err := v.Decrypt(enc)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "access-sandbox-123" {
		t.Fatalf("Decrypt = %q", got)
	}
}

func TestLayoutIsIVThenCiphertext(t *testing.T) {
	v, _ := New("k")
	enc, _ := v.Encrypt("abc")
	raw, err := base64.StdEncoding.DecodeString(enc)
	if err != nil {
		t.Fatalf("not std base64: %v", err)
	}
	// 12-byte IV + 3-byte ciphertext + 16-byte tag.
	if len(raw) != 12+3+16 {
		t.Fatalf("len = %d, want 31", len(raw))
	}
}

func TestFreshIVPerCall(t *testing.T) {
	v, _ := New("k")
	a, _ := v.Encrypt("same")
	b, _ := v.Encrypt("same")
	if a == b {
		t.Fatal("two encryptions produced identical output")
	}
}

func TestRawKeyAccepted(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	b64 := base64.StdEncoding.EncodeToString(key)
	if got := deriveKey(b64); string(got) != string(key) {
		t.Fatal("base64 32-byte key was not used verbatim")
	}
	if got := deriveKey("short"); len(got) != 32 || string(got) == "short" {
		t.Fatal("short secret was not stretched to 32 bytes")
	}
}

func TestDecryptFailures(t *testing.T) {
	v, _ := New("one")
	other, _ := New("two")
	enc, _ := v.Encrypt("secret")

	if _, err := other.Decrypt(enc); err == nil {
		t.Fatal("wrong key decrypted successfully")
	}
	if _, err := v.Decrypt("%%%"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("bad base64 err = %v, want ErrMalformed", err)
	}
	if _, err := v.Decrypt(base64.StdEncoding.EncodeToString([]byte("tiny"))); !errors.Is(err, ErrMalformed) {
		t.Fatalf("short input err = %v, want ErrMalformed", err)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New("   "); !errors.Is(err, ErrNoKey) {
		t.Fatalf("err = %v, want ErrNoKey", err)
	}
}
