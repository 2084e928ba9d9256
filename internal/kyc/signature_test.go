package kyc

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
)

func signFor(payload []byte, secret string) string {
	digest := sha256.Sum256(append(append([]byte{}, payload...), []byte(secret)...))
	return hex.EncodeToString(digest[:])
}

func TestAuthenticateClient(t *testing.T) {
	auth := NewAuthenticator("api-key-123", "secret")

	if err := auth.AuthenticateClient("api-key-123"); err != nil {
		t.Fatalf("валидный клиент отклонён: %v", err)
	}
	if err := auth.AuthenticateClient("other-key"); !errors.Is(err, ErrInvalidClient) {
		t.Fatalf("ожидалась ErrInvalidClient, получили %v", err)
	}
	if err := auth.AuthenticateClient(""); !errors.Is(err, ErrInvalidClient) {
		t.Fatalf("пустой клиент должен быть отклонён")
	}
}

func TestVerifySignature(t *testing.T) {
	auth := NewAuthenticator("api-key-123", "shared-secret")
	payload := []byte(`{"verification": {"id": "sess-1", "status": "approved"}}`)

	if err := auth.VerifySignature(signFor(payload, "shared-secret"), payload); err != nil {
		t.Fatalf("валидная подпись отклонена: %v", err)
	}
}

func TestVerifySignatureMismatch(t *testing.T) {
	auth := NewAuthenticator("api-key-123", "shared-secret")
	payload := []byte(`{"verification": {"id": "sess-1"}}`)

	// Подпись от другого секрета.
	if err := auth.VerifySignature(signFor(payload, "wrong-secret"), payload); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("ожидалась ErrInvalidSignature, получили %v", err)
	}

	// Подпись от другого payload: подмена тела должна обнаруживаться.
	other := signFor([]byte(`{"verification": {"id": "sess-2"}}`), "shared-secret")
	if err := auth.VerifySignature(other, payload); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("ожидалась ErrInvalidSignature, получили %v", err)
	}
}
