package kyc

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// Ошибки аутентификации входящих callback.
var (
	ErrInvalidClient    = errors.New("kyc: неизвестный клиент callback")
	ErrInvalidSignature = errors.New("kyc: подпись callback не совпадает")
)

// Authenticator проверяет, что callback действительно пришёл от провайдера.
// Проверка обязана выполняться до разбора payload: содержимому нельзя
// доверять, пока подпись не подтверждена.
type Authenticator struct {
	apiKey       string
	sharedSecret string
}

// NewAuthenticator создаёт аутентификатор callback.
func NewAuthenticator(apiKey, sharedSecret string) *Authenticator {
	return &Authenticator{apiKey: apiKey, sharedSecret: sharedSecret}
}

// AuthenticateClient сверяет идентификатор клиента из заголовка с нашим API ключом.
func (a *Authenticator) AuthenticateClient(clientID string) error {
	if subtle.ConstantTimeCompare([]byte(clientID), []byte(a.apiKey)) != 1 {
		return ErrInvalidClient
	}
	return nil
}

// VerifySignature пересчитывает подпись по сырым байтам payload и общему
// секрету и сравнивает её с присланной за константное время.
// Несовпадение означает отказ в обработке callback целиком.
func (a *Authenticator) VerifySignature(signature string, payload []byte) error {
	digest := sha256.Sum256(append(append([]byte{}, payload...), []byte(a.sharedSecret)...))
	expected := hex.EncodeToString(digest[:])

	if subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) != 1 {
		return ErrInvalidSignature
	}
	return nil
}
