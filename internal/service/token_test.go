package service

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vmaslennikov/usercore-backend/internal/models"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	manager := NewTokenManager("access-secret", time.Minute)

	user := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	token, err := manager.Generate(user)
	if err != nil {
		t.Fatalf("не удалось выпустить токен: %v", err)
	}

	userID, role, err := manager.ParseAccess(token)
	if err != nil {
		t.Fatalf("валидный токен не прошёл проверку: %v", err)
	}
	if userID != user.ID {
		t.Fatalf("userID искажён: %s != %s", userID, user.ID)
	}
	if role != models.RoleAdmin {
		t.Fatalf("роль искажена: %q", role)
	}
}

func TestTokenManager_WrongSecret(t *testing.T) {
	manager := NewTokenManager("access-secret", time.Minute)
	other := NewTokenManager("other-secret", time.Minute)

	token, err := manager.Generate(&models.User{ID: uuid.New(), Role: models.RoleUser})
	if err != nil {
		t.Fatalf("не удалось выпустить токен: %v", err)
	}

	if _, _, err := other.ParseAccess(token); err == nil {
		t.Fatalf("токен с чужим секретом не должен проходить проверку")
	}
}
