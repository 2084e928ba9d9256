package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vmaslennikov/usercore-backend/internal/kyc"
	"github.com/vmaslennikov/usercore-backend/internal/logger"
	"github.com/vmaslennikov/usercore-backend/internal/models"
	"github.com/vmaslennikov/usercore-backend/internal/repository"
)

// DecisionDecisionRepository — запись решений провайдера.
type DecisionDecisionRepository interface {
	Upsert(ctx context.Context, decision *models.VerificationDecision) error
}

// DecisionIdentityRepository — сохранение подтверждённых личных данных.
type DecisionIdentityRepository interface {
	Create(ctx context.Context, identity *models.VerifiedIdentity) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.VerifiedIdentity, error)
}

// DecisionUserRepository — привязка личности к аккаунту пользователя.
type DecisionUserRepository interface {
	AttachVerifiedIdentity(ctx context.Context, userID uuid.UUID, sessionID string) error
}

// DecisionNotifier — пуш уведомления о решении в реальном времени.
type DecisionNotifier interface {
	NotifyUser(userID uuid.UUID, eventType string, payload interface{})
}

// DecisionService обрабатывает финальные решения провайдера: сохраняет
// решение, а для approved — подтверждённую личность и проекцию на аккаунт.
type DecisionService struct {
	decisions  DecisionDecisionRepository
	identities DecisionIdentityRepository
	users      DecisionUserRepository
	notifier   DecisionNotifier
}

// NewDecisionService создаёт сервис обработки решений.
func NewDecisionService(decisions DecisionDecisionRepository, identities DecisionIdentityRepository, users DecisionUserRepository) *DecisionService {
	return &DecisionService{decisions: decisions, identities: identities, users: users}
}

// SetNotifier подключает пуш уведомлений (опционально).
func (s *DecisionService) SetNotifier(n DecisionNotifier) {
	s.notifier = n
}

// HandleDecision разбирает и применяет решение провайдера. Повторная
// доставка того же решения безопасна: запись заменяется по session_id,
// а привязка личности к пользователю идемпотентна.
func (s *DecisionService) HandleDecision(ctx context.Context, raw []byte) (*models.VerificationDecision, error) {
	payload, err := kyc.ParseDecisionPayload(raw)
	if err != nil {
		return nil, err
	}

	decision := &models.VerificationDecision{
		SessionID:      payload.SessionID,
		Status:         payload.Status,
		Code:           payload.Code,
		Reason:         payload.Reason,
		ReasonCode:     payload.ReasonCode,
		DecisionTime:   payload.DecisionTime,
		AcceptanceTime: payload.AcceptanceTime,
	}

	if !models.IsKnownDecisionStatus(decision.Status) {
		logger.Log.WithFields(logrus.Fields{
			"session_id": decision.SessionID,
			"status":     decision.Status,
		}).Warn("decision: неизвестный статус решения, сохранён как есть")
	}

	if err := s.decisions.Upsert(ctx, decision); err != nil {
		return nil, fmt.Errorf("сохранение решения: %w", err)
	}

	userID := s.resolveUserID(payload)
	s.notify(userID, decision)

	if decision.Status != models.DecisionStatusApproved {
		return decision, nil
	}

	if payload.Person == nil {
		return nil, kyc.ErrMissingPersonData
	}
	if payload.Document == nil {
		return nil, kyc.ErrMissingDocumentData
	}

	// Провайдер ретраит доставку: если личность по этой сессии уже
	// сохранена, вторую запись не создаём.
	existing, err := s.identities.GetBySessionID(ctx, payload.SessionID)
	if err != nil && !errors.Is(err, repository.ErrIdentityNotFound) {
		return nil, fmt.Errorf("поиск личности: %w", err)
	}
	if existing != nil {
		if userID == uuid.Nil {
			return decision, nil
		}
		if err := s.users.AttachVerifiedIdentity(ctx, userID, payload.SessionID); err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("привязка личности: %w", err)
		}
		return decision, nil
	}

	identity := &models.VerifiedIdentity{
		SessionID:    payload.SessionID,
		FirstName:    derefString(payload.Person.FirstName),
		LastName:     derefString(payload.Person.LastName),
		DateOfBirth:  payload.Person.DateOfBirth,
		Nationality:  payload.Person.Nationality,
		PlaceOfBirth: payload.Person.PlaceOfBirth,
		IdentityDocument: models.IdentityDocument{
			DocType:       payload.Document.Type,
			DocNumber:     payload.Document.Number,
			DocCountry:    payload.Document.Country,
			DocValidFrom:  payload.Document.ValidFrom,
			DocValidUntil: payload.Document.ValidUntil,
		},
	}
	if err := s.identities.Create(ctx, identity); err != nil {
		return nil, fmt.Errorf("сохранение личности: %w", err)
	}

	if userID == uuid.Nil {
		logger.Log.WithField("session_id", payload.SessionID).
			Warn("decision: approved без vendorData, личность не привязана к аккаунту")
		return decision, nil
	}

	if err := s.users.AttachVerifiedIdentity(ctx, userID, payload.SessionID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Аккаунт мог быть удалён между созданием сессии и решением.
			logger.Log.WithFields(logrus.Fields{
				"session_id": payload.SessionID,
				"user_id":    userID,
			}).Warn("decision: пользователь не найден, личность сохранена без привязки")
			return decision, nil
		}
		return nil, fmt.Errorf("привязка личности: %w", err)
	}

	return decision, nil
}

func (s *DecisionService) resolveUserID(payload *kyc.Decision) uuid.UUID {
	if payload.VendorData == nil {
		return uuid.Nil
	}
	userID, err := uuid.Parse(*payload.VendorData)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{
			"session_id":  payload.SessionID,
			"vendor_data": *payload.VendorData,
		}).Warn("decision: vendorData не является валидным UUID")
		return uuid.Nil
	}
	return userID
}

func (s *DecisionService) notify(userID uuid.UUID, decision *models.VerificationDecision) {
	if s.notifier == nil || userID == uuid.Nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"sessionId": decision.SessionID,
		"status":    decision.Status,
		"code":      decision.Code,
	})
	if err != nil {
		return
	}
	s.notifier.NotifyUser(userID, "verification.decision", json.RawMessage(payload))
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
