package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/vmaslennikov/usercore-backend/internal/kyc"
	"github.com/vmaslennikov/usercore-backend/internal/logger"
	"github.com/vmaslennikov/usercore-backend/internal/models"
	"github.com/vmaslennikov/usercore-backend/internal/pkg/apperror"
	"github.com/vmaslennikov/usercore-backend/internal/repository"
)

// ProviderClient — провайдер KYC, умеющий открывать новые сессии.
type ProviderClient interface {
	CreateSession(ctx context.Context, req kyc.SessionRequest) (*kyc.ProviderSession, error)
}

// VerificationSessionRepository — хранилище сессий для чтения и создания.
type VerificationSessionRepository interface {
	Create(ctx context.Context, session *models.VerificationSession) error
	GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.VerificationSession, error)
}

// VerificationDecisionRepository — чтение текущего решения по сессии.
type VerificationDecisionRepository interface {
	GetBySessionID(ctx context.Context, sessionID string) (*models.VerificationDecision, error)
}

// VerificationUserRepository — проверка существования пользователя.
type VerificationUserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// VerificationIdentityRepository — доступ к подтверждённым личностям.
type VerificationIdentityRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.VerifiedIdentity, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

// VerificationResult — сессия, в которую должен попасть пользователь,
// плюс действующее решение по его предыдущей попытке (если было).
type VerificationResult struct {
	Session  *models.VerificationSession
	Decision *models.VerificationDecision
}

// VerificationService решает, отдать пользователю существующую сессию
// или открыть у провайдера новую.
type VerificationService struct {
	provider    ProviderClient
	sessions    VerificationSessionRepository
	decisions   VerificationDecisionRepository
	users       VerificationUserRepository
	identities  VerificationIdentityRepository
	callbackURL string
}

// NewVerificationService создаёт сервис выдачи сессий верификации.
func NewVerificationService(
	provider ProviderClient,
	sessions VerificationSessionRepository,
	decisions VerificationDecisionRepository,
	users VerificationUserRepository,
	identities VerificationIdentityRepository,
	callbackURL string,
) *VerificationService {
	return &VerificationService{
		provider:    provider,
		sessions:    sessions,
		decisions:   decisions,
		users:       users,
		identities:  identities,
		callbackURL: callbackURL,
	}
}

// GetOrCreateVerification возвращает сессию для пользователя:
//   - сессии нет — открывается новая;
//   - решение отсутствует, approved или resubmission_requested —
//     возвращается существующая сессия (и решение, если есть);
//   - declined/abandoned/expired — прежняя сессия исчерпана, открывается
//     новая, прежнее решение возвращается вместе с ней.
func (s *VerificationService) GetOrCreateVerification(ctx context.Context, userID uuid.UUID) (*VerificationResult, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "чтение пользователя")
	}

	session, err := s.sessions.GetLatestByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			created, err := s.provisionSession(ctx, user)
			if err != nil {
				return nil, err
			}
			return &VerificationResult{Session: created}, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "чтение сессии")
	}

	decision, err := s.decisions.GetBySessionID(ctx, session.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrDecisionNotFound) {
			// Решения ещё нет: попытка продолжается в той же сессии.
			return &VerificationResult{Session: session}, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "чтение решения")
	}

	if !models.DecisionExhausted(decision.Status) {
		return &VerificationResult{Session: session, Decision: decision}, nil
	}

	// Сессия исчерпана: провайдер не примет в неё новые документы.
	created, err := s.provisionSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &VerificationResult{Session: created, Decision: decision}, nil
}

// GetStatus возвращает последнюю сессию пользователя и решение по ней,
// ничего не создавая у провайдера.
func (s *VerificationService) GetStatus(ctx context.Context, userID uuid.UUID) (*VerificationResult, error) {
	session, err := s.sessions.GetLatestByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.ErrSessionNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "чтение сессии")
	}

	decision, err := s.decisions.GetBySessionID(ctx, session.SessionID)
	if err != nil {
		if errors.Is(err, repository.ErrDecisionNotFound) {
			return &VerificationResult{Session: session}, nil
		}
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "чтение решения")
	}
	return &VerificationResult{Session: session, Decision: decision}, nil
}

// DeactivateIdentity помечает подтверждённую личность выведенной из
// использования (GDPR-запрос, ошибочная привязка).
func (s *VerificationService) DeactivateIdentity(ctx context.Context, identityID uuid.UUID) error {
	if err := s.identities.Deactivate(ctx, identityID); err != nil {
		if errors.Is(err, repository.ErrIdentityNotFound) {
			return apperror.ErrIdentityNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "деактивация личности")
	}
	return nil
}

func (s *VerificationService) provisionSession(ctx context.Context, user *models.User) (*models.VerificationSession, error) {
	req := kyc.SessionRequest{
		CallbackURL: s.callbackURL,
		FirstName:   derefString(user.FirstName),
		LastName:    derefString(user.LastName),
		VendorData:  user.ID.String(),
	}

	provided, err := s.provider.CreateSession(ctx, req)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeInternal, "провайдер не открыл сессию")
	}

	session := &models.VerificationSession{
		SessionID:       provided.ID,
		UserID:          user.ID,
		VerificationURL: provided.URL,
		VendorData:      provided.VendorData,
		Host:            provided.Host,
		InitialStatus:   provided.Status,
		LifecycleState:  models.LifecycleStateCreated,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "сохранение сессии")
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"session_id": session.SessionID,
	}).Info("verification: открыта новая сессия")

	return session, nil
}

var _ ProviderClient = (*kyc.Client)(nil)
