package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/vmaslennikov/usercore-backend/internal/kyc"
	"github.com/vmaslennikov/usercore-backend/internal/logger"
	"github.com/vmaslennikov/usercore-backend/internal/models"
)

// LifecycleSessionRepository описывает работу менеджера с хранилищем сессий.
type LifecycleSessionRepository interface {
	GetByID(ctx context.Context, sessionID string) (*models.VerificationSession, error)
	UpdateLifecycleState(ctx context.Context, sessionID, state string) error
}

// LifecycleDecisionRepository описывает удаление устаревших решений.
type LifecycleDecisionRepository interface {
	DeleteBySessionID(ctx context.Context, sessionID string) error
}

// LifecycleService обрабатывает событийные callback провайдера
// (started/submitted) и двигает состояние сессии строго вперёд.
type LifecycleService struct {
	sessions  LifecycleSessionRepository
	decisions LifecycleDecisionRepository
}

// NewLifecycleService создаёт сервис обработки событий жизненного цикла.
func NewLifecycleService(sessions LifecycleSessionRepository, decisions LifecycleDecisionRepository) *LifecycleService {
	return &LifecycleService{sessions: sessions, decisions: decisions}
}

// HandleEvent разбирает событие и обновляет сессию.
// Неизвестная сессия — repository.ErrSessionNotFound: провайдер может
// присылать события по сессиям, которых у нас уже (или ещё) нет.
func (s *LifecycleService) HandleEvent(ctx context.Context, raw []byte) (*models.VerificationSession, error) {
	event, err := kyc.ParseEventPayload(raw)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.GetByID(ctx, event.SessionID)
	if err != nil {
		return nil, err
	}

	switch event.Kind {
	case kyc.EventStarted:
		// Пользователь начал новую попытку внутри той же сессии (например,
		// после resubmission_requested). Старое решение больше не актуально
		// и не должно отдаваться как текущее.
		if err := s.decisions.DeleteBySessionID(ctx, session.SessionID); err != nil {
			return nil, err
		}
		if session.AdvanceTo(models.LifecycleStateStarted) {
			if err := s.sessions.UpdateLifecycleState(ctx, session.SessionID, session.LifecycleState); err != nil {
				return nil, err
			}
		}
	case kyc.EventSubmitted:
		if session.AdvanceTo(models.LifecycleStateSubmitted) {
			if err := s.sessions.UpdateLifecycleState(ctx, session.SessionID, session.LifecycleState); err != nil {
				return nil, err
			}
		}
	default:
		// Новые виды событий провайдера игнорируем, но оставляем след в логах.
		logger.Log.WithFields(logrus.Fields{
			"session_id": event.SessionID,
			"kind":       string(event.Kind),
		}).Info("lifecycle: неизвестный вид события, пропущен")
	}

	return session, nil
}
