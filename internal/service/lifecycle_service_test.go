package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/vmaslennikov/usercore-backend/internal/kyc"
	"github.com/vmaslennikov/usercore-backend/internal/logger"
	"github.com/vmaslennikov/usercore-backend/internal/models"
	"github.com/vmaslennikov/usercore-backend/internal/repository"
)

func TestMain(m *testing.M) {
	logger.Init("error")
	os.Exit(m.Run())
}

// mockLifecycleSessions реализует LifecycleSessionRepository для тестов.
type mockLifecycleSessions struct {
	sessions map[string]*models.VerificationSession
	updates  []string
}

func newMockLifecycleSessions() *mockLifecycleSessions {
	return &mockLifecycleSessions{sessions: make(map[string]*models.VerificationSession)}
}

func (m *mockLifecycleSessions) GetByID(ctx context.Context, sessionID string) (*models.VerificationSession, error) {
	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockLifecycleSessions) UpdateLifecycleState(ctx context.Context, sessionID, state string) error {
	s, ok := m.sessions[sessionID]
	if !ok {
		return repository.ErrSessionNotFound
	}
	s.LifecycleState = state
	m.updates = append(m.updates, state)
	return nil
}

// mockLifecycleDecisions реализует LifecycleDecisionRepository.
type mockLifecycleDecisions struct {
	decisions map[string]*models.VerificationDecision
	deleted   []string
}

func newMockLifecycleDecisions() *mockLifecycleDecisions {
	return &mockLifecycleDecisions{decisions: make(map[string]*models.VerificationDecision)}
}

func (m *mockLifecycleDecisions) DeleteBySessionID(ctx context.Context, sessionID string) error {
	delete(m.decisions, sessionID)
	m.deleted = append(m.deleted, sessionID)
	return nil
}

func eventPayload(t *testing.T, sessionID string, kind kyc.EventKind) []byte {
	t.Helper()
	raw, err := json.Marshal(map[string]interface{}{
		"verification": map[string]interface{}{
			"id":     sessionID,
			"status": string(kind),
		},
	})
	if err != nil {
		t.Fatalf("не удалось собрать payload: %v", err)
	}
	return raw
}

func TestLifecycleService_StartedAdvancesAndDropsDecision(t *testing.T) {
	sessions := newMockLifecycleSessions()
	decisions := newMockLifecycleDecisions()
	service := NewLifecycleService(sessions, decisions)

	sessionID := "sess-100"
	sessions.sessions[sessionID] = &models.VerificationSession{
		SessionID:      sessionID,
		UserID:         uuid.New(),
		LifecycleState: models.LifecycleStateCreated,
	}
	decisions.decisions[sessionID] = &models.VerificationDecision{
		SessionID: sessionID,
		Status:    models.DecisionStatusResubmissionRequested,
	}

	session, err := service.HandleEvent(context.Background(), eventPayload(t, sessionID, kyc.EventStarted))
	if err != nil {
		t.Fatalf("HandleEvent вернул ошибку: %v", err)
	}

	if session.LifecycleState != models.LifecycleStateStarted {
		t.Fatalf("ожидалось состояние %q, получили %q", models.LifecycleStateStarted, session.LifecycleState)
	}
	if _, ok := decisions.decisions[sessionID]; ok {
		t.Fatalf("старое решение должно быть удалено при started")
	}
}

func TestLifecycleService_StartedAfterSubmittedDoesNotRegress(t *testing.T) {
	sessions := newMockLifecycleSessions()
	decisions := newMockLifecycleDecisions()
	service := NewLifecycleService(sessions, decisions)

	sessionID := "sess-101"
	sessions.sessions[sessionID] = &models.VerificationSession{
		SessionID:      sessionID,
		LifecycleState: models.LifecycleStateSubmitted,
	}

	session, err := service.HandleEvent(context.Background(), eventPayload(t, sessionID, kyc.EventStarted))
	if err != nil {
		t.Fatalf("HandleEvent вернул ошибку: %v", err)
	}

	if session.LifecycleState != models.LifecycleStateSubmitted {
		t.Fatalf("состояние не должно откатываться назад, получили %q", session.LifecycleState)
	}
	if len(sessions.updates) != 0 {
		t.Fatalf("не ожидалось обновлений состояния, было %d", len(sessions.updates))
	}
	// Решение удаляется независимо от перехода состояния.
	if len(decisions.deleted) != 1 {
		t.Fatalf("ожидалось одно удаление решения, было %d", len(decisions.deleted))
	}
}

func TestLifecycleService_SubmittedAdvances(t *testing.T) {
	sessions := newMockLifecycleSessions()
	decisions := newMockLifecycleDecisions()
	service := NewLifecycleService(sessions, decisions)

	sessionID := "sess-102"
	sessions.sessions[sessionID] = &models.VerificationSession{
		SessionID:      sessionID,
		LifecycleState: models.LifecycleStateCreated,
	}

	session, err := service.HandleEvent(context.Background(), eventPayload(t, sessionID, kyc.EventSubmitted))
	if err != nil {
		t.Fatalf("HandleEvent вернул ошибку: %v", err)
	}

	if session.LifecycleState != models.LifecycleStateSubmitted {
		t.Fatalf("ожидалось состояние %q, получили %q", models.LifecycleStateSubmitted, session.LifecycleState)
	}
	if len(decisions.deleted) != 0 {
		t.Fatalf("submitted не должен трогать решение")
	}
}

func TestLifecycleService_UnknownKindIgnored(t *testing.T) {
	sessions := newMockLifecycleSessions()
	decisions := newMockLifecycleDecisions()
	service := NewLifecycleService(sessions, decisions)

	sessionID := "sess-103"
	sessions.sessions[sessionID] = &models.VerificationSession{
		SessionID:      sessionID,
		LifecycleState: models.LifecycleStateStarted,
	}

	session, err := service.HandleEvent(context.Background(), eventPayload(t, sessionID, kyc.EventKind("paused")))
	if err != nil {
		t.Fatalf("неизвестное событие не должно быть ошибкой: %v", err)
	}
	if session.LifecycleState != models.LifecycleStateStarted {
		t.Fatalf("состояние не должно меняться, получили %q", session.LifecycleState)
	}
}

func TestLifecycleService_UnknownSession(t *testing.T) {
	service := NewLifecycleService(newMockLifecycleSessions(), newMockLifecycleDecisions())

	_, err := service.HandleEvent(context.Background(), eventPayload(t, "sess-missing", kyc.EventStarted))
	if !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("ожидалась ErrSessionNotFound, получили %v", err)
	}
}

func TestLifecycleService_MalformedPayload(t *testing.T) {
	service := NewLifecycleService(newMockLifecycleSessions(), newMockLifecycleDecisions())

	_, err := service.HandleEvent(context.Background(), []byte(`{"status":"started"}`))
	if !errors.Is(err, kyc.ErrMissingVerification) {
		t.Fatalf("ожидалась ErrMissingVerification, получили %v", err)
	}

	_, err = service.HandleEvent(context.Background(), []byte(`{"verification":{"status":"started"}}`))
	if !errors.Is(err, kyc.ErrMalformedPayload) {
		t.Fatalf("ожидалась ErrMalformedPayload, получили %v", err)
	}
}
