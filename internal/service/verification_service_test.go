package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/vmaslennikov/usercore-backend/internal/kyc"
	"github.com/vmaslennikov/usercore-backend/internal/models"
	"github.com/vmaslennikov/usercore-backend/internal/pkg/apperror"
	"github.com/vmaslennikov/usercore-backend/internal/repository"
)

// mockProvider реализует ProviderClient и выдаёт по новой сессии на вызов.
type mockProvider struct {
	calls    int
	requests []kyc.SessionRequest
}

func (m *mockProvider) CreateSession(ctx context.Context, req kyc.SessionRequest) (*kyc.ProviderSession, error) {
	m.calls++
	m.requests = append(m.requests, req)
	id := fmt.Sprintf("prov-%d", m.calls)
	return &kyc.ProviderSession{
		ID:         id,
		URL:        "https://verify.example.com/" + id,
		VendorData: req.VendorData,
		Host:       "https://verify.example.com",
		Status:     "created",
	}, nil
}

// mockSessionStore реализует VerificationSessionRepository.
type mockSessionStore struct {
	byUser map[uuid.UUID][]*models.VerificationSession
}

func newMockSessionStore() *mockSessionStore {
	return &mockSessionStore{byUser: make(map[uuid.UUID][]*models.VerificationSession)}
}

func (m *mockSessionStore) Create(ctx context.Context, session *models.VerificationSession) error {
	m.byUser[session.UserID] = append(m.byUser[session.UserID], session)
	return nil
}

func (m *mockSessionStore) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.VerificationSession, error) {
	sessions := m.byUser[userID]
	if len(sessions) == 0 {
		return nil, repository.ErrSessionNotFound
	}
	return sessions[len(sessions)-1], nil
}

// mockDecisionReader реализует VerificationDecisionRepository.
type mockDecisionReader struct {
	decisions map[string]*models.VerificationDecision
}

func newMockDecisionReader() *mockDecisionReader {
	return &mockDecisionReader{decisions: make(map[string]*models.VerificationDecision)}
}

func (m *mockDecisionReader) GetBySessionID(ctx context.Context, sessionID string) (*models.VerificationDecision, error) {
	if d, ok := m.decisions[sessionID]; ok {
		return d, nil
	}
	return nil, repository.ErrDecisionNotFound
}

// mockUserReader реализует VerificationUserRepository.
type mockUserReader struct {
	users map[uuid.UUID]*models.User
}

func newMockUserReader() *mockUserReader {
	return &mockUserReader{users: make(map[uuid.UUID]*models.User)}
}

func (m *mockUserReader) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrUserNotFound
}

// mockIdentityAdmin реализует VerificationIdentityRepository.
type mockIdentityAdmin struct {
	identities map[uuid.UUID]*models.VerifiedIdentity
}

func newMockIdentityAdmin() *mockIdentityAdmin {
	return &mockIdentityAdmin{identities: make(map[uuid.UUID]*models.VerifiedIdentity)}
}

func (m *mockIdentityAdmin) GetByID(ctx context.Context, id uuid.UUID) (*models.VerifiedIdentity, error) {
	if identity, ok := m.identities[id]; ok {
		return identity, nil
	}
	return nil, repository.ErrIdentityNotFound
}

func (m *mockIdentityAdmin) Deactivate(ctx context.Context, id uuid.UUID) error {
	identity, ok := m.identities[id]
	if !ok {
		return repository.ErrIdentityNotFound
	}
	identity.Deactivated = true
	return nil
}

type verificationFixture struct {
	provider   *mockProvider
	sessions   *mockSessionStore
	decisions  *mockDecisionReader
	users      *mockUserReader
	identities *mockIdentityAdmin
	service    *VerificationService
	userID     uuid.UUID
}

func newVerificationFixture() *verificationFixture {
	f := &verificationFixture{
		provider:   &mockProvider{},
		sessions:   newMockSessionStore(),
		decisions:  newMockDecisionReader(),
		users:      newMockUserReader(),
		identities: newMockIdentityAdmin(),
		userID:     uuid.New(),
	}
	first := "Анна"
	last := "Иванова"
	f.users.users[f.userID] = &models.User{
		ID:        f.userID,
		Email:     "anna@example.com",
		FirstName: &first,
		LastName:  &last,
	}
	f.service = NewVerificationService(
		f.provider, f.sessions, f.decisions, f.users, f.identities,
		"https://api.example.com/webhooks/kyc",
	)
	return f
}

func (f *verificationFixture) seedSession(sessionID string) *models.VerificationSession {
	session := &models.VerificationSession{
		SessionID:       sessionID,
		UserID:          f.userID,
		VerificationURL: "https://verify.example.com/" + sessionID,
		LifecycleState:  models.LifecycleStateCreated,
	}
	f.sessions.byUser[f.userID] = append(f.sessions.byUser[f.userID], session)
	return session
}

func TestVerificationService_FirstCallProvisions(t *testing.T) {
	f := newVerificationFixture()

	res, err := f.service.GetOrCreateVerification(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("GetOrCreateVerification вернул ошибку: %v", err)
	}

	if f.provider.calls != 1 {
		t.Fatalf("ожидался один вызов провайдера, было %d", f.provider.calls)
	}
	if res.Session == nil || res.Session.SessionID != "prov-1" {
		t.Fatalf("ожидалась новая сессия, получили %+v", res.Session)
	}
	if res.Decision != nil {
		t.Fatalf("решения быть не должно")
	}
	if res.Session.LifecycleState != models.LifecycleStateCreated {
		t.Fatalf("новая сессия должна быть в состоянии created")
	}

	req := f.provider.requests[0]
	if req.VendorData != f.userID.String() {
		t.Fatalf("vendorData должен совпадать с ID пользователя")
	}
	if req.FirstName != "Анна" || req.LastName != "Иванова" {
		t.Fatalf("имя пользователя должно передаваться провайдеру")
	}
}

func TestVerificationService_PendingSessionReused(t *testing.T) {
	f := newVerificationFixture()
	seeded := f.seedSession("sess-300")

	res, err := f.service.GetOrCreateVerification(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("GetOrCreateVerification вернул ошибку: %v", err)
	}

	if f.provider.calls != 0 {
		t.Fatalf("провайдер не должен вызываться для незавершённой сессии")
	}
	if res.Session != seeded {
		t.Fatalf("должна вернуться существующая сессия")
	}
}

func TestVerificationService_ResubmissionKeepsSameURL(t *testing.T) {
	f := newVerificationFixture()
	seeded := f.seedSession("sess-301")
	f.decisions.decisions[seeded.SessionID] = &models.VerificationDecision{
		SessionID: seeded.SessionID,
		Status:    models.DecisionStatusResubmissionRequested,
		Code:      9103,
	}

	res, err := f.service.GetOrCreateVerification(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("GetOrCreateVerification вернул ошибку: %v", err)
	}

	if f.provider.calls != 0 {
		t.Fatalf("resubmission_requested продолжает старую сессию")
	}
	if res.Session.SessionID != "sess-301" {
		t.Fatalf("URL сессии должен сохраниться")
	}
	if res.Decision == nil || res.Decision.Status != models.DecisionStatusResubmissionRequested {
		t.Fatalf("решение должно вернуться вместе с сессией")
	}
}

func TestVerificationService_ExhaustedDecisionProvisionsNew(t *testing.T) {
	for _, status := range []string{
		models.DecisionStatusDeclined,
		models.DecisionStatusAbandoned,
		models.DecisionStatusExpired,
	} {
		t.Run(status, func(t *testing.T) {
			f := newVerificationFixture()
			seeded := f.seedSession("sess-old")
			f.decisions.decisions[seeded.SessionID] = &models.VerificationDecision{
				SessionID: seeded.SessionID,
				Status:    status,
				Code:      9104,
			}

			res, err := f.service.GetOrCreateVerification(context.Background(), f.userID)
			if err != nil {
				t.Fatalf("GetOrCreateVerification вернул ошибку: %v", err)
			}

			if f.provider.calls != 1 {
				t.Fatalf("исчерпанная сессия требует новой, вызовов провайдера: %d", f.provider.calls)
			}
			if res.Session.SessionID == "sess-old" {
				t.Fatalf("должна вернуться новая сессия")
			}
			// Прежнее решение возвращается, чтобы клиент мог показать причину.
			if res.Decision == nil || res.Decision.SessionID != "sess-old" {
				t.Fatalf("старое решение должно сопровождать новую сессию")
			}

			latest, err := f.sessions.GetLatestByUserID(context.Background(), f.userID)
			if err != nil {
				t.Fatalf("новая сессия должна быть сохранена: %v", err)
			}
			if latest.SessionID != res.Session.SessionID {
				t.Fatalf("последней должна быть новая сессия")
			}
		})
	}
}

func TestVerificationService_ApprovedReturnsExisting(t *testing.T) {
	f := newVerificationFixture()
	seeded := f.seedSession("sess-302")
	f.decisions.decisions[seeded.SessionID] = &models.VerificationDecision{
		SessionID: seeded.SessionID,
		Status:    models.DecisionStatusApproved,
		Code:      9001,
	}

	res, err := f.service.GetOrCreateVerification(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("GetOrCreateVerification вернул ошибку: %v", err)
	}

	if f.provider.calls != 0 {
		t.Fatalf("для approved новая сессия не нужна")
	}
	if res.Decision == nil || res.Decision.Status != models.DecisionStatusApproved {
		t.Fatalf("approved решение должно вернуться")
	}
}

func TestVerificationService_UnknownUser(t *testing.T) {
	f := newVerificationFixture()

	_, err := f.service.GetOrCreateVerification(context.Background(), uuid.New())
	if !errors.Is(err, apperror.ErrUserNotFound) {
		t.Fatalf("ожидалась apperror.ErrUserNotFound, получили %v", err)
	}
	if f.provider.calls != 0 {
		t.Fatalf("провайдер не должен вызываться для неизвестного пользователя")
	}
}

func TestVerificationService_GetStatus(t *testing.T) {
	f := newVerificationFixture()

	_, err := f.service.GetStatus(context.Background(), f.userID)
	if !errors.Is(err, apperror.ErrSessionNotFound) {
		t.Fatalf("без сессии ожидалась apperror.ErrSessionNotFound, получили %v", err)
	}

	seeded := f.seedSession("sess-303")
	res, err := f.service.GetStatus(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("GetStatus вернул ошибку: %v", err)
	}
	if res.Session != seeded || res.Decision != nil {
		t.Fatalf("ожидалась сессия без решения")
	}
	if f.provider.calls != 0 {
		t.Fatalf("GetStatus ничего не создаёт у провайдера")
	}
}

func TestVerificationService_DeactivateIdentity(t *testing.T) {
	f := newVerificationFixture()
	identityID := uuid.New()
	f.identities.identities[identityID] = &models.VerifiedIdentity{ID: identityID}

	if err := f.service.DeactivateIdentity(context.Background(), identityID); err != nil {
		t.Fatalf("DeactivateIdentity вернул ошибку: %v", err)
	}
	if !f.identities.identities[identityID].Deactivated {
		t.Fatalf("личность должна быть помечена деактивированной")
	}

	err := f.service.DeactivateIdentity(context.Background(), uuid.New())
	if !errors.Is(err, apperror.ErrIdentityNotFound) {
		t.Fatalf("ожидалась apperror.ErrIdentityNotFound, получили %v", err)
	}
}
