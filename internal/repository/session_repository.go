package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vmaslennikov/usercore-backend/internal/models"
	"github.com/vmaslennikov/usercore-backend/internal/repository/common"
)

// ErrSessionNotFound возвращается, когда сессия верификации не найдена.
var ErrSessionNotFound = errors.New("verification session not found")

// SessionRepository отвечает за таблицу verification_sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository создаёт экземпляр репозитория.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create сохраняет новую сессию верификации.
func (r *SessionRepository) Create(ctx context.Context, session *models.VerificationSession) error {
	query := `
		INSERT INTO verification_sessions (session_id, user_id, verification_url, vendor_data, host, initial_status, lifecycle_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		session.SessionID, session.UserID, session.VerificationURL,
		session.VendorData, session.Host, session.InitialStatus, session.LifecycleState,
	).Scan(&session.CreatedAt); err != nil {
		return fmt.Errorf("session repository: create %w", err)
	}

	return nil
}

// GetByID возвращает сессию по идентификатору, выданному провайдером.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*models.VerificationSession, error) {
	return common.GetByField[models.VerificationSession](ctx, r.db, "verification_sessions", "session_id", sessionID, ErrSessionNotFound)
}

// GetLatestByUserID возвращает самую свежую сессию пользователя.
// Именно она считается текущей: старые сессии остаются в таблице для истории.
func (r *SessionRepository) GetLatestByUserID(ctx context.Context, userID uuid.UUID) (*models.VerificationSession, error) {
	var session models.VerificationSession
	query := `
		SELECT session_id, user_id, verification_url, vendor_data, host, initial_status, lifecycle_state, created_at
		FROM verification_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	if err := r.db.GetContext(ctx, &session, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("session repository: get latest by user %w", err)
	}

	return &session, nil
}

// UpdateLifecycleState сохраняет новое состояние жизненного цикла сессии.
func (r *SessionRepository) UpdateLifecycleState(ctx context.Context, sessionID, state string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE verification_sessions SET lifecycle_state = $2 WHERE session_id = $1`,
		sessionID, state,
	)
	if err != nil {
		return fmt.Errorf("session repository: update lifecycle state %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("session repository: rows affected %w", err)
	}
	if affected == 0 {
		return ErrSessionNotFound
	}

	return nil
}
