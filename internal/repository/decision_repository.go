package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/vmaslennikov/usercore-backend/internal/models"
	"github.com/vmaslennikov/usercore-backend/internal/repository/common"
)

// ErrDecisionNotFound возвращается, когда решение по сессии не найдено.
var ErrDecisionNotFound = errors.New("verification decision not found")

// DecisionRepository отвечает за таблицу verification_decisions.
type DecisionRepository struct {
	db *sqlx.DB
}

// NewDecisionRepository создаёт экземпляр репозитория.
func NewDecisionRepository(db *sqlx.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Upsert сохраняет решение по сессии. Строка на сессию одна: повторное
// решение полностью заменяет предыдущее (последняя запись побеждает),
// поэтому повторная доставка callback безопасна.
func (r *DecisionRepository) Upsert(ctx context.Context, decision *models.VerificationDecision) error {
	query := `
		INSERT INTO verification_decisions (session_id, status, code, reason, reason_code, decision_time, acceptance_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id) DO UPDATE
		SET status = EXCLUDED.status,
			code = EXCLUDED.code,
			reason = EXCLUDED.reason,
			reason_code = EXCLUDED.reason_code,
			decision_time = EXCLUDED.decision_time,
			acceptance_time = EXCLUDED.acceptance_time,
			created_at = NOW()
		RETURNING created_at
	`

	if err := r.db.QueryRowxContext(
		ctx, query,
		decision.SessionID, decision.Status, decision.Code,
		decision.Reason, decision.ReasonCode, decision.DecisionTime, decision.AcceptanceTime,
	).Scan(&decision.CreatedAt); err != nil {
		return fmt.Errorf("decision repository: upsert %w", err)
	}

	return nil
}

// GetBySessionID возвращает решение по сессии.
func (r *DecisionRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.VerificationDecision, error) {
	return common.GetByField[models.VerificationDecision](ctx, r.db, "verification_decisions", "session_id", sessionID, ErrDecisionNotFound)
}

// DeleteBySessionID удаляет решение по сессии. Отсутствие строки не ошибка:
// событие started может прийти раньше первого решения.
func (r *DecisionRepository) DeleteBySessionID(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_decisions WHERE session_id = $1`, sessionID,
	); err != nil {
		return fmt.Errorf("decision repository: delete by session %w", err)
	}
	return nil
}
