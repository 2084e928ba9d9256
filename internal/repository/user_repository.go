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

// ErrUserNotFound возвращается, когда запись пользователя не найдена.
var ErrUserNotFound = errors.New("user not found")

// UserRepository — граница справочника пользователей. Подсистема верификации
// ссылается на пользователей по id и никогда не считает, что запись всё ещё
// существует, не проверив это.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository создаёт экземпляр репозитория.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// GetByID возвращает пользователя по идентификатору.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	query := `
		SELECT id, email, username, first_name, last_name, role, is_active, identity_verified, last_login_at, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("user repository: get by id %w", err)
	}

	return &user, nil
}

// AttachVerifiedIdentity привязывает верифицированную личность к аккаунту:
// копирует имя и фамилию на запись пользователя, выставляет флаг
// identity_verified и помечает запись личности как connected.
// Выполняется в одной транзакции, повторный вызов идемпотентен.
func (r *UserRepository) AttachVerifiedIdentity(ctx context.Context, userID uuid.UUID, sessionID string) error {
	return common.WithTransaction(ctx, r.db, func(tx *sqlx.Tx) error {
		var identity models.VerifiedIdentity
		if err := tx.GetContext(ctx, &identity,
			`SELECT * FROM verified_identities WHERE session_id = $1`, sessionID,
		); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrIdentityNotFound
			}
			return fmt.Errorf("user repository: load identity %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE users
			SET first_name = $2, last_name = $3, identity_verified = TRUE, updated_at = NOW()
			WHERE id = $1
		`, userID, identity.FirstName, identity.LastName)
		if err != nil {
			return fmt.Errorf("user repository: attach identity %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("user repository: rows affected %w", err)
		}
		if affected == 0 {
			return ErrUserNotFound
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE verified_identities SET connected = TRUE WHERE session_id = $1`, sessionID,
		); err != nil {
			return fmt.Errorf("user repository: mark connected %w", err)
		}

		return nil
	})
}
