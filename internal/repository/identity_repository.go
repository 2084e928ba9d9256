package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/vmaslennikov/usercore-backend/internal/models"
	"github.com/vmaslennikov/usercore-backend/internal/repository/common"
)

// ErrIdentityNotFound возвращается, когда запись верифицированной личности не найдена.
var ErrIdentityNotFound = errors.New("verified identity not found")

// IdentityRepository отвечает за таблицу verified_identities.
type IdentityRepository struct {
	db *sqlx.DB
}

// NewIdentityRepository создаёт экземпляр репозитория.
func NewIdentityRepository(db *sqlx.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

// Create сохраняет извлечённые персональные данные.
func (r *IdentityRepository) Create(ctx context.Context, identity *models.VerifiedIdentity) error {
	query := `
		INSERT INTO verified_identities (id, session_id, first_name, last_name, date_of_birth, nationality, place_of_birth,
			doc_type, doc_number, doc_country, doc_valid_from, doc_valid_until, connected, deactivated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`

	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}

	if err := r.db.QueryRowxContext(
		ctx, query,
		identity.ID, identity.SessionID, identity.FirstName, identity.LastName,
		identity.DateOfBirth, identity.Nationality, identity.PlaceOfBirth,
		identity.DocType, identity.DocNumber, identity.DocCountry,
		identity.DocValidFrom, identity.DocValidUntil,
		identity.Connected, identity.Deactivated,
	).Scan(&identity.CreatedAt); err != nil {
		return fmt.Errorf("identity repository: create %w", err)
	}

	return nil
}

// GetByID возвращает запись по идентификатору.
func (r *IdentityRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.VerifiedIdentity, error) {
	return common.GetByField[models.VerifiedIdentity](ctx, r.db, "verified_identities", "id", id, ErrIdentityNotFound)
}

// GetBySessionID возвращает запись, созданную указанной сессией.
func (r *IdentityRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.VerifiedIdentity, error) {
	return common.GetByField[models.VerifiedIdentity](ctx, r.db, "verified_identities", "session_id", sessionID, ErrIdentityNotFound)
}

// MarkConnected помечает запись как привязанную к аккаунту пользователя.
func (r *IdentityRepository) MarkConnected(ctx context.Context, sessionID string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE verified_identities SET connected = TRUE WHERE session_id = $1`, sessionID,
	)
	if err != nil {
		return fmt.Errorf("identity repository: mark connected %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("identity repository: rows affected %w", err)
	}
	if affected == 0 {
		return ErrIdentityNotFound
	}

	return nil
}

// Deactivate мягко удаляет запись (например, при замене новой верификацией).
func (r *IdentityRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE verified_identities SET deactivated = TRUE WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("identity repository: deactivate %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("identity repository: rows affected %w", err)
	}
	if affected == 0 {
		return ErrIdentityNotFound
	}

	return nil
}
