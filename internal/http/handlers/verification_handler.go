package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/vmaslennikov/usercore-backend/internal/dto"
	"github.com/vmaslennikov/usercore-backend/internal/http/handlers/common"
	"github.com/vmaslennikov/usercore-backend/internal/service"
)

// VerificationProvider выдаёт и читает сессии верификации пользователя.
type VerificationProvider interface {
	GetOrCreateVerification(ctx context.Context, userID uuid.UUID) (*service.VerificationResult, error)
	GetStatus(ctx context.Context, userID uuid.UUID) (*service.VerificationResult, error)
	DeactivateIdentity(ctx context.Context, identityID uuid.UUID) error
}

// VerificationHandler обслуживает маршруты верификации личности.
type VerificationHandler struct {
	verifications VerificationProvider
}

// NewVerificationHandler создаёт handler верификации.
func NewVerificationHandler(verifications VerificationProvider) *VerificationHandler {
	return &VerificationHandler{verifications: verifications}
}

// GetSession обрабатывает POST /api/verification/session.
// Возвращает URL сессии, в которую должен перейти пользователь.
func (h *VerificationHandler) GetSession(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	result, err := h.verifications.GetOrCreateVerification(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.NewVerificationResponse(result.Session, result.Decision))
}

// GetStatus обрабатывает GET /api/verification/status.
// Только чтение: новая сессия у провайдера не открывается.
func (h *VerificationHandler) GetStatus(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	result, err := h.verifications.GetStatus(c.Request.Context(), userID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, dto.NewVerificationResponse(result.Session, result.Decision))
}

// DeactivateIdentity обрабатывает POST /api/admin/identities/:id/deactivate.
func (h *VerificationHandler) DeactivateIdentity(c *gin.Context) {
	identityID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.verifications.DeactivateIdentity(c.Request.Context(), identityID); err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondSuccess(c, http.StatusOK, "личность деактивирована", nil)
}
