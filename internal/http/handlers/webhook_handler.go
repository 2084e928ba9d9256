package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/vmaslennikov/usercore-backend/internal/http/handlers/common"
	"github.com/vmaslennikov/usercore-backend/internal/kyc"
	"github.com/vmaslennikov/usercore-backend/internal/logger"
	"github.com/vmaslennikov/usercore-backend/internal/models"
	"github.com/vmaslennikov/usercore-backend/internal/repository"
)

// EventProcessor обрабатывает событийные callback провайдера.
type EventProcessor interface {
	HandleEvent(ctx context.Context, raw []byte) (*models.VerificationSession, error)
}

// DecisionProcessor обрабатывает callback с решением.
type DecisionProcessor interface {
	HandleDecision(ctx context.Context, raw []byte) (*models.VerificationDecision, error)
}

// WebhookHandler принимает callback KYC провайдера.
// Аутентификация выполняется по сырому телу запроса до любого разбора JSON.
type WebhookHandler struct {
	auth      *kyc.Authenticator
	lifecycle EventProcessor
	decisions DecisionProcessor
}

// NewWebhookHandler создаёт handler для callback.
func NewWebhookHandler(auth *kyc.Authenticator, lifecycle EventProcessor, decisions DecisionProcessor) *WebhookHandler {
	return &WebhookHandler{
		auth:      auth,
		lifecycle: lifecycle,
		decisions: decisions,
	}
}

// HandleEvent обрабатывает POST /webhooks/kyc/event.
func (h *WebhookHandler) HandleEvent(c *gin.Context) {
	raw, ok := h.readAndAuthenticate(c)
	if !ok {
		return
	}

	session, err := h.lifecycle.HandleEvent(c.Request.Context(), raw)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			// Сессию могли завести в обход нашего сервиса. Подтверждаем
			// доставку, чтобы провайдер не ретраил бесконечно.
			logger.Log.WithField("path", c.Request.URL.Path).
				Info("webhook: событие по неизвестной сессии подтверждено без обработки")
			common.RespondJSON(c, http.StatusOK, gin.H{"status": "success"})
			return
		}
		h.respondProcessingError(c, raw, err)
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"session_id": session.SessionID,
		"state":      session.LifecycleState,
	}).Info("webhook: событие обработано")

	common.RespondJSON(c, http.StatusOK, gin.H{"status": "success"})
}

// HandleDecision обрабатывает POST /webhooks/kyc/decision.
func (h *WebhookHandler) HandleDecision(c *gin.Context) {
	raw, ok := h.readAndAuthenticate(c)
	if !ok {
		return
	}

	decision, err := h.decisions.HandleDecision(c.Request.Context(), raw)
	if err != nil {
		h.respondProcessingError(c, raw, err)
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"session_id": decision.SessionID,
		"status":     decision.Status,
		"code":       decision.Code,
	}).Info("webhook: решение обработано")

	common.RespondJSON(c, http.StatusOK, gin.H{"status": "success"})
}

// readAndAuthenticate читает сырое тело и проверяет подлинность запроса.
// Порядок фиксирован: сначала подпись, потом разбор.
func (h *WebhookHandler) readAndAuthenticate(c *gin.Context) ([]byte, bool) {
	raw, err := c.GetRawData()
	if err != nil {
		common.RespondBadRequest(c, "не удалось прочитать тело запроса")
		return nil, false
	}

	if err := h.auth.AuthenticateClient(c.GetHeader("X-AUTH-CLIENT")); err != nil {
		logger.Log.WithField("path", c.Request.URL.Path).Warn("webhook: неверный api ключ")
		common.RespondUnauthorized(c, "неверные учётные данные")
		return nil, false
	}

	if err := h.auth.VerifySignature(c.GetHeader("X-SIGNATURE"), raw); err != nil {
		logger.Log.WithField("path", c.Request.URL.Path).Warn("webhook: подпись не совпала")
		common.RespondUnauthorized(c, "неверные учётные данные")
		return nil, false
	}

	return raw, true
}

func (h *WebhookHandler) respondProcessingError(c *gin.Context, raw []byte, err error) {
	switch {
	case errors.Is(err, kyc.ErrMalformedPayload),
		errors.Is(err, kyc.ErrMissingVerification),
		errors.Is(err, kyc.ErrMissingPersonData),
		errors.Is(err, kyc.ErrMissingDocumentData):
		// Payload может содержать base64 изображения документов,
		// поэтому в лог попадает только отредактированная версия.
		logger.Log.WithFields(logrus.Fields{
			"path":    c.Request.URL.Path,
			"payload": string(kyc.Redact(raw)),
			"error":   err.Error(),
		}).Warn("webhook: структурное нарушение контракта")
		common.RespondBadRequest(c, err.Error())
	default:
		logger.Log.WithFields(logrus.Fields{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		}).Error("webhook: ошибка обработки")
		common.RespondInternalError(c, "")
	}
}
