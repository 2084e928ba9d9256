package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vmaslennikov/usercore-backend/internal/http/handlers/common"
	"github.com/vmaslennikov/usercore-backend/internal/service"
)

// NotificationHandler обслуживает чтение уведомлений пользователя.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler создаёт handler уведомлений.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List обрабатывает GET /api/notifications.
func (h *NotificationHandler) List(c *gin.Context) {
	userID, err := common.CurrentUserID(c)
	if err != nil {
		common.RespondUnauthorized(c, "")
		return
	}

	limit := common.ParseIntQuery(c, "limit", 20)
	items, err := h.notifications.ListNotifications(c.Request.Context(), userID, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	common.RespondJSON(c, http.StatusOK, gin.H{"notifications": items})
}
