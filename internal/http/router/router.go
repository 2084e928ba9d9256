package router

import (
	"github.com/gin-gonic/gin"

	"github.com/vmaslennikov/usercore-backend/internal/config"
	"github.com/vmaslennikov/usercore-backend/internal/http/handlers"
	"github.com/vmaslennikov/usercore-backend/internal/http/middleware"
	"github.com/vmaslennikov/usercore-backend/internal/models"
	"github.com/vmaslennikov/usercore-backend/internal/service"
)

// SetupRouter собирает маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	webhookHandler *handlers.WebhookHandler,
	verificationHandler *handlers.VerificationHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	// Callback провайдера. Аутентификация по подписи внутри handler,
	// rate limit защищает от потопа ретраев.
	webhooks := r.Group("/webhooks/kyc")
	webhooks.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		webhooks.POST("/event", webhookHandler.HandleEvent)
		webhooks.POST("/decision", webhookHandler.HandleDecision)
	}

	api := r.Group("/api")
	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/verification/session", verificationHandler.GetSession)
		protected.GET("/verification/status", verificationHandler.GetStatus)
		protected.GET("/notifications", notificationHandler.List)

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/identities/:id/deactivate", middleware.UUIDValidator("id"), verificationHandler.DeactivateIdentity)
		}
	}

	return r
}
