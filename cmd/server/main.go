package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/vmaslennikov/usercore-backend/internal/config"
	"github.com/vmaslennikov/usercore-backend/internal/db"
	httpHandlers "github.com/vmaslennikov/usercore-backend/internal/http/handlers"
	httpRouter "github.com/vmaslennikov/usercore-backend/internal/http/router"
	"github.com/vmaslennikov/usercore-backend/internal/kyc"
	"github.com/vmaslennikov/usercore-backend/internal/logger"
	"github.com/vmaslennikov/usercore-backend/internal/repository"
	"github.com/vmaslennikov/usercore-backend/internal/service"
	"github.com/vmaslennikov/usercore-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL)
	kycAuth := kyc.NewAuthenticator(cfg.KYCAPIKey, cfg.KYCSharedSecret)
	kycClient := kyc.NewClient(cfg.KYCBaseURL, cfg.KYCAPIKey)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	sessionRepo := repository.NewSessionRepository(dbConn)
	decisionRepo := repository.NewDecisionRepository(dbConn)
	identityRepo := repository.NewIdentityRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)

	// Сервисы.
	notificationService := service.NewNotificationService(notificationRepo)
	lifecycleService := service.NewLifecycleService(sessionRepo, decisionRepo)
	decisionService := service.NewDecisionService(decisionRepo, identityRepo, userRepo)
	verificationService := service.NewVerificationService(
		kycClient, sessionRepo, decisionRepo, userRepo, identityRepo, cfg.KYCCallbackURL,
	)

	// Вебсокеты.
	hub := ws.NewHub(ctx)
	hub.SetNotificationSaver(ws.NewNotificationServiceAdapter(notificationService))
	go hub.Run()

	// Решения провайдера уходят пользователю в реальном времени.
	decisionService.SetNotifier(hub)

	// HTTP хэндлеры.
	webhookHandler := httpHandlers.NewWebhookHandler(kycAuth, lifecycleService, decisionService)
	verificationHandler := httpHandlers.NewVerificationHandler(verificationService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	// Роутер.
	engine := httpRouter.SetupRouter(cfg, webhookHandler, verificationHandler, notificationHandler, wsHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
