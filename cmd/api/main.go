package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/incidex/incidex/internal/ai"
	httptransport "github.com/incidex/incidex/internal/api/http"
	"github.com/incidex/incidex/internal/api/http/handlers"
	"github.com/incidex/incidex/internal/auth"
	"github.com/incidex/incidex/internal/config"
	"github.com/incidex/incidex/internal/events"
	"github.com/incidex/incidex/internal/observability"
	"github.com/incidex/incidex/internal/persistence"
	"github.com/incidex/incidex/internal/repository"
	"github.com/incidex/incidex/internal/service"
	"github.com/incidex/incidex/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	ticketRepo := repository.NewTicketRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	attachmentRepo := repository.NewAttachmentRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	auditRepo := repository.NewAuditLogRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()

	notificationService := service.NewNotificationService(notificationRepo, redis, dispatcher, logger)
	workflowService := service.NewWorkflowService(service.WorkflowDependencies{
		TicketRepo:     ticketRepo,
		CatalogRepo:    catalogRepo,
		UserRepo:       userRepo,
		HistoryRepo:    historyRepo,
		CommentRepo:    commentRepo,
		AttachmentRepo: attachmentRepo,
		Notifier:       notificationService,
		Dispatcher:     dispatcher,
	})
	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:  userRepo,
		AuditRepo: auditRepo,
	}, logger)
	suggestionService := service.NewSuggestionService(
		ai.NewGeminiClient(cfg.Gemini, logger), catalogRepo)

	mailNotifier := service.NewMailNotifier(service.NewSMTPMailer(cfg.Mail), cfg.Mail, logger)
	worker.StartNotificationWorker(mailNotifier, dispatcher)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(pg, redis, cfg.App.Version),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(workflowService, suggestionService),
		Catalogs:       handlers.NewCatalogsHandler(catalogRepo, auditRepo),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
