package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/geethasandesh/articket/internal/api/http"
	"github.com/geethasandesh/articket/internal/api/http/handlers"
	"github.com/geethasandesh/articket/internal/auth"
	"github.com/geethasandesh/articket/internal/config"
	"github.com/geethasandesh/articket/internal/events"
	"github.com/geethasandesh/articket/internal/notify"
	"github.com/geethasandesh/articket/internal/observability"
	"github.com/geethasandesh/articket/internal/persistence"
	"github.com/geethasandesh/articket/internal/repository"
	"github.com/geethasandesh/articket/internal/sequence"
	"github.com/geethasandesh/articket/internal/service"
	"github.com/geethasandesh/articket/internal/worker"
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

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	counterRepo := repository.NewCounterRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	members := repository.NewCachedMembership(
		repository.NewMembershipRepository(pool),
		redis.Client,
		cfg.Redis.MemberCacheTTL(),
		logger,
	)

	generator := sequence.NewGenerator(counterRepo, cfg.Sequence, logger)
	broker := events.NewBroker(cfg.Fanout.SubscriberBuffer, logger, metrics)
	defer broker.Close()
	locks := service.NewTicketLocks()

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo: ticketRepo,
		Sequence:   generator,
		Broker:     broker,
		Locks:      locks,
		Logger:     logger,
	})
	assignmentService := service.NewAssignmentService(service.AssignmentDependencies{
		TicketRepo: ticketRepo,
		Members:    members,
		Broker:     broker,
		Locks:      locks,
		Logger:     logger,
	})

	mailer := notify.NewMailer(cfg.Notify)
	notificationService := service.NewNotificationService(broker, members, mailer, logger, cfg.Notify)
	worker.StartNotificationWorker(notificationService)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Tickets:     handlers.NewTicketsHandler(ticketService),
		Assignments: handlers.NewAssignmentsHandler(assignmentService),
		Stream:      handlers.NewStreamHandler(ticketService, logger),
		Auth:        auth.Middleware(tokenManager),
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
