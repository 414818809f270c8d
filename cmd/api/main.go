package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fixtureops/contact-monitor/internal/config"
	"github.com/fixtureops/contact-monitor/internal/handler"
	"github.com/fixtureops/contact-monitor/internal/infra/postgresql"
	"github.com/fixtureops/contact-monitor/internal/infra/postgresql/migrations"
	infraredis "github.com/fixtureops/contact-monitor/internal/infra/redis"
	"github.com/fixtureops/contact-monitor/internal/mailer"
	"github.com/fixtureops/contact-monitor/internal/observability"
	"github.com/fixtureops/contact-monitor/internal/queue"
	"github.com/fixtureops/contact-monitor/internal/ratelimit"
	"github.com/fixtureops/contact-monitor/internal/repository"
	"github.com/fixtureops/contact-monitor/internal/service"
	"github.com/fixtureops/contact-monitor/internal/transport"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := migrations.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	redisClient, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer redisClient.Close()

	runLock, err := infraredis.NewRunLock(redisClient, 0)
	if err != nil {
		return err
	}

	var limiter ratelimit.RateLimiter
	if cfg.MailRatePerSec > 0 {
		limiter, err = infraredis.NewRedisRateLimiter(redisClient, cfg.MailRatePerSec)
		if err != nil {
			return err
		}
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if cfg.AMQPURL != "" {
		rabbit, err := queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			// The audit stream is best effort; a broker outage at boot
			// must not keep notifications from going out.
			logger.Warn("rabbitmq unavailable, audit events disabled", zap.Error(err))
		} else {
			publisher = queue.NewRabbitMQPublisher(rabbit)
		}
	}
	defer publisher.Close() //nolint:errcheck

	fixtureRepo := repository.NewGormFixtureRepo(db)
	logRepo := repository.NewGormNotificationLogRepo(db)
	directoryRepo := repository.NewGormDirectoryRepo(db)
	probeRepo := repository.NewGormProbeRepo(db)

	notifier, err := mailer.NewRelayNotifier(cfg.MailRelayURL)
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()

	monitor, err := service.NewMonitor(
		fixtureRepo, logRepo, directoryRepo, probeRepo,
		notifier, limiter, publisher, metrics,
		cfg.WindowHours, cfg.MaxEmailsPerRun,
		logger,
	)
	if err != nil {
		return err
	}

	fixtureService, err := service.NewFixtureService(fixtureRepo, logRepo, directoryRepo, probeRepo, logger)
	if err != nil {
		return err
	}

	fixtureHandler, err := handler.NewFixtureHandler(fixtureService)
	if err != nil {
		return err
	}
	monitorHandler, err := handler.NewMonitorHandler(monitor, runLock, cfg.MonitorTriggerKey, logger)
	if err != nil {
		return err
	}
	healthHandler := handler.NewHealthHandler(sqlDB, redisClient)

	app := fiber.New(fiber.Config{
		AppName:      "contact-monitor",
		ErrorHandler: transport.ErrorHandler(logger),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	app.Use(metrics.HTTPMiddleware())

	fixtureHandler.RegisterRoutes(app)
	monitorHandler.RegisterRoutes(app)
	healthHandler.RegisterRoutes(app)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Info("api listening", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	group.Go(func() error {
		<-groupCtx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := group.Wait(); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
