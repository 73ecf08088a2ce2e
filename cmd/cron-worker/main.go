package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gulhayo05/Surprise-Bag/internal/cron"
	"github.com/Gulhayo05/Surprise-Bag/internal/notifications"
	"github.com/Gulhayo05/Surprise-Bag/internal/orders"
	"github.com/Gulhayo05/Surprise-Bag/pkg/config"
	"github.com/Gulhayo05/Surprise-Bag/pkg/db"
	"github.com/Gulhayo05/Surprise-Bag/pkg/instance"
	"github.com/Gulhayo05/Surprise-Bag/pkg/logger"
	"github.com/Gulhayo05/Surprise-Bag/pkg/metrics"
	"github.com/Gulhayo05/Surprise-Bag/pkg/migrate"
	"github.com/Gulhayo05/Surprise-Bag/pkg/outbox"
	"github.com/Gulhayo05/Surprise-Bag/pkg/redis"
)

const (
	serviceName = "cron-worker"
	lockName    = "cron-worker"
)

func main() {
	bootLog := logger.New(logger.Options{ServiceName: serviceName})
	if err := godotenv.Load(); err != nil {
		bootLog.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		bootLog.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = serviceName

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Console:     cfg.App.ConsoleLogs(),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"instance":    instance.GetID(),
	})

	// run owns every deferred close, so exiting here happens after cleanup.
	err = run(ctx, cfg, logg)
	stop()
	if err != nil {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shut down")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer closeWith(ctx, logg, "database", dbClient.Close)

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer closeWith(ctx, logg, "redis", redisClient.Close)

	lock, err := cron.NewRedisLock(redisClient, lockName, 0)
	if err != nil {
		return err
	}

	inbox := notifications.NewRepository(dbClient.DB())
	dispatcher := notifications.NewDispatcher(inbox, cfg.Dispatcher, logg, metrics.NewDispatcherMetrics(prometheus.DefaultRegisterer))

	registry, err := buildRegistry(cfg, logg, dbClient, redisClient, inbox, dispatcher)
	if err != nil {
		return err
	}
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		return err
	}

	dispatcher.Start(ctx)
	defer dispatcher.Close()

	logg.Info(logg.WithField(ctx, "jobs", registry.Len()), "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func buildRegistry(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	inbox notifications.Repository,
	dispatcher *notifications.Dispatcher,
) (*cron.Registry, error) {
	reminders, err := cron.NewPickupReminderJob(cron.PickupReminderJobParams{
		Logger:   logg,
		Orders:   orders.NewRepository(dbClient.DB()),
		Notifier: dispatcher,
		Markers:  redisClient,
		Window:   cfg.Cron.ReminderWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("pickup reminder job: %w", err)
	}
	outboxRetention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outbox.NewRepository(dbClient.DB()),
		Retention:  cfg.Outbox.RetentionDays,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	inboxCleanup, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		Repository: inbox,
	})
	if err != nil {
		return nil, fmt.Errorf("notification cleanup job: %w", err)
	}
	return cron.NewRegistry(reminders, outboxRetention, inboxCleanup)
}

func closeWith(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+what, err)
	}
}
