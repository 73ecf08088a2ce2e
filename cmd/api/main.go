package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Gulhayo05/Surprise-Bag/api/routes"
	"github.com/Gulhayo05/Surprise-Bag/internal/bags"
	"github.com/Gulhayo05/Surprise-Bag/internal/businesses"
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
	serviceName     = "api"
	shutdownTimeout = 15 * time.Second
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

	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Console:     cfg.App.ConsoleLogs(),
		WarnStack:   cfg.App.LogWarnStack,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	err = run(ctx, cfg, logg, addr)
	stop()
	if err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, addr string) error {
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

	inbox := notifications.NewRepository(dbClient.DB())
	dispatcher := notifications.NewDispatcher(inbox, cfg.Dispatcher, logg, metrics.NewDispatcherMetrics(prometheus.DefaultRegisterer))

	handler, err := buildRouter(cfg, logg, dbClient, redisClient, inbox, dispatcher)
	if err != nil {
		return err
	}

	dispatcher.Start(ctx)
	defer dispatcher.Close()

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler:           handler,
	}

	serverErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	logg.Info(shutdownCtx, "api server shutting down gracefully")
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildRouter wires the domain services behind the HTTP routes.
func buildRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	inbox notifications.Repository,
	dispatcher *notifications.Dispatcher,
) (http.Handler, error) {
	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	inboxService, err := notifications.NewService(inbox)
	if err != nil {
		return nil, fmt.Errorf("notifications service: %w", err)
	}

	businessService, err := businesses.NewService(businesses.NewRepository(dbClient.DB()), dbClient, logg)
	if err != nil {
		return nil, fmt.Errorf("businesses service: %w", err)
	}

	bagService, err := bags.NewService(bags.NewRepository(dbClient.DB()), dbClient, outboxService, logg)
	if err != nil {
		return nil, fmt.Errorf("bags service: %w", err)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	coordinator, err := orders.NewCoordinator(orders.CoordinatorParams{
		Repo:               ordersRepo,
		Tx:                 dbClient,
		Outbox:             outboxService,
		Metrics:            orderMetrics,
		Logger:             logg,
		PickupCodeAttempts: cfg.Reservation.PickupCodeAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("reservation coordinator: %w", err)
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:        ordersRepo,
		Tx:          dbClient,
		Outbox:      outboxService,
		Coordinator: coordinator,
		Notifier:    dispatcher,
		Metrics:     orderMetrics,
		Logger:      logg,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	return routes.NewRouter(
		cfg,
		logg,
		dbClient,
		redisClient,
		prometheus.DefaultGatherer,
		businessService,
		bagService,
		ordersService,
		inboxService,
	), nil
}

func closeWith(ctx context.Context, logg *logger.Logger, what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		logg.Error(ctx, "error closing "+what, err)
	}
}
