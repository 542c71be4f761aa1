package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	"github.com/cuongbtq/batchflow/internal/config"
	"github.com/cuongbtq/batchflow/internal/flow"
	"github.com/cuongbtq/batchflow/internal/flow/helper"
	"github.com/cuongbtq/batchflow/internal/jobs"
	"github.com/cuongbtq/batchflow/internal/storage/postgres"
	"github.com/cuongbtq/batchflow/internal/worker"
	"github.com/cuongbtq/batchflow/shared/logger"
	"github.com/cuongbtq/batchflow/shared/postgresql"
	"github.com/cuongbtq/batchflow/shared/rabbitmq"
	"github.com/cuongbtq/batchflow/shared/redis"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.FromCommandLine("FLOW_SERVICE_CONFIG_PATH", "configs/flow-service/config.yaml", (*config.Config).ValidateFlowConfig)
	if err != nil {
		return err
	}

	appLogger, err := logger.New(cfg.Logging.LoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	workerID := fmt.Sprintf("%s-%s", cfg.App.Name, uuid.NewString()[:8])
	appLogger.Info("Starting flow service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("worker_id", workerID),
	)

	dbClient, err := postgresql.NewClient(cfg.Database.ClientConfig(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbClient.Close()

	store := postgres.NewStorage(dbClient, appLogger.Component("storage"))
	if cfg.Database.AutoMigrate {
		if err := store.Migrate(context.Background()); err != nil {
			return err
		}
	}

	rabbitClient, err := rabbitmq.NewClient(cfg.RabbitMQ.ClientConfig(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis.ClientConfig(), appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	jobManager := jobs.NewManager(store, rabbitClient, appLogger.Logger)

	flowHelper := helper.New(&helper.Dependencies{
		Logger:        appLogger.Component("flow-helper"),
		Jobs:          store,
		Entries:       store,
		Assets:        store,
		FileSyncs:     store,
		Partners:      store,
		JobManager:    jobManager,
		ServiceURL:    cfg.Flow.ServiceURL,
		MailFromEmail: cfg.Flow.MailFromEmail,
		MailFromName:  cfg.Flow.MailFromName,
	})

	flowManager := flow.NewManager(&flow.Dependencies{
		Config:     cfg.Flow.Policy(),
		Logger:     appLogger.Logger,
		Jobs:       store,
		Entries:    store,
		Assets:     store,
		FileSyncs:  store,
		Partners:   store,
		JobManager: jobManager,
		Helper:     flowHelper,
	}, flow.WithMeter(otel.GetMeterProvider().Meter(cfg.App.Name)))

	locker := worker.NewRedisLocker(redisClient.GetClient(), cfg.Worker.LockTTL)

	sweeper, err := newSweeper(cfg, &worker.SweeperConfig{
		Logger:    appLogger.Logger,
		Jobs:      store,
		Manager:   jobManager,
		Publisher: rabbitClient,
		Locker:    locker,
	})
	if err != nil {
		return err
	}

	runner := worker.NewWorker(&worker.Config{
		Logger:        appLogger.Logger,
		Broker:        rabbitClient,
		Flow:          flowManager,
		Jobs:          store,
		Locker:        locker,
		WorkerID:      workerID,
		Concurrency:   cfg.Worker.Concurrency,
		PrefetchCount: cfg.RabbitMQ.Consumer.PrefetchCount,
		JobTimeout:    cfg.Worker.JobTimeout,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runner.Start(gctx)
	})

	if sweeper != nil {
		g.Go(func() error {
			return sweeper.Start(gctx)
		})
	}

	appLogger.Info("Flow service started successfully")

	<-gctx.Done()
	appLogger.Info("Shutting down flow service...")
	runner.Stop()

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			appLogger.Error("Flow service stopped with error", slog.Any("error", err))
			return err
		}
		appLogger.Info("Flow service shutdown complete")
	case <-time.After(cfg.Worker.ShutdownTimeout):
		appLogger.Warn("Shutdown timeout exceeded, forcing exit")
	}
	return nil
}

// newSweeper builds the check-again sweeper from the sweeper section. It
// returns nil when the sweeper is disabled.
func newSweeper(cfg *config.Config, deps *worker.SweeperConfig) (*worker.Sweeper, error) {
	if !cfg.Sweeper.Enabled {
		return nil, nil
	}

	sc := *deps
	sc.Schedule = cfg.Sweeper.Schedule
	sc.BatchSize = cfg.Sweeper.BatchSize
	sweeper, err := worker.NewSweeper(&sc)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweeper: %w", err)
	}
	return sweeper, nil
}
