package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// FlowManager is the flow API the runner drives.
type FlowManager interface {
	OnJobStatusChanged(ctx context.Context, job *domain.Job, twin *domain.Job) bool

	ShouldConsumeAddedEvent(obj domain.Object) bool
	ObjectAdded(ctx context.Context, obj domain.Object, raisedJob *domain.Job) (bool, error)

	ShouldConsumeChangedEvent(ev domain.ChangedEvent) bool
	ObjectChanged(ctx context.Context, ev domain.ChangedEvent) (bool, error)

	ShouldConsumeDeletedEvent(obj domain.Object) bool
	ObjectDeleted(ctx context.Context, obj domain.Object) (bool, error)

	ShouldConsumeReadyForReplacementEvent(obj domain.Object) bool
	ObjectReadyForReplacement(ctx context.Context, obj domain.Object) (bool, error)
}

// JobReader loads the jobs named in flow messages.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

// Broker delivers flow messages.
type Broker interface {
	SetQoS(prefetchCount int) error
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Broker        Broker
	Flow          FlowManager
	Jobs          JobReader
	Locker        Locker
	WorkerID      string
	Concurrency   int
	PrefetchCount int
	JobTimeout    time.Duration
}

// Worker consumes flow messages and runs them through the flow manager
type Worker struct {
	logger        *slog.Logger
	broker        Broker
	flow          FlowManager
	jobs          JobReader
	locker        Locker
	workerID      string
	concurrency   int
	prefetchCount int
	jobTimeout    time.Duration
	jobsChan      chan *flowDelivery
	wg            sync.WaitGroup
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = concurrency
	}

	return &Worker{
		logger:        cfg.Logger.With(slog.String("worker_id", cfg.WorkerID)),
		broker:        cfg.Broker,
		flow:          cfg.Flow,
		jobs:          cfg.Jobs,
		locker:        cfg.Locker,
		workerID:      cfg.WorkerID,
		concurrency:   concurrency,
		prefetchCount: prefetch,
		jobTimeout:    cfg.JobTimeout,
		jobsChan:      make(chan *flowDelivery, concurrency),
		stopChan:      make(chan struct{}),
	}
}

// Start consumes flow messages until ctx is canceled or Stop is called
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	// Unsettled deliveries are redelivered by the broker.
	cancel()
	w.wg.Wait()
	w.logger.Info("Worker stopped")
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
}
