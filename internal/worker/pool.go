package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case fd, ok := <-w.jobsChan:
			if !ok {
				return
			}
			w.handle(ctx, workerName, fd)
		}
	}
}

// handle processes one flow message and settles its delivery
func (w *Worker) handle(ctx context.Context, workerName string, fd *flowDelivery) {
	logger := w.logger.With(
		slog.String("worker_name", workerName),
		slog.String("kind", string(fd.msg.Kind)),
		slog.Uint64("delivery_tag", fd.delivery.DeliveryTag),
	)

	err := w.processMessage(ctx, fd.msg)
	if err == nil {
		if ackErr := fd.delivery.Ack(false); ackErr != nil {
			logger.Error("Failed to ACK message",
				slog.String("error", ackErr.Error()),
			)
		}
		return
	}

	// Work cut short by shutdown is retried by the next runner
	requeue := shouldRequeue(err) || ctx.Err() != nil
	logger.Error("Flow message processing failed",
		slog.String("error", err.Error()),
		slog.Bool("requeue", requeue),
	)
	if nackErr := fd.delivery.Nack(false, requeue); nackErr != nil {
		logger.Error("Failed to NACK message",
			slog.String("error", nackErr.Error()),
		)
	}
}

// shouldRequeue determines if a message should be requeued based on the error type
func shouldRequeue(err error) bool {
	// Don't requeue what can never succeed
	if errors.Is(err, domain.ErrJobNotFound) || errors.Is(err, domain.ErrInvalidMessage) || errors.Is(err, domain.ErrInvalidPayload) {
		return false
	}

	// Requeue for transient/retryable errors
	var retryableErr *domain.RetryableError
	return errors.As(err, &retryableErr)
}
