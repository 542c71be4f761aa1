package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/message"
)

func TestShouldRequeue(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "retryable", err: domain.NewRetryableError(errors.New("timeout")), want: true},
		{name: "wrapped retryable", err: fmt.Errorf("load: %w", domain.NewRetryableError(errors.New("timeout"))), want: true},
		{name: "lock busy", err: domain.NewRetryableError(domain.ErrLockNotAcquired), want: true},
		{name: "job not found", err: fmt.Errorf("job x: %w", domain.ErrJobNotFound)},
		{name: "retryable job not found", err: domain.NewRetryableError(domain.ErrJobNotFound)},
		{name: "invalid message", err: domain.ErrInvalidMessage},
		{name: "invalid payload", err: domain.ErrInvalidPayload},
		{name: "plain error", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRequeue(tt.err))
		})
	}
}

func TestHandle_Settlement(t *testing.T) {
	tests := []struct {
		name     string
		flowErr  error
		canceled bool
		want     ackRecord
	}{
		{name: "success acks", want: ackRecord{tag: 9, ack: true}},
		{name: "retryable failure requeues", flowErr: domain.NewRetryableError(errors.New("db down")), want: ackRecord{tag: 9, requeue: true}},
		{name: "permanent failure dead letters", flowErr: errors.New("bad object"), want: ackRecord{tag: 9}},
		{name: "failure during shutdown requeues", flowErr: errors.New("bad object"), canceled: true, want: ackRecord{tag: 9, requeue: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newProcessorEnv(t)
			env.flow.err = tt.flowErr
			acker := &fakeAcknowledger{}
			msg := objectMessage(t, message.KindObjectDeleted, &domain.UploadToken{ID: "tok"})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			if tt.canceled {
				cancel()
			}

			env.worker.handle(ctx, "test-worker-0", &flowDelivery{
				msg:      msg,
				delivery: amqp.Delivery{Acknowledger: acker, DeliveryTag: 9},
			})

			require.Len(t, acker.Records(), 1)
			assert.Equal(t, tt.want, acker.Records()[0])
		})
	}
}
