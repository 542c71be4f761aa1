package worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/message"
)

type fakeBroker struct {
	deliveries chan amqp.Delivery
	prefetch   int
	tag        string
}

func (b *fakeBroker) SetQoS(prefetchCount int) error {
	b.prefetch = prefetchCount
	return nil
}

func (b *fakeBroker) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	b.tag = consumerTag
	return b.deliveries, nil
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(&Config{Logger: discardLogger(), WorkerID: "w"})

	assert.Equal(t, 1, w.concurrency)
	assert.Equal(t, 1, w.prefetchCount)

	w = NewWorker(&Config{Logger: discardLogger(), WorkerID: "w", Concurrency: 4})
	assert.Equal(t, 4, w.prefetchCount)
}

func TestWorker_StartProcessesDeliveries(t *testing.T) {
	env := newProcessorEnv(t)
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery, 4)}
	env.worker.broker = broker
	env.worker.prefetchCount = 3
	acker := &fakeAcknowledger{}

	job := env.job(t, domain.JobTypeImport)
	body, err := message.JobUpdated(job.ID, "").Encode()
	require.NoError(t, err)
	broker.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 1, Body: []byte("not json")}
	broker.deliveries <- amqp.Delivery{Acknowledger: acker, DeliveryTag: 2, Body: body}

	done := make(chan error, 1)
	go func() { done <- env.worker.Start(context.Background()) }()

	require.Eventually(t, func() bool { return len(acker.Records()) == 2 }, 2*time.Second, 10*time.Millisecond)
	env.worker.Stop()
	env.worker.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}

	assert.Equal(t, 3, broker.prefetch)
	assert.Equal(t, "test-worker", broker.tag)
	assert.ElementsMatch(t, []ackRecord{
		{tag: 1},
		{tag: 2, ack: true},
	}, acker.Records())
	assert.Equal(t, []string{"OnJobStatusChanged"}, env.flow.Calls())
}

func TestWorker_StartStopsWhenDeliveriesClose(t *testing.T) {
	env := newProcessorEnv(t)
	broker := &fakeBroker{deliveries: make(chan amqp.Delivery)}
	env.worker.broker = broker
	close(broker.deliveries)

	done := make(chan error, 1)
	go func() { done <- env.worker.Start(context.Background()) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after the delivery channel closed")
	}
}

func TestJobLockKey(t *testing.T) {
	id := uuid.NewString()
	assert.Equal(t, "batchflow:job:"+id, jobLockKey(id))
}
