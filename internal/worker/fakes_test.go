package worker

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/cuongbtq/batchflow/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFlow records every call the worker makes.
type fakeFlow struct {
	mu      sync.Mutex
	calls   []string
	jobs    []*domain.Job
	twins   []*domain.Job
	raised  *domain.Job
	consume bool
	err     error
}

func (f *fakeFlow) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeFlow) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeFlow) OnJobStatusChanged(_ context.Context, job *domain.Job, twin *domain.Job) bool {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.twins = append(f.twins, twin)
	f.mu.Unlock()
	f.record("OnJobStatusChanged")
	return true
}

func (f *fakeFlow) ShouldConsumeAddedEvent(domain.Object) bool { return f.consume }

func (f *fakeFlow) ObjectAdded(_ context.Context, _ domain.Object, raisedJob *domain.Job) (bool, error) {
	f.mu.Lock()
	f.raised = raisedJob
	f.mu.Unlock()
	f.record("ObjectAdded")
	return f.err == nil, f.err
}

func (f *fakeFlow) ShouldConsumeChangedEvent(domain.ChangedEvent) bool { return f.consume }

func (f *fakeFlow) ObjectChanged(context.Context, domain.ChangedEvent) (bool, error) {
	f.record("ObjectChanged")
	return f.err == nil, f.err
}

func (f *fakeFlow) ShouldConsumeDeletedEvent(domain.Object) bool { return f.consume }

func (f *fakeFlow) ObjectDeleted(context.Context, domain.Object) (bool, error) {
	f.record("ObjectDeleted")
	return f.err == nil, f.err
}

func (f *fakeFlow) ShouldConsumeReadyForReplacementEvent(domain.Object) bool { return f.consume }

func (f *fakeFlow) ObjectReadyForReplacement(context.Context, domain.Object) (bool, error) {
	f.record("ObjectReadyForReplacement")
	return f.err == nil, f.err
}

// fakeLocker grants every lock unless err is set.
type fakeLocker struct {
	mu       sync.Mutex
	err      error
	acquired []string
	released int
}

func (l *fakeLocker) Acquire(_ context.Context, key string) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, l.err
	}
	l.acquired = append(l.acquired, key)
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

// ackRecord is the settlement of one delivery.
type ackRecord struct {
	tag     uint64
	ack     bool
	requeue bool
}

// fakeAcknowledger implements amqp.Acknowledger.
type fakeAcknowledger struct {
	mu      sync.Mutex
	records []ackRecord
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, ackRecord{tag: tag, ack: true})
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, ackRecord{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) Records() []ackRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]ackRecord(nil), a.records...)
}
