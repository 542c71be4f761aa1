package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/message"
	"github.com/cuongbtq/batchflow/internal/storage/memory"
)

type processorEnv struct {
	ctx    context.Context
	store  *memory.Store
	flow   *fakeFlow
	locker *fakeLocker
	worker *Worker
}

func newProcessorEnv(t *testing.T) *processorEnv {
	t.Helper()
	store := memory.New()
	flow := &fakeFlow{consume: true}
	locker := &fakeLocker{}
	w := NewWorker(&Config{
		Logger:      discardLogger(),
		Flow:        flow,
		Jobs:        store,
		Locker:      locker,
		WorkerID:    "test-worker",
		Concurrency: 2,
		JobTimeout:  time.Second,
	})
	return &processorEnv{ctx: context.Background(), store: store, flow: flow, locker: locker, worker: w}
}

func (e *processorEnv) job(t *testing.T, jobType domain.JobType) *domain.Job {
	t.Helper()
	job := domain.NewJob(jobType, &domain.ImportData{})
	require.NoError(t, e.store.CreateJob(e.ctx, job))
	return job
}

func objectMessage(t *testing.T, kind message.Kind, obj domain.Object) *message.Message {
	t.Helper()
	msg, err := message.ObjectEvent(kind, obj)
	require.NoError(t, err)
	return msg
}

func TestProcessMessage_JobUpdated(t *testing.T) {
	env := newProcessorEnv(t)
	job := env.job(t, domain.JobTypeImport)
	twin := env.job(t, domain.JobTypeImport)

	err := env.worker.processMessage(env.ctx, message.JobUpdated(job.ID, twin.ID))

	require.NoError(t, err)
	assert.Equal(t, []string{"OnJobStatusChanged"}, env.flow.Calls())
	require.Len(t, env.flow.jobs, 1)
	assert.Equal(t, job.ID, env.flow.jobs[0].ID)
	require.NotNil(t, env.flow.twins[0])
	assert.Equal(t, twin.ID, env.flow.twins[0].ID)
	assert.Equal(t, []string{jobLockKey(job.ID)}, env.locker.acquired)
	assert.Equal(t, 1, env.locker.released)
}

func TestProcessMessage_JobUpdatedMissingTwin(t *testing.T) {
	env := newProcessorEnv(t)
	job := env.job(t, domain.JobTypeImport)

	err := env.worker.processMessage(env.ctx, message.JobUpdated(job.ID, "3f1c8e0a-0000-4000-8000-000000000000"))

	require.NoError(t, err)
	require.Len(t, env.flow.twins, 1)
	assert.Nil(t, env.flow.twins[0])
}

func TestProcessMessage_JobUpdatedMissingJob(t *testing.T) {
	env := newProcessorEnv(t)

	err := env.worker.processMessage(env.ctx, message.JobUpdated("3f1c8e0a-0000-4000-8000-000000000000", ""))

	require.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.False(t, shouldRequeue(err))
	assert.Empty(t, env.flow.Calls())
	assert.Equal(t, 1, env.locker.released)
}

func TestProcessMessage_JobLocked(t *testing.T) {
	tests := []struct {
		name    string
		lockErr error
	}{
		{name: "held by another runner", lockErr: domain.ErrLockNotAcquired},
		{name: "redis unavailable", lockErr: errors.New("dial tcp: connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newProcessorEnv(t)
			env.locker.err = tt.lockErr
			job := env.job(t, domain.JobTypeImport)

			err := env.worker.processMessage(env.ctx, message.JobUpdated(job.ID, ""))

			require.Error(t, err)
			assert.True(t, shouldRequeue(err))
			assert.Empty(t, env.flow.Calls())
		})
	}
}

func TestProcessMessage_ObjectEvents(t *testing.T) {
	tests := []struct {
		name     string
		msg      func(t *testing.T) *message.Message
		consume  bool
		wantCall string
	}{
		{
			name:     "added",
			msg:      func(t *testing.T) *message.Message { return objectMessage(t, message.KindObjectAdded, &domain.Asset{ID: "0_a"}) },
			consume:  true,
			wantCall: "ObjectAdded",
		},
		{
			name:     "deleted",
			msg:      func(t *testing.T) *message.Message { return objectMessage(t, message.KindObjectDeleted, &domain.UploadToken{ID: "tok"}) },
			consume:  true,
			wantCall: "ObjectDeleted",
		},
		{
			name: "ready for replacement",
			msg: func(t *testing.T) *message.Message {
				return objectMessage(t, message.KindReadyForReplacement, &domain.Entry{ID: "0_tmp"})
			},
			consume:  true,
			wantCall: "ObjectReadyForReplacement",
		},
		{
			name: "changed",
			msg: func(t *testing.T) *message.Message {
				msg, err := message.ObjectChanged(&domain.Entry{ID: "0_e"}, []domain.Column{domain.ColumnEntryStatus}, nil)
				require.NoError(t, err)
				return msg
			},
			consume:  true,
			wantCall: "ObjectChanged",
		},
		{
			name: "not consumed",
			msg: func(t *testing.T) *message.Message {
				return objectMessage(t, message.KindObjectAdded, &domain.Entry{ID: "0_e"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newProcessorEnv(t)
			env.flow.consume = tt.consume

			require.NoError(t, env.worker.processMessage(env.ctx, tt.msg(t)))

			if tt.wantCall == "" {
				assert.Empty(t, env.flow.Calls())
				return
			}
			assert.Equal(t, []string{tt.wantCall}, env.flow.Calls())
		})
	}
}

func TestProcessMessage_RaisedJob(t *testing.T) {
	env := newProcessorEnv(t)
	raised := env.job(t, domain.JobTypeImport)

	msg := objectMessage(t, message.KindObjectAdded, &domain.Asset{ID: "0_a"})
	msg.RaisedJobID = raised.ID
	require.NoError(t, env.worker.processMessage(env.ctx, msg))
	require.NotNil(t, env.flow.raised)
	assert.Equal(t, raised.ID, env.flow.raised.ID)

	msg.RaisedJobID = "3f1c8e0a-0000-4000-8000-000000000000"
	require.NoError(t, env.worker.processMessage(env.ctx, msg))
	assert.Nil(t, env.flow.raised)
}

func TestProcessMessage_ConsumerError(t *testing.T) {
	env := newProcessorEnv(t)
	env.flow.err = domain.NewRetryableError(errors.New("store busy"))

	err := env.worker.processMessage(env.ctx, objectMessage(t, message.KindObjectDeleted, &domain.UploadToken{ID: "tok"}))

	require.Error(t, err)
	assert.True(t, shouldRequeue(err))
}

func TestProcessMessage_Invalid(t *testing.T) {
	env := newProcessorEnv(t)

	err := env.worker.processMessage(env.ctx, &message.Message{Kind: "bogus"})
	require.ErrorIs(t, err, domain.ErrInvalidMessage)

	bad := &message.Message{Kind: message.KindObjectAdded, ObjectType: domain.ObjectTypeAsset, Object: []byte(`[]`)}
	err = env.worker.processMessage(env.ctx, bad)
	require.ErrorIs(t, err, domain.ErrInvalidMessage)
	assert.False(t, shouldRequeue(err))
}
