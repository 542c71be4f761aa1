package flow_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/flow"
	"github.com/cuongbtq/batchflow/internal/jobs"
	"github.com/cuongbtq/batchflow/internal/storage"
	"github.com/cuongbtq/batchflow/internal/storage/memory"
)

type nopPublisher struct {
	mu    sync.Mutex
	count int
}

func (p *nopPublisher) PublishWithRetry(context.Context, []byte, string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return nil
}

type handlerFunc func(ctx context.Context, job *domain.Job, twin *domain.Job) (*domain.Job, error)

func (f handlerFunc) Handle(ctx context.Context, job *domain.Job, twin *domain.Job) (*domain.Job, error) {
	return f(ctx, job, twin)
}

// stubHelper records the actions the manager asks for. Methods that are not
// overridden panic through the nil embedded interface.
type stubHelper struct {
	flow.Helper

	mu     sync.Mutex
	calls  []string
	params []string
	err    error
}

func (h *stubHelper) record(call string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, call)
	return h.err
}

func (h *stubHelper) GenerateThumbnailsFromFlavor(_ context.Context, entryID string, _ *domain.Job, _ int) error {
	return h.record("GenerateThumbnailsFromFlavor:" + entryID)
}

func (h *stubHelper) HandleEntryReplacement(_ context.Context, entry *domain.Entry) error {
	return h.record("HandleEntryReplacement:" + entry.ID)
}

func (h *stubHelper) ReplaceEntry(_ context.Context, target, replacement *domain.Entry) error {
	return h.record("ReplaceEntry:" + target.ID + "<-" + replacement.ID)
}

func (h *stubHelper) UploadFinished(_ context.Context, token *domain.UploadToken) error {
	return h.record("UploadFinished:" + token.ID)
}

func (h *stubHelper) UploadCanceled(_ context.Context, token *domain.UploadToken) error {
	return h.record("UploadCanceled:" + token.ID)
}

func (h *stubHelper) SendBulkUploadNotificationEmail(_ context.Context, job *domain.Job, _ domain.MailType, params []string) error {
	h.mu.Lock()
	h.params = params
	h.mu.Unlock()
	return h.record("SendBulkUploadNotificationEmail:" + job.ID)
}

func (h *stubHelper) BulkUploadLogURL(job *domain.Job) string {
	return "http://flow.test/api/v1/jobs/" + job.ID + "/log"
}

func (h *stubHelper) ImportFinished(_ context.Context, job *domain.Job, _ *domain.ImportData, _ *domain.Job) (*domain.Job, error) {
	return job, h.record("ImportFinished")
}

func (h *stubHelper) ImportFailed(_ context.Context, job *domain.Job, _ *domain.ImportData, _ *domain.Job) (*domain.Job, error) {
	return job, h.record("ImportFailed")
}

func (h *stubHelper) ExtractMediaClosed(_ context.Context, job *domain.Job, _ *domain.ExtractMediaData, _ *domain.Job) (*domain.Job, error) {
	return job, h.record("ExtractMediaClosed")
}

func (h *stubHelper) ConvertPending(_ context.Context, job *domain.Job, _ *domain.ConvertData, _ *domain.Job) (*domain.Job, error) {
	return job, h.record("ConvertPending")
}

func (h *stubHelper) BulkDownloadFinished(_ context.Context, job *domain.Job, _ *domain.BulkDownloadData, _ *domain.Job) (*domain.Job, error) {
	return job, h.record("BulkDownloadFinished")
}

func (h *stubHelper) Calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	publisher *nopPublisher
	jobs      *jobs.Manager
	helper    *stubHelper
	now       time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	publisher := &nopPublisher{}
	return &fixture{
		ctx:       context.Background(),
		store:     store,
		publisher: publisher,
		jobs:      jobs.NewManager(store, publisher, discardLogger()),
		helper:    &stubHelper{},
		now:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (f *fixture) manager(cfg flow.Config, opts ...flow.Option) *flow.Manager {
	opts = append([]flow.Option{flow.WithClock(func() time.Time { return f.now })}, opts...)
	return flow.NewManager(&flow.Dependencies{
		Config:     cfg,
		Logger:     discardLogger(),
		Jobs:       f.store,
		Entries:    f.store,
		Assets:     f.store,
		FileSyncs:  f.store,
		Partners:   f.store,
		JobManager: f.jobs,
		Helper:     f.helper,
	}, opts...)
}

// addJob persists a job of jobType in status.
func (f *fixture) addJob(t *testing.T, jobType domain.JobType, status domain.JobStatus, data domain.Payload) *domain.Job {
	t.Helper()
	job := domain.NewJob(jobType, data)
	job.PartnerID = 7
	job.Status = status
	job, err := f.jobs.AddJob(f.ctx, job)
	require.NoError(t, err)
	return job
}

func (f *fixture) reload(t *testing.T, job *domain.Job) *domain.Job {
	t.Helper()
	got, err := f.store.GetJob(f.ctx, job.ID)
	require.NoError(t, err)
	return got
}

// jobsOfType returns the stored jobs of jobType.
func (f *fixture) jobsOfType(t *testing.T, jobType domain.JobType) []*domain.Job {
	t.Helper()
	list, err := f.store.ListJobs(f.ctx, storage.JobFilter{JobType: jobType})
	require.NoError(t, err)
	return list
}
