package flow

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/cuongbtq/batchflow/internal/domain"
)

const meterName = "github.com/cuongbtq/batchflow/internal/flow"

// Dependencies holds everything the flow manager needs.
type Dependencies struct {
	Config     Config
	Logger     *slog.Logger
	Jobs       JobStore
	Entries    EntryStore
	Assets     AssetStore
	FileSyncs  FileSyncLocator
	Partners   PartnerStore
	JobManager JobManager
	Helper     Helper
}

// Manager reacts to batch job status changes and entity events. It is safe
// for concurrent use as long as a single job is not dispatched twice at once.
type Manager struct {
	config     Config
	logger     *slog.Logger
	jobs       JobStore
	entries    EntryStore
	assets     AssetStore
	fileSyncs  FileSyncLocator
	partners   PartnerStore
	jobManager JobManager
	helper     Helper
	handlers   map[domain.JobType]Handler
	now        func() time.Time

	dispatched metric.Int64Counter
	alerts     metric.Int64Counter
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock used for queue, finish and retry times.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithMeter records dispatch metrics on meter instead of the global provider.
func WithMeter(meter metric.Meter) Option {
	return func(m *Manager) { m.initMetrics(meter) }
}

// WithHandlers replaces the handler table built from the helper.
func WithHandlers(handlers map[domain.JobType]Handler) Option {
	return func(m *Manager) { m.handlers = handlers }
}

// NewManager creates a flow manager.
func NewManager(deps *Dependencies, opts ...Option) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		config:     deps.Config,
		logger:     logger.With(slog.String("component", "flow")),
		jobs:       deps.Jobs,
		entries:    deps.Entries,
		assets:     deps.Assets,
		fileSyncs:  deps.FileSyncs,
		partners:   deps.Partners,
		jobManager: deps.JobManager,
		helper:     deps.Helper,
		now:        func() time.Time { return time.Now().UTC() },
	}
	m.initMetrics(otel.Meter(meterName))
	if deps.Helper != nil {
		m.handlers = NewHandlerTable(deps.Helper)
	}

	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) initMetrics(meter metric.Meter) {
	dispatched, err := meter.Int64Counter("batchflow.dispatch.total",
		metric.WithDescription("Job status changes dispatched through the flow manager"),
	)
	if err != nil {
		m.logger.Warn("Failed to create dispatch counter", slog.String("error", err.Error()))
		dispatched = noop.Int64Counter{}
	}
	alerts, err := meter.Int64Counter("batchflow.dispatch.alerts",
		metric.WithDescription("Alerts raised for failed dispatches"),
	)
	if err != nil {
		m.logger.Warn("Failed to create alert counter", slog.String("error", err.Error()))
		alerts = noop.Int64Counter{}
	}
	m.dispatched = dispatched
	m.alerts = alerts
}
