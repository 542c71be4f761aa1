package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// fault is a dispatch failure together with the place it surfaced.
type fault struct {
	err   error
	file  string
	line  int
	stack string
}

func (f *fault) Error() string { return f.err.Error() }

func (f *fault) Unwrap() error { return f.err }

// newFault records the caller as the origin of err.
func newFault(err error) *fault {
	f := &fault{err: err, stack: string(debug.Stack())}
	if _, file, line, ok := runtime.Caller(1); ok {
		f.file, f.line = file, line
	}
	return f
}

// recoveredFault converts a recovered panic value. It must be called from the
// deferred function that recovered, so the panicking frame is still on the stack.
func recoveredFault(r any) *fault {
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}

	f := &fault{err: err, stack: string(debug.Stack())}
	f.file, f.line = panicOrigin()
	return f
}

// panicOrigin returns the first frame below runtime.gopanic, which is the
// code that panicked.
func panicOrigin() (string, int) {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	seenPanic := false
	for {
		frame, more := frames.Next()
		if seenPanic && !strings.HasPrefix(frame.Function, "runtime.") {
			return frame.File, frame.Line
		}
		if frame.Function == "runtime.gopanic" {
			seenPanic = true
		}
		if !more {
			return "", 0
		}
	}
}

func (m *Manager) fail(ctx context.Context, job *domain.Job, err error) {
	var f *fault
	if !errors.As(err, &f) {
		f = newFault(err)
	}

	m.logger.Error(fmt.Sprintf("Error in job [%s]", job.ID),
		slog.String("job_type", string(job.JobType)),
		slog.String("status", string(job.Status)),
		slog.String("origin", filepath.Base(f.file)+":"+strconv.Itoa(f.line)),
		slog.String("error", f.Error()),
	)
	m.alert(ctx, job, f)
}

// alert enqueues a batch alert mail about job. It is best effort: failures,
// including panics, are only logged.
func (m *Manager) alert(ctx context.Context, job *domain.Job, f *fault) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Failed to raise alert",
				slog.String("job_id", job.ID),
				slog.Any("panic", r),
			)
		}
	}()

	data := &domain.MailData{
		MailType:       domain.MailTypeBatchAlert,
		Priority:       domain.MailPriorityHigh,
		Status:         domain.MailStatusPending,
		FromEmail:      m.config.AlertEmail,
		FromName:       m.config.AlertName,
		RecipientEmail: m.config.AlertEmail,
		SubjectParams:  []string{},
		BodyParams: []string{
			job.ID,
			f.file,
			strconv.Itoa(f.line),
			f.Error(),
			f.stack,
		},
	}

	if _, err := m.jobManager.AddMailJob(ctx, job, job.PartnerID, data); err != nil {
		m.logger.Error("Failed to raise alert",
			slog.String("job_id", job.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	m.alerts.Add(ctx, 1, metric.WithAttributes(attribute.String("job_type", string(job.JobType))))
}

func timePtr[T any](v T) *T { return &v }
