// Package postgres implements the flow stores on PostgreSQL with sqlx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/cuongbtq/batchflow/internal/flow"
	"github.com/cuongbtq/batchflow/internal/jobs"
	"github.com/cuongbtq/batchflow/shared/postgresql"
)

//go:embed schema.sql
var schema string

// Compile-time interface checks.
var (
	_ flow.JobStore        = (*Store)(nil)
	_ flow.EntryStore      = (*Store)(nil)
	_ flow.AssetStore      = (*Store)(nil)
	_ flow.FileSyncLocator = (*Store)(nil)
	_ flow.PartnerStore    = (*Store)(nil)
	_ jobs.Store           = (*Store)(nil)
)

const uniqueViolation = "23505"

// ErrDuplicate is returned when an insert collides with an existing row.
var ErrDuplicate = errors.New("record already exists")

// Store handles all database operations of the flow.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a Store on an open PostgreSQL client.
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Store {
	return &Store{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// Migrate creates the tables and indexes the store needs.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	s.logger.Info("Database schema applied")
	return nil
}

// mapInsertError turns a unique violation into ErrDuplicate.
func mapInsertError(err error, what string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, ErrDuplicate)
	}
	return fmt.Errorf("failed to create %s: %w", what, err)
}
