package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/cuongbtq/batchflow/internal/domain"
)

const keyPredicate = `object_type = $1 AND object_id = $2 AND sub_type = $3 AND version = $4`

func keyArgs(key domain.SyncKey) []interface{} {
	return []interface{}{key.ObjectType, key.ObjectID, key.SubType, key.Version}
}

func (s *Store) Exists(ctx context.Context, key domain.SyncKey) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM file_syncs
			WHERE ` + keyPredicate + ` AND status NOT IN ($5, $6)
		)
	`
	args := append(keyArgs(key), domain.FileSyncStatusDeleted, domain.FileSyncStatusPurged)
	if err := s.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check file sync: %w", err)
	}
	return exists, nil
}

func (s *Store) ReadyFileSync(ctx context.Context, key domain.SyncKey) (*domain.FileSync, error) {
	fs, err := s.findFileSync(ctx, key, "")
	if err != nil {
		return nil, err
	}
	if fs == nil {
		return nil, domain.ErrFileSyncNotFound
	}
	return fs, nil
}

func (s *Store) LocalFileSync(ctx context.Context, key domain.SyncKey) (*domain.FileSync, error) {
	return s.findFileSync(ctx, key, localPredicate)
}

func (s *Store) LocalPath(ctx context.Context, key domain.SyncKey) (string, error) {
	fs, err := s.findFileSync(ctx, key, localPredicate)
	if fs == nil || err != nil {
		return "", err
	}
	return fs.FilePath, nil
}

func (s *Store) RemoteAssetID(ctx context.Context, key domain.SyncKey) (string, error) {
	fs, err := s.findFileSync(ctx, key, ` AND remote_asset_id <> ''`)
	if fs == nil || err != nil {
		return "", err
	}
	return fs.RemoteAssetID, nil
}

const localPredicate = ` AND external = FALSE AND file_type <> 'URL'`

// findFileSync returns the oldest ready file sync for key, or nil.
func (s *Store) findFileSync(ctx context.Context, key domain.SyncKey, extra string) (*domain.FileSync, error) {
	var row fileSyncRow
	query := `
		SELECT ` + fileSyncColumns + ` FROM file_syncs
		WHERE ` + keyPredicate + ` AND status = $5` + extra + `
		ORDER BY created_at, file_sync_id
		LIMIT 1
	`
	args := append(keyArgs(key), domain.FileSyncStatusReady)
	if err := s.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find file sync: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetFileSync(ctx context.Context, fileSyncID string) (*domain.FileSync, error) {
	var row fileSyncRow
	query := `SELECT ` + fileSyncColumns + ` FROM file_syncs WHERE file_sync_id = $1`
	if err := s.db.GetContext(ctx, &row, query, fileSyncID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrFileSyncNotFound
		}
		return nil, fmt.Errorf("failed to get file sync: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateFileSync(ctx context.Context, fs *domain.FileSync) error {
	query := `
		INSERT INTO file_syncs (` + fileSyncColumns + `
		) VALUES (
			:file_sync_id, :object_type, :object_id, :sub_type, :version, :file_type, :status,
			:file_path, :remote_asset_id, :external, :storage_profile_id, :created_at, :updated_at
		)
	`
	if _, err := s.db.NamedExecContext(ctx, query, toFileSyncRow(fs)); err != nil {
		return mapInsertError(err, "file sync "+fs.ID)
	}
	return nil
}

func (s *Store) UpdateFileSync(ctx context.Context, fs *domain.FileSync) error {
	query := `
		UPDATE file_syncs
		SET status = :status,
		    file_path = :file_path,
		    remote_asset_id = :remote_asset_id,
		    external = :external,
		    storage_profile_id = :storage_profile_id,
		    updated_at = NOW()
		WHERE file_sync_id = :file_sync_id
	`
	result, err := s.db.NamedExecContext(ctx, query, toFileSyncRow(fs))
	if err != nil {
		return fmt.Errorf("failed to update file sync: %w", err)
	}
	return expectRow(result, domain.ErrFileSyncNotFound)
}
