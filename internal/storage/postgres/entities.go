package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/shared/postgresql"
)

const entryColumns = `
	entry_id, partner_id, name, entry_type, status, replaced_entry_id,
	replacing_entry_id, marked_for_deletion, thumb_offset, create_thumb,
	stream_name, primary_broadcast_url, secondary_broadcast_url, created_at, updated_at`

func (s *Store) CreateEntry(ctx context.Context, entry *domain.Entry) error {
	query := `
		INSERT INTO entries (` + entryColumns + `
		) VALUES (
			:entry_id, :partner_id, :name, :entry_type, :status, :replaced_entry_id,
			:replacing_entry_id, :marked_for_deletion, :thumb_offset, :create_thumb,
			:stream_name, :primary_broadcast_url, :secondary_broadcast_url, :created_at, :updated_at
		)
	`
	if _, err := s.db.NamedExecContext(ctx, query, entry); err != nil {
		return mapInsertError(err, "entry "+entry.ID)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID string) (*domain.Entry, error) {
	return s.getEntry(ctx, `SELECT `+entryColumns+` FROM entries WHERE entry_id = $1 AND status <> $2`,
		entryID, domain.EntryStatusDeleted)
}

func (s *Store) GetEntryNoFilter(ctx context.Context, entryID string) (*domain.Entry, error) {
	return s.getEntry(ctx, `SELECT `+entryColumns+` FROM entries WHERE entry_id = $1`, entryID)
}

func (s *Store) getEntry(ctx context.Context, query string, args ...interface{}) (*domain.Entry, error) {
	var entry domain.Entry
	if err := s.db.GetContext(ctx, &entry, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return &entry, nil
}

func (s *Store) UpdateEntry(ctx context.Context, entry *domain.Entry) error {
	query := `
		UPDATE entries
		SET name = :name,
		    status = :status,
		    replaced_entry_id = :replaced_entry_id,
		    replacing_entry_id = :replacing_entry_id,
		    marked_for_deletion = :marked_for_deletion,
		    thumb_offset = :thumb_offset,
		    create_thumb = :create_thumb,
		    stream_name = :stream_name,
		    primary_broadcast_url = :primary_broadcast_url,
		    secondary_broadcast_url = :secondary_broadcast_url,
		    updated_at = NOW()
		WHERE entry_id = :entry_id
	`
	result, err := s.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}
	return expectRow(result, domain.ErrEntryNotFound)
}

// DeleteEntry marks the entry deleted. With force its assets are deleted in
// the same transaction.
func (s *Store) DeleteEntry(ctx context.Context, entry *domain.Entry, force bool) error {
	return postgresql.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE entries
			SET status = $1, marked_for_deletion = FALSE, updated_at = NOW()
			WHERE entry_id = $2
		`, domain.EntryStatusDeleted, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		if err := expectRow(result, domain.ErrEntryNotFound); err != nil {
			return err
		}

		if !force {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE assets SET status = $1, updated_at = NOW() WHERE entry_id = $2
		`, domain.AssetStatusDeleted, entry.ID); err != nil {
			return fmt.Errorf("failed to delete entry assets: %w", err)
		}
		return nil
	})
}

const assetColumns = `
	asset_id, entry_id, partner_id, kind, status, is_original, flavor_params_id,
	version, file_ext, size, description, created_at, updated_at`

func (s *Store) GetAsset(ctx context.Context, assetID string) (*domain.Asset, error) {
	var asset domain.Asset
	query := `SELECT ` + assetColumns + ` FROM assets WHERE asset_id = $1`
	if err := s.db.GetContext(ctx, &asset, query, assetID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAssetNotFound
		}
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}
	return &asset, nil
}

func (s *Store) CreateAsset(ctx context.Context, asset *domain.Asset) error {
	query := `
		INSERT INTO assets (` + assetColumns + `
		) VALUES (
			:asset_id, :entry_id, :partner_id, :kind, :status, :is_original, :flavor_params_id,
			:version, :file_ext, :size, :description, :created_at, :updated_at
		)
	`
	if _, err := s.db.NamedExecContext(ctx, query, asset); err != nil {
		return mapInsertError(err, "asset "+asset.ID)
	}
	return nil
}

func (s *Store) UpdateAsset(ctx context.Context, asset *domain.Asset) error {
	query := `
		UPDATE assets
		SET entry_id = :entry_id,
		    status = :status,
		    is_original = :is_original,
		    flavor_params_id = :flavor_params_id,
		    version = :version,
		    file_ext = :file_ext,
		    size = :size,
		    description = :description,
		    updated_at = NOW()
		WHERE asset_id = :asset_id
	`
	result, err := s.db.NamedExecContext(ctx, query, asset)
	if err != nil {
		return fmt.Errorf("failed to update asset: %w", err)
	}
	return expectRow(result, domain.ErrAssetNotFound)
}

func (s *Store) ListAssetsByEntry(ctx context.Context, entryID string) ([]*domain.Asset, error) {
	var assets []*domain.Asset
	query := `
		SELECT ` + assetColumns + ` FROM assets
		WHERE entry_id = $1 AND status <> $2
		ORDER BY asset_id
	`
	if err := s.db.SelectContext(ctx, &assets, query, entryID, domain.AssetStatusDeleted); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}

const partnerColumns = `
	partner_id, name, admin_name, admin_email, notify_bulk_upload, notify_conversion_failure`

func (s *Store) CreatePartner(ctx context.Context, partner *domain.Partner) error {
	query := `
		INSERT INTO partners (` + partnerColumns + `
		) VALUES (
			:partner_id, :name, :admin_name, :admin_email, :notify_bulk_upload, :notify_conversion_failure
		)
	`
	if _, err := s.db.NamedExecContext(ctx, query, partner); err != nil {
		return mapInsertError(err, fmt.Sprintf("partner %d", partner.ID))
	}
	return nil
}

func (s *Store) GetPartner(ctx context.Context, partnerID int64) (*domain.Partner, error) {
	var partner domain.Partner
	query := `SELECT ` + partnerColumns + ` FROM partners WHERE partner_id = $1`
	if err := s.db.GetContext(ctx, &partner, query, partnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPartnerNotFound
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	return &partner, nil
}
