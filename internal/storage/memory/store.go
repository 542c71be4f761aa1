// Package memory provides a mutex-guarded in-memory implementation of every
// store the flow needs. It is used in tests and for local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/flow"
	"github.com/cuongbtq/batchflow/internal/jobs"
	"github.com/cuongbtq/batchflow/internal/storage"
)

// Compile-time interface checks.
var (
	_ flow.JobStore        = (*Store)(nil)
	_ flow.EntryStore      = (*Store)(nil)
	_ flow.AssetStore      = (*Store)(nil)
	_ flow.FileSyncLocator = (*Store)(nil)
	_ flow.PartnerStore    = (*Store)(nil)
	_ jobs.Store           = (*Store)(nil)
)

// Store keeps all records in maps. Values are copied on the way in and out
// so callers never share state with the store.
type Store struct {
	mu        sync.RWMutex
	jobs      map[string]*domain.Job
	entries   map[string]*domain.Entry
	assets    map[string]*domain.Asset
	fileSyncs map[string]*domain.FileSync
	partners  map[int64]*domain.Partner
}

// New returns an empty store.
func New() *Store {
	return &Store{
		jobs:      make(map[string]*domain.Job),
		entries:   make(map[string]*domain.Entry),
		assets:    make(map[string]*domain.Asset),
		fileSyncs: make(map[string]*domain.FileSync),
		partners:  make(map[int64]*domain.Partner),
	}
}

// ─── Jobs ───

func (s *Store) CreateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; ok {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	return job.Clone(), nil
}

func (s *Store) UpdateJob(_ context.Context, job *domain.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[job.ID]; !ok {
		return domain.ErrJobNotFound
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) ListChildJobs(_ context.Context, parentID string) ([]*domain.Job, error) {
	return s.selectJobs(func(j *domain.Job) bool { return j.ParentJobID == parentID }, 0), nil
}

func (s *Store) ListTwinJobs(_ context.Context, job *domain.Job) ([]*domain.Job, error) {
	if job.DuplicationKey == "" {
		return nil, nil
	}
	return s.selectJobs(func(j *domain.Job) bool {
		return j.ID != job.ID && j.JobType == job.JobType && j.DuplicationKey == job.DuplicationKey
	}, 0), nil
}

// ListDueJobs returns jobs in one of statuses whose check-again timeout is
// at or before dueBy, earliest timeout first.
func (s *Store) ListDueJobs(_ context.Context, statuses []domain.JobStatus, dueBy time.Time, limit int) ([]*domain.Job, error) {
	want := make(map[domain.JobStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}

	s.mu.RLock()
	out := make([]*domain.Job, 0)
	for _, j := range s.jobs {
		if want[j.Status] && j.CheckAgainTimeout != nil && !j.CheckAgainTimeout.After(dueBy) {
			out = append(out, j.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		ta, tb := *out[a].CheckAgainTimeout, *out[b].CheckAgainTimeout
		if ta.Equal(tb) {
			return out[a].ID < out[b].ID
		}
		return ta.Before(tb)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListJobs returns one page of jobs plus one extra when more exist.
func (s *Store) ListJobs(_ context.Context, filter storage.JobFilter) ([]*domain.Job, error) {
	s.mu.RLock()
	out := make([]*domain.Job, 0)
	for _, j := range s.jobs {
		switch {
		case filter.PartnerID != 0 && j.PartnerID != filter.PartnerID:
		case filter.JobType != "" && j.JobType != filter.JobType:
		case filter.Status != "" && j.Status != filter.Status:
		case filter.EntryID != "" && j.EntryID != filter.EntryID:
		case filter.Cursor != nil && !filter.Cursor.After(j.CreatedAt, j.ID):
		default:
			out = append(out, j.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID > out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})

	if filter.PageSize > 0 && len(out) > filter.PageSize+1 {
		out = out[:filter.PageSize+1]
	}
	return out, nil
}

// selectJobs returns matching jobs oldest first, at most limit when limit > 0.
func (s *Store) selectJobs(match func(*domain.Job) bool, limit int) []*domain.Job {
	s.mu.RLock()
	out := make([]*domain.Job, 0)
	for _, j := range s.jobs {
		if match(j) {
			out = append(out, j.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// ─── Entries ───

func (s *Store) CreateEntry(_ context.Context, entry *domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID string) (*domain.Entry, error) {
	entry, err := s.GetEntryNoFilter(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status == domain.EntryStatusDeleted {
		return nil, domain.ErrEntryNotFound
	}
	return entry, nil
}

func (s *Store) GetEntryNoFilter(_ context.Context, entryID string) (*domain.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[entryID]
	if !ok {
		return nil, domain.ErrEntryNotFound
	}
	cp := *entry
	return &cp, nil
}

func (s *Store) UpdateEntry(_ context.Context, entry *domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[entry.ID]; !ok {
		return domain.ErrEntryNotFound
	}
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

// DeleteEntry marks the entry deleted. With force the entry's assets are
// deleted too.
func (s *Store) DeleteEntry(_ context.Context, entry *domain.Entry, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.entries[entry.ID]
	if !ok {
		return domain.ErrEntryNotFound
	}
	stored.Status = domain.EntryStatusDeleted
	stored.MarkedForDeletion = false

	if force {
		for _, a := range s.assets {
			if a.EntryID == entry.ID {
				a.Status = domain.AssetStatusDeleted
			}
		}
	}
	return nil
}

// ─── Assets ───

func (s *Store) GetAsset(_ context.Context, assetID string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, ok := s.assets[assetID]
	if !ok {
		return nil, domain.ErrAssetNotFound
	}
	cp := *asset
	return &cp, nil
}

func (s *Store) CreateAsset(_ context.Context, asset *domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[asset.ID]; ok {
		return fmt.Errorf("asset %s already exists", asset.ID)
	}
	cp := *asset
	s.assets[asset.ID] = &cp
	return nil
}

func (s *Store) UpdateAsset(_ context.Context, asset *domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[asset.ID]; !ok {
		return domain.ErrAssetNotFound
	}
	cp := *asset
	s.assets[asset.ID] = &cp
	return nil
}

func (s *Store) ListAssetsByEntry(_ context.Context, entryID string) ([]*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Asset, 0)
	for _, a := range s.assets {
		if a.EntryID == entryID && a.Status != domain.AssetStatusDeleted {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─── File syncs ───

func (s *Store) Exists(_ context.Context, key domain.SyncKey) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, fs := range s.fileSyncs {
		if fs.Key == key && fs.Status != domain.FileSyncStatusDeleted && fs.Status != domain.FileSyncStatusPurged {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ReadyFileSync(_ context.Context, key domain.SyncKey) (*domain.FileSync, error) {
	fs := s.findFileSync(key, func(fs *domain.FileSync) bool { return true })
	if fs == nil {
		return nil, domain.ErrFileSyncNotFound
	}
	return fs, nil
}

func (s *Store) LocalFileSync(_ context.Context, key domain.SyncKey) (*domain.FileSync, error) {
	return s.findFileSync(key, isLocal), nil
}

func (s *Store) LocalPath(_ context.Context, key domain.SyncKey) (string, error) {
	if fs := s.findFileSync(key, isLocal); fs != nil {
		return fs.FilePath, nil
	}
	return "", nil
}

func (s *Store) RemoteAssetID(_ context.Context, key domain.SyncKey) (string, error) {
	fs := s.findFileSync(key, func(fs *domain.FileSync) bool { return fs.RemoteAssetID != "" })
	if fs == nil {
		return "", nil
	}
	return fs.RemoteAssetID, nil
}

func (s *Store) GetFileSync(_ context.Context, fileSyncID string) (*domain.FileSync, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fs, ok := s.fileSyncs[fileSyncID]
	if !ok {
		return nil, domain.ErrFileSyncNotFound
	}
	cp := *fs
	return &cp, nil
}

func (s *Store) CreateFileSync(_ context.Context, fs *domain.FileSync) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fileSyncs[fs.ID]; ok {
		return fmt.Errorf("file sync %s already exists", fs.ID)
	}
	cp := *fs
	s.fileSyncs[fs.ID] = &cp
	return nil
}

func (s *Store) UpdateFileSync(_ context.Context, fs *domain.FileSync) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.fileSyncs[fs.ID]; !ok {
		return domain.ErrFileSyncNotFound
	}
	cp := *fs
	s.fileSyncs[fs.ID] = &cp
	return nil
}

// ListFileSyncs returns every file sync recorded for key, oldest first.
func (s *Store) ListFileSyncs(_ context.Context, key domain.SyncKey) ([]*domain.FileSync, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.FileSync, 0)
	for _, fs := range s.fileSyncs {
		if fs.Key == key {
			cp := *fs
			out = append(out, &cp)
		}
	}
	sortFileSyncs(out)
	return out, nil
}

// findFileSync returns the oldest ready file sync for key accepted by match.
func (s *Store) findFileSync(key domain.SyncKey, match func(*domain.FileSync) bool) *domain.FileSync {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []*domain.FileSync
	for _, fs := range s.fileSyncs {
		if fs.Key == key && fs.Status == domain.FileSyncStatusReady && match(fs) {
			found = append(found, fs)
		}
	}
	if len(found) == 0 {
		return nil
	}
	sortFileSyncs(found)
	cp := *found[0]
	return &cp
}

func sortFileSyncs(list []*domain.FileSync) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID < list[j].ID
		}
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}

func isLocal(fs *domain.FileSync) bool { return !fs.External && fs.FileType != domain.FileSyncTypeURL }

// ─── Partners ───

func (s *Store) CreatePartner(_ context.Context, partner *domain.Partner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *partner
	s.partners[partner.ID] = &cp
	return nil
}

func (s *Store) GetPartner(_ context.Context, partnerID int64) (*domain.Partner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partner, ok := s.partners[partnerID]
	if !ok {
		return nil, domain.ErrPartnerNotFound
	}
	cp := *partner
	return &cp, nil
}
