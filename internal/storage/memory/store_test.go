package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/storage"
)

func addJob(t *testing.T, s *Store, jobType domain.JobType, createdAt time.Time, mutate func(*domain.Job)) *domain.Job {
	t.Helper()
	job := domain.NewJob(jobType, nil)
	job.CreatedAt = createdAt
	if mutate != nil {
		mutate(job)
	}
	require.NoError(t, s.CreateJob(context.Background(), job))
	return job
}

func TestStore_JobsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := New()
	job := addJob(t, s, domain.JobTypeImport, time.Now(), nil)

	job.Status = domain.JobStatusFinished
	got, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)

	got.Status = domain.JobStatusFailed
	again, err := s.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, again.Status)

	require.Error(t, s.CreateJob(ctx, job))
	_, err = s.GetJob(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestStore_ListChildAndTwinJobs(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	parent := addJob(t, s, domain.JobTypeBulkUpload, base, nil)
	second := addJob(t, s, domain.JobTypeImport, base.Add(2*time.Minute), func(j *domain.Job) { j.ParentJobID = parent.ID })
	first := addJob(t, s, domain.JobTypeImport, base.Add(time.Minute), func(j *domain.Job) { j.ParentJobID = parent.ID })

	children, err := s.ListChildJobs(ctx, parent.ID)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, first.ID, children[0].ID)
	assert.Equal(t, second.ID, children[1].ID)

	withKey := func(key string) func(*domain.Job) { return func(j *domain.Job) { j.DuplicationKey = key } }
	a := addJob(t, s, domain.JobTypeConvert, base, withKey("k"))
	b := addJob(t, s, domain.JobTypeConvert, base.Add(time.Second), withKey("k"))
	addJob(t, s, domain.JobTypeImport, base, withKey("k"))
	addJob(t, s, domain.JobTypeConvert, base, withKey("other"))

	twins, err := s.ListTwinJobs(ctx, a)
	require.NoError(t, err)
	require.Len(t, twins, 1)
	assert.Equal(t, b.ID, twins[0].ID)

	none, err := s.ListTwinJobs(ctx, parent)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ListDueJobs(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base.Add(time.Hour)
	at := func(status domain.JobStatus, checkAgain time.Time) func(*domain.Job) {
		return func(j *domain.Job) {
			j.Status = status
			j.CheckAgainTimeout = &checkAgain
		}
	}

	// Older jobs that are not due yet never hide newer due ones
	for i := 0; i < 3; i++ {
		addJob(t, s, domain.JobTypeConvert, base.Add(time.Duration(i)*time.Second), at(domain.JobStatusRetry, now.Add(time.Minute)))
	}
	late := addJob(t, s, domain.JobTypeConvert, base.Add(time.Minute), at(domain.JobStatusRetry, now.Add(-time.Second)))
	early := addJob(t, s, domain.JobTypeConvert, base.Add(2*time.Minute), at(domain.JobStatusAlmostDone, now.Add(-time.Minute)))
	exact := addJob(t, s, domain.JobTypeConvert, base.Add(3*time.Minute), at(domain.JobStatusRetry, now))
	addJob(t, s, domain.JobTypeConvert, base, at(domain.JobStatusProcessing, now.Add(-time.Hour)))
	addJob(t, s, domain.JobTypeConvert, base, func(j *domain.Job) { j.Status = domain.JobStatusRetry })

	statuses := []domain.JobStatus{domain.JobStatusRetry, domain.JobStatusAlmostDone}
	due, err := s.ListDueJobs(ctx, statuses, now, 3)
	require.NoError(t, err)
	require.Len(t, due, 3)
	assert.Equal(t, []string{early.ID, late.ID, exact.ID}, []string{due[0].ID, due[1].ID, due[2].ID})

	limited, err := s.ListDueJobs(ctx, statuses, now, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, early.ID, limited[0].ID)
}

func TestStore_ListJobsPaging(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < 5; i++ {
		job := addJob(t, s, domain.JobTypeIndex, base.Add(time.Duration(i)*time.Minute), func(j *domain.Job) { j.PartnerID = 1 })
		ids = append(ids, job.ID)
	}
	addJob(t, s, domain.JobTypeIndex, base, func(j *domain.Job) { j.PartnerID = 2 })

	page, err := s.ListJobs(ctx, storage.JobFilter{PartnerID: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page, 3, "one extra row signals another page")
	assert.Equal(t, ids[4], page[0].ID)
	assert.Equal(t, ids[3], page[1].ID)

	last := page[1]
	next, err := s.ListJobs(ctx, storage.JobFilter{
		PartnerID: 1,
		PageSize:  2,
		Cursor:    &storage.JobCursor{CreatedAt: last.CreatedAt, JobID: last.ID},
	})
	require.NoError(t, err)
	require.Len(t, next, 3)
	assert.Equal(t, ids[2], next[0].ID)
}

func TestStore_Entries(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreateEntry(ctx, &domain.Entry{ID: "0_e", Status: domain.EntryStatusReady, MarkedForDeletion: true}))
	require.NoError(t, s.CreateAsset(ctx, &domain.Asset{ID: "0_a", EntryID: "0_e", Status: domain.AssetStatusReady}))
	require.NoError(t, s.CreateAsset(ctx, &domain.Asset{ID: "0_b", EntryID: "0_other", Status: domain.AssetStatusReady}))

	entry, err := s.GetEntry(ctx, "0_e")
	require.NoError(t, err)
	require.NoError(t, s.DeleteEntry(ctx, entry, true))

	_, err = s.GetEntry(ctx, "0_e")
	require.ErrorIs(t, err, domain.ErrEntryNotFound)

	deleted, err := s.GetEntryNoFilter(ctx, "0_e")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryStatusDeleted, deleted.Status)
	assert.False(t, deleted.MarkedForDeletion)

	assets, err := s.ListAssetsByEntry(ctx, "0_e")
	require.NoError(t, err)
	assert.Empty(t, assets)
	other, err := s.GetAsset(ctx, "0_b")
	require.NoError(t, err)
	assert.Equal(t, domain.AssetStatusReady, other.Status)

	require.ErrorIs(t, s.UpdateEntry(ctx, &domain.Entry{ID: "missing"}), domain.ErrEntryNotFound)
	require.ErrorIs(t, s.DeleteEntry(ctx, &domain.Entry{ID: "missing"}, false), domain.ErrEntryNotFound)
}

func TestStore_FileSyncLookup(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := domain.SyncKey{ObjectType: domain.ObjectTypeAsset, ObjectID: "0_a", SubType: domain.FileSyncSubTypeAsset, Version: 1}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	exists, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
	_, err = s.ReadyFileSync(ctx, key)
	require.ErrorIs(t, err, domain.ErrFileSyncNotFound)

	syncs := []*domain.FileSync{
		{ID: "pending", Key: key, FileType: domain.FileSyncTypeFile, Status: domain.FileSyncStatusPending, FilePath: "/p", CreatedAt: base},
		{ID: "remote", Key: key, FileType: domain.FileSyncTypeURL, Status: domain.FileSyncStatusReady, FilePath: "s3://b/a", RemoteAssetID: "r-1", External: true, CreatedAt: base.Add(time.Second)},
		{ID: "local", Key: key, FileType: domain.FileSyncTypeFile, Status: domain.FileSyncStatusReady, FilePath: "/content/a", CreatedAt: base.Add(2 * time.Second)},
	}
	for _, fs := range syncs {
		require.NoError(t, s.CreateFileSync(ctx, fs))
	}

	exists, err = s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	ready, err := s.ReadyFileSync(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "remote", ready.ID)

	local, err := s.LocalFileSync(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, local)
	assert.Equal(t, "local", local.ID)

	path, err := s.LocalPath(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "/content/a", path)

	remoteID, err := s.RemoteAssetID(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "r-1", remoteID)

	all, err := s.ListFileSyncs(ctx, key)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "pending", all[0].ID)

	local.Status = domain.FileSyncStatusPurged
	require.NoError(t, s.UpdateFileSync(ctx, local))
	path, err = s.LocalPath(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestStore_Partners(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.CreatePartner(ctx, &domain.Partner{ID: 4, AdminName: "Ana"}))

	partner, err := s.GetPartner(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Ana", partner.AdminName)

	_, err = s.GetPartner(ctx, 5)
	require.ErrorIs(t, err, domain.ErrPartnerNotFound)
}
