package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Classification(t *testing.T) {
	tests := []struct {
		status  JobStatus
		valid   bool
		closed  bool
		failure bool
	}{
		{status: JobStatusPending, valid: true},
		{status: JobStatusQueued, valid: true},
		{status: JobStatusRetry, valid: true},
		{status: JobStatusAlmostDone, valid: true},
		{status: JobStatusFinished, valid: true, closed: true},
		{status: JobStatusAborted, valid: true, closed: true},
		{status: JobStatusDontProcess, valid: true, closed: true},
		{status: JobStatusFailed, valid: true, closed: true, failure: true},
		{status: JobStatusFatal, valid: true, closed: true, failure: true},
		{status: "DONE"},
		{status: ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.status.Valid())
			assert.Equal(t, tt.closed, tt.status.IsClosed())
			assert.Equal(t, tt.failure, tt.status.IsFailure())
		})
	}
}

func TestClosedStatuses_ReturnsCopy(t *testing.T) {
	statuses := ClosedStatuses()
	statuses[0] = JobStatusPending

	assert.True(t, JobStatusFinished.IsClosed())
	assert.NotContains(t, ClosedStatuses(), JobStatusPending)
}

func TestJob_NewChild(t *testing.T) {
	parent := NewJob(JobTypeConvertProfile, &ConvertProfileData{})
	parent.PartnerID = 11
	parent.EntryID = "0_e"

	child := parent.NewChild(JobTypeConvert, &ConvertData{})

	assert.NotEqual(t, parent.ID, child.ID)
	assert.Equal(t, parent.ID, child.ParentJobID)
	assert.Equal(t, int64(11), child.PartnerID)
	assert.Equal(t, "0_e", child.EntryID)
	assert.Equal(t, JobStatusPending, child.Status)
	assert.Equal(t, ObjectTypeJob, child.ObjectType())
}

func TestJob_Clone(t *testing.T) {
	queued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	job := NewJob(JobTypeImport, &ImportData{})
	job.QueueTime = &queued

	cp := job.Clone()
	*cp.QueueTime = queued.Add(time.Hour)
	cp.Status = JobStatusFinished

	assert.True(t, queued.Equal(*job.QueueTime))
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Same(t, job.Data, cp.Data)
	assert.Nil(t, cp.FinishTime)
}

func TestDecodePayload(t *testing.T) {
	tests := []struct {
		name    string
		jobType JobType
		raw     string
		want    Payload
		wantErr bool
	}{
		{name: "import", jobType: JobTypeImport, raw: `{"flavor_asset_id":"0_a","file_size":9}`, want: &ImportData{FlavorAssetID: "0_a", FileSize: 9}},
		{name: "provision delete shares provision data", jobType: JobTypeProvisionDelete, raw: `{"stream_id":"s"}`, want: &ProvisionData{StreamID: "s"}},
		{name: "mail", jobType: JobTypeMail, raw: `{"mail_type":90,"body_params":["a"]}`, want: &MailData{MailType: MailTypeBatchAlert, BodyParams: []string{"a"}}},
		{name: "empty yields zero payload", jobType: JobTypeConvert, want: &ConvertData{}},
		{name: "null yields zero payload", jobType: JobTypeIndex, raw: `null`, want: &IndexData{}},
		{name: "unknown type", jobType: "TRANSCRIBE", raw: `{}`, wantErr: true},
		{name: "malformed", jobType: JobTypeImport, raw: `{"file_size":"big"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodePayload(tt.jobType, []byte(tt.raw))
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodePayload(t *testing.T) {
	raw, err := EncodePayload(nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))

	raw, err = EncodePayload(&BulkUploadData{FileName: "a.csv", NumOfObjects: 2})
	require.NoError(t, err)
	got, err := DecodePayload(JobTypeBulkUpload, raw)
	require.NoError(t, err)
	assert.Equal(t, &BulkUploadData{FileName: "a.csv", NumOfObjects: 2}, got)
}

func TestKnownJobType(t *testing.T) {
	assert.True(t, KnownJobType(JobTypeMoveCategoryEntries))
	assert.True(t, KnownJobType(JobTypeMail))
	assert.False(t, KnownJobType("TRANSCRIBE"))
}

func TestChangedEvent(t *testing.T) {
	ev := ChangedEvent{
		Object:          &Entry{ID: "0_e"},
		ModifiedColumns: []Column{ColumnEntryStatus},
		OldValues:       map[Column]string{ColumnEntryStatus: "PRECONVERT"},
	}

	assert.True(t, ev.Modified(ColumnEntryStatus))
	assert.False(t, ev.Modified(ColumnAssetStatus))
	assert.Equal(t, "PRECONVERT", ev.OldValue(ColumnEntryStatus))
	assert.Empty(t, ev.OldValue(ColumnJobStatus))
}

func TestAsset_SyncKey(t *testing.T) {
	asset := &Asset{ID: "0_fl", Kind: AssetKindFlavor, Version: 3}

	assert.True(t, asset.IsFlavor())
	assert.False(t, asset.IsThumbnail())
	assert.Equal(t, SyncKey{ObjectType: ObjectTypeAsset, ObjectID: "0_fl", SubType: FileSyncSubTypeLog, Version: 3}, asset.SyncKey(FileSyncSubTypeLog))
}
