package flow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/flow"
)

func TestNewHandlerTable_Coverage(t *testing.T) {
	table := flow.NewHandlerTable(&stubHelper{})

	_, ok := table[domain.JobTypeMail]
	assert.False(t, ok, "mail jobs are never routed")

	for _, jobType := range []domain.JobType{
		domain.JobTypeImport,
		domain.JobTypeExtractMedia,
		domain.JobTypeConvert,
		domain.JobTypePostConvert,
		domain.JobTypeBulkUpload,
		domain.JobTypeConvertProfile,
		domain.JobTypeBulkDownload,
		domain.JobTypeProvisionProvide,
		domain.JobTypeProvisionDelete,
		domain.JobTypeConvertCollection,
		domain.JobTypeStorageExport,
		domain.JobTypeStorageDelete,
		domain.JobTypeCaptureThumb,
		domain.JobTypeDeleteFile,
		domain.JobTypeIndex,
		domain.JobTypeCopy,
		domain.JobTypeDelete,
		domain.JobTypeMoveCategoryEntries,
	} {
		assert.Contains(t, table, jobType)
	}
}

func TestHandlerTable_Routing(t *testing.T) {
	tests := []struct {
		name      string
		jobType   domain.JobType
		status    domain.JobStatus
		data      domain.Payload
		wantCalls []string
	}{
		{name: "import finished", jobType: domain.JobTypeImport, status: domain.JobStatusFinished, data: &domain.ImportData{}, wantCalls: []string{"ImportFinished"}},
		{name: "import failed", jobType: domain.JobTypeImport, status: domain.JobStatusFailed, data: &domain.ImportData{}, wantCalls: []string{"ImportFailed"}},
		{name: "import fatal", jobType: domain.JobTypeImport, status: domain.JobStatusFatal, data: &domain.ImportData{}, wantCalls: []string{"ImportFailed"}},
		{name: "import processing is ignored", jobType: domain.JobTypeImport, status: domain.JobStatusProcessing, data: &domain.ImportData{}},
		{name: "extract media finished", jobType: domain.JobTypeExtractMedia, status: domain.JobStatusFinished, data: &domain.ExtractMediaData{}, wantCalls: []string{"ExtractMediaClosed"}},
		{name: "extract media fatal", jobType: domain.JobTypeExtractMedia, status: domain.JobStatusFatal, data: &domain.ExtractMediaData{}, wantCalls: []string{"ExtractMediaClosed"}},
		{name: "extract media aborted is ignored", jobType: domain.JobTypeExtractMedia, status: domain.JobStatusAborted, data: &domain.ExtractMediaData{}},
		{name: "convert pending", jobType: domain.JobTypeConvert, status: domain.JobStatusPending, data: &domain.ConvertData{}, wantCalls: []string{"ConvertPending"}},
		{name: "bulk download finished", jobType: domain.JobTypeBulkDownload, status: domain.JobStatusFinished, data: &domain.BulkDownloadData{}, wantCalls: []string{"BulkDownloadFinished"}},
		{name: "bulk download failure has no handler", jobType: domain.JobTypeBulkDownload, status: domain.JobStatusFailed, data: &domain.BulkDownloadData{}},
		{name: "provision delete is ignored", jobType: domain.JobTypeProvisionDelete, status: domain.JobStatusFinished, data: &domain.ProvisionData{}},
		{name: "copy is ignored", jobType: domain.JobTypeCopy, status: domain.JobStatusFinished, data: &domain.CopyData{}},
		{name: "delete is ignored", jobType: domain.JobTypeDelete, status: domain.JobStatusFailed, data: &domain.DeleteData{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			table := flow.NewHandlerTable(f.helper)
			job := domain.NewJob(tt.jobType, tt.data)
			job.Status = tt.status

			got, err := table[tt.jobType].Handle(f.ctx, job, nil)

			require.NoError(t, err)
			assert.Same(t, job, got)
			if tt.wantCalls == nil {
				assert.Empty(t, f.helper.Calls())
			} else {
				assert.Equal(t, tt.wantCalls, f.helper.Calls())
			}
		})
	}
}

func TestHandlerTable_InvalidPayload(t *testing.T) {
	f := newFixture(t)
	table := flow.NewHandlerTable(f.helper)
	job := domain.NewJob(domain.JobTypeConvert, &domain.ImportData{})
	job.Status = domain.JobStatusPending

	got, err := table[domain.JobTypeConvert].Handle(f.ctx, job, nil)

	require.ErrorIs(t, err, domain.ErrInvalidPayload)
	assert.Nil(t, got)
	assert.Empty(t, f.helper.Calls())
}

func TestHandlerTable_IgnoredStatusSkipsPayloadCheck(t *testing.T) {
	f := newFixture(t)
	table := flow.NewHandlerTable(f.helper)
	job := domain.NewJob(domain.JobTypeConvert, nil)
	job.Status = domain.JobStatusProcessing

	got, err := table[domain.JobTypeConvert].Handle(f.ctx, job, nil)

	require.NoError(t, err)
	assert.Same(t, job, got)
}
