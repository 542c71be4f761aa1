package message

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/domain"
)

func TestJobUpdated_EncodeDecode(t *testing.T) {
	jobID, twinID := uuid.NewString(), uuid.NewString()

	body, err := JobUpdated(jobID, twinID).Encode()
	require.NoError(t, err)

	msg, err := Decode(body)
	require.NoError(t, err)
	assert.Equal(t, KindJobUpdated, msg.Kind)
	assert.Equal(t, jobID, msg.JobID)
	assert.Equal(t, twinID, msg.TwinJobID)
	assert.Empty(t, msg.Object)
}

func TestObjectChanged_CarriesEvent(t *testing.T) {
	entry := &domain.Entry{ID: "0_tmp", Status: domain.EntryStatusReady, ReplacedEntryID: "0_orig"}
	old := map[domain.Column]string{domain.ColumnEntryStatus: string(domain.EntryStatusPreconvert)}

	msg, err := ObjectChanged(entry, []domain.Column{domain.ColumnEntryStatus}, old)
	require.NoError(t, err)
	body, err := msg.Encode()
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)
	ev, err := decoded.ChangedEvent()
	require.NoError(t, err)

	got, ok := ev.Object.(*domain.Entry)
	require.True(t, ok)
	assert.Equal(t, "0_orig", got.ReplacedEntryID)
	assert.True(t, ev.Modified(domain.ColumnEntryStatus))
	assert.Equal(t, string(domain.EntryStatusPreconvert), ev.OldValue(domain.ColumnEntryStatus))
}

func TestDecodeObject_Types(t *testing.T) {
	objects := []domain.Object{
		&domain.Entry{ID: "0_e"},
		&domain.Asset{ID: "0_a"},
		&domain.UploadToken{ID: "tok"},
		&domain.UserRole{ID: "role"},
		&domain.Job{ID: uuid.NewString(), JobType: domain.JobTypeBulkUpload},
	}

	for _, obj := range objects {
		t.Run(string(obj.ObjectType()), func(t *testing.T) {
			msg, err := ObjectEvent(KindObjectAdded, obj)
			require.NoError(t, err)

			got, err := msg.DecodeObject()
			require.NoError(t, err)
			assert.IsType(t, obj, got)
			assert.Equal(t, obj.ObjectType(), got.ObjectType())
		})
	}
}

func TestDecode_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"kind":`},
		{name: "unknown kind", body: `{"kind":"bogus"}`},
		{name: "job id not a uuid", body: `{"kind":"job_updated","job_id":"42"}`},
		{name: "twin id not a uuid", body: `{"kind":"job_updated","job_id":"` + uuid.NewString() + `","twin_job_id":"x"}`},
		{name: "event without object", body: `{"kind":"object_added","object_type":"asset"}`},
		{name: "unknown object type", body: `{"kind":"object_deleted","object_type":"playlist","object":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Decode([]byte(tt.body))
			require.ErrorIs(t, err, domain.ErrInvalidMessage)
			assert.Nil(t, msg)
		})
	}
}

func TestDecodeObject_BadPayload(t *testing.T) {
	msg := &Message{Kind: KindObjectAdded, ObjectType: domain.ObjectTypeAsset, Object: []byte(`{"id":7}`)}

	_, err := msg.DecodeObject()
	require.ErrorIs(t, err, domain.ErrInvalidMessage)

	_, err = msg.ChangedEvent()
	require.ErrorIs(t, err, domain.ErrInvalidMessage)
}
