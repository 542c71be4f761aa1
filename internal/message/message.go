// Package message defines the flow messages exchanged over the broker.
package message

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// ContentType is the content type of every encoded message.
const ContentType = "application/json"

// Kind tells the runner which flow operation a message triggers.
type Kind string

const (
	KindJobUpdated          Kind = "job_updated"
	KindObjectAdded         Kind = "object_added"
	KindObjectChanged       Kind = "object_changed"
	KindObjectDeleted       Kind = "object_deleted"
	KindReadyForReplacement Kind = "ready_for_replacement"
)

// Message is a job status notification or an entity event.
type Message struct {
	Kind      Kind   `json:"kind"`
	JobID     string `json:"job_id,omitempty"`
	TwinJobID string `json:"twin_job_id,omitempty"`

	ObjectType      domain.ObjectType        `json:"object_type,omitempty"`
	Object          json.RawMessage          `json:"object,omitempty"`
	ModifiedColumns []domain.Column          `json:"modified_columns,omitempty"`
	OldValues       map[domain.Column]string `json:"old_values,omitempty"`
	RaisedJobID     string                   `json:"raised_job_id,omitempty"`
}

// JobUpdated returns the notification for a job whose status changed.
func JobUpdated(jobID, twinJobID string) *Message {
	return &Message{Kind: KindJobUpdated, JobID: jobID, TwinJobID: twinJobID}
}

// ObjectEvent returns an entity event of the given kind about obj.
func ObjectEvent(kind Kind, obj domain.Object) (*Message, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encode %s object: %w", obj.ObjectType(), err)
	}
	return &Message{Kind: kind, ObjectType: obj.ObjectType(), Object: raw}, nil
}

// ObjectChanged returns a changed event for obj.
func ObjectChanged(obj domain.Object, columns []domain.Column, oldValues map[domain.Column]string) (*Message, error) {
	msg, err := ObjectEvent(KindObjectChanged, obj)
	if err != nil {
		return nil, err
	}
	msg.ModifiedColumns = columns
	msg.OldValues = oldValues
	return msg, nil
}

// Decode parses and validates an encoded message.
func Decode(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// Encode serializes the message.
func (m *Message) Encode() ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Kind, err)
	}
	return body, nil
}

// Validate checks that the message carries what its kind requires.
func (m *Message) Validate() error {
	switch m.Kind {
	case KindJobUpdated:
		if _, err := uuid.Parse(m.JobID); err != nil {
			return fmt.Errorf("%w: job_id %q is not a UUID", domain.ErrInvalidMessage, m.JobID)
		}
		if m.TwinJobID != "" {
			if _, err := uuid.Parse(m.TwinJobID); err != nil {
				return fmt.Errorf("%w: twin_job_id %q is not a UUID", domain.ErrInvalidMessage, m.TwinJobID)
			}
		}
		return nil

	case KindObjectAdded, KindObjectChanged, KindObjectDeleted, KindReadyForReplacement:
		if len(m.Object) == 0 {
			return fmt.Errorf("%w: %s without object", domain.ErrInvalidMessage, m.Kind)
		}
		if _, ok := objectFactories[m.ObjectType]; !ok {
			return fmt.Errorf("%w: unknown object type %q", domain.ErrInvalidMessage, m.ObjectType)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidMessage, m.Kind)
}

var objectFactories = map[domain.ObjectType]func() domain.Object{
	domain.ObjectTypeEntry:       func() domain.Object { return &domain.Entry{} },
	domain.ObjectTypeAsset:       func() domain.Object { return &domain.Asset{} },
	domain.ObjectTypeUploadToken: func() domain.Object { return &domain.UploadToken{} },
	domain.ObjectTypeUserRole:    func() domain.Object { return &domain.UserRole{} },
	domain.ObjectTypeJob:         func() domain.Object { return &domain.Job{} },
}

// DecodeObject returns the entity an event message carries.
func (m *Message) DecodeObject() (domain.Object, error) {
	factory, ok := objectFactories[m.ObjectType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown object type %q", domain.ErrInvalidMessage, m.ObjectType)
	}

	obj := factory()
	if err := json.Unmarshal(m.Object, obj); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidMessage, m.ObjectType, err)
	}
	return obj, nil
}

// ChangedEvent returns the changed event an object_changed message carries.
func (m *Message) ChangedEvent() (domain.ChangedEvent, error) {
	obj, err := m.DecodeObject()
	if err != nil {
		return domain.ChangedEvent{}, err
	}
	return domain.ChangedEvent{
		Object:          obj,
		ModifiedColumns: m.ModifiedColumns,
		OldValues:       m.OldValues,
	}, nil
}
