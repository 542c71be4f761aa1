package domain

import (
	"fmt"
	"time"
)

// ObjectType names the kind of entity carried by a domain event.
type ObjectType string

const (
	ObjectTypeEntry       ObjectType = "entry"
	ObjectTypeAsset       ObjectType = "asset"
	ObjectTypeUploadToken ObjectType = "upload_token"
	ObjectTypeUserRole    ObjectType = "user_role"
	ObjectTypeJob         ObjectType = "job"
)

// Object is any entity whose lifecycle raises domain events.
type Object interface {
	ObjectType() ObjectType
}

// EntryType is the content kind of an entry.
type EntryType string

const (
	EntryTypeMediaClip  EntryType = "MEDIA_CLIP"
	EntryTypeMix        EntryType = "MIX"
	EntryTypePlaylist   EntryType = "PLAYLIST"
	EntryTypeData       EntryType = "DATA"
	EntryTypeLiveStream EntryType = "LIVE_STREAM"
	EntryTypeDocument   EntryType = "DOCUMENT"
)

// EntryStatus is the readiness of an entry's content.
type EntryStatus string

const (
	EntryStatusErrorImporting  EntryStatus = "ERROR_IMPORTING"
	EntryStatusErrorConverting EntryStatus = "ERROR_CONVERTING"
	EntryStatusImport          EntryStatus = "IMPORT"
	EntryStatusPreconvert      EntryStatus = "PRECONVERT"
	EntryStatusReady           EntryStatus = "READY"
	EntryStatusDeleted         EntryStatus = "DELETED"
	EntryStatusPending         EntryStatus = "PENDING"
	EntryStatusModerate        EntryStatus = "MODERATE"
	EntryStatusBlocked         EntryStatus = "BLOCKED"
	EntryStatusNoContent       EntryStatus = "NO_CONTENT"
)

// Entry is a content item. Jobs and assets reference it by id.
type Entry struct {
	ID                    string      `json:"id" db:"entry_id"`
	PartnerID             int64       `json:"partner_id" db:"partner_id"`
	Name                  string      `json:"name" db:"name"`
	Type                  EntryType   `json:"type" db:"entry_type"`
	Status                EntryStatus `json:"status" db:"status"`
	ReplacedEntryID       string      `json:"replaced_entry_id,omitempty" db:"replaced_entry_id"`
	ReplacingEntryID      string      `json:"replacing_entry_id,omitempty" db:"replacing_entry_id"`
	MarkedForDeletion     bool        `json:"marked_for_deletion" db:"marked_for_deletion"`
	ThumbOffset           int         `json:"thumb_offset" db:"thumb_offset"`
	CreateThumb           bool        `json:"create_thumb" db:"create_thumb"`
	StreamName            string      `json:"stream_name,omitempty" db:"stream_name"`
	PrimaryBroadcastURL   string      `json:"primary_broadcast_url,omitempty" db:"primary_broadcast_url"`
	SecondaryBroadcastURL string      `json:"secondary_broadcast_url,omitempty" db:"secondary_broadcast_url"`
	CreatedAt             time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time   `json:"updated_at" db:"updated_at"`
}

// ObjectType implements Object.
func (e *Entry) ObjectType() ObjectType { return ObjectTypeEntry }

// AssetKind separates flavors (playable renditions) from other assets.
type AssetKind string

const (
	AssetKindFlavor     AssetKind = "flavor"
	AssetKindThumbnail  AssetKind = "thumbnail"
	AssetKindAttachment AssetKind = "attachment"
)

// AssetStatus is the processing state of an asset.
type AssetStatus string

const (
	AssetStatusError          AssetStatus = "ERROR"
	AssetStatusQueued         AssetStatus = "QUEUED"
	AssetStatusConverting     AssetStatus = "CONVERTING"
	AssetStatusReady          AssetStatus = "READY"
	AssetStatusDeleted        AssetStatus = "DELETED"
	AssetStatusNotApplicable  AssetStatus = "NOT_APPLICABLE"
	AssetStatusTemp           AssetStatus = "TEMP"
	AssetStatusWaitForConvert AssetStatus = "WAIT_FOR_CONVERT"
	AssetStatusImporting      AssetStatus = "IMPORTING"
	AssetStatusValidating     AssetStatus = "VALIDATING"
	AssetStatusExporting      AssetStatus = "EXPORTING"
)

// Asset is a flavor, thumbnail or attachment of an entry.
type Asset struct {
	ID             string      `json:"id" db:"asset_id"`
	EntryID        string      `json:"entry_id" db:"entry_id"`
	PartnerID      int64       `json:"partner_id" db:"partner_id"`
	Kind           AssetKind   `json:"kind" db:"kind"`
	Status         AssetStatus `json:"status" db:"status"`
	IsOriginal     bool        `json:"is_original" db:"is_original"`
	FlavorParamsID int         `json:"flavor_params_id" db:"flavor_params_id"`
	Version        int         `json:"version" db:"version"`
	FileExt        string      `json:"file_ext,omitempty" db:"file_ext"`
	Size           int64       `json:"size" db:"size"`
	Description    string      `json:"description,omitempty" db:"description"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}

// ObjectType implements Object.
func (a *Asset) ObjectType() ObjectType { return ObjectTypeAsset }

// IsFlavor reports whether the asset is a playable flavor.
func (a *Asset) IsFlavor() bool { return a.Kind == AssetKindFlavor }

// IsThumbnail reports whether the asset is a thumbnail image.
func (a *Asset) IsThumbnail() bool { return a.Kind == AssetKindThumbnail }

// SyncKey returns the file sync key locating the asset's payload of the given sub type.
func (a *Asset) SyncKey(subType FileSyncSubType) SyncKey {
	return SyncKey{
		ObjectType: ObjectTypeAsset,
		ObjectID:   a.ID,
		SubType:    subType,
		Version:    a.Version,
	}
}

// FileSyncSubType distinguishes the files stored for one object.
type FileSyncSubType int

const (
	FileSyncSubTypeAsset FileSyncSubType = 1
	FileSyncSubTypeLog   FileSyncSubType = 3
)

// SyncKey is the logical address of a stored file.
type SyncKey struct {
	ObjectType ObjectType      `json:"object_type"`
	ObjectID   string          `json:"object_id"`
	SubType    FileSyncSubType `json:"sub_type"`
	Version    int             `json:"version"`
}

func (k SyncKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%d", k.ObjectType, k.ObjectID, k.SubType, k.Version)
}

// FileSyncType tells how a file sync's path should be read.
type FileSyncType string

const (
	FileSyncTypeFile FileSyncType = "FILE"
	FileSyncTypeLink FileSyncType = "LINK"
	FileSyncTypeURL  FileSyncType = "URL"
)

// FileSyncStatus is the availability of a stored file.
type FileSyncStatus string

const (
	FileSyncStatusPending FileSyncStatus = "PENDING"
	FileSyncStatusReady   FileSyncStatus = "READY"
	FileSyncStatusError   FileSyncStatus = "ERROR"
	FileSyncStatusDeleted FileSyncStatus = "DELETED"
	FileSyncStatusPurged  FileSyncStatus = "PURGED"
)

// FileSync is one physical copy of the file behind a sync key. Local copies
// have a path; remote copies carry a remote asset id or a stored URL.
type FileSync struct {
	ID               string         `json:"id"`
	Key              SyncKey        `json:"key"`
	FileType         FileSyncType   `json:"file_type"`
	Status           FileSyncStatus `json:"status"`
	FilePath         string         `json:"file_path,omitempty"`
	RemoteAssetID    string         `json:"remote_asset_id,omitempty"`
	External         bool           `json:"external"`
	StorageProfileID int            `json:"storage_profile_id,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Partner is the account owning jobs and entries.
type Partner struct {
	ID                      int64  `json:"id" db:"partner_id"`
	Name                    string `json:"name" db:"name"`
	AdminName               string `json:"admin_name" db:"admin_name"`
	AdminEmail              string `json:"admin_email" db:"admin_email"`
	NotifyBulkUpload        bool   `json:"notify_bulk_upload" db:"notify_bulk_upload"`
	NotifyConversionFailure bool   `json:"notify_conversion_failure" db:"notify_conversion_failure"`
}

// UploadTokenStatus tracks a chunked upload.
type UploadTokenStatus string

const (
	UploadTokenStatusPending       UploadTokenStatus = "PENDING"
	UploadTokenStatusPartialUpload UploadTokenStatus = "PARTIAL_UPLOAD"
	UploadTokenStatusFullUpload    UploadTokenStatus = "FULL_UPLOAD"
	UploadTokenStatusClosed        UploadTokenStatus = "CLOSED"
	UploadTokenStatusTimedOut      UploadTokenStatus = "TIMED_OUT"
	UploadTokenStatusDeleted       UploadTokenStatus = "DELETED"
)

// UploadToken is a client upload session, optionally bound to an entry.
type UploadToken struct {
	ID             string            `json:"id"`
	PartnerID      int64             `json:"partner_id"`
	Status         UploadTokenStatus `json:"status"`
	FileName       string            `json:"file_name"`
	UploadTempPath string            `json:"upload_temp_path"`
	FileSize       int64             `json:"file_size"`
	EntryID        string            `json:"entry_id,omitempty"`
}

// ObjectType implements Object.
func (t *UploadToken) ObjectType() ObjectType { return ObjectTypeUploadToken }

// UserRole groups permissions assigned to users.
type UserRole struct {
	ID              string `json:"id"`
	PartnerID       int64  `json:"partner_id"`
	Name            string `json:"name"`
	PermissionNames string `json:"permission_names"`
}

// ObjectType implements Object.
func (r *UserRole) ObjectType() ObjectType { return ObjectTypeUserRole }
