package domain

import (
	"encoding/json"
	"fmt"
)

// Payload is the typed data carried by a job. Each job type has exactly one
// payload struct; DecodePayload resolves it from the job type.
type Payload interface {
	isPayload()
}

// ImportData describes a remote file fetched into local staging for an asset.
type ImportData struct {
	SrcFileURL        string `json:"src_file_url"`
	DestFileLocalPath string `json:"dest_file_local_path"`
	FlavorAssetID     string `json:"flavor_asset_id"`
	FileSize          int64  `json:"file_size"`
}

// ExtractMediaData describes media-info extraction for a flavor asset.
type ExtractMediaData struct {
	FlavorAssetID        string `json:"flavor_asset_id"`
	SrcFileSyncLocalPath string `json:"src_file_sync_local_path"`
	SrcFileSyncRemoteID  string `json:"src_file_sync_remote_id,omitempty"`
	MediaInfoID          string `json:"media_info_id,omitempty"`
}

// ConvertData describes the transcoding of a single flavor.
type ConvertData struct {
	FlavorAssetID         string `json:"flavor_asset_id"`
	FlavorParamsOutputID  int    `json:"flavor_params_output_id"`
	EngineType            string `json:"engine_type,omitempty"`
	SrcFileSyncLocalPath  string `json:"src_file_sync_local_path"`
	SrcFileSyncRemoteID   string `json:"src_file_sync_remote_id,omitempty"`
	DestFileSyncLocalPath string `json:"dest_file_sync_local_path,omitempty"`
	DestFileSyncRemoteID  string `json:"dest_file_sync_remote_id,omitempty"`
	LogFileSyncLocalPath  string `json:"log_file_sync_local_path,omitempty"`
	CreateThumb           bool   `json:"create_thumb"`
	ThumbOffset           int    `json:"thumb_offset"`
}

// PostConvertAssetType tells post-convert whether it validates a flavor or the source.
type PostConvertAssetType int

const (
	PostConvertAssetTypeFlavor PostConvertAssetType = 0
	PostConvertAssetTypeSource PostConvertAssetType = 1
)

// PostConvertData describes validation and thumbnail extraction after conversion.
type PostConvertData struct {
	FlavorAssetID        string               `json:"flavor_asset_id"`
	AssetType            PostConvertAssetType `json:"asset_type"`
	SrcFileSyncLocalPath string               `json:"src_file_sync_local_path,omitempty"`
	SrcFileSyncRemoteID  string               `json:"src_file_sync_remote_id,omitempty"`
	FlavorParamsOutputID int                  `json:"flavor_params_output_id,omitempty"`
	CreateThumb          bool                 `json:"create_thumb"`
	ThumbOffset          int                  `json:"thumb_offset"`
	ThumbPath            string               `json:"thumb_path,omitempty"`
}

// BulkUploadData describes a CSV/XML bulk upload batch.
type BulkUploadData struct {
	FileName        string `json:"file_name"`
	FilePath        string `json:"file_path"`
	UploadedBy      string `json:"uploaded_by,omitempty"`
	NumOfObjects    int    `json:"num_of_objects"`
	NumOfErrors     int    `json:"num_of_errors"`
	ResultsFilePath string `json:"results_file_path,omitempty"`
}

// ConvertProfileData describes the decision step that spawns per-flavor conversions.
type ConvertProfileData struct {
	FlavorAssetID          string `json:"flavor_asset_id"`
	InputFileSyncLocalPath string `json:"input_file_sync_local_path"`
	InputFileSyncRemoteID  string `json:"input_file_sync_remote_id,omitempty"`
	ThumbOffset            int    `json:"thumb_offset"`
}

// BulkDownloadData describes a packaged download of several entries.
type BulkDownloadData struct {
	EntryIDs       []string `json:"entry_ids"`
	FlavorParamsID int      `json:"flavor_params_id"`
	PuserID        string   `json:"puser_id,omitempty"`
	RecipientEmail string   `json:"recipient_email,omitempty"`
	DownloadURL    string   `json:"download_url,omitempty"`
}

// ProvisionData describes a live stream provisioned on an external CDN.
// Provide and delete jobs share it.
type ProvisionData struct {
	StreamID              string `json:"stream_id"`
	BackupStreamID        string `json:"backup_stream_id,omitempty"`
	StreamName            string `json:"stream_name,omitempty"`
	EncoderIP             string `json:"encoder_ip,omitempty"`
	BackupEncoderIP       string `json:"backup_encoder_ip,omitempty"`
	PrimaryBroadcastURL   string `json:"primary_broadcast_url,omitempty"`
	SecondaryBroadcastURL string `json:"secondary_broadcast_url,omitempty"`
	RTMPURL               string `json:"rtmp_url,omitempty"`
}

// ConvertCollectionData describes a multi-bitrate conversion of several flavors at once.
type ConvertCollectionData struct {
	FlavorAssetIDs    []string `json:"flavor_asset_ids"`
	DestDirLocalPath  string   `json:"dest_dir_local_path,omitempty"`
	DestFileName      string   `json:"dest_file_name,omitempty"`
	InputXMLLocalPath string   `json:"input_xml_local_path,omitempty"`
}

// StorageExportData describes copying a file sync to remote storage.
type StorageExportData struct {
	SrcFileSyncID          string `json:"src_file_sync_id"`
	SrcFileSyncLocalPath   string `json:"src_file_sync_local_path,omitempty"`
	DestFileSyncStoredPath string `json:"dest_file_sync_stored_path"`
	StorageProfileID       int    `json:"storage_profile_id"`
	ServerURL              string `json:"server_url,omitempty"`
	Force                  bool   `json:"force"`
}

// StorageDeleteData describes removing a file sync from remote storage.
type StorageDeleteData struct {
	SrcFileSyncID          string `json:"src_file_sync_id"`
	DestFileSyncStoredPath string `json:"dest_file_sync_stored_path"`
	StorageProfileID       int    `json:"storage_profile_id"`
}

// CaptureThumbData describes grabbing a thumbnail image from a flavor.
type CaptureThumbData struct {
	ThumbAssetID         string `json:"thumb_asset_id"`
	ThumbParamsOutputID  int    `json:"thumb_params_output_id,omitempty"`
	SrcFileSyncLocalPath string `json:"src_file_sync_local_path,omitempty"`
	SrcFileSyncRemoteID  string `json:"src_file_sync_remote_id,omitempty"`
	ThumbPath            string `json:"thumb_path,omitempty"`
}

// DeleteFileData describes removal of a local file backing a file sync.
type DeleteFileData struct {
	FileSyncID        string `json:"file_sync_id"`
	LocalFileSyncPath string `json:"local_file_sync_path"`
}

// IndexObjectType names the object family an index job re-indexes.
type IndexObjectType string

const (
	IndexObjectEntry    IndexObjectType = "entry"
	IndexObjectCategory IndexObjectType = "category"
	IndexObjectUser     IndexObjectType = "user"
)

// ObjectFilter selects the objects a bulk job operates on.
type ObjectFilter struct {
	IDIn        []string `json:"id_in,omitempty"`
	RoleIDEqual string   `json:"role_id_equal,omitempty"`
	CategoryID  string   `json:"category_id,omitempty"`
}

// IndexData describes a re-index of objects matching a filter.
type IndexData struct {
	ObjectType   IndexObjectType `json:"object_type"`
	Filter       ObjectFilter    `json:"filter"`
	LastIndexID  string          `json:"last_index_id,omitempty"`
	ShouldUpdate bool            `json:"should_update"`
}

// CopyData describes copying objects matching a filter.
type CopyData struct {
	ObjectType       IndexObjectType `json:"object_type"`
	Filter           ObjectFilter    `json:"filter"`
	TemplateObjectID string          `json:"template_object_id,omitempty"`
	LastCopyID       string          `json:"last_copy_id,omitempty"`
}

// DeleteData describes deleting objects matching a filter.
type DeleteData struct {
	ObjectType IndexObjectType `json:"object_type"`
	Filter     ObjectFilter    `json:"filter"`
}

// MoveCategoryEntriesData describes moving entries between categories.
type MoveCategoryEntriesData struct {
	SrcCategoryID    string `json:"src_category_id"`
	DestCategoryID   string `json:"dest_category_id"`
	MoveFromChildren bool   `json:"move_from_children"`
}

func (*ImportData) isPayload()              {}
func (*ExtractMediaData) isPayload()        {}
func (*ConvertData) isPayload()             {}
func (*PostConvertData) isPayload()         {}
func (*BulkUploadData) isPayload()          {}
func (*ConvertProfileData) isPayload()      {}
func (*BulkDownloadData) isPayload()        {}
func (*ProvisionData) isPayload()           {}
func (*ConvertCollectionData) isPayload()   {}
func (*StorageExportData) isPayload()       {}
func (*StorageDeleteData) isPayload()       {}
func (*CaptureThumbData) isPayload()        {}
func (*DeleteFileData) isPayload()          {}
func (*IndexData) isPayload()               {}
func (*CopyData) isPayload()                {}
func (*DeleteData) isPayload()              {}
func (*MoveCategoryEntriesData) isPayload() {}
func (*MailData) isPayload()                {}

var payloadFactories = map[JobType]func() Payload{
	JobTypeImport:              func() Payload { return &ImportData{} },
	JobTypeExtractMedia:        func() Payload { return &ExtractMediaData{} },
	JobTypeConvert:             func() Payload { return &ConvertData{} },
	JobTypePostConvert:         func() Payload { return &PostConvertData{} },
	JobTypeBulkUpload:          func() Payload { return &BulkUploadData{} },
	JobTypeConvertProfile:      func() Payload { return &ConvertProfileData{} },
	JobTypeBulkDownload:        func() Payload { return &BulkDownloadData{} },
	JobTypeProvisionProvide:    func() Payload { return &ProvisionData{} },
	JobTypeProvisionDelete:     func() Payload { return &ProvisionData{} },
	JobTypeConvertCollection:   func() Payload { return &ConvertCollectionData{} },
	JobTypeStorageExport:       func() Payload { return &StorageExportData{} },
	JobTypeStorageDelete:       func() Payload { return &StorageDeleteData{} },
	JobTypeCaptureThumb:        func() Payload { return &CaptureThumbData{} },
	JobTypeDeleteFile:          func() Payload { return &DeleteFileData{} },
	JobTypeIndex:               func() Payload { return &IndexData{} },
	JobTypeCopy:                func() Payload { return &CopyData{} },
	JobTypeDelete:              func() Payload { return &DeleteData{} },
	JobTypeMoveCategoryEntries: func() Payload { return &MoveCategoryEntriesData{} },
	JobTypeMail:                func() Payload { return &MailData{} },
}

// KnownJobType reports whether t has a registered payload.
func KnownJobType(t JobType) bool {
	_, ok := payloadFactories[t]
	return ok
}

// DecodePayload unmarshals raw into the payload struct registered for t.
// An empty raw value yields a zero payload.
func DecodePayload(t JobType, raw []byte) (Payload, error) {
	factory, ok := payloadFactories[t]
	if !ok {
		return nil, fmt.Errorf("%w: unknown job type %q", ErrInvalidPayload, t)
	}

	p := factory()
	if len(raw) == 0 || string(raw) == "null" {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("%w: decode %s payload: %v", ErrInvalidPayload, t, err)
	}
	return p, nil
}

// EncodePayload marshals p for persistence. A nil payload encodes as JSON null.
func EncodePayload(p Payload) ([]byte, error) {
	if p == nil {
		return []byte("null"), nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}
