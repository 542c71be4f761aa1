package domain

import "slices"

// Column names a persisted field whose change raises an object-changed event.
type Column string

const (
	ColumnEntryStatus             Column = "entry.status"
	ColumnAssetStatus             Column = "asset.status"
	ColumnUploadTokenStatus       Column = "upload_token.status"
	ColumnJobStatus               Column = "job.status"
	ColumnUserRolePermissionNames Column = "user_role.permission_names"
)

// ChangedEvent carries an updated object, the columns that changed and the
// previous values of those columns where known.
type ChangedEvent struct {
	Object          Object
	ModifiedColumns []Column
	OldValues       map[Column]string
}

// Modified reports whether c is among the changed columns.
func (e ChangedEvent) Modified(c Column) bool {
	return slices.Contains(e.ModifiedColumns, c)
}

// OldValue returns the previous value of c, or "" when unknown.
func (e ChangedEvent) OldValue(c Column) string {
	return e.OldValues[c]
}
