package types

// Notification represents a notification message structure
type Notification struct {
	Type    string         `json:"type,omitempty"`    // Notification type, e.g. "export_start", "export_progress"
	Title   string         `json:"title,omitempty"`   // Notification title
	Message string         `json:"message,omitempty"` // Notification message/content
	Data    map[string]any `json:"data,omitempty"`    // Additional data fields
}

const (
	NotifyTypeExportStart     = "export_start"
	NotifyTypeExportProgress  = "export_progress"
	NotifyTypeExportDone      = "export_done"
	NotifyTypeExportError     = "export_error"
	NotifyTypeInvalidDownload = "invalid_download"
	NotifyTypeBatchDone       = "batch_done"
	NotifyTypeZipReady        = "zip_ready"
	NotifyTypeInfo            = "info"
)

// NotifyHub receives every notification for live clients (WebSocket hub).
type NotifyHub interface {
	Broadcast(notification *Notification)
}
