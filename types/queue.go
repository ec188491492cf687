package types

// ItemStatus is the per-file status shown in the queue.
type ItemStatus string

const (
	ItemQueued    ItemStatus = "queued"
	ItemExporting ItemStatus = "exporting"
	ItemDone      ItemStatus = "done"
	ItemError     ItemStatus = "error"
)

// QueueItem is one selected file and its export state.
type QueueItem struct {
	Path       string         `json:"path"`
	Name       string         `json:"name"`
	MimeType   string         `json:"mimeType"`
	Kind       Kind           `json:"kind"`
	Size       int64          `json:"size"`
	Status     ItemStatus     `json:"status"`
	Progress   float64        `json:"progress"`
	OutputName string         `json:"outputName,omitempty"`
	OutputHref string         `json:"outputHref,omitempty"` // remote artifact URL (videos)
	OutputPath string         `json:"outputPath,omitempty"` // local file (photos, fetched artifacts)
	Outcome    *UploadOutcome `json:"outcome,omitempty"`
}

// BatchOutput is one finished export collected for ZIP packaging.
type BatchOutput struct {
	Name      string `json:"name"`
	Href      string `json:"href,omitempty"`
	LocalPath string `json:"localPath,omitempty"`
}

// ExportSettings are the transform and backend parameters applied to every export.
type ExportSettings struct {
	UploadURL    string   `json:"upload_url"`
	Factor       float64  `json:"factor"`
	FPS          *float64 `json:"fps,omitempty"` // nil keeps the source frame rate
	Bitrate      int64    `json:"bitrate,omitempty"`
	PhotoFormat  string   `json:"photo_format"`
	OutputDir    string   `json:"output_dir"`
	AutoDownload bool     `json:"auto_download"`
}

// ExportSettingsPatch is the body of PATCH /api/self/v1/config, all fields optional.
type ExportSettingsPatch struct {
	UploadURL    *string  `json:"upload_url"`
	Factor       *float64 `json:"factor"`
	FPS          *float64 `json:"fps"` // <= 0 resets to "copy original"
	Bitrate      *int64   `json:"bitrate"`
	PhotoFormat  *string  `json:"photo_format"`
	OutputDir    *string  `json:"output_dir"`
	AutoDownload *bool    `json:"auto_download"`
}

// QueueSnapshot is a copy of the controller state for the API.
type QueueSnapshot struct {
	Files        []QueueItem   `json:"files"`
	CurrentIndex int           `json:"currentIndex"`
	Busy         bool          `json:"busy"`
	RunID        string        `json:"runId,omitempty"` // current or last export run
	BatchOutputs []BatchOutput `json:"batchOutputs"`
	ArchivePath  string        `json:"archivePath,omitempty"`
}

// SelectFilesRequest is the body of POST /api/self/v1/select-files.
type SelectFilesRequest struct {
	Paths []string `json:"paths"`
}

// SelectRequest is the body of POST /api/self/v1/select.
type SelectRequest struct {
	Index int `json:"index"`
}
