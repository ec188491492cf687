package types

// Kind is the media kind of an export.
type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// OutcomeState is the terminal state of an upload session.
type OutcomeState string

const (
	StateSucceeded OutcomeState = "succeeded"
	StateFailed    OutcomeState = "failed"
)

// ErrorCategory tells callers why a session failed, so they can explain it differently.
type ErrorCategory string

const (
	ErrorCategoryNetwork        ErrorCategory = "network"         // could not reach the endpoint (network / CORS)
	ErrorCategoryHTTPStatus     ErrorCategory = "http_status"     // non-2xx response
	ErrorCategoryProtocol       ErrorCategory = "protocol"        // bad request or unusable response
	ErrorCategoryServerReported ErrorCategory = "server_reported" // status:error line
	ErrorCategoryCancelled      ErrorCategory = "cancelled"
)

// UploadRequest holds the inputs of a single export sent to the processing backend.
type UploadRequest struct {
	SourceBlob      []byte
	SourceName      string
	Kind            Kind
	DesqueezeFactor float64
	FPSOverride     *float64 // nil keeps the source frame rate
	BitrateOverride *int64   // bits per second
	PhotoFormat     string   // MIME type, image exports only
	TargetEndpoint  string
	SessionID       string // generated when empty
}

// UploadOutcome is the terminal result of one upload session.
type UploadOutcome struct {
	SessionID           string        `json:"sessionId"`
	State               OutcomeState  `json:"state"`
	ResolvedDownloadURL string        `json:"resolvedDownloadUrl,omitempty"`
	LastProgressPercent float64       `json:"lastProgressPercent"`
	ErrorCategory       ErrorCategory `json:"errorCategory,omitempty"`
	ErrorDetail         string        `json:"errorDetail,omitempty"`
	StatusCode          int           `json:"statusCode,omitempty"`
	InvalidDownload     bool          `json:"invalidDownload,omitempty"`
	Err                 error         `json:"-"`
}

// Succeeded reports whether the session ended in the succeeded state.
func (o *UploadOutcome) Succeeded() bool {
	return o != nil && o.State == StateSucceeded
}
