package types

// FeedEvent is one decoded line of the backend progress feed.
// Concrete values are ProgressEvent, DownloadEvent, DoneEvent, ErrorEvent and UnrecognizedEvent.
type FeedEvent interface {
	feedEvent()
}

// ProgressEvent carries a progress value already clamped to [0,100].
type ProgressEvent struct {
	Percent float64
}

// DownloadEvent carries the raw download locator as sent by the server.
type DownloadEvent struct {
	Locator string
}

// DoneEvent marks successful completion (status:done).
type DoneEvent struct{}

// ErrorEvent marks a processing failure reported by the server (status:error).
type ErrorEvent struct {
	Detail string
}

// UnrecognizedEvent is any line outside the known vocabulary.
type UnrecognizedEvent struct {
	Line string
}

func (ProgressEvent) feedEvent()     {}
func (DownloadEvent) feedEvent()     {}
func (DoneEvent) feedEvent()         {}
func (ErrorEvent) feedEvent()        {}
func (UnrecognizedEvent) feedEvent() {}
