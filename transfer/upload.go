package transfer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/moyoez/desqueeze-go/tool"
	"github.com/moyoez/desqueeze-go/types"
)

// FileFieldName is the multipart field carrying the source bytes.
const FileFieldName = "file"

const readChunkSize = 32 * 1024

// Session uploads one file to the processing backend and follows its progress feed.
// Callbacks run synchronously on the goroutine calling Submit, in feed order.
type Session struct {
	client            *http.Client
	onProgress        func(percent float64)
	onDownload        func(url string)
	onInvalidDownload func(raw string)
}

// NewSession creates a session using client, or the shared upload client when nil.
func NewSession(client *http.Client) *Session {
	if client == nil {
		client = tool.GetHttpClient()
	}
	return &Session{client: client}
}

// OnProgress registers a callback for every progress line.
func (s *Session) OnProgress(fn func(percent float64)) *Session {
	s.onProgress = fn
	return s
}

// OnDownload registers a callback for every resolved download URL.
func (s *Session) OnDownload(fn func(url string)) *Session {
	s.onDownload = fn
	return s
}

// OnInvalidDownload registers a callback for download locators that could not be resolved.
func (s *Session) OnInvalidDownload(fn func(raw string)) *Session {
	s.onInvalidDownload = fn
	return s
}

// Submit performs one upload and always returns a terminal outcome; failures are reported in it.
func (s *Session) Submit(ctx context.Context, request *types.UploadRequest) *types.UploadOutcome {
	outcome := &types.UploadOutcome{}
	if request == nil {
		return fail(outcome, &ProtocolError{Reason: "invalid request: request must not be nil"})
	}
	outcome.SessionID = request.SessionID
	if outcome.SessionID == "" {
		outcome.SessionID = tool.NewUploadSessionID()
	}
	if err := validateRequest(request); err != nil {
		return fail(outcome, err)
	}

	select {
	case <-ctx.Done():
		return fail(outcome, &CancelledError{Err: ctx.Err()})
	default:
	}

	body, contentType, err := buildMultipartBody(request, outcome.SessionID)
	if err != nil {
		return fail(outcome, &ProtocolError{Reason: fmt.Sprintf("failed to build multipart body: %v", err)})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, request.TargetEndpoint, body)
	if err != nil {
		return fail(outcome, &ProtocolError{Reason: fmt.Sprintf("invalid request: %v", err)})
	}
	req.Header.Set("Content-Type", contentType)

	tool.DefaultLogger.Infof("[Upload] %s: sending %s (%d bytes, kind=%s) to %s",
		outcome.SessionID, request.SourceName, len(request.SourceBlob), request.Kind, request.TargetEndpoint)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fail(outcome, &CancelledError{Err: ctx.Err()})
		}
		return fail(outcome, &TransportError{Endpoint: request.TargetEndpoint, Err: err})
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		outcome.StatusCode = resp.StatusCode
		return fail(outcome, &ServerStatusError{StatusCode: resp.StatusCode, Status: resp.Status})
	}

	if isJSONResponse(resp) {
		return s.consumeJSON(ctx, resp.Body, request.TargetEndpoint, outcome)
	}
	return s.consumeFeed(ctx, resp.Body, request.TargetEndpoint, outcome)
}

// consumeJSON handles a backend that answers once with {"download": "..."}.
func (s *Session) consumeJSON(ctx context.Context, body io.Reader, endpoint string, outcome *types.UploadOutcome) *types.UploadOutcome {
	data, err := io.ReadAll(body)
	if err != nil {
		return fail(outcome, readError(ctx, endpoint, err))
	}
	return s.applyJSON(data, endpoint, outcome)
}

// applyJSON finishes the session from a single JSON object reply.
func (s *Session) applyJSON(data []byte, endpoint string, outcome *types.UploadOutcome) *types.UploadOutcome {
	var payload struct {
		Download *string `json:"download"`
	}
	if err := sonic.Unmarshal(data, &payload); err != nil || payload.Download == nil {
		tool.DefaultLogger.Infof("[Upload] %s: backend finished without a download locator", outcome.SessionID)
		return succeed(outcome)
	}
	resolved, ok := tool.ResolveDownloadURL(*payload.Download, endpoint)
	if !ok {
		outcome.InvalidDownload = true
		if s.onInvalidDownload != nil {
			s.onInvalidDownload(*payload.Download)
		}
		return fail(outcome, &ProtocolError{Reason: fmt.Sprintf("invalid download link %q", *payload.Download)})
	}
	s.recordDownload(outcome, resolved)
	return succeed(outcome)
}

// consumeFeed reads the line-oriented progress feed until a terminal status line or EOF.
func (s *Session) consumeFeed(ctx context.Context, body io.Reader, endpoint string, outcome *types.UploadOutcome) *types.UploadOutcome {
	var splitter LineSplitter
	buf := make([]byte, readChunkSize)
	lines := 0
	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			for _, line := range splitter.Write(buf[:n]) {
				lines++
				if done := s.handleEvent(ParseFeedLine(line), endpoint, outcome); done {
					return outcome
				}
			}
		}
		if readErr == nil {
			continue
		}
		if !errors.Is(readErr, io.EOF) {
			return fail(outcome, readError(ctx, endpoint, readErr))
		}
		pending := strings.TrimSpace(splitter.Pending())
		if lines == 0 && strings.HasPrefix(pending, "{") {
			// a single JSON object sent without a JSON content type
			return s.applyJSON([]byte(pending), endpoint, outcome)
		}
		if pending != "" {
			tool.DefaultLogger.Debugf("[Upload] %s: dropping unterminated trailing fragment %q", outcome.SessionID, pending)
		}
		splitter.Reset()
		if outcome.ResolvedDownloadURL != "" {
			return succeed(outcome)
		}
		return fail(outcome, &ProtocolError{Reason: "stream ended without status"})
	}
}

// handleEvent applies one feed event to the outcome and reports whether the feed is finished.
func (s *Session) handleEvent(event types.FeedEvent, endpoint string, outcome *types.UploadOutcome) bool {
	switch ev := event.(type) {
	case types.ProgressEvent:
		outcome.LastProgressPercent = ev.Percent
		if s.onProgress != nil {
			s.onProgress(ev.Percent)
		}
	case types.DownloadEvent:
		resolved, ok := tool.ResolveDownloadURL(ev.Locator, endpoint)
		if !ok {
			tool.DefaultLogger.Warnf("[Upload] %s: invalid download link %q", outcome.SessionID, ev.Locator)
			outcome.InvalidDownload = true
			if s.onInvalidDownload != nil {
				s.onInvalidDownload(ev.Locator)
			}
			return false
		}
		s.recordDownload(outcome, resolved)
	case types.DoneEvent:
		succeed(outcome)
		return true
	case types.ErrorEvent:
		fail(outcome, &ServerReportedError{Detail: ev.Detail})
		return true
	case types.UnrecognizedEvent:
		tool.DefaultLogger.Debugf("[Upload] %s: ignoring feed line %q", outcome.SessionID, ev.Line)
	}
	return false
}

func (s *Session) recordDownload(outcome *types.UploadOutcome, resolved string) {
	outcome.ResolvedDownloadURL = resolved
	tool.DefaultLogger.Infof("[Upload] %s: artifact ready at %s", outcome.SessionID, resolved)
	if s.onDownload != nil {
		s.onDownload(resolved)
	}
}

func validateRequest(request *types.UploadRequest) error {
	if strings.TrimSpace(request.TargetEndpoint) == "" {
		return &ProtocolError{Reason: "invalid request: target endpoint must not be empty"}
	}
	if _, ok := tool.Origin(request.TargetEndpoint); !ok {
		return &ProtocolError{Reason: fmt.Sprintf("invalid request: target endpoint %q is not an absolute URL", request.TargetEndpoint)}
	}
	if len(request.SourceBlob) == 0 {
		return &ProtocolError{Reason: "invalid request: source must not be empty"}
	}
	if request.FPSOverride != nil && !(*request.FPSOverride > 0) {
		return &ProtocolError{Reason: "invalid request: fps override must be positive"}
	}
	if request.BitrateOverride != nil && *request.BitrateOverride <= 0 {
		return &ProtocolError{Reason: "invalid request: bitrate override must be positive"}
	}
	return nil
}

func buildMultipartBody(request *types.UploadRequest, sessionID string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	name := request.SourceName
	if name == "" {
		name = "upload.bin"
	}
	part, err := writer.CreateFormFile(FileFieldName, name)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(request.SourceBlob); err != nil {
		return nil, "", err
	}

	factor := FormatFactor(request.DesqueezeFactor)
	fields := [][2]string{
		{"kind", string(request.Kind)},
		{"desqFactor", factor},
		{"factor", factor},
		{"sessionId", sessionID},
	}
	// fps is left out entirely so the backend keeps the source frame rate
	if request.FPSOverride != nil {
		fields = append(fields, [2]string{"fps", strconv.FormatFloat(*request.FPSOverride, 'f', -1, 64)})
	}
	if request.BitrateOverride != nil {
		fields = append(fields, [2]string{"bitrate", strconv.FormatInt(*request.BitrateOverride, 10)})
	}
	if request.Kind == types.KindImage && request.PhotoFormat != "" {
		fields = append(fields, [2]string{"photoFormat", request.PhotoFormat})
	}
	for _, field := range fields {
		if err := writer.WriteField(field[0], field[1]); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

// FormatFactor renders a desqueeze factor as a decimal string >= 1 with at most two decimals.
func FormatFactor(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		f = 1
	}
	f = math.Round(f*100) / 100
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func isJSONResponse(resp *http.Response) bool {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func readError(ctx context.Context, endpoint string, err error) error {
	if ctx.Err() != nil {
		return &CancelledError{Err: ctx.Err()}
	}
	return &TransportError{Endpoint: endpoint, Err: err}
}

func succeed(outcome *types.UploadOutcome) *types.UploadOutcome {
	outcome.State = types.StateSucceeded
	outcome.ErrorCategory = ""
	outcome.ErrorDetail = ""
	outcome.Err = nil
	return outcome
}

func fail(outcome *types.UploadOutcome, err error) *types.UploadOutcome {
	outcome.State = types.StateFailed
	outcome.Err = err
	outcome.ErrorCategory = CategoryOf(err)
	outcome.ErrorDetail = err.Error()
	tool.DefaultLogger.Warnf("[Upload] %s: failed (%s): %v", outcome.SessionID, outcome.ErrorCategory, err)
	return outcome
}
