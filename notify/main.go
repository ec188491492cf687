package notify

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"golang.org/x/time/rate"

	"github.com/moyoez/desqueeze-go/tool"
	"github.com/moyoez/desqueeze-go/types"
)

// NotifyWriteChunkSize caps one Unix socket payload.
const NotifyWriteChunkSize = 32 * 1024

// ProgressPerSecond caps export_progress notifications; terminal events are never dropped.
const ProgressPerSecond = 10

var (
	DefaultUnixSocketPath = "/tmp/desqueeze-notify.sock"
	UnixSocketTimeout     = 3 * time.Second
	// UseNotify enables delivery to the Unix socket listener; the hub always receives.
	UseNotify = true

	hubMu           sync.RWMutex
	hub             types.NotifyHub
	progressLimiter = rate.NewLimiter(rate.Limit(ProgressPerSecond), ProgressPerSecond)
)

// SetUseNotify toggles Unix socket delivery.
func SetUseNotify(use bool) {
	UseNotify = use
}

// SetHub installs the WebSocket hub that receives every notification.
func SetHub(h types.NotifyHub) {
	hubMu.Lock()
	defer hubMu.Unlock()
	hub = h
}

// HubEnabled reports whether a WebSocket hub is installed.
func HubEnabled() bool {
	return currentHub() != nil
}

func currentHub() types.NotifyHub {
	hubMu.RLock()
	defer hubMu.RUnlock()
	return hub
}

// Dispatch delivers a notification to the hub and, when enabled, the Unix socket.
// Progress notifications beyond ProgressPerSecond are dropped.
func Dispatch(notification *types.Notification) {
	if notification == nil {
		return
	}
	if notification.Type == types.NotifyTypeExportProgress && !progressLimiter.Allow() {
		return
	}
	if h := currentHub(); h != nil {
		h.Broadcast(notification)
	}
	if !UseNotify {
		return
	}
	if err := SendNotification(notification, ""); err != nil {
		tool.DefaultLogger.Debugf("[Notify] Unix socket delivery skipped: %v", err)
	}
}

// SendNotification writes one notification to the Unix socket listener at socketPath
// (DefaultUnixSocketPath when empty) as a 4-byte little-endian length followed by JSON,
// then reads an optional {"error": "..."} reply.
func SendNotification(notification *types.Notification, socketPath string) error {
	if socketPath == "" {
		socketPath = DefaultUnixSocketPath
	}
	if _, err := os.Stat(socketPath); err != nil {
		return fmt.Errorf("unix socket unavailable: %v", err)
	}
	if notification == nil {
		notification = &types.Notification{}
	}
	payload, err := sonic.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to encode notification: %v", err)
	}
	if len(payload) > NotifyWriteChunkSize {
		return fmt.Errorf("notification payload too large: %d bytes (max %d)", len(payload), NotifyWriteChunkSize)
	}

	conn, err := net.DialTimeout("unix", socketPath, UnixSocketTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %v", socketPath, err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			tool.DefaultLogger.Debugf("[Notify] close socket: %v", err)
		}
	}()
	_ = conn.SetDeadline(time.Now().Add(UnixSocketTimeout))

	frame := binary.LittleEndian.AppendUint32(make([]byte, 0, 4+len(payload)), uint32(len(payload)))
	frame = append(frame, payload...)
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("failed to write notification: %v", err)
	}

	reply := make([]byte, 4096)
	n, err := conn.Read(reply)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read listener reply: %v", err)
	}
	if n == 0 {
		return nil
	}
	var ack struct {
		Error string `json:"error"`
	}
	if err := sonic.Unmarshal(reply[:n], &ack); err != nil {
		tool.DefaultLogger.Debugf("[Notify] non-JSON reply: %s", reply[:n])
		return nil
	}
	if ack.Error != "" {
		return fmt.Errorf("listener rejected notification: %s", ack.Error)
	}
	return nil
}

// SendExportStart announces that a queue item started exporting.
func SendExportStart(runID string, index int, item types.QueueItem) {
	Dispatch(&types.Notification{
		Type:    types.NotifyTypeExportStart,
		Title:   "Export Started",
		Message: fmt.Sprintf("Exporting %s", item.Name),
		Data: map[string]any{
			"runId": runID,
			"index": index,
			"name":  item.Name,
			"kind":  item.Kind,
		},
	})
}

// SendExportProgress reports progress of a queue item.
func SendExportProgress(runID string, index int, name string, percent float64) {
	Dispatch(&types.Notification{
		Type:    types.NotifyTypeExportProgress,
		Message: fmt.Sprintf("Exporting… %g%%", percent),
		Data: map[string]any{
			"runId":    runID,
			"index":    index,
			"name":     name,
			"progress": percent,
		},
	})
}

// SendInvalidDownload reports a download locator the backend sent that could not be resolved.
func SendInvalidDownload(runID string, index int, name, raw string) {
	Dispatch(&types.Notification{
		Type:    types.NotifyTypeInvalidDownload,
		Title:   "Invalid Download Link",
		Message: fmt.Sprintf("Backend sent an unusable download link for %s", name),
		Data: map[string]any{
			"runId": runID,
			"index": index,
			"name":  name,
			"raw":   raw,
		},
	})
}

// SendExportResult reports the terminal state of a queue item.
func SendExportResult(runID string, index int, item types.QueueItem) {
	notification := &types.Notification{
		Data: map[string]any{
			"runId":      runID,
			"index":      index,
			"name":       item.Name,
			"outputName": item.OutputName,
			"outputHref": item.OutputHref,
			"outputPath": item.OutputPath,
		},
	}
	if item.Status == types.ItemDone {
		notification.Type = types.NotifyTypeExportDone
		notification.Title = "Export Complete"
		notification.Message = fmt.Sprintf("%s exported", item.Name)
	} else {
		notification.Type = types.NotifyTypeExportError
		notification.Title = "Export Failed"
		notification.Message = FailureMessage(item.Outcome)
	}
	if item.Outcome != nil {
		notification.Data["sessionId"] = item.Outcome.SessionID
		notification.Data["errorCategory"] = item.Outcome.ErrorCategory
		notification.Data["errorDetail"] = item.Outcome.ErrorDetail
	}
	Dispatch(notification)
}

// SendBatchDone reports the end of a batch run and, when one was built, the archive path.
func SendBatchDone(runID string, total, succeeded int, archivePath string) {
	if archivePath != "" {
		Dispatch(&types.Notification{
			Type:    types.NotifyTypeZipReady,
			Title:   "Batch Complete",
			Message: "ZIP ready",
			Data:    map[string]any{"runId": runID, "archivePath": archivePath, "count": succeeded},
		})
	}
	Dispatch(&types.Notification{
		Type:    types.NotifyTypeBatchDone,
		Title:   "Batch Complete",
		Message: fmt.Sprintf("%d of %d files exported", succeeded, total),
		Data:    map[string]any{"runId": runID, "total": total, "succeeded": succeeded},
	})
}

// FailureMessage explains a failed outcome to a user, per failure category.
func FailureMessage(outcome *types.UploadOutcome) string {
	if outcome == nil {
		return "Export failed"
	}
	switch outcome.ErrorCategory {
	case types.ErrorCategoryNetwork:
		return "Export failed (check server & CORS)"
	case types.ErrorCategoryHTTPStatus:
		return fmt.Sprintf("Export failed: server returned HTTP %d", outcome.StatusCode)
	case types.ErrorCategoryServerReported:
		return "Export failed: server reported a processing error"
	case types.ErrorCategoryCancelled:
		return "Export cancelled"
	default:
		return "Export failed: " + outcome.ErrorDetail
	}
}
