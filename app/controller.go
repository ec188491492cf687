// Package app owns the export queue and runs exports one file at a time.
package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/moyoez/desqueeze-go/archive"
	"github.com/moyoez/desqueeze-go/desqueeze"
	"github.com/moyoez/desqueeze-go/notify"
	"github.com/moyoez/desqueeze-go/tool"
	"github.com/moyoez/desqueeze-go/transfer"
	"github.com/moyoez/desqueeze-go/types"
)

// MaxFiles is the largest queue accepted by SelectFiles.
const MaxFiles = 10

var (
	ErrBusy           = errors.New("an export is already running")
	ErrNoFiles        = errors.New("no supported files")
	ErrNoSelection    = errors.New("pick a file first")
	ErrBatchTooSmall  = errors.New("add at least two files for batch export")
	ErrInvalidSetting = errors.New("invalid setting")
)

// BatchResult summarizes a batch run.
type BatchResult struct {
	RunID       string `json:"runId"`
	Total       int    `json:"total"`
	Succeeded   int    `json:"succeeded"`
	ArchivePath string `json:"archivePath,omitempty"`
}

// Controller is the single owner of AppState.
type Controller struct {
	state     *AppState
	client    *http.Client
	onOutcome func(outcome *types.UploadOutcome)
	now       func() time.Time
}

// NewController creates a controller; a nil client uses the shared upload client.
func NewController(settings types.ExportSettings, client *http.Client) *Controller {
	if client == nil {
		client = tool.GetHttpClient()
	}
	return &Controller{
		state:  newAppState(settings),
		client: client,
		now:    time.Now,
	}
}

// SetOutcomeHook registers a callback receiving every backend outcome.
func (c *Controller) SetOutcomeHook(fn func(outcome *types.UploadOutcome)) {
	c.onOutcome = fn
}

// SelectFiles replaces the queue with the supported files among paths (images and videos, at most MaxFiles).
func (c *Controller) SelectFiles(paths []string) (int, error) {
	if c.state.isBusy() {
		return 0, ErrBusy
	}
	files := make([]types.QueueItem, 0, min(len(paths), MaxFiles))
	for _, p := range paths {
		if len(files) == MaxFiles {
			tool.DefaultLogger.Warnf("[Queue] Only the first %d files are queued, ignoring the rest", MaxFiles)
			break
		}
		info, err := tool.GetFileInfoFromPath(p)
		if err != nil {
			tool.DefaultLogger.Warnf("[Queue] Skipping %s: %v", p, err)
			continue
		}
		kind, ok := tool.KindFromMime(info.MimeType)
		if !ok {
			tool.DefaultLogger.Infof("[Queue] Skipping %s: unsupported type %s", p, info.MimeType)
			continue
		}
		files = append(files, types.QueueItem{
			Path:     p,
			Name:     info.Name,
			MimeType: info.MimeType,
			Kind:     kind,
			Size:     info.Size,
			Status:   types.ItemQueued,
		})
	}
	c.state.replaceFiles(files)
	if len(files) == 0 {
		return 0, ErrNoFiles
	}
	tool.DefaultLogger.Infof("[Queue] %d file(s) queued", len(files))
	return len(files), nil
}

// Select makes index the current file.
func (c *Controller) Select(index int) error {
	if !c.state.setSelected(index) {
		return fmt.Errorf("%w: index %d out of range", ErrNoSelection, index)
	}
	return nil
}

// Snapshot returns a copy of the queue state.
func (c *Controller) Snapshot() types.QueueSnapshot {
	return c.state.snapshot()
}

// Settings returns the current export settings.
func (c *Controller) Settings() types.ExportSettings {
	return c.state.getSettings()
}

// UpdateSettings applies a partial settings update after validating it.
func (c *Controller) UpdateSettings(patch types.ExportSettingsPatch) (types.ExportSettings, error) {
	s := c.state.getSettings()
	if patch.UploadURL != nil {
		if _, ok := tool.Origin(*patch.UploadURL); !ok {
			return s, fmt.Errorf("%w: upload_url must be an absolute URL", ErrInvalidSetting)
		}
		s.UploadURL = *patch.UploadURL
	}
	if patch.Factor != nil {
		s.Factor = desqueeze.NormalizeFactor(*patch.Factor)
	}
	if patch.FPS != nil {
		if *patch.FPS > 0 {
			fps := *patch.FPS
			s.FPS = &fps
		} else {
			s.FPS = nil
		}
	}
	if patch.Bitrate != nil {
		if *patch.Bitrate < 0 {
			return s, fmt.Errorf("%w: bitrate must not be negative", ErrInvalidSetting)
		}
		s.Bitrate = *patch.Bitrate
	}
	if patch.PhotoFormat != nil {
		switch *patch.PhotoFormat {
		case "image/jpeg", "image/png":
			s.PhotoFormat = *patch.PhotoFormat
		default:
			return s, fmt.Errorf("%w: photo_format must be image/jpeg or image/png", ErrInvalidSetting)
		}
	}
	if patch.OutputDir != nil {
		if *patch.OutputDir == "" {
			return s, fmt.Errorf("%w: output_dir must not be empty", ErrInvalidSetting)
		}
		s.OutputDir = *patch.OutputDir
	}
	if patch.AutoDownload != nil {
		s.AutoDownload = *patch.AutoDownload
	}
	c.state.setSettings(s)
	return s, nil
}

// ExportSelected exports the current file and waits for it to finish.
func (c *Controller) ExportSelected(ctx context.Context) (types.QueueItem, error) {
	runID, index, err := c.prepareSelected()
	if err != nil {
		return types.QueueItem{}, err
	}
	defer c.state.release()
	return c.exportSelected(ctx, runID, index), nil
}

// ExportSelectedAsync validates and claims the controller, then exports the current file in the background.
// The returned run id tags every notification of the run.
func (c *Controller) ExportSelectedAsync(ctx context.Context) (string, error) {
	runID, index, err := c.prepareSelected()
	if err != nil {
		return "", err
	}
	go func() {
		defer c.state.release()
		c.exportSelected(ctx, runID, index)
	}()
	return runID, nil
}

// ExportBatch exports every queued file in order, then packs the outputs into a ZIP when there are at least two.
func (c *Controller) ExportBatch(ctx context.Context) (BatchResult, error) {
	runID, err := c.prepareBatch()
	if err != nil {
		return BatchResult{}, err
	}
	defer c.state.release()
	return c.exportBatch(ctx, runID), nil
}

// ExportBatchAsync validates and claims the controller, then runs the batch in the background.
func (c *Controller) ExportBatchAsync(ctx context.Context) (string, error) {
	runID, err := c.prepareBatch()
	if err != nil {
		return "", err
	}
	go func() {
		defer c.state.release()
		c.exportBatch(ctx, runID)
	}()
	return runID, nil
}

func (c *Controller) prepareSelected() (string, int, error) {
	index := c.state.selected()
	if _, ok := c.state.item(index); !ok {
		return "", 0, ErrNoSelection
	}
	runID := tool.NewExportRunID()
	if !c.state.tryAcquire(runID) {
		return "", 0, ErrBusy
	}
	return runID, index, nil
}

func (c *Controller) prepareBatch() (string, error) {
	if c.state.fileCount() < 2 {
		return "", ErrBatchTooSmall
	}
	runID := tool.NewExportRunID()
	if !c.state.tryAcquire(runID) {
		return "", ErrBusy
	}
	return runID, nil
}

func (c *Controller) exportSelected(ctx context.Context, runID string, index int) types.QueueItem {
	settings := c.state.getSettings()
	if out, ok := c.exportOne(ctx, runID, index, settings); ok {
		c.state.addOutput(out)
	}
	item, _ := c.state.item(index)
	return item
}

func (c *Controller) exportBatch(ctx context.Context, runID string) BatchResult {
	settings := c.state.getSettings()
	c.state.resetBatch()

	total := c.state.fileCount()
	result := BatchResult{RunID: runID, Total: total}
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			tool.DefaultLogger.Warnf("[Batch] Cancelled after %d of %d files", i, total)
			break
		}
		if out, ok := c.exportOne(ctx, runID, i, settings); ok {
			c.state.addOutput(out)
		}
		if item, _ := c.state.item(i); item.Status == types.ItemDone {
			result.Succeeded++
		}
		tool.DefaultLogger.Infof("[Batch] %d/%d files processed", i+1, total)
	}

	if outputs := c.state.outputs(); len(outputs) >= 2 {
		tool.DefaultLogger.Infof("[Batch] Packing ZIP…")
		path, err := c.buildArchive(ctx, settings.OutputDir, outputs)
		if err != nil {
			tool.DefaultLogger.Errorf("[Batch] ZIP create failed: %v", err)
		} else {
			result.ArchivePath = path
			c.state.setArchivePath(path)
		}
	}
	notify.SendBatchDone(runID, result.Total, result.Succeeded, result.ArchivePath)
	tool.DefaultLogger.Infof("[Batch] Complete: %d of %d exported", result.Succeeded, result.Total)
	return result
}

// exportOne exports queue item index and returns the output to collect, if any.
func (c *Controller) exportOne(ctx context.Context, runID string, index int, settings types.ExportSettings) (types.BatchOutput, bool) {
	item := c.state.updateItem(index, func(it *types.QueueItem) {
		it.Status = types.ItemExporting
		it.Progress = 0
		it.Outcome = nil
		it.OutputName = tool.MakeOutName(it.Name, it.Kind, settings.PhotoFormat)
		it.OutputHref = ""
		it.OutputPath = ""
	})
	notify.SendExportStart(runID, index, item)

	var (
		out types.BatchOutput
		ok  bool
	)
	if item.Kind == types.KindImage {
		out, ok = c.exportPhoto(index, item, settings)
	} else {
		out, ok = c.exportVideo(ctx, runID, index, item, settings)
	}
	final, _ := c.state.item(index)
	notify.SendExportResult(runID, index, final)
	return out, ok
}

func (c *Controller) exportPhoto(index int, item types.QueueItem, settings types.ExportSettings) (types.BatchOutput, bool) {
	path, err := writePhoto(item, settings)
	if err != nil {
		tool.DefaultLogger.Errorf("[Export] Photo export failed for %s: %v", item.Name, err)
		c.state.updateItem(index, func(it *types.QueueItem) { it.Status = types.ItemError })
		return types.BatchOutput{}, false
	}
	c.state.updateItem(index, func(it *types.QueueItem) {
		it.Status = types.ItemDone
		it.Progress = 100
		it.OutputPath = path
	})
	tool.DefaultLogger.Infof("[Export] Photo exported to %s", path)
	return types.BatchOutput{Name: item.OutputName, LocalPath: path}, true
}

func writePhoto(item types.QueueItem, settings types.ExportSettings) (string, error) {
	src, err := os.Open(item.Path)
	if err != nil {
		return "", err
	}
	defer src.Close()
	data, err := desqueeze.ExportPhoto(src, settings.Factor, settings.PhotoFormat)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(settings.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %v", err)
	}
	path := tool.NextAvailablePath(settings.OutputDir, item.OutputName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (c *Controller) exportVideo(ctx context.Context, runID string, index int, item types.QueueItem, settings types.ExportSettings) (types.BatchOutput, bool) {
	blob, err := os.ReadFile(item.Path)
	if err != nil {
		tool.DefaultLogger.Errorf("[Export] Cannot read %s: %v", item.Path, err)
		c.state.updateItem(index, func(it *types.QueueItem) { it.Status = types.ItemError })
		return types.BatchOutput{}, false
	}
	request := &types.UploadRequest{
		SourceBlob:      blob,
		SourceName:      item.Name,
		Kind:            item.Kind,
		DesqueezeFactor: settings.Factor,
		FPSOverride:     settings.FPS,
		TargetEndpoint:  settings.UploadURL,
	}
	if settings.Bitrate > 0 {
		bitrate := settings.Bitrate
		request.BitrateOverride = &bitrate
	}

	outcome := transfer.NewSession(c.client).
		OnProgress(func(percent float64) {
			c.state.updateItem(index, func(it *types.QueueItem) { it.Progress = percent })
			notify.SendExportProgress(runID, index, item.Name, percent)
		}).
		OnDownload(func(url string) {
			c.state.updateItem(index, func(it *types.QueueItem) { it.OutputHref = url })
		}).
		OnInvalidDownload(func(raw string) {
			notify.SendInvalidDownload(runID, index, item.Name, raw)
		}).
		Submit(ctx, request)
	if c.onOutcome != nil {
		c.onOutcome(outcome)
	}

	if !outcome.Succeeded() {
		c.state.updateItem(index, func(it *types.QueueItem) {
			it.Status = types.ItemError
			it.Outcome = outcome
		})
		return types.BatchOutput{}, false
	}

	localPath := ""
	if outcome.ResolvedDownloadURL != "" && settings.AutoDownload {
		path, err := transfer.DownloadArtifact(ctx, c.client, outcome.ResolvedDownloadURL, settings.OutputDir, item.OutputName)
		if err != nil {
			tool.DefaultLogger.Warnf("[Export] Artifact ready at %s but download failed: %v", outcome.ResolvedDownloadURL, err)
		} else {
			localPath = path
		}
	}
	c.state.updateItem(index, func(it *types.QueueItem) {
		it.Status = types.ItemDone
		it.Outcome = outcome
		it.OutputHref = outcome.ResolvedDownloadURL
		it.OutputPath = localPath
	})
	if outcome.ResolvedDownloadURL == "" {
		// processed, but nothing to retrieve
		return types.BatchOutput{}, false
	}
	return types.BatchOutput{Name: item.OutputName, Href: outcome.ResolvedDownloadURL, LocalPath: localPath}, true
}

func (c *Controller) buildArchive(ctx context.Context, dir string, outputs []types.BatchOutput) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %v", err)
	}
	path := tool.NextAvailablePath(dir, archive.BatchArchiveName(len(outputs), c.now()))
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}

	entries := make([]archive.Entry, 0, len(outputs))
	for _, out := range outputs {
		entries = append(entries, archive.Entry{Name: out.Name, Open: c.openOutput(out)})
	}
	_, buildErr := archive.BuildZip(ctx, file, entries)
	if closeErr := file.Close(); buildErr == nil {
		buildErr = closeErr
	}
	if buildErr != nil {
		_ = os.Remove(path)
		return "", buildErr
	}
	tool.DefaultLogger.Infof("[Batch] ZIP ready at %s", path)
	return filepath.Clean(path), nil
}

// openOutput prefers the local copy of an output and falls back to fetching its URL.
func (c *Controller) openOutput(out types.BatchOutput) func(ctx context.Context) (io.ReadCloser, error) {
	return func(ctx context.Context) (io.ReadCloser, error) {
		if out.LocalPath != "" {
			return os.Open(out.LocalPath)
		}
		if out.Href != "" {
			return transfer.OpenArtifact(ctx, c.client, out.Href)
		}
		return io.NopCloser(bytes.NewReader(nil)), nil
	}
}
