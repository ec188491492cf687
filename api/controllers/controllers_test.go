package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/desqueeze-go/api/middlewares"
	"github.com/moyoez/desqueeze-go/api/models"
	"github.com/moyoez/desqueeze-go/app"
	"github.com/moyoez/desqueeze-go/types"
)

// fakeExporter records calls and returns canned errors.
type fakeExporter struct {
	snapshot    types.QueueSnapshot
	settings    types.ExportSettings
	selectErr   error
	exportErr   error
	selected    []string
	index       int
	exports     int
	batches     int
	patchResult error
}

func (f *fakeExporter) SelectFiles(paths []string) (int, error) {
	f.selected = paths
	return len(paths), f.selectErr
}

func (f *fakeExporter) Select(index int) error {
	if index < 0 || index >= len(f.snapshot.Files) {
		return app.ErrNoSelection
	}
	f.index = index
	return nil
}

func (f *fakeExporter) Snapshot() types.QueueSnapshot { return f.snapshot }
func (f *fakeExporter) Settings() types.ExportSettings { return f.settings }

func (f *fakeExporter) UpdateSettings(patch types.ExportSettingsPatch) (types.ExportSettings, error) {
	if f.patchResult != nil {
		return f.settings, f.patchResult
	}
	if patch.Factor != nil {
		f.settings.Factor = *patch.Factor
	}
	return f.settings, nil
}

func (f *fakeExporter) ExportSelectedAsync(ctx context.Context) (string, error) {
	if f.exportErr != nil {
		return "", f.exportErr
	}
	f.exports++
	return fmt.Sprintf("run_selected_%d", f.exports), nil
}

func (f *fakeExporter) ExportBatchAsync(ctx context.Context) (string, error) {
	if f.exportErr != nil {
		return "", f.exportErr
	}
	f.batches++
	return fmt.Sprintf("run_batch_%d", f.batches), nil
}

// setupRouter creates a test router with the control endpoints
func setupRouter(exp models.Exporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	models.SetController(exp)
	router := gin.New()
	self := router.Group("/api/self/v1", middlewares.OnlyAllowLocal)
	{
		self.GET("/status", UserStatus)
		self.GET("/queue", UserQueue)
		self.POST("/select-files", UserSelectFiles)
		self.POST("/select", UserSelect)
		self.POST("/export-selected", UserExportSelected)
		self.POST("/export-batch", UserExportBatch)
		self.GET("/outcome", UserOutcomeGet)
		self.GET("/config", UserConfigGet)
		self.PATCH("/config", UserConfigPatch)
		self.GET("/create-qr-code", GenerateQRCode)
	}
	return router
}

func doRequest(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:12345" // Mock local IP for middleware
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func twoFileSnapshot() types.QueueSnapshot {
	return types.QueueSnapshot{
		Files: []types.QueueItem{
			{Name: "a.mov", Kind: types.KindVideo, Status: types.ItemDone, OutputHref: "http://backend/download/a_desq.mp4"},
			{Name: "b.png", Kind: types.KindImage, Status: types.ItemQueued},
		},
		CurrentIndex: 0,
	}
}

// TestOnlyAllowLocal tests that remote clients are rejected
func TestOnlyAllowLocal(t *testing.T) {
	router := setupRouter(&fakeExporter{})
	req, _ := http.NewRequest("GET", "/api/self/v1/queue", nil)
	req.RemoteAddr = "192.168.1.20:5555"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status code 403, got %d", w.Code)
	}
}

// TestUserQueue tests the queue snapshot endpoint
func TestUserQueue(t *testing.T) {
	router := setupRouter(&fakeExporter{snapshot: twoFileSnapshot()})
	w := doRequest(router, "GET", "/api/self/v1/queue", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", w.Code)
	}
	var snap types.QueueSnapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(snap.Files) != 2 || snap.Files[1].Name != "b.png" {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
}

// TestUserSelectFiles tests queueing files and body validation
func TestUserSelectFiles(t *testing.T) {
	exp := &fakeExporter{}
	router := setupRouter(exp)

	w := doRequest(router, "POST", "/api/self/v1/select-files", types.SelectFilesRequest{Paths: []string{"/tmp/a.mov"}})
	if w.Code != http.StatusOK {
		t.Errorf("Expected status code 200, got %d", w.Code)
	}
	if len(exp.selected) != 1 || exp.selected[0] != "/tmp/a.mov" {
		t.Errorf("Expected paths forwarded, got %v", exp.selected)
	}

	w = doRequest(router, "POST", "/api/self/v1/select-files", types.SelectFilesRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status code 400 for empty paths, got %d", w.Code)
	}

	exp.selectErr = app.ErrNoFiles
	w = doRequest(router, "POST", "/api/self/v1/select-files", types.SelectFilesRequest{Paths: []string{"/tmp/notes.txt"}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status code 400 for unsupported files, got %d", w.Code)
	}
}

// TestUserSelect tests index selection
func TestUserSelect(t *testing.T) {
	exp := &fakeExporter{snapshot: twoFileSnapshot()}
	router := setupRouter(exp)

	if w := doRequest(router, "POST", "/api/self/v1/select", types.SelectRequest{Index: 1}); w.Code != http.StatusOK {
		t.Errorf("Expected status code 200, got %d", w.Code)
	}
	if exp.index != 1 {
		t.Errorf("Expected index 1, got %d", exp.index)
	}
	if w := doRequest(router, "POST", "/api/self/v1/select", types.SelectRequest{Index: 7}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status code 400, got %d", w.Code)
	}
}

// TestUserExportEndpoints tests 202 with the run id on start and 409 while busy
func TestUserExportEndpoints(t *testing.T) {
	exp := &fakeExporter{snapshot: twoFileSnapshot()}
	router := setupRouter(exp)

	wantRun := map[string]string{
		"/api/self/v1/export-selected": "run_selected_1",
		"/api/self/v1/export-batch":    "run_batch_1",
	}
	for _, path := range []string{"/api/self/v1/export-selected", "/api/self/v1/export-batch"} {
		w := doRequest(router, "POST", path, nil)
		if w.Code != http.StatusAccepted {
			t.Errorf("%s: expected status code 202, got %d", path, w.Code)
			continue
		}
		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: failed to decode body: %v", path, err)
		}
		if body["status"] != "accepted" || body["runId"] != wantRun[path] {
			t.Errorf("%s: expected accepted with runId %q, got %v", path, wantRun[path], body)
		}
	}
	if exp.exports != 1 || exp.batches != 1 {
		t.Errorf("Expected one export and one batch, got %d and %d", exp.exports, exp.batches)
	}

	exp.exportErr = app.ErrBusy
	for _, path := range []string{"/api/self/v1/export-selected", "/api/self/v1/export-batch"} {
		if w := doRequest(router, "POST", path, nil); w.Code != http.StatusConflict {
			t.Errorf("%s: expected status code 409, got %d", path, w.Code)
		}
	}

	exp.exportErr = app.ErrBatchTooSmall
	if w := doRequest(router, "POST", "/api/self/v1/export-batch", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status code 400, got %d", w.Code)
	}
}

// TestUserOutcomeGet tests outcome lookup by session id
func TestUserOutcomeGet(t *testing.T) {
	router := setupRouter(&fakeExporter{})
	models.CacheOutcome(&types.UploadOutcome{
		SessionID:     "sess_test_outcome",
		State:         types.StateFailed,
		ErrorCategory: types.ErrorCategoryServerReported,
		ErrorDetail:   "encoder crashed",
	})
	defer models.RemoveOutcome("sess_test_outcome")

	w := doRequest(router, "GET", "/api/self/v1/outcome?sessionId=sess_test_outcome", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status code 200, got %d", w.Code)
	}
	var outcome types.UploadOutcome
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if outcome.ErrorCategory != types.ErrorCategoryServerReported || outcome.ErrorDetail != "encoder crashed" {
		t.Errorf("Unexpected outcome %+v", outcome)
	}

	if w := doRequest(router, "GET", "/api/self/v1/outcome?sessionId=unknown", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status code 404, got %d", w.Code)
	}
	if w := doRequest(router, "GET", "/api/self/v1/outcome", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status code 400, got %d", w.Code)
	}
}

// TestUserConfigPatch tests settings updates and validation errors
func TestUserConfigPatch(t *testing.T) {
	exp := &fakeExporter{patchResult: app.ErrInvalidSetting}
	router := setupRouter(exp)
	factor := 2.0
	if w := doRequest(router, "PATCH", "/api/self/v1/config", types.ExportSettingsPatch{Factor: &factor}); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status code 400, got %d", w.Code)
	}

	req, _ := http.NewRequest("PATCH", "/api/self/v1/config", bytes.NewBufferString("invalid json"))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "127.0.0.1:12345"
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status code 400 for invalid body, got %d", w.Code)
	}
}

// TestGenerateQRCode tests QR rendering from data and from a queue item
func TestGenerateQRCode(t *testing.T) {
	router := setupRouter(&fakeExporter{snapshot: twoFileSnapshot()})

	w := doRequest(router, "GET", "/api/self/v1/create-qr-code?data=http%3A%2F%2Fbackend%2Fdownload%2Fx.mp4&size=150x150", nil)
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "image/png" {
		t.Errorf("Expected PNG, got %d %s", w.Code, w.Header().Get("Content-Type"))
	}
	if w := doRequest(router, "GET", "/api/self/v1/create-qr-code?index=0", nil); w.Code != http.StatusOK {
		t.Errorf("Expected status code 200 for item with link, got %d", w.Code)
	}
	if w := doRequest(router, "GET", "/api/self/v1/create-qr-code?index=1", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected status code 404 for item without link, got %d", w.Code)
	}
	if w := doRequest(router, "GET", "/api/self/v1/create-qr-code", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected status code 400, got %d", w.Code)
	}
}

// TestErrorStatus tests the controller error to HTTP status mapping
func TestErrorStatus(t *testing.T) {
	cases := map[error]int{
		app.ErrBusy:             http.StatusConflict,
		app.ErrNoSelection:      http.StatusBadRequest,
		app.ErrInvalidSetting:   http.StatusBadRequest,
		errors.New("disk full"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := errorStatus(err); got != want {
			t.Errorf("errorStatus(%v): expected %d, got %d", err, want, got)
		}
	}
}

func TestParseSize(t *testing.T) {
	for in, want := range map[string]int{"200x200": 200, "64": 64, "": 0, "abc": 0, "-5": 0} {
		if got := parseSize(in); got != want {
			t.Errorf("parseSize(%q): expected %d, got %d", in, want, got)
		}
	}
}
