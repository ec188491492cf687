package app

import (
	"slices"
	"sync"

	"github.com/moyoez/desqueeze-go/types"
)

// AppState is the queue, selection and busy flag shared by the controller and the API.
// Every access goes through its methods.
type AppState struct {
	mu           sync.RWMutex
	files        []types.QueueItem
	currentIndex int
	busy         bool
	runID        string
	batchOutputs []types.BatchOutput
	archivePath  string
	settings     types.ExportSettings
}

func newAppState(settings types.ExportSettings) *AppState {
	return &AppState{currentIndex: -1, settings: settings}
}

func (s *AppState) replaceFiles(files []types.QueueItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = files
	s.currentIndex = -1
	if len(files) > 0 {
		s.currentIndex = 0
	}
	s.batchOutputs = nil
	s.archivePath = ""
}

func (s *AppState) item(index int) (types.QueueItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.files) {
		return types.QueueItem{}, false
	}
	return s.files[index], true
}

func (s *AppState) updateItem(index int, fn func(item *types.QueueItem)) types.QueueItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.files) {
		return types.QueueItem{}
	}
	fn(&s.files[index])
	return s.files[index]
}

func (s *AppState) fileCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

func (s *AppState) selected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentIndex
}

func (s *AppState) setSelected(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.files) {
		return false
	}
	s.currentIndex = index
	return true
}

// tryAcquire sets the busy flag for run runID; false means another run is in progress.
func (s *AppState) tryAcquire(runID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	s.runID = runID
	return true
}

func (s *AppState) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
}

func (s *AppState) isBusy() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.busy
}

func (s *AppState) resetBatch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchOutputs = nil
	s.archivePath = ""
}

func (s *AppState) addOutput(out types.BatchOutput) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchOutputs = append(s.batchOutputs, out)
}

func (s *AppState) outputs() []types.BatchOutput {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.batchOutputs)
}

func (s *AppState) setArchivePath(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.archivePath = path
}

func (s *AppState) getSettings() types.ExportSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *AppState) setSettings(settings types.ExportSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

func (s *AppState) snapshot() types.QueueSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	files := slices.Clone(s.files)
	if files == nil {
		files = []types.QueueItem{}
	}
	outputs := slices.Clone(s.batchOutputs)
	if outputs == nil {
		outputs = []types.BatchOutput{}
	}
	return types.QueueSnapshot{
		Files:        files,
		CurrentIndex: s.currentIndex,
		Busy:         s.busy,
		RunID:        s.runID,
		BatchOutputs: outputs,
		ArchivePath:  s.archivePath,
	}
}
