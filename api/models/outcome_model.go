package models

import (
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/desqueeze-go/types"
)

// OutcomeTTL is how long a finished upload outcome stays queryable.
var OutcomeTTL = 30 * time.Minute

var outcomes = ttlworker.NewCache[string, types.UploadOutcome](OutcomeTTL)

// CacheOutcome remembers a terminal outcome under its session id.
func CacheOutcome(outcome *types.UploadOutcome) {
	if outcome == nil || outcome.SessionID == "" {
		return
	}
	outcomes.Set(outcome.SessionID, *outcome)
}

// LookupOutcome returns the cached outcome for sessionID.
func LookupOutcome(sessionID string) (types.UploadOutcome, bool) {
	outcome := outcomes.Get(sessionID)
	if outcome.SessionID == "" {
		return types.UploadOutcome{}, false
	}
	return outcome, true
}

// RemoveOutcome drops a cached outcome.
func RemoveOutcome(sessionID string) {
	outcomes.Delete(sessionID)
}

var (
	controllerMu sync.RWMutex
	controller   Exporter
)

// SetController installs the export controller served by the API.
func SetController(c Exporter) {
	controllerMu.Lock()
	defer controllerMu.Unlock()
	controller = c
}

// GetController returns the export controller, or nil before SetController.
func GetController() Exporter {
	controllerMu.RLock()
	defer controllerMu.RUnlock()
	return controller
}
