package tool

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewExportRunID identifies one export run (single or batch) across the API reply and its notifications.
func NewExportRunID() string {
	return "run_" + uuid.NewString()
}

// GenerateShortSessionID returns a short alphanumeric ID (8 hex chars).
func GenerateShortSessionID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b) // never fails since Go 1.24
	return hex.EncodeToString(b)
}

// NewUploadSessionID returns a correlation token for the backend: millisecond timestamp plus random suffix.
// Only meant to be unique enough for log correlation, not as a secret.
func NewUploadSessionID() string {
	return fmt.Sprintf("sess_%d_%s", time.Now().UnixMilli(), GenerateShortSessionID())
}
