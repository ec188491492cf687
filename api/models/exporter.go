package models

import (
	"context"

	"github.com/moyoez/desqueeze-go/types"
)

// Exporter is what the control API needs from the export controller.
type Exporter interface {
	SelectFiles(paths []string) (int, error)
	Select(index int) error
	Snapshot() types.QueueSnapshot
	Settings() types.ExportSettings
	UpdateSettings(patch types.ExportSettingsPatch) (types.ExportSettings, error)
	// ExportSelectedAsync and ExportBatchAsync return the id of the started run.
	ExportSelectedAsync(ctx context.Context) (string, error)
	ExportBatchAsync(ctx context.Context) (string, error)
}
