package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/desqueeze-go/notify"
	"github.com/moyoez/desqueeze-go/tool"
	"github.com/moyoez/desqueeze-go/types"
)

// UserStatus returns server status for the web UI.
// GET /api/self/v1/status
func UserStatus(c *gin.Context) {
	ctrl, ok := exporter(c)
	if !ok {
		return
	}
	snap := ctrl.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"running":           true,
		"busy":              snap.Busy,
		"files":             len(snap.Files),
		"upload_url":        ctrl.Settings().UploadURL,
		"notify_ws_enabled": notify.HubEnabled(),
	})
}

// UserConfigGet returns the export settings in effect.
// GET /api/self/v1/config
func UserConfigGet(c *gin.Context) {
	ctrl, ok := exporter(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.Settings())
}

// UserConfigPatch applies a partial settings update and persists it to config.yaml.
// PATCH /api/self/v1/config
func UserConfigPatch(c *gin.Context) {
	ctrl, ok := exporter(c)
	if !ok {
		return
	}
	var body types.ExportSettingsPatch
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}
	settings, err := ctrl.UpdateSettings(body)
	if err != nil {
		c.JSON(errorStatus(err), tool.FastReturnError(err.Error()))
		return
	}
	tool.PersistExportSettings(body, settings)
	tool.DefaultLogger.Infof("[API] Settings updated: upload_url=%s factor=%g", settings.UploadURL, settings.Factor)
	c.JSON(http.StatusOK, settings)
}
