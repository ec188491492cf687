package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/desqueeze-go/api/models"
	"github.com/moyoez/desqueeze-go/app"
	"github.com/moyoez/desqueeze-go/tool"
	"github.com/moyoez/desqueeze-go/types"
)

// exportContext is the parent of background export runs; it outlives the request.
var exportContext = context.Background()

// errorStatus maps controller errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, app.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, app.ErrNoFiles), errors.Is(err, app.ErrNoSelection),
		errors.Is(err, app.ErrBatchTooSmall), errors.Is(err, app.ErrInvalidSetting):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func exporter(c *gin.Context) (models.Exporter, bool) {
	ctrl := models.GetController()
	if ctrl == nil {
		c.JSON(http.StatusServiceUnavailable, tool.FastReturnError("Exporter not ready"))
		return nil, false
	}
	return ctrl, true
}

// UserQueue returns the queue, selection and last batch outputs.
// GET /api/self/v1/queue
func UserQueue(c *gin.Context) {
	ctrl, ok := exporter(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// UserSelectFiles replaces the queue with files from local paths.
// POST /api/self/v1/select-files
func UserSelectFiles(c *gin.Context) {
	ctrl, ok := exporter(c)
	if !ok {
		return
	}
	var body types.SelectFilesRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if len(body.Paths) == 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required field: paths"))
		return
	}
	n, err := ctrl.SelectFiles(body.Paths)
	if err != nil {
		c.JSON(errorStatus(err), tool.FastReturnError(err.Error()))
		return
	}
	tool.DefaultLogger.Debugf("[API] %d of %d paths queued", n, len(body.Paths))
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// UserSelect picks the file exported by export-selected.
// POST /api/self/v1/select
func UserSelect(c *gin.Context) {
	ctrl, ok := exporter(c)
	if !ok {
		return
	}
	var body types.SelectRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if err := ctrl.Select(body.Index); err != nil {
		c.JSON(errorStatus(err), tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccess())
}

// UserExportSelected starts exporting the selected file in the background.
// POST /api/self/v1/export-selected
func UserExportSelected(c *gin.Context) {
	ctrl, ok := exporter(c)
	if !ok {
		return
	}
	runID, err := ctrl.ExportSelectedAsync(exportContext)
	if err != nil {
		c.JSON(errorStatus(err), tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusAccepted, tool.FastReturnAccepted(runID))
}

// UserExportBatch starts a batch export of the whole queue in the background.
// POST /api/self/v1/export-batch
func UserExportBatch(c *gin.Context) {
	ctrl, ok := exporter(c)
	if !ok {
		return
	}
	runID, err := ctrl.ExportBatchAsync(exportContext)
	if err != nil {
		c.JSON(errorStatus(err), tool.FastReturnError(err.Error()))
		return
	}
	c.JSON(http.StatusAccepted, tool.FastReturnAccepted(runID))
}

// UserOutcomeGet returns the terminal outcome of one upload session.
// GET /api/self/v1/outcome?sessionId=
func UserOutcomeGet(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: sessionId"))
		return
	}
	outcome, ok := models.LookupOutcome(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, tool.FastReturnErrorWithData("Unknown or expired session", map[string]any{"sessionId": sessionID}))
		return
	}
	c.JSON(http.StatusOK, outcome)
}
