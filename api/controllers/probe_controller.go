package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/moyoez/desqueeze-go/tool"
)

// ProbeTimeout bounds the ICMP probe of the backend host.
var ProbeTimeout = 2 * time.Second

// UserProbe pings the host of the configured upload endpoint.
// GET /api/self/v1/probe
func UserProbe(c *gin.Context) {
	ctrl, ok := exporter(c)
	if !ok {
		return
	}
	endpoint := ctrl.Settings().UploadURL
	host, reachable := tool.ProbeEndpointHost(endpoint, ProbeTimeout)
	if host == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnErrorWithData("Upload URL has no host", map[string]any{"upload_url": endpoint}))
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"host":      host,
		"reachable": reachable,
	})
}
