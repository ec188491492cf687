package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/moyoez/desqueeze-go/api/models"
	"github.com/moyoez/desqueeze-go/tool"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

// GenerateQRCode returns a PNG QR code for a download link, so a finished export can be opened on a phone.
// GET ?data=<url>&size=200x200, or ?index=<queue index> to encode that item's artifact URL.
func GenerateQRCode(c *gin.Context) {
	data := c.Query("data")
	if data == "" && c.Query("index") != "" {
		href, status, msg := queueItemHref(c.Query("index"))
		if status != http.StatusOK {
			c.JSON(status, tool.FastReturnError(msg))
			return
		}
		data = href
	}
	if data == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: data or index"))
		return
	}

	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	size = min(size, maxQRSize)

	png, err := qrcode.Encode(data, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

func queueItemHref(raw string) (string, int, string) {
	ctrl := models.GetController()
	if ctrl == nil {
		return "", http.StatusServiceUnavailable, "Exporter not ready"
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return "", http.StatusBadRequest, "Invalid index"
	}
	files := ctrl.Snapshot().Files
	if index < 0 || index >= len(files) {
		return "", http.StatusNotFound, "No such queue item"
	}
	if files[index].OutputHref == "" {
		return "", http.StatusNotFound, "Queue item has no download link yet"
	}
	return files[index].OutputHref, http.StatusOK, ""
}

// parseSize reads "200x200" or "200"; 0 means absent or invalid.
func parseSize(s string) int {
	width, _, _ := strings.Cut(strings.TrimSpace(s), "x")
	n, err := strconv.Atoi(strings.TrimSpace(width))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
