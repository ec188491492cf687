package tool

import (
	"maps"

	"github.com/gin-gonic/gin"
)

// FastReturnError builds the {"error": msg} body used by every failing control API call.
func FastReturnError(msg string) gin.H {
	return gin.H{
		"error": msg,
	}
}

func FastReturnSuccess() gin.H {
	return gin.H{
		"status": "ok",
	}
}

// FastReturnAccepted answers a request that started background export run runID.
// Notifications of that run carry the same runId.
func FastReturnAccepted(runID string) gin.H {
	return gin.H{
		"status": "accepted",
		"runId":  runID,
	}
}

func FastReturnErrorWithData(msg string, data map[string]any) gin.H {
	resp := gin.H{
		"error": msg,
	}
	maps.Copy(resp, data)
	return resp
}
