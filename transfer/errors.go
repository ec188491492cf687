package transfer

import (
	"errors"
	"fmt"

	"github.com/moyoez/desqueeze-go/types"
)

// TransportError means the endpoint could not be reached at all (network, DNS, TLS, CORS proxy).
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error: cannot reach %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ServerStatusError is a non-2xx HTTP response.
type ServerStatusError struct {
	StatusCode int
	Status     string
}

func (e *ServerStatusError) Error() string {
	return fmt.Sprintf("server returned HTTP %d (%s)", e.StatusCode, e.Status)
}

// ProtocolError is a request or response that does not fit the upload protocol.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Reason
}

// ServerReportedError is a status:error line in the progress feed.
type ServerReportedError struct {
	Detail string
}

func (e *ServerReportedError) Error() string {
	if e.Detail == "" {
		return "server reported a processing error"
	}
	return "server reported a processing error: " + e.Detail
}

// CancelledError wraps the context error when the caller aborted the session.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("upload cancelled: %v", e.Err)
}

func (e *CancelledError) Unwrap() error { return e.Err }

// CategoryOf classifies an error returned in an UploadOutcome.
func CategoryOf(err error) types.ErrorCategory {
	var (
		transportErr *TransportError
		statusErr    *ServerStatusError
		reportedErr  *ServerReportedError
		cancelledErr *CancelledError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &cancelledErr):
		return types.ErrorCategoryCancelled
	case errors.As(err, &transportErr):
		return types.ErrorCategoryNetwork
	case errors.As(err, &statusErr):
		return types.ErrorCategoryHTTPStatus
	case errors.As(err, &reportedErr):
		return types.ErrorCategoryServerReported
	default:
		return types.ErrorCategoryProtocol
	}
}
