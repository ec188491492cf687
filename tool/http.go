package tool

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

var (
	DefaultTimeout = 30 * time.Second
	// UploadHttpClient has no overall timeout: transcoding feeds stay open for as long as the backend works.
	UploadHttpClient *http.Client
)

func init() {
	UploadHttpClient = NewHTTPClient(0, false)
}

// NewHTTPClient creates an HTTP client for the processing backend.
// timeout 0 means the request (including the streamed body) is never cut off by the client.
func NewHTTPClient(timeout time.Duration, insecureSkipVerify bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   DefaultTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecureSkipVerify},
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     90 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// InitHTTPClients rebuilds the upload client from config values.
func InitHTTPClients(uploadTimeoutSeconds int, insecureSkipVerify bool) {
	UploadHttpClient = NewHTTPClient(time.Duration(uploadTimeoutSeconds)*time.Second, insecureSkipVerify)
}

func GetHttpClient() *http.Client {
	return UploadHttpClient
}
