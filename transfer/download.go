package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/moyoez/desqueeze-go/tool"
)

// OpenArtifact starts a GET for a finished artifact. The caller closes the returned body.
func OpenArtifact(ctx context.Context, client *http.Client, href string) (io.ReadCloser, error) {
	if client == nil {
		client = tool.GetHttpClient()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, href, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &CancelledError{Err: ctx.Err()}
		}
		return nil, &TransportError{Endpoint: href, Err: err}
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		if err := resp.Body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
		return nil, &ServerStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp.Body, nil
}

// DownloadArtifact fetches href into dir as fileName (numbered when taken) and returns the path written.
func DownloadArtifact(ctx context.Context, client *http.Client, href, dir, fileName string) (string, error) {
	body, err := OpenArtifact(ctx, client, href)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := body.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close response body: %v", err)
		}
	}()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %v", err)
	}
	path := tool.NextAvailablePath(dir, filepath.Base(fileName))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %v", err)
	}
	written, copyErr := tool.CopyWithContext(ctx, file, body)
	if closeErr := file.Close(); copyErr == nil {
		copyErr = closeErr
	}
	if copyErr != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to download %s: %w", href, copyErr)
	}
	tool.DefaultLogger.Infof("[Download] Saved %s (%d bytes) to %s", href, written, path)
	return path, nil
}
