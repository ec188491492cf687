package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/moyoez/desqueeze-go/types"
)

// FileDetails describes a selected file on disk.
type FileDetails struct {
	Name     string
	Size     int64
	MimeType string
}

// GetFileInfoFromPath stats a file and sniffs its MIME type from content.
func GetFileInfoFromPath(filePath string) (FileDetails, error) {
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return FileDetails{}, fmt.Errorf("failed to stat file: %v", err)
	}
	if fileInfo.IsDir() {
		return FileDetails{}, fmt.Errorf("path is a directory, not a file")
	}
	mtype, err := mimetype.DetectFile(filePath)
	if err != nil {
		return FileDetails{}, fmt.Errorf("failed to detect file type: %v", err)
	}
	return FileDetails{
		Name:     filepath.Base(filePath),
		Size:     fileInfo.Size(),
		MimeType: mtype.String(),
	}, nil
}

// KindFromMime maps a MIME type onto an export kind; ok is false for unsupported types.
func KindFromMime(mimeType string) (types.Kind, bool) {
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return types.KindVideo, true
	case strings.HasPrefix(mimeType, "image/"):
		return types.KindImage, true
	}
	return "", false
}

// MakeOutName derives the export file name, e.g. clip.mov -> clip_desq.mp4.
func MakeOutName(sourceName string, kind types.Kind, photoFormat string) string {
	base := strings.TrimSuffix(sourceName, filepath.Ext(sourceName))
	if kind == types.KindImage {
		ext := "jpg"
		if strings.HasSuffix(photoFormat, "png") {
			ext = "png"
		}
		return fmt.Sprintf("%s_desq.%s", base, ext)
	}
	return base + "_desq.mp4"
}

// NextAvailablePath returns the first path under dir that does not exist, using fileName
// and if it exists, trying base-2.ext, base-3.ext, ...
func NextAvailablePath(dir, fileName string) string {
	ext := filepath.Ext(fileName)
	base := strings.TrimSuffix(filepath.Base(fileName), ext)
	if base == "" {
		base = fileName
		ext = ""
	}
	try := filepath.Join(dir, fileName)
	if _, err := os.Stat(try); os.IsNotExist(err) {
		return try
	}
	for n := 2; ; n++ {
		try = filepath.Join(dir, fmt.Sprintf("%s-%d%s", base, n, ext))
		if _, err := os.Stat(try); os.IsNotExist(err) {
			return try
		}
	}
}

// CopyWithContext copies src to dst in 256 KiB chunks and stops at the first chunk boundary
// after ctx is done.
func CopyWithContext(ctx context.Context, dst io.Writer, src io.Reader) (int64, error) {
	return io.CopyBuffer(dst, &ctxReader{ctx: ctx, r: src}, make([]byte, 256*1024))
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
