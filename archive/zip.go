// Package archive packs finished exports into a single ZIP file.
package archive

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/moyoez/desqueeze-go/tool"
)

// CompressionLevel is the DEFLATE level used for every entry.
const CompressionLevel = 6

// Entry is one file of the archive. Open is called once, in order, while the archive is written.
type Entry struct {
	Name string
	Open func(ctx context.Context) (io.ReadCloser, error)
}

// BuildZip writes entries to w as a ZIP archive and returns the number of entries written.
// Duplicate names get -2, -3, ... suffixes.
func BuildZip(ctx context.Context, w io.Writer, entries []Entry) (int, error) {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, CompressionLevel)
	})

	used := make(map[string]struct{}, len(entries))
	written := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			_ = zw.Close()
			return written, err
		}
		name := uniqueName(entryName(entry.Name), used)
		if err := writeEntry(ctx, zw, name, entry); err != nil {
			_ = zw.Close()
			return written, fmt.Errorf("failed to add %s to archive: %w", name, err)
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finish archive: %v", err)
	}
	return written, nil
}

func writeEntry(ctx context.Context, zw *zip.Writer, name string, entry Entry) error {
	if entry.Open == nil {
		return fmt.Errorf("entry has no content")
	}
	src, err := entry.Open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := src.Close(); err != nil {
			tool.DefaultLogger.Errorf("Failed to close archive source %s: %v", name, err)
		}
	}()
	dst, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: time.Now(),
	})
	if err != nil {
		return err
	}
	_, err = tool.CopyWithContext(ctx, dst, src)
	return err
}

// entryName keeps archive paths flat and free of traversal.
func entryName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = path.Base(path.Clean("/" + name))
	if name == "/" || name == "." || name == "" {
		return "file"
	}
	return name
}

func uniqueName(name string, used map[string]struct{}) string {
	candidate := name
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for n := 2; ; n++ {
		if _, taken := used[candidate]; !taken {
			used[candidate] = struct{}{}
			return candidate
		}
		candidate = fmt.Sprintf("%s-%d%s", base, n, ext)
	}
}

// BatchArchiveName names a batch archive, e.g. desqueezed_batch_3_1700000000000.zip.
func BatchArchiveName(count int, now time.Time) string {
	return fmt.Sprintf("desqueezed_batch_%d_%d.zip", count, now.UnixMilli())
}
