package transfer

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/moyoez/desqueeze-go/types"
)

const (
	prefixProgress    = "progress:"
	prefixDownload    = "download:"
	prefixStatusDone  = "status:done"
	prefixStatusError = "status:error"
)

// ParseFeedLine decodes one complete, non-empty line of the progress feed.
func ParseFeedLine(line string) types.FeedEvent {
	line = strings.TrimSpace(line)
	switch {
	case strings.HasPrefix(line, prefixProgress):
		return types.ProgressEvent{Percent: parsePercent(line[len(prefixProgress):])}
	case strings.HasPrefix(line, prefixDownload):
		return types.DownloadEvent{Locator: strings.TrimSpace(line[len(prefixDownload):])}
	case strings.HasPrefix(line, prefixStatusDone):
		return types.DoneEvent{}
	case strings.HasPrefix(line, prefixStatusError):
		detail := strings.TrimSpace(line[len(prefixStatusError):])
		detail = strings.TrimSpace(strings.TrimPrefix(detail, ":"))
		return types.ErrorEvent{Detail: detail}
	default:
		return types.UnrecognizedEvent{Line: line}
	}
}

// leadingNumber matches the numeric prefix of a progress value, so "50%" reads as 50.
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parsePercent reads the leading number and clamps it to [0,100]; no leading number is 0.
func parsePercent(s string) float64 {
	num := leadingNumber.FindString(strings.TrimSpace(s))
	if num == "" {
		return 0
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

// LineSplitter reassembles a chunked byte stream into lines terminated by CR or LF.
// Bytes after the last terminator are held back until a later chunk completes the line.
type LineSplitter struct {
	pending []byte
}

// Write appends a chunk and returns every line it completed, trimmed, empty lines dropped.
func (s *LineSplitter) Write(chunk []byte) []string {
	s.pending = append(s.pending, chunk...)
	var lines []string
	start := 0
	for i, c := range s.pending {
		if c != '\n' && c != '\r' {
			continue
		}
		if line := strings.TrimSpace(string(s.pending[start:i])); line != "" {
			lines = append(lines, line)
		}
		start = i + 1
	}
	// CR and LF never occur inside a multi-byte UTF-8 sequence, so cutting here is safe
	rest := copy(s.pending, s.pending[start:])
	s.pending = s.pending[:rest]
	return lines
}

// Pending returns the unterminated fragment currently held back.
func (s *LineSplitter) Pending() string {
	return string(s.pending)
}

// Reset drops the unterminated fragment; used at end of stream, where it is never a line.
func (s *LineSplitter) Reset() {
	s.pending = s.pending[:0]
}
