package tool

import (
	"net/url"
	"strings"
)

// DefaultDownloadPath is where bare filenames are retrieved from on the backend origin.
const DefaultDownloadPath = "/download/"

// RelativeDownloadPrefixes are relative locators the backend family sends as-is.
// "downloads/" is the current convention, the others are legacy aliases.
var RelativeDownloadPrefixes = []string{"downloads/", "download/", "files/"}

// Origin returns scheme://host[:port] of an absolute URL.
func Origin(endpoint string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}

// ResolveDownloadURL turns a server-supplied download locator into an absolute URL,
// using the origin of the upload endpoint for anything relative.
// It never panics; ok is false when nothing usable could be built.
func ResolveDownloadURL(raw, endpoint string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if isAbsoluteURL(raw) {
		return raw, true
	}

	origin, ok := Origin(endpoint)
	if !ok {
		return "", false
	}

	// rooted paths, "//" included, stay on the endpoint origin
	if strings.HasPrefix(raw, "/") {
		return origin + raw, true
	}
	for _, prefix := range RelativeDownloadPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return origin + "/" + raw, true
		}
	}

	name := bareFileName(raw)
	if name == "" {
		return "", false
	}
	return origin + DefaultDownloadPath + EncodePathSegment(name), true
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs() && u.Host != ""
}

// bareFileName drops query, fragment and any leading directories.
func bareFileName(raw string) string {
	if i := strings.IndexAny(raw, "?#"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.LastIndexAny(raw, `/\`); i >= 0 {
		raw = raw[i+1:]
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		raw = unescaped
	}
	return strings.TrimSpace(raw)
}

// EncodePathSegment percent-encodes everything outside the RFC 3986 unreserved set.
func EncodePathSegment(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s) * 3)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	case c == '-' || c == '_' || c == '.' || c == '~':
		return true
	}
	return false
}
