// Package mimetype maps CID URL extensions to MIME types and back.
// The extension selects how content is served; it is never part of the
// CID identity.
package mimetype

import "strings"

// DefaultType is served when the extension is unknown.
const DefaultType = "application/octet-stream"

var byExtension = map[string]string{
	"txt":  "text/plain; charset=utf-8",
	"html": "text/html",
	"htm":  "text/html",
	"md":   "text/markdown",
	"json": "application/json",
	"png":  "image/png",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"svg":  "image/svg+xml",
	"qr":   "text/html",
	"csv":  "text/csv",
	"xml":  "application/xml",
	"pdf":  "application/pdf",
}

// redirect extensions for executor result CIDs, keyed by the bare media
// type. Only types with an unambiguous extension appear here.
var byType = map[string]string{
	"text/plain":       "txt",
	"text/html":        "html",
	"text/markdown":    "md",
	"application/json": "json",
	"text/csv":         "csv",
	"application/xml":  "xml",
	"image/png":        "png",
	"image/jpeg":       "jpg",
	"image/gif":        "gif",
	"image/svg+xml":    "svg",
	"application/pdf":  "pdf",
}

// ByExtension returns the MIME type for a CID URL extension (without the
// dot). Unknown extensions serve as opaque bytes.
func ByExtension(ext string) string {
	if t, ok := byExtension[strings.ToLower(ext)]; ok {
		return t
	}
	return DefaultType
}

// Known reports whether ext is in the serving table.
func Known(ext string) bool {
	_, ok := byExtension[strings.ToLower(ext)]
	return ok
}

// ExtensionFor returns the URL extension for a content type, or "" when
// no extension is registered. Parameters (charset) are ignored.
func ExtensionFor(contentType string) string {
	media := contentType
	if i := strings.IndexByte(media, ';'); i >= 0 {
		media = media[:i]
	}
	return byType[strings.TrimSpace(strings.ToLower(media))]
}
