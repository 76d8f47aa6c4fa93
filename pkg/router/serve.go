package router

import (
	"fmt"
	"html"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/mimetype"
)

// cidTarget is a parsed CID path: /{cid}, /{cid}.{ext}, or
// /{cid}.{filename}.{ext}.
type cidTarget struct {
	CID      string
	Ext      string
	Filename string
}

func parseCIDPath(path string) (*cidTarget, bool) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return nil, false
	}
	parts := strings.Split(trimmed, ".")
	if cid.Validate(parts[0]) != nil {
		return nil, false
	}
	t := &cidTarget{CID: parts[0]}
	switch {
	case len(parts) == 2:
		t.Ext = parts[1]
	case len(parts) > 2:
		t.Filename = strings.Join(parts[1:len(parts)-1], ".")
		t.Ext = parts[len(parts)-1]
	}
	return t, true
}

// serveCID serves stored bytes for a CID path. ok is false when the path
// is not a CID path or the CID is unknown, so resolution continues to 404.
func (rt *Router) serveCID(w http.ResponseWriter, r *http.Request, path string) (outcome string, ok bool) {
	target, isCID := parseCIDPath(path)
	if !isCID {
		return "", false
	}

	body, err := rt.content.Get(r.Context(), target.CID)
	if err != nil {
		return "", false
	}

	etag := `"` + target.CID + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return "cid", true
	}

	if target.Filename != "" {
		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=%q", target.Filename+"."+target.Ext))
	}

	switch {
	case target.Ext == "qr":
		w.Header().Set("Content-Type", "text/html")
		w.Write(qrPage(target.CID))
	case target.Ext != "":
		w.Header().Set("Content-Type", mimetype.ByExtension(target.Ext))
		w.Write(body)
	case utf8.Valid(body) && looksLikeMarkdown(body):
		w.Header().Set("Content-Type", "text/html")
		w.Write(renderMarkdown(body))
	case utf8.Valid(body):
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write(body)
	default:
		w.Header().Set("Content-Type", mimetype.DefaultType)
		w.Write(body)
	}
	return "cid", true
}

// looksLikeMarkdown is a cheap structural sniff used only for
// extensionless serving. Extensions always win.
func looksLikeMarkdown(body []byte) bool {
	text := string(body)
	for _, line := range strings.SplitN(text, "\n", 20) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "# ") ||
			strings.HasPrefix(trimmed, "## ") ||
			strings.HasPrefix(trimmed, "- ") ||
			strings.HasPrefix(trimmed, "* ") ||
			strings.HasPrefix(trimmed, "> ") {
			return true
		}
	}
	return strings.Contains(text, "](") || strings.Contains(text, "```")
}

func renderMarkdown(body []byte) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.HrefTargetBlank,
	})
	rendered := markdown.ToHTML(body, p, renderer)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head><meta charset=\"utf-8\"></head>\n<body>\n")
	b.Write(rendered)
	b.WriteString("</body>\n</html>\n")
	return []byte(b.String())
}

// qrPage renders an HTML share page for a CID. Image generation happens
// on the client; the page only carries the identifier and a raw link.
func qrPage(id string) []byte {
	escaped := html.EscapeString(id)
	return []byte(fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>%s</title></head>
<body>
<h1>Content ID</h1>
<p><code id="cid">%s</code></p>
<p><a href="/%s">raw content</a></p>
</body>
</html>
`, escaped, escaped, escaped))
}
