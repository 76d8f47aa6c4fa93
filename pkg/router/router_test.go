package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashbeam/cidhub/pkg/alias"
	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/store"
	"github.com/hashbeam/cidhub/pkg/transform"
)

func setupRouter(t *testing.T) (*store.GORMStore, *content.Service, *Router) {
	t.Helper()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	c := content.NewService(s, nil, nil)
	e := transform.New(c, nil, transform.Options{})
	return s, c, New(c, alias.NewResolver(s), e, nil)
}

func get(rt *Router, path string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, r)
	return w
}

func createAlias(t *testing.T, s *store.GORMStore, name, definition string) {
	t.Helper()
	a := &models.Alias{
		UserID:     models.AnonymousUserID,
		Name:       name,
		Definition: definition,
		Enabled:    true,
	}
	if err := alias.PrimaryFields(a); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAlias(context.Background(), a); err != nil {
		t.Fatal(err)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/a//b///c", "/a/b/c"},
		{"/a/", "/a"},
		{"/", "/"},
		{"a/b", "/a/b"},
		{"", "/"},
		{"/docs?x=1", "/docs"},
		{"/docs#frag", "/docs"},
		{"/docs/?x=1#frag", "/docs"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnknownPathReturns404(t *testing.T) {
	_, _, rt := setupRouter(t)
	w := get(rt, "/no/such/thing")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestServeCID(t *testing.T) {
	_, c, rt := setupRouter(t)
	id, err := c.Put(context.Background(), []byte("hello"), models.AnonymousUserID)
	if err != nil {
		t.Fatal(err)
	}

	w := get(rt, "/"+id)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "hello" {
		t.Errorf("body = %q", w.Body.String())
	}
	if w.Header().Get("ETag") != `"`+id+`"` {
		t.Errorf("etag = %q", w.Header().Get("ETag"))
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Errorf("cache-control = %q", cc)
	}

	w = get(rt, "/"+id+".txt")
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
}

func TestServeCIDConditional(t *testing.T) {
	_, c, rt := setupRouter(t)
	id, err := c.Put(context.Background(), []byte("cached"), models.AnonymousUserID)
	if err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodGet, "/"+id, nil)
	r.Header.Set("If-None-Match", `"`+id+`"`)
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, r)
	if w.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", w.Code)
	}
}

func TestServeCIDAttachment(t *testing.T) {
	_, c, rt := setupRouter(t)
	id, err := c.Put(context.Background(), []byte("a,b\n1,2\n"), models.AnonymousUserID)
	if err != nil {
		t.Fatal(err)
	}

	w := get(rt, "/"+id+".report.csv")
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="report.csv"` {
		t.Errorf("content-disposition = %q", cd)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q", ct)
	}

	// Single extension stays inline.
	w = get(rt, "/"+id+".csv")
	if cd := w.Header().Get("Content-Disposition"); cd != "" {
		t.Errorf("inline serving must not set disposition, got %q", cd)
	}
}

func TestServeCIDMarkdownAutodetect(t *testing.T) {
	_, c, rt := setupRouter(t)
	id, err := c.Put(context.Background(), []byte("# Title\n\nbody text\n"), models.AnonymousUserID)
	if err != nil {
		t.Fatal(err)
	}

	w := get(rt, "/"+id)
	if ct := w.Header().Get("Content-Type"); ct != "text/html" {
		t.Errorf("content type = %q, want rendered html", ct)
	}
	if !strings.Contains(w.Body.String(), "<h1") {
		t.Errorf("body not rendered: %q", w.Body.String())
	}
}

func TestAliasRedirectChain(t *testing.T) {
	s, c, rt := setupRouter(t)
	ctx := context.Background()

	readme, err := c.Put(ctx, []byte("# Readme\n\nwelcome\n"), models.AnonymousUserID)
	if err != nil {
		t.Fatal(err)
	}
	createAlias(t, s, "docs", "/docs -> /readme")
	createAlias(t, s, "readme", "/readme -> /"+readme+".md")

	w := get(rt, "/docs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/markdown" {
		t.Errorf("content type = %q", ct)
	}
	if w.Header().Get(HeaderChainHops) != "2" {
		t.Errorf("hops = %q, want 2", w.Header().Get(HeaderChainHops))
	}
}

func TestRedirectLoopDetected(t *testing.T) {
	s, _, rt := setupRouter(t)
	createAlias(t, s, "a", "/a -> /b")
	createAlias(t, s, "b", "/b -> /a")

	w := get(rt, "/a")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get(HeaderChainStatus) != "loop detected" {
		t.Errorf("chain status = %q", w.Header().Get(HeaderChainStatus))
	}
	if !strings.Contains(w.Body.String(), "loop detected") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestAliasTargetQueryStringDropped(t *testing.T) {
	s, c, rt := setupRouter(t)
	ctx := context.Background()

	page, err := c.Put(ctx, []byte("landing page"), models.AnonymousUserID)
	if err != nil {
		t.Fatal(err)
	}
	createAlias(t, s, "promo", "/promo -> /"+page+"?utm=1")

	w := get(rt, "/promo")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "landing page" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestRedirectChainTruncated(t *testing.T) {
	s, _, rt := setupRouter(t)

	// Distinct hops, one past the limit, so the loop check never fires.
	for i := 0; i <= MaxChainHops; i++ {
		createAlias(t, s, fmt.Sprintf("hop%d", i),
			fmt.Sprintf("/hop%d -> /hop%d", i, i+1))
	}

	w := get(rt, "/hop0")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Header().Get(HeaderChainStatus) != "chain truncated" {
		t.Errorf("chain status = %q", w.Header().Get(HeaderChainStatus))
	}
	if !strings.Contains(w.Body.String(), "truncated") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestServerExecutionRedirectsToResult(t *testing.T) {
	s, _, rt := setupRouter(t)
	ctx := context.Background()

	sv := &models.Server{
		UserID:     models.AnonymousUserID,
		Name:       "echo",
		Definition: "kind: template\ncontent_type: text/plain\ntemplate: \"{{ .Request.Path }}\"\n",
		Enabled:    true,
	}
	if err := s.CreateServer(ctx, sv); err != nil {
		t.Fatal(err)
	}

	w := get(rt, "/echo/hello")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "/echo/hello" {
		t.Errorf("body = %q, want the request path echoed back", w.Body.String())
	}

	invs, err := s.ListInvocations(ctx, models.AnonymousUserID, "echo")
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 1 {
		t.Errorf("invocation rows = %d, want 1", len(invs))
	}
	if invs[0].ResultCID != cid.Generate([]byte("/echo/hello")) {
		t.Errorf("result cid = %q", invs[0].ResultCID)
	}
}

func TestVersionedExecutionAmbiguous(t *testing.T) {
	s, c, rt := setupRouter(t)
	ctx := context.Background()

	defV1 := "kind: static\ncontent_type: text/plain\noutput: v1\n"
	defV2 := "kind: static\ncontent_type: text/plain\noutput: v2\n"
	sv := &models.Server{
		UserID:     models.AnonymousUserID,
		Name:       "echo",
		Definition: defV1,
		Enabled:    true,
	}
	if err := s.CreateServer(ctx, sv); err != nil {
		t.Fatal(err)
	}

	// Execute once to snapshot v1, then edit to v2.
	e := transform.New(c, nil, transform.Options{})
	if _, runErr := e.Execute(ctx, models.AnonymousUserID, "echo", defV1,
		transform.NewRequestDetails(httptest.NewRequest(http.MethodGet, "/echo", nil), nil), nil); runErr != nil {
		t.Fatal(runErr)
	}
	sv.Definition = defV2
	if err := s.UpdateServer(ctx, sv); err != nil {
		t.Fatal(err)
	}

	// Both definitions share their 8-char length prefix, so that prefix
	// is ambiguous.
	prefix := cid.Generate([]byte(defV1))[:8]
	w := get(rt, "/echo/"+prefix)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp map[string][]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not JSON: %v", err)
	}
	if len(resp["matches"]) != 2 {
		t.Errorf("matches = %v, want 2 candidates", resp["matches"])
	}
}

func TestVersionedExecutionRunsHistoricalDefinition(t *testing.T) {
	s, c, rt := setupRouter(t)
	ctx := context.Background()

	defV1 := "kind: static\ncontent_type: text/plain\noutput: first version\n"
	defV2 := "kind: static\ncontent_type: text/plain\noutput: two\n"
	sv := &models.Server{
		UserID:     models.AnonymousUserID,
		Name:       "echo",
		Definition: defV1,
		Enabled:    true,
	}
	if err := s.CreateServer(ctx, sv); err != nil {
		t.Fatal(err)
	}
	e := transform.New(c, nil, transform.Options{})
	if _, runErr := e.Execute(ctx, models.AnonymousUserID, "echo", defV1,
		transform.NewRequestDetails(httptest.NewRequest(http.MethodGet, "/echo", nil), nil), nil); runErr != nil {
		t.Fatal(runErr)
	}
	sv.Definition = defV2
	if err := s.UpdateServer(ctx, sv); err != nil {
		t.Fatal(err)
	}

	w := get(rt, "/echo/"+cid.Generate([]byte(defV1)))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if w.Body.String() != "first version" {
		t.Errorf("body = %q, want the historical output", w.Body.String())
	}
}

func TestBuiltinTargetLeavesPipeline(t *testing.T) {
	s, _, rt := setupRouter(t)
	rt.Builtin = func(path string) bool { return path == "/export" }
	createAlias(t, s, "snap", "/snap -> /export")

	w := get(rt, "/snap")
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "/export" {
		t.Errorf("location = %q", loc)
	}
}
