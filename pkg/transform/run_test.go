package transform

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/store"
)

func setupExecutor(t *testing.T) (*store.GORMStore, *content.Service, *Executor) {
	t.Helper()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	c := content.NewService(s, nil, nil)
	return s, c, New(c, nil, Options{})
}

func testRequest(path string) *RequestDetails {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	return NewRequestDetails(r, nil)
}

func TestExecuteStatic(t *testing.T) {
	_, c, e := setupExecutor(t)

	outcome, runErr := e.Execute(context.Background(), models.AnonymousUserID,
		"hello", "kind: static\ncontent_type: text/plain\noutput: ok\n",
		testRequest("/hello"), nil)
	if runErr != nil {
		t.Fatalf("Execute: %v", runErr)
	}

	if outcome.ResultCID != cid.Generate([]byte("ok")) {
		t.Errorf("result cid = %q", outcome.ResultCID)
	}
	if outcome.RedirectPath != "/"+outcome.ResultCID+".txt" {
		t.Errorf("redirect = %q", outcome.RedirectPath)
	}
	body, err := c.Get(context.Background(), outcome.ResultCID)
	if err != nil {
		t.Fatalf("Get result: %v", err)
	}
	if string(body) != "ok" {
		t.Errorf("stored body = %q", body)
	}
}

func TestExecuteTemplateEchoesPath(t *testing.T) {
	_, _, e := setupExecutor(t)

	def := "kind: template\ncontent_type: text/plain\ntemplate: \"{{ .Request.Path }}\"\n"
	outcome, runErr := e.Execute(context.Background(), models.AnonymousUserID,
		"echo", def, testRequest("/echo/hello"), []string{"hello"})
	if runErr != nil {
		t.Fatalf("Execute: %v", runErr)
	}
	if outcome.ResultCID != cid.Generate([]byte("/echo/hello")) {
		t.Errorf("result cid = %q, want cid of request path", outcome.ResultCID)
	}
}

func TestExecuteGrepOverChainedCID(t *testing.T) {
	_, c, e := setupExecutor(t)
	ctx := context.Background()

	dataCID, err := c.Put(ctx, []byte("error\nok\n"), models.AnonymousUserID)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}

	def := "kind: pipeline\ncontent_type: text/plain\nsteps:\n  - op: grep\n    pattern: \"{arg0}\"\n"
	outcome, runErr := e.Execute(ctx, models.AnonymousUserID, "wrapper", def,
		testRequest("/wrapper/error/"+dataCID), []string{"error", dataCID})
	if runErr != nil {
		t.Fatalf("Execute: %v", runErr)
	}

	body, err := c.Get(ctx, outcome.ResultCID)
	if err != nil {
		t.Fatalf("Get result: %v", err)
	}
	if string(body) != "error\n" {
		t.Errorf("grep output = %q, want %q", body, "error\n")
	}
}

func TestExecuteChainedServerSource(t *testing.T) {
	s, _, e := setupExecutor(t)
	ctx := context.Background()

	src := &models.Server{
		UserID:     models.AnonymousUserID,
		Name:       "feed",
		Definition: "kind: static\ncontent_type: text/plain\noutput: \"a\\nb\\n\"\n",
		Enabled:    true,
	}
	if err := s.CreateServer(ctx, src); err != nil {
		t.Fatalf("CreateServer: %v", err)
	}

	def := "kind: pipeline\ncontent_type: text/plain\nsteps:\n  - op: upper\n"
	outcome, runErr := e.Execute(ctx, models.AnonymousUserID, "shout", def,
		testRequest("/shout/feed"), []string{"feed"})
	if runErr != nil {
		t.Fatalf("Execute: %v", runErr)
	}
	if outcome.ResultCID != cid.Generate([]byte("A\nB\n")) {
		t.Errorf("result cid = %q, want cid of uppercased feed output", outcome.ResultCID)
	}
}

func TestInvocationRowOnSuccessOnly(t *testing.T) {
	s, _, e := setupExecutor(t)
	ctx := context.Background()

	_, runErr := e.Execute(ctx, models.AnonymousUserID, "ok",
		"kind: static\noutput: fine\n", testRequest("/ok"), nil)
	if runErr != nil {
		t.Fatalf("Execute: %v", runErr)
	}
	invs, err := s.ListInvocations(ctx, models.AnonymousUserID, "ok")
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 1 {
		t.Fatalf("got %d invocation rows, want 1", len(invs))
	}
	inv := invs[0]
	for name, v := range map[string]string{
		"result_cid":      inv.ResultCID,
		"servers_cid":     inv.ServersCID,
		"variables_cid":   inv.VariablesCID,
		"secrets_cid":     inv.SecretsCID,
		"request_details": inv.RequestDetailsCID,
		"invocation_cid":  inv.InvocationCID,
	} {
		if v == "" {
			t.Errorf("%s is empty", name)
		}
	}

	_, runErr = e.Execute(ctx, models.AnonymousUserID, "broken",
		"kind: template\ntemplate: \"{{ .Missing.Field }}\"\n", testRequest("/broken"), nil)
	if runErr == nil {
		t.Fatal("expected run error")
	}
	if !strings.Contains(runErr.Body(), "--- definition ---") {
		t.Errorf("diagnostic body missing definition section: %q", runErr.Body())
	}
	invs, err = s.ListInvocations(ctx, models.AnonymousUserID, "broken")
	if err != nil {
		t.Fatal(err)
	}
	if len(invs) != 0 {
		t.Errorf("failed run must not write an invocation row, got %d", len(invs))
	}
}

func TestResolveVersion(t *testing.T) {
	s, _, e := setupExecutor(t)
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
		t.Fatalf("CreateServer: %v", err)
	}

	// An invocation snapshots the v1 servers table.
	if _, runErr := e.Execute(ctx, models.AnonymousUserID, "echo", defV1,
		testRequest("/echo"), nil); runErr != nil {
		t.Fatalf("Execute v1: %v", runErr)
	}

	sv.Definition = defV2
	if err := s.UpdateServer(ctx, sv); err != nil {
		t.Fatalf("UpdateServer: %v", err)
	}

	v1CID := cid.Generate([]byte(defV1))
	v2CID := cid.Generate([]byte(defV2))

	// The two definitions share a length prefix, so the full v1 CID is
	// the shortest prefix guaranteed unique here.
	gotDef, gotCID, err := e.ResolveVersion(ctx, models.AnonymousUserID, "echo", v1CID)
	if err != nil {
		t.Fatalf("ResolveVersion: %v", err)
	}
	if gotCID != v1CID || gotDef != defV1 {
		t.Errorf("resolved %q, want the v1 definition", gotCID)
	}

	if _, _, err := e.ResolveVersion(ctx, models.AnonymousUserID, "echo", "!!nope"); err != models.ErrServerNotFound {
		t.Errorf("no match = %v, want ErrServerNotFound", err)
	}

	// Empty prefix matches every version.
	_, _, err = e.ResolveVersion(ctx, models.AnonymousUserID, "echo", "")
	var ambiguous *AmbiguousVersionError
	if !errors.As(err, &ambiguous) {
		t.Fatalf("expected AmbiguousVersionError, got %v", err)
	}
	if len(ambiguous.Matches) != 2 {
		t.Errorf("ambiguous matches = %v, want both %s and %s", ambiguous.Matches, v1CID, v2CID)
	}
}

func TestRunForward(t *testing.T) {
	_, _, e := setupExecutor(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	}))
	defer upstream.Close()

	def := "kind: forward\nforward:\n  url: " + upstream.URL + "/{arg0}\n"
	outcome, runErr := e.Execute(context.Background(), models.AnonymousUserID, "proxy", def,
		testRequest("/proxy/widgets"), []string{"widgets"})
	if runErr != nil {
		t.Fatalf("Execute: %v", runErr)
	}
	if outcome.ContentType != "application/json" {
		t.Errorf("content type = %q, want upstream's", outcome.ContentType)
	}
	if outcome.ResultCID != cid.Generate([]byte(`{"path":"/widgets"}`)) {
		t.Errorf("result cid = %q", outcome.ResultCID)
	}
}
