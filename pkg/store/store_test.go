package store

import (
	"context"
	"testing"

	"github.com/hashbeam/cidhub/pkg/models"
)

func newTestStore(t *testing.T) *GORMStore {
	t.Helper()
	s, err := New(&Config{
		Type:   DatabaseTypeSQLite,
		SQLite: SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestAliasCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &models.Alias{
		UserID:     models.AnonymousUserID,
		Name:       "docs",
		Definition: "/docs -> /target",
		Enabled:    true,
	}
	if err := s.CreateAlias(ctx, a); err != nil {
		t.Fatalf("CreateAlias: %v", err)
	}
	if a.ID == "" {
		t.Error("CreateAlias should assign an ID")
	}

	got, err := s.GetAlias(ctx, models.AnonymousUserID, "docs")
	if err != nil {
		t.Fatalf("GetAlias: %v", err)
	}
	if got.Definition != a.Definition {
		t.Errorf("definition = %q, want %q", got.Definition, a.Definition)
	}

	got.Definition = "/docs -> /elsewhere"
	if err := s.UpdateAlias(ctx, got); err != nil {
		t.Fatalf("UpdateAlias: %v", err)
	}
	updated, err := s.GetAlias(ctx, models.AnonymousUserID, "docs")
	if err != nil {
		t.Fatalf("GetAlias after update: %v", err)
	}
	if updated.Definition != "/docs -> /elsewhere" {
		t.Errorf("definition after update = %q", updated.Definition)
	}

	if err := s.DeleteAlias(ctx, models.AnonymousUserID, "docs"); err != nil {
		t.Fatalf("DeleteAlias: %v", err)
	}
	if _, err := s.GetAlias(ctx, models.AnonymousUserID, "docs"); err != models.ErrAliasNotFound {
		t.Errorf("GetAlias after delete = %v, want ErrAliasNotFound", err)
	}
}

func TestDuplicateAlias(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &models.Alias{UserID: models.AnonymousUserID, Name: "dup", Definition: "/dup -> /a", Enabled: true}
	if err := s.CreateAlias(ctx, a); err != nil {
		t.Fatalf("CreateAlias: %v", err)
	}
	b := &models.Alias{UserID: models.AnonymousUserID, Name: "dup", Definition: "/dup -> /b", Enabled: true}
	if err := s.CreateAlias(ctx, b); err != models.ErrDuplicateAlias {
		t.Errorf("second CreateAlias = %v, want ErrDuplicateAlias", err)
	}
}

func TestAliasesScopedByUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.EnsureUser(ctx, "other", "other"); err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	mine := &models.Alias{UserID: models.AnonymousUserID, Name: "home", Definition: "/home -> /a", Enabled: true}
	theirs := &models.Alias{UserID: "other", Name: "home", Definition: "/home -> /b", Enabled: true}
	if err := s.CreateAlias(ctx, mine); err != nil {
		t.Fatalf("CreateAlias mine: %v", err)
	}
	if err := s.CreateAlias(ctx, theirs); err != nil {
		t.Fatalf("CreateAlias theirs: %v", err)
	}

	rows, err := s.ListAliases(ctx, "other")
	if err != nil {
		t.Fatalf("ListAliases: %v", err)
	}
	if len(rows) != 1 || rows[0].Definition != "/home -> /b" {
		t.Errorf("ListAliases(other) = %+v", rows)
	}
}

func TestServerCreateStoresDefinitionCID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	srv := &models.Server{
		UserID:     models.AnonymousUserID,
		Name:       "echo",
		Definition: "kind: template\ntemplate: \"{{.Request.Path}}\"\n",
		Enabled:    true,
	}
	if err := s.CreateServer(ctx, srv); err != nil {
		t.Fatalf("CreateServer: %v", err)
	}
	if srv.DefinitionCID == "" {
		t.Fatal("CreateServer should set DefinitionCID")
	}

	// The definition bytes must resolve through the pool.
	content, err := s.GetCID(ctx, srv.DefinitionCID)
	if err != nil {
		t.Fatalf("GetCID(%s): %v", srv.DefinitionCID, err)
	}
	if string(content) != srv.Definition {
		t.Errorf("pool content = %q, want definition", content)
	}

	firstCID := srv.DefinitionCID
	srv.Definition = "kind: static\nbody: hi\n"
	if err := s.UpdateServer(ctx, srv); err != nil {
		t.Fatalf("UpdateServer: %v", err)
	}
	updated, err := s.GetServer(ctx, models.AnonymousUserID, "echo")
	if err != nil {
		t.Fatalf("GetServer: %v", err)
	}
	if updated.DefinitionCID == "" || updated.DefinitionCID == firstCID {
		t.Errorf("DefinitionCID after update = %q", updated.DefinitionCID)
	}
	if content, _ := s.GetCID(ctx, updated.DefinitionCID); string(content) != "kind: static\nbody: hi\n" {
		t.Errorf("updated pool content = %q", content)
	}
}

func TestListEnabledFiltersDisabled(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	on := &models.Variable{UserID: models.AnonymousUserID, Name: "on", Definition: "1", Enabled: true}
	off := &models.Variable{UserID: models.AnonymousUserID, Name: "off", Definition: "0", Enabled: false}
	if err := s.CreateVariable(ctx, on); err != nil {
		t.Fatalf("CreateVariable: %v", err)
	}
	if err := s.CreateVariable(ctx, off); err != nil {
		t.Fatalf("CreateVariable: %v", err)
	}

	enabled, err := s.ListEnabledVariables(ctx, models.AnonymousUserID)
	if err != nil {
		t.Fatalf("ListEnabledVariables: %v", err)
	}
	if len(enabled) != 1 || enabled[0].Name != "on" {
		t.Errorf("ListEnabledVariables = %+v", enabled)
	}

	all, err := s.ListVariables(ctx, models.AnonymousUserID)
	if err != nil {
		t.Fatalf("ListVariables: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("ListVariables returned %d rows, want 2", len(all))
	}
}

func TestInteractionLog(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &models.Alias{UserID: models.AnonymousUserID, Name: "logged", Definition: "/logged -> /x", Enabled: true}
	if err := s.CreateAlias(ctx, a); err != nil {
		t.Fatalf("CreateAlias: %v", err)
	}
	a.Definition = "/logged -> /y"
	if err := s.UpdateAlias(ctx, a); err != nil {
		t.Fatalf("UpdateAlias: %v", err)
	}
	if err := s.DeleteAlias(ctx, models.AnonymousUserID, "logged"); err != nil {
		t.Fatalf("DeleteAlias: %v", err)
	}

	events, err := s.ListInteractions(ctx, models.AnonymousUserID, models.EntityAlias, "logged")
	if err != nil {
		t.Fatalf("ListInteractions: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	actions := []string{events[0].Action, events[1].Action, events[2].Action}
	want := []string{models.ActionCreate, models.ActionUpdate, models.ActionDelete}
	for i := range want {
		if actions[i] != want[i] {
			t.Errorf("event %d action = %q, want %q", i, actions[i], want[i])
		}
	}
}

func TestInvocationsAndExports(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	resultCID, err := s.PutCID(ctx, []byte("a result body that is long enough to hash rather than inline"+
		" because it exceeds the literal threshold for CIDs"), models.AnonymousUserID)
	if err != nil {
		t.Fatalf("PutCID: %v", err)
	}

	inv := &models.ServerInvocation{
		UserID:     models.AnonymousUserID,
		ServerName: "echo",
		ResultCID:  resultCID,
	}
	if err := s.AddInvocation(ctx, inv); err != nil {
		t.Fatalf("AddInvocation: %v", err)
	}
	rows, err := s.ListInvocations(ctx, models.AnonymousUserID, "echo")
	if err != nil {
		t.Fatalf("ListInvocations: %v", err)
	}
	if len(rows) != 1 || rows[0].ResultCID != resultCID {
		t.Errorf("ListInvocations = %+v", rows)
	}

	if err := s.RecordExport(ctx, models.AnonymousUserID, resultCID); err != nil {
		t.Fatalf("RecordExport: %v", err)
	}
	exports, err := s.ListExports(ctx, models.AnonymousUserID)
	if err != nil {
		t.Fatalf("ListExports: %v", err)
	}
	if len(exports) != 1 || exports[0].CIDValue != resultCID {
		t.Errorf("ListExports = %+v", exports)
	}
}
