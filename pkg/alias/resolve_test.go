package alias

import (
	"context"
	"testing"

	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/store"
)

func setupResolver(t *testing.T) (*store.GORMStore, *Resolver) {
	t.Helper()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s, NewResolver(s)
}

func mustCreateAlias(t *testing.T, s *store.GORMStore, name, definition string) {
	t.Helper()
	a := &models.Alias{
		UserID:     models.AnonymousUserID,
		Name:       name,
		Definition: definition,
		Enabled:    true,
	}
	if err := PrimaryFields(a); err != nil {
		t.Fatalf("primary fields for %s: %v", name, err)
	}
	if err := s.CreateAlias(context.Background(), a); err != nil {
		t.Fatalf("create alias %s: %v", name, err)
	}
}

func TestResolveSpecificityTieBreak(t *testing.T) {
	s, r := setupResolver(t)
	mustCreateAlias(t, s, "foo", "/foo -> /X")
	mustCreateAlias(t, s, "bar", "/f* -> /Y [glob]")

	route, err := r.Resolve(context.Background(), models.AnonymousUserID, "/foo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if route == nil {
		t.Fatal("no route resolved")
	}
	if route.Target != "/X" {
		t.Errorf("literal alias should win: got target %q", route.Target)
	}
}

func TestResolveTypeRank(t *testing.T) {
	s, r := setupResolver(t)
	// Same literal prefix length; glob must beat regex.
	mustCreateAlias(t, s, "g", "/api* -> /G [glob]")
	mustCreateAlias(t, s, "r", `/api.* -> /R [regex]`)

	route, err := r.Resolve(context.Background(), models.AnonymousUserID, "/apix")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if route == nil || route.Target != "/G" {
		t.Fatalf("glob should outrank regex, got %+v", route)
	}
}

func TestResolveNameTieBreak(t *testing.T) {
	s, r := setupResolver(t)
	mustCreateAlias(t, s, "zeta", "/same -> /Z")
	mustCreateAlias(t, s, "alpha", "/same -> /A")

	route, err := r.Resolve(context.Background(), models.AnonymousUserID, "/same")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if route == nil || route.AliasName != "alpha" {
		t.Fatalf("lexicographic name tie-break failed, got %+v", route)
	}
}

func TestResolveIgnoreCase(t *testing.T) {
	s, r := setupResolver(t)
	mustCreateAlias(t, s, "foo", "/foo -> /X [ignore-case]")

	route, err := r.Resolve(context.Background(), models.AnonymousUserID, "/FOO")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if route == nil {
		t.Fatal("ignore-case literal should match /FOO")
	}
}

func TestResolveDisabledAndMiss(t *testing.T) {
	s, r := setupResolver(t)
	a := &models.Alias{
		UserID:     models.AnonymousUserID,
		Name:       "off",
		Definition: "/off -> /X",
		Enabled:    false,
	}
	if err := s.CreateAlias(context.Background(), a); err != nil {
		t.Fatal(err)
	}

	route, err := r.Resolve(context.Background(), models.AnonymousUserID, "/off")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if route != nil {
		t.Error("disabled alias must not resolve")
	}

	route, err = r.Resolve(context.Background(), models.AnonymousUserID, "/nothing")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if route != nil {
		t.Error("unmatched path must not resolve")
	}
}
