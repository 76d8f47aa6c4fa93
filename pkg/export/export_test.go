package export

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hashbeam/cidhub/pkg/alias"
	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/content"
	"github.com/hashbeam/cidhub/pkg/models"
	"github.com/hashbeam/cidhub/pkg/secrets"
	"github.com/hashbeam/cidhub/pkg/store"
)

const testKey = "boot-key"

func setupWorkspace(t *testing.T) (*store.GORMStore, *content.Service, *Engine) {
	t.Helper()
	s, err := store.New(&store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	c := content.NewService(s, nil, nil)
	return s, c, NewEngine(c, nil, testKey)
}

func seedEntities(t *testing.T, s *store.GORMStore) {
	t.Helper()
	ctx := context.Background()

	a := &models.Alias{
		UserID:     models.AnonymousUserID,
		Name:       "docs",
		Definition: "/docs -> /readme",
		Enabled:    true,
	}
	if err := alias.PrimaryFields(a); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateAlias(ctx, a); err != nil {
		t.Fatal(err)
	}

	sv := &models.Server{
		UserID:     models.AnonymousUserID,
		Name:       "echo",
		Definition: "kind: static\ncontent_type: text/plain\noutput: ok\n",
		Enabled:    true,
	}
	if err := s.CreateServer(ctx, sv); err != nil {
		t.Fatal(err)
	}

	if err := s.CreateVariable(ctx, &models.Variable{
		UserID:     models.AnonymousUserID,
		Name:       "greeting",
		Definition: "hello",
		Enabled:    true,
	}); err != nil {
		t.Fatal(err)
	}

	ciphertext, err := secrets.Encrypt("hunter2", testKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.CreateSecret(ctx, &models.Secret{
		UserID:     models.AnonymousUserID,
		Name:       "api_key",
		Ciphertext: ciphertext,
		Enabled:    true,
	}); err != nil {
		t.Fatal(err)
	}
}

func selection() Selection {
	return Selection{
		Aliases: true, Servers: true, Variables: true, Secrets: true,
		CIDMap:          true,
		IncludeDisabled: true,
		SecretKey:       testKey,
		StoreContent:    true,
	}
}

func TestExportDeterminism(t *testing.T) {
	s, _, e := setupWorkspace(t)
	seedEntities(t, s)
	ctx := context.Background()

	first, err := e.Export(ctx, models.AnonymousUserID, selection())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	second, err := e.Export(ctx, models.AnonymousUserID, selection())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if first.CID != second.CID {
		t.Errorf("export CIDs differ: %s vs %s", first.CID, second.CID)
	}
}

func TestExportPayloadShape(t *testing.T) {
	s, _, e := setupWorkspace(t)
	seedEntities(t, s)

	result, err := e.Export(context.Background(), models.AnonymousUserID, selection())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(result.Payload, &top); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	for _, key := range []string{"aliases", "servers", "variables", "secrets", "version", "generated_at", "runtime", "cid_values"} {
		if _, ok := top[key]; !ok {
			t.Errorf("payload missing %q", key)
		}
	}

	var version int
	if err := json.Unmarshal(top["version"], &version); err != nil || version != PayloadVersion {
		t.Errorf("version = %s", top["version"])
	}

	// cid_values must be the last key in the raw text.
	idx := strings.LastIndex(string(result.Payload), `"cid_values"`)
	for _, key := range []string{"aliases", "version", "runtime"} {
		if strings.LastIndex(string(result.Payload), `"`+key+`"`) > idx {
			t.Errorf("%q appears after cid_values", key)
		}
	}

	// The aliases section CID resolves to a name-sorted list.
	var aliasesCID string
	if err := json.Unmarshal(top["aliases"], &aliasesCID); err != nil {
		t.Fatalf("aliases section is not a CID string: %v", err)
	}
	doc, err := e.content.Get(context.Background(), aliasesCID)
	if err != nil {
		t.Fatalf("aliases section not stored: %v", err)
	}
	var entries []definitionEntry
	if err := json.Unmarshal(doc, &entries); err != nil {
		t.Fatalf("aliases doc malformed: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "docs" {
		t.Errorf("aliases doc = %+v", entries)
	}
	if entries[0].DefinitionCID != cid.Generate([]byte("/docs -> /readme")) {
		t.Errorf("definition cid = %q", entries[0].DefinitionCID)
	}
}

func TestExportSizeProbeWritesNothing(t *testing.T) {
	s, _, e := setupWorkspace(t)
	seedEntities(t, s)
	ctx := context.Background()

	before, err := s.CIDPaths(ctx)
	if err != nil {
		t.Fatal(err)
	}

	sel := selection()
	sel.StoreContent = false
	result, err := e.Export(ctx, models.AnonymousUserID, sel)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if result.Size != len(result.Payload) || result.Size == 0 {
		t.Errorf("size = %d", result.Size)
	}

	after, err := s.CIDPaths(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Errorf("size probe wrote rows: %d -> %d", len(before), len(after))
	}
	exports, err := s.ListExports(ctx, models.AnonymousUserID)
	if err != nil {
		t.Fatal(err)
	}
	if len(exports) != 0 {
		t.Errorf("size probe recorded an export")
	}
}

func TestImportRoundTrip(t *testing.T) {
	s, _, e := setupWorkspace(t)
	seedEntities(t, s)
	ctx := context.Background()

	first, err := e.Export(ctx, models.AnonymousUserID, selection())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	// Fresh workspace.
	s2, c2, e2 := setupWorkspace(t)
	im := NewImporter(c2, e2)
	report, err := im.Apply(ctx, models.AnonymousUserID, first.Payload, testKey)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if report.Applied["aliases"] != 1 || report.Applied["servers"] != 1 ||
		report.Applied["variables"] != 1 || report.Applied["secrets"] != 1 {
		t.Errorf("applied = %v", report.Applied)
	}

	row, err := s2.GetAlias(ctx, models.AnonymousUserID, "docs")
	if err != nil {
		t.Fatalf("imported alias missing: %v", err)
	}
	if row.Definition != "/docs -> /readme" || !row.Enabled {
		t.Errorf("imported alias = %+v", row)
	}

	second, err := e2.Export(ctx, models.AnonymousUserID, selection())
	if err != nil {
		t.Fatalf("re-export: %v", err)
	}
	if second.CID != first.CID {
		t.Errorf("round-trip CID mismatch: %s vs %s", second.CID, first.CID)
	}
}

func TestImportWrongSecretKey(t *testing.T) {
	s, _, e := setupWorkspace(t)
	seedEntities(t, s)
	ctx := context.Background()

	result, err := e.Export(ctx, models.AnonymousUserID, selection())
	if err != nil {
		t.Fatal(err)
	}

	s2, c2, e2 := setupWorkspace(t)
	im := NewImporter(c2, e2)
	report, err := im.Apply(ctx, models.AnonymousUserID, result.Payload, "wrong-key")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(report.SectionErrors) != 1 || !strings.Contains(report.SectionErrors[0], "Invalid decryption key") {
		t.Errorf("section errors = %v", report.SectionErrors)
	}
	// Other sections still applied.
	if report.Applied["aliases"] != 1 {
		t.Errorf("aliases not applied despite secret failure: %v", report.Applied)
	}
	if _, err := s2.GetSecret(ctx, models.AnonymousUserID, "api_key"); err == nil {
		t.Error("secret applied despite wrong key")
	}
}

func TestImportMalformedPayload(t *testing.T) {
	s, c, e := setupWorkspace(t)
	im := NewImporter(c, e)

	if _, err := im.Apply(context.Background(), models.AnonymousUserID, []byte("not json"), ""); err == nil {
		t.Fatal("expected parse error")
	}
	aliases, err := s.ListAliases(context.Background(), models.AnonymousUserID)
	if err != nil {
		t.Fatal(err)
	}
	if len(aliases) != 0 {
		t.Error("malformed payload mutated the workspace")
	}
}

func TestImportSkipsMismatchedCIDValues(t *testing.T) {
	_, c, e := setupWorkspace(t)
	im := NewImporter(c, e)

	payload := []byte(`{
  "version": 6,
  "cid_values": {
    "AAAAAAAA": "content that does not hash to the key"
  }
}`)
	report, err := im.Apply(context.Background(), models.AnonymousUserID, payload, "")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(report.SkippedCIDs) != 1 || report.SkippedCIDs[0] != "AAAAAAAA" {
		t.Errorf("skipped = %v", report.SkippedCIDs)
	}
}
