package blob

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashbeam/cidhub/pkg/cid"
)

func TestFSBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := NewFSBackend(dir, false)
	if err != nil {
		t.Fatalf("NewFSBackend: %v", err)
	}

	content := []byte("mirror me")
	id := cid.Generate(content)

	if err := b.Put(ctx, id, content); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := b.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("Get = %q, want %q", got, content)
	}

	ok, err := b.Exists(ctx, id)
	if err != nil || !ok {
		t.Errorf("Exists = %v, %v", ok, err)
	}

	cids, err := b.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(cids) != 1 || cids[0] != id {
		t.Errorf("List = %v, want [%s]", cids, id)
	}
}

func TestFSBackendMissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")

	if _, err := NewFSBackend(missing, false); err == nil {
		t.Fatal("expected error for missing directory without create")
	}

	if _, err := NewFSBackend(missing, true); err != nil {
		t.Fatalf("create=true should make the directory: %v", err)
	}
	if _, err := os.Stat(missing); err != nil {
		t.Fatalf("directory not created: %v", err)
	}
}

func TestFSBackendIgnoresHiddenAndDirs(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}

	b, err := NewFSBackend(dir, false)
	if err != nil {
		t.Fatal(err)
	}
	cids, err := b.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cids) != 0 {
		t.Errorf("List should skip hidden files and subdirectories, got %v", cids)
	}
}

func TestFSBackendGetMissing(t *testing.T) {
	b, err := NewFSBackend(t.TempDir(), false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Get(context.Background(), cid.Generate([]byte("absent"))); err != ErrNotFound {
		t.Errorf("Get missing = %v, want ErrNotFound", err)
	}
}
