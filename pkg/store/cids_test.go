package store

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/models"
)

// hashedContent is long enough that its CID is a hash, not a literal.
var hashedContent = []byte(strings.Repeat("cidhub stores content under its hash. ", 4))

func TestPutCIDIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.PutCID(ctx, hashedContent, models.AnonymousUserID)
	if err != nil {
		t.Fatalf("PutCID: %v", err)
	}
	if first != cid.Generate(hashedContent) {
		t.Errorf("PutCID = %q, want generated CID", first)
	}

	second, err := s.PutCID(ctx, hashedContent, models.AnonymousUserID)
	if err != nil {
		t.Fatalf("second PutCID: %v", err)
	}
	if second != first {
		t.Errorf("second PutCID = %q, want %q", second, first)
	}

	got, err := s.GetCID(ctx, first)
	if err != nil {
		t.Fatalf("GetCID: %v", err)
	}
	if !bytes.Equal(got, hashedContent) {
		t.Errorf("GetCID round-trip mismatch")
	}
}

func TestPutCIDConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Forge a row whose bytes do not match its path. PutCID must refuse
	// to paper over it.
	id := cid.Generate(hashedContent)
	forged := &models.CIDRecord{
		Path:             "/" + id,
		FileData:         []byte("different bytes"),
		FileSize:         15,
		UploadedByUserID: models.AnonymousUserID,
	}
	if err := s.DB().Create(forged).Error; err != nil {
		t.Fatalf("seed forged row: %v", err)
	}

	if _, err := s.PutCID(ctx, hashedContent, models.AnonymousUserID); err != models.ErrCIDConflict {
		t.Errorf("PutCID over forged row = %v, want ErrCIDConflict", err)
	}
}

func TestGetCIDLiteralNeverTouchesStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	content := []byte("short")
	id := cid.Generate(content)
	if !cid.IsLiteral(id) {
		t.Fatalf("expected literal CID for %q", content)
	}

	// Never stored, yet it resolves.
	got, err := s.GetCID(ctx, id)
	if err != nil {
		t.Fatalf("GetCID literal: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("literal decode = %q, want %q", got, content)
	}

	exists, err := s.CIDExists(ctx, id)
	if err != nil {
		t.Fatalf("CIDExists: %v", err)
	}
	if !exists {
		t.Error("literal CID should always exist")
	}
}

func TestGetCIDNotFound(t *testing.T) {
	s := newTestStore(t)
	id := cid.Generate(hashedContent)
	if _, err := s.GetCID(context.Background(), id); err != models.ErrCIDNotFound {
		t.Errorf("GetCID = %v, want ErrCIDNotFound", err)
	}
}

func TestCIDPaths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.PutCID(ctx, hashedContent, models.AnonymousUserID)
	if err != nil {
		t.Fatalf("PutCID: %v", err)
	}

	paths, err := s.CIDPaths(ctx)
	if err != nil {
		t.Fatalf("CIDPaths: %v", err)
	}
	if _, ok := paths["/"+id]; !ok {
		t.Errorf("CIDPaths missing /%s", id)
	}
}
