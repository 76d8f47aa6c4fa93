package store

import (
	"bytes"
	"context"
	"fmt"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/blob"
	"github.com/hashbeam/cidhub/pkg/cid"
	"github.com/hashbeam/cidhub/pkg/models"
)

// MirrorError is a fatal consistency failure in the CID mirror. Callers
// must terminate with a diagnostic; mirror corruption is never patched
// silently.
type MirrorError struct {
	CID    string
	Reason string
}

func (e *MirrorError) Error() string {
	return fmt.Sprintf("cid mirror inconsistency for %q: %s", e.CID, e.Reason)
}

// LoadMirror ingests every blob from the mirror backend into the store,
// enforcing the mirror protocol:
//
//  1. each key must be a structurally valid CID (diagnostic quotes the
//     violated rule),
//  2. each key must equal the CID generated from its content,
//  3. an existing row with different bytes is fatal,
//  4. otherwise insert if absent.
//
// An empty mirror is fine. Returns the number of blobs ingested.
func (s *GORMStore) LoadMirror(ctx context.Context, backend blob.Backend) (int, error) {
	keys, err := backend.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list cid mirror: %w", err)
	}

	loaded := 0
	for _, key := range keys {
		if err := cid.Validate(key); err != nil {
			return loaded, &MirrorError{CID: key, Reason: fmt.Sprintf("filename is not a valid CID: %v", err)}
		}

		content, err := backend.Get(ctx, key)
		if err != nil {
			return loaded, fmt.Errorf("failed to read mirror blob %q: %w", key, err)
		}

		expected := cid.Generate(content)
		if expected != key {
			return loaded, &MirrorError{
				CID:    key,
				Reason: fmt.Sprintf("content hashes to %q, filename claims %q", expected, key),
			}
		}

		if existing, err := s.GetCIDRecord(ctx, key); err == nil {
			if !bytes.Equal(existing.FileData, content) {
				return loaded, &MirrorError{CID: key, Reason: "store row exists with different content"}
			}
			continue
		} else if err != models.ErrCIDNotFound {
			return loaded, err
		}

		if _, err := s.PutCID(ctx, content, models.AnonymousUserID); err != nil {
			return loaded, err
		}
		loaded++
	}

	logger.Info("cid mirror loaded", logger.KeySize, len(keys), "ingested", loaded)
	return loaded, nil
}

// VerifyMirror checks every blob in the backend against the mirror
// protocol without mutating the store. It returns one error per violation.
func VerifyMirror(ctx context.Context, backend blob.Backend) []error {
	keys, err := backend.List(ctx)
	if err != nil {
		return []error{fmt.Errorf("failed to list cid mirror: %w", err)}
	}

	var problems []error
	for _, key := range keys {
		if err := cid.Validate(key); err != nil {
			problems = append(problems, &MirrorError{CID: key, Reason: fmt.Sprintf("filename is not a valid CID: %v", err)})
			continue
		}
		content, err := backend.Get(ctx, key)
		if err != nil {
			problems = append(problems, fmt.Errorf("failed to read mirror blob %q: %w", key, err))
			continue
		}
		if expected := cid.Generate(content); expected != key {
			problems = append(problems, &MirrorError{
				CID:    key,
				Reason: fmt.Sprintf("content hashes to %q, filename claims %q", expected, key),
			})
		}
	}
	return problems
}
