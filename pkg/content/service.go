// Package content ties the CID row store to the mirror backend. The
// database is authoritative; the mirror is a write-through copy another
// instance can boot from.
package content

import (
	"context"

	"github.com/hashbeam/cidhub/internal/logger"
	"github.com/hashbeam/cidhub/pkg/blob"
	"github.com/hashbeam/cidhub/pkg/metrics"
	"github.com/hashbeam/cidhub/pkg/store"
)

// Service stores and retrieves CID content.
type Service struct {
	store   *store.GORMStore
	mirror  blob.Backend
	metrics metrics.StoreMetrics
}

// NewService creates a content service. mirror may be nil when running
// without a mirror (tests); metrics may be nil when disabled.
func NewService(s *store.GORMStore, mirror blob.Backend, m metrics.StoreMetrics) *Service {
	return &Service{store: s, mirror: mirror, metrics: m}
}

// Put stores content and returns its CID. The mirror write is
// best-effort: the database row is the source of truth and a failed
// mirror write only degrades warm-start for other instances.
func (s *Service) Put(ctx context.Context, content []byte, userID string) (string, error) {
	id, err := s.store.PutCID(ctx, content, userID)
	if err != nil {
		return "", err
	}
	if s.metrics != nil {
		s.metrics.ObservePut(len(content))
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, id, content); err != nil {
			logger.Warn("cid mirror write failed", logger.KeyCID, id, logger.KeyError, err)
		}
	}
	return id, nil
}

// Get returns the content for a CID. Literal CIDs decode inside the row
// store without touching the database.
func (s *Service) Get(ctx context.Context, id string) ([]byte, error) {
	return s.store.GetCID(ctx, id)
}

// Exists reports whether the CID resolves.
func (s *Service) Exists(ctx context.Context, id string) (bool, error) {
	return s.store.CIDExists(ctx, id)
}

// Store exposes the underlying row store.
func (s *Service) Store() *store.GORMStore {
	return s.store
}
