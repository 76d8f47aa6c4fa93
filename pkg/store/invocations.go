package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/hashbeam/cidhub/pkg/models"
)

// AddInvocation appends one server invocation record. Invocations are
// append-only; concurrent requests may interleave rows.
func (s *GORMStore) AddInvocation(ctx context.Context, inv *models.ServerInvocation) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(inv).Error
}

// ListInvocations returns invocation rows for one server, newest first.
func (s *GORMStore) ListInvocations(ctx context.Context, userID, serverName string) ([]*models.ServerInvocation, error) {
	var results []*models.ServerInvocation
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if serverName != "" {
		q = q.Where("server_name = ?", serverName)
	}
	if err := q.Order("invoked_at desc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// ServerSnapshotCIDs returns the distinct servers-table snapshot CIDs
// recorded by past invocations, newest first. Versioned execution mines
// these snapshots for historical definitions.
func (s *GORMStore) ServerSnapshotCIDs(ctx context.Context, userID string) ([]string, error) {
	var cids []string
	err := s.db.WithContext(ctx).
		Model(&models.ServerInvocation{}).
		Where("user_id = ? AND servers_cid <> ''", userID).
		Order("invoked_at desc").
		Distinct().
		Pluck("servers_cid", &cids).Error
	if err != nil {
		return nil, err
	}
	return cids, nil
}
