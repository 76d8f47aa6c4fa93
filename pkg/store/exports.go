package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/hashbeam/cidhub/pkg/models"
)

// RecordExport appends one export record.
func (s *GORMStore) RecordExport(ctx context.Context, userID, cidValue string) error {
	row := &models.Export{
		ID:       uuid.New().String(),
		UserID:   userID,
		CIDValue: cidValue,
	}
	return s.db.WithContext(ctx).Create(row).Error
}

// ListExports returns export records for one user, newest first.
func (s *GORMStore) ListExports(ctx context.Context, userID string) ([]*models.Export, error) {
	var results []*models.Export
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("generated_at desc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}
