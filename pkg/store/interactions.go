package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hashbeam/cidhub/pkg/models"
)

// AddInteraction appends one audit row. Interactions are append-only.
func (s *GORMStore) AddInteraction(ctx context.Context, userID, entityType, entityName, action, message, content string) error {
	row := &models.EntityInteraction{
		ID:         uuid.New().String(),
		UserID:     userID,
		EntityType: entityType,
		EntityName: entityName,
		Action:     action,
		Message:    message,
		Content:    content,
	}
	return s.db.WithContext(ctx).Create(row).Error
}

// AddInteractionAt appends an audit row with an explicit timestamp. The
// importer uses it to replay change history without rewriting event times.
func (s *GORMStore) AddInteractionAt(ctx context.Context, row *models.EntityInteraction) error {
	if row.ID == "" {
		row.ID = uuid.New().String()
	}
	return s.db.WithContext(ctx).Create(row).Error
}

// ListInteractions returns the audit rows for one entity, oldest first.
func (s *GORMStore) ListInteractions(ctx context.Context, userID, entityType, entityName string) ([]*models.EntityInteraction, error) {
	var results []*models.EntityInteraction
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if entityType != "" {
		q = q.Where("entity_type = ?", entityType)
	}
	if entityName != "" {
		q = q.Where("entity_name = ?", entityName)
	}
	if err := q.Order("created_at asc").Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

// HasInteraction reports whether an identical event already exists. The
// importer dedupes change history on (user, type, name, action, message,
// timestamp).
func (s *GORMStore) HasInteraction(ctx context.Context, userID, entityType, entityName, action, message string, at time.Time) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.EntityInteraction{}).
		Where("user_id = ? AND entity_type = ? AND entity_name = ? AND action = ? AND message = ? AND created_at = ?",
			userID, entityType, entityName, action, message, at).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
