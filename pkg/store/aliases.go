package store

import (
	"context"

	"github.com/hashbeam/cidhub/pkg/models"
)

// GetAlias retrieves one alias by owner and name.
func (s *GORMStore) GetAlias(ctx context.Context, userID, name string) (*models.Alias, error) {
	return getByUserName[models.Alias](s.db, ctx, userID, name, models.ErrAliasNotFound)
}

// ListAliases returns all aliases owned by userID, name-ordered.
func (s *GORMStore) ListAliases(ctx context.Context, userID string) ([]*models.Alias, error) {
	return listByUser[models.Alias](s.db, ctx, userID)
}

// ListEnabledAliases returns the enabled aliases for routing.
func (s *GORMStore) ListEnabledAliases(ctx context.Context, userID string) ([]*models.Alias, error) {
	var results []*models.Alias
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND enabled = ?", userID, true).
		Order("name asc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CreateAlias inserts a new alias and appends the create interaction.
func (s *GORMStore) CreateAlias(ctx context.Context, alias *models.Alias) error {
	_, err := createWithID(s.db, ctx, alias,
		func(a *models.Alias, id string) { a.ID = id },
		alias.ID, models.ErrDuplicateAlias)
	if err != nil {
		return err
	}
	return s.AddInteraction(ctx, alias.UserID, models.EntityAlias, alias.Name,
		models.ActionCreate, "", alias.Definition)
}

// UpdateAlias rewrites an alias definition and appends the update
// interaction. UpdatedAt bumps via gorm autoUpdateTime.
func (s *GORMStore) UpdateAlias(ctx context.Context, alias *models.Alias) error {
	existing, err := s.GetAlias(ctx, alias.UserID, alias.Name)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Model(existing).
		Select("Definition", "Enabled", "MatchType", "Pattern", "Target", "IgnoreCase").
		Updates(alias).Error
	if err != nil {
		return err
	}
	return s.AddInteraction(ctx, alias.UserID, models.EntityAlias, alias.Name,
		models.ActionUpdate, "", alias.Definition)
}

// DeleteAlias removes an alias and appends the delete interaction.
func (s *GORMStore) DeleteAlias(ctx context.Context, userID, name string) error {
	if err := deleteByUserName[models.Alias](s.db, ctx, userID, name, models.ErrAliasNotFound); err != nil {
		return err
	}
	return s.AddInteraction(ctx, userID, models.EntityAlias, name, models.ActionDelete, "", "")
}
