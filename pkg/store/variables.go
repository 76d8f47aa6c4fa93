package store

import (
	"context"

	"github.com/hashbeam/cidhub/pkg/models"
)

// GetVariable retrieves one variable by owner and name.
func (s *GORMStore) GetVariable(ctx context.Context, userID, name string) (*models.Variable, error) {
	return getByUserName[models.Variable](s.db, ctx, userID, name, models.ErrVariableNotFound)
}

// ListVariables returns all variables owned by userID, name-ordered.
func (s *GORMStore) ListVariables(ctx context.Context, userID string) ([]*models.Variable, error) {
	return listByUser[models.Variable](s.db, ctx, userID)
}

// ListEnabledVariables returns the enabled variables for execution context.
func (s *GORMStore) ListEnabledVariables(ctx context.Context, userID string) ([]*models.Variable, error) {
	var results []*models.Variable
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND enabled = ?", userID, true).
		Order("name asc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CreateVariable inserts a new variable.
func (s *GORMStore) CreateVariable(ctx context.Context, v *models.Variable) error {
	_, err := createWithID(s.db, ctx, v,
		func(vv *models.Variable, id string) { vv.ID = id },
		v.ID, models.ErrDuplicateVariable)
	if err != nil {
		return err
	}
	return s.AddInteraction(ctx, v.UserID, models.EntityVariable, v.Name,
		models.ActionCreate, "", v.Definition)
}

// UpdateVariable rewrites a variable definition.
func (s *GORMStore) UpdateVariable(ctx context.Context, v *models.Variable) error {
	existing, err := s.GetVariable(ctx, v.UserID, v.Name)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Model(existing).
		Select("Definition", "Enabled").
		Updates(v).Error
	if err != nil {
		return err
	}
	return s.AddInteraction(ctx, v.UserID, models.EntityVariable, v.Name,
		models.ActionUpdate, "", v.Definition)
}

// DeleteVariable removes a variable.
func (s *GORMStore) DeleteVariable(ctx context.Context, userID, name string) error {
	if err := deleteByUserName[models.Variable](s.db, ctx, userID, name, models.ErrVariableNotFound); err != nil {
		return err
	}
	return s.AddInteraction(ctx, userID, models.EntityVariable, name, models.ActionDelete, "", "")
}
