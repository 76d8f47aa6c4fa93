package store

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Generic GORM helpers shared by the per-entity files. They operate on the
// raw *gorm.DB and convert storage errors to domain errors.

// getByUserName retrieves a single record of type T scoped to one user.
func getByUserName[T any](db *gorm.DB, ctx context.Context, userID, name string, notFoundErr error) (*T, error) {
	var result T
	err := db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		First(&result).Error
	if err != nil {
		return nil, convertNotFoundError(err, notFoundErr)
	}
	return &result, nil
}

// listByUser retrieves all records of type T owned by userID, ordered by name.
func listByUser[T any](db *gorm.DB, ctx context.Context, userID string) ([]*T, error) {
	var results []*T
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name asc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// createWithID generates a UUID for the entity if it has no ID, then
// creates it. Unique constraint violations become dupErr.
func createWithID[T any](db *gorm.DB, ctx context.Context, entity *T, idSetter func(*T, string), currentID string, dupErr error) (string, error) {
	id := currentID
	if id == "" {
		id = uuid.New().String()
		idSetter(entity, id)
	}
	if err := db.WithContext(ctx).Create(entity).Error; err != nil {
		if isUniqueConstraintError(err) {
			return "", dupErr
		}
		return "", err
	}
	return id, nil
}

// deleteByUserName deletes the record of type T with the given owner and
// name. Returns notFoundErr if no rows were affected.
func deleteByUserName[T any](db *gorm.DB, ctx context.Context, userID, name string, notFoundErr error) error {
	var zero T
	result := db.WithContext(ctx).
		Where("user_id = ? AND name = ?", userID, name).
		Delete(&zero)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return notFoundErr
	}
	return nil
}
