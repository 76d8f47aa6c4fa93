package store

import (
	"context"

	"github.com/hashbeam/cidhub/pkg/models"
)

// GetSecret retrieves one secret by owner and name. The row carries
// ciphertext only.
func (s *GORMStore) GetSecret(ctx context.Context, userID, name string) (*models.Secret, error) {
	return getByUserName[models.Secret](s.db, ctx, userID, name, models.ErrSecretNotFound)
}

// ListSecrets returns all secrets owned by userID, name-ordered.
func (s *GORMStore) ListSecrets(ctx context.Context, userID string) ([]*models.Secret, error) {
	return listByUser[models.Secret](s.db, ctx, userID)
}

// ListEnabledSecrets returns the enabled secrets for execution context.
func (s *GORMStore) ListEnabledSecrets(ctx context.Context, userID string) ([]*models.Secret, error) {
	var results []*models.Secret
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND enabled = ?", userID, true).
		Order("name asc").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// CreateSecret inserts a new secret. The interaction row records the name
// only, never the ciphertext.
func (s *GORMStore) CreateSecret(ctx context.Context, sec *models.Secret) error {
	_, err := createWithID(s.db, ctx, sec,
		func(ss *models.Secret, id string) { ss.ID = id },
		sec.ID, models.ErrDuplicateSecret)
	if err != nil {
		return err
	}
	return s.AddInteraction(ctx, sec.UserID, models.EntitySecret, sec.Name,
		models.ActionCreate, "", "")
}

// UpdateSecret rewrites a secret's ciphertext.
func (s *GORMStore) UpdateSecret(ctx context.Context, sec *models.Secret) error {
	existing, err := s.GetSecret(ctx, sec.UserID, sec.Name)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Model(existing).
		Select("Ciphertext", "Enabled").
		Updates(sec).Error
	if err != nil {
		return err
	}
	return s.AddInteraction(ctx, sec.UserID, models.EntitySecret, sec.Name,
		models.ActionUpdate, "", "")
}

// DeleteSecret removes a secret.
func (s *GORMStore) DeleteSecret(ctx context.Context, userID, name string) error {
	if err := deleteByUserName[models.Secret](s.db, ctx, userID, name, models.ErrSecretNotFound); err != nil {
		return err
	}
	return s.AddInteraction(ctx, userID, models.EntitySecret, name, models.ActionDelete, "", "")
}
