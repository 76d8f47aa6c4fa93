package store

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hashbeam/cidhub/pkg/models"
)

// GetUserByUsername retrieves a user account.
func (s *GORMStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, convertNotFoundError(err, models.ErrUserNotFound)
	}
	return &user, nil
}

// CreateUser inserts a user with a bcrypt-hashed password.
func (s *GORMStore) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Username:     username,
		PasswordHash: string(hash),
		Enabled:      true,
	}
	_, err = createWithID(s.db, ctx, user,
		func(u *models.User, id string) { u.ID = id },
		user.ID, models.ErrDuplicateUser)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies a username/password pair and returns the account.
func (s *GORMStore) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, models.ErrUserNotFound
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

// EnsureUser creates the account if it does not exist. Boot uses this for
// the anonymous owner row.
func (s *GORMStore) EnsureUser(ctx context.Context, id, username string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		return tx.Create(&models.User{ID: id, Username: username, Enabled: true}).Error
	})
}
