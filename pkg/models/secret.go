package models

import "time"

// Secret is a named encrypted value. Ciphertext is only decryptable with
// the user-supplied key; the service never stores the key.
type Secret struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"index:idx_secret_user_name,unique;not null;size:36" json:"user_id"`
	Name       string    `gorm:"index:idx_secret_user_name,unique;not null;size:255" json:"name"`
	Ciphertext string    `gorm:"type:text" json:"-"`
	Enabled    bool      `gorm:"default:true" json:"enabled"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Secret.
func (Secret) TableName() string {
	return "secrets"
}
