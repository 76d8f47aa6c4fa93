package models

import "time"

// AnonymousUserID is the owner recorded for unauthenticated requests.
// CID bytes are a global pool; entity rows still need an owner.
const AnonymousUserID = "anonymous"

// User is an account that owns aliases, servers, variables and secrets.
type User struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Username     string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	PasswordHash string    `gorm:"size:255" json:"-"`
	Enabled      bool      `gorm:"default:true" json:"enabled"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for User.
func (User) TableName() string {
	return "users"
}
