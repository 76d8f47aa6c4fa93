package models

import "time"

// Variable is a named plaintext value injected into server execution
// context.
type Variable struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"index:idx_variable_user_name,unique;not null;size:36" json:"user_id"`
	Name       string    `gorm:"index:idx_variable_user_name,unique;not null;size:255" json:"name"`
	Definition string    `gorm:"type:text" json:"definition"`
	Enabled    bool      `gorm:"default:true" json:"enabled"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Variable.
func (Variable) TableName() string {
	return "variables"
}
