package models

import "time"

// Server is a named user-authored transform. The definition text also
// lives in the CID store; DefinitionCID is refreshed on every save so the
// full edit history is addressable.
type Server struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"index:idx_server_user_name,unique;not null;size:36" json:"user_id"`
	Name          string    `gorm:"index:idx_server_user_name,unique;not null;size:255" json:"name"`
	Definition    string    `gorm:"type:text;not null" json:"definition"`
	DefinitionCID string    `gorm:"size:94;index" json:"definition_cid"`
	Enabled       bool      `gorm:"default:true" json:"enabled"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Server.
func (Server) TableName() string {
	return "servers"
}
