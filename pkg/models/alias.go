package models

import "time"

// Alias is a named request rewrite rule. Definition holds the full DSL
// text; the parsed primary route fields are denormalized for listing
// without re-parsing.
type Alias struct {
	ID         string `gorm:"primaryKey;size:36" json:"id"`
	UserID     string `gorm:"index:idx_alias_user_name,unique;not null;size:36" json:"user_id"`
	Name       string `gorm:"index:idx_alias_user_name,unique;not null;size:255" json:"name"`
	Definition string `gorm:"type:text;not null" json:"definition"`
	Enabled    bool   `gorm:"default:true" json:"enabled"`

	// Primary route parsed from the first definition line.
	MatchType  string `gorm:"size:16" json:"match_type,omitempty"`
	Pattern    string `gorm:"size:1024" json:"pattern,omitempty"`
	Target     string `gorm:"size:1024" json:"target,omitempty"`
	IgnoreCase bool   `json:"ignore_case,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName returns the table name for Alias.
func (Alias) TableName() string {
	return "aliases"
}
