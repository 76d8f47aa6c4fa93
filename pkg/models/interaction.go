package models

import "time"

// EntityInteraction is an append-only audit row recorded for every entity
// save, delete, or import.
type EntityInteraction struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	UserID     string    `gorm:"index;not null;size:36" json:"user_id"`
	EntityType string    `gorm:"size:32;not null;index:idx_interaction_entity" json:"entity_type"`
	EntityName string    `gorm:"size:255;not null;index:idx_interaction_entity" json:"entity_name"`
	Action     string    `gorm:"size:32;not null" json:"action"`
	Message    string    `gorm:"type:text" json:"message,omitempty"`
	Content    string    `gorm:"type:text" json:"content,omitempty"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for EntityInteraction.
func (EntityInteraction) TableName() string {
	return "entity_interactions"
}

// Interaction actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionImport = "import"
)

// Entity types recorded in interactions and used by the importer.
const (
	EntityAlias    = "alias"
	EntityServer   = "server"
	EntityVariable = "variable"
	EntitySecret   = "secret"
)
