package models

import "time"

// Export records one produced workspace snapshot.
type Export struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      string    `gorm:"index;size:36" json:"user_id"`
	CIDValue    string    `gorm:"size:94;not null;index" json:"cid_value"`
	GeneratedAt time.Time `gorm:"autoCreateTime" json:"generated_at"`
}

// TableName returns the table name for Export.
func (Export) TableName() string {
	return "exports"
}
