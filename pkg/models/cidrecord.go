package models

import "time"

// CIDRecord is one blob in the content-addressed store. Rows are
// write-once: the same bytes rewrite the same row idempotently, differing
// bytes for the same CID are a consistency error.
//
// Path is "/" + CID, matching the request path the content is served
// under. The store is a global pool; UploadedByUserID is provenance, not
// access control.
type CIDRecord struct {
	Path             string    `gorm:"primaryKey;size:95" json:"path"`
	FileData         []byte    `gorm:"type:blob" json:"-"`
	FileSize         int64     `gorm:"not null" json:"file_size"`
	UploadedByUserID string    `gorm:"size:36;index" json:"uploaded_by_user_id"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName returns the table name for CIDRecord.
func (CIDRecord) TableName() string {
	return "cids"
}

// CID returns the bare identifier without the leading slash.
func (c *CIDRecord) CID() string {
	if len(c.Path) > 0 && c.Path[0] == '/' {
		return c.Path[1:]
	}
	return c.Path
}
