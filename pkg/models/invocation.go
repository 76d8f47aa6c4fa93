package models

import "time"

// ServerInvocation is the append-only lineage record for one server
// execution. Every cross-reference is a CID, so an invocation can be
// replayed from the content store alone.
type ServerInvocation struct {
	ID                string    `gorm:"primaryKey;size:36" json:"id"`
	UserID            string    `gorm:"index;size:36" json:"user_id"`
	ServerName        string    `gorm:"size:255;not null;index" json:"server_name"`
	ResultCID         string    `gorm:"column:result_cid;size:94;not null" json:"result_cid"`
	ServersCID        string    `gorm:"column:servers_cid;size:94" json:"servers_cid"`
	VariablesCID      string    `gorm:"column:variables_cid;size:94" json:"variables_cid"`
	SecretsCID        string    `gorm:"column:secrets_cid;size:94" json:"secrets_cid"`
	RequestDetailsCID string    `gorm:"column:request_details_cid;size:94" json:"request_details_cid"`
	InvocationCID     string    `gorm:"column:invocation_cid;size:94" json:"invocation_cid"`
	InvokedAt         time.Time `gorm:"autoCreateTime;index" json:"invoked_at"`
}

// TableName returns the table name for ServerInvocation.
func (ServerInvocation) TableName() string {
	return "server_invocations"
}
