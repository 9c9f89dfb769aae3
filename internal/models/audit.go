package models

import "time"

// SecurityAuditEntry is an append-only security event row.
type SecurityAuditEntry struct {
	ID        int64     `json:"id" db:"id"`
	AccountID *string   `json:"accountId,omitempty" db:"account_id"`
	Result    string    `json:"result" db:"result"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
