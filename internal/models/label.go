package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	LabelStatusPurchased = "purchased"
	LabelStatusVoided    = "voided"

	TrackingStatusPending = "pending"
	TrackingStatusActive  = "active"
	TrackingStatusFailed  = "failed"
)

// Label is a purchased shipping label. Its price was debited from the owning
// account through the ledger with the label id as reference.
type Label struct {
	ID             string          `json:"id" db:"id"`
	AccountID      string          `json:"accountId" db:"account_id"`
	Carrier        string          `json:"carrier" db:"carrier"`
	TrackingNumber string          `json:"trackingNumber" db:"tracking_number"`
	Price          decimal.Decimal `json:"price" db:"price"`
	Status         string          `json:"status" db:"status"`
	TrackingStatus string          `json:"trackingStatus" db:"tracking_status"`
	CreatedAt      time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time       `json:"updatedAt" db:"updated_at"`
}
