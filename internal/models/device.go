package models

import "time"

// Device is a client device known for an account. A device becomes trusted
// once an OTP sent for it has been verified.
type Device struct {
	ID          string     `json:"id" db:"id"`
	AccountID   string     `json:"accountId" db:"account_id"`
	Fingerprint string     `json:"fingerprint" db:"fingerprint"`
	Label       string     `json:"label" db:"label"`
	TrustedAt   *time.Time `json:"trustedAt,omitempty" db:"trusted_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

func (d *Device) Trusted() bool {
	return d.TrustedAt != nil
}
