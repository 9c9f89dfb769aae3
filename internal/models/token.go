package models

import "time"

// RefreshToken is the stored metadata of one issued refresh token.
// The raw secret is never persisted, only SecretHash.
type RefreshToken struct {
	ID          string     `json:"id" db:"id"`
	AccountID   string     `json:"accountId" db:"account_id"`
	DeviceID    *string    `json:"deviceId,omitempty" db:"device_id"`
	SecretHash  string     `json:"-" db:"secret_hash"`
	ExpiresAt   time.Time  `json:"expiresAt" db:"expires_at"`
	RevokedAt   *time.Time `json:"revokedAt,omitempty" db:"revoked_at"`
	RotatedFrom *string    `json:"rotatedFrom,omitempty" db:"rotated_from"`
	RotatedTo   *string    `json:"rotatedTo,omitempty" db:"rotated_to"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
}

// Revoked reports whether the token has been revoked.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}

// Expired reports whether the token is past its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !t.ExpiresAt.After(now)
}
