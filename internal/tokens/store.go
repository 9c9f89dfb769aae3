package tokens

import (
	"context"
	"time"

	"github.com/labeldesk/backend/internal/models"
)

// Store persists refresh-token records. Records are never deleted.
type Store interface {
	// Create inserts rec. When rec.RotatedFrom is set the predecessor's
	// rotated_to is pointed at rec in the same transaction. If the
	// predecessor already has a successor, rec.RotatedFrom is cleared.
	Create(ctx context.Context, rec *models.RefreshToken) error
	FindByID(ctx context.Context, id string) (*models.RefreshToken, error)
	// LatestRevokedForDevice returns the most recently revoked token of the
	// device that has no successor yet, or ErrNotFound.
	LatestRevokedForDevice(ctx context.Context, deviceID string) (*models.RefreshToken, error)
	// Revoke sets revoked_at unless it is already set.
	Revoke(ctx context.Context, id string, now time.Time) error
	RevokeAllForDevice(ctx context.Context, deviceID string, now time.Time) (int64, error)
	RevokeAllForAccount(ctx context.Context, accountID string, now time.Time) (int64, error)
	// RevokeFamily revokes every live token of the device, or of the account
	// when deviceID is nil, and appends entry to the security audit trail.
	// Both happen or neither does.
	RevokeFamily(ctx context.Context, accountID string, deviceID *string, now time.Time, entry models.SecurityAuditEntry) (int64, error)
}
