// Package tokens issues, verifies, rotates and revokes refresh tokens.
//
// A token string is "<id>.<secret>". The id is a ULID used for lookup; only
// an argon2id hash of the secret is stored. Presenting a revoked or
// rotated-out token, or a wrong secret for a known id, is treated as reuse:
// every live token of the device (or of the account when the token has no
// device) is revoked and a security audit row is written.
package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/labeldesk/backend/internal/audit"
	"github.com/labeldesk/backend/internal/metrics"
	"github.com/labeldesk/backend/internal/models"
	"github.com/labeldesk/backend/internal/security"
	"github.com/oklog/ulid/v2"
)

const separator = "."

type Config struct {
	TTL         time.Duration
	SecretBytes int
}

type Guard struct {
	store  Store
	hasher *security.Hasher
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewGuard(store Store, hasher *security.Hasher, cfg Config, logger *slog.Logger) *Guard {
	if cfg.SecretBytes <= 0 {
		cfg.SecretBytes = 32
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * 24 * time.Hour
	}
	return &Guard{
		store:  store,
		hasher: hasher,
		cfg:    cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a token for the account and optional device. For a device,
// the most recently revoked token without a successor becomes the new
// token's predecessor.
func (g *Guard) Issue(ctx context.Context, accountID string, deviceID *string) (string, *models.RefreshToken, error) {
	secret, err := security.OpaqueSecret(g.cfg.SecretBytes)
	if err != nil {
		return "", nil, fmt.Errorf("generate refresh secret: %w", err)
	}
	hash, err := g.hasher.Hash(secret)
	if err != nil {
		return "", nil, fmt.Errorf("hash refresh secret: %w", err)
	}

	now := g.now()
	rec := &models.RefreshToken{
		ID:         ulid.Make().String(),
		AccountID:  accountID,
		DeviceID:   deviceID,
		SecretHash: hash,
		ExpiresAt:  now.Add(g.cfg.TTL),
		CreatedAt:  now,
	}

	if deviceID != nil {
		prev, err := g.store.LatestRevokedForDevice(ctx, *deviceID)
		switch {
		case err == nil:
			prevID := prev.ID
			rec.RotatedFrom = &prevID
		case !errors.Is(err, ErrNotFound):
			return "", nil, fmt.Errorf("find predecessor: %w", err)
		}
	}

	predecessor := rec.RotatedFrom
	if err := g.store.Create(ctx, rec); err != nil {
		return "", nil, fmt.Errorf("store refresh token: %w", err)
	}
	if predecessor != nil && rec.RotatedFrom == nil {
		g.logger.Warn("refresh token predecessor already rotated",
			"account_id", accountID, "token_id", rec.ID, "predecessor_id", *predecessor)
	}

	metrics.RecordRefreshIssued()
	return rec.ID + separator + secret, rec, nil
}

// Verify returns the live record for token. Failures are ErrInvalidToken,
// ErrTokenExpired or a *ReuseDetectedError.
func (g *Guard) Verify(ctx context.Context, token string) (*models.RefreshToken, error) {
	id, secret, ok := ParseToken(token)
	if !ok {
		return nil, ErrInvalidToken
	}

	rec, err := g.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("load refresh token: %w", err)
	}

	if rec.Revoked() {
		return nil, g.handleReuse(ctx, rec, ReasonRevokedPresented)
	}
	if rec.Expired(g.now()) {
		return nil, ErrTokenExpired
	}
	if !g.hasher.Verify(secret, rec.SecretHash) {
		return nil, g.handleReuse(ctx, rec, ReasonSecretMismatch)
	}
	if rec.RotatedTo != nil {
		return nil, g.handleReuse(ctx, rec, ReasonRotatedReplayed)
	}
	return rec, nil
}

// Rotate verifies token, revokes it and issues its successor for the same
// account and device.
func (g *Guard) Rotate(ctx context.Context, token string) (string, *models.RefreshToken, error) {
	rec, err := g.Verify(ctx, token)
	if err != nil {
		return "", nil, err
	}
	if err := g.store.Revoke(ctx, rec.ID, g.now()); err != nil {
		return "", nil, fmt.Errorf("revoke rotated token: %w", err)
	}
	return g.Issue(ctx, rec.AccountID, rec.DeviceID)
}

// Revoke marks the token revoked. Revoking twice is a no-op.
func (g *Guard) Revoke(ctx context.Context, tokenID string) error {
	if err := g.store.Revoke(ctx, tokenID, g.now()); err != nil {
		return fmt.Errorf("revoke token %s: %w", tokenID, err)
	}
	return nil
}

func (g *Guard) RevokeAllForDevice(ctx context.Context, deviceID string) (int64, error) {
	n, err := g.store.RevokeAllForDevice(ctx, deviceID, g.now())
	if err != nil {
		return 0, fmt.Errorf("revoke device tokens: %w", err)
	}
	return n, nil
}

func (g *Guard) RevokeAllForAccount(ctx context.Context, accountID string) (int64, error) {
	n, err := g.store.RevokeAllForAccount(ctx, accountID, g.now())
	if err != nil {
		return 0, fmt.Errorf("revoke account tokens: %w", err)
	}
	return n, nil
}

func (g *Guard) handleReuse(ctx context.Context, rec *models.RefreshToken, reason string) error {
	accountID := rec.AccountID
	entry := models.SecurityAuditEntry{
		AccountID: &accountID,
		Result:    audit.ResultRefreshReuseDetected,
		Reason:    reason,
	}

	n, err := g.store.RevokeFamily(ctx, rec.AccountID, rec.DeviceID, g.now(), entry)
	if err != nil {
		return fmt.Errorf("revoke token family: %w", err)
	}

	metrics.RecordReuseDetected(reason)
	g.logger.Warn("refresh token reuse detected",
		"token_id", rec.ID,
		"account_id", rec.AccountID,
		"device_id", deref(rec.DeviceID),
		"reason", reason,
		"revoked", n,
	)

	return &ReuseDetectedError{
		TokenID:   rec.ID,
		AccountID: rec.AccountID,
		DeviceID:  rec.DeviceID,
		Reason:    reason,
		Revoked:   n,
	}
}

// ParseToken splits a token string into its id and secret.
func ParseToken(token string) (id, secret string, ok bool) {
	id, secret, ok = strings.Cut(token, separator)
	if !ok || id == "" || secret == "" {
		return "", "", false
	}
	if _, err := ulid.ParseStrict(id); err != nil {
		return "", "", false
	}
	return id, secret, true
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
