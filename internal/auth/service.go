// Package auth handles registration, password login and the session
// lifecycle built on access tokens and rotating refresh tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labeldesk/backend/internal/audit"
	"github.com/labeldesk/backend/internal/models"
	"github.com/labeldesk/backend/internal/security"
	"github.com/labeldesk/backend/internal/tokens"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// Devices resolves the device a login comes from, creating it untrusted
// on first sight.
type Devices interface {
	Register(ctx context.Context, accountID, fingerprint, label string) (*models.Device, error)
}

// Sessions is the refresh-token side of a session.
type Sessions interface {
	Issue(ctx context.Context, accountID string, deviceID *string) (string, *models.RefreshToken, error)
	Verify(ctx context.Context, token string) (*models.RefreshToken, error)
	Rotate(ctx context.Context, token string) (string, *models.RefreshToken, error)
	Revoke(ctx context.Context, tokenID string) error
	RevokeAllForAccount(ctx context.Context, accountID string) (int64, error)
}

type Session struct {
	AccessToken      string          `json:"accessToken"`
	AccessExpiresAt  time.Time       `json:"accessExpiresAt"`
	RefreshToken     string          `json:"refreshToken"`
	RefreshExpiresAt time.Time       `json:"refreshExpiresAt"`
	Account          *models.Account `json:"account"`
	Device           *models.Device  `json:"device,omitempty"`
}

type LoginInput struct {
	Email       string
	Password    string
	Fingerprint string
	DeviceLabel string
}

type Service struct {
	accounts AccountStore
	devices  Devices
	sessions Sessions
	access   *AccessTokens
	hasher   *security.Hasher
	audit    audit.Sink
	logger   *slog.Logger

	// compared against when the email is unknown so both paths cost one hash
	decoyHash string
}

func NewService(accounts AccountStore, devices Devices, sessions Sessions, access *AccessTokens, hasher *security.Hasher, sink audit.Sink, logger *slog.Logger) *Service {
	decoy, err := hasher.Hash(uuid.NewString())
	if err != nil {
		logger.Warn("failed to prepare decoy hash", "error", err)
	}
	return &Service{
		accounts:  accounts,
		devices:   devices,
		sessions:  sessions,
		access:    access,
		hasher:    hasher,
		audit:     sink,
		logger:    logger,
		decoyHash: decoy,
	}
}

// Register creates a user account with a zero balance.
func (s *Service) Register(ctx context.Context, email, password string) (*models.Account, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	account := &models.Account{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account registered", "account_id", account.ID)
	return account, nil
}

// Login checks the password and opens a session. The refresh token is bound
// to the device only when the device is trusted.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	account, err := s.accounts.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, ErrAccountNotFound) {
		s.hasher.Verify(in.Password, s.decoyHash)
		s.record(ctx, nil, audit.ResultLoginFailed, "unknown_email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	if !s.hasher.Verify(in.Password, account.PasswordHash) {
		s.record(ctx, &account.ID, audit.ResultLoginFailed, "bad_password")
		return nil, ErrInvalidCredentials
	}

	var device *models.Device
	var deviceID *string
	if in.Fingerprint != "" {
		device, err = s.devices.Register(ctx, account.ID, in.Fingerprint, in.DeviceLabel)
		if err != nil {
			return nil, fmt.Errorf("register device: %w", err)
		}
		if device.Trusted() {
			deviceID = &device.ID
		}
	}

	session, err := s.open(ctx, account, deviceID)
	if err != nil {
		return nil, err
	}
	session.Device = device

	s.record(ctx, &account.ID, audit.ResultLoginSucceeded, "")
	s.logger.Info("login succeeded", "account_id", account.ID, "trusted_device", deviceID != nil)
	return session, nil
}

// Refresh rotates the refresh token and signs a fresh access token.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	token, rec, err := s.sessions.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.FindByID(ctx, rec.AccountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	access, accessExp, err := s.access.Sign(account.ID, account.Role, rec.DeviceID)
	if err != nil {
		return nil, err
	}

	return &Session{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     token,
		RefreshExpiresAt: rec.ExpiresAt,
		Account:          account,
	}, nil
}

// Logout revokes the presented refresh token.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	rec, err := s.sessions.Verify(ctx, refreshToken)
	if err != nil {
		return err
	}
	if err := s.sessions.Revoke(ctx, rec.ID); err != nil {
		return err
	}
	s.record(ctx, &rec.AccountID, audit.ResultLogout, "")
	return nil
}

// LogoutAll revokes every refresh token of the account.
func (s *Service) LogoutAll(ctx context.Context, accountID string) (int64, error) {
	n, err := s.sessions.RevokeAllForAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	s.record(ctx, &accountID, audit.ResultLogoutAll, fmt.Sprintf("revoked=%d", n))
	return n, nil
}

// Account returns the account behind an authenticated request.
func (s *Service) Account(ctx context.Context, accountID string) (*models.Account, error) {
	return s.accounts.FindByID(ctx, accountID)
}

func (s *Service) open(ctx context.Context, account *models.Account, deviceID *string) (*Session, error) {
	refresh, rec, err := s.sessions.Issue(ctx, account.ID, deviceID)
	if err != nil {
		return nil, err
	}
	access, accessExp, err := s.access.Sign(account.ID, account.Role, deviceID)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: rec.ExpiresAt,
		Account:          account,
	}, nil
}

func (s *Service) record(ctx context.Context, accountID *string, result, reason string) {
	err := s.audit.Record(ctx, models.SecurityAuditEntry{AccountID: accountID, Result: result, Reason: reason})
	if err != nil {
		s.logger.Error("failed to write security audit", "result", result, "error", err)
	}
}

var _ Sessions = (*tokens.Guard)(nil)
