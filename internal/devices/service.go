// Package devices tracks the devices an account logs in from and promotes
// them to trusted after a one-time code sent for the device is confirmed.
package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/labeldesk/backend/internal/audit"
	"github.com/labeldesk/backend/internal/config"
	"github.com/labeldesk/backend/internal/models"
	"github.com/labeldesk/backend/internal/security"
)

var (
	ErrNotFound            = errors.New("device not found")
	ErrAlreadyTrusted      = errors.New("device already trusted")
	ErrOTPExpired          = errors.New("one-time code expired or not requested")
	ErrOTPInvalid          = errors.New("one-time code invalid")
	ErrOTPAttemptsExceeded = errors.New("too many one-time code attempts")
)

const codeDigits = 6

// Notifier delivers a one-time code to the account holder.
type Notifier interface {
	SendOTP(ctx context.Context, device *models.Device, code string) error
}

// LogNotifier writes codes to the debug log instead of delivering them.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendOTP(ctx context.Context, device *models.Device, code string) error {
	n.logger.DebugContext(ctx, "one-time code issued", "account_id", device.AccountID, "device_id", device.ID, "code", code)
	return nil
}

// Sessions revokes the refresh tokens bound to a device.
type Sessions interface {
	RevokeAllForDevice(ctx context.Context, deviceID string) (int64, error)
}

type Service struct {
	store       Store
	rdb         *redis.Client
	hasher      *security.Hasher
	notifier    Notifier
	sessions    Sessions
	audit       audit.Sink
	ttl         time.Duration
	maxAttempts int64
	logger      *slog.Logger
}

func NewService(store Store, rdb *redis.Client, hasher *security.Hasher, notifier Notifier, sessions Sessions, sink audit.Sink, cfg config.OTPConfig, logger *slog.Logger) *Service {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	maxAttempts := int64(cfg.MaxAttempts)
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	return &Service{
		store:       store,
		rdb:         rdb,
		hasher:      hasher,
		notifier:    notifier,
		sessions:    sessions,
		audit:       sink,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

func codeKey(deviceID string) string     { return "otp:device:" + deviceID }
func attemptsKey(deviceID string) string { return "otp:device:" + deviceID + ":attempts" }

func (s *Service) Register(ctx context.Context, accountID, fingerprint, label string) (*models.Device, error) {
	return s.store.Register(ctx, accountID, fingerprint, label)
}

func (s *Service) List(ctx context.Context, accountID string) ([]models.Device, error) {
	return s.store.List(ctx, accountID)
}

// RequestOTP stores a fresh code for the device, replacing any previous one,
// and hands it to the notifier.
func (s *Service) RequestOTP(ctx context.Context, accountID, deviceID string) error {
	device, err := s.store.FindByID(ctx, accountID, deviceID)
	if err != nil {
		return err
	}
	if device.Trusted() {
		return ErrAlreadyTrusted
	}

	code, err := security.NumericCode(codeDigits)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}

	if err := s.rdb.Set(ctx, codeKey(deviceID), hash, s.ttl).Err(); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if err := s.rdb.Del(ctx, attemptsKey(deviceID)).Err(); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}

	if err := s.notifier.SendOTP(ctx, device, code); err != nil {
		return fmt.Errorf("deliver code: %w", err)
	}

	s.record(ctx, accountID, audit.ResultOTPIssued, deviceID)
	return nil
}

// VerifyOTP checks code for the device and marks the device trusted.
func (s *Service) VerifyOTP(ctx context.Context, accountID, deviceID, code string) (*models.Device, error) {
	if _, err := s.store.FindByID(ctx, accountID, deviceID); err != nil {
		return nil, err
	}

	hash, err := s.rdb.Get(ctx, codeKey(deviceID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrOTPExpired
	}
	if err != nil {
		return nil, fmt.Errorf("load code: %w", err)
	}

	attempts, err := s.rdb.Incr(ctx, attemptsKey(deviceID)).Result()
	if err != nil {
		return nil, fmt.Errorf("count attempt: %w", err)
	}
	if attempts == 1 {
		if err := s.rdb.Expire(ctx, attemptsKey(deviceID), s.ttl).Err(); err != nil {
			return nil, fmt.Errorf("expire attempts: %w", err)
		}
	}

	if attempts > s.maxAttempts {
		if err := s.rdb.Del(ctx, codeKey(deviceID), attemptsKey(deviceID)).Err(); err != nil {
			return nil, fmt.Errorf("discard code: %w", err)
		}
		s.record(ctx, accountID, audit.ResultOTPRejected, "attempts_exceeded")
		return nil, ErrOTPAttemptsExceeded
	}

	if !s.hasher.Verify(code, hash) {
		s.record(ctx, accountID, audit.ResultOTPRejected, "mismatch")
		return nil, ErrOTPInvalid
	}

	if err := s.rdb.Del(ctx, codeKey(deviceID), attemptsKey(deviceID)).Err(); err != nil {
		return nil, fmt.Errorf("discard code: %w", err)
	}

	device, err := s.store.MarkTrusted(ctx, accountID, deviceID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("trust device: %w", err)
	}

	s.record(ctx, accountID, audit.ResultDeviceTrusted, deviceID)
	s.logger.Info("device trusted", "account_id", accountID, "device_id", deviceID)
	return device, nil
}

// SignOut revokes every refresh token bound to the device.
func (s *Service) SignOut(ctx context.Context, accountID, deviceID string) (int64, error) {
	if _, err := s.store.FindByID(ctx, accountID, deviceID); err != nil {
		return 0, err
	}
	n, err := s.sessions.RevokeAllForDevice(ctx, deviceID)
	if err != nil {
		return 0, err
	}
	s.record(ctx, accountID, audit.ResultLogout, "device:"+deviceID)
	return n, nil
}

func (s *Service) record(ctx context.Context, accountID, result, reason string) {
	err := s.audit.Record(ctx, models.SecurityAuditEntry{AccountID: &accountID, Result: result, Reason: reason})
	if err != nil {
		s.logger.Error("failed to write security audit", "result", result, "error", err)
	}
}
