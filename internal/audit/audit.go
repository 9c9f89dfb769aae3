// Package audit records security events in the append-only security_audit table.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labeldesk/backend/internal/models"
)

// Result values written to security_audit.result.
const (
	ResultRefreshReuseDetected = "refresh_reuse_detected"
	ResultLoginSucceeded       = "login_succeeded"
	ResultLoginFailed          = "login_failed"
	ResultLogout               = "logout"
	ResultLogoutAll            = "logout_all"
	ResultOTPIssued            = "otp_issued"
	ResultOTPRejected          = "otp_rejected"
	ResultDeviceTrusted        = "device_trusted"
)

// Sink is an append-only destination for security events. The application
// never reads it back.
type Sink interface {
	Record(ctx context.Context, entry models.SecurityAuditEntry) error
}

// Insert writes entry through ex, which may be a *sqlx.DB or a *sqlx.Tx so the
// row can share a transaction with the change it describes.
func Insert(ctx context.Context, ex sqlx.ExecerContext, entry models.SecurityAuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO security_audit (account_id, result, reason, created_at)
		VALUES ($1, $2, $3, $4)`,
		entry.AccountID, entry.Result, entry.Reason, entry.CreatedAt)
	return err
}

type PostgresSink struct {
	db *sqlx.DB
}

func NewPostgresSink(db *sqlx.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Record(ctx context.Context, entry models.SecurityAuditEntry) error {
	return Insert(ctx, s.db, entry)
}

// LogSink writes entries as JSON log lines. Used when no database is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, entry models.SecurityAuditEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "AUDIT", "event", json.RawMessage(data))
	return nil
}

// MemorySink keeps entries in memory.
type MemorySink struct {
	mu      sync.Mutex
	entries []models.SecurityAuditEntry
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Record(_ context.Context, entry models.SecurityAuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.ID = int64(len(s.entries) + 1)
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemorySink) Entries() []models.SecurityAuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SecurityAuditEntry(nil), s.entries...)
}

// MultiSink records each entry in every sink and returns the first error.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, entry models.SecurityAuditEntry) error {
	var first error
	for _, s := range m {
		if err := s.Record(ctx, entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}
