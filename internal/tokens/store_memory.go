package tokens

import (
	"context"
	"sync"
	"time"

	"github.com/labeldesk/backend/internal/models"
)

// MemoryStore keeps refresh tokens and the audit rows written by
// RevokeFamily in memory.
type MemoryStore struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
	audit  []models.SecurityAuditEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[string]*models.RefreshToken)}
}

func (s *MemoryStore) Create(_ context.Context, rec *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.RotatedFrom != nil {
		prev, ok := s.tokens[*rec.RotatedFrom]
		if ok && prev.RotatedTo == nil {
			id := rec.ID
			prev.RotatedTo = &id
		} else {
			rec.RotatedFrom = nil
		}
	}
	stored := *rec
	s.tokens[rec.ID] = &stored
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) LatestRevokedForDevice(_ context.Context, deviceID string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.RefreshToken
	for _, rec := range s.tokens {
		if rec.DeviceID == nil || *rec.DeviceID != deviceID || rec.RevokedAt == nil || rec.RotatedTo != nil {
			continue
		}
		if latest == nil || rec.RevokedAt.After(*latest.RevokedAt) ||
			(rec.RevokedAt.Equal(*latest.RevokedAt) && rec.ID > latest.ID) {
			latest = rec
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *MemoryStore) Revoke(_ context.Context, id string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.tokens[id]
	if !ok {
		return ErrNotFound
	}
	if rec.RevokedAt == nil {
		t := now
		rec.RevokedAt = &t
	}
	return nil
}

func (s *MemoryStore) RevokeAllForDevice(_ context.Context, deviceID string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revokeMatching(func(rec *models.RefreshToken) bool {
		return rec.DeviceID != nil && *rec.DeviceID == deviceID
	}, now), nil
}

func (s *MemoryStore) RevokeAllForAccount(_ context.Context, accountID string, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revokeMatching(func(rec *models.RefreshToken) bool {
		return rec.AccountID == accountID
	}, now), nil
}

func (s *MemoryStore) RevokeFamily(_ context.Context, accountID string, deviceID *string, now time.Time, entry models.SecurityAuditEntry) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if deviceID != nil {
		n = s.revokeMatching(func(rec *models.RefreshToken) bool {
			return rec.DeviceID != nil && *rec.DeviceID == *deviceID
		}, now)
	} else {
		n = s.revokeMatching(func(rec *models.RefreshToken) bool {
			return rec.AccountID == accountID
		}, now)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.ID = int64(len(s.audit) + 1)
	s.audit = append(s.audit, entry)
	return n, nil
}

// AuditEntries returns the audit rows written by RevokeFamily.
func (s *MemoryStore) AuditEntries() []models.SecurityAuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SecurityAuditEntry(nil), s.audit...)
}

func (s *MemoryStore) revokeMatching(match func(*models.RefreshToken) bool, now time.Time) int64 {
	var n int64
	for _, rec := range s.tokens {
		if rec.RevokedAt != nil || !match(rec) {
			continue
		}
		t := now
		rec.RevokedAt = &t
		n++
	}
	return n
}
