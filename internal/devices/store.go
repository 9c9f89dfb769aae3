package devices

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/labeldesk/backend/internal/models"
)

type Store interface {
	// Register returns the account's device with this fingerprint, creating
	// it untrusted when it does not exist yet.
	Register(ctx context.Context, accountID, fingerprint, label string) (*models.Device, error)
	FindByID(ctx context.Context, accountID, id string) (*models.Device, error)
	List(ctx context.Context, accountID string) ([]models.Device, error)
	MarkTrusted(ctx context.Context, accountID, id string, now time.Time) (*models.Device, error)
}

const deviceColumns = `id, account_id, fingerprint, label, trusted_at, created_at`

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Register(ctx context.Context, accountID, fingerprint, label string) (*models.Device, error) {
	var d models.Device
	err := s.db.GetContext(ctx, &d, `
		INSERT INTO devices (id, account_id, fingerprint, label, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (account_id, fingerprint)
		DO UPDATE SET label = CASE WHEN EXCLUDED.label <> '' THEN EXCLUDED.label ELSE devices.label END
		RETURNING `+deviceColumns,
		uuid.NewString(), accountID, fingerprint, label, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID, id string) (*models.Device, error) {
	var d models.Device
	err := s.db.GetContext(ctx, &d, `SELECT `+deviceColumns+` FROM devices WHERE id = $1 AND account_id = $2`, id, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) List(ctx context.Context, accountID string) ([]models.Device, error) {
	devices := []models.Device{}
	err := s.db.SelectContext(ctx, &devices, `
		SELECT `+deviceColumns+`
		FROM devices
		WHERE account_id = $1
		ORDER BY created_at DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *PostgresStore) MarkTrusted(ctx context.Context, accountID, id string, now time.Time) (*models.Device, error) {
	var d models.Device
	err := s.db.GetContext(ctx, &d, `
		UPDATE devices SET trusted_at = COALESCE(trusted_at, $3)
		WHERE id = $1 AND account_id = $2
		RETURNING `+deviceColumns,
		id, accountID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

type MemoryStore struct {
	mu      sync.Mutex
	devices map[string]*models.Device
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{devices: make(map[string]*models.Device)}
}

func (s *MemoryStore) Register(_ context.Context, accountID, fingerprint, label string) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.devices {
		if d.AccountID == accountID && d.Fingerprint == fingerprint {
			if label != "" {
				d.Label = label
			}
			cp := *d
			return &cp, nil
		}
	}

	d := &models.Device{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Fingerprint: fingerprint,
		Label:       label,
		CreatedAt:   time.Now().UTC(),
	}
	s.devices[d.ID] = d
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) FindByID(_ context.Context, accountID, id string) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok || d.AccountID != accountID {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, accountID string) ([]models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Device{}
	for _, d := range s.devices {
		if d.AccountID == accountID {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) MarkTrusted(_ context.Context, accountID, id string, now time.Time) (*models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.devices[id]
	if !ok || d.AccountID != accountID {
		return nil, ErrNotFound
	}
	if d.TrustedAt == nil {
		t := now
		d.TrustedAt = &t
	}
	cp := *d
	return &cp, nil
}
