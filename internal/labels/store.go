package labels

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labeldesk/backend/internal/models"
)

type Store interface {
	Create(ctx context.Context, label *models.Label) error
	FindByID(ctx context.Context, accountID, id string) (*models.Label, error)
	List(ctx context.Context, accountID string, limit, offset int) ([]models.Label, error)
	// SetStatus moves the label from one status to another. It returns
	// ErrNotFound when the label does not exist for the account and
	// ErrStatusConflict when it is not in status from.
	SetStatus(ctx context.Context, accountID, id, from, to string, now time.Time) error
	SetTrackingStatus(ctx context.Context, id, status string) error
}

const labelColumns = `id, account_id, carrier, tracking_number, price, status, tracking_status, created_at, updated_at`

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, l *models.Label) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO labels (`+labelColumns+`)
		VALUES (:id, :account_id, :carrier, :tracking_number, :price, :status, :tracking_status, :created_at, :updated_at)`,
		l)
	return err
}

func (s *PostgresStore) FindByID(ctx context.Context, accountID, id string) (*models.Label, error) {
	var l models.Label
	err := s.db.GetContext(ctx, &l, `SELECT `+labelColumns+` FROM labels WHERE id = $1 AND account_id = $2`, id, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *PostgresStore) List(ctx context.Context, accountID string, limit, offset int) ([]models.Label, error) {
	labels := []models.Label{}
	err := s.db.SelectContext(ctx, &labels, `
		SELECT `+labelColumns+`
		FROM labels
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return labels, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, accountID, id, from, to string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE labels SET status = $4, updated_at = $5
		WHERE id = $1 AND account_id = $2 AND status = $3`,
		id, accountID, from, to, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}
	if _, err := s.FindByID(ctx, accountID, id); err != nil {
		return err
	}
	return ErrStatusConflict
}

func (s *PostgresStore) SetTrackingStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE labels SET tracking_status = $2, updated_at = NOW()
		WHERE id = $1`,
		id, status)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type MemoryStore struct {
	mu     sync.Mutex
	labels map[string]*models.Label
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{labels: make(map[string]*models.Label)}
}

func (s *MemoryStore) Create(_ context.Context, l *models.Label) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.labels[l.ID] = &cp
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, accountID, id string) (*models.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.labels[id]
	if !ok || l.AccountID != accountID {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, accountID string, limit, offset int) ([]models.Label, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []models.Label{}
	for _, l := range s.labels {
		if l.AccountID == accountID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return []models.Label{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SetStatus(_ context.Context, accountID, id, from, to string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.labels[id]
	if !ok || l.AccountID != accountID {
		return ErrNotFound
	}
	if l.Status != from {
		return ErrStatusConflict
	}
	l.Status = to
	l.UpdatedAt = now
	return nil
}

func (s *MemoryStore) SetTrackingStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.labels[id]
	if !ok {
		return ErrNotFound
	}
	l.TrackingStatus = status
	return nil
}
