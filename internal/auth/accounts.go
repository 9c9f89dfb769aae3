package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/labeldesk/backend/internal/models"
	"github.com/lib/pq"
)

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrAccountNotFound = errors.New("account not found")
)

const uniqueViolation = "23505"

// AccountStore reads and creates accounts. It never writes balances.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

const accountColumns = `id, email, password_hash, role, balance, created_at, updated_at`

type PostgresAccounts struct {
	db *sqlx.DB
}

func NewPostgresAccounts(db *sqlx.DB) *PostgresAccounts {
	return &PostgresAccounts{db: db}
}

// Create inserts the account. The balance column keeps its default of zero.
func (s *PostgresAccounts) Create(ctx context.Context, account *models.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		account.ID, account.Email, account.PasswordHash, account.Role, account.CreatedAt, account.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return ErrEmailTaken
	}
	return err
}

func (s *PostgresAccounts) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE email = $1`, strings.ToLower(email))
}

func (s *PostgresAccounts) FindByID(ctx context.Context, id string) (*models.Account, error) {
	return s.findOne(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
}

func (s *PostgresAccounts) findOne(ctx context.Context, query string, arg any) (*models.Account, error) {
	var account models.Account
	err := s.db.GetContext(ctx, &account, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}
