package auth

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/labeldesk/backend/internal/models"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const insertAccountQuery = "INSERT INTO accounts (id, email, password_hash, role, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)"

func newMockAccounts(t *testing.T) (*PostgresAccounts, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewPostgresAccounts(sqlxDB), mock
}

func TestPostgresAccounts_Create(t *testing.T) {
	store, mock := newMockAccounts(t)
	now := time.Now().UTC()
	account := &models.Account{ID: "acc-1", Email: "user@example.com", PasswordHash: "salt$hash", Role: models.RoleUser, CreatedAt: now, UpdatedAt: now}

	mock.ExpectExec(regexp.QuoteMeta(insertAccountQuery)).
		WithArgs("acc-1", "user@example.com", "salt$hash", models.RoleUser, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Create(context.Background(), account))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAccounts_CreateDuplicate(t *testing.T) {
	store, mock := newMockAccounts(t)

	mock.ExpectExec(regexp.QuoteMeta(insertAccountQuery)).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := store.Create(context.Background(), &models.Account{ID: "acc-1", Email: "user@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAccounts_FindByEmail(t *testing.T) {
	store, mock := newMockAccounts(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE email = $1")).
		WithArgs("user@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "role", "balance", "created_at", "updated_at"}).
			AddRow("acc-1", "user@example.com", "salt$hash", "admin", "12.50", now, now))

	account, err := store.FindByEmail(context.Background(), "User@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", account.ID)
	assert.Equal(t, "admin", account.Role)
	assert.Equal(t, "12.5", account.Balance.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAccounts_FindByIDMissing(t *testing.T) {
	store, mock := newMockAccounts(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM accounts WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
