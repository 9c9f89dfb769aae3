package devices

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var deviceRowColumns = []string{"id", "account_id", "fingerprint", "label", "trusted_at", "created_at"}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { sqlxDB.Close() })
	return NewPostgresStore(sqlxDB), mock
}

func TestPostgresStore_Register(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO devices (id, account_id, fingerprint, label, created_at) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (account_id, fingerprint)")).
		WithArgs(sqlmock.AnyArg(), "acc-1", "fp-1", "Pixel", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(deviceRowColumns).AddRow("dev-1", "acc-1", "fp-1", "Pixel", nil, now))

	d, err := store.Register(context.Background(), "acc-1", "fp-1", "Pixel")
	require.NoError(t, err)
	assert.Equal(t, "dev-1", d.ID)
	assert.False(t, d.Trusted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkTrusted(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE devices SET trusted_at = COALESCE(trusted_at, $3) WHERE id = $1 AND account_id = $2")).
		WithArgs("dev-1", "acc-1", now).
		WillReturnRows(sqlmock.NewRows(deviceRowColumns).AddRow("dev-1", "acc-1", "fp-1", "Pixel", now, now))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE devices SET trusted_at")).
		WithArgs("dev-1", "acc-2", now).
		WillReturnError(sql.ErrNoRows)

	d, err := store.MarkTrusted(context.Background(), "acc-1", "dev-1", now)
	require.NoError(t, err)
	assert.True(t, d.Trusted())

	_, err = store.MarkTrusted(context.Background(), "acc-2", "dev-1", now)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
