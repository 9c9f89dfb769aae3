package tokens

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labeldesk/backend/internal/audit"
	"github.com/labeldesk/backend/internal/models"
)

const tokenColumns = `id, account_id, device_id, secret_hash, expires_at, revoked_at, rotated_from, rotated_to, created_at`

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, rec *models.RefreshToken) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO refresh_tokens (`+tokenColumns+`)
		VALUES ($1, $2, $3, $4, $5, NULL, $6, NULL, $7)`,
		rec.ID, rec.AccountID, rec.DeviceID, rec.SecretHash, rec.ExpiresAt, rec.RotatedFrom, rec.CreatedAt)
	if err != nil {
		return err
	}

	if rec.RotatedFrom != nil {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			UPDATE refresh_tokens SET rotated_to = $1
			WHERE id = $2 AND rotated_to IS NULL`,
			rec.ID, *rec.RotatedFrom)
		if err != nil {
			return err
		}
		var n int64
		if n, err = res.RowsAffected(); err != nil {
			return err
		}
		// Another token already continues the predecessor's chain.
		if n == 0 {
			_, err = tx.ExecContext(ctx, `UPDATE refresh_tokens SET rotated_from = NULL WHERE id = $1`, rec.ID)
			if err != nil {
				return err
			}
			rec.RotatedFrom = nil
		}
	}

	return tx.Commit()
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*models.RefreshToken, error) {
	var rec models.RefreshToken
	err := s.db.GetContext(ctx, &rec, `SELECT `+tokenColumns+` FROM refresh_tokens WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) LatestRevokedForDevice(ctx context.Context, deviceID string) (*models.RefreshToken, error) {
	var rec models.RefreshToken
	err := s.db.GetContext(ctx, &rec, `
		SELECT `+tokenColumns+`
		FROM refresh_tokens
		WHERE device_id = $1 AND revoked_at IS NOT NULL AND rotated_to IS NULL
		ORDER BY revoked_at DESC, id DESC
		LIMIT 1`,
		deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) Revoke(ctx context.Context, id string, now time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1`,
		id, now)
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

func (s *PostgresStore) RevokeAllForDevice(ctx context.Context, deviceID string, now time.Time) (int64, error) {
	return revokeWhere(ctx, s.db, "device_id", deviceID, now)
}

func (s *PostgresStore) RevokeAllForAccount(ctx context.Context, accountID string, now time.Time) (int64, error) {
	return revokeWhere(ctx, s.db, "account_id", accountID, now)
}

func (s *PostgresStore) RevokeFamily(ctx context.Context, accountID string, deviceID *string, now time.Time, entry models.SecurityAuditEntry) (n int64, err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if deviceID != nil {
		n, err = revokeWhere(ctx, tx, "device_id", *deviceID, now)
	} else {
		n, err = revokeWhere(ctx, tx, "account_id", accountID, now)
	}
	if err != nil {
		return 0, err
	}

	if err = audit.Insert(ctx, tx, entry); err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// column is one of the two fixed names above, never caller input.
func revokeWhere(ctx context.Context, ex sqlx.ExecerContext, column, value string, now time.Time) (int64, error) {
	res, err := ex.ExecContext(ctx, `
		UPDATE refresh_tokens
		SET revoked_at = $2
		WHERE `+column+` = $1 AND revoked_at IS NULL`,
		value, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
