package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labeldesk/backend/internal/models"
	"github.com/shopspring/decimal"
)

const entryColumns = `id, account_id, amount, balance_after, direction, reason, reference, acting_admin_id, created_at`

// PostgresStore implements Store on the accounts and ledger_entries tables.
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Balance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := s.db.GetContext(ctx, &balance, `SELECT balance FROM accounts WHERE id = $1`, accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (s *PostgresStore) Entries(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY seq DESC
		LIMIT $2 OFFSET $3`,
		accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *PostgresStore) Replay(ctx context.Context, accountID string) ([]models.LedgerEntry, error) {
	entries := []models.LedgerEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT `+entryColumns+`
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY seq ASC`,
		accountID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *PostgresStore) begin(ctx context.Context) (storeTx, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &postgresTx{tx: tx}, nil
}

type postgresTx struct {
	tx *sqlx.Tx
}

func (t *postgresTx) lockAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.tx.QueryRowxContext(ctx, `
		SELECT balance
		FROM accounts
		WHERE id = $1
		FOR UPDATE`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, ErrAccountNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

func (t *postgresTx) setBalance(ctx context.Context, accountID string, balance decimal.Decimal, now time.Time) error {
	result, err := t.tx.ExecContext(ctx, `
		UPDATE accounts
		SET balance = $1, updated_at = $2
		WHERE id = $3`,
		balance, now, accountID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func (t *postgresTx) appendEntry(ctx context.Context, e *models.LedgerEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO ledger_entries (`+entryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.AccountID, e.Amount, e.BalanceAfter, string(e.Direction), e.Reason, e.Reference, e.ActingAdminID, e.CreatedAt)
	return err
}

func (t *postgresTx) commit() error {
	return t.tx.Commit()
}

func (t *postgresTx) rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}
