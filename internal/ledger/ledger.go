// Package ledger owns account balances and their append-only entry log.
//
// Every balance change goes through Service.ApplyChange, which locks the
// account row, computes the new balance and writes the balance together with
// a LedgerEntry in a single transaction.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labeldesk/backend/internal/metrics"
	"github.com/labeldesk/backend/internal/models"
	"github.com/shopspring/decimal"
)

const defaultPageSize = 50

// MaxBalance is the largest balance a numeric(12,2) column can hold.
var MaxBalance = decimal.RequireFromString("9999999999.99")

// Change describes one balance mutation. Amount is always positive; the sign
// comes from Direction.
type Change struct {
	AccountID     string
	Amount        decimal.Decimal
	Direction     models.Direction
	Reason        string
	Reference     *string
	ActingAdminID *string
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// ApplyChange applies c under an exclusive lock on the account and returns the
// new balance. Concurrent changes to the same account serialize on the lock;
// the later one sees the earlier one's balance.
func (s *Service) ApplyChange(ctx context.Context, c Change) (decimal.Decimal, error) {
	if !c.Direction.Valid() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidDirection, c.Direction)
	}
	amount := c.Amount.Round(2)
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, c.Amount)
	}

	newBalance, err := s.apply(ctx, c, amount)
	if err != nil {
		result := "error"
		if errors.Is(err, ErrInsufficientBalance) {
			result = "insufficient_balance"
		}
		metrics.RecordLedgerMutation(string(c.Direction), result)
		s.logger.Warn("ledger change rejected",
			"account_id", c.AccountID,
			"direction", c.Direction,
			"amount", amount.StringFixed(2),
			"reason", c.Reason,
			"error", err,
		)
		return decimal.Zero, err
	}

	metrics.RecordLedgerMutation(string(c.Direction), "ok")
	s.logger.Info("ledger change applied",
		"account_id", c.AccountID,
		"direction", c.Direction,
		"amount", amount.StringFixed(2),
		"balance_after", newBalance.StringFixed(2),
		"reason", c.Reason,
	)
	return newBalance, nil
}

func (s *Service) apply(ctx context.Context, c Change, amount decimal.Decimal) (decimal.Decimal, error) {
	tx, err := s.store.begin(ctx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("begin ledger transaction: %w", err)
	}
	defer tx.rollback()

	balance, err := tx.lockAccount(ctx, c.AccountID)
	if err != nil {
		return decimal.Zero, err
	}

	signed := amount
	if c.Direction == models.DirectionDebit {
		if amount.GreaterThan(balance) {
			return decimal.Zero, fmt.Errorf("%w: balance %s, requested %s",
				ErrInsufficientBalance, balance.StringFixed(2), amount.StringFixed(2))
		}
		signed = amount.Neg()
	}
	newBalance := balance.Add(signed).Round(2)
	if newBalance.GreaterThan(MaxBalance) {
		return decimal.Zero, fmt.Errorf("%w: balance would exceed %s", ErrInvalidAmount, MaxBalance.StringFixed(2))
	}
	now := s.now().UTC()

	if err := tx.setBalance(ctx, c.AccountID, newBalance, now); err != nil {
		return decimal.Zero, fmt.Errorf("update balance: %w", err)
	}

	entry := &models.LedgerEntry{
		ID:            uuid.NewString(),
		AccountID:     c.AccountID,
		Amount:        signed,
		BalanceAfter:  newBalance,
		Direction:     c.Direction,
		Reason:        c.Reason,
		Reference:     c.Reference,
		ActingAdminID: c.ActingAdminID,
		CreatedAt:     now,
	}
	if err := tx.appendEntry(ctx, entry); err != nil {
		return decimal.Zero, fmt.Errorf("append ledger entry: %w", err)
	}

	if err := tx.commit(); err != nil {
		return decimal.Zero, fmt.Errorf("commit ledger transaction: %w", err)
	}
	return newBalance, nil
}

// Credit adds amount to the account without an order reference.
func (s *Service) Credit(ctx context.Context, accountID string, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	return s.ApplyChange(ctx, Change{
		AccountID: accountID,
		Amount:    amount,
		Direction: models.DirectionCredit,
		Reason:    reason,
	})
}

// CreditForOrder refunds or credits amount against an order.
func (s *Service) CreditForOrder(ctx context.Context, accountID, orderID string, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	return s.ApplyChange(ctx, Change{
		AccountID: accountID,
		Amount:    amount,
		Direction: models.DirectionCredit,
		Reason:    reason,
		Reference: &orderID,
	})
}

// DebitForOrder charges amount against an order.
func (s *Service) DebitForOrder(ctx context.Context, accountID, orderID string, amount decimal.Decimal, reason string) (decimal.Decimal, error) {
	return s.ApplyChange(ctx, Change{
		AccountID: accountID,
		Amount:    amount,
		Direction: models.DirectionDebit,
		Reason:    reason,
		Reference: &orderID,
	})
}

// GetBalance returns the current balance. An account without a row reads as
// zero so read paths tolerate accounts that are still being provisioned.
func (s *Service) GetBalance(ctx context.Context, accountID string) (decimal.Decimal, error) {
	balance, err := s.store.Balance(ctx, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Entries lists the account's ledger entries, newest first.
func (s *Service) Entries(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.Entries(ctx, accountID, limit, offset)
}

// Reconciliation is the result of replaying an account's entries.
type Reconciliation struct {
	AccountID string          `json:"accountId"`
	Entries   int             `json:"entries"`
	Replayed  decimal.Decimal `json:"replayed"`
	Balance   decimal.Decimal `json:"balance"`
}

// Reconcile replays the account's entries in creation order and checks that
// their sum and the last balance snapshot both equal the stored balance.
func (s *Service) Reconcile(ctx context.Context, accountID string) (Reconciliation, error) {
	balance, err := s.store.Balance(ctx, accountID)
	if err != nil {
		return Reconciliation{}, err
	}
	entries, err := s.store.Replay(ctx, accountID)
	if err != nil {
		return Reconciliation{}, err
	}

	sum := decimal.Zero
	for i, e := range entries {
		sum = sum.Add(e.Amount)
		if !sum.Equal(e.BalanceAfter) {
			return Reconciliation{}, fmt.Errorf("%w: entry %d (%s) snapshot %s, replayed %s",
				ErrLedgerDrift, i, e.ID, e.BalanceAfter.StringFixed(2), sum.StringFixed(2))
		}
	}

	rec := Reconciliation{
		AccountID: accountID,
		Entries:   len(entries),
		Replayed:  sum,
		Balance:   balance,
	}
	if !sum.Equal(balance) {
		return rec, fmt.Errorf("%w: stored %s, replayed %s",
			ErrLedgerDrift, balance.StringFixed(2), sum.StringFixed(2))
	}
	return rec, nil
}
