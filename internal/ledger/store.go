package ledger

import (
	"context"
	"time"

	"github.com/labeldesk/backend/internal/models"
	"github.com/shopspring/decimal"
)

// Store persists balances and ledger entries.
//
// The write path is only reachable through begin, which is unexported: a
// Store can only be implemented inside this package, so Service.ApplyChange
// is the single way to change a balance.
type Store interface {
	// Balance returns the stored balance, or ErrAccountNotFound.
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)

	// Entries returns entries newest first.
	Entries(ctx context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error)

	// Replay returns every entry of the account in creation order.
	Replay(ctx context.Context, accountID string) ([]models.LedgerEntry, error)

	begin(ctx context.Context) (storeTx, error)
}

// storeTx is one read-modify-write unit. lockAccount must hold an exclusive
// lock on the account until commit or rollback.
type storeTx interface {
	lockAccount(ctx context.Context, accountID string) (decimal.Decimal, error)
	setBalance(ctx context.Context, accountID string, balance decimal.Decimal, now time.Time) error
	appendEntry(ctx context.Context, entry *models.LedgerEntry) error
	commit() error
	// rollback is a no-op after commit.
	rollback() error
}
