package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/labeldesk/backend/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryStore is an in-process Store. Each account carries its own mutex that
// plays the role of the row lock.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[string]*memoryAccount
	entries  map[string][]models.LedgerEntry
}

type memoryAccount struct {
	lock    sync.Mutex
	balance decimal.Decimal
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[string]*memoryAccount),
		entries:  make(map[string][]models.LedgerEntry),
	}
}

// OpenAccount provisions an account with a zero balance. It is a no-op for
// an account that already exists.
func (s *MemoryStore) OpenAccount(accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[accountID]; !ok {
		s.accounts[accountID] = &memoryAccount{}
	}
}

func (s *MemoryStore) Balance(_ context.Context, accountID string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[accountID]
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}
	return acct.balance, nil
}

func (s *MemoryStore) Entries(_ context.Context, accountID string, limit, offset int) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.entries[accountID]
	out := []models.LedgerEntry{}
	for i := len(all) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *MemoryStore) Replay(_ context.Context, accountID string) ([]models.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LedgerEntry(nil), s.entries[accountID]...), nil
}

func (s *MemoryStore) begin(context.Context) (storeTx, error) {
	return &memoryTx{store: s}, nil
}

type memoryTx struct {
	store   *MemoryStore
	id      string
	account *memoryAccount
	balance *decimal.Decimal
	entries []models.LedgerEntry
	done    bool
}

func (t *memoryTx) lockAccount(ctx context.Context, accountID string) (decimal.Decimal, error) {
	t.store.mu.Lock()
	acct, ok := t.store.accounts[accountID]
	t.store.mu.Unlock()
	if !ok {
		return decimal.Zero, ErrAccountNotFound
	}

	acct.lock.Lock()
	t.id = accountID
	t.account = acct
	return acct.balance, nil
}

func (t *memoryTx) setBalance(_ context.Context, accountID string, balance decimal.Decimal, _ time.Time) error {
	if t.account == nil || t.id != accountID {
		return ErrAccountNotFound
	}
	t.balance = &balance
	return nil
}

func (t *memoryTx) appendEntry(_ context.Context, e *models.LedgerEntry) error {
	t.entries = append(t.entries, *e)
	return nil
}

func (t *memoryTx) commit() error {
	if t.done {
		return nil
	}
	t.store.mu.Lock()
	if t.balance != nil {
		t.account.balance = *t.balance
	}
	for _, e := range t.entries {
		t.store.entries[e.AccountID] = append(t.store.entries[e.AccountID], e)
	}
	t.store.mu.Unlock()
	t.release()
	return nil
}

func (t *memoryTx) rollback() error {
	if t.done {
		return nil
	}
	t.release()
	return nil
}

func (t *memoryTx) release() {
	t.done = true
	if t.account != nil {
		t.account.lock.Unlock()
	}
}
