package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tags a balance mutation as an increase or a decrease.
type Direction string

const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// Valid reports whether d is one of the two known directions.
func (d Direction) Valid() bool {
	return d == DirectionCredit || d == DirectionDebit
}

// LedgerEntry is the immutable audit row written for every balance mutation.
// Amount is signed: positive for credits, negative for debits.
type LedgerEntry struct {
	ID            string          `json:"id" db:"id"`
	AccountID     string          `json:"accountId" db:"account_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	BalanceAfter  decimal.Decimal `json:"balanceAfter" db:"balance_after"`
	Direction     Direction       `json:"direction" db:"direction"`
	Reason        string          `json:"reason" db:"reason"`
	Reference     *string         `json:"reference,omitempty" db:"reference"`
	ActingAdminID *string         `json:"actingAdminId,omitempty" db:"acting_admin_id"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"`
}
