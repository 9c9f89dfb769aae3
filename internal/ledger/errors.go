package ledger

import "errors"

var (
	// ErrAccountNotFound is returned when a mutation targets an account that has no row.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInsufficientBalance is returned when a debit exceeds the current balance.
	// No entry is written and the balance is unchanged.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInvalidAmount is returned for zero or negative amounts, including
	// amounts that round to zero at two decimal places.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInvalidDirection is returned for a direction other than credit or debit.
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrLedgerDrift is returned by Reconcile when replaying the entries does not
	// reproduce the stored balance.
	ErrLedgerDrift = errors.New("ledger entries do not reproduce balance")
)
