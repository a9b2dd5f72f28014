// Package bankerr defines the domain error taxonomy for the ledger and loan
// core. Business-rule errors are detected before any mutation and carry
// enough context for the caller to render a message; PersistenceError marks
// transient storage failures where retrying the whole operation is safe.
package bankerr

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ValidationError reports malformed or out-of-policy input.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Msg)
	}
	return "validation failed: " + e.Msg
}

// NotFoundError reports a missing customer, account or loan.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InsufficientBalanceError reports a debit that would breach the account's
// minimum balance floor.
type InsufficientBalanceError struct {
	AccountID  int64
	Balance    decimal.Decimal
	MinBalance decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance on account %d: balance %s, minimum %s, requested %s",
		e.AccountID, e.Balance.StringFixed(2), e.MinBalance.StringFixed(2), e.Requested.StringFixed(2))
}

// AlreadyPaidError reports an EMI payment attempted after the installment for
// the current calendar month is already satisfied.
type AlreadyPaidError struct {
	LoanID int64
	EMI    decimal.Decimal
}

func (e *AlreadyPaidError) Error() string {
	return fmt.Sprintf("EMI for this month is already paid on loan %d (%s)", e.LoanID, e.EMI.StringFixed(2))
}

// AmountMismatchError reports an EMI payment that does not equal the required
// installment. Required is the full EMI, or the outstanding amount when that
// is smaller (final settlement).
type AmountMismatchError struct {
	LoanID   int64
	Required decimal.Decimal
	Given    decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("loan %d requires installment of %s, got %s",
		e.LoanID, e.Required.StringFixed(2), e.Given.StringFixed(2))
}

// ConstraintViolationError reports a closure attempted against a nonzero
// balance or outstanding amount, or a customer closure with accounts open.
type ConstraintViolationError struct {
	Entity string
	ID     int64
	Msg    string
}

func (e *ConstraintViolationError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, e.Msg)
}

// PersistenceError wraps a storage failure. The operation had no partial
// effect and may be retried as a whole.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// IsDomain reports whether err is one of the business-rule error types, as
// opposed to a transport or storage failure. The transaction runner uses this
// to decide what to wrap as a PersistenceError.
func IsDomain(err error) bool {
	switch err.(type) {
	case *ValidationError, *NotFoundError, *InsufficientBalanceError,
		*AlreadyPaidError, *AmountMismatchError, *ConstraintViolationError:
		return true
	}
	return false
}
