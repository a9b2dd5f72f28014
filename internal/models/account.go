package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account types. An Account row is the join point between a customer and
// exactly one type-specific record keyed by the same account id.
const (
	AccountTypeSavings      = "Savings"
	AccountTypeLoan         = "Loan"
	AccountTypeFixedDeposit = "FixedDeposit"
)

// Savings transaction types.
const (
	TxnTypeDeposit    = "Deposit"
	TxnTypeWithdrawal = "Withdrawal"
	TxnTypeTransfer   = "Transfer"
)

type Account struct {
	AccountID   int64     `json:"account_id" db:"account_id"`
	AccountType string    `json:"account_type" db:"account_type"`
	CustomerID  int64     `json:"customer_id" db:"customer_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

type SavingsAccount struct {
	AccountID  int64           `json:"account_id" db:"account_id"`
	Balance    decimal.Decimal `json:"balance" db:"balance"`
	MinBalance decimal.Decimal `json:"min_balance" db:"min_balance"`
	Version    int             `json:"-" db:"version"` // optimistic lock counter
}

// SavingsTransaction is an append-only ledger row. BalanceAfter is that
// side's post-mutation balance; replaying rows in date order reproduces the
// current balance exactly.
type SavingsTransaction struct {
	ID              int64           `json:"id" db:"id"`
	Reference       string          `json:"reference" db:"reference"`
	AccountID       int64           `json:"account_id" db:"account_id"`
	TransactionType string          `json:"transaction_type" db:"transaction_type"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	BalanceAfter    decimal.Decimal `json:"balance_after" db:"balance_after"`
	TransactionDate time.Time       `json:"transaction_date" db:"transaction_date"`
}
