package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanAccount is never deleted; closure only flips IsClosed once the
// outstanding amount reaches zero.
type LoanAccount struct {
	AccountID    int64           `json:"account_id" db:"account_id"`
	LoanAmount   decimal.Decimal `json:"loan_amount" db:"loan_amount"`
	StartDate    time.Time       `json:"start_date" db:"start_date"`
	TenureMonths int             `json:"tenure_months" db:"tenure_months"`
	AnnualROI    decimal.Decimal `json:"annual_roi" db:"annual_roi"`
	EMI          decimal.Decimal `json:"emi" db:"emi"`
	Outstanding  decimal.Decimal `json:"outstanding_amount" db:"outstanding_amount"`
	IsClosed     bool            `json:"is_closed" db:"is_closed"`
	Version      int             `json:"-" db:"version"`
}

type LoanTransaction struct {
	ID               int64           `json:"id" db:"id"`
	Reference        string          `json:"reference" db:"reference"`
	LoanAccountID    int64           `json:"loan_account_id" db:"loan_account_id"`
	Amount           decimal.Decimal `json:"amount" db:"amount"`
	OutstandingAfter decimal.Decimal `json:"outstanding_after" db:"outstanding_after"`
	TransDate        time.Time       `json:"trans_date" db:"trans_date"`
}

// LoanSummary is the dashboard view of a single loan.
type LoanSummary struct {
	LoanAccountID    int64           `json:"loan_account_id"`
	LoanAmount       decimal.Decimal `json:"loan_amount"`
	EMI              decimal.Decimal `json:"emi"`
	Outstanding      decimal.Decimal `json:"outstanding"`
	StartDate        time.Time       `json:"start_date"`
	TenureMonths     int             `json:"tenure_months"`
	PaymentsMade     int             `json:"payments_made"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	EMIPaidThisMonth bool            `json:"emi_paid_this_month"`
	NextEMIDate      time.Time       `json:"next_emi_date"`
}
