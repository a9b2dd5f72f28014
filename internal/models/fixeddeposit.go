package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FixedDepositAccount is immutable after creation; there is no partial
// withdrawal operation.
type FixedDepositAccount struct {
	AccountID  int64           `json:"account_id" db:"account_id"`
	CustomerID int64           `json:"customer_id" db:"customer_id"`
	Principal  decimal.Decimal `json:"principal" db:"principal"`
	StartDate  time.Time       `json:"start_date" db:"start_date"`
	EndDate    time.Time       `json:"end_date" db:"end_date"` // start + tenure years
	AnnualROI  decimal.Decimal `json:"annual_roi" db:"annual_roi"`
}
