package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/minibank/backend/internal/bankerr"
	"github.com/minibank/backend/internal/models"
	"github.com/minibank/backend/internal/store"
)

// FixedDepositService opens term deposits. A deposit is immutable once
// booked; the maturity amount is annually compounded over whole years.
type FixedDepositService struct {
	store        *store.Store
	minPrincipal decimal.Decimal
	now          func() time.Time
}

func NewFixedDepositService(st *store.Store) *FixedDepositService {
	viper.SetDefault("policy.min_fd_principal", "10000")
	return &FixedDepositService{
		store:        st,
		minPrincipal: decimal.RequireFromString(viper.GetString("policy.min_fd_principal")),
		now:          time.Now,
	}
}

// FixedDepositRate returns the annual rate for a tenure in whole years.
// Senior citizens earn an extra half percent on every slab.
func FixedDepositRate(tenureYears int, senior bool) decimal.Decimal {
	var rate decimal.Decimal
	switch {
	case tenureYears <= 1:
		rate = decimal.RequireFromString("6.0")
	case tenureYears <= 2:
		rate = decimal.RequireFromString("7.0")
	default:
		rate = decimal.RequireFromString("8.0")
	}
	if senior {
		rate = rate.Add(decimal.RequireFromString("0.5"))
	}
	return rate
}

// MaturityAmount compounds the principal annually at rate percent for the
// whole tenure, rounded to two decimal places.
func MaturityAmount(principal decimal.Decimal, rate decimal.Decimal, tenureYears int) decimal.Decimal {
	growth := decimal.NewFromInt(1).Add(rate.Div(decimal.NewFromInt(100)))
	return principal.Mul(growth.Pow(decimal.NewFromInt(int64(tenureYears)))).Round(2)
}

type CreateFixedDepositParams struct {
	CustomerID  int64
	Principal   decimal.Decimal
	TenureYears int
	StartDate   time.Time // zero means today
	ForceSenior bool      // grant the senior rate regardless of DOB
}

type CreateFixedDepositResult struct {
	AccountID      int64           `json:"account_id"`
	Principal      decimal.Decimal `json:"principal"`
	TenureYears    int             `json:"tenure_years"`
	AnnualROI      decimal.Decimal `json:"annual_roi"`
	MaturityAmount decimal.Decimal `json:"maturity_amount"`
	StartDate      time.Time       `json:"start_date"`
	EndDate        time.Time       `json:"end_date"`
	Senior         bool            `json:"senior"`
}

// CreateFixedDeposit books a term deposit for an existing customer.
func (s *FixedDepositService) CreateFixedDeposit(ctx context.Context, p CreateFixedDepositParams) (*CreateFixedDepositResult, error) {
	if p.Principal.LessThan(s.minPrincipal) {
		return nil, &bankerr.ValidationError{Field: "principal", Msg: "minimum deposit principal is " + s.minPrincipal.StringFixed(2)}
	}
	if p.TenureYears <= 0 {
		return nil, &bankerr.ValidationError{Field: "tenureYears", Msg: "tenure must be at least one year"}
	}

	today := s.now()
	start := p.StartDate
	if start.IsZero() {
		start = today
	}
	if start.After(today) {
		return nil, &bankerr.ValidationError{Field: "startDate", Msg: "start date cannot be in the future"}
	}

	var result *CreateFixedDepositResult
	err := s.store.RunTx(ctx, "fd.create", func(tx *sql.Tx) error {
		customer, err := s.store.GetCustomer(ctx, tx, p.CustomerID)
		if err != nil {
			if err == sql.ErrNoRows {
				return &bankerr.NotFoundError{Entity: "customer", ID: p.CustomerID}
			}
			return err
		}

		senior := p.ForceSenior || customer.IsSenior(today)
		rate := FixedDepositRate(p.TenureYears, senior)
		end := start.AddDate(p.TenureYears, 0, 0)

		accountID, err := s.store.InsertAccount(ctx, tx, p.CustomerID, models.AccountTypeFixedDeposit, today)
		if err != nil {
			return err
		}
		if err := s.store.InsertFixedDeposit(ctx, tx, &models.FixedDepositAccount{
			AccountID:  accountID,
			CustomerID: p.CustomerID,
			Principal:  p.Principal,
			StartDate:  start,
			EndDate:    end,
			AnnualROI:  rate,
		}); err != nil {
			return err
		}

		result = &CreateFixedDepositResult{
			AccountID:      accountID,
			Principal:      p.Principal,
			TenureYears:    p.TenureYears,
			AnnualROI:      rate,
			MaturityAmount: MaturityAmount(p.Principal, rate, p.TenureYears),
			StartDate:      start,
			EndDate:        end,
			Senior:         senior,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Fixed deposit %d opened for customer %d: %s at %s%% maturing %s",
		result.AccountID, p.CustomerID, p.Principal.StringFixed(2),
		result.AnnualROI.StringFixed(1), result.EndDate.Format("2006-01-02"))
	return result, nil
}
