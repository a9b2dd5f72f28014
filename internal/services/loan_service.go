package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/minibank/backend/internal/bankerr"
	"github.com/minibank/backend/internal/models"
	"github.com/minibank/backend/internal/store"
)

// LoanService originates loans and collects their monthly installments.
// Rate tiers, the senior cap and the affordability ratio are policy inputs;
// the amortization itself is fixed-rate EMI over the tenure.
type LoanService struct {
	store              *store.Store
	minLoanAmount      decimal.Decimal
	seniorLoanCap      decimal.Decimal
	affordabilityRatio decimal.Decimal
	emiTolerance       decimal.Decimal
	now                func() time.Time
}

func NewLoanService(st *store.Store) *LoanService {
	viper.SetDefault("policy.min_loan_amount", "10000")
	viper.SetDefault("policy.senior_loan_cap", "100000")
	viper.SetDefault("policy.affordability_ratio", "0.60")
	return &LoanService{
		store:              st,
		minLoanAmount:      decimal.RequireFromString(viper.GetString("policy.min_loan_amount")),
		seniorLoanCap:      decimal.RequireFromString(viper.GetString("policy.senior_loan_cap")),
		affordabilityRatio: decimal.RequireFromString(viper.GetString("policy.affordability_ratio")),
		emiTolerance:       decimal.RequireFromString("0.01"),
		now:                time.Now,
	}
}

// RateFor returns the annual interest rate for a loan. Senior citizens get a
// flat concessional rate; everyone else is tiered by principal.
func RateFor(amount decimal.Decimal, senior bool) decimal.Decimal {
	switch {
	case senior:
		return decimal.RequireFromString("9.5")
	case amount.LessThanOrEqual(decimal.NewFromInt(500000)):
		return decimal.RequireFromString("10.0")
	case amount.LessThanOrEqual(decimal.NewFromInt(1000000)):
		return decimal.RequireFromString("9.5")
	default:
		return decimal.RequireFromString("9.0")
	}
}

// ComputeEMI returns the fixed monthly installment for a principal amortized
// over tenureMonths at annualROI percent, rounded to two decimal places half
// away from zero. The whole computation runs in decimal; the growth factor is
// an exact integer power. Returns zero for a non-positive tenure.
func ComputeEMI(amount decimal.Decimal, tenureMonths int, annualROI decimal.Decimal) decimal.Decimal {
	if tenureMonths <= 0 {
		return decimal.Zero
	}
	months := decimal.NewFromInt(int64(tenureMonths))
	if annualROI.IsZero() {
		return amount.Div(months).Round(2)
	}
	one := decimal.NewFromInt(1)
	monthlyRate := annualROI.Div(decimal.NewFromInt(1200))
	factor := one.Add(monthlyRate).Pow(months)
	return amount.Mul(monthlyRate).Mul(factor).Div(factor.Sub(one)).Round(2)
}

type CreateLoanParams struct {
	CustomerID      int64
	LoanAmount      decimal.Decimal
	TenureMonths    int
	MonthlyTakeHome decimal.Decimal
}

type CreateLoanResult struct {
	LoanAccountID int64           `json:"loan_account_id"`
	LoanAmount    decimal.Decimal `json:"loan_amount"`
	TenureMonths  int             `json:"tenure_months"`
	AnnualROI     decimal.Decimal `json:"annual_roi"`
	EMI           decimal.Decimal `json:"emi"`
	Senior        bool            `json:"senior"`
	StartDate     time.Time       `json:"start_date"`
}

// CreateLoan originates a loan for an existing customer. All checks run
// before the account rows are written: minimum principal, the senior cap,
// tenure sanity, and the affordability gate holding the computed EMI at or
// under the policy share of monthly take-home pay.
func (s *LoanService) CreateLoan(ctx context.Context, p CreateLoanParams) (*CreateLoanResult, error) {
	if p.LoanAmount.LessThan(s.minLoanAmount) {
		return nil, &bankerr.ValidationError{Field: "loanAmount", Msg: "minimum loan amount is " + s.minLoanAmount.StringFixed(2)}
	}
	if p.TenureMonths <= 0 {
		return nil, &bankerr.ValidationError{Field: "tenureMonths", Msg: "tenure must be at least one month"}
	}
	if !p.MonthlyTakeHome.IsPositive() {
		return nil, &bankerr.ValidationError{Field: "monthlyTakeHome", Msg: "monthly take-home pay must be greater than zero"}
	}

	var result *CreateLoanResult
	err := s.store.RunTx(ctx, "loan.create", func(tx *sql.Tx) error {
		customer, err := s.store.GetCustomer(ctx, tx, p.CustomerID)
		if err != nil {
			if err == sql.ErrNoRows {
				return &bankerr.NotFoundError{Entity: "customer", ID: p.CustomerID}
			}
			return err
		}

		today := s.now()
		senior := customer.IsSenior(today)
		if senior && p.LoanAmount.GreaterThan(s.seniorLoanCap) {
			return &bankerr.ValidationError{
				Field: "loanAmount",
				Msg:   "senior citizen loans are capped at " + s.seniorLoanCap.StringFixed(2),
			}
		}

		roi := RateFor(p.LoanAmount, senior)
		emi := ComputeEMI(p.LoanAmount, p.TenureMonths, roi)
		maxEMI := p.MonthlyTakeHome.Mul(s.affordabilityRatio).Round(2)
		if emi.GreaterThan(maxEMI) {
			return &bankerr.ValidationError{
				Field: "loanAmount",
				Msg:   "EMI " + emi.StringFixed(2) + " exceeds affordable limit " + maxEMI.StringFixed(2),
			}
		}

		accountID, err := s.store.InsertAccount(ctx, tx, p.CustomerID, models.AccountTypeLoan, today)
		if err != nil {
			return err
		}
		if err := s.store.InsertLoanAccount(ctx, tx, &models.LoanAccount{
			AccountID:    accountID,
			LoanAmount:   p.LoanAmount,
			StartDate:    today,
			TenureMonths: p.TenureMonths,
			AnnualROI:    roi,
			EMI:          emi,
			Outstanding:  p.LoanAmount,
			IsClosed:     false,
		}); err != nil {
			return err
		}

		result = &CreateLoanResult{
			LoanAccountID: accountID,
			LoanAmount:    p.LoanAmount,
			TenureMonths:  p.TenureMonths,
			AnnualROI:     roi,
			EMI:           emi,
			Senior:        senior,
			StartDate:     today,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LOAN] Created loan %d for customer %d: %s over %d months at %s%%, EMI %s",
		result.LoanAccountID, p.CustomerID, p.LoanAmount.StringFixed(2), p.TenureMonths,
		result.AnnualROI.StringFixed(1), result.EMI.StringFixed(2))
	return result, nil
}

type PayEMIResult struct {
	Reference   string          `json:"reference"`
	LoanID      int64           `json:"loan_id"`
	Paid        decimal.Decimal `json:"paid"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Closed      bool            `json:"closed"`
}

// PayEMI collects one installment. A loan accepts at most one installment per
// calendar month; the required amount is the EMI, or the remaining outstanding
// when that is smaller, matched within a one-paisa tolerance. Outstanding
// never goes below zero and the loan closes the moment it reaches zero.
func (s *LoanService) PayEMI(ctx context.Context, loanID int64, amount decimal.Decimal) (*PayEMIResult, error) {
	if !amount.IsPositive() {
		return nil, &bankerr.ValidationError{Field: "amount", Msg: "payment amount must be greater than zero"}
	}

	var result *PayEMIResult
	err := s.store.RunTx(ctx, "loan.payemi", func(tx *sql.Tx) error {
		loan, err := s.store.GetLoanForUpdate(ctx, tx, loanID)
		if err != nil {
			if err == sql.ErrNoRows {
				return &bankerr.NotFoundError{Entity: "loan", ID: loanID}
			}
			return err
		}
		if loan.IsClosed || !loan.Outstanding.IsPositive() {
			return &bankerr.ConstraintViolationError{Entity: "loan", ID: loanID, Msg: "loan is already closed"}
		}

		monthStart, nextMonth := monthWindow(s.now())
		paidThisMonth, err := s.store.SumLoanPayments(ctx, tx, loanID, monthStart, nextMonth)
		if err != nil {
			return err
		}
		if loan.EMI.IsPositive() && paidThisMonth.GreaterThanOrEqual(loan.EMI) {
			return &bankerr.AlreadyPaidError{LoanID: loanID, EMI: loan.EMI}
		}

		required := loan.EMI
		if loan.Outstanding.LessThan(required) {
			required = loan.Outstanding
		}
		if amount.Sub(required).Abs().GreaterThan(s.emiTolerance) {
			return &bankerr.AmountMismatchError{LoanID: loanID, Required: required, Given: amount}
		}

		outstanding := loan.Outstanding.Sub(amount)
		if outstanding.IsNegative() {
			outstanding = decimal.Zero
		}
		closed := outstanding.IsZero()

		if err := s.store.UpdateLoanOutstanding(ctx, tx, loanID, outstanding, closed, loan.Version); err != nil {
			return err
		}
		reference := uuid.NewString()
		if err := s.store.InsertLoanTransaction(ctx, tx, &models.LoanTransaction{
			Reference:        reference,
			LoanAccountID:    loanID,
			Amount:           amount,
			OutstandingAfter: outstanding,
			TransDate:        s.now(),
		}); err != nil {
			return err
		}

		result = &PayEMIResult{
			Reference:   reference,
			LoanID:      loanID,
			Paid:        amount,
			Outstanding: outstanding,
			Closed:      closed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Closed {
		log.Printf("[LOAN] Loan %d settled in full and closed", loanID)
	} else {
		log.Printf("[LOAN] EMI %s collected on loan %d, outstanding %s", result.Paid.StringFixed(2), loanID, result.Outstanding.StringFixed(2))
	}
	return result, nil
}

// Summaries builds the dashboard view of every loan a customer holds.
func (s *LoanService) Summaries(ctx context.Context, customerID int64) ([]models.LoanSummary, error) {
	loans, err := s.store.LoansByCustomer(ctx, s.store.DB(), customerID)
	if err != nil {
		return nil, &bankerr.PersistenceError{Op: "loan.summaries", Err: err}
	}

	monthStart, nextMonth := monthWindow(s.now())
	summaries := make([]models.LoanSummary, 0, len(loans))
	for _, loan := range loans {
		payments, totalPaid, err := s.store.LoanPaymentStats(ctx, s.store.DB(), loan.AccountID)
		if err != nil {
			return nil, &bankerr.PersistenceError{Op: "loan.summaries", Err: err}
		}
		paidThisMonth, err := s.store.SumLoanPayments(ctx, s.store.DB(), loan.AccountID, monthStart, nextMonth)
		if err != nil {
			return nil, &bankerr.PersistenceError{Op: "loan.summaries", Err: err}
		}

		summaries = append(summaries, models.LoanSummary{
			LoanAccountID:    loan.AccountID,
			LoanAmount:       loan.LoanAmount,
			EMI:              loan.EMI,
			Outstanding:      loan.Outstanding,
			StartDate:        loan.StartDate,
			TenureMonths:     loan.TenureMonths,
			PaymentsMade:     payments,
			TotalPaid:        totalPaid,
			EMIPaidThisMonth: loan.EMI.IsPositive() && paidThisMonth.GreaterThanOrEqual(loan.EMI),
			NextEMIDate:      loan.StartDate.AddDate(0, payments+1, 0),
		})
	}
	return summaries, nil
}

// monthWindow returns [first of the month, first of the next month) in the
// location of t.
func monthWindow(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}
