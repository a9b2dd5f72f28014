package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/minibank/backend/internal/bankerr"
	"github.com/minibank/backend/internal/models"
	"github.com/minibank/backend/internal/store"
)

// CustomerService onboards customers and assembles their dashboard view.
// Opening a savings account creates the customer, the account pair and a
// login row in one atomic scope, so a half-onboarded customer cannot exist.
type CustomerService struct {
	store           *store.Store
	loans           *LoanService
	minBalance      decimal.Decimal
	defaultPassword string
	now             func() time.Time
}

func NewCustomerService(st *store.Store, loans *LoanService) *CustomerService {
	viper.SetDefault("policy.min_balance", "1000")
	viper.SetDefault("policy.default_password", "Password1234")
	return &CustomerService{
		store:           st,
		loans:           loans,
		minBalance:      decimal.RequireFromString(viper.GetString("policy.min_balance")),
		defaultPassword: viper.GetString("policy.default_password"),
		now:             time.Now,
	}
}

type OpenAccountParams struct {
	Name           string
	PAN            string
	DOB            time.Time
	Email          string
	OpeningBalance decimal.Decimal
}

type OpenAccountResult struct {
	CustomerID int64  `json:"customer_id"`
	AccountID  int64  `json:"account_id"`
	Username   string `json:"username"`
}

// OpenSavingsAccount creates a new customer with one savings account funded
// at the opening balance, and bootstraps a customer login with the default
// password. The PAN is the dedupe key.
func (s *CustomerService) OpenSavingsAccount(ctx context.Context, p OpenAccountParams) (*OpenAccountResult, error) {
	today := s.now()
	if err := ValidateCustomerName(p.Name); err != nil {
		return nil, err
	}
	if err := ValidatePAN(p.PAN); err != nil {
		return nil, err
	}
	if err := ValidateDOB(p.DOB, today); err != nil {
		return nil, err
	}
	if p.OpeningBalance.LessThan(s.minBalance) {
		return nil, &bankerr.ValidationError{Field: "openingBalance", Msg: "opening balance must be at least " + s.minBalance.StringFixed(2)}
	}

	passwordHash, err := hashPassword(s.defaultPassword)
	if err != nil {
		return nil, &bankerr.PersistenceError{Op: "customer.open", Err: err}
	}

	var result *OpenAccountResult
	err = s.store.RunTx(ctx, "customer.open", func(tx *sql.Tx) error {
		exists, err := s.store.PANExists(ctx, tx, p.PAN)
		if err != nil {
			return err
		}
		if exists {
			return &bankerr.ConstraintViolationError{Entity: "customer", Msg: "a customer with this PAN already exists"}
		}

		customer := &models.Customer{
			Name:      p.Name,
			PAN:       p.PAN,
			DOB:       p.DOB,
			Email:     p.Email,
			CreatedAt: today,
		}
		if err := s.store.InsertCustomer(ctx, tx, customer); err != nil {
			return err
		}

		accountID, err := s.store.InsertAccount(ctx, tx, customer.CustomerID, models.AccountTypeSavings, today)
		if err != nil {
			return err
		}
		if err := s.store.InsertSavingsAccount(ctx, tx, &models.SavingsAccount{
			AccountID:  accountID,
			Balance:    p.OpeningBalance,
			MinBalance: s.minBalance,
		}); err != nil {
			return err
		}

		username := fmt.Sprintf("%s%d", p.Name, customer.CustomerID)
		if err := s.store.InsertUserRegister(ctx, tx, &models.UserRegister{
			Username:     username,
			PasswordHash: passwordHash,
			Email:        p.Email,
			Role:         models.RoleCustomer,
			ReferenceID:  customer.CustomerID,
			IsActive:     true,
			CreatedAt:    today,
		}); err != nil {
			return err
		}

		result = &OpenAccountResult{
			CustomerID: customer.CustomerID,
			AccountID:  accountID,
			Username:   username,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Opened savings account %d for new customer %d", result.AccountID, result.CustomerID)
	return result, nil
}

type CustomerSummary struct {
	Customer        *models.Customer     `json:"customer"`
	Accounts        []models.Account     `json:"accounts"`
	TotalSavings    decimal.Decimal      `json:"total_savings"`
	Loans           []models.LoanSummary `json:"loans"`
	ActiveLoanCount int                  `json:"active_loan_count"`
	MonthlyEMIDue   decimal.Decimal      `json:"monthly_emi_due"`
}

// Summary assembles the dashboard: the customer, every account, the combined
// savings balance, and each loan with the EMI still due this month.
func (s *CustomerService) Summary(ctx context.Context, customerID int64) (*CustomerSummary, error) {
	customer, err := s.store.GetCustomer(ctx, s.store.DB(), customerID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &bankerr.NotFoundError{Entity: "customer", ID: customerID}
		}
		return nil, &bankerr.PersistenceError{Op: "customer.summary", Err: err}
	}

	accounts, err := s.store.AccountsByCustomer(ctx, s.store.DB(), customerID)
	if err != nil {
		return nil, &bankerr.PersistenceError{Op: "customer.summary", Err: err}
	}
	total, err := s.store.TotalSavingsBalance(ctx, s.store.DB(), customerID)
	if err != nil {
		return nil, &bankerr.PersistenceError{Op: "customer.summary", Err: err}
	}
	loans, err := s.loans.Summaries(ctx, customerID)
	if err != nil {
		return nil, err
	}

	summary := &CustomerSummary{
		Customer:     customer,
		Accounts:     accounts,
		TotalSavings: total,
		Loans:        loans,
	}
	for _, loan := range loans {
		if loan.Outstanding.IsPositive() {
			summary.ActiveLoanCount++
			if !loan.EMIPaidThisMonth {
				summary.MonthlyEMIDue = summary.MonthlyEMIDue.Add(loan.EMI)
			}
		}
	}
	return summary, nil
}
