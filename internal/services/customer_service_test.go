package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minibank/backend/internal/bankerr"
	"github.com/minibank/backend/internal/store"
)

func newCustomerFixture(t *testing.T) (*CustomerService, sqlmock.Sqlmock) {
	t.Helper()
	viper.Set("argon2.salt_length", 16)
	viper.Set("argon2.time", 1)
	viper.Set("argon2.memory", 64*1024)
	viper.Set("argon2.threads", 4)
	viper.Set("argon2.key_length", 32)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := store.New(db)
	loans := NewLoanService(st)
	loans.now = func() time.Time { return loanNow }
	service := NewCustomerService(st, loans)
	service.now = func() time.Time { return loanNow }
	return service, mock
}

func TestCustomerService_OpenSavingsAccount(t *testing.T) {
	dob := time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC)

	t.Run("successful onboarding", func(t *testing.T) {
		service, mock := newCustomerFixture(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM customers WHERE pan = \\$1\\)").
			WithArgs("ABCDE1234F").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectQuery("INSERT INTO customers").
			WithArgs("Priya", "ABCDE1234F", dob, "priya@example.com", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"customer_id"}).AddRow(5))
		mock.ExpectQuery("INSERT INTO accounts").
			WithArgs(int64(5), "Savings", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(9))
		mock.ExpectExec("INSERT INTO savings_accounts").
			WithArgs(int64(9), decimal.RequireFromString("5000"), decimal.RequireFromString("1000")).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectQuery("INSERT INTO users").
			WithArgs("Priya5", sqlmock.AnyArg(), "priya@example.com", "Customer", int64(5), true, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(11))
		mock.ExpectCommit()

		result, err := service.OpenSavingsAccount(context.Background(), OpenAccountParams{
			Name:           "Priya",
			PAN:            "ABCDE1234F",
			DOB:            dob,
			Email:          "priya@example.com",
			OpeningBalance: decimal.RequireFromString("5000"),
		})
		require.NoError(t, err)
		assert.Equal(t, int64(5), result.CustomerID)
		assert.Equal(t, int64(9), result.AccountID)
		assert.Equal(t, "Priya5", result.Username)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate PAN", func(t *testing.T) {
		service, mock := newCustomerFixture(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS\\(SELECT 1 FROM customers WHERE pan = \\$1\\)").
			WithArgs("ABCDE1234F").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectRollback()

		_, err := service.OpenSavingsAccount(context.Background(), OpenAccountParams{
			Name:           "Priya",
			PAN:            "ABCDE1234F",
			DOB:            dob,
			Email:          "priya@example.com",
			OpeningBalance: decimal.RequireFromString("5000"),
		})
		var constraintErr *bankerr.ConstraintViolationError
		require.ErrorAs(t, err, &constraintErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("opening balance below the floor", func(t *testing.T) {
		service, _ := newCustomerFixture(t)
		_, err := service.OpenSavingsAccount(context.Background(), OpenAccountParams{
			Name:           "Priya",
			PAN:            "ABCDE1234F",
			DOB:            dob,
			Email:          "priya@example.com",
			OpeningBalance: decimal.RequireFromString("999.99"),
		})
		var validationErr *bankerr.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("malformed PAN", func(t *testing.T) {
		service, _ := newCustomerFixture(t)
		_, err := service.OpenSavingsAccount(context.Background(), OpenAccountParams{
			Name:           "Priya",
			PAN:            "12345",
			DOB:            dob,
			Email:          "priya@example.com",
			OpeningBalance: decimal.RequireFromString("5000"),
		})
		var validationErr *bankerr.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "pan", validationErr.Field)
	})

	t.Run("name with digits", func(t *testing.T) {
		service, _ := newCustomerFixture(t)
		_, err := service.OpenSavingsAccount(context.Background(), OpenAccountParams{
			Name:           "Priya42",
			PAN:            "ABCDE1234F",
			DOB:            dob,
			Email:          "priya@example.com",
			OpeningBalance: decimal.RequireFromString("5000"),
		})
		var validationErr *bankerr.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "name", validationErr.Field)
	})
}

func TestCustomerService_Summary(t *testing.T) {
	service, mock := newCustomerFixture(t)
	dob := time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC)
	start := time.Date(2026, 5, 28, 0, 0, 0, 0, time.UTC)
	monthStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	nextMonth := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT customer_id, cust_name, pan, dob, email, created_at FROM customers").
		WithArgs(int64(10)).
		WillReturnRows(customerRows(10, dob))
	mock.ExpectQuery("SELECT account_id, customer_id, account_type, created_at FROM accounts").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "customer_id", "account_type", "created_at"}).
			AddRow(9, 10, "Savings", time.Now()).
			AddRow(77, 10, "Loan", time.Now()))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(s.balance\\), 0\\) FROM savings_accounts s").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("5000.00"))
	mock.ExpectQuery("FROM loan_accounts l JOIN accounts a ON a.account_id = l.account_id").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"account_id", "loan_amount", "start_date", "tenure_months", "annual_roi", "emi", "outstanding", "is_closed", "version"}).
			AddRow(77, "120000", start, 24, "10.0", "5537.39", "108925.22", false, 4))
	mock.ExpectQuery("SELECT COUNT\\(\\*\\), COALESCE\\(SUM\\(amount\\), 0\\) FROM loan_transactions").
		WithArgs(int64(77)).
		WillReturnRows(sqlmock.NewRows([]string{"count", "coalesce"}).AddRow(2, "11074.78"))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM loan_transactions").
		WithArgs(int64(77), monthStart, nextMonth).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))

	summary, err := service.Summary(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), summary.Customer.CustomerID)
	assert.Len(t, summary.Accounts, 2)
	assert.True(t, summary.TotalSavings.Equal(decimal.RequireFromString("5000.00")))
	assert.Equal(t, 1, summary.ActiveLoanCount)
	assert.True(t, summary.MonthlyEMIDue.Equal(decimal.RequireFromString("5537.39")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
