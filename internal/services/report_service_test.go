package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minibank/backend/internal/bankerr"
	"github.com/minibank/backend/internal/store"
)

func newReportFixture(t *testing.T) (*ReportService, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	service := NewReportService(store.New(db))
	service.now = func() time.Time { return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC) }
	return service, mock
}

func TestReportService_SavingsTransactions(t *testing.T) {
	t.Run("by customer", func(t *testing.T) {
		service, mock := newReportFixture(t)

		mock.ExpectQuery("FROM savings_transactions t JOIN accounts a ON a.account_id = t.account_id WHERE 1=1 AND a.customer_id = \\$1").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "reference", "account_id", "transaction_type", "amount", "balance_after", "transaction_date"}).
				AddRow(1, "ref-1", 9, "Deposit", "1000.00", "6000.00", time.Now()))

		txns, err := service.SavingsTransactions(context.Background(), store.ReportFilter{CustomerID: 10})
		require.NoError(t, err)
		require.Len(t, txns, 1)
		assert.Equal(t, "Deposit", txns[0].TransactionType)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("by customer and date range", func(t *testing.T) {
		service, mock := newReportFixture(t)
		from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery("AND a.customer_id = \\$1 AND t.transaction_date >= \\$2 AND t.transaction_date < \\$3").
			WithArgs(int64(10), from, to.AddDate(0, 0, 1)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "reference", "account_id", "transaction_type", "amount", "balance_after", "transaction_date"}))

		txns, err := service.SavingsTransactions(context.Background(), store.ReportFilter{CustomerID: 10, From: from, To: to})
		require.NoError(t, err)
		assert.Empty(t, txns)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("half-open date range rejected", func(t *testing.T) {
		service, _ := newReportFixture(t)
		_, err := service.SavingsTransactions(context.Background(), store.ReportFilter{
			CustomerID: 10,
			From:       time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		var validationErr *bankerr.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("reversed date range rejected", func(t *testing.T) {
		service, _ := newReportFixture(t)
		_, err := service.SavingsTransactions(context.Background(), store.ReportFilter{
			From: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		})
		var validationErr *bankerr.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("future date range rejected", func(t *testing.T) {
		service, _ := newReportFixture(t)
		_, err := service.SavingsTransactions(context.Background(), store.ReportFilter{
			From: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC),
		})
		var validationErr *bankerr.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})

	t.Run("no filter at all rejected", func(t *testing.T) {
		service, _ := newReportFixture(t)
		_, err := service.SavingsTransactions(context.Background(), store.ReportFilter{})
		var validationErr *bankerr.ValidationError
		require.ErrorAs(t, err, &validationErr)
	})
}

func TestReportService_LoanTransactions(t *testing.T) {
	service, mock := newReportFixture(t)

	mock.ExpectQuery("FROM loan_transactions t JOIN accounts a ON a.account_id = t.loan_account_id WHERE 1=1 AND a.customer_id = \\$1").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference", "loan_account_id", "amount", "outstanding_after", "trans_date"}).
			AddRow(1, "ref-1", 77, "5537.39", "114462.61", time.Now()).
			AddRow(2, "ref-2", 77, "5537.39", "108925.22", time.Now()))

	txns, err := service.LoanTransactions(context.Background(), store.ReportFilter{CustomerID: 10})
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
