package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minibank/backend/internal/services"
	"github.com/minibank/backend/internal/store"
)

func newLoanRouter(t *testing.T) (*chi.Mux, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	handler := NewLoanHandler(services.NewLoanService(store.New(db)))
	r := chi.NewRouter()
	r.Post("/loans", handler.CreateLoan)
	r.Post("/loans/{loanID}/emi", handler.PayEMI)
	return r, mock
}

func TestLoanHandler_CreateLoan(t *testing.T) {
	t.Run("successful origination returns 201", func(t *testing.T) {
		router, mock := newLoanRouter(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT customer_id, cust_name, pan, dob, email, created_at FROM customers").
			WithArgs(int64(10)).
			WillReturnRows(sqlmock.NewRows([]string{"customer_id", "cust_name", "pan", "dob", "email", "created_at"}).
				AddRow(10, "Priya", "ABCDE1234F", time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC), "priya@example.com", time.Now()))
		mock.ExpectQuery("INSERT INTO accounts").
			WithArgs(int64(10), "Loan", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"account_id"}).AddRow(77))
		mock.ExpectExec("INSERT INTO loan_accounts").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		body, _ := json.Marshal(map[string]any{
			"customerId":      10,
			"loanAmount":      "500000",
			"tenureMonths":    12,
			"monthlyTakeHome": "80000",
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/loans", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusCreated, w.Code)
		var result services.CreateLoanResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.Equal(t, int64(77), result.LoanAccountID)
		assert.Equal(t, "43957.94", result.EMI.StringFixed(2))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("below minimum principal returns 400", func(t *testing.T) {
		router, _ := newLoanRouter(t)

		body, _ := json.Marshal(map[string]any{
			"customerId":      10,
			"loanAmount":      "500",
			"tenureMonths":    12,
			"monthlyTakeHome": "80000",
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/loans", bytes.NewBuffer(body)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing fields return 400", func(t *testing.T) {
		router, _ := newLoanRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/loans", bytes.NewBufferString(`{"customerId": 10}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLoanHandler_PayEMI(t *testing.T) {
	t.Run("double payment in a month returns 409", func(t *testing.T) {
		router, mock := newLoanRouter(t)
		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

		mock.ExpectBegin()
		mock.ExpectQuery("FROM loan_accounts WHERE account_id = \\$1 FOR UPDATE").
			WithArgs(int64(77)).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "loan_amount", "start_date", "tenure_months", "annual_roi", "emi", "outstanding", "is_closed", "version"}).
				AddRow(77, "120000", now.AddDate(0, -2, 0), 24, "10.0", "5537.39", "114462.61", false, 3))
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM loan_transactions").
			WithArgs(int64(77), monthStart, monthStart.AddDate(0, 1, 0)).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("5537.39"))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/loans/77/emi", bytes.NewBufferString(`{"amount": "5537.39"}`)))

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong amount returns 422", func(t *testing.T) {
		router, mock := newLoanRouter(t)
		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

		mock.ExpectBegin()
		mock.ExpectQuery("FROM loan_accounts WHERE account_id = \\$1 FOR UPDATE").
			WithArgs(int64(77)).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "loan_amount", "start_date", "tenure_months", "annual_roi", "emi", "outstanding", "is_closed", "version"}).
				AddRow(77, "120000", now.AddDate(0, -2, 0), 24, "10.0", "5537.39", "114462.61", false, 3))
		mock.ExpectQuery("SELECT COALESCE\\(SUM\\(amount\\), 0\\) FROM loan_transactions").
			WithArgs(int64(77), monthStart, monthStart.AddDate(0, 1, 0)).
			WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow("0"))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/loans/77/emi", bytes.NewBufferString(`{"amount": "100.00"}`)))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown loan returns 404", func(t *testing.T) {
		router, mock := newLoanRouter(t)

		mock.ExpectBegin()
		mock.ExpectQuery("FROM loan_accounts WHERE account_id = \\$1 FOR UPDATE").
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows([]string{"account_id", "loan_amount", "start_date", "tenure_months", "annual_roi", "emi", "outstanding", "is_closed", "version"}))
		mock.ExpectRollback()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/loans/999/emi", bytes.NewBufferString(`{"amount": "100.00"}`)))

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("non-numeric loan id returns 400", func(t *testing.T) {
		router, _ := newLoanRouter(t)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("POST", "/loans/abc/emi", bytes.NewBufferString(`{"amount": "100.00"}`)))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
