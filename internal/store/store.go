// Package store is the persistence layer over Customer, Account and the
// type-specific account records plus their transaction logs. All mutations
// take an explicit *sql.Tx so that each core operation runs in exactly one
// atomic scope; reads accept any Querier and work inside or outside one.
package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"github.com/minibank/backend/internal/models"
)

// Querier is satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for reads outside a transaction.
func (s *Store) DB() Querier { return s.db }

//
// Customers
//

func (s *Store) GetCustomer(ctx context.Context, q Querier, customerID int64) (*models.Customer, error) {
	var c models.Customer
	err := q.QueryRowContext(ctx, `
		SELECT customer_id, cust_name, pan, dob, email, created_at
		FROM customers WHERE customer_id = $1`, customerID).
		Scan(&c.CustomerID, &c.Name, &c.PAN, &c.DOB, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) PANExists(ctx context.Context, q Querier, pan string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM customers WHERE pan = $1)`, pan).Scan(&exists)
	return exists, err
}

func (s *Store) InsertCustomer(ctx context.Context, tx *sql.Tx, c *models.Customer) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO customers (cust_name, pan, dob, email, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING customer_id`,
		c.Name, c.PAN, c.DOB, c.Email, c.CreatedAt).Scan(&c.CustomerID)
}

func (s *Store) DeleteCustomer(ctx context.Context, tx *sql.Tx, customerID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM customers WHERE customer_id = $1`, customerID)
	return err
}

//
// Accounts
//

func (s *Store) InsertAccount(ctx context.Context, tx *sql.Tx, customerID int64, accountType string, createdAt time.Time) (int64, error) {
	var accountID int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO accounts (customer_id, account_type, created_at)
		VALUES ($1, $2, $3)
		RETURNING account_id`,
		customerID, accountType, createdAt).Scan(&accountID)
	return accountID, err
}

func (s *Store) AccountsByCustomer(ctx context.Context, q Querier, customerID int64) ([]models.Account, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT account_id, customer_id, account_type, created_at
		FROM accounts WHERE customer_id = $1
		ORDER BY account_id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.AccountID, &a.CustomerID, &a.AccountType, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *Store) HasAccounts(ctx context.Context, q Querier, customerID int64) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM accounts WHERE customer_id = $1)`, customerID).Scan(&exists)
	return exists, err
}

func (s *Store) DeleteAccount(ctx context.Context, tx *sql.Tx, accountID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE account_id = $1`, accountID)
	return err
}

//
// Savings accounts and their ledger
//

func (s *Store) InsertSavingsAccount(ctx context.Context, tx *sql.Tx, a *models.SavingsAccount) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO savings_accounts (account_id, balance, min_balance, version)
		VALUES ($1, $2, $3, 1)`,
		a.AccountID, a.Balance, a.MinBalance)
	return err
}

func (s *Store) GetSavings(ctx context.Context, q Querier, accountID int64) (*models.SavingsAccount, error) {
	var a models.SavingsAccount
	err := q.QueryRowContext(ctx, `
		SELECT account_id, balance, min_balance, version
		FROM savings_accounts WHERE account_id = $1`, accountID).
		Scan(&a.AccountID, &a.Balance, &a.MinBalance, &a.Version)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetSavingsForUpdate locks the row for the remainder of the transaction.
// Callers locking more than one account must do so in ascending id order.
func (s *Store) GetSavingsForUpdate(ctx context.Context, tx *sql.Tx, accountID int64) (*models.SavingsAccount, error) {
	var a models.SavingsAccount
	err := tx.QueryRowContext(ctx, `
		SELECT account_id, balance, min_balance, version
		FROM savings_accounts WHERE account_id = $1
		FOR UPDATE`, accountID).
		Scan(&a.AccountID, &a.Balance, &a.MinBalance, &a.Version)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Store) UpdateSavingsBalance(ctx context.Context, tx *sql.Tx, accountID int64, balance decimal.Decimal, version int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE savings_accounts
		SET balance = $1, version = version + 1
		WHERE account_id = $2 AND version = $3`,
		balance, accountID, version)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (s *Store) InsertSavingsTransaction(ctx context.Context, tx *sql.Tx, t *models.SavingsTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO savings_transactions (reference, account_id, transaction_type, amount, balance_after, transaction_date)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.Reference, t.AccountID, t.TransactionType, t.Amount, t.BalanceAfter, t.TransactionDate)
	return err
}

func (s *Store) DeleteSavingsTransactions(ctx context.Context, tx *sql.Tx, accountID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM savings_transactions WHERE account_id = $1`, accountID)
	return err
}

func (s *Store) DeleteSavingsAccount(ctx context.Context, tx *sql.Tx, accountID int64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM savings_accounts WHERE account_id = $1`, accountID)
	return err
}

// TotalSavingsBalance sums the balances of all savings accounts owned by a
// customer.
func (s *Store) TotalSavingsBalance(ctx context.Context, q Querier, customerID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(s.balance), 0)
		FROM savings_accounts s
		JOIN accounts a ON a.account_id = s.account_id
		WHERE a.customer_id = $1`, customerID).Scan(&total)
	return total, err
}

func (s *Store) SavingsTransactionsByAccount(ctx context.Context, q Querier, accountID int64) ([]models.SavingsTransaction, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, reference, account_id, transaction_type, amount, balance_after, transaction_date
		FROM savings_transactions
		WHERE account_id = $1
		ORDER BY transaction_date DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSavingsTransactions(rows)
}

//
// Loan accounts and their ledger
//

func (s *Store) InsertLoanAccount(ctx context.Context, tx *sql.Tx, l *models.LoanAccount) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loan_accounts (account_id, loan_amount, start_date, tenure_months, annual_roi, emi, outstanding_amount, is_closed, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)`,
		l.AccountID, l.LoanAmount, l.StartDate, l.TenureMonths, l.AnnualROI, l.EMI, l.Outstanding, l.IsClosed)
	return err
}

// GetLoanForUpdate locks the loan row. An outstanding amount that was never
// written reads back as the full loan amount.
func (s *Store) GetLoanForUpdate(ctx context.Context, tx *sql.Tx, loanID int64) (*models.LoanAccount, error) {
	var l models.LoanAccount
	err := tx.QueryRowContext(ctx, `
		SELECT account_id, loan_amount, start_date, tenure_months, annual_roi, emi, COALESCE(outstanding_amount, loan_amount), is_closed, version
		FROM loan_accounts WHERE account_id = $1
		FOR UPDATE`, loanID).
		Scan(&l.AccountID, &l.LoanAmount, &l.StartDate, &l.TenureMonths, &l.AnnualROI, &l.EMI, &l.Outstanding, &l.IsClosed, &l.Version)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) UpdateLoanOutstanding(ctx context.Context, tx *sql.Tx, loanID int64, outstanding decimal.Decimal, closed bool, version int) error {
	result, err := tx.ExecContext(ctx, `
		UPDATE loan_accounts
		SET outstanding_amount = $1, is_closed = $2, version = version + 1
		WHERE account_id = $3 AND version = $4`,
		outstanding, closed, loanID, version)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOptimisticLock
	}
	return nil
}

func (s *Store) MarkLoanClosed(ctx context.Context, tx *sql.Tx, loanID int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE loan_accounts SET is_closed = TRUE, version = version + 1
		WHERE account_id = $1`, loanID)
	return err
}

func (s *Store) InsertLoanTransaction(ctx context.Context, tx *sql.Tx, t *models.LoanTransaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO loan_transactions (reference, loan_account_id, amount, outstanding_after, trans_date)
		VALUES ($1, $2, $3, $4, $5)`,
		t.Reference, t.LoanAccountID, t.Amount, t.OutstandingAfter, t.TransDate)
	return err
}

// SumLoanPayments totals the payments against a loan within [from, to).
func (s *Store) SumLoanPayments(ctx context.Context, q Querier, loanID int64, from, to time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM loan_transactions
		WHERE loan_account_id = $1 AND trans_date >= $2 AND trans_date < $3`,
		loanID, from, to).Scan(&total)
	return total, err
}

// LoanPaymentStats returns the number of payments and the total amount paid.
func (s *Store) LoanPaymentStats(ctx context.Context, q Querier, loanID int64) (int, decimal.Decimal, error) {
	var count int
	var total decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(amount), 0)
		FROM loan_transactions
		WHERE loan_account_id = $1`, loanID).Scan(&count, &total)
	return count, total, err
}

func (s *Store) LoansByCustomer(ctx context.Context, q Querier, customerID int64) ([]models.LoanAccount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT l.account_id, l.loan_amount, l.start_date, l.tenure_months, l.annual_roi, l.emi, COALESCE(l.outstanding_amount, l.loan_amount), l.is_closed, l.version
		FROM loan_accounts l
		JOIN accounts a ON a.account_id = l.account_id
		WHERE a.customer_id = $1
		ORDER BY l.account_id`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	loans := []models.LoanAccount{}
	for rows.Next() {
		var l models.LoanAccount
		if err := rows.Scan(&l.AccountID, &l.LoanAmount, &l.StartDate, &l.TenureMonths, &l.AnnualROI, &l.EMI, &l.Outstanding, &l.IsClosed, &l.Version); err != nil {
			return nil, err
		}
		loans = append(loans, l)
	}
	return loans, rows.Err()
}

//
// Fixed deposits
//

func (s *Store) InsertFixedDeposit(ctx context.Context, tx *sql.Tx, fd *models.FixedDepositAccount) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO fixed_deposit_accounts (account_id, customer_id, principal, start_date, end_date, annual_roi)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		fd.AccountID, fd.CustomerID, fd.Principal, fd.StartDate, fd.EndDate, fd.AnnualROI)
	return err
}

//
// Login rows
//

func (s *Store) InsertUserRegister(ctx context.Context, tx *sql.Tx, u *models.UserRegister) error {
	return tx.QueryRowContext(ctx, `
		INSERT INTO users (username, password_hash, email, role, reference_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING user_id`,
		u.Username, u.PasswordHash, u.Email, u.Role, u.ReferenceID, u.IsActive, u.CreatedAt).Scan(&u.UserID)
}

func (s *Store) DeleteCustomerLogin(ctx context.Context, tx *sql.Tx, customerID int64) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM users WHERE reference_id = $1 AND role = 'Customer'`, customerID)
	return err
}

//
// Reports
//

// ReportFilter narrows a transaction report. CustomerID of zero means all
// customers; From/To are inclusive dates and must be set together.
type ReportFilter struct {
	CustomerID int64
	From       time.Time
	To         time.Time
}

func (s *Store) SavingsTransactionsReport(ctx context.Context, q Querier, f ReportFilter) ([]models.SavingsTransaction, error) {
	query := `
		SELECT t.id, t.reference, t.account_id, t.transaction_type, t.amount, t.balance_after, t.transaction_date
		FROM savings_transactions t
		JOIN accounts a ON a.account_id = t.account_id
		WHERE 1=1`
	args := []any{}
	if f.CustomerID != 0 {
		args = append(args, f.CustomerID)
		query += ` AND a.customer_id = $1`
	}
	if !f.From.IsZero() {
		query += rangeClause(len(args))
		args = append(args, f.From, f.To.AddDate(0, 0, 1))
	}
	query += ` ORDER BY t.transaction_date DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSavingsTransactions(rows)
}

func (s *Store) LoanTransactionsReport(ctx context.Context, q Querier, f ReportFilter) ([]models.LoanTransaction, error) {
	query := `
		SELECT t.id, t.reference, t.loan_account_id, t.amount, t.outstanding_after, t.trans_date
		FROM loan_transactions t
		JOIN accounts a ON a.account_id = t.loan_account_id
		WHERE 1=1`
	args := []any{}
	if f.CustomerID != 0 {
		args = append(args, f.CustomerID)
		query += ` AND a.customer_id = $1`
	}
	if !f.From.IsZero() {
		query += loanRangeClause(len(args))
		args = append(args, f.From, f.To.AddDate(0, 0, 1))
	}
	query += ` ORDER BY t.trans_date DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns := []models.LoanTransaction{}
	for rows.Next() {
		var t models.LoanTransaction
		if err := rows.Scan(&t.ID, &t.Reference, &t.LoanAccountID, &t.Amount, &t.OutstandingAfter, &t.TransDate); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func rangeClause(argsSoFar int) string {
	if argsSoFar == 0 {
		return ` AND t.transaction_date >= $1 AND t.transaction_date < $2`
	}
	return ` AND t.transaction_date >= $2 AND t.transaction_date < $3`
}

func loanRangeClause(argsSoFar int) string {
	if argsSoFar == 0 {
		return ` AND t.trans_date >= $1 AND t.trans_date < $2`
	}
	return ` AND t.trans_date >= $2 AND t.trans_date < $3`
}

func scanSavingsTransactions(rows *sql.Rows) ([]models.SavingsTransaction, error) {
	txns := []models.SavingsTransaction{}
	for rows.Next() {
		var t models.SavingsTransaction
		if err := rows.Scan(&t.ID, &t.Reference, &t.AccountID, &t.TransactionType, &t.Amount, &t.BalanceAfter, &t.TransactionDate); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}
