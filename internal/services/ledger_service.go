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

// LedgerService moves money between savings accounts. Every mutation runs in
// a single atomic scope: balance updates and their ledger rows commit
// together or not at all, and no committed mutation may leave a balance below
// the account's minimum floor.
type LedgerService struct {
	store      *store.Store
	minDeposit decimal.Decimal
	now        func() time.Time
}

func NewLedgerService(st *store.Store) *LedgerService {
	viper.SetDefault("policy.min_deposit", "100")
	return &LedgerService{
		store:      st,
		minDeposit: decimal.RequireFromString(viper.GetString("policy.min_deposit")),
		now:        time.Now,
	}
}

type TransferResult struct {
	Reference     string          `json:"reference"`
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	FromBalance   decimal.Decimal `json:"from_balance"`
	ToBalance     decimal.Decimal `json:"to_balance"`
}

// Transfer debits from and credits to, appending one Transfer row per side
// with that side's post-balance. Both rows share a reference. Accounts are
// locked in ascending id order to prevent deadlocks between concurrent
// transfers.
func (s *LedgerService) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (*TransferResult, error) {
	if !amount.IsPositive() {
		return nil, &bankerr.ValidationError{Field: "amount", Msg: "transfer amount must be greater than zero"}
	}
	if fromID == toID {
		return nil, &bankerr.ValidationError{Field: "toAccountId", Msg: "source and destination accounts must be different"}
	}

	var result *TransferResult
	err := s.store.RunTx(ctx, "ledger.transfer", func(tx *sql.Tx) error {
		firstLock, secondLock := fromID, toID
		if fromID > toID {
			firstLock, secondLock = toID, fromID
		}

		first, err := s.lockSavings(ctx, tx, firstLock)
		if err != nil {
			return err
		}
		second, err := s.lockSavings(ctx, tx, secondLock)
		if err != nil {
			return err
		}

		from, to := first, second
		if firstLock != fromID {
			from, to = second, first
		}

		if from.Balance.Sub(amount).LessThan(from.MinBalance) {
			return &bankerr.InsufficientBalanceError{
				AccountID:  from.AccountID,
				Balance:    from.Balance,
				MinBalance: from.MinBalance,
				Requested:  amount,
			}
		}

		reference := uuid.NewString()
		at := s.now()
		fromBalance := from.Balance.Sub(amount)
		toBalance := to.Balance.Add(amount)

		if err := s.store.UpdateSavingsBalance(ctx, tx, from.AccountID, fromBalance, from.Version); err != nil {
			return err
		}
		if err := s.store.UpdateSavingsBalance(ctx, tx, to.AccountID, toBalance, to.Version); err != nil {
			return err
		}
		if err := s.store.InsertSavingsTransaction(ctx, tx, &models.SavingsTransaction{
			Reference:       reference,
			AccountID:       from.AccountID,
			TransactionType: models.TxnTypeTransfer,
			Amount:          amount,
			BalanceAfter:    fromBalance,
			TransactionDate: at,
		}); err != nil {
			return err
		}
		if err := s.store.InsertSavingsTransaction(ctx, tx, &models.SavingsTransaction{
			Reference:       reference,
			AccountID:       to.AccountID,
			TransactionType: models.TxnTypeTransfer,
			Amount:          amount,
			BalanceAfter:    toBalance,
			TransactionDate: at,
		}); err != nil {
			return err
		}

		result = &TransferResult{
			Reference:     reference,
			FromAccountID: from.AccountID,
			ToAccountID:   to.AccountID,
			Amount:        amount,
			FromBalance:   fromBalance,
			ToBalance:     toBalance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Transfer %s: %s from account %d to account %d", result.Reference, amount.StringFixed(2), fromID, toID)
	return result, nil
}

type LedgerEntryResult struct {
	Reference string          `json:"reference"`
	AccountID int64           `json:"account_id"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
}

// Deposit credits a savings account. Deposits below the policy minimum are
// rejected before any mutation.
func (s *LedgerService) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (*LedgerEntryResult, error) {
	if amount.LessThan(s.minDeposit) {
		return nil, &bankerr.ValidationError{Field: "amount", Msg: "minimum deposit is " + s.minDeposit.StringFixed(2)}
	}

	var result *LedgerEntryResult
	err := s.store.RunTx(ctx, "ledger.deposit", func(tx *sql.Tx) error {
		account, err := s.lockSavings(ctx, tx, accountID)
		if err != nil {
			return err
		}

		balance := account.Balance.Add(amount)
		if err := s.store.UpdateSavingsBalance(ctx, tx, accountID, balance, account.Version); err != nil {
			return err
		}

		reference := uuid.NewString()
		if err := s.store.InsertSavingsTransaction(ctx, tx, &models.SavingsTransaction{
			Reference:       reference,
			AccountID:       accountID,
			TransactionType: models.TxnTypeDeposit,
			Amount:          amount,
			BalanceAfter:    balance,
			TransactionDate: s.now(),
		}); err != nil {
			return err
		}

		result = &LedgerEntryResult{Reference: reference, AccountID: accountID, Amount: amount, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Deposit %s: %s to account %d", result.Reference, amount.StringFixed(2), accountID)
	return result, nil
}

// Withdraw debits a savings account, holding the minimum balance floor.
func (s *LedgerService) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (*LedgerEntryResult, error) {
	if !amount.IsPositive() {
		return nil, &bankerr.ValidationError{Field: "amount", Msg: "withdrawal amount must be greater than zero"}
	}

	var result *LedgerEntryResult
	err := s.store.RunTx(ctx, "ledger.withdraw", func(tx *sql.Tx) error {
		account, err := s.lockSavings(ctx, tx, accountID)
		if err != nil {
			return err
		}

		balance := account.Balance.Sub(amount)
		if balance.LessThan(account.MinBalance) {
			return &bankerr.InsufficientBalanceError{
				AccountID:  accountID,
				Balance:    account.Balance,
				MinBalance: account.MinBalance,
				Requested:  amount,
			}
		}

		if err := s.store.UpdateSavingsBalance(ctx, tx, accountID, balance, account.Version); err != nil {
			return err
		}

		reference := uuid.NewString()
		if err := s.store.InsertSavingsTransaction(ctx, tx, &models.SavingsTransaction{
			Reference:       reference,
			AccountID:       accountID,
			TransactionType: models.TxnTypeWithdrawal,
			Amount:          amount,
			BalanceAfter:    balance,
			TransactionDate: s.now(),
		}); err != nil {
			return err
		}

		result = &LedgerEntryResult{Reference: reference, AccountID: accountID, Amount: amount, Balance: balance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[LEDGER] Withdrawal %s: %s from account %d", result.Reference, amount.StringFixed(2), accountID)
	return result, nil
}

// Transactions lists the savings ledger for one account, newest first.
func (s *LedgerService) Transactions(ctx context.Context, accountID int64) ([]models.SavingsTransaction, error) {
	if _, err := s.store.GetSavings(ctx, s.store.DB(), accountID); err != nil {
		if err == sql.ErrNoRows {
			return nil, &bankerr.NotFoundError{Entity: "savings account", ID: accountID}
		}
		return nil, &bankerr.PersistenceError{Op: "ledger.transactions", Err: err}
	}

	txns, err := s.store.SavingsTransactionsByAccount(ctx, s.store.DB(), accountID)
	if err != nil {
		return nil, &bankerr.PersistenceError{Op: "ledger.transactions", Err: err}
	}
	return txns, nil
}

func (s *LedgerService) lockSavings(ctx context.Context, tx *sql.Tx, accountID int64) (*models.SavingsAccount, error) {
	account, err := s.store.GetSavingsForUpdate(ctx, tx, accountID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, &bankerr.NotFoundError{Entity: "savings account", ID: accountID}
		}
		return nil, err
	}
	return account, nil
}
