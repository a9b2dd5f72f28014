package services

import (
	"context"
	"database/sql"
	"log"

	"github.com/minibank/backend/internal/bankerr"
	"github.com/minibank/backend/internal/store"
)

// ClosureService retires accounts and customers. Savings accounts must be at
// exactly zero and are physically deleted along with their ledger; loans must
// be fully settled and are only flagged closed, never deleted. A customer can
// be removed only after every account is gone.
type ClosureService struct {
	store *store.Store
}

func NewClosureService(st *store.Store) *ClosureService {
	return &ClosureService{store: st}
}

type CloseAccountsResult struct {
	SavingsClosed []int64 `json:"savings_closed"`
	LoansClosed   []int64 `json:"loans_closed"`
}

// CloseSelectedAccounts closes the given savings and loan accounts in one
// atomic scope. Any account that fails its precondition aborts the whole
// batch.
func (s *ClosureService) CloseSelectedAccounts(ctx context.Context, customerID int64, savingsIDs, loanIDs []int64) (*CloseAccountsResult, error) {
	if len(savingsIDs) == 0 && len(loanIDs) == 0 {
		return nil, &bankerr.ValidationError{Field: "accounts", Msg: "no accounts selected for closure"}
	}

	result := &CloseAccountsResult{SavingsClosed: []int64{}, LoansClosed: []int64{}}
	err := s.store.RunTx(ctx, "closure.accounts", func(tx *sql.Tx) error {
		if _, err := s.store.GetCustomer(ctx, tx, customerID); err != nil {
			if err == sql.ErrNoRows {
				return &bankerr.NotFoundError{Entity: "customer", ID: customerID}
			}
			return err
		}

		for _, accountID := range savingsIDs {
			account, err := s.store.GetSavingsForUpdate(ctx, tx, accountID)
			if err != nil {
				if err == sql.ErrNoRows {
					return &bankerr.NotFoundError{Entity: "savings account", ID: accountID}
				}
				return err
			}
			if !account.Balance.IsZero() {
				return &bankerr.ConstraintViolationError{
					Entity: "savings account",
					ID:     accountID,
					Msg:    "balance must be zero before closing, currently " + account.Balance.StringFixed(2),
				}
			}
			if err := s.store.DeleteSavingsTransactions(ctx, tx, accountID); err != nil {
				return err
			}
			if err := s.store.DeleteSavingsAccount(ctx, tx, accountID); err != nil {
				return err
			}
			if err := s.store.DeleteAccount(ctx, tx, accountID); err != nil {
				return err
			}
			result.SavingsClosed = append(result.SavingsClosed, accountID)
		}

		for _, loanID := range loanIDs {
			loan, err := s.store.GetLoanForUpdate(ctx, tx, loanID)
			if err != nil {
				if err == sql.ErrNoRows {
					return &bankerr.NotFoundError{Entity: "loan", ID: loanID}
				}
				return err
			}
			if loan.Outstanding.IsPositive() {
				return &bankerr.ConstraintViolationError{
					Entity: "loan",
					ID:     loanID,
					Msg:    "outstanding amount must be zero before closing, currently " + loan.Outstanding.StringFixed(2),
				}
			}
			if !loan.IsClosed {
				if err := s.store.MarkLoanClosed(ctx, tx, loanID); err != nil {
					return err
				}
			}
			result.LoansClosed = append(result.LoansClosed, loanID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("[CLOSURE] Customer %d: closed %d savings, %d loan accounts", customerID, len(result.SavingsClosed), len(result.LoansClosed))
	return result, nil
}

// CloseCustomer removes a customer who has no remaining accounts, along with
// their login.
func (s *ClosureService) CloseCustomer(ctx context.Context, customerID int64) error {
	err := s.store.RunTx(ctx, "closure.customer", func(tx *sql.Tx) error {
		if _, err := s.store.GetCustomer(ctx, tx, customerID); err != nil {
			if err == sql.ErrNoRows {
				return &bankerr.NotFoundError{Entity: "customer", ID: customerID}
			}
			return err
		}

		hasAccounts, err := s.store.HasAccounts(ctx, tx, customerID)
		if err != nil {
			return err
		}
		if hasAccounts {
			return &bankerr.ConstraintViolationError{
				Entity: "customer",
				ID:     customerID,
				Msg:    "all accounts must be closed before removing the customer",
			}
		}

		if err := s.store.DeleteCustomerLogin(ctx, tx, customerID); err != nil {
			return err
		}
		return s.store.DeleteCustomer(ctx, tx, customerID)
	})
	if err != nil {
		return err
	}

	log.Printf("[CLOSURE] Customer %d removed", customerID)
	return nil
}
