package services

import (
	"context"
	"time"

	"github.com/minibank/backend/internal/bankerr"
	"github.com/minibank/backend/internal/models"
	"github.com/minibank/backend/internal/store"
)

// ReportService runs the back-office transaction reports. Filters are
// optional; when a date range is given both ends must be set, ordered, and
// not in the future.
type ReportService struct {
	store *store.Store
	now   func() time.Time
}

func NewReportService(st *store.Store) *ReportService {
	return &ReportService{store: st, now: time.Now}
}

func (s *ReportService) checkFilter(f store.ReportFilter) error {
	if f.From.IsZero() != f.To.IsZero() {
		return &bankerr.ValidationError{Field: "dateRange", Msg: "both from and to dates are required"}
	}
	if f.From.IsZero() {
		if f.CustomerID == 0 {
			return &bankerr.ValidationError{Field: "filter", Msg: "a customer or a date range is required"}
		}
		return nil
	}
	if f.From.After(f.To) {
		return &bankerr.ValidationError{Field: "dateRange", Msg: "from date must not be after to date"}
	}
	if f.To.After(s.now()) {
		return &bankerr.ValidationError{Field: "dateRange", Msg: "to date must not be in the future"}
	}
	return nil
}

// SavingsTransactions reports the savings ledger matching the filter.
func (s *ReportService) SavingsTransactions(ctx context.Context, f store.ReportFilter) ([]models.SavingsTransaction, error) {
	if err := s.checkFilter(f); err != nil {
		return nil, err
	}
	txns, err := s.store.SavingsTransactionsReport(ctx, s.store.DB(), f)
	if err != nil {
		return nil, &bankerr.PersistenceError{Op: "report.savings", Err: err}
	}
	return txns, nil
}

// LoanTransactions reports loan payments matching the filter.
func (s *ReportService) LoanTransactions(ctx context.Context, f store.ReportFilter) ([]models.LoanTransaction, error) {
	if err := s.checkFilter(f); err != nil {
		return nil, err
	}
	txns, err := s.store.LoanTransactionsReport(ctx, s.store.DB(), f)
	if err != nil {
		return nil, &bankerr.PersistenceError{Op: "report.loans", Err: err}
	}
	return txns, nil
}
