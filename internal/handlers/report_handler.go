package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/minibank/backend/internal/services"
	"github.com/minibank/backend/internal/store"
)

type ReportHandler struct {
	service *services.ReportService
}

func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func reportFilter(w http.ResponseWriter, r *http.Request) (store.ReportFilter, bool) {
	var f store.ReportFilter
	q := r.URL.Query()

	if raw := q.Get("customerId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			services.SendErrorResponse(w, "Invalid customerId", http.StatusBadRequest, nil)
			return f, false
		}
		f.CustomerID = id
	}
	if raw := q.Get("from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			services.SendErrorResponse(w, "Invalid from date", http.StatusBadRequest, nil)
			return f, false
		}
		f.From = from
	}
	if raw := q.Get("to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			services.SendErrorResponse(w, "Invalid to date", http.StatusBadRequest, nil)
			return f, false
		}
		f.To = to
	}
	return f, true
}

// SavingsTransactions reports the savings ledger
// @Summary Savings transaction report
// @Description Back-office report over the savings ledger, filtered by customer and date range
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param customerId query int false "Customer id"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} models.SavingsTransaction
// @Failure 400 {object} services.ErrorResponse
// @Router /reports/savings [get]
func (h *ReportHandler) SavingsTransactions(w http.ResponseWriter, r *http.Request) {
	filter, ok := reportFilter(w, r)
	if !ok {
		return
	}
	txns, err := h.service.SavingsTransactions(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txns)
}

// LoanTransactions reports loan payments
// @Summary Loan transaction report
// @Description Back-office report over loan payments, filtered by customer and date range
// @Tags reports
// @Produce json
// @Security BearerAuth
// @Param customerId query int false "Customer id"
// @Param from query string false "Start date (YYYY-MM-DD)"
// @Param to query string false "End date (YYYY-MM-DD)"
// @Success 200 {array} models.LoanTransaction
// @Failure 400 {object} services.ErrorResponse
// @Router /reports/loans [get]
func (h *ReportHandler) LoanTransactions(w http.ResponseWriter, r *http.Request) {
	filter, ok := reportFilter(w, r)
	if !ok {
		return
	}
	txns, err := h.service.LoanTransactions(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txns)
}
