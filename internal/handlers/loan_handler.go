package handlers

import (
	"net/http"

	"github.com/minibank/backend/internal/services"
)

type LoanHandler struct {
	service   *services.LoanService
	validator *services.ValidationHelper
}

func NewLoanHandler(service *services.LoanService) *LoanHandler {
	return &LoanHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CreateLoan originates a loan
// @Summary Create a loan account
// @Description Originate a loan with tiered rates and an affordability check
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{customerId=int,loanAmount=string,tenureMonths=int,monthlyTakeHome=string} true "Loan request"
// @Success 201 {object} services.CreateLoanResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /loans [post]
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID      int64  `json:"customerId" validate:"required,gt=0"`
		LoanAmount      string `json:"loanAmount" validate:"required"`
		TenureMonths    int    `json:"tenureMonths" validate:"required,gt=0"`
		MonthlyTakeHome string `json:"monthlyTakeHome" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	amount, ok := parseAmount(w, req.LoanAmount)
	if !ok {
		return
	}
	takeHome, ok := parseAmount(w, req.MonthlyTakeHome)
	if !ok {
		return
	}

	result, err := h.service.CreateLoan(r.Context(), services.CreateLoanParams{
		CustomerID:      req.CustomerID,
		LoanAmount:      amount,
		TenureMonths:    req.TenureMonths,
		MonthlyTakeHome: takeHome,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// PayEMI collects one monthly installment
// @Summary Pay an EMI installment
// @Description Collect the installment for the current calendar month
// @Tags loans
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param loanID path int true "Loan account id"
// @Param request body object{amount=string} true "Payment request"
// @Success 200 {object} services.PayEMIResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /loans/{loanID}/emi [post]
func (h *LoanHandler) PayEMI(w http.ResponseWriter, r *http.Request) {
	loanID, ok := pathID(w, r, "loanID")
	if !ok {
		return
	}
	var req struct {
		Amount string `json:"amount" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	result, err := h.service.PayEMI(r.Context(), loanID, amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Summaries lists every loan a customer holds
// @Summary Loan summaries for a customer
// @Tags loans
// @Produce json
// @Security BearerAuth
// @Param customerID path int true "Customer id"
// @Success 200 {array} models.LoanSummary
// @Router /customers/{customerID}/loans [get]
func (h *LoanHandler) Summaries(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerID")
	if !ok {
		return
	}
	summaries, err := h.service.Summaries(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}
