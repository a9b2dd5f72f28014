package handlers

import (
	"net/http"

	"github.com/minibank/backend/internal/services"
)

type ClosureHandler struct {
	service   *services.ClosureService
	validator *services.ValidationHelper
}

func NewClosureHandler(service *services.ClosureService) *ClosureHandler {
	return &ClosureHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// CloseAccounts closes selected savings and loan accounts
// @Summary Close selected accounts
// @Description Close zero-balance savings accounts and settled loans in one batch
// @Tags closure
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param customerID path int true "Customer id"
// @Param request body object{savingsAccountIds=[]int,loanAccountIds=[]int} true "Closure request"
// @Success 200 {object} services.CloseAccountsResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /customers/{customerID}/accounts/close [post]
func (h *ClosureHandler) CloseAccounts(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerID")
	if !ok {
		return
	}
	var req struct {
		SavingsAccountIDs []int64 `json:"savingsAccountIds"`
		LoanAccountIDs    []int64 `json:"loanAccountIds"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.service.CloseSelectedAccounts(r.Context(), customerID, req.SavingsAccountIDs, req.LoanAccountIDs)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// CloseCustomer removes a customer with no remaining accounts
// @Summary Close a customer
// @Description Delete the customer record and login once every account is closed
// @Tags closure
// @Produce json
// @Security BearerAuth
// @Param customerID path int true "Customer id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /customers/{customerID} [delete]
func (h *ClosureHandler) CloseCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerID")
	if !ok {
		return
	}
	if err := h.service.CloseCustomer(r.Context(), customerID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Customer closed"})
}
