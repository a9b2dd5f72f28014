package handlers

import (
	"net/http"
	"time"

	"github.com/minibank/backend/internal/services"
)

type CustomerHandler struct {
	service   *services.CustomerService
	validator *services.ValidationHelper
}

func NewCustomerHandler(service *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// OpenAccount onboards a customer with a funded savings account
// @Summary Open a savings account
// @Description Create the customer, a savings account and a login in one step
// @Tags customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{name=string,pan=string,dob=string,email=string,openingBalance=string} true "Account opening request"
// @Success 201 {object} services.OpenAccountResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /customers [post]
func (h *CustomerHandler) OpenAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name           string `json:"name" validate:"required"`
		PAN            string `json:"pan" validate:"required"`
		DOB            string `json:"dob" validate:"required,datetime=2006-01-02"`
		Email          string `json:"email" validate:"required,email"`
		OpeningBalance string `json:"openingBalance" validate:"required"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	opening, ok := parseAmount(w, req.OpeningBalance)
	if !ok {
		return
	}
	dob, _ := time.Parse("2006-01-02", req.DOB)

	result, err := h.service.OpenSavingsAccount(r.Context(), services.OpenAccountParams{
		Name:           req.Name,
		PAN:            req.PAN,
		DOB:            dob,
		Email:          req.Email,
		OpeningBalance: opening,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// Summary returns the customer dashboard
// @Summary Customer dashboard
// @Description The customer, their accounts, combined savings and loan status
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param customerID path int true "Customer id"
// @Success 200 {object} services.CustomerSummary
// @Failure 404 {object} services.ErrorResponse
// @Router /customers/{customerID} [get]
func (h *CustomerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerID")
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), customerID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}
