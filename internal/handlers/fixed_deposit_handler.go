package handlers

import (
	"net/http"
	"time"

	"github.com/minibank/backend/internal/services"
)

type FixedDepositHandler struct {
	service   *services.FixedDepositService
	validator *services.ValidationHelper
}

func NewFixedDepositHandler(service *services.FixedDepositService) *FixedDepositHandler {
	return &FixedDepositHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Create books a fixed deposit
// @Summary Open a fixed deposit
// @Description Book a term deposit with slab rates and a senior bonus
// @Tags deposits
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{customerId=int,principal=string,tenureYears=int,startDate=string,forceSenior=bool} true "Fixed deposit request"
// @Success 201 {object} services.CreateFixedDepositResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /deposits [post]
func (h *FixedDepositHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID  int64  `json:"customerId" validate:"required,gt=0"`
		Principal   string `json:"principal" validate:"required"`
		TenureYears int    `json:"tenureYears" validate:"required,gt=0"`
		StartDate   string `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
		ForceSenior bool   `json:"forceSenior"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	principal, ok := parseAmount(w, req.Principal)
	if !ok {
		return
	}

	var start time.Time
	if req.StartDate != "" {
		start, _ = time.Parse("2006-01-02", req.StartDate)
	}

	result, err := h.service.CreateFixedDeposit(r.Context(), services.CreateFixedDepositParams{
		CustomerID:  req.CustomerID,
		Principal:   principal,
		TenureYears: req.TenureYears,
		StartDate:   start,
		ForceSenior: req.ForceSenior,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}
