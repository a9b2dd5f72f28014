package handlers

import (
	"net/http"

	"github.com/minibank/backend/internal/services"
)

type LedgerHandler struct {
	service   *services.LedgerService
	validator *services.ValidationHelper
}

func NewLedgerHandler(service *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// Transfer moves money between two savings accounts
// @Summary Transfer between savings accounts
// @Description Debit one savings account and credit another atomically
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{fromAccountId=int,toAccountId=int,amount=string} true "Transfer request"
// @Success 200 {object} services.TransferResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /accounts/transfer [post]
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FromAccountID int64  `json:"fromAccountId" validate:"required,gt=0"`
		ToAccountID   int64  `json:"toAccountId" validate:"required,gt=0"`
		Amount        string `json:"amount" validate:"required"`
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

	result, err := h.service.Transfer(r.Context(), req.FromAccountID, req.ToAccountID, amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Deposit credits a savings account
// @Summary Deposit into a savings account
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountID path int true "Savings account id"
// @Param request body object{amount=string} true "Deposit request"
// @Success 200 {object} services.LedgerEntryResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountID}/deposit [post]
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
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

	result, err := h.service.Deposit(r.Context(), accountID, amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Withdraw debits a savings account
// @Summary Withdraw from a savings account
// @Tags ledger
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param accountID path int true "Savings account id"
// @Param request body object{amount=string} true "Withdrawal request"
// @Success 200 {object} services.LedgerEntryResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /accounts/{accountID}/withdraw [post]
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
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

	result, err := h.service.Withdraw(r.Context(), accountID, amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Transactions lists the ledger of one savings account
// @Summary List savings transactions
// @Tags ledger
// @Produce json
// @Security BearerAuth
// @Param accountID path int true "Savings account id"
// @Success 200 {array} models.SavingsTransaction
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{accountID}/transactions [get]
func (h *LedgerHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}
	txns, err := h.service.Transactions(r.Context(), accountID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, txns)
}
