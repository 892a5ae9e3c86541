package handlers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/innovatehubph/payverse-backend/internal/services"
)

const defaultHistoryLimit = 50

type ExchangeHandler struct {
	service   *services.ExchangeService
	store     *services.ExchangeStore
	validator *services.ValidationHelper
}

func NewExchangeHandler(service *services.ExchangeService, store *services.ExchangeStore) *ExchangeHandler {
	return &ExchangeHandler{
		service:   service,
		store:     store,
		validator: services.NewValidationHelper(),
	}
}

type exchangeRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
	Pin    string  `json:"pin" validate:"required"`
}

// wholeAmount floors a fractional amount to whole tokens. Clients may send
// "500.75"; the exchange only moves whole PHPT.
func (r exchangeRequest) wholeAmount() int64 {
	return int64(math.Floor(r.Amount))
}

// Deposit buys casino chips with wallet tokens
// @Summary Deposit chips
// @Description Exchange wallet PHPT for casino chips on the linked account
// @Tags Exchange
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body exchangeRequest true "Deposit request"
// @Success 200 {object} object{success=bool,transaction=object}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /exchange/deposit [post]
func (h *ExchangeHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req exchangeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, err := h.service.Deposit(r.Context(), userID, req.wholeAmount(), req.Pin)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     tx.Status.Succeeded(),
		"transaction": tx,
	})
}

// Withdraw sells casino chips for wallet tokens
// @Summary Withdraw chips
// @Description Exchange casino chips on the linked account for wallet PHPT
// @Tags Exchange
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body exchangeRequest true "Withdrawal request"
// @Success 200 {object} object{success=bool,transaction=object}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /exchange/withdraw [post]
func (h *ExchangeHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req exchangeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, err := h.service.Withdraw(r.Context(), userID, req.wholeAmount(), req.Pin)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     tx.Status.Succeeded(),
		"transaction": tx,
	})
}

// ListTransactions returns the caller's exchange history
// @Summary List exchange transactions
// @Description Returns the caller's chip exchange history, newest first
// @Tags Exchange
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Maximum records to return"
// @Success 200 {object} object{transactions=[]object}
// @Failure 401 {object} services.ErrorResponse
// @Router /exchange/transactions [get]
func (h *ExchangeHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}

	transactions, err := h.store.ListByUser(r.Context(), userID, limit)
	if err != nil {
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": transactions,
	})
}

// TransactionStatus returns one exchange transaction by id
// @Summary Get exchange transaction status
// @Description Returns the current saga state of one exchange transaction
// @Tags Exchange
// @Produce json
// @Security BearerAuth
// @Param id path int true "Transaction id"
// @Success 200 {object} object{transaction=object}
// @Failure 404 {object} services.ErrorResponse
// @Router /exchange/transactions/{id} [get]
func (h *ExchangeHandler) TransactionStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid transaction id", http.StatusBadRequest, nil)
		return
	}

	tx, err := h.store.FindByID(r.Context(), id)
	if err != nil || tx.UserID != userID {
		services.SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction": tx,
	})
}
