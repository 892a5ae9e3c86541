package handlers

import (
	"net/http"
	"time"

	"github.com/innovatehubph/payverse-backend/internal/audit"
	"github.com/innovatehubph/payverse-backend/internal/models"
	"github.com/innovatehubph/payverse-backend/internal/services"
)

const (
	pendingListLimit = 100
	stuckAge         = 10 * time.Minute
)

// AdminHandler exposes the operator surface: reviewing stuck exchanges and
// recording manual resolutions. Routes are mounted behind the admin role
// middleware.
type AdminHandler struct {
	store     *services.ExchangeStore
	exchanges *services.ExchangeService
	tokens    *services.AgentTokenService
	audit     *audit.Logger
	validator *services.ValidationHelper
}

func NewAdminHandler(store *services.ExchangeStore, exchanges *services.ExchangeService, tokens *services.AgentTokenService) *AdminHandler {
	return &AdminHandler{
		store:     store,
		exchanges: exchanges,
		tokens:    tokens,
		audit:     audit.NewLogger(),
		validator: services.NewValidationHelper(),
	}
}

// PendingExchanges lists exchanges awaiting manual resolution
// @Summary List exchanges needing attention
// @Description Returns manual_required exchanges plus records stuck mid-saga
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{pending=[]object,stuck=[]object}
// @Router /admin/casino/pending [get]
func (h *AdminHandler) PendingExchanges(w http.ResponseWriter, r *http.Request) {
	pending, err := h.store.ListByStatus(r.Context(), models.StatusManualRequired, pendingListLimit)
	if err != nil {
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	stuck, err := h.store.StuckSince(r.Context(), stuckAge, pendingListLimit)
	if err != nil {
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"pending": pending,
		"stuck":   stuck,
	})
}

// ResolveExchange records the operator's outcome for a manual_required exchange
// @Summary Resolve a stuck exchange
// @Description Freezes a manual_required exchange with the operator's outcome
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{transactionId=int,outcome=string} true "Resolution"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /admin/casino/resolve [post]
func (h *AdminHandler) ResolveExchange(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		TransactionID int    `json:"transactionId" validate:"required,gt=0"`
		Outcome       string `json:"outcome" validate:"required,oneof=refunded_manually confirmed_delivered written_off"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, err := h.store.FindByID(r.Context(), req.TransactionID)
	if err != nil {
		services.SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		return
	}

	if err := h.store.Resolve(r.Context(), req.TransactionID, operatorID, req.Outcome); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
		return
	}

	h.audit.LogResolution(tx.Nonce, operatorID, req.Outcome)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// RetryExchange re-drives a stuck exchange from its first outstanding leg
// @Summary Retry a stuck exchange
// @Description Resumes a non-terminal exchange, replaying outstanding legs under the original nonce
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{transactionId=int} true "Retry target"
// @Success 200 {object} object{success=bool,transaction=object}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /admin/casino/retry [post]
func (h *AdminHandler) RetryExchange(w http.ResponseWriter, r *http.Request) {
	operatorID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		TransactionID int `json:"transactionId" validate:"required,gt=0"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	tx, err := h.store.FindByID(r.Context(), req.TransactionID)
	if err != nil {
		services.SendErrorResponse(w, "Transaction not found", http.StatusNotFound, nil)
		return
	}

	h.audit.LogRetry(tx.Nonce, operatorID, string(tx.Status))
	tx, err = h.exchanges.Retry(r.Context(), tx)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     tx.Status.Succeeded(),
		"transaction": tx,
	})
}

// RefreshAgentTokens drops cached agent credentials
// @Summary Refresh agent tokens
// @Description Invalidates cached agent credentials so rotated tokens take effect
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool}
// @Router /admin/casino/tokens/refresh [post]
func (h *AdminHandler) RefreshAgentTokens(w http.ResponseWriter, r *http.Request) {
	h.tokens.InvalidateCache(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}
