package handlers

import (
	"net/http"

	"github.com/innovatehubph/payverse-backend/internal/models"
	"github.com/innovatehubph/payverse-backend/internal/services"
)

type CasinoLinkHandler struct {
	service   *services.CasinoLinkService
	validator *services.ValidationHelper
}

func NewCasinoLinkHandler(service *services.CasinoLinkService) *CasinoLinkHandler {
	return &CasinoLinkHandler{
		service:   service,
		validator: services.NewValidationHelper(),
	}
}

// GetLink returns the caller's casino link
// @Summary Get casino link
// @Description Returns the caller's linked casino account, if any
// @Tags Casino
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{link=object}
// @Failure 404 {object} services.ErrorResponse
// @Router /casino/link [get]
func (h *CasinoLinkHandler) GetLink(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	link, err := h.service.GetLink(r.Context(), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"link": link,
	})
}

// Connect starts linking a casino account
// @Summary Connect casino account
// @Description Resolves the casino account and issues a verification challenge
// @Tags Casino
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{casinoUsername=string,accountKind=string} true "Connect request"
// @Success 200 {object} object{challenge=object}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /casino/connect [post]
func (h *CasinoLinkHandler) Connect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		CasinoUsername string `json:"casinoUsername" validate:"required,min=3,max=64"`
		AccountKind    string `json:"accountKind" validate:"omitempty,oneof=player agent"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	ch, err := h.service.Connect(r.Context(), userID, req.CasinoUsername, models.CasinoAccountKind(req.AccountKind))
	if err != nil {
		sendServiceError(w, err)
		return
	}

	// The challenge secret stays server side. The caller only learns what
	// kind of proof to submit and when it expires.
	writeJSON(w, http.StatusOK, map[string]any{
		"challenge": map[string]any{
			"kind":           ch.Kind,
			"casinoUsername": ch.CasinoUsername,
			"accountKind":    ch.AccountKind,
			"expiresAt":      ch.ExpiresAt,
		},
	})
}

// Verify completes linking a casino account
// @Summary Verify casino account
// @Description Checks the challenge answer and writes the verified link
// @Tags Casino
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{casinoUsername=string,answer=string} true "Verify request"
// @Success 200 {object} object{success=bool,link=object}
// @Failure 400 {object} services.ErrorResponse
// @Router /casino/verify [post]
func (h *CasinoLinkHandler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		CasinoUsername string `json:"casinoUsername" validate:"required,min=3,max=64"`
		Answer         string `json:"answer" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	link, err := h.service.VerifyLink(r.Context(), userID, req.CasinoUsername, req.Answer)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"link":    link,
	})
}

// Balance returns the live chip balance of the linked account
// @Summary Get casino chip balance
// @Description Queries the bridge for the linked account's current chip balance
// @Tags Casino
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{balance=number}
// @Failure 403 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /casino/balance [get]
func (h *CasinoLinkHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"balance": balance,
	})
}

// Disconnect removes the caller's casino link
// @Summary Disconnect casino account
// @Description Removes the caller's casino link
// @Tags Casino
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{success=bool}
// @Router /casino/link [delete]
func (h *CasinoLinkHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	if err := h.service.Disconnect(r.Context(), userID); err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}
