package handlers

import (
	"net/http"

	"github.com/innovatehubph/payverse-backend/internal/services"
)

type SecurityHandler struct {
	pin       *services.PinService
	validator *services.ValidationHelper
}

func NewSecurityHandler(pin *services.PinService) *SecurityHandler {
	return &SecurityHandler{
		pin:       pin,
		validator: services.NewValidationHelper(),
	}
}

// SetupPin creates the transaction PIN
// @Summary Set up transaction PIN
// @Description Creates the transaction PIN for a user that has none
// @Tags Security
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{pin=string} true "PIN setup request"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /security/pin [post]
func (h *SecurityHandler) SetupPin(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Pin string `json:"pin" validate:"required,numeric,min=4,max=6"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.pin.SetupPin(r.Context(), userID, req.Pin); err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// ChangePin replaces the transaction PIN
// @Summary Change transaction PIN
// @Description Replaces the transaction PIN after verifying the current one
// @Tags Security
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{currentPin=string,newPin=string} true "PIN change request"
// @Success 200 {object} object{success=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /security/pin [put]
func (h *SecurityHandler) ChangePin(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		CurrentPin string `json:"currentPin" validate:"required"`
		NewPin     string `json:"newPin" validate:"required,numeric,min=4,max=6"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.pin.ChangePin(r.Context(), userID, req.CurrentPin, req.NewPin); err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
	})
}

// VerifyPin checks the transaction PIN without moving money
// @Summary Verify transaction PIN
// @Description Checks the PIN, consuming an attempt slot on a wrong guess
// @Tags Security
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{pin=string} true "PIN verify request"
// @Success 200 {object} object{valid=bool}
// @Failure 401 {object} services.ErrorResponse
// @Failure 429 {object} services.ErrorResponse
// @Router /security/pin/verify [post]
func (h *SecurityHandler) VerifyPin(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Pin string `json:"pin" validate:"required"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.pin.Authorize(r.Context(), userID, req.Pin); err != nil {
		sendServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"valid": true,
	})
}

// PinStatus reports PIN state
// @Summary Get PIN status
// @Description Reports whether a PIN exists and whether a lockout is active
// @Tags Security
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{pinSet=bool,lockedUntil=string}
// @Router /security/pin [get]
func (h *SecurityHandler) PinStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUserID(r)
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	pinSet, lockedUntil, err := h.pin.Status(r.Context(), userID)
	if err != nil {
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
		return
	}

	resp := map[string]any{
		"pinSet": pinSet,
	}
	if lockedUntil != nil {
		resp["lockedUntil"] = lockedUntil
	}
	writeJSON(w, http.StatusOK, resp)
}
