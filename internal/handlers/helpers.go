package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/innovatehubph/payverse-backend/internal/services"
)

// requestUserID extracts the authenticated user id placed in the request
// context by the auth middleware.
func requestUserID(r *http.Request) (int, bool) {
	raw, ok := r.Context().Value("userID").(string)
	if !ok || raw == "" {
		return 0, false
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

// decodeBody decodes a single JSON object into dst, rejecting oversized
// bodies, unknown fields and trailing content.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1_048_576)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// sendServiceError translates the service error taxonomy into an HTTP status
// and a stable error body. Unknown errors collapse to 500 without leaking
// internals.
func sendServiceError(w http.ResponseWriter, err error) {
	var validation *services.ValidationError
	var pinLocked *services.PinLockedError
	var pinInvalid *services.PinInvalidError

	switch {
	case errors.As(err, &validation):
		services.SendErrorResponse(w, validation.Msg, http.StatusBadRequest, nil)
	case errors.As(err, &pinLocked):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":        "PIN locked",
			"locked_until": pinLocked.Until,
		})
	case errors.As(err, &pinInvalid):
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"error":              "Invalid PIN",
			"attempts_remaining": pinInvalid.AttemptsRemaining,
		})
	case errors.Is(err, services.ErrPinRequired), errors.Is(err, services.ErrPinNotSet):
		services.SendErrorResponse(w, err.Error(), http.StatusUnauthorized, nil)
	case errors.Is(err, services.ErrPinAlreadySet):
		services.SendErrorResponse(w, err.Error(), http.StatusConflict, nil)
	case errors.Is(err, services.ErrLinkNotFound), errors.Is(err, services.ErrAccountNotFound):
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, services.ErrLinkNotVerified):
		services.SendErrorResponse(w, err.Error(), http.StatusForbidden, nil)
	case errors.Is(err, services.ErrChallengeInvalid), errors.Is(err, services.ErrChallengeExpired):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrInsufficientBalance):
		services.SendErrorResponse(w, err.Error(), http.StatusUnprocessableEntity, nil)
	case errors.Is(err, services.ErrRemoteTimeout):
		services.SendErrorResponse(w, "Remote ledger timed out, please try again", http.StatusGatewayTimeout, nil)
	case errors.Is(err, services.ErrPoolUnavailable), errors.Is(err, services.ErrRemoteAuthRejected):
		services.SendErrorResponse(w, "Exchange temporarily unavailable", http.StatusServiceUnavailable, nil)
	case errors.Is(err, services.ErrRemoteRejected):
		services.SendErrorResponse(w, err.Error(), http.StatusBadGateway, nil)
	default:
		services.SendErrorResponse(w, "Internal server error", http.StatusInternalServerError, nil)
	}
}
