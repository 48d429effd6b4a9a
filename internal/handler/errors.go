package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ncarvajal/casita/backend/internal/domain"
)

// errorDetail is the machine-readable half of an error response.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse is the JSON envelope every error is wrapped in.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// writeJSON serializes v with the given status. Encoding failures at this
// point can only be logged; the status line has already been written.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// respondError maps domain sentinel errors to HTTP statuses:
//
//	ErrValidation  → 422
//	ErrNotFound    → 404
//	ErrExpired     → 410
//	ErrAlreadyUsed → 409
//	ErrConflict    → 409
//
// Anything else is an internal error: logged with its full wrap chain,
// reported to the client without detail.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{errorDetail{Code: "validation_error", Message: unwrapMessage(err)}})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{errorDetail{Code: "not_found", Message: unwrapMessage(err)}})
	case errors.Is(err, domain.ErrExpired):
		writeJSON(w, http.StatusGone, errorResponse{errorDetail{Code: "expired", Message: unwrapMessage(err)}})
	case errors.Is(err, domain.ErrAlreadyUsed):
		writeJSON(w, http.StatusConflict, errorResponse{errorDetail{Code: "already_used", Message: unwrapMessage(err)}})
	case errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{errorDetail{Code: "conflict", Message: unwrapMessage(err)}})
	default:
		slog.Error("internal error", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{errorDetail{Code: "internal_error", Message: "internal server error"}})
	}
}

// respondBadRequest reports a request rejected before reaching the service
// layer (missing or malformed body, bad path parameter).
func respondBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{errorDetail{Code: "validation_error", Message: message}})
}

// respondGuestInvalid is the single error the guest surface ever returns for
// a token problem. NotFound, Expired and AlreadyUsed all collapse into it so
// responses never reveal whether a token exists.
func respondGuestInvalid(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, errorResponse{errorDetail{Code: "invalid_link", Message: "this registration link is invalid or has expired"}})
}

// unwrapMessage extracts the human-readable tail from a wrapped sentinel
// error, e.g. "service.ReservationService.Create: validation error: guest
// name is required" → "guest name is required".
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []string{
		domain.ErrValidation.Error(),
		domain.ErrNotFound.Error(),
		domain.ErrExpired.Error(),
		domain.ErrAlreadyUsed.Error(),
		domain.ErrConflict.Error(),
	} {
		if i := strings.LastIndex(msg, sentinel+": "); i >= 0 {
			return msg[i+len(sentinel)+2:]
		}
	}
	// The sentinel itself was the end of the chain; drop any wrap prefixes.
	if i := strings.LastIndex(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}
