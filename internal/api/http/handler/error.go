package handler

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/sealdrop/sealdrop/internal/model"
)

// errorResponse is the wire shape of every failure. Only InvalidCode
// carries attemptsRemaining; no other diagnostic detail ever leaves the
// server. Cooldown waits ride the standard Retry-After header.
type errorResponse struct {
	Error             string `json:"error"`
	AttemptsRemaining *int   `json:"attemptsRemaining,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var invalid *model.InvalidCodeError
	var cooldown *model.CooldownError

	switch {
	case errors.Is(err, model.ErrMalformedInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "MalformedInput"})
	case errors.Is(err, model.ErrNotAvailable):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "NotAvailable"})
	case errors.Is(err, model.ErrTooManyAttempts):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "TooManyAttempts"})
	case errors.As(err, &cooldown):
		retryAfter := int(math.Ceil(cooldown.Remaining.Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "Cooldown"})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "InvalidCode", AttemptsRemaining: &invalid.AttemptsRemaining})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
