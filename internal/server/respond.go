package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/printbay/printbay/internal/metrics"
	"github.com/printbay/printbay/internal/quote"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeLifecycleError maps the lifecycle sentinels onto HTTP statuses.
// Accept conflicts are expected under normal multi-maker operation and get
// the user-facing phrasing instead of an internal one.
func writeLifecycleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, quote.ErrJobNotFound), errors.Is(err, quote.ErrQuoteNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, quote.ErrAlreadyAccepted):
		metrics.AcceptConflicts.Inc()
		writeError(w, http.StatusConflict, "this opportunity is no longer available")
	case errors.Is(err, quote.ErrJobNotOpen), errors.Is(err, quote.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, quote.ErrInvalidPrice), errors.Is(err, quote.ErrInvalidDeliveryDays):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
