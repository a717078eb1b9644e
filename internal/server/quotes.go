package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/printbay/printbay/internal/metrics"
)

type submitQuoteRequest struct {
	MakerID               string          `json:"maker_id"`
	Price                 decimal.Decimal `json:"price"`
	Notes                 string          `json:"notes"`
	EstimatedDeliveryDays int             `json:"estimated_delivery_days"`
}

func (s *Server) handleSubmitQuote(w http.ResponseWriter, r *http.Request) {
	var req submitQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.MakerID == "" {
		writeError(w, http.StatusUnprocessableEntity, "maker_id is required")
		return
	}

	q, err := s.quotes.SubmitQuote(r.Context(), chi.URLParam(r, "jobID"),
		req.MakerID, req.Price, req.Notes, req.EstimatedDeliveryDays)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	metrics.QuotesSubmitted.Inc()
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleListQuotes(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, err := s.quotes.GetJob(r.Context(), jobID); err != nil {
		writeLifecycleError(w, err)
		return
	}

	quotes, err := s.quotes.ListQuotes(r.Context(), jobID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quotes)
}

func (s *Server) handleAcceptQuote(w http.ResponseWriter, r *http.Request) {
	job, err := s.quotes.AcceptQuote(r.Context(), chi.URLParam(r, "jobID"), chi.URLParam(r, "quoteID"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
