package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/printbay/printbay/internal/mesh"
	"github.com/printbay/printbay/internal/metrics"
	"github.com/printbay/printbay/internal/quote"
)

type createJobRequest struct {
	CreatorID string `json:"creator_id"`
	Title     string `json:"title"`
	Notes     string `json:"notes"`
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var req createJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.CreatorID == "" {
		writeError(w, http.StatusUnprocessableEntity, "creator_id is required")
		return
	}

	job, err := s.quotes.CreateJob(r.Context(), req.CreatorID, req.Title, req.Notes)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.quotes.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	status := quote.JobStatus(r.URL.Query().Get("status"))
	jobs, err := s.quotes.ListJobs(r.Context(), status)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleSubmitJob(w http.ResponseWriter, r *http.Request) {
	s.transitionJob(w, r, s.quotes.SubmitJob)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	s.transitionJob(w, r, s.quotes.CancelJob)
}

func (s *Server) handleCompleteJob(w http.ResponseWriter, r *http.Request) {
	s.transitionJob(w, r, s.quotes.CompleteJob)
}

func (s *Server) transitionJob(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (quote.Job, error)) {
	job, err := op(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type meshUploadResponse struct {
	Job quote.Job `json:"job"`

	// MeasurementError explains why no measurement was produced. Analyzer
	// failures are not fatal: the job continues, only the displayed
	// dimensions are absent.
	MeasurementError string `json:"measurement_error,omitempty"`
}

// handleUploadMesh reads a raw STL payload, measures it, and attaches the
// result to the job. Analysis runs under the configured timeout and byte cap;
// every failure degrades to "measurement unavailable" instead of failing the
// upload flow.
func (s *Server) handleUploadMesh(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := s.quotes.GetJob(r.Context(), jobID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}

	body := http.MaxBytesReader(w, r.Body, s.cfg.MaxMeshBytes)
	data, err := io.ReadAll(body)
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "mesh exceeds the upload size limit")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.MeshTimeout)
	defer cancel()

	start := time.Now()
	measurement, err := mesh.Measure(ctx, data, mesh.FormatAuto)
	metrics.MeshAnalysisSeconds.Observe(time.Since(start).Seconds())
	metrics.MeshAnalyses.WithLabelValues(meshOutcome(err)).Inc()

	if err != nil {
		s.log.Info("mesh analysis failed",
			zap.String("job_id", jobID),
			zap.String("filename", r.URL.Query().Get("filename")),
			zap.Int("bytes", len(data)),
			zap.Error(err),
		)
		writeJSON(w, http.StatusOK, meshUploadResponse{Job: job, MeasurementError: meshErrorMessage(err)})
		return
	}

	if err := s.quotes.AttachMeasurement(r.Context(), jobID, measurement); err != nil {
		writeLifecycleError(w, err)
		return
	}

	job, err = s.quotes.GetJob(r.Context(), jobID)
	if err != nil {
		writeLifecycleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, meshUploadResponse{Job: job})
}

func meshOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, mesh.ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, mesh.ErrTruncated):
		return "truncated"
	case errors.Is(err, mesh.ErrEmptyMesh):
		return "empty_mesh"
	case errors.Is(err, mesh.ErrTimeout):
		return "timeout"
	default:
		return "error"
	}
}

func meshErrorMessage(err error) string {
	switch {
	case errors.Is(err, mesh.ErrUnsupportedFormat):
		return "the file is not a binary or ASCII STL mesh"
	case errors.Is(err, mesh.ErrTruncated):
		return "the mesh file ends before its declared geometry; re-export and upload again"
	case errors.Is(err, mesh.ErrEmptyMesh):
		return "the mesh contains no triangles"
	case errors.Is(err, mesh.ErrTimeout):
		return "the mesh is too large to analyze right now; the job continues without dimensions"
	default:
		return "the mesh could not be analyzed"
	}
}
