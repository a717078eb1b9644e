package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Material is a filament/resin preset makers pick as the estimator's
// material_price_per_kg starting point.
type Material struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	PricePerKg float64 `json:"price_per_kg"`
	Notes      string  `json:"notes,omitempty"`
	Active     bool    `json:"active"`
}

type materialRequest struct {
	Name       string  `json:"name"`
	PricePerKg float64 `json:"price_per_kg"`
	Notes      string  `json:"notes"`
	Active     *bool   `json:"active"`
}

func (req materialRequest) validate() error {
	if req.Name == "" {
		return fmt.Errorf("name is required")
	}
	if req.PricePerKg <= 0 {
		return fmt.Errorf("price_per_kg must be greater than 0")
	}
	return nil
}

func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(), `
		SELECT id, name, price_per_kg, COALESCE(notes, ''), active
		FROM materials
		ORDER BY id DESC
	`)
	if err != nil {
		s.log.Error("query materials", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load materials")
		return
	}
	defer rows.Close()

	materials := make([]Material, 0)
	for rows.Next() {
		var m Material
		if err := rows.Scan(&m.ID, &m.Name, &m.PricePerKg, &m.Notes, &m.Active); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load materials")
			return
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load materials")
		return
	}

	writeJSON(w, http.StatusOK, materials)
}

func (s *Server) handleCreateMaterial(w http.ResponseWriter, r *http.Request) {
	var req materialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result, err := s.db.ExecContext(r.Context(), `
		INSERT INTO materials (name, price_per_kg, notes, active)
		VALUES (?, ?, ?, TRUE)
	`, req.Name, req.PricePerKg, req.Notes)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create material")
		return
	}

	id, err := result.LastInsertId()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create material")
		return
	}

	writeJSON(w, http.StatusCreated, Material{
		ID:         id,
		Name:       req.Name,
		PricePerKg: req.PricePerKg,
		Notes:      req.Notes,
		Active:     true,
	})
}

func (s *Server) handleUpdateMaterial(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid material id")
		return
	}

	var req materialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	result, err := s.db.ExecContext(r.Context(), `
		UPDATE materials
		SET
			name = ?,
			price_per_kg = ?,
			notes = ?,
			active = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, req.Name, req.PricePerKg, req.Notes, active, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update material")
		return
	}

	affected, err := result.RowsAffected()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update material")
		return
	}
	if affected == 0 {
		writeError(w, http.StatusNotFound, "material not found")
		return
	}

	writeJSON(w, http.StatusOK, Material{
		ID:         id,
		Name:       req.Name,
		PricePerKg: req.PricePerKg,
		Notes:      req.Notes,
		Active:     active,
	})
}
