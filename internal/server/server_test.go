package server

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/printbay/printbay/internal/config"
	"github.com/printbay/printbay/internal/db"
	"github.com/printbay/printbay/internal/migrations"
	"github.com/printbay/printbay/internal/quote"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	require.NoError(t, migrations.Up(database))

	cfg := config.Config{
		MaxMeshBytes: 1 << 20,
		MeshTimeout:  2 * time.Second,
	}
	return New(cfg, zap.NewNop(), database).Router()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func createOpenJob(t *testing.T, h http.Handler) quote.Job {
	t.Helper()

	rec := doJSON(t, h, http.MethodPost, "/api/jobs", map[string]string{
		"creator_id": "creator-1",
		"title":      "Enclosure lid",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	job := decode[quote.Job](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	return decode[quote.Job](t, rec)
}

// binaryBoxSTL encodes a binary STL of the box [0,w]x[0,d]x[0,h].
func binaryBoxSTL(w, d, h float64) []byte {
	p := func(x, y, z float64) [3]float64 { return [3]float64{x, y, z} }
	quads := [][4][3]float64{
		{p(0, 0, 0), p(0, d, 0), p(w, d, 0), p(w, 0, 0)},
		{p(0, 0, h), p(w, 0, h), p(w, d, h), p(0, d, h)},
		{p(0, 0, 0), p(w, 0, 0), p(w, 0, h), p(0, 0, h)},
		{p(w, d, 0), p(0, d, 0), p(0, d, h), p(w, d, h)},
		{p(0, 0, 0), p(0, 0, h), p(0, d, h), p(0, d, 0)},
		{p(w, 0, 0), p(w, d, 0), p(w, d, h), p(w, 0, h)},
	}
	var tris [][3][3]float64
	for _, q := range quads {
		tris = append(tris, [3][3]float64{q[0], q[1], q[2]}, [3][3]float64{q[0], q[2], q[3]})
	}

	buf := make([]byte, 84+len(tris)*50)
	binary.LittleEndian.PutUint32(buf[80:], uint32(len(tris)))
	off := 84
	for _, tri := range tris {
		rec := buf[off+12 : off+50]
		for v := 0; v < 3; v++ {
			for c := 0; c < 3; c++ {
				binary.LittleEndian.PutUint32(rec[(v*3+c)*4:], math.Float32bits(float32(tri[v][c])))
			}
		}
		off += 50
	}
	return buf
}

func TestJobQuoteFlow(t *testing.T) {
	h := newTestRouter(t)
	job := createOpenJob(t, h)

	// Mesh upload attaches a measurement.
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/"+job.ID+"/mesh?filename=lid.stl",
		bytes.NewReader(binaryBoxSTL(10, 20, 30)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	upload := decode[meshUploadResponse](t, rec)
	require.Empty(t, upload.MeasurementError)
	require.NotNil(t, upload.Job.Measurement)
	require.InDelta(t, 10, upload.Job.Measurement.WidthMM, 1e-6)
	require.InDelta(t, 20, upload.Job.Measurement.DepthMM, 1e-6)
	require.InDelta(t, 30, upload.Job.Measurement.HeightMM, 1e-6)

	// Two makers quote; the creator accepts the second.
	rec = doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/quotes", map[string]any{
		"maker_id": "maker-1", "price": "30", "estimated_delivery_days": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	first := decode[quote.Quote](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/quotes", map[string]any{
		"maker_id": "maker-2", "price": "27.50", "estimated_delivery_days": 6,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[quote.Quote](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/quotes/"+second.ID+"/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	accepted := decode[quote.Job](t, rec)
	require.Equal(t, quote.JobInProgress, accepted.Status)
	require.Equal(t, second.ID, accepted.AcceptedQuoteID)

	// A late accept on the losing quote reads as a conflict, not an error.
	rec = doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/quotes/"+first.ID+"/accept", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "no longer available")

	rec = doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, quote.JobCompleted, decode[quote.Job](t, rec).Status)
}

func TestMeshUploadDegradesOnBadFile(t *testing.T) {
	h := newTestRouter(t)
	job := createOpenJob(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs/"+job.ID+"/mesh",
		bytes.NewReader([]byte("this is not a mesh at all")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	upload := decode[meshUploadResponse](t, rec)
	require.NotEmpty(t, upload.MeasurementError)
	require.Nil(t, upload.Job.Measurement)
}

func TestSubmitQuoteOnClosedJob(t *testing.T) {
	h := newTestRouter(t)
	job := createOpenJob(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/quotes", map[string]any{
		"maker_id": "maker-1", "price": "30", "estimated_delivery_days": 4,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	q := decode[quote.Quote](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/quotes/"+q.ID+"/accept", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/quotes", map[string]any{
		"maker_id": "maker-2", "price": "25", "estimated_delivery_days": 3,
	})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestSubmitQuoteValidationErrors(t *testing.T) {
	h := newTestRouter(t)
	job := createOpenJob(t, h)

	rec := doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/quotes", map[string]any{
		"maker_id": "maker-1", "price": "0", "estimated_delivery_days": 4,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/jobs/"+job.ID+"/quotes", map[string]any{
		"maker_id": "maker-1", "price": "10", "estimated_delivery_days": 0,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/jobs/no-such-job/quotes", map[string]any{
		"maker_id": "maker-1", "price": "10", "estimated_delivery_days": 4,
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEstimateEndpoint(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/estimate", map[string]any{
		"printer_cost":          "1000",
		"annual_maintenance":    "75",
		"service_life_years":    "3",
		"uptime_fraction":       "0.5",
		"power_watts":           "150",
		"electricity_per_kwh":   "0.14",
		"buffer_multiplier":     "1.3",
		"material_price_per_kg": "20",
		"material_grams":        "100",
		"efficiency_multiplier": "1",
		"print_hours":           "3.5",
		"labor_minutes":         "10",
		"labor_rate_per_hour":   "20",
		"packaging_quantity":    "1",
		"packaging_unit_cost":   "0",
		"quality":               "standard",
		"post_process":          "basic",
		"margins":               []string{"0.6"},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var result struct {
		TotalLandedCost float64            `json:"total_landed_cost"`
		MarginPrices    map[string]float64 `json:"margin_prices"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	require.InDelta(t, 10.853065220700152, result.TotalLandedCost, 1e-9)
	require.InDelta(t, 27.13266305175038, result.MarginPrices["60%"], 1e-9)
}

func TestEstimateRejectsOutOfDomainInput(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/estimate", map[string]any{
		"printer_cost": "-5",
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/estimate", map[string]any{
		"margins": []string{"1"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMaterialsCRUD(t *testing.T) {
	h := newTestRouter(t)

	rec := doJSON(t, h, http.MethodPost, "/api/materials", map[string]any{
		"name": "PLA matte", "price_per_kg": 22.5,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[Material](t, rec)
	require.True(t, created.Active)

	rec = doJSON(t, h, http.MethodPost, "/api/materials", map[string]any{
		"name": "PETG", "price_per_kg": 0,
	})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	inactive := false
	rec = doJSON(t, h, http.MethodPost, "/api/materials/1", map[string]any{
		"name": "PLA matte", "price_per_kg": 24.0, "active": inactive,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[Material](t, rec)
	require.False(t, updated.Active)
	require.InDelta(t, 24.0, updated.PricePerKg, 1e-9)

	rec = doJSON(t, h, http.MethodGet, "/api/materials", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]Material](t, rec)
	require.Len(t, list, 1)
}
