package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/printbay/printbay/internal/costing"
	"github.com/printbay/printbay/internal/metrics"
)

// handleEstimate computes a cost breakdown and margin prices. The estimator
// itself is total; the documented input domain (non-negative numbers, margins
// in [0,1)) is enforced here at the boundary.
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var in costing.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validateEstimateInput(in); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	result := costing.Estimate(in)
	metrics.EstimatesServed.Inc()
	writeJSON(w, http.StatusOK, result)
}

func validateEstimateInput(in costing.Input) error {
	nonNegative := map[string]decimal.Decimal{
		"printer_cost":           in.PrinterCost,
		"ancillary_upfront_cost": in.AncillaryUpfrontCost,
		"annual_maintenance":     in.AnnualMaintenance,
		"service_life_years":     in.ServiceLifeYears,
		"uptime_fraction":        in.UptimeFraction,
		"power_watts":            in.PowerWatts,
		"electricity_per_kwh":    in.ElectricityPerKWh,
		"buffer_multiplier":      in.BufferMultiplier,
		"material_price_per_kg":  in.MaterialPricePerKg,
		"material_grams":         in.MaterialGrams,
		"efficiency_multiplier":  in.EfficiencyMultiplier,
		"print_hours":            in.PrintHours,
		"labor_minutes":          in.LaborMinutes,
		"labor_rate_per_hour":    in.LaborRatePerHour,
		"packaging_quantity":     in.PackagingQuantity,
		"packaging_unit_cost":    in.PackagingUnitCost,
	}
	for field, value := range nonNegative {
		if value.IsNegative() {
			return fmt.Errorf("%s must not be negative", field)
		}
	}

	for i, extra := range in.ExtraMaterials {
		if extra.Quantity.IsNegative() || extra.UnitCost.IsNegative() {
			return fmt.Errorf("extra_materials[%d] must not be negative", i)
		}
	}

	one := decimal.NewFromInt(1)
	for _, margin := range in.Margins {
		if margin.IsNegative() || margin.GreaterThanOrEqual(one) {
			return fmt.Errorf("margins must be fractions in [0,1), got %s", margin)
		}
	}

	return nil
}
