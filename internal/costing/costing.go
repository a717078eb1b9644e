// Package costing turns machine, material, labor and packaging parameters into
// a landed cost and margin-tiered suggested prices. All money math runs on
// shopspring decimals so a stored quote breakdown can be re-derived later and
// audited bit-for-bit.
package costing

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// QualityTier orders the finish levels a maker can offer. Each tier scales the
// post-processing base cost.
type QualityTier string

const (
	QualityStandard QualityTier = "standard"
	QualityFine     QualityTier = "fine"
	QualityUltra    QualityTier = "ultra"
)

// PostProcessTier selects the post-processing package.
type PostProcessTier string

const (
	PostProcessBasic PostProcessTier = "basic"
	PostProcessElite PostProcessTier = "elite"
)

// ExtraMaterial is a discrete add-on consumed by the job (inserts, magnets,
// hardware) priced as quantity times unit cost.
type ExtraMaterial struct {
	Name     string          `json:"name" yaml:"name"`
	Quantity decimal.Decimal `json:"quantity" yaml:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost" yaml:"unit_cost"`
}

// Input is the full parameter set of one estimate. Monetary fields share a
// single implicit currency; callers validate that numeric fields are
// non-negative and margins sit in [0,1) before calling.
type Input struct {
	PrinterCost          decimal.Decimal `json:"printer_cost" yaml:"printer_cost"`
	AncillaryUpfrontCost decimal.Decimal `json:"ancillary_upfront_cost" yaml:"ancillary_upfront_cost"`
	AnnualMaintenance    decimal.Decimal `json:"annual_maintenance" yaml:"annual_maintenance"`
	ServiceLifeYears     decimal.Decimal `json:"service_life_years" yaml:"service_life_years"`
	UptimeFraction       decimal.Decimal `json:"uptime_fraction" yaml:"uptime_fraction"`
	PowerWatts           decimal.Decimal `json:"power_watts" yaml:"power_watts"`
	ElectricityPerKWh    decimal.Decimal `json:"electricity_per_kwh" yaml:"electricity_per_kwh"`
	BufferMultiplier     decimal.Decimal `json:"buffer_multiplier" yaml:"buffer_multiplier"`

	MaterialPricePerKg   decimal.Decimal `json:"material_price_per_kg" yaml:"material_price_per_kg"`
	MaterialGrams        decimal.Decimal `json:"material_grams" yaml:"material_grams"`
	EfficiencyMultiplier decimal.Decimal `json:"efficiency_multiplier" yaml:"efficiency_multiplier"`
	ExtraMaterials       []ExtraMaterial `json:"extra_materials,omitempty" yaml:"extra_materials"`

	PrintHours       decimal.Decimal `json:"print_hours" yaml:"print_hours"`
	LaborMinutes     decimal.Decimal `json:"labor_minutes" yaml:"labor_minutes"`
	LaborRatePerHour decimal.Decimal `json:"labor_rate_per_hour" yaml:"labor_rate_per_hour"`

	PackagingQuantity decimal.Decimal `json:"packaging_quantity" yaml:"packaging_quantity"`
	PackagingUnitCost decimal.Decimal `json:"packaging_unit_cost" yaml:"packaging_unit_cost"`

	Quality     QualityTier     `json:"quality" yaml:"quality"`
	PostProcess PostProcessTier `json:"post_process" yaml:"post_process"`

	// Margins are profit fractions in [0,1); a margin of exactly 1 would
	// divide by zero and is skipped rather than priced.
	Margins []decimal.Decimal `json:"margins" yaml:"margins"`
}

// Result is the itemized outcome. TotalLandedCost is always the exact sum of
// the five cost components.
type Result struct {
	MachineCost        decimal.Decimal `json:"machine_cost"`
	MaterialsCost      decimal.Decimal `json:"materials_cost"`
	LaborCost          decimal.Decimal `json:"labor_cost"`
	PostProcessingCost decimal.Decimal `json:"post_processing_cost"`
	PackagingCost      decimal.Decimal `json:"packaging_cost"`
	TotalLandedCost    decimal.Decimal `json:"total_landed_cost"`

	// MarginPrices maps a percentage label ("60%") to the suggested price
	// totalLandedCost / (1 - margin).
	MarginPrices map[string]decimal.Decimal `json:"margin_prices"`
}

var (
	hoursPerYear = decimal.NewFromInt(365 * 24)
	thousand     = decimal.NewFromInt(1000)
	sixty        = decimal.NewFromInt(60)
	one          = decimal.NewFromInt(1)
	hundred      = decimal.NewFromInt(100)

	qualityMultipliers = map[QualityTier]decimal.Decimal{
		QualityStandard: decimal.RequireFromString("1.0"),
		QualityFine:     decimal.RequireFromString("1.2"),
		QualityUltra:    decimal.RequireFromString("1.5"),
	}

	postProcessBaseCosts = map[PostProcessTier]decimal.Decimal{
		PostProcessBasic: decimal.RequireFromString("5"),
		PostProcessElite: decimal.RequireFromString("15"),
	}
)

// Estimate computes the cost breakdown and margin prices. It is pure and
// total: no I/O, no failure modes, and identical inputs always produce an
// identical Result. Degenerate inputs (zero service life, zero uptime)
// produce zero rates instead of dividing by zero.
func Estimate(in Input) Result {
	// Capital recovery spread over the machine's expected uptime.
	totalInvestment := in.PrinterCost.Add(in.AncillaryUpfrontCost)
	lifetimeCost := totalInvestment.Add(in.AnnualMaintenance.Mul(in.ServiceLifeYears))
	annualUptimeHours := in.UptimeFraction.Mul(hoursPerYear)
	lifetimeHours := annualUptimeHours.Mul(in.ServiceLifeYears)

	capitalPerHour := decimal.Zero
	if !lifetimeHours.IsZero() {
		capitalPerHour = lifetimeCost.Div(lifetimeHours)
	}
	electricalPerHour := in.PowerWatts.Div(thousand).Mul(in.ElectricityPerKWh)
	// The buffer multiplies the combined hourly rate, not each term.
	machinePerHour := capitalPerHour.Add(electricalPerHour).Mul(in.BufferMultiplier)
	machineCost := machinePerHour.Mul(in.PrintHours)

	printedPartCost := in.MaterialGrams.Div(thousand).Mul(in.MaterialPricePerKg).Mul(in.EfficiencyMultiplier)
	extrasCost := decimal.Zero
	for _, extra := range in.ExtraMaterials {
		extrasCost = extrasCost.Add(extra.Quantity.Mul(extra.UnitCost))
	}
	materialsCost := printedPartCost.Add(extrasCost)

	laborCost := in.LaborMinutes.Div(sixty).Mul(in.LaborRatePerHour)

	postProcessingCost := postProcessBase(in.PostProcess).Mul(qualityMultiplier(in.Quality))

	packagingCost := in.PackagingQuantity.Mul(in.PackagingUnitCost)

	total := machineCost.
		Add(materialsCost).
		Add(laborCost).
		Add(postProcessingCost).
		Add(packagingCost)

	prices := make(map[string]decimal.Decimal, len(in.Margins))
	for _, margin := range in.Margins {
		if margin.GreaterThanOrEqual(one) {
			continue
		}
		prices[MarginLabel(margin)] = total.Div(one.Sub(margin))
	}

	return Result{
		MachineCost:        machineCost,
		MaterialsCost:      materialsCost,
		LaborCost:          laborCost,
		PostProcessingCost: postProcessingCost,
		PackagingCost:      packagingCost,
		TotalLandedCost:    total,
		MarginPrices:       prices,
	}
}

// MarginLabel renders a margin fraction as the percentage key used in
// Result.MarginPrices, e.g. 0.6 -> "60%".
func MarginLabel(margin decimal.Decimal) string {
	pct, _ := margin.Mul(hundred).Float64()
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

func qualityMultiplier(tier QualityTier) decimal.Decimal {
	if m, ok := qualityMultipliers[tier]; ok {
		return m
	}
	return qualityMultipliers[QualityStandard]
}

func postProcessBase(tier PostProcessTier) decimal.Decimal {
	if c, ok := postProcessBaseCosts[tier]; ok {
		return c
	}
	return postProcessBaseCosts[PostProcessBasic]
}
