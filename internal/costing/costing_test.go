package costing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nearlyEqual(t *testing.T, name string, got decimal.Decimal, want float64) {
	t.Helper()
	if math.Abs(got.InexactFloat64()-want) > 1e-9 {
		t.Fatalf("%s = %s, want %v", name, got, want)
	}
}

// A mid-range FDM machine quoting a 3.5 hour print; expectations are
// hand-computed from the documented formulas.
func workshopInput() Input {
	return Input{
		PrinterCost:          d("1000"),
		AncillaryUpfrontCost: d("0"),
		AnnualMaintenance:    d("75"),
		ServiceLifeYears:     d("3"),
		UptimeFraction:       d("0.5"),
		PowerWatts:           d("150"),
		ElectricityPerKWh:    d("0.14"),
		BufferMultiplier:     d("1.3"),
		MaterialPricePerKg:   d("20"),
		MaterialGrams:        d("100"),
		EfficiencyMultiplier: d("1"),
		PrintHours:           d("3.5"),
		LaborMinutes:         d("10"),
		LaborRatePerHour:     d("20"),
		PackagingQuantity:    d("1"),
		PackagingUnitCost:    d("0"),
		Quality:              QualityStandard,
		PostProcess:          PostProcessBasic,
		Margins:              []decimal.Decimal{d("0.6")},
	}
}

func TestEstimateWorkshopScenario(t *testing.T) {
	result := Estimate(workshopInput())

	// lifetimeCost = 1000 + 75*3 = 1225; lifetimeHours = 0.5*8760*3 = 13140
	// machine/hour = (1225/13140 + 0.15*0.14) * 1.3 = 0.148494824961948...
	nearlyEqual(t, "MachineCost", result.MachineCost, 0.5197318873668189)
	nearlyEqual(t, "MaterialsCost", result.MaterialsCost, 2)
	nearlyEqual(t, "LaborCost", result.LaborCost, 10.0/60.0*20)
	nearlyEqual(t, "PostProcessingCost", result.PostProcessingCost, 5)
	nearlyEqual(t, "PackagingCost", result.PackagingCost, 0)
	nearlyEqual(t, "TotalLandedCost", result.TotalLandedCost, 10.853065220700152)

	price, ok := result.MarginPrices["60%"]
	if !ok {
		t.Fatalf("missing 60%% margin price, got %v", result.MarginPrices)
	}
	nearlyEqual(t, "MarginPrices[60%]", price, 27.13266305175038)
}

func TestEstimateTotalIsSumOfComponents(t *testing.T) {
	in := workshopInput()
	in.Quality = QualityUltra
	in.PostProcess = PostProcessElite
	in.ExtraMaterials = []ExtraMaterial{
		{Name: "brass inserts", Quantity: d("4"), UnitCost: d("0.35")},
		{Name: "magnets", Quantity: d("2"), UnitCost: d("1.10")},
	}
	in.PackagingUnitCost = d("1.25")

	result := Estimate(in)

	sum := result.MachineCost.
		Add(result.MaterialsCost).
		Add(result.LaborCost).
		Add(result.PostProcessingCost).
		Add(result.PackagingCost)
	if !result.TotalLandedCost.Equal(sum) {
		t.Fatalf("TotalLandedCost %s != component sum %s", result.TotalLandedCost, sum)
	}

	// extras = 4*0.35 + 2*1.10 = 3.6; post-processing = 15 * 1.5 = 22.5
	nearlyEqual(t, "MaterialsCost", result.MaterialsCost, 2+3.6)
	nearlyEqual(t, "PostProcessingCost", result.PostProcessingCost, 22.5)
	nearlyEqual(t, "PackagingCost", result.PackagingCost, 1.25)
}

func TestEstimateMarginRoundTrip(t *testing.T) {
	in := workshopInput()
	in.Margins = []decimal.Decimal{d("0.1"), d("0.25"), d("0.5"), d("0.75"), d("0.9")}

	result := Estimate(in)

	if len(result.MarginPrices) != len(in.Margins) {
		t.Fatalf("expected %d margin prices, got %d", len(in.Margins), len(result.MarginPrices))
	}
	for _, margin := range in.Margins {
		price := result.MarginPrices[MarginLabel(margin)]
		back := price.Mul(decimal.NewFromInt(1).Sub(margin))
		nearlyEqual(t, "price*(1-m) for "+MarginLabel(margin), back, result.TotalLandedCost.InexactFloat64())
	}
}

func TestEstimateSkipsMarginOfOne(t *testing.T) {
	in := workshopInput()
	in.Margins = []decimal.Decimal{d("0"), d("1"), d("1.5")}

	result := Estimate(in)

	if _, ok := result.MarginPrices["100%"]; ok {
		t.Fatal("margin of exactly 1 must be excluded, not priced")
	}
	if _, ok := result.MarginPrices["150%"]; ok {
		t.Fatal("margins above 1 must be excluded")
	}
	zero, ok := result.MarginPrices["0%"]
	if !ok {
		t.Fatalf("missing 0%% margin price, got %v", result.MarginPrices)
	}
	if !zero.Equal(result.TotalLandedCost) {
		t.Fatalf("0%% price %s should equal landed cost %s", zero, result.TotalLandedCost)
	}
}

func TestEstimateDegenerateLifetimeDoesNotDivideByZero(t *testing.T) {
	in := workshopInput()
	in.UptimeFraction = d("0")

	result := Estimate(in)

	// No uptime means no capital recovery; only the electrical term remains.
	nearlyEqual(t, "MachineCost", result.MachineCost, 0.15*0.14*1.3*3.5)
}

func TestEstimateIsDeterministic(t *testing.T) {
	in := workshopInput()
	in.Margins = []decimal.Decimal{d("0.3"), d("0.6")}

	first := Estimate(in)
	second := Estimate(in)

	if !first.TotalLandedCost.Equal(second.TotalLandedCost) {
		t.Fatalf("totals differ: %s vs %s", first.TotalLandedCost, second.TotalLandedCost)
	}
	for label, price := range first.MarginPrices {
		if !second.MarginPrices[label].Equal(price) {
			t.Fatalf("margin price %s differs: %s vs %s", label, price, second.MarginPrices[label])
		}
	}
}

func TestMarginLabel(t *testing.T) {
	cases := []struct {
		margin string
		want   string
	}{
		{"0.6", "60%"},
		{"0.125", "12.5%"},
		{"0", "0%"},
	}
	for _, tc := range cases {
		if got := MarginLabel(d(tc.margin)); got != tc.want {
			t.Fatalf("MarginLabel(%s) = %q, want %q", tc.margin, got, tc.want)
		}
	}
}
