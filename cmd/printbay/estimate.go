package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/printbay/printbay/internal/costing"
)

func newEstimateCmd() *cobra.Command {
	var inputPath string

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Compute a cost breakdown and margin prices from a YAML parameter file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEstimate(inputPath)
		},
	}
	cmd.Flags().StringVarP(&inputPath, "file", "f", "", "YAML file with estimate parameters")
	cmd.MarkFlagRequired("file")
	return cmd
}

// estimateFile mirrors costing.Input with plain floats because the YAML
// decoder cannot fill decimal fields directly.
type estimateFile struct {
	PrinterCost          float64 `yaml:"printer_cost"`
	AncillaryUpfrontCost float64 `yaml:"ancillary_upfront_cost"`
	AnnualMaintenance    float64 `yaml:"annual_maintenance"`
	ServiceLifeYears     float64 `yaml:"service_life_years"`
	UptimeFraction       float64 `yaml:"uptime_fraction"`
	PowerWatts           float64 `yaml:"power_watts"`
	ElectricityPerKWh    float64 `yaml:"electricity_per_kwh"`
	BufferMultiplier     float64 `yaml:"buffer_multiplier"`

	MaterialPricePerKg   float64 `yaml:"material_price_per_kg"`
	MaterialGrams        float64 `yaml:"material_grams"`
	EfficiencyMultiplier float64 `yaml:"efficiency_multiplier"`
	ExtraMaterials       []struct {
		Name     string  `yaml:"name"`
		Quantity float64 `yaml:"quantity"`
		UnitCost float64 `yaml:"unit_cost"`
	} `yaml:"extra_materials"`

	PrintHours       float64 `yaml:"print_hours"`
	LaborMinutes     float64 `yaml:"labor_minutes"`
	LaborRatePerHour float64 `yaml:"labor_rate_per_hour"`

	PackagingQuantity float64 `yaml:"packaging_quantity"`
	PackagingUnitCost float64 `yaml:"packaging_unit_cost"`

	Quality     string `yaml:"quality"`
	PostProcess string `yaml:"post_process"`

	Margins []float64 `yaml:"margins"`
}

func runEstimate(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read estimate file: %w", err)
	}

	var file estimateFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse estimate file: %w", err)
	}

	in := costing.Input{
		PrinterCost:          decimal.NewFromFloat(file.PrinterCost),
		AncillaryUpfrontCost: decimal.NewFromFloat(file.AncillaryUpfrontCost),
		AnnualMaintenance:    decimal.NewFromFloat(file.AnnualMaintenance),
		ServiceLifeYears:     decimal.NewFromFloat(file.ServiceLifeYears),
		UptimeFraction:       decimal.NewFromFloat(file.UptimeFraction),
		PowerWatts:           decimal.NewFromFloat(file.PowerWatts),
		ElectricityPerKWh:    decimal.NewFromFloat(file.ElectricityPerKWh),
		BufferMultiplier:     decimal.NewFromFloat(file.BufferMultiplier),
		MaterialPricePerKg:   decimal.NewFromFloat(file.MaterialPricePerKg),
		MaterialGrams:        decimal.NewFromFloat(file.MaterialGrams),
		EfficiencyMultiplier: decimal.NewFromFloat(file.EfficiencyMultiplier),
		PrintHours:           decimal.NewFromFloat(file.PrintHours),
		LaborMinutes:         decimal.NewFromFloat(file.LaborMinutes),
		LaborRatePerHour:     decimal.NewFromFloat(file.LaborRatePerHour),
		PackagingQuantity:    decimal.NewFromFloat(file.PackagingQuantity),
		PackagingUnitCost:    decimal.NewFromFloat(file.PackagingUnitCost),
		Quality:              costing.QualityTier(file.Quality),
		PostProcess:          costing.PostProcessTier(file.PostProcess),
	}
	for _, extra := range file.ExtraMaterials {
		in.ExtraMaterials = append(in.ExtraMaterials, costing.ExtraMaterial{
			Name:     extra.Name,
			Quantity: decimal.NewFromFloat(extra.Quantity),
			UnitCost: decimal.NewFromFloat(extra.UnitCost),
		})
	}
	for _, margin := range file.Margins {
		if margin < 0 || margin >= 1 {
			return fmt.Errorf("margin %v out of range [0,1)", margin)
		}
		in.Margins = append(in.Margins, decimal.NewFromFloat(margin))
	}

	result := costing.Estimate(in)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
