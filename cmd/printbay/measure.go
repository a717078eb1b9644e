package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/printbay/printbay/internal/mesh"
)

func newMeasureCmd() *cobra.Command {
	var (
		timeout time.Duration
		format  string
	)

	cmd := &cobra.Command{
		Use:   "measure <file.stl>",
		Short: "Measure a mesh file: bounding box, volume, triangle count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMeasure(args[0], timeout, format)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "analysis deadline")
	cmd.Flags().StringVar(&format, "format", "auto", "mesh encoding: auto, binary or ascii")
	return cmd
}

func runMeasure(path string, timeout time.Duration, format string) error {
	var f mesh.Format
	switch format {
	case "auto":
		f = mesh.FormatAuto
	case "binary":
		f = mesh.FormatBinarySTL
	case "ascii":
		f = mesh.FormatASCIISTL
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read mesh file: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	measurement, err := mesh.Measure(ctx, data, f)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(measurement)
}
