// printbay is the service connecting creators who need 3D-printed parts with
// makers who run the printers. The same binary serves the HTTP API and offers
// the mesh analyzer and cost estimator as standalone commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "printbay",
		Short:         "3D print quoting service: mesh measurement, cost estimation, quote lifecycle",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMeasureCmd())
	root.AddCommand(newEstimateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
