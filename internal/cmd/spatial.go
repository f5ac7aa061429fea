package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zonetrans/engine/internal/translate"
)

var spatialCmd = &cobra.Command{
	Use:   "spatial",
	Short: "Compute a spatial (area-weighted) zone translation",
	Long: `spatial reads a run configuration document and computes directional
correspondence factors between two zoning layers using area as the sole
weight, with no lower-zoning distribution.`,
	RunE: runSpatial,
}

func init() {
	rootCmd.AddCommand(spatialCmd)
}

func runSpatial(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return cmd.Help()
	}
	return runTranslation(cfgFile, translate.MethodSpatial)
}
