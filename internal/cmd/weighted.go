package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zonetrans/engine/internal/translate"
)

var weightedCmd = &cobra.Command{
	Use:   "weighted",
	Short: "Compute a weighted zone translation via a lower zoning layer",
	Long: `weighted reads a run configuration document naming a lower zoning
layer and its exogenous weight column, and computes directional
correspondence factors proportional to that weight's distribution.`,
	RunE: runWeighted,
}

func init() {
	rootCmd.AddCommand(weightedCmd)
}

func runWeighted(cmd *cobra.Command, args []string) error {
	if cfgFile == "" {
		return cmd.Help()
	}
	return runTranslation(cfgFile, translate.MethodWeighted)
}
