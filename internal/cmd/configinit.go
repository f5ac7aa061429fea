package cmd

import (
	"github.com/spf13/cobra"
	"github.com/zonetrans/engine/internal/config"
)

var configInitOutput string

var configInitCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Write an example run configuration document",
	Long: `config-init scaffolds a fully-populated example run configuration,
grounded on the original tool's example-config writer, so a new user has a
concrete file to edit rather than an empty schema.`,
	RunE: runConfigInit,
}

func init() {
	configInitCmd.Flags().StringVar(&configInitOutput, "output", "./config.yaml", "Path to write the example configuration")
	rootCmd.AddCommand(configInitCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if err := config.WriteExample(configInitOutput); err != nil {
		return err
	}
	log().Info("wrote example configuration", "path", configInitOutput)
	return nil
}
