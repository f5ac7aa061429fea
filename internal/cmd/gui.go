package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// guiCmd is an explicit stub: an interactive configuration GUI is out of
// scope for this engine, but the CLI surface still names the mode so
// future work has a place to land alongside spatial and weighted.
var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Launch the interactive configuration GUI (not implemented)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return fmt.Errorf("gui mode is not implemented; use 'spatial' or 'weighted' with a configuration file")
	},
}

func init() {
	rootCmd.AddCommand(guiCmd)
}
