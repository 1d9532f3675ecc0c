package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "stargraph",
	Short: "Force-directed 3D starfield for a vault of linked notes",
	Long:  "Stargraph simulates a vault's knowledge graph as bodies in a force field and streams per-frame transforms to an external renderer. Single Go binary.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(layoutCmd)
}
