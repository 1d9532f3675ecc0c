package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/stargraph/stargraph/internal/ident"
	"github.com/stargraph/stargraph/internal/reconcile"
	"github.com/stargraph/stargraph/internal/sim"
	"github.com/stargraph/stargraph/internal/vault"
)

var scanCmd = &cobra.Command{
	Use:   "scan DIR",
	Short: "Scan a vault once and print graph statistics",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	dir := args[0]

	notes, err := vault.Scan(dir)
	if err != nil {
		return err
	}

	simulation := sim.New(sim.DefaultOptions())
	rec := reconcile.New(simulation, ident.New(), nil)
	for _, ev := range vault.Events(notes) {
		rec.Apply(ev)
	}

	bold := color.New(color.Bold)
	bold.Printf("%s\n", dir)
	fmt.Printf("  notes:   %s\n", color.GreenString("%d", simulation.NodeCount()))
	fmt.Printf("  links:   %s\n", color.GreenString("%d", simulation.LinkCount()))
	if pending := rec.PendingCount(); pending > 0 {
		fmt.Printf("  broken:  %s (targets that don't exist yet)\n",
			color.YellowString("%d", pending))
	}
	return nil
}
