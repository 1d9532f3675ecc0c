package cli

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/stargraph/stargraph/internal/ident"
	"github.com/stargraph/stargraph/internal/reconcile"
	"github.com/stargraph/stargraph/internal/sim"
	"github.com/stargraph/stargraph/internal/vault"
)

var layoutTicks int

var layoutCmd = &cobra.Command{
	Use:   "layout DIR",
	Short: "Run a headless layout and print converged positions as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayout,
}

func init() {
	layoutCmd.Flags().IntVar(&layoutTicks, "ticks", 600, "number of simulation ticks to run")
}

func runLayout(cmd *cobra.Command, args []string) error {
	notes, err := vault.Scan(args[0])
	if err != nil {
		return err
	}

	opts := sim.DefaultOptions()
	opts.MaxParticles = 0
	simulation := sim.New(opts)
	rec := reconcile.New(simulation, ident.New(), nil)
	for _, ev := range vault.Events(notes) {
		rec.Apply(ev)
	}

	simulation.Start()
	const dt = 1.0 / 60
	for i := 0; i < layoutTicks; i++ {
		simulation.Tick(dt)
	}
	simulation.Stop()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(simulation.Frame())
}
