package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stargraph/stargraph/internal/config"
	"github.com/stargraph/stargraph/internal/ident"
	"github.com/stargraph/stargraph/internal/index"
	"github.com/stargraph/stargraph/internal/reconcile"
	"github.com/stargraph/stargraph/internal/server"
	"github.com/stargraph/stargraph/internal/sim"
	"github.com/stargraph/stargraph/internal/vault"
)

var (
	serveVaultDir   string
	serveConfigPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Simulate a vault and serve the frame stream",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveVaultDir, "vault", "", "vault directory to scan and watch")
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "config file (default ~/.stargraph/config.toml)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveVaultDir != "" {
		cfg.Vault.Dir = serveVaultDir
	}
	if cfg.Vault.Dir == "" {
		return fmt.Errorf("no vault directory: pass --vault or set vault.dir in config")
	}

	idxPath, err := index.DefaultDBPath()
	if err != nil {
		return fmt.Errorf("resolve index path: %w", err)
	}
	idx, err := index.Open(idxPath)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer idx.Close()

	opts := sim.DefaultOptions()
	opts.Forces = cfg.Forces
	opts.ColorPolicy = cfg.ColorPolicy()
	opts.MaxParticles = cfg.Particles.Max
	opts.SpawnRate = cfg.SpawnRate()
	opts.ShuffleDelay = cfg.ShuffleDelay()

	simulation := sim.New(opts)
	resolver := ident.New()
	rec := reconcile.New(simulation, resolver, idx)

	// Warm start: replay the last observed vault state from the index,
	// then reconcile a fresh scan against it as a stream of diffs.
	recs, err := idx.All()
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	rec.Bootstrap(recs)

	notes, err := vault.Scan(cfg.Vault.Dir)
	if err != nil {
		return fmt.Errorf("scan vault: %w", err)
	}
	reconcileScan(rec, recs, notes)
	fmt.Fprintf(os.Stderr, "  vault: %s (%d notes, %d links)\n",
		cfg.Vault.Dir, simulation.NodeCount(), simulation.LinkCount())

	watcher, err := vault.NewWatcher(cfg.Vault.Dir, idx, cfg.Debounce(), rec.Apply)
	if err != nil {
		return fmt.Errorf("watch vault: %w", err)
	}
	watcher.Start()
	defer watcher.Stop()

	simulation.Start()
	defer simulation.Stop()
	go tickLoop(simulation, cfg.Sim.TickHz)

	srv := server.New(simulation, rec, VersionString())
	addr := cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "stargraph serving on %s\n", addr)
		indexed, _ := idx.Count()
		fmt.Fprintf(os.Stderr, "  index: %s (%d notes)\n", idxPath, indexed)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return httpServer.Shutdown(ctx)
}

// tickLoop drives the simulation at the configured rate, passing the
// measured elapsed time so a late frame simply arrives with a larger dt.
func tickLoop(s *sim.Simulation, hz int) {
	if hz <= 0 {
		hz = 60
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	last := time.Now()
	for range ticker.C {
		if !s.Running() {
			return
		}
		now := time.Now()
		s.Tick(now.Sub(last).Seconds())
		last = now
	}
}

// reconcileScan folds a fresh scan into the bootstrapped graph: changed or
// new notes become modify events (modify of an unseen path creates it),
// notes that vanished while stargraph was down become deletes.
func reconcileScan(rec *reconcile.Reconciler, indexed []index.Record, notes []vault.Note) {
	knownHash := make(map[string]string, len(indexed))
	for _, r := range indexed {
		knownHash[r.Path] = r.Hash
	}

	events := vault.Events(notes)
	live := make(map[string]struct{}, len(events))
	for _, ev := range events {
		live[ev.Path] = struct{}{}
		if knownHash[ev.Path] == ev.Hash {
			continue // unchanged since last run
		}
		ev.Op = reconcile.OpModify
		rec.Apply(ev)
	}

	for _, r := range indexed {
		if _, ok := live[r.Path]; !ok {
			rec.Apply(reconcile.Event{Op: reconcile.OpDelete, Path: r.Path})
		}
	}
}

func loadConfig() (config.Config, error) {
	path := serveConfigPath
	if path == "" {
		var err error
		path, err = config.ConfigPath()
		if err != nil {
			return config.Config{}, err
		}
	}
	return config.Load(path)
}
