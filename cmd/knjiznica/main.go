// Command knjiznica runs the library circulation desk.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/knjiznica/internal/config"
	"github.com/erazemk/knjiznica/internal/kv"
	"github.com/erazemk/knjiznica/internal/metrics"
	"github.com/erazemk/knjiznica/internal/store"
)

// flags holds command-line overrides. Only flags the user set are applied.
type flags struct {
	envFile     string
	logPath     string
	storage     string
	sqlitePath  string
	postgresDSN string
	datasetKey  string
	addr        string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "knjiznica",
		Short:         "Library circulation desk",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, f)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&f.envFile, "env-file", "e", ".env", "dotenv file with KNJIZNICA_* settings")
	pf.StringVarP(&f.logPath, "log", "l", "", "log file path (default: stdout/stderr only)")
	pf.StringVarP(&f.storage, "storage", "s", "", "storage driver: memory, sqlite, postgres or s3")
	pf.StringVarP(&f.sqlitePath, "db", "d", "", "SQLite database path")
	pf.StringVar(&f.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	pf.StringVar(&f.datasetKey, "key", "", "storage key holding the dataset")
	root.Flags().StringVarP(&f.addr, "addr", "a", "", "listen address")

	root.AddCommand(newServeCmd(f), newResetCmd(f), newSnapshotCmd(f))
	return root
}

// loadConfig resolves settings and applies explicitly set flags on top.
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return config.Config{}, fmt.Errorf("loading config: %w", err)
	}

	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("log", &cfg.LogPath, f.logPath)
	set("db", &cfg.Storage.SQLitePath, f.sqlitePath)
	set("postgres-dsn", &cfg.Storage.PostgresDSN, f.postgresDSN)
	set("key", &cfg.DatasetKey, f.datasetKey)
	set("addr", &cfg.Addr, f.addr)
	if cmd.Flags().Changed("storage") {
		cfg.Storage.Driver = kv.Driver(f.storage)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// openStore opens the configured backend. If it cannot be reached the
// process-wide in-memory store is used instead so the desk stays usable.
func openStore(ctx context.Context, cfg config.Config, rec *metrics.Recorder) *store.Store {
	opts := []store.Option{
		store.WithKey(cfg.DatasetKey),
		store.WithDelay(cfg.Delay()),
		store.WithRecorder(rec),
	}

	backend, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		slog.Error("failed to open storage, falling back to memory",
			"driver", cfg.Storage.Driver, "error", err)
		return store.NewInMemory(opts...)
	}

	slog.Info("storage ready", "driver", backend.Driver(), "key", cfg.DatasetKey)
	return store.New(backend, opts...)
}

// withStore runs fn against a store opened from the resolved config.
// Maintenance commands skip the simulated latency.
func withStore(cmd *cobra.Command, f *flags, fn func(context.Context, *store.Store) error) error {
	cfg, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	cfg.DelayMin, cfg.DelayMax = 0, 0

	closeLog, err := setupLogger(cfg.LogPath)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx := cmd.Context()
	backend, err := kv.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer backend.Close()

	s := store.New(backend, store.WithKey(cfg.DatasetKey), store.WithDelay(cfg.Delay()))
	return fn(ctx, s)
}
