package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/blackwell-systems/macsweep/internal/analyzer"
	"github.com/blackwell-systems/macsweep/internal/cleanup"
	"github.com/blackwell-systems/macsweep/internal/config"
	"github.com/blackwell-systems/macsweep/internal/logging"
	"github.com/blackwell-systems/macsweep/internal/sizecache"
	"github.com/blackwell-systems/macsweep/internal/source"
	"github.com/blackwell-systems/macsweep/internal/store"
)

// loadConfig reads the config file and layers the global flags on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfigDir)
	if err != nil {
		return nil, err
	}
	if flagDB != "" {
		cfg.DatabasePath = flagDB
	}
	if flagBackupDir != "" {
		cfg.BackupDir = flagBackupDir
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *slog.Logger {
	return logging.New(logging.LevelFromVerbosity(cfg.LogLevel, flagVerbose, flagQuiet))
}

// openStore opens the registry database, creating the schema and any
// missing parent directories on first use.
func openStore(cfg *config.Config) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	if err := st.CreateSchema(); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func newAnalyzer(st *store.Store) *analyzer.Analyzer {
	return analyzer.New(st)
}

func thresholdsFromConfig(cfg *config.Config) analyzer.Thresholds {
	return analyzer.Thresholds{
		WarningDays: cfg.WarningDays,
		ReviewDays:  cfg.ReviewDays,
	}
}

func newEngine(cfg *config.Config, st *store.Store, reg *source.Registry, log *slog.Logger) *cleanup.Engine {
	timeout := time.Duration(cfg.RemovalTimeoutSeconds) * time.Second
	return cleanup.NewEngine(st, reg, cfg.BackupDir, cfg.CleanupConcurrency, timeout, log)
}

// measureSize resolves a package's on-disk size when the scan did not
// record one, e.g. after a quick scan.
func measureSize(pkg *store.Package) int64 {
	rec := source.Record{
		Name:       pkg.Name,
		Source:     pkg.Source,
		Version:    pkg.Version,
		BinaryPath: pkg.BinaryPath,
	}
	path := rec.BinaryPath
	if h, ok := source.DefaultRegistry().Handler(pkg.Source); ok {
		if pp, ok := h.(source.PayloadPather); ok {
			if p := pp.PayloadPath(rec); p != "" {
				path = p
			}
		}
	}
	sizes, err := sizecache.New(0)
	if err != nil {
		return 0
	}
	size, err := sizes.Resolve(path)
	if err != nil {
		return 0
	}
	return size
}

// parseSources validates a list of --source flag values.
func parseSources(names []string) ([]source.Source, error) {
	srcs := make([]source.Source, 0, len(names))
	for _, n := range names {
		src, err := source.Parse(n)
		if err != nil {
			return nil, err
		}
		srcs = append(srcs, src)
	}
	return srcs, nil
}
