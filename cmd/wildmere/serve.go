// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Wildmere Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/wildmere/wildmere/internal/audit"
	"github.com/wildmere/wildmere/internal/control"
	"github.com/wildmere/wildmere/internal/core"
	"github.com/wildmere/wildmere/internal/gateway"
	"github.com/wildmere/wildmere/internal/interaction"
	"github.com/wildmere/wildmere/internal/interaction/luamod"
	"github.com/wildmere/wildmere/internal/interaction/modules"
	"github.com/wildmere/wildmere/internal/logging"
	"github.com/wildmere/wildmere/internal/observability"
	"github.com/wildmere/wildmere/internal/player"
	"github.com/wildmere/wildmere/internal/tables"
	"github.com/wildmere/wildmere/internal/world"
)

// serveConfig holds configuration for the serve command. Values come from
// flag defaults, then the config file, then explicitly set flags.
type serveConfig struct {
	ListenAddr      string `koanf:"listen-addr"`
	LevelsDir       string `koanf:"levels-dir"`
	TablesFile      string `koanf:"tables-file"`
	ScriptsDir      string `koanf:"scripts-dir"`
	MetricsAddr     string `koanf:"metrics-addr"`
	DatabaseURL     string `koanf:"database-url"`
	LogFormat       string `koanf:"log-format"`
	Debug           bool   `koanf:"debug"`
	StartingBalance int    `koanf:"starting-balance"`
}

// Validate checks that the configuration is valid.
func (cfg *serveConfig) Validate() error {
	if cfg.ListenAddr == "" {
		return fmt.Errorf("listen-addr is required")
	}
	if cfg.LevelsDir == "" {
		return fmt.Errorf("levels-dir is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.LogFormat)
	}
	if cfg.StartingBalance < 0 {
		return fmt.Errorf("starting-balance must not be negative")
	}
	return nil
}

// Default values for serve command flags.
const (
	defaultListenAddr      = ":4500"
	defaultLevelsDir       = "levels"
	defaultMetricsAddr     = "127.0.0.1:9100"
	defaultLogFormat       = "json"
	defaultStartingBalance = 1000
)

// newServeCmd creates the serve subcommand with all flags configured.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the interaction server",
		Long: `Start the interaction server: load level bundles and balance tables,
register gameplay modules, and accept client connections on the
gateway listen address.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadServeConfig(cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	fl := cmd.Flags()
	fl.String("listen-addr", defaultListenAddr, "gateway listen address")
	fl.String("levels-dir", defaultLevelsDir, "directory containing level bundle JSON files")
	fl.String("tables-file", "", "balance tables YAML file (enables harvest and shop modules)")
	fl.String("scripts-dir", "", "directory of Lua interaction scripts")
	fl.String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fl.String("database-url", "", "PostgreSQL URL for the rejection audit log (default: DATABASE_URL env)")
	fl.String("log-format", defaultLogFormat, "log format (json or text)")
	fl.Bool("debug", false, "log every resolution pass at debug level")
	fl.Int("starting-balance", defaultStartingBalance, "wallet balance granted to new players")

	return cmd
}

// loadServeConfig builds the serve configuration from the config file and
// command-line flags. Explicitly set flags win over file values.
func loadServeConfig(flags *pflag.FlagSet) (*serveConfig, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg := &serveConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runServe starts the interaction server and blocks until shutdown.
func runServe(ctx context.Context, cfg *serveConfig, cmd *cobra.Command) error {
	logging.SetDefault(logging.Config{
		Service: "wildmere",
		Version: version,
		Format:  cfg.LogFormat,
		Debug:   cfg.Debug,
	})

	slog.Info("starting interaction server",
		"listen_addr", cfg.ListenAddr,
		"levels_dir", cfg.LevelsDir,
		"log_format", cfg.LogFormat,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	registry := interaction.NewRegistry()
	registry.Register(modules.NewInspirationModule())

	// The harvest and shop modules need balance tables, so they are only
	// registered when a tables file is configured.
	var tableStore *tables.Store
	if cfg.TablesFile != "" {
		store, err := tables.NewStore(cfg.TablesFile)
		if err != nil {
			return fmt.Errorf("failed to load balance tables: %w", err)
		}
		tableStore = store
		registry.Register(modules.NewHarvestModule(store))
		registry.Register(modules.NewShopModule(store))
		slog.Info("balance tables loaded", "path", cfg.TablesFile)
	}

	if cfg.ScriptsDir != "" {
		if err := registerScripts(registry, cfg.ScriptsDir); err != nil {
			return err
		}
	}

	var engineOpts []interaction.EngineOption
	if cfg.Debug {
		engineOpts = append(engineOpts, interaction.WithDebugLogging(true))
	}

	// Without a database URL the engine keeps its in-memory audit log.
	if cfg.DatabaseURL != "" {
		recorder, err := setupPostgresAudit(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer recorder.Close()
		engineOpts = append(engineOpts, interaction.WithAuditRecorder(recorder))
		slog.Info("audit log connected")
	}

	levels := world.NewLoader(cfg.LevelsDir)
	sessions := core.NewSessionManager()
	engine := interaction.NewEngine(levels, registry, sessions, engineOpts...)
	resolver := player.NewMemoryResolver(cfg.StartingBalance, core.NewULID)
	gw := gateway.NewServer(cfg.ListenAddr, engine, sessions, levels, resolver)

	// Start control socket (always enabled). Reload swaps balance tables in
	// place when a tables file is configured.
	var reloadFn control.ReloadFunc
	if tableStore != nil {
		reloadFn = func() error {
			if err := tableStore.Reload(); err != nil {
				return err
			}
			slog.Info("balance tables reloaded", "path", cfg.TablesFile)
			return nil
		}
	}
	controlServer := control.NewServer("wildmere", func() { cancel() }, reloadFn)
	if err := controlServer.Start(); err != nil {
		return fmt.Errorf("failed to start control server: %w", err)
	}

	// Start observability server if configured
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			return gw.Addr() != ""
		})
		interaction.RegisterMetrics(obsServer.Registry())
		obsErrChan, err := obsServer.Start()
		if err != nil {
			stopControl(controlServer)
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Start gateway in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := gw.Run(ctx); err != nil {
			errChan <- err
		}
	}()

	cmd.Println("Interaction server started")
	slog.Info("interaction server ready",
		"listen_addr", cfg.ListenAddr,
		"modules", len(registry.Modules()),
	)

	// Wait for shutdown signal or error
	var runErr error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		runErr = fmt.Errorf("gateway error: %w", err)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}
	if err := controlServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping control server", "error", err)
	}

	slog.Info("shutdown complete")
	return runErr
}

// registerScripts loads every Lua script in dir and registers the resulting
// modules in filename order, so deploy order is deterministic.
func registerScripts(registry *interaction.Registry, dir string) error {
	paths, err := filepath.Glob(filepath.Join(dir, "*.lua"))
	if err != nil {
		return fmt.Errorf("failed to scan scripts directory: %w", err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		mod, err := luamod.LoadFile(path)
		if err != nil {
			return fmt.Errorf("failed to load script %s: %w", filepath.Base(path), err)
		}
		registry.Register(mod)
		slog.Info("script module registered", "name", mod.Name(), "path", path)
	}
	return nil
}

// setupPostgresAudit runs audit migrations and connects the recorder.
func setupPostgresAudit(ctx context.Context, databaseURL string) (*audit.PostgresRecorder, error) {
	migrator, err := audit.NewMigrator(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return nil, fmt.Errorf("failed to run audit migrations: %w", err)
	}
	if err := migrator.Close(); err != nil {
		slog.Warn("error closing migrator", "error", err)
	}

	recorder, err := audit.NewPostgresRecorder(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect audit log: %w", err)
	}
	return recorder, nil
}

// stopControl stops the control server with a short timeout during cleanup.
func stopControl(s *control.Server) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := s.Stop(shutdownCtx); err != nil {
		slog.Warn("failed to stop control server during cleanup", "error", err)
	}
}

// monitorServerErrors monitors a server's error channel and cancels the
// context on error so a dead server takes the process down with it.
// It exits when either an error is received, the channel is closed, or the
// context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
