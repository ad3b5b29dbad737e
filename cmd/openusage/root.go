package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/openusage/openusage/internal/config"
	"github.com/openusage/openusage/internal/plugins"
)

type rootFlags struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "openusage",
		Short: "OpenUsage - usage probes for your menu bar",
		Long: `OpenUsage loads plugin probes that report usage and status metrics
and runs them in batches on demand. The serve command exposes the probe
engine to the menu-bar UI over a local HTTP and WebSocket API.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "config.yaml", "path to the configuration file")

	rootCmd.AddCommand(
		newServeCommand(flags),
		newProbeCommand(flags),
		newPluginsCommand(flags),
		newConfigCommand(),
	)

	return rootCmd
}

// appRuntime is what every command needs: config, logger and a scanned registry
type appRuntime struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *plugins.Registry
	closer   io.Closer
}

func loadRuntime(flags *rootFlags) (*appRuntime, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closer, err := config.InitLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	registry := plugins.NewRegistry(cfg.Plugins.Directory, logger)
	if err := registry.Scan(); err != nil {
		logger.Error("Failed to scan plugins", "error", err)
	} else {
		logger.Info("Plugins loaded", "count", registry.Len())
	}

	return &appRuntime{cfg: cfg, logger: logger, registry: registry, closer: closer}, nil
}

func (rt *appRuntime) env() plugins.ProbeEnv {
	return plugins.ProbeEnv{
		AppDataDir: rt.cfg.App.DataDir,
		AppVersion: rt.cfg.App.Version,
	}
}

func (rt *appRuntime) executor() *plugins.Executor {
	return plugins.NewExecutor(
		rt.cfg.Plugins.ProbeTimeout(),
		rt.cfg.Plugins.MaxConcurrentProcesses,
		rt.logger,
	)
}

func (rt *appRuntime) Close() error {
	return rt.closer.Close()
}
