package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openusage/openusage/internal/api"
	"github.com/openusage/openusage/internal/channels"
	"github.com/openusage/openusage/internal/probe"
	"github.com/openusage/openusage/internal/settings"
)

func newServeCommand(flags *rootFlags) *cobra.Command {
	var origins []string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the probe engine to the menu-bar UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			logger := rt.logger
			cfg := rt.cfg
			logger.Info("Starting OpenUsage",
				"version", cfg.App.Version,
				"data_dir", cfg.App.DataDir,
				"plugins_dir", cfg.Plugins.Directory,
			)

			store, err := settings.Open(cfg.Settings.File)
			if err != nil {
				return err
			}
			settings.TrackAppStarted(store, cfg.App.Version, time.Now(), logger)

			shortcut := settings.NewShortcutState(settings.LogRegistrar{Logger: logger}, store, logger)
			shortcut.Restore()

			// Create context for graceful shutdown
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			events := channels.NewProbeEvents(channels.EventChannelsConfig{ProbeBufferSize: cfg.Events.BufferSize})
			defer events.Close()

			hub := api.NewHub(logger)
			go hub.Run()
			defer hub.Stop()

			channels.StartProbeEventForwarder(ctx, events, logger, hub.Publish)

			engine := probe.NewEngine(rt.registry, rt.executor(), rt.env(), events, logger)

			router := api.NewRouter(api.Dependencies{
				Engine:         engine,
				Hub:            hub,
				Shortcut:       shortcut,
				PluginCount:    rt.registry.Len,
				AllowedOrigins: origins,
				Logger:         logger,
			})

			srv := &http.Server{
				Addr:         cfg.Server.Addr(),
				Handler:      router,
				ReadTimeout:  cfg.Server.ReadTimeout(),
				WriteTimeout: cfg.Server.WriteTimeout(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("HTTP server listening", "addr", srv.Addr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				logger.Error("Server failed", "error", err)
				return err
			}

			logger.Info("Shutting down server...")

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()

			engine.Close()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server forced to shutdown", "error", err)
			}
			if err := engine.Wait(shutdownCtx); err != nil {
				logger.Warn("Probes still running at shutdown", "error", err)
			}

			logger.Info("Server stopped gracefully")
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&origins, "allow-origin", nil, "allow CORS requests from this UI origin (repeatable)")
	return cmd
}
