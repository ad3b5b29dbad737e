package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openusage/openusage/internal/channels"
	"github.com/openusage/openusage/internal/plugins"
	"github.com/openusage/openusage/internal/probe"
	"github.com/openusage/openusage/internal/render"
	"github.com/openusage/openusage/internal/settings"
)

func newProbeCommand(flags *rootFlags) *cobra.Command {
	var (
		all     bool
		asJSON  bool
		batchID string
		wait    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "probe [plugin-id...]",
		Short: "Run one probe batch and print the results",
		Long: `Run one probe batch in-process and print each result as it arrives.

Without ids the enabled plugins from the settings file are probed in the
user's order; --all probes every loaded plugin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			req := probe.BatchRequest{BatchID: batchID}
			switch {
			case len(args) > 0:
				req.PluginIDs = args
			case !all:
				store, err := settings.Open(rt.cfg.Settings.File)
				if err != nil {
					return err
				}
				req.PluginIDs = settings.LoadPluginSettings(store).Normalize(rt.registry.IDs()).Enabled()
			}

			events := channels.NewProbeEvents(channels.EventChannelsConfig{ProbeBufferSize: rt.cfg.Events.BufferSize})
			defer events.Close()

			engine := probe.NewEngine(rt.registry, rt.executor(), rt.env(), events, rt.logger)
			started, err := engine.StartBatch(req)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), wait)
			defer cancel()

			out := cmd.OutOrStdout()
			for {
				select {
				case event := <-events.C():
					if event.BatchID != started.BatchID {
						continue
					}
					switch {
					case event.Result != nil:
						if asJSON {
							if err := json.NewEncoder(out).Encode(event.Result); err != nil {
								return err
							}
							continue
						}
						fmt.Fprintln(out, render.Output(event.Result.Output, brandColor(rt.registry, event.Result.Output.ProviderID)))
						fmt.Fprintln(out)
					case event.Complete != nil:
						rt.logger.Debug("probe batch finished", "batch_id", started.BatchID, "targets", len(started.PluginIDs))
						return nil
					}
				case <-ctx.Done():
					return fmt.Errorf("batch %s did not complete: %w", started.BatchID, ctx.Err())
				}
			}
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "probe every loaded plugin, ignoring settings")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON lines")
	cmd.Flags().StringVar(&batchID, "batch-id", "", "batch id to use instead of a generated one")
	cmd.Flags().DurationVar(&wait, "wait", 2*time.Minute, "give up waiting for the batch after this long")
	return cmd
}

func brandColor(registry *plugins.Registry, id string) string {
	p, ok := registry.GetByID(id)
	if !ok || p.Manifest.BrandColor == nil {
		return ""
	}
	return *p.Manifest.BrandColor
}
