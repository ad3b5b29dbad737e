package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/openusage/openusage/internal/probe"
	"github.com/openusage/openusage/internal/render"
)

func newPluginsCommand(flags *rootFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List loaded plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.Close()

			engine := probe.NewEngine(rt.registry, rt.executor(), rt.env(), discardEmitter{}, rt.logger)
			metas, err := engine.ListPlugins()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(metas)
			}
			render.PluginTable(cmd.OutOrStdout(), metas)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print plugin metadata as JSON")
	return cmd
}

// discardEmitter drops notifications for commands that never start a batch
type discardEmitter struct{}

func (discardEmitter) BatchStarted(probe.BatchStarted)   {}
func (discardEmitter) Result(probe.Result)               {}
func (discardEmitter) BatchComplete(probe.BatchComplete) {}
