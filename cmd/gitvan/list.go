package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List discovered resources",
	}
	cmd.AddCommand(newListHooksCommand())
	return cmd
}

func newListHooksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hooks",
		Short: "List every hook discovered under the configured hookDirs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			_, hooks, err := ingest(cfg)
			if err != nil {
				return err
			}
			if len(hooks) == 0 {
				fmt.Fprintln(outWriter, "no hooks discovered")
				return nil
			}
			for _, h := range hooks {
				status := "enabled"
				if h.Disabled {
					status = "disabled"
				}
				fmt.Fprintf(outWriter, "%s  [%s]\n", h.IRI, status)
				fmt.Fprintf(outWriter, "  pipeline: %s\n", h.PipelineIRI)
				if len(h.On) > 0 {
					fmt.Fprintf(outWriter, "  on:       %v\n", h.On)
				}
				if len(h.Timers) > 0 {
					fmt.Fprintf(outWriter, "  timers:   %v\n", h.Timers)
				}
			}
			return nil
		},
	}
}
