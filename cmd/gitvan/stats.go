package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the loaded graph and hook set",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			st, hooks, err := ingest(cfg)
			if err != nil {
				return err
			}

			snap := st.Snapshot()
			enabled, disabled, timerTriggered, eventTriggered := 0, 0, 0, 0
			pipelines := make(map[string]bool)
			for _, h := range hooks {
				if h.Disabled {
					disabled++
				} else {
					enabled++
				}
				if len(h.Timers) > 0 {
					timerTriggered++
				}
				if len(h.On) > 0 {
					eventTriggered++
				}
				if h.PipelineIRI != "" {
					pipelines[h.PipelineIRI] = true
				}
			}

			fmt.Fprintf(outWriter, "quads loaded:        %d\n", snap.Len())
			fmt.Fprintf(outWriter, "hooks:               %d (%d enabled, %d disabled)\n", len(hooks), enabled, disabled)
			fmt.Fprintf(outWriter, "timer-triggered:     %d\n", timerTriggered)
			fmt.Fprintf(outWriter, "event-triggered:     %d\n", eventTriggered)
			fmt.Fprintf(outWriter, "distinct pipelines:  %d\n", len(pipelines))
			fmt.Fprintf(outWriter, "worker count:        %d\n", cfg.WorkerCount)
			fmt.Fprintf(outWriter, "queue max:           %d\n", cfg.QueueMax)
			return nil
		},
	}
}
