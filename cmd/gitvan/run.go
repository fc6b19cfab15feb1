package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/httputil"
	"github.com/gitvan-dev/gitvan/pkg/workflow"
	"github.com/spf13/cobra"
)

func newRunCommand() *cobra.Command {
	var timeoutMs int
	cmd := &cobra.Command{
		Use:   "run <pipeline-iri>",
		Short: "Execute a workflow pipeline directly, bypassing its governing hook's predicate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			st, _, err := ingest(cfg)
			if err != nil {
				return err
			}

			pipeline, err := workflow.Load(st.Snapshot(), args[0])
			if err != nil {
				return userErr(fmt.Errorf("gitvan: load pipeline %s: %w", args[0], err))
			}

			budget := time.Duration(cfg.DefaultTimeoutMs) * time.Millisecond
			if timeoutMs > 0 {
				budget = time.Duration(timeoutMs) * time.Millisecond
			}
			ctx, cancel := context.WithTimeout(context.Background(), budget)
			defer cancel()

			opts := workflow.HandlerOptions{
				Snapshot:    st.Snapshot(),
				ProjectRoot: cfg.ProjectRoot,
				ShellAllow:  cfg.ShellAllowList,
				HTTPAllow:   cfg.HTTPAllowList,
				HTTPClient:  httputil.NewClient(nil),
			}

			result, runErr := workflow.Run(ctx, pipeline, map[string]any{"pipeline": args[0]}, opts)
			if result != nil {
				for _, step := range result.Steps {
					fmt.Fprintf(outWriter, "%-24s %-8s %s\n", step.StepID, step.Status, step.Duration)
					if step.Err != nil {
						fmt.Fprintf(outWriter, "  error: %v\n", step.Err)
					}
				}
			}
			if runErr != nil {
				return userErr(fmt.Errorf("gitvan: run %s: %w", args[0], runErr))
			}
			for _, step := range result.Steps {
				if step.Status != "failed" {
					continue
				}
				if step.Err != nil && strings.Contains(step.Err.Error(), "deadline exceeded") {
					return timeoutErr(fmt.Errorf("gitvan: step %s timed out", step.StepID))
				}
				return evalErr(fmt.Errorf("gitvan: step %s failed", step.StepID))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&timeoutMs, "timeout-ms", 0, "override the pipeline's wall-clock budget (default: config's defaultTimeoutMs)")
	return cmd
}
