package main

import (
	"fmt"

	"github.com/gitvan-dev/gitvan/pkg/workflow"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load every configured hook and pipeline and report definition errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			st, hooks, err := ingest(cfg)
			if err != nil {
				return err
			}

			var problems []string
			seen := make(map[string]bool)
			for _, h := range hooks {
				if h.PipelineIRI == "" {
					continue
				}
				if seen[h.PipelineIRI] {
					continue
				}
				seen[h.PipelineIRI] = true
				if _, err := workflow.Load(st.Snapshot(), h.PipelineIRI); err != nil {
					problems = append(problems, fmt.Sprintf("%s -> %s: %v", h.IRI, h.PipelineIRI, err))
				}
			}

			fmt.Fprintf(outWriter, "%d hook(s), %d distinct pipeline(s) checked\n", len(hooks), len(seen))
			if len(problems) == 0 {
				fmt.Fprintln(outWriter, "all definitions valid")
				return nil
			}
			for _, p := range problems {
				fmt.Fprintf(outWriter, "invalid: %s\n", p)
			}
			return userErr(fmt.Errorf("gitvan: %d invalid pipeline definition(s)", len(problems)))
		},
	}
}
