package main

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/hook"
	"github.com/gitvan-dev/gitvan/pkg/httputil"
	"github.com/gitvan-dev/gitvan/pkg/workflow"
	"github.com/spf13/cobra"
)

func newEvaluateCommand() *cobra.Command {
	var emit bool
	cmd := &cobra.Command{
		Use:   "evaluate <hook-iri>",
		Short: "Evaluate a single hook's predicate and (if it fires) its pipeline, outside the scheduler",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			st, hooks, err := ingest(cfg)
			if err != nil {
				return err
			}
			h, err := findHook(hooks, args[0])
			if err != nil {
				return err
			}
			backend, err := openBackend(cfg)
			if err != nil {
				return err
			}
			baselines, err := hook.NewFileBaselineStore(filepath.Join(cfg.ProjectRoot, ".gitvan", "baselines.json"))
			if err != nil {
				return userErr(fmt.Errorf("gitvan: load baselines: %w", err))
			}

			timeout := time.Duration(cfg.DefaultTimeoutMs) * time.Millisecond
			opts := hook.EvalOptions{
				Snapshot:  st.Snapshot(),
				Backend:   backend,
				Baselines: baselines,
				Timeout:   timeout,
				HandlerOpts: workflow.HandlerOptions{
					Snapshot:    st.Snapshot(),
					ProjectRoot: cfg.ProjectRoot,
					ShellAllow:  cfg.ShellAllowList,
					HTTPAllow:   cfg.HTTPAllowList,
					HTTPClient:  httputil.NewClient(nil),
				},
			}

			receipt, update, err := hook.Evaluate(context.Background(), h, opts)
			if err != nil {
				return userErr(fmt.Errorf("gitvan: evaluate %s: %w", h.IRI, err))
			}

			if cfg.SigningKeyPath != "" {
				key, err := hook.LoadSigningKey(cfg.SigningKeyPath)
				if err != nil {
					return userErr(fmt.Errorf("gitvan: %w", err))
				}
				if err := receipt.Sign(key); err != nil {
					return userErr(fmt.Errorf("gitvan: %w", err))
				}
			}

			if emit {
				if err := hook.EmitReceipt(backend, cfg.NotesRef, receipt); err != nil {
					return userErr(fmt.Errorf("gitvan: %w", err))
				}
				if update != nil {
					if err := baselines.Put(update.BaselineID, update.Hash); err != nil {
						return userErr(fmt.Errorf("gitvan: persist baseline: %w", err))
					}
				}
			}

			payload, err := json.MarshalIndent(receipt, "", "  ")
			if err != nil {
				return userErr(fmt.Errorf("gitvan: marshal receipt: %w", err))
			}
			fmt.Println(string(payload))

			return receiptExitError(receipt)
		},
	}
	cmd.Flags().BoolVar(&emit, "emit", false, "append the resulting receipt to the configured notes ref")
	return cmd
}

// receiptExitError maps an evaluated Receipt onto the process exit
// code contract: a predicate error whose message indicates a budget
// was exceeded becomes a timeout (124); any other recorded predicate
// error or failed pipeline step becomes an evaluation failure (2).
func receiptExitError(r hook.Receipt) error {
	if msg, ok := r.Predicate.Metrics["error"].(string); ok && msg != "" {
		if strings.Contains(msg, "exceeded") || strings.Contains(msg, "deadline") {
			return timeoutErr(fmt.Errorf("gitvan: %s", msg))
		}
		return evalErr(fmt.Errorf("gitvan: %s", msg))
	}
	if msg, ok := r.Predicate.Metrics["pipelineError"].(string); ok && msg != "" {
		if strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline") {
			return timeoutErr(fmt.Errorf("gitvan: %s", msg))
		}
		return evalErr(fmt.Errorf("gitvan: %s", msg))
	}
	for _, step := range r.Pipeline {
		if step.Status == "failed" {
			if strings.Contains(step.Error, "deadline exceeded") {
				return timeoutErr(fmt.Errorf("gitvan: step %s: %s", step.StepID, step.Error))
			}
			return evalErr(fmt.Errorf("gitvan: step %s failed: %s", step.StepID, step.Error))
		}
	}
	return nil
}
