package hook

import (
	"context"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/gitbackend"
	"github.com/gitvan-dev/gitvan/pkg/logger"
	"github.com/gitvan-dev/gitvan/pkg/predicate"
	"github.com/gitvan-dev/gitvan/pkg/store"
	"github.com/gitvan-dev/gitvan/pkg/workflow"
)

var evalLog = logger.New("hook:evaluate")

// EvalOptions carries everything one hook evaluation needs beyond the
// Hook itself: the graph to evaluate the predicate against, the
// handler options its pipeline (if it fires) runs with, the baseline
// store for ResultDelta predicates, and the wall-clock budget.
type EvalOptions struct {
	Snapshot    *store.Snapshot
	Backend     *gitbackend.Backend
	Baselines   predicate.BaselineStore
	HandlerOpts workflow.HandlerOptions
	Timeout     time.Duration
}

// BaselineUpdate names the ResultDelta baseline a successful evaluation
// wants persisted. Callers apply it only after the receipt has been
// durably written (spec §4.3's at-least-once delivery guarantee: if
// persisting the receipt fails, the baseline must stay stale so the
// predicate fires again next tick).
type BaselineUpdate struct {
	BaselineID string
	Hash       string
}

// Evaluate runs one hook's predicate and, if it fires, its pipeline,
// producing a Receipt regardless of outcome (spec §4.5/§6: a receipt is
// written whether or not the predicate fires, and on timeout). It never
// returns an error for a failed predicate or pipeline — those are
// recorded in the receipt itself; the returned error is reserved for
// conditions that prevented producing a receipt at all (e.g. the
// backend could not resolve HEAD).
func Evaluate(ctx context.Context, h *Hook, opts EvalOptions) (Receipt, *BaselineUpdate, error) {
	start := time.Now()

	commit, err := opts.Backend.Head()
	if err != nil {
		return Receipt{}, nil, err
	}
	worktree, err := opts.Backend.WorktreeCurrent()
	if err != nil {
		worktree = opts.Backend.Root()
	}

	verdict := predicate.Evaluate(ctx, opts.Snapshot, h.Predicate, opts.Baselines, opts.Timeout)

	receipt := Receipt{
		HookID:  h.IRI,
		FiredAt: newReceiptTimestamp(start),
		Predicate: PredicateReceipt{
			Kind:    predicateKindName(int(h.Predicate.Kind)),
			Verdict: verdict.Fired,
		},
		Worktree: worktree,
		Commit:   commit,
	}
	var update *BaselineUpdate
	if verdict.BaselineID != "" {
		update = &BaselineUpdate{BaselineID: verdict.BaselineID, Hash: verdict.NewBaselineHash}
	}
	if verdict.Err != nil {
		if _, ok := verdict.Err.(*predicate.ErrTimeout); ok {
			evalLog.Printf("%s: predicate evaluation timed out", h.IRI)
		}
		receipt.Predicate.Metrics = map[string]any{"error": verdict.Err.Error()}
		receipt.EvalDurationMs = time.Since(start).Milliseconds()
		return receipt, nil, nil
	}

	if !verdict.Fired {
		receipt.EvalDurationMs = time.Since(start).Milliseconds()
		return receipt, update, nil
	}

	pipeline, err := workflow.Load(opts.Snapshot, h.PipelineIRI)
	if err != nil {
		receipt.Predicate.Metrics = map[string]any{"error": err.Error()}
		receipt.EvalDurationMs = time.Since(start).Milliseconds()
		return receipt, update, nil
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	seed := map[string]any{"hookId": h.IRI, "commit": commit}
	result, runErr := workflow.Run(runCtx, pipeline, seed, opts.HandlerOpts)
	if runErr != nil && runCtx.Err() == context.DeadlineExceeded {
		runErr = &TimeoutError{HookIRI: h.IRI, Budget: opts.Timeout.String()}
	}
	if result != nil {
		receipt.Pipeline = make([]StepReceipt, len(result.Steps))
		for i, sr := range result.Steps {
			step := StepReceipt{
				StepID:     sr.StepID,
				Status:     sr.Status,
				DurationMs: sr.Duration.Milliseconds(),
			}
			if sr.Err != nil {
				step.Error = sr.Err.Error()
			}
			receipt.Pipeline[i] = step
		}
	}
	if runErr != nil {
		evalLog.Printf("%s: pipeline %s failed: %v", h.IRI, h.PipelineIRI, runErr)
		if receipt.Predicate.Metrics == nil {
			receipt.Predicate.Metrics = map[string]any{}
		}
		receipt.Predicate.Metrics["pipelineError"] = runErr.Error()
	}

	receipt.EvalDurationMs = time.Since(start).Milliseconds()
	return receipt, update, nil
}
