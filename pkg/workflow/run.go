package workflow

import (
	"context"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/logger"
)

var log = logger.New("workflow:run")

// StepResult records one step's outcome within a pipeline run.
type StepResult struct {
	StepID   string
	Status   string // "ok" | "failed"; no step is reported as skipped or timed out
	Output   any
	Err      error
	Attempts int
	Duration time.Duration
}

// Result is the outcome of running an entire pipeline.
type Result struct {
	PipelineIRI string
	Steps       []StepResult
	Context     *RunContext
	Aborted     bool
}

// Run executes every step of p in topological order, threading a
// shared RunContext between them, and applies each step's onError
// policy on failure (spec §4.4: abort stops the pipeline, continue
// proceeds with the rest, retry(n, backoffMs) re-attempts the step
// itself before falling back to abort).
func Run(ctx context.Context, p *Pipeline, seedVars map[string]any, opts HandlerOptions) (*Result, error) {
	order, err := TopologicalOrder(p)
	if err != nil {
		return nil, err
	}

	rc := NewRunContext(seedVars)
	result := &Result{PipelineIRI: p.IRI, Context: rc}

	for _, step := range order {
		start := time.Now()
		output, attempts, err := runStepWithPolicy(ctx, step, rc, opts)
		sr := StepResult{StepID: step.ID, Output: output, Err: err, Attempts: attempts, Duration: time.Since(start)}

		if err != nil {
			sr.Status = "failed"
			log.Printf("step %s failed: %v", step.ID, err)
			result.Steps = append(result.Steps, sr)
			if step.OnError.Mode == "continue" {
				continue
			}
			result.Aborted = true
			return result, err
		}

		sr.Status = "ok"
		rc.recordStep(step.ID, output, step.OutputMapping)
		result.Steps = append(result.Steps, sr)
	}

	return result, nil
}

// runStepWithPolicy runs a single step, honoring its onError: retry
// directive by re-attempting the step itself up to Retries times with
// a fixed BackoffMs delay between attempts before giving up.
func runStepWithPolicy(ctx context.Context, step *Step, rc *RunContext, opts HandlerOptions) (any, int, error) {
	if step.OnError.Mode != "retry" {
		output, err := runStep(ctx, step, rc, opts)
		return output, 1, err
	}

	attempts := 0
	var lastErr error
	for attempts <= step.OnError.Retries {
		attempts++
		output, err := runStep(ctx, step, rc, opts)
		if err == nil {
			return output, attempts, nil
		}
		lastErr = err
		if attempts > step.OnError.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, attempts, ctx.Err()
		case <-time.After(time.Duration(step.OnError.BackoffMs) * time.Millisecond):
		}
	}
	return nil, attempts, lastErr
}
