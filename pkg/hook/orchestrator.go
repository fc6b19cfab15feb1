package hook

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/execctx"
	"github.com/gitvan-dev/gitvan/pkg/gitbackend"
	"github.com/gitvan-dev/gitvan/pkg/httputil"
	"github.com/gitvan-dev/gitvan/pkg/logger"
	"github.com/gitvan-dev/gitvan/pkg/store"
	"github.com/gitvan-dev/gitvan/pkg/workflow"
)

var orchLog = logger.New("hook:orchestrator")

// HooksGraphIRI names the single named graph every hookDirs Turtle
// file is folded into; predicates and pipelines live in whatever
// graphs their own N-Quads declare (typically the pipeline's own IRI).
const HooksGraphIRI = "https://gitvan.dev/graphs/hooks"

// Orchestrator ties hook discovery, scheduling, evaluation, and receipt
// emission together into the single running process spec §4.5/§5
// describes: it loads hooks from the configured directories, maps Git
// events and timers onto them, runs each fired evaluation on a bounded
// pool, and writes a receipt for every evaluation.
type Orchestrator struct {
	cfg       *execctx.Config
	backend   *gitbackend.Backend
	store     *store.Store
	baselines *FileBaselineStore
	pool      *Pool
	scheduler *Scheduler

	mu    sync.RWMutex
	hooks []*Hook
}

// New builds an Orchestrator from cfg: opens the Git backend, ingests
// every configured hookDirs/graphDirs directory, and loads the
// resulting hook set. It does not start the scheduler or accept
// events until Start is called.
func New(cfg *execctx.Config) (*Orchestrator, error) {
	backend, err := gitbackend.New(cfg.ProjectRoot, nil)
	if err != nil {
		return nil, fmt.Errorf("hook: open backend: %w", err)
	}
	st := store.New()

	for _, dir := range cfg.HookDirs {
		if _, err := Discover(st, dir, HooksGraphIRI); err != nil {
			return nil, err
		}
	}
	for _, dir := range cfg.GraphDirs {
		if _, err := DiscoverGraphs(st, dir); err != nil {
			return nil, err
		}
	}

	baselinePath := filepath.Join(cfg.ProjectRoot, ".gitvan", "baselines.json")
	baselines, err := NewFileBaselineStore(baselinePath)
	if err != nil {
		return nil, fmt.Errorf("hook: load baselines: %w", err)
	}

	o := &Orchestrator{
		cfg:       cfg,
		backend:   backend,
		store:     st,
		baselines: baselines,
		pool:      NewPool(cfg.WorkerCount, cfg.QueueMax),
	}
	o.scheduler = NewScheduler(o.enqueueTimer)

	if err := o.reload(); err != nil {
		return nil, err
	}
	return o, nil
}

// reload re-reads the hooks graph into o.hooks and (re)registers every
// timer trigger. Called once at startup and again after each Watch
// re-ingest.
func (o *Orchestrator) reload() error {
	hooks, err := Load(o.store.Snapshot(), HooksGraphIRI)
	if err != nil {
		return err
	}
	o.mu.Lock()
	o.hooks = hooks
	o.mu.Unlock()
	for _, h := range hooks {
		o.scheduler.Register(h)
	}
	return nil
}

// Start begins the scheduler's timer dispatch and, if cfg.HookDirs is
// non-empty, a background watcher per hookDirs entry that re-ingests
// and reschedules on every filesystem change (spec §4.5's hot-reload
// requirement). Evaluations triggered by Git events still flow through
// OnGitEvent regardless of Start.
func (o *Orchestrator) Start(ctx context.Context) {
	o.scheduler.Start()
	for _, dir := range o.cfg.HookDirs {
		go func(dir string) {
			if err := Watch(ctx, o.store, dir, HooksGraphIRI, func() {
				if err := o.reload(); err != nil {
					orchLog.Printf("reload after watch on %s: %v", dir, err)
				}
			}); err != nil {
				orchLog.Printf("watch %s: %v", dir, err)
			}
		}(dir)
	}
}

// Stop drains the pool and halts the scheduler. Any watchers started by
// Start exit on their own once the ctx passed to Start is canceled.
func (o *Orchestrator) Stop() {
	o.scheduler.Stop()
	o.pool.Stop()
}

// OnGitEvent maps a Git Backend event name onto every matching hook and
// enqueues each for evaluation (spec §4.5). Event must be one of the
// six fixed event names; an unrecognized name is rejected with an
// error and enqueues nothing.
func (o *Orchestrator) OnGitEvent(event string) error {
	if !knownEvents[event] {
		return fmt.Errorf("hook: unrecognized event %q", event)
	}
	o.mu.RLock()
	matched := MapEvent(o.hooks, event)
	o.mu.RUnlock()

	var firstErr error
	for _, h := range matched {
		if err := o.enqueue(h); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// enqueueTimer is the Scheduler's fire callback; it swallows QueueFull
// rather than propagating it, since a timer trigger has no caller to
// report back to.
func (o *Orchestrator) enqueueTimer(h *Hook) {
	if err := o.enqueue(h); err != nil {
		orchLog.Printf("%s: timer-triggered enqueue: %v", h.IRI, err)
	}
}

func (o *Orchestrator) enqueue(h *Hook) error {
	return o.pool.Enqueue(func(ctx context.Context) {
		o.run(ctx, h)
	})
}

func (o *Orchestrator) run(ctx context.Context, h *Hook) {
	timeout := time.Duration(o.cfg.DefaultTimeoutMs) * time.Millisecond
	opts := EvalOptions{
		Snapshot:  o.store.Snapshot(),
		Backend:   o.backend,
		Baselines: o.baselines,
		Timeout:   timeout,
		HandlerOpts: workflow.HandlerOptions{
			Snapshot:    o.store.Snapshot(),
			ProjectRoot: o.cfg.ProjectRoot,
			ShellAllow:  o.cfg.ShellAllowList,
			HTTPAllow:   o.cfg.HTTPAllowList,
			HTTPClient:  httputil.NewClient(nil),
		},
	}

	receipt, update, err := Evaluate(ctx, h, opts)
	if err != nil {
		orchLog.Printf("%s: evaluation could not produce a receipt: %v", h.IRI, err)
		return
	}

	if o.cfg.SigningKeyPath != "" {
		key, err := LoadSigningKey(o.cfg.SigningKeyPath)
		if err != nil {
			orchLog.Printf("%s: %v", h.IRI, err)
			return
		}
		if err := receipt.Sign(key); err != nil {
			orchLog.Printf("%s: %v", h.IRI, err)
			return
		}
	}

	if err := EmitReceipt(o.backend, o.cfg.NotesRef, receipt); err != nil {
		orchLog.Printf("%s: emit receipt: %v", h.IRI, err)
		return
	}
	if update != nil {
		if err := o.baselines.Put(update.BaselineID, update.Hash); err != nil {
			orchLog.Printf("%s: persist baseline %s: %v", h.IRI, update.BaselineID, err)
		}
	}
}
