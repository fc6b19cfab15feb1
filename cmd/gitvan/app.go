package main

import (
	"fmt"

	"github.com/gitvan-dev/gitvan/pkg/execctx"
	"github.com/gitvan-dev/gitvan/pkg/gitbackend"
	"github.com/gitvan-dev/gitvan/pkg/hook"
	"github.com/gitvan-dev/gitvan/pkg/store"
)

// loadConfig reads the config file at path (execctx's default if
// empty) and surfaces any load failure as a user error.
func loadConfig(path string) (*execctx.Config, error) {
	cfg, err := execctx.Load(path)
	if err != nil {
		return nil, userErr(fmt.Errorf("gitvan: %w", err))
	}
	for _, w := range cfg.Warnings {
		fmt.Fprintf(outWriter, "warning: %s\n", w)
	}
	return cfg, nil
}

// ingest builds a fresh Store from cfg's configured hookDirs and
// graphDirs, the same two-pass ingestion the orchestrator performs at
// startup, and returns it alongside the resulting hook set.
func ingest(cfg *execctx.Config) (*store.Store, []*hook.Hook, error) {
	st := store.New()
	for _, dir := range cfg.HookDirs {
		if _, err := hook.Discover(st, dir, hook.HooksGraphIRI); err != nil {
			return nil, nil, userErr(fmt.Errorf("gitvan: discover hooks in %s: %w", dir, err))
		}
	}
	for _, dir := range cfg.GraphDirs {
		if _, err := hook.DiscoverGraphs(st, dir); err != nil {
			return nil, nil, userErr(fmt.Errorf("gitvan: discover graphs in %s: %w", dir, err))
		}
	}
	hooks, err := hook.Load(st.Snapshot(), hook.HooksGraphIRI)
	if err != nil {
		return nil, nil, userErr(fmt.Errorf("gitvan: load hooks: %w", err))
	}
	return st, hooks, nil
}

func openBackend(cfg *execctx.Config) (*gitbackend.Backend, error) {
	backend, err := gitbackend.New(cfg.ProjectRoot, nil)
	if err != nil {
		return nil, userErr(fmt.Errorf("gitvan: open repository at %s: %w", cfg.ProjectRoot, err))
	}
	return backend, nil
}

func findHook(hooks []*hook.Hook, iri string) (*hook.Hook, error) {
	for _, h := range hooks {
		if h.IRI == iri {
			return h, nil
		}
	}
	return nil, userErr(fmt.Errorf("gitvan: no hook named %q", iri))
}
