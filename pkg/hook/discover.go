package hook

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/gitvan-dev/gitvan/pkg/logger"
	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/rdf"
	"github.com/gitvan-dev/gitvan/pkg/store"
)

var discoverLog = logger.New("hook:discover")

// Discover scans dir for *.ttl files, parses each, and commits the
// result to st under hooksGraph (spec §4.5: hooks are ingested into a
// dedicated named graph distinct from the domain graphs their
// predicates query). Re-running Discover on the same dir replaces
// nothing in st — callers that Watch rely on Load re-reading the
// latest commit's full set of Hook-typed subjects each time.
func Discover(st *store.Store, dir, hooksGraph string) (int, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.ttl"))
	if err != nil {
		return 0, fmt.Errorf("hook: glob %s: %w", dir, err)
	}

	var quads []quad.Quad
	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("hook: read %s: %w", path, err)
		}
		parsed, err := rdf.ParseTurtle(string(data), path)
		if err != nil {
			return 0, fmt.Errorf("hook: parse %s: %w", path, err)
		}
		for i := range parsed {
			parsed[i].Graph = hooksGraph
		}
		quads = append(quads, parsed...)
	}

	n := st.Commit(quads)
	discoverLog.Printf("ingested %d quads from %d files in %s", len(quads), len(entries), dir)
	return n, nil
}

// DiscoverGraphs scans dir for *.nq files and commits them to st
// unmodified: unlike hook Turtle files, N-Quads already carry an
// explicit graph term per quad (a pipeline's own IRI for its steps, a
// domain IRI for ordinary facts), so nothing here rewrites Graph.
func DiscoverGraphs(st *store.Store, dir string) (int, error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.nq"))
	if err != nil {
		return 0, fmt.Errorf("hook: glob %s: %w", dir, err)
	}

	var quads []quad.Quad
	for _, path := range entries {
		data, err := os.ReadFile(path)
		if err != nil {
			return 0, fmt.Errorf("hook: read %s: %w", path, err)
		}
		parsed, err := rdf.ParseNQuads(string(data), path)
		if err != nil {
			return 0, fmt.Errorf("hook: parse %s: %w", path, err)
		}
		quads = append(quads, parsed...)
	}

	n := st.Commit(quads)
	discoverLog.Printf("ingested %d quads from %d files in %s", len(quads), len(entries), dir)
	return n, nil
}

// Watch re-runs Discover every time dir's contents change, invoking
// onChange after each successful re-ingest so the caller can reload
// hooks and reschedule triggers (spec §4.5: "on filesystem change, when
// a watch is configured"). Watch blocks until ctx is canceled.
func Watch(ctx context.Context, st *store.Store, dir, hooksGraph string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("hook: new watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("hook: watch %s: %w", dir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".ttl" {
				continue
			}
			if _, err := Discover(st, dir, hooksGraph); err != nil {
				discoverLog.Printf("re-ingest after change to %s: %v", event.Name, err)
				continue
			}
			if onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			discoverLog.Printf("watcher error: %v", err)
		}
	}
}
