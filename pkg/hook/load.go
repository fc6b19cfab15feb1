package hook

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gitvan-dev/gitvan/pkg/logger"
	"github.com/gitvan-dev/gitvan/pkg/predicate"
	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/stringutil"
	"github.com/gitvan-dev/gitvan/pkg/store"
)

var loadLog = logger.New("hook:load")

// Load enumerates every Hook-typed subject in the hooks graph, in
// first-appearance order, folding its graph-hook# properties into a
// Definition. Hooks with a disabled property are still returned (with
// Disabled set) so callers can report them; the orchestrator is
// responsible for skipping them at scheduling time. A hook without a
// pipeline reference is logged and skipped; Load returns a
// DefinitionError only when no usable hook remains.
func Load(snap *store.Snapshot, hooksGraph string) ([]*Hook, error) {
	graph := hooksGraph
	quads := snap.Match(nil, nil, nil, &graph)

	hooks := make(map[string]*Hook)
	order := 0
	hookOf := func(subject string) *Hook {
		if h, ok := hooks[subject]; ok {
			return h
		}
		h := &Hook{IRI: subject, order: order}
		order++
		hooks[subject] = h
		return h
	}

	for _, q := range quads {
		if q.Predicate.Value != quad.RDFType || !q.Subject.IsIRI() {
			continue
		}
		if stringutil.LocalName(q.Object.Value) != "Hook" {
			continue
		}
		hookOf(q.Subject.Value)
	}
	if len(hooks) == 0 {
		return nil, &DefinitionError{HookIRI: hooksGraph, Reason: "no Hook-typed subjects found"}
	}

	for _, q := range quads {
		if q.Predicate.Value == quad.RDFType || !q.Subject.IsIRI() {
			continue
		}
		h, known := hooks[q.Subject.Value]
		if !known {
			continue
		}
		local := stringutil.LocalName(q.Predicate.Value)
		switch local {
		case "pipeline":
			h.PipelineIRI = q.Object.Value
		case "on":
			h.On = append(h.On, q.Object.Value)
		case "timer":
			h.Timers = append(h.Timers, q.Object.Value)
		case "disabled":
			if b, err := strconv.ParseBool(q.Object.Value); err == nil {
				h.Disabled = b
			}
		case "predicateKind":
			h.Predicate.Kind = parsePredicateKind(q.Object.Value)
		case "query":
			h.Predicate.Query = q.Object.Value
		case "variable":
			h.Predicate.Variable = q.Object.Value
		case "reducer":
			h.Predicate.Reducer = predicate.Reducer(q.Object.Value)
		case "op":
			h.Predicate.Op = predicate.Op(q.Object.Value)
		case "value":
			if f, err := strconv.ParseFloat(q.Object.Value, 64); err == nil {
				h.Predicate.Value = f
			}
		case "keyVariables":
			h.Predicate.KeyVariables = append(h.Predicate.KeyVariables, strings.Split(q.Object.Value, ",")...)
		case "baselineId":
			h.Predicate.BaselineID = q.Object.Value
		}
	}

	result := make([]*Hook, 0, len(hooks))
	var firstErr error
	for _, h := range hooks {
		if h.PipelineIRI == "" {
			defErr := &DefinitionError{HookIRI: h.IRI, Reason: "missing pipeline reference"}
			loadLog.Printf("skipping hook: %v", defErr)
			if firstErr == nil {
				firstErr = defErr
			}
			continue
		}
		result = append(result, h)
	}
	if len(result) == 0 {
		return nil, firstErr
	}
	sort.Slice(result, func(i, j int) bool { return result[i].order < result[j].order })
	return result, nil
}

func parsePredicateKind(s string) predicate.Kind {
	switch s {
	case "threshold":
		return predicate.KindSelectThreshold
	case "delta":
		return predicate.KindResultDelta
	default:
		return predicate.KindAsk
	}
}

// MapEvent returns every enabled hook whose On list contains event.
func MapEvent(hooks []*Hook, event string) []*Hook {
	var out []*Hook
	for _, h := range hooks {
		if h.Disabled {
			continue
		}
		for _, on := range h.On {
			if on == event {
				out = append(out, h)
				break
			}
		}
	}
	return out
}
