// Package store implements the in-memory RDF quad store (spec §4.1):
// an indexed, duplicate-free quad set exposed through immutable
// snapshots so concurrent evaluations never observe a torn read.
package store

import (
	"sync/atomic"

	"github.com/gitvan-dev/gitvan/pkg/logger"
	"github.com/gitvan-dev/gitvan/pkg/quad"
)

var log = logger.New("store:snapshot")

// Snapshot is an immutable view of the quad set at a point in time.
// Readers may hold a Snapshot across a long-running evaluation; it
// never changes underneath them.
type Snapshot struct {
	quads []quad.Quad

	bySubject   map[string][]int
	byPredicate map[string][]int
	byObject    map[string][]int
	byGraph     map[string][]int
}

func newSnapshot(quads []quad.Quad) *Snapshot {
	s := &Snapshot{
		quads:       quads,
		bySubject:   make(map[string][]int, len(quads)),
		byPredicate: make(map[string][]int, len(quads)),
		byObject:    make(map[string][]int, len(quads)),
		byGraph:     make(map[string][]int, len(quads)),
	}
	for i, q := range quads {
		s.bySubject[q.Subject.Key()] = append(s.bySubject[q.Subject.Key()], i)
		s.byPredicate[q.Predicate.Key()] = append(s.byPredicate[q.Predicate.Key()], i)
		s.byObject[q.Object.Key()] = append(s.byObject[q.Object.Key()], i)
		s.byGraph[q.Graph] = append(s.byGraph[q.Graph], i)
	}
	return s
}

// Len returns the number of quads visible in this snapshot.
func (s *Snapshot) Len() int { return len(s.quads) }

// All returns every quad in the snapshot. The returned slice must not
// be mutated by the caller.
func (s *Snapshot) All() []quad.Quad { return s.quads }

// Match returns every quad matching the given pattern; a nil term in
// any position means "unbound" for that position. An empty (non-nil)
// graph string still means DefaultGraph, not unbound — pass a nil
// *string for "any graph".
func (s *Snapshot) Match(subject, predicate, object *quad.Term, graph *string) []quad.Quad {
	candidates, ok := s.smallestCandidateSet(subject, predicate, object, graph)
	var out []quad.Quad
	if !ok {
		// No bound term: full scan.
		for _, q := range s.quads {
			if matches(q, subject, predicate, object, graph) {
				out = append(out, q)
			}
		}
		return out
	}
	for _, idx := range candidates {
		q := s.quads[idx]
		if matches(q, subject, predicate, object, graph) {
			out = append(out, q)
		}
	}
	return out
}

func matches(q quad.Quad, subject, predicate, object *quad.Term, graph *string) bool {
	if subject != nil && !q.Subject.Equal(*subject) {
		return false
	}
	if predicate != nil && !q.Predicate.Equal(*predicate) {
		return false
	}
	if object != nil && !q.Object.Equal(*object) {
		return false
	}
	if graph != nil && q.Graph != *graph {
		return false
	}
	return true
}

// smallestCandidateSet picks the bound position with the fewest
// candidate quads, to keep Match closer to indexed lookup than full scan.
func (s *Snapshot) smallestCandidateSet(subject, predicate, object *quad.Term, graph *string) ([]int, bool) {
	var best []int
	found := false
	consider := func(idx []int) {
		if !found || len(idx) < len(best) {
			best = idx
			found = true
		}
	}
	if subject != nil {
		consider(s.bySubject[subject.Key()])
	}
	if predicate != nil {
		consider(s.byPredicate[predicate.Key()])
	}
	if object != nil {
		consider(s.byObject[object.Key()])
	}
	if graph != nil {
		consider(s.byGraph[*graph])
	}
	return best, found
}

// Store owns the current snapshot pointer. Writers commit new quads by
// building a new Snapshot and atomically swapping the pointer; readers
// never block and never see a partial ingest.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	s.current.Store(newSnapshot(nil))
	return s
}

// Snapshot returns the current immutable snapshot.
func (st *Store) Snapshot() *Snapshot {
	return st.current.Load()
}

// Commit adds quads to the store, skipping exact duplicates already
// present, and atomically publishes the resulting snapshot. It returns
// the number of quads actually added.
func (st *Store) Commit(newQuads []quad.Quad) int {
	for {
		old := st.current.Load()
		seen := make(map[string]struct{}, len(old.quads)+len(newQuads))
		merged := make([]quad.Quad, 0, len(old.quads)+len(newQuads))
		for _, q := range old.quads {
			if _, dup := seen[q.Key()]; dup {
				continue
			}
			seen[q.Key()] = struct{}{}
			merged = append(merged, q)
		}
		added := 0
		for _, q := range newQuads {
			if _, dup := seen[q.Key()]; dup {
				continue
			}
			seen[q.Key()] = struct{}{}
			merged = append(merged, q)
			added++
		}
		next := newSnapshot(merged)
		if st.current.CompareAndSwap(old, next) {
			log.Printf("committed snapshot: quads=%d added=%d", len(merged), added)
			return added
		}
		// Lost the race with a concurrent writer; retry with the new base.
	}
}
