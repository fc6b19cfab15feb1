package sparql

import (
	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/store"
)

// oneHop returns the one-step neighbors of `from` across predicate iri:
// objects reached forward, or subjects reached backward.
func oneHop(snap *store.Snapshot, iri string, from quad.Term, forward bool) []quad.Term {
	predTerm := quad.IRITerm(iri)
	var rows []quad.Quad
	if forward {
		rows = snap.Match(&from, &predTerm, nil, nil)
	} else {
		rows = snap.Match(nil, &predTerm, &from, nil)
	}
	out := make([]quad.Term, 0, len(rows))
	for _, r := range rows {
		if forward {
			out = append(out, r.Object)
		} else {
			out = append(out, r.Subject)
		}
	}
	return out
}

func dedupTerms(terms []quad.Term) []quad.Term {
	seen := make(map[string]bool, len(terms))
	out := make([]quad.Term, 0, len(terms))
	for _, t := range terms {
		if seen[t.Key()] {
			continue
		}
		seen[t.Key()] = true
		out = append(out, t)
	}
	return out
}

// evalPath evaluates a property path from a single bound endpoint,
// returning the terms reachable at the other end. forward=true walks
// subject-to-object; forward=false walks object-to-subject.
func evalPath(snap *store.Snapshot, path Path, start quad.Term, forward bool) []quad.Term {
	switch pt := path.(type) {
	case IRIPath:
		return oneHop(snap, pt.IRI, start, forward)
	case SeqPath:
		first, second := pt.Left, pt.Right
		if !forward {
			first, second = pt.Right, pt.Left
		}
		mids := evalPath(snap, first, start, forward)
		var out []quad.Term
		for _, m := range mids {
			out = append(out, evalPath(snap, second, m, forward)...)
		}
		return dedupTerms(out)
	case AltPath:
		a := evalPath(snap, pt.Left, start, forward)
		b := evalPath(snap, pt.Right, start, forward)
		return dedupTerms(append(a, b...))
	case ZeroOrMorePath:
		return bfsClosure(snap, pt.Inner, start, forward, true)
	case OneOrMorePath:
		return bfsClosure(snap, pt.Inner, start, forward, false)
	case ZeroOrOnePath:
		out := append([]quad.Term{start}, evalPath(snap, pt.Inner, start, forward)...)
		return dedupTerms(out)
	default:
		return nil
	}
}

// bfsClosure computes the reflexive-transitive (or transitive) closure
// of inner from start, bounded by the snapshot's quad count so a cyclic
// graph can never loop forever.
func bfsClosure(snap *store.Snapshot, inner Path, start quad.Term, forward, includeStart bool) []quad.Term {
	visited := make(map[string]quad.Term)
	if includeStart {
		visited[start.Key()] = start
	}
	frontier := []quad.Term{start}
	bound := snap.Len() + 1
	steps := 0
	for len(frontier) > 0 && steps <= bound {
		var next []quad.Term
		for _, f := range frontier {
			for _, n := range evalPath(snap, inner, f, forward) {
				if _, ok := visited[n.Key()]; !ok {
					visited[n.Key()] = n
					next = append(next, n)
				}
			}
			steps++
		}
		frontier = next
	}
	out := make([]quad.Term, 0, len(visited))
	for _, t := range visited {
		out = append(out, t)
	}
	return out
}

func distinctSubjects(snap *store.Snapshot) []quad.Term {
	seen := make(map[string]quad.Term)
	for _, q := range snap.All() {
		seen[q.Subject.Key()] = q.Subject
	}
	out := make([]quad.Term, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	return out
}
