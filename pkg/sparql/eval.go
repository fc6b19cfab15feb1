package sparql

import (
	"sort"

	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/store"
)

func resolveNode(n Node, b Binding) (quad.Term, bool) {
	if !n.IsVar() {
		return n.Term, true
	}
	t, ok := b[n.Var]
	return t, ok
}

// consistent enforces a repeated variable within one triple pattern
// (e.g. `?x ex:p ?x`) binding to the same term in subject and object
// position.
func consistent(tp TriplePattern, s, o quad.Term) bool {
	if tp.Subject.IsVar() && tp.Object.IsVar() && tp.Subject.Var == tp.Object.Var {
		return s.Equal(o)
	}
	return true
}

func matchTriple(snap *store.Snapshot, tp TriplePattern, b Binding) []Binding {
	subjBound, subjHas := resolveNode(tp.Subject, b)
	objBound, objHas := resolveNode(tp.Object, b)

	if tp.Predicate.Var != "" {
		var subjPtr, objPtr, predPtr *quad.Term
		if subjHas {
			subjPtr = &subjBound
		}
		if objHas {
			objPtr = &objBound
		}
		predBound, predHas := false, false
		var predTerm quad.Term
		if t, ok := b[tp.Predicate.Var]; ok {
			predTerm = t
			predHas = true
		}
		if predHas {
			predBound = true
			predPtr = &predTerm
		}
		rows := snap.Match(subjPtr, predPtr, objPtr, nil)
		var out []Binding
		for _, q := range rows {
			if !consistent(tp, q.Subject, q.Object) {
				continue
			}
			nb := cloneBinding(b)
			if tp.Subject.IsVar() {
				nb[tp.Subject.Var] = q.Subject
			}
			if !predBound {
				nb[tp.Predicate.Var] = q.Predicate
			}
			if tp.Object.IsVar() {
				nb[tp.Object.Var] = q.Object
			}
			out = append(out, nb)
		}
		return out
	}

	path := tp.Predicate.Path
	var out []Binding
	switch {
	case subjHas:
		for _, o := range evalPath(snap, path, subjBound, true) {
			if objHas && !o.Equal(objBound) {
				continue
			}
			if !consistent(tp, subjBound, o) {
				continue
			}
			nb := cloneBinding(b)
			if tp.Subject.IsVar() {
				nb[tp.Subject.Var] = subjBound
			}
			if tp.Object.IsVar() {
				nb[tp.Object.Var] = o
			}
			out = append(out, nb)
		}
	case objHas:
		for _, s := range evalPath(snap, path, objBound, false) {
			if !consistent(tp, s, objBound) {
				continue
			}
			nb := cloneBinding(b)
			if tp.Subject.IsVar() {
				nb[tp.Subject.Var] = s
			}
			if tp.Object.IsVar() {
				nb[tp.Object.Var] = objBound
			}
			out = append(out, nb)
		}
	default:
		for _, s := range distinctSubjects(snap) {
			for _, o := range evalPath(snap, path, s, true) {
				if !consistent(tp, s, o) {
					continue
				}
				nb := cloneBinding(b)
				if tp.Subject.IsVar() {
					nb[tp.Subject.Var] = s
				}
				if tp.Object.IsVar() {
					nb[tp.Object.Var] = o
				}
				out = append(out, nb)
			}
		}
	}
	return out
}

func evalGroup(snap *store.Snapshot, group *GroupPattern, bindings []Binding) ([]Binding, error) {
	cur := bindings
	for _, el := range group.Elements {
		switch e := el.(type) {
		case TripleElement:
			var next []Binding
			for _, b := range cur {
				next = append(next, matchTriple(snap, e.Pattern, b)...)
			}
			cur = next
		case OptionalElement:
			var next []Binding
			for _, b := range cur {
				inner, err := evalGroup(snap, e.Group, []Binding{b})
				if err != nil {
					return nil, err
				}
				if len(inner) == 0 {
					next = append(next, b)
				} else {
					next = append(next, inner...)
				}
			}
			cur = next
		case UnionElement:
			var next []Binding
			for _, b := range cur {
				left, err := evalGroup(snap, e.Left, []Binding{b})
				if err != nil {
					return nil, err
				}
				right, err := evalGroup(snap, e.Right, []Binding{b})
				if err != nil {
					return nil, err
				}
				next = append(next, left...)
				next = append(next, right...)
			}
			cur = next
		case FilterElement:
			var next []Binding
			for _, b := range cur {
				v, err := evalExpr(e.Expr, b)
				if err != nil {
					continue
				}
				if truthy(v) {
					next = append(next, b)
				}
			}
			cur = next
		case SubGroupElement:
			next, err := evalGroup(snap, e.Group, cur)
			if err != nil {
				return nil, err
			}
			cur = next
		}
	}
	return cur, nil
}

func hasAgg(vars []SelectVar) bool {
	for _, v := range vars {
		if v.Agg != nil {
			return true
		}
	}
	return false
}

func groupKeyOf(b Binding, groupBy []string) string {
	key := ""
	for _, v := range groupBy {
		if t, ok := b[v]; ok {
			key += t.Key()
		}
		key += "\x00"
	}
	return key
}

func evalAggregates(q *Query, bindings []Binding) []Binding {
	groups := make(map[string][]Binding)
	var order []string
	for _, b := range bindings {
		key := groupKeyOf(b, q.GroupBy)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], b)
	}
	if len(bindings) == 0 {
		order = []string{""}
		groups[""] = nil
	}
	var out []Binding
	for _, key := range order {
		group := groups[key]
		row := Binding{}
		if len(group) > 0 {
			for _, gv := range q.GroupBy {
				if t, ok := group[0][gv]; ok {
					row[gv] = t
				}
			}
		}
		for _, sv := range q.SelectVars {
			if sv.Agg == nil {
				continue
			}
			row[sv.Var] = computeAgg(sv.Agg, group)
		}
		out = append(out, row)
	}
	return out
}

func projectSelectVars(bindings []Binding, q *Query) []Binding {
	if q.SelectAll {
		return bindings
	}
	out := make([]Binding, 0, len(bindings))
	for _, b := range bindings {
		nb := Binding{}
		for _, sv := range q.SelectVars {
			if t, ok := b[sv.Var]; ok {
				nb[sv.Var] = t
			}
		}
		out = append(out, nb)
	}
	return out
}

func bindingKey(b Binding) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	key := ""
	for _, k := range keys {
		key += k + "=" + b[k].Key() + "\x01"
	}
	return key
}

func distinctBindings(bindings []Binding) []Binding {
	seen := make(map[string]bool, len(bindings))
	out := make([]Binding, 0, len(bindings))
	for _, b := range bindings {
		k := bindingKey(b)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b)
	}
	return out
}

func applyOffsetLimit(bindings []Binding, offset, limit *int) []Binding {
	if offset != nil {
		o := *offset
		if o >= len(bindings) {
			return nil
		}
		if o > 0 {
			bindings = bindings[o:]
		}
	}
	if limit != nil && *limit < len(bindings) {
		bindings = bindings[:*limit]
	}
	return bindings
}

func sortBindings(bindings []Binding, order []OrderTerm) {
	sort.SliceStable(bindings, func(i, j int) bool {
		for _, ot := range order {
			ti, oki := bindings[i][ot.Var]
			tj, okj := bindings[j][ot.Var]
			if !oki && !okj {
				continue
			}
			if !oki {
				return !ot.Desc
			}
			if !okj {
				return ot.Desc
			}
			cmp := compareOrder(ti, tj)
			if cmp == 0 {
				continue
			}
			if ot.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareOrder(a, b quad.Term) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	switch {
	case a.Value < b.Value:
		return -1
	case a.Value > b.Value:
		return 1
	default:
		return 0
	}
}

// Select evaluates a SELECT query against snap, applying GROUP BY /
// aggregates, ORDER BY, projection, DISTINCT, and LIMIT/OFFSET in that
// order.
func Select(snap *store.Snapshot, q *Query) ([]Binding, error) {
	if q.Form != FormSelect {
		return nil, &QueryError{Reason: "query is not a SELECT"}
	}
	bindings, err := evalGroup(snap, q.Where, []Binding{{}})
	if err != nil {
		return nil, err
	}
	if len(q.GroupBy) > 0 || hasAgg(q.SelectVars) {
		bindings = evalAggregates(q, bindings)
	}
	if len(q.OrderBy) > 0 {
		sortBindings(bindings, q.OrderBy)
	}
	projected := projectSelectVars(bindings, q)
	if q.Distinct {
		projected = distinctBindings(projected)
	}
	return applyOffsetLimit(projected, q.Offset, q.Limit), nil
}

// Ask evaluates an ASK query: true iff its pattern has at least one solution.
func Ask(snap *store.Snapshot, q *Query) (bool, error) {
	if q.Form != FormAsk {
		return false, &QueryError{Reason: "query is not an ASK"}
	}
	bindings, err := evalGroup(snap, q.Where, []Binding{{}})
	if err != nil {
		return false, err
	}
	return len(bindings) > 0, nil
}

func resolveConstructPredicate(ps PredicateSpec, b Binding) (quad.Term, bool) {
	if ps.Var != "" {
		t, ok := b[ps.Var]
		return t, ok
	}
	if ip, ok := ps.Path.(IRIPath); ok {
		return quad.IRITerm(ip.IRI), true
	}
	return quad.Term{}, false
}

// Construct evaluates a CONSTRUCT query, instantiating the template
// once per solution and deduplicating identical quads.
func Construct(snap *store.Snapshot, q *Query) ([]quad.Quad, error) {
	if q.Form != FormConstruct {
		return nil, &QueryError{Reason: "query is not a CONSTRUCT"}
	}
	bindings, err := evalGroup(snap, q.Where, []Binding{{}})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var out []quad.Quad
	for _, b := range bindings {
		for _, tp := range q.ConstructTemplate {
			s, ok1 := resolveNode(tp.Subject, b)
			p, ok2 := resolveConstructPredicate(tp.Predicate, b)
			o, ok3 := resolveNode(tp.Object, b)
			if !ok1 || !ok2 || !ok3 {
				continue
			}
			qd := quad.Quad{Subject: s, Predicate: p, Object: o, Graph: quad.DefaultGraph}
			key := qd.Key()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, qd)
		}
	}
	return out, nil
}
