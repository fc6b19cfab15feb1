package workflow

import "sort"

// TopologicalOrder returns the pipeline's steps ordered so every step
// follows everything it dependsOn. Ties (steps with no ordering
// relationship between them) break by declared order in the Turtle
// source, i.e. the order each step's rdf:type triple first appeared in
// the pipeline's graph (spec §4.4).
func TopologicalOrder(p *Pipeline) ([]*Step, error) {
	if err := validateDependencies(p); err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, len(p.Steps))
	dependents := make(map[string][]string, len(p.Steps))
	for id, s := range p.Steps {
		inDegree[id] = len(s.DependsOn)
		for _, dep := range s.DependsOn {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready []string
	for id, deg := range inDegree {
		if deg == 0 {
			ready = append(ready, id)
		}
	}
	sortByDeclaredOrder(p, ready)

	result := make([]*Step, 0, len(p.Steps))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		result = append(result, p.Steps[id])

		var newlyReady []string
		for _, dependentID := range dependents[id] {
			inDegree[dependentID]--
			if inDegree[dependentID] == 0 {
				newlyReady = append(newlyReady, dependentID)
			}
		}
		sortByDeclaredOrder(p, newlyReady)
		ready = append(ready, newlyReady...)
		sortByDeclaredOrder(p, ready)
	}

	return result, nil
}

func sortByDeclaredOrder(p *Pipeline, ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return p.Steps[ids[i]].order < p.Steps[ids[j]].order
	})
}

// validateDependencies checks every dependsOn reference resolves to a
// real step and that the dependency graph has no cycle, via the same
// three-state DFS used for job dependency validation: 0 unvisited, 1
// visiting (on the current DFS path), 2 visited.
func validateDependencies(p *Pipeline) error {
	for id, s := range p.Steps {
		for _, dep := range s.DependsOn {
			if _, ok := p.Steps[dep]; !ok {
				return &LoadError{PipelineIRI: p.IRI, Reason: "step " + id + " depends on unknown step " + dep}
			}
		}
	}

	state := make(map[string]int, len(p.Steps))
	var visit func(id string) error
	visit = func(id string) error {
		state[id] = 1
		for _, dep := range p.Steps[id].DependsOn {
			switch state[dep] {
			case 1:
				return &CycleError{StepID: id}
			case 0:
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		state[id] = 2
		return nil
	}
	for id := range p.Steps {
		if state[id] == 0 {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}
