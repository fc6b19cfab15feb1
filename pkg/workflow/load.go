package workflow

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gitvan-dev/gitvan/pkg/quad"
	"github.com/gitvan-dev/gitvan/pkg/stringutil"
	"github.com/gitvan-dev/gitvan/pkg/store"
)

// Load reads every step belonging to pipelineIRI's named graph and
// returns the unordered Pipeline (spec §4.4): for each step subject,
// group its (property, value) triples, map the step's rdf:type to one
// of {sparql, template, file, http, cli} by stripping a trailing "Step"
// from the type IRI's local name, and rename per-type properties onto
// the field the step handler expects. Unknown properties pass through
// under their own local name. A dependsOn naming a step that does not
// exist, or a dependency cycle, fails the load.
func Load(snap *store.Snapshot, pipelineIRI string) (*Pipeline, error) {
	graph := pipelineIRI
	quads := snap.Match(nil, nil, nil, &graph)
	if len(quads) == 0 {
		return nil, &LoadError{PipelineIRI: pipelineIRI, Reason: "no quads found in pipeline graph"}
	}

	p := &Pipeline{IRI: pipelineIRI, Steps: make(map[string]*Step)}
	order := 0

	stepOf := func(subject string) *Step {
		if s, ok := p.Steps[subject]; ok {
			return s
		}
		s := &Step{ID: subject, Config: make(map[string]any), order: order}
		order++
		p.Steps[subject] = s
		return s
	}

	// First pass: establish every step's type and declared-order index
	// from its rdf:type triple, so the order reflects first appearance
	// in the graph rather than whatever order properties happen to
	// follow in.
	for _, q := range quads {
		if q.Predicate.Value != quad.RDFType || !q.Subject.IsIRI() {
			continue
		}
		typ := stringutil.StepTypeFromIRI(q.Object.Value)
		switch typ {
		case StepSparql, StepTemplate, StepFile, StepHTTP, StepCLI:
		default:
			continue
		}
		s := stepOf(q.Subject.Value)
		s.Type = typ
	}

	if len(p.Steps) == 0 {
		return nil, &LoadError{PipelineIRI: pipelineIRI, Reason: "no step subjects found"}
	}

	// Second pass: fold every other property onto its step.
	for _, q := range quads {
		if q.Predicate.Value == quad.RDFType || !q.Subject.IsIRI() {
			continue
		}
		s, known := p.Steps[q.Subject.Value]
		if !known {
			continue
		}
		local := stringutil.LocalName(q.Predicate.Value)

		switch local {
		case "dependsOn":
			if q.Object.IsIRI() {
				s.DependsOn = append(s.DependsOn, q.Object.Value)
			}
			continue
		case "onError":
			policy, err := parseOnError(q.Object.Value)
			if err != nil {
				return nil, &LoadError{PipelineIRI: pipelineIRI, Reason: err.Error()}
			}
			s.OnError = policy
			continue
		case "outputMapping":
			var mapping map[string]string
			if err := json.Unmarshal([]byte(q.Object.Value), &mapping); err != nil {
				return nil, &LoadError{PipelineIRI: pipelineIRI, Reason: "outputMapping is not valid JSON: " + err.Error()}
			}
			s.OutputMapping = mapping
			continue
		}

		field := local
		if renames, ok := propertyMaps[s.Type]; ok {
			if renamed, ok := renames[local]; ok {
				field = renamed
			}
		}
		s.Config[field] = decodeTerm(q.Object)
	}

	for id, s := range p.Steps {
		if s.Type == "" {
			return nil, &LoadError{PipelineIRI: pipelineIRI, Reason: "step " + id + " has no recognized step type"}
		}
		if s.OnError.Mode == "" {
			s.OnError.Mode = "abort"
		}
	}

	if err := validateDependencies(p); err != nil {
		return nil, err
	}

	return p, nil
}

// decodeTerm converts an RDF term into the Go value a step handler
// would expect from JSON-shaped config: IRIs and language-tagged or
// plain-string literals stay strings; typed numeric/boolean literals
// decode to float64/bool.
func decodeTerm(t quad.Term) any {
	if !t.IsLiteral() {
		return t.Value
	}
	switch t.Datatype {
	case quad.XSDInteger, quad.XSDDecimal:
		if f, err := strconv.ParseFloat(t.Value, 64); err == nil {
			return f
		}
	case quad.XSDBoolean:
		if b, err := strconv.ParseBool(t.Value); err == nil {
			return b
		}
	}
	return t.Value
}

// parseOnError parses the onError literal: "abort", "continue", or
// "retry(n, backoffMs)".
func parseOnError(lex string) (ErrorPolicy, error) {
	lex = strings.TrimSpace(lex)
	switch {
	case lex == "abort" || lex == "":
		return ErrorPolicy{Mode: "abort"}, nil
	case lex == "continue":
		return ErrorPolicy{Mode: "continue"}, nil
	case strings.HasPrefix(lex, "retry("):
		inner := strings.TrimSuffix(strings.TrimPrefix(lex, "retry("), ")")
		parts := strings.Split(inner, ",")
		if len(parts) != 2 {
			return ErrorPolicy{}, errors.New("malformed onError retry directive: " + lex)
		}
		n, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		backoff, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil {
			return ErrorPolicy{}, errors.New("malformed onError retry directive: " + lex)
		}
		return ErrorPolicy{Mode: "retry", Retries: n, BackoffMs: backoff}, nil
	default:
		return ErrorPolicy{}, errors.New("unrecognized onError directive: " + lex)
	}
}
