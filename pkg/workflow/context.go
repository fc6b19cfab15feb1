package workflow

import "github.com/gitvan-dev/gitvan/pkg/template"

// RunContext is the shared state threaded through a pipeline run: each
// step's raw output keyed by step ID, plus the flat "data" namespace
// later steps' {{ }} expressions resolve against (spec §4.4).
type RunContext struct {
	Steps map[string]any
	Data  map[string]any
}

// NewRunContext returns an empty context seeded with the vars supplied
// at pipeline invocation.
func NewRunContext(seed map[string]any) *RunContext {
	data := make(map[string]any, len(seed))
	for k, v := range seed {
		data[k] = v
	}
	return &RunContext{Steps: make(map[string]any), Data: data}
}

// Vars projects the run context into the flat Vars map the template
// engine evaluates expressions against: every "data" key at the top
// level, plus "steps" for explicit context.steps[id] lookups.
func (rc *RunContext) Vars() template.Vars {
	v := make(template.Vars, len(rc.Data)+1)
	for k, val := range rc.Data {
		v[k] = val
	}
	v["steps"] = rc.Steps
	v["data"] = rc.Data
	return v
}

// recordStep stores a step's output under context.steps[id] and merges
// outputMapping entries into the flat data namespace so later steps can
// reference them directly. A mapping source of "results" binds the
// step's entire output; any other source name is looked up as a field
// of the first result row (for sparql steps) or of the output itself
// (for other step types that return a map).
func (rc *RunContext) recordStep(stepID string, output any, mapping map[string]string) {
	rc.Steps[stepID] = output
	rows, _ := output.([]map[string]any)
	for key, source := range mapping {
		switch {
		case source == "results":
			rc.Data[key] = output
		case len(rows) > 0:
			rc.Data[key] = rows[0][source]
		default:
			if m, ok := output.(map[string]any); ok {
				rc.Data[key] = m[source]
			} else {
				rc.Data[key] = nil
			}
		}
	}
}

// substituteString renders any {{ }} expressions embedded in a config
// string field against the current run context, so later steps can
// reference earlier steps' outputs by name.
func substituteString(s string, rc *RunContext) (string, error) {
	tpl, err := template.ParseTemplate(s)
	if err != nil {
		return "", err
	}
	return template.Render(tpl, rc.Vars())
}
