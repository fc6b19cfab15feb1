package workflow

// Namespace prefixes for the properties a pipeline step's Turtle
// description uses (spec §4.4). Steps live in a named graph equal to
// the pipeline's own IRI; order of discovery within that graph is the
// "declared order in the Turtle source" used to break DAG ties.
const NS = "https://gitvan.dev/ns#"

// Recognized step variants.
const (
	StepSparql   = "sparql"
	StepTemplate = "template"
	StepFile     = "file"
	StepHTTP     = "http"
	StepCLI      = "cli"
)

// propertyMaps renames a step type's Turtle property local names onto
// the config field the step handler actually reads. Properties absent
// from a type's map pass through under their own local name.
var propertyMaps = map[string]map[string]string{
	StepSparql: {"text": "query"},
	StepHTTP:   {"httpUrl": "url", "httpMethod": "method"},
}

// ErrorPolicy is a step's onError directive: abort (default), continue,
// or retry(n, backoffMs).
type ErrorPolicy struct {
	Mode      string // "abort" | "continue" | "retry"
	Retries   int
	BackoffMs int
}

// Step is one node of a pipeline's DAG.
type Step struct {
	ID            string // the step's subject IRI
	Type          string // sparql | template | file | http | cli
	Config        map[string]any
	OutputMapping map[string]string
	DependsOn     []string
	OnError       ErrorPolicy
	order         int // index of first appearance in the pipeline's graph
}

// Pipeline is a loaded, not-yet-ordered set of steps.
type Pipeline struct {
	IRI   string
	Steps map[string]*Step
}
