package hook

import "github.com/gitvan-dev/gitvan/pkg/predicate"

// Namespace prefixes matching spec §6's vocabulary layout: hook and
// step types live under OntologyNS, predicate properties under
// GraphHookNS. Pipeline/step IRIs themselves are pkg/workflow's
// concern (its own NS).
const (
	OntologyNS  = "https://gitvan.dev/ontology#"
	GraphHookNS = "https://gitvan.dev/graph-hook#"
)

// Event names the Git Backend emits (spec §4.5).
const (
	EventPreCommit    = "pre-commit"
	EventPostCommit   = "post-commit"
	EventPrePush      = "pre-push"
	EventPostMerge    = "post-merge"
	EventPostRewrite  = "post-rewrite"
	EventPostCheckout = "post-checkout"
)

var knownEvents = map[string]bool{
	EventPreCommit: true, EventPostCommit: true, EventPrePush: true,
	EventPostMerge: true, EventPostRewrite: true, EventPostCheckout: true,
}

// Hook is one loaded hook definition.
type Hook struct {
	IRI         string
	PipelineIRI string
	Predicate   predicate.Definition
	On          []string // event triggers this hook listens for
	Timers      []string // raw timer-* trigger strings
	Disabled    bool
	order       int
}
