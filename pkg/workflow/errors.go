// Package workflow translates RDF pipeline/step descriptions into an
// executable DAG and runs it (spec §4.4): SPARQL, template, file, HTTP,
// and CLI step handlers sharing a merged context.
package workflow

import "fmt"

// LoadError reports a malformed pipeline definition.
type LoadError struct {
	PipelineIRI string
	Reason      string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("workflow: load %s: %s", e.PipelineIRI, e.Reason)
}

// CycleError reports a dependsOn cycle detected at load time.
type CycleError struct {
	StepID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("workflow: dependency cycle detected at step %s", e.StepID)
}

// CommandNotAllowedError reports a CLI step whose command is not on
// the configured allow-list.
type CommandNotAllowedError struct {
	Command string
}

func (e *CommandNotAllowedError) Error() string {
	return fmt.Sprintf("workflow: CommandNotAllowed: %s", e.Command)
}

// StepError wraps a step handler failure with the step's identity.
type StepError struct {
	StepID string
	Reason string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("workflow: step %s: %s", e.StepID, e.Reason)
}
