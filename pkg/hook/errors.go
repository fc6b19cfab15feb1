// Package hook discovers Turtle-described hooks, schedules their
// evaluation against Git events and timers, runs their predicate and
// (on fire) their pipeline, and emits a receipt to the notes ref (spec
// §4.5).
package hook

import "fmt"

// DefinitionError reports an invalid hook definition: a hooks graph
// with no Hook-typed subjects, or a hook missing its pipeline
// reference. Fatal only for the affected hook; other hooks in the same
// graph continue to load.
type DefinitionError struct {
	HookIRI string
	Reason  string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("hook: %s: %s", e.HookIRI, e.Reason)
}

// QueueFullError is returned when the pending evaluation queue exceeds Qmax.
type QueueFullError struct{}

func (e *QueueFullError) Error() string { return "QueueFull" }

// TimeoutError reports an evaluation that exceeded its wall-clock budget.
type TimeoutError struct {
	HookIRI string
	Budget  string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("hook: %s: evaluation timed out after %s", e.HookIRI, e.Budget)
}
