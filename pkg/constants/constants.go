// Package constants centralizes the default values and well-known
// names used across the orchestrator: namespace IRIs, Git ref and
// note conventions, default timeouts, and the CLI step allow-list.
package constants

import "time"

// DefaultNamespaceIRI is the default base namespace IRI for hook and
// pipeline subjects.
const DefaultNamespaceIRI = "https://gitvan.dev/ns#"

// HooksDir is the default directory hooks are discovered from,
// relative to the repository root (spec §4.4's hook discovery).
const HooksDir = ".gitvan/hooks"

// ReceiptsNotesRef is the Git notes ref receipts are appended to.
const ReceiptsNotesRef = "refs/notes/gitvan/receipts"

// RefLockRef is the Git ref used as a mutual-exclusion lock while a
// receipt is being appended (spec §7).
const RefLockRef = "refs/gitvan/lock"

// EvaluationPhase, ExecutionPhase, ReceiptPhase name the well-known
// phases of one hook evaluation.
const (
	EvaluationPhase = "evaluation"
	ExecutionPhase  = "execution"
	ReceiptPhase    = "receipt"
)

// DefaultPredicateTimeout is the wall-clock budget for predicate
// evaluation absent an explicit override (spec §4.3).
const DefaultPredicateTimeout = 5 * time.Second

// DefaultStepTimeout is the wall-clock budget for a single workflow
// step absent an explicit override (spec §4.4).
const DefaultStepTimeout = 30 * time.Second

// DefaultWorkerPoolSize bounds the number of hooks evaluated
// concurrently by the orchestrator (spec §4.4's bounded worker pool).
const DefaultWorkerPoolSize = 4

// DefaultQueueCapacity bounds how many fired hooks may be queued
// awaiting a free worker before QueueFull is returned.
const DefaultQueueCapacity = 10000

// DefaultPropertyPathBudget is a property-path BFS traversal bound
// expressed as a multiple of the snapshot's quad count. pkg/sparql does
// not read it: its closure walk is bounded by the quad count plus one.
const DefaultPropertyPathBudget = 1

// DefaultCLIAllowList is a default set of CLI step commands. The CLI
// step handler checks only the allow-list it is given
// (workflow.HandlerOptions.ShellAllow) and does not fall back to this
// list.
var DefaultCLIAllowList = []string{
	"git",
	"echo",
	"ls",
	"cat",
	"grep",
	"sort",
	"wc",
}

// XSD datatype-local names recognized by the CSV and Turtle literal
// type detectors in pkg/rdf. No other package reads this list.
var KnownXSDTypes = []string{"string", "integer", "decimal", "boolean", "date"}
