// Package template renders the text/control-flow template language
// from spec §4.2, extracts front-matter directives, and turns them
// into a pure FilePlan that apply() executes idempotently.
package template

import "fmt"

// SyntaxError reports a malformed template tag.
type SyntaxError struct {
	Reason string
	Pos    int
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("template: syntax error at offset %d: %s", e.Pos, e.Reason)
}

// PathEscapeError reports a resolved output path outside the project root.
type PathEscapeError struct {
	Path string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("template: path escapes project root: %s", e.Path)
}

// ExistsError reports force=error on an existing target.
type ExistsError struct {
	Path string
}

func (e *ExistsError) Error() string {
	return fmt.Sprintf("template: target already exists: %s", e.Path)
}

// AnchorNotFoundError reports a missing injection anchor.
type AnchorNotFoundError struct {
	Path string
	Find string
}

func (e *AnchorNotFoundError) Error() string {
	return fmt.Sprintf("template: anchor not found in %s: %q", e.Path, e.Find)
}
