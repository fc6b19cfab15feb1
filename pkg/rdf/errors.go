package rdf

import "fmt"

// SyntaxError reports a parse failure in a Turtle or N-Quads document,
// matching spec §4.1's failure semantics.
type SyntaxError struct {
	File string
	Line int
	Col  int
	Msg  string
}

func (e *SyntaxError) Error() string {
	loc := e.File
	if loc == "" {
		loc = "<input>"
	}
	return fmt.Sprintf("%s:%d:%d: %s", loc, e.Line, e.Col, e.Msg)
}
