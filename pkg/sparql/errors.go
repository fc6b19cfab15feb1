// Package sparql implements a SPARQL 1.1 subset (spec §4.1): SELECT, ASK,
// CONSTRUCT over basic graph patterns with UNION, OPTIONAL, FILTER,
// aggregates, ORDER BY/LIMIT/OFFSET, and bounded property paths.
package sparql

import "fmt"

// QueryError reports a query that failed to parse or evaluate, such as a
// reference to an undefined prefix.
type QueryError struct {
	Reason string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("sparql: %s", e.Reason)
}
