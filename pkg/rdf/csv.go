package rdf

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gitvan-dev/gitvan/pkg/quad"
)

// IngestCSV reads an RFC 4180 CSV document and converts it to quads (spec
// §4.1's CSV adapter). The first row gives column names. Each data row
// becomes one fresh blank node typed entityClassIRI; each non-empty cell
// becomes one quad with predicate baseIRI+columnName and a literal object
// typed by simple detection (integer, decimal, boolean, xsd:date, else
// xsd:string).
func IngestCSV(r io.Reader, baseIRI, entityClassIRI string) ([]quad.Quad, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("rdf: reading CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	columns := rows[0]
	var out []quad.Quad
	for i, row := range rows[1:] {
		entity := quad.BlankTerm(fmt.Sprintf("row%d", i+1))
		out = append(out, quad.Quad{
			Subject:   entity,
			Predicate: quad.IRITerm(quad.RDFType),
			Object:    quad.IRITerm(entityClassIRI),
			Graph:     quad.DefaultGraph,
		})
		for col, value := range row {
			if col >= len(columns) {
				break
			}
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			predicate := quad.IRITerm(baseIRI + columns[col])
			literal := quad.TypedLiteral(value, detectLiteralType(value))
			out = append(out, quad.Quad{Subject: entity, Predicate: predicate, Object: literal, Graph: quad.DefaultGraph})
		}
	}
	return out, nil
}
