package rdf

import (
	"strings"

	"github.com/gitvan-dev/gitvan/pkg/quad"
)

// ParseNQuads parses an N-Quads document: one quad per line, each term
// written out in full (no prefixes, no blank-node property lists). A
// fourth term on the line names the graph; its absence means DefaultGraph.
func ParseNQuads(src, file string) ([]quad.Quad, error) {
	var quads []quad.Quad
	lines := strings.Split(src, "\n")
	for i, raw := range lines {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		q, err := parseNQuadLine(line, file, lineNo)
		if err != nil {
			return nil, err
		}
		quads = append(quads, q)
	}
	return quads, nil
}

func parseNQuadLine(line, file string, lineNo int) (quad.Quad, error) {
	l := newLexer(line, file)
	l.line = lineNo
	var terms []quad.Term
	var tok token
	var err error
	for {
		tok, err = l.next()
		if err != nil {
			return quad.Quad{}, err
		}
		if tok.kind == tokEOF {
			break
		}
		if tok.kind == tokDot {
			break
		}
		term, terr := nquadTerm(l, tok)
		if terr != nil {
			return quad.Quad{}, terr
		}
		terms = append(terms, term)
	}
	if len(terms) != 3 && len(terms) != 4 {
		return quad.Quad{}, &SyntaxError{File: file, Line: lineNo, Col: 1, Msg: "expected 3 or 4 terms per N-Quads line"}
	}
	q := quad.Quad{Subject: terms[0], Predicate: terms[1], Object: terms[2], Graph: quad.DefaultGraph}
	if len(terms) == 4 {
		if !terms[3].IsIRI() {
			return quad.Quad{}, &SyntaxError{File: file, Line: lineNo, Col: 1, Msg: "graph term must be an IRI"}
		}
		q.Graph = terms[3].Value
	}
	return q, nil
}

// nquadTerm converts a lexed token into a term, pulling any following
// language tag or datatype marker for string literals.
func nquadTerm(l *lexer, tok token) (quad.Term, error) {
	switch tok.kind {
	case tokIRIRef:
		return quad.IRITerm(tok.text), nil
	case tokBlank:
		return quad.BlankTerm(tok.text), nil
	case tokString:
		next, err := l.next()
		if err != nil {
			return quad.Term{}, err
		}
		switch next.kind {
		case tokLangTag:
			return quad.LangLiteral(tok.text, next.text), nil
		case tokDatatypeMarker:
			dtTok, err := l.next()
			if err != nil {
				return quad.Term{}, err
			}
			if dtTok.kind != tokIRIRef {
				return quad.Term{}, l.errf("expected IRI datatype after '^^'")
			}
			return quad.TypedLiteral(tok.text, dtTok.text), nil
		default:
			// Not a literal suffix: push back by re-lexing is unnecessary
			// here because N-Quads terms are always followed by whitespace
			// and this token belongs to the next term; the caller's loop
			// already consumed it, so re-inject it.
			l.pending = &next
			return quad.PlainLiteral(tok.text), nil
		}
	default:
		return quad.Term{}, l.errf("unexpected term token")
	}
}

// WriteNQuads serializes quads to canonical N-Quads text, one line per quad.
func WriteNQuads(quads []quad.Quad) string {
	var sb strings.Builder
	for _, q := range quads {
		sb.WriteString(termToNQuad(q.Subject))
		sb.WriteByte(' ')
		sb.WriteString(termToNQuad(q.Predicate))
		sb.WriteByte(' ')
		sb.WriteString(termToNQuad(q.Object))
		if q.Graph != quad.DefaultGraph {
			sb.WriteByte(' ')
			sb.WriteString("<" + q.Graph + ">")
		}
		sb.WriteString(" .\n")
	}
	return sb.String()
}

func termToNQuad(t quad.Term) string {
	switch t.Kind {
	case quad.IRI:
		return "<" + t.Value + ">"
	case quad.Blank:
		return "_:" + t.Value
	default:
		lit := "\"" + escapeNQuadString(t.Value) + "\""
		if t.Lang != "" {
			return lit + "@" + t.Lang
		}
		if t.Datatype != "" && t.Datatype != quad.XSDString {
			return lit + "^^<" + t.Datatype + ">"
		}
		return lit
	}
}

func escapeNQuadString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}
