// Package rdf implements the Turtle and N-Quads parsers and the CSV-to-RDF
// adapter used to populate the graph store (spec §4.1).
package rdf

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/quad"
)

// blankSeq numbers blank nodes across every parse in the process, so
// labels produced by separate ParseTurtle calls never coincide.
var blankSeq atomic.Uint64

// ParseTurtle parses a Turtle document into a slice of quads. Blank node
// labels are scoped to this single parse: re-parsing the same source text
// produces fresh, unrelated blank nodes, matching the store's ingest
// invariant that blank-node identity never spans separate ingests.
func ParseTurtle(src, file string) ([]quad.Quad, error) {
	p := &turtleParser{
		lex:     newLexer(src, file),
		prefix:  make(map[string]string),
		blanks:  make(map[string]string),
		file:    file,
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseDocument()
}

type turtleParser struct {
	lex        *lexer
	tok        token
	prefix     map[string]string
	base       string
	blanks     map[string]string
	anonCount  int
	file       string
	quads      []quad.Quad
}

func (p *turtleParser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *turtleParser) errf(msg string) *SyntaxError {
	return &SyntaxError{File: p.file, Line: p.tok.line, Col: p.tok.col, Msg: msg}
}

func (p *turtleParser) expect(k tokenKind, what string) (token, error) {
	if p.tok.kind != k {
		return token{}, p.errf("expected " + what)
	}
	t := p.tok
	if err := p.advance(); err != nil {
		return token{}, err
	}
	return t, nil
}

func (p *turtleParser) parseDocument() ([]quad.Quad, error) {
	for p.tok.kind != tokEOF {
		if err := p.parseStatement(); err != nil {
			return nil, err
		}
	}
	return p.quads, nil
}

func (p *turtleParser) parseStatement() error {
	switch p.tok.kind {
	case tokAtPrefix:
		return p.parsePrefixDirective()
	case tokAtBase:
		return p.parseBaseDirective()
	default:
		return p.parseTriples()
	}
}

func (p *turtleParser) parsePrefixDirective() error {
	if err := p.advance(); err != nil {
		return err
	}
	var ns string
	switch p.tok.kind {
	case tokPNameNS:
		ns = p.tok.text
	default:
		return p.errf("expected prefix name before ':' in @prefix directive")
	}
	if err := p.advance(); err != nil {
		return err
	}
	iriTok, err := p.expect(tokIRIRef, "IRI reference in @prefix directive")
	if err != nil {
		return err
	}
	p.prefix[ns] = p.resolveIRI(iriTok.text)
	_, err = p.expect(tokDot, "'.' terminating @prefix directive")
	return err
}

func (p *turtleParser) parseBaseDirective() error {
	if err := p.advance(); err != nil {
		return err
	}
	iriTok, err := p.expect(tokIRIRef, "IRI reference in @base directive")
	if err != nil {
		return err
	}
	p.base = p.resolveIRI(iriTok.text)
	_, err = p.expect(tokDot, "'.' terminating @base directive")
	return err
}

func (p *turtleParser) resolveIRI(iri string) string {
	if p.base == "" || strings.Contains(iri, "://") {
		return iri
	}
	return p.base + iri
}

func (p *turtleParser) parseTriples() error {
	subject, err := p.parseSubject()
	if err != nil {
		return err
	}
	if err := p.parsePredicateObjectList(subject); err != nil {
		return err
	}
	_, err = p.expect(tokDot, "'.' terminating triples")
	return err
}

func (p *turtleParser) parseSubject() (quad.Term, error) {
	if p.tok.kind == tokLBracket {
		return p.parseBlankNodePropertyList()
	}
	return p.parseTermAsNode()
}

func (p *turtleParser) parseTermAsNode() (quad.Term, error) {
	switch p.tok.kind {
	case tokIRIRef:
		v := p.resolveIRI(p.tok.text)
		if err := p.advance(); err != nil {
			return quad.Term{}, err
		}
		return quad.IRITerm(v), nil
	case tokPNameLN, tokPNameNS:
		v, err := p.resolvePName(p.tok.text)
		if err != nil {
			return quad.Term{}, err
		}
		if err := p.advance(); err != nil {
			return quad.Term{}, err
		}
		return quad.IRITerm(v), nil
	case tokBlank:
		label := p.localBlank(p.tok.text)
		if err := p.advance(); err != nil {
			return quad.Term{}, err
		}
		return quad.BlankTerm(label), nil
	default:
		return quad.Term{}, p.errf("expected IRI, prefixed name, or blank node")
	}
}

func (p *turtleParser) resolvePName(text string) (string, error) {
	ns, local := text, ""
	if idx := strings.IndexByte(text, ':'); idx >= 0 {
		ns, local = text[:idx], text[idx+1:]
	}
	base, ok := p.prefix[ns]
	if !ok {
		return "", p.errf("undefined prefix '" + ns + "'")
	}
	return base + local, nil
}

func (p *turtleParser) localBlank(label string) string {
	if mapped, ok := p.blanks[label]; ok {
		return mapped
	}
	mapped := "b" + strconv.FormatUint(blankSeq.Add(1), 10) + "_" + label
	p.blanks[label] = mapped
	return mapped
}

func (p *turtleParser) nextAnon() quad.Term {
	return quad.BlankTerm("anon" + strconv.FormatUint(blankSeq.Add(1), 10))
}

// parseBlankNodePropertyList parses "[ ... ]" as an anonymous blank node,
// applying any predicate-object pairs inside the brackets to it.
func (p *turtleParser) parseBlankNodePropertyList() (quad.Term, error) {
	if err := p.advance(); err != nil { // consume '['
		return quad.Term{}, err
	}
	node := p.nextAnon()
	if p.tok.kind == tokRBracket {
		if err := p.advance(); err != nil {
			return quad.Term{}, err
		}
		return node, nil
	}
	if err := p.parsePredicateObjectList(node); err != nil {
		return quad.Term{}, err
	}
	if _, err := p.expect(tokRBracket, "']' closing blank node property list"); err != nil {
		return quad.Term{}, err
	}
	return node, nil
}

func (p *turtleParser) parsePredicateObjectList(subject quad.Term) error {
	for {
		predicate, err := p.parsePredicate()
		if err != nil {
			return err
		}
		if err := p.parseObjectList(subject, predicate); err != nil {
			return err
		}
		if p.tok.kind != tokSemicolon {
			return nil
		}
		if err := p.advance(); err != nil {
			return err
		}
		// Trailing ';' before '.' or ']' is legal; nothing more follows.
		if p.tok.kind == tokDot || p.tok.kind == tokRBracket {
			return nil
		}
	}
}

func (p *turtleParser) parsePredicate() (quad.Term, error) {
	if p.tok.kind == tokA {
		if err := p.advance(); err != nil {
			return quad.Term{}, err
		}
		return quad.IRITerm(quad.RDFType), nil
	}
	return p.parseTermAsNode()
}

func (p *turtleParser) parseObjectList(subject, predicate quad.Term) error {
	for {
		object, err := p.parseObject()
		if err != nil {
			return err
		}
		p.quads = append(p.quads, quad.Quad{Subject: subject, Predicate: predicate, Object: object, Graph: quad.DefaultGraph})
		if p.tok.kind != tokComma {
			return nil
		}
		if err := p.advance(); err != nil {
			return err
		}
	}
}

func (p *turtleParser) parseObject() (quad.Term, error) {
	switch p.tok.kind {
	case tokLBracket:
		return p.parseBlankNodePropertyList()
	case tokString:
		return p.parseLiteral()
	case tokNumber:
		return p.parseNumberLiteral()
	case tokTrue:
		if err := p.advance(); err != nil {
			return quad.Term{}, err
		}
		return quad.TypedLiteral("true", quad.XSDBoolean), nil
	case tokFalse:
		if err := p.advance(); err != nil {
			return quad.Term{}, err
		}
		return quad.TypedLiteral("false", quad.XSDBoolean), nil
	default:
		return p.parseTermAsNode()
	}
}

func (p *turtleParser) parseLiteral() (quad.Term, error) {
	lex := p.tok.text
	if err := p.advance(); err != nil {
		return quad.Term{}, err
	}
	switch p.tok.kind {
	case tokLangTag:
		lang := p.tok.text
		if err := p.advance(); err != nil {
			return quad.Term{}, err
		}
		return quad.LangLiteral(lex, lang), nil
	case tokDatatypeMarker:
		if err := p.advance(); err != nil {
			return quad.Term{}, err
		}
		dt, err := p.parseTermAsNode()
		if err != nil {
			return quad.Term{}, err
		}
		return quad.TypedLiteral(lex, dt.Value), nil
	default:
		return quad.PlainLiteral(lex), nil
	}
}

func (p *turtleParser) parseNumberLiteral() (quad.Term, error) {
	lex := p.tok.text
	if err := p.advance(); err != nil {
		return quad.Term{}, err
	}
	if strings.ContainsAny(lex, ".eE") {
		return quad.TypedLiteral(lex, quad.XSDDecimal), nil
	}
	return quad.TypedLiteral(lex, quad.XSDInteger), nil
}

// detectLiteralType applies the CSV adapter's simple type-detection rules
// (spec §4.1): integer, decimal, boolean, xsd:date (RFC 3339), else
// xsd:string. IngestCSV is its only caller.
func detectLiteralType(value string) (datatype string) {
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return quad.XSDInteger
	}
	if _, err := strconv.ParseFloat(value, 64); err == nil {
		return quad.XSDDecimal
	}
	if value == "true" || value == "false" {
		return quad.XSDBoolean
	}
	if _, err := time.Parse(time.RFC3339, value); err == nil {
		return quad.XSDDate
	}
	if _, err := time.Parse("2006-01-02", value); err == nil {
		return quad.XSDDate
	}
	return quad.XSDString
}
