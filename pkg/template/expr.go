package template

import (
	"strconv"
	"strings"
)

// Expr is a parsed `{{ }}`/condition expression: a value path or
// literal, followed by zero or more `| filter(args)` stages.
type Expr struct {
	Path    []string // dotted path segments; nil if Literal is set
	Literal any      // string, float64, bool, or nil
	IsLit   bool
	Filters []filterCall
}

type filterCall struct {
	Name string
	Args []Expr
}

type exprParser struct {
	src string
	pos int
}

func parseExpr(src string) (Expr, error) {
	p := &exprParser{src: src}
	p.skipSpace()
	e, err := p.parsePrimary()
	if err != nil {
		return Expr{}, err
	}
	for {
		p.skipSpace()
		if !p.consume('|') {
			break
		}
		p.skipSpace()
		fc, err := p.parseFilterCall()
		if err != nil {
			return Expr{}, err
		}
		e.Filters = append(e.Filters, fc)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return Expr{}, &SyntaxError{Reason: "unexpected trailing content in expression: " + p.src[p.pos:], Pos: p.pos}
	}
	return e, nil
}

// parseExprPrefix parses a leading expression and returns it along
// with the remainder of the string (used by `{% if %}`/`{% for %}`
// tags that have trailing keywords after the expression).
func parseExprPrefix(src string) (Expr, string, error) {
	p := &exprParser{src: src}
	p.skipSpace()
	e, err := p.parsePrimary()
	if err != nil {
		return Expr{}, "", err
	}
	for {
		p.skipSpace()
		save := p.pos
		if !p.consume('|') {
			p.pos = save
			break
		}
		p.skipSpace()
		fc, err := p.parseFilterCall()
		if err != nil {
			return Expr{}, "", err
		}
		e.Filters = append(e.Filters, fc)
	}
	return e, p.src[p.pos:], nil
}

func (p *exprParser) parsePrimary() (Expr, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return Expr{}, &SyntaxError{Reason: "expected expression", Pos: p.pos}
	}
	c := p.src[p.pos]
	switch {
	case c == '"' || c == '\'':
		s, err := p.parseString(c)
		if err != nil {
			return Expr{}, err
		}
		return Expr{Literal: s, IsLit: true}, nil
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	default:
		return p.parsePath()
	}
}

func (p *exprParser) parseString(quote byte) (string, error) {
	p.pos++ // opening quote
	var sb strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == quote {
			p.pos++
			return sb.String(), nil
		}
		if c == '\\' && p.pos+1 < len(p.src) {
			p.pos++
			sb.WriteByte(p.src[p.pos])
			p.pos++
			continue
		}
		sb.WriteByte(c)
		p.pos++
	}
	return "", &SyntaxError{Reason: "unterminated string literal", Pos: p.pos}
}

func (p *exprParser) parseNumber() (Expr, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) && (isDigit(p.src[p.pos]) || p.src[p.pos] == '.') {
		p.pos++
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return Expr{}, &SyntaxError{Reason: "invalid number literal", Pos: start}
	}
	return Expr{Literal: f, IsLit: true}, nil
}

func (p *exprParser) parsePath() (Expr, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return Expr{}, &SyntaxError{Reason: "expected identifier", Pos: start}
	}
	ident := p.src[start:p.pos]
	switch ident {
	case "true":
		return Expr{Literal: true, IsLit: true}, nil
	case "false":
		return Expr{Literal: false, IsLit: true}, nil
	case "now":
		return Expr{Literal: "now", IsLit: true}, nil
	}
	path := []string{ident}
	for p.pos < len(p.src) && p.src[p.pos] == '.' {
		p.pos++
		segStart := p.pos
		for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
			p.pos++
		}
		if p.pos == segStart {
			return Expr{}, &SyntaxError{Reason: "expected identifier after '.'", Pos: segStart}
		}
		path = append(path, p.src[segStart:p.pos])
	}
	return Expr{Path: path}, nil
}

func (p *exprParser) parseFilterCall() (filterCall, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentChar(p.src[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return filterCall{}, &SyntaxError{Reason: "expected filter name", Pos: start}
	}
	fc := filterCall{Name: p.src[start:p.pos]}
	p.skipSpace()
	if !p.consume('(') {
		return fc, nil
	}
	p.skipSpace()
	if p.consume(')') {
		return fc, nil
	}
	for {
		p.skipSpace()
		arg, err := p.parsePrimary()
		if err != nil {
			return filterCall{}, err
		}
		fc.Args = append(fc.Args, arg)
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(')') {
			break
		}
		return filterCall{}, &SyntaxError{Reason: "expected ',' or ')' in filter arguments", Pos: p.pos}
	}
	return fc, nil
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || isDigit(c)
}
