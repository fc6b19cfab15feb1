package sparql

import (
	"strconv"
	"strings"

	"github.com/gitvan-dev/gitvan/pkg/quad"
)

// Parse compiles SPARQL source text into a Query.
func Parse(src string) (*Query, error) {
	p := &parser{lex: newSparqlLexer(src), prefixes: make(map[string]string)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p.parseQuery()
}

type parser struct {
	lex      *sparqlLexer
	tok      sparqlToken
	prefixes map[string]string
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errf(msg string) *QueryError {
	return &QueryError{Reason: msg}
}

func (p *parser) isKeyword(word string) bool {
	return p.tok.kind == tkKeyword && p.tok.text == word
}

func (p *parser) expectKeyword(word string) error {
	if !p.isKeyword(word) {
		return p.errf("expected " + word)
	}
	return p.advance()
}

func (p *parser) parseQuery() (*Query, error) {
	q := &Query{Prefixes: p.prefixes}
	for p.isKeyword("PREFIX") {
		if err := p.parsePrefixDecl(); err != nil {
			return nil, err
		}
	}
	switch {
	case p.isKeyword("SELECT"):
		q.Form = FormSelect
		if err := p.parseSelect(q); err != nil {
			return nil, err
		}
	case p.isKeyword("ASK"):
		q.Form = FormAsk
		if err := p.advance(); err != nil {
			return nil, err
		}
	case p.isKeyword("CONSTRUCT"):
		q.Form = FormConstruct
		if err := p.parseConstruct(q); err != nil {
			return nil, err
		}
	default:
		return nil, p.errf("expected SELECT, ASK, or CONSTRUCT")
	}

	if p.isKeyword("WHERE") {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	group, err := p.parseGroupPattern()
	if err != nil {
		return nil, err
	}
	q.Where = group

	if p.isKeyword("GROUP") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for p.tok.kind == tkVar {
			q.GroupBy = append(q.GroupBy, p.tok.text)
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}

	if p.isKeyword("ORDER") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			desc := false
			if p.isKeyword("ASC") {
				if err := p.advance(); err != nil {
					return nil, err
				}
			} else if p.isKeyword("DESC") {
				desc = true
				if err := p.advance(); err != nil {
					return nil, err
				}
			}
			if p.tok.kind != tkVar {
				break
			}
			q.OrderBy = append(q.OrderBy, OrderTerm{Var: p.tok.text, Desc: desc})
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}

	if p.isKeyword("LIMIT") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}
	if p.isKeyword("OFFSET") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		n, err := p.parseIntLiteral()
		if err != nil {
			return nil, err
		}
		q.Offset = &n
	}
	return q, nil
}

func (p *parser) parseIntLiteral() (int, error) {
	if p.tok.kind != tkNumber {
		return 0, p.errf("expected integer")
	}
	n, err := strconv.Atoi(p.tok.text)
	if err != nil {
		return 0, p.errf("invalid integer literal")
	}
	return n, p.advance()
}

func (p *parser) parsePrefixDecl() error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind != tkPNameNS {
		return p.errf("expected prefix name in PREFIX declaration")
	}
	ns := p.tok.text
	if err := p.advance(); err != nil {
		return err
	}
	if p.tok.kind != tkIRIRef {
		return p.errf("expected IRI reference in PREFIX declaration")
	}
	p.prefixes[ns] = p.tok.text
	return p.advance()
}

func (p *parser) resolvePName(text string) (string, error) {
	ns, local := text, ""
	if idx := strings.IndexByte(text, ':'); idx >= 0 {
		ns, local = text[:idx], text[idx+1:]
	}
	base, ok := p.prefixes[ns]
	if !ok {
		return "", p.errf("undefined prefix '" + ns + "'")
	}
	return base + local, nil
}

func (p *parser) parseSelect(q *Query) error {
	if err := p.advance(); err != nil {
		return err
	}
	if p.isKeyword("DISTINCT") {
		q.Distinct = true
		if err := p.advance(); err != nil {
			return err
		}
	}
	if p.tok.kind == tkStar {
		q.SelectAll = true
		return p.advance()
	}
	for p.tok.kind == tkVar || p.tok.kind == tkLParen {
		if p.tok.kind == tkVar {
			q.SelectVars = append(q.SelectVars, SelectVar{Var: p.tok.text})
			if err := p.advance(); err != nil {
				return err
			}
			continue
		}
		sv, err := p.parseAggSelectVar()
		if err != nil {
			return err
		}
		q.SelectVars = append(q.SelectVars, sv)
	}
	return nil
}

func (p *parser) parseAggSelectVar() (SelectVar, error) {
	if err := p.advance(); err != nil { // consume '('
		return SelectVar{}, err
	}
	if p.tok.kind != tkIdent {
		return SelectVar{}, p.errf("expected aggregate function name")
	}
	fn := strings.ToUpper(p.tok.text)
	if err := p.advance(); err != nil {
		return SelectVar{}, err
	}
	agg := &AggExpr{Func: fn}
	if _, err := p.expect(tkLParen); err != nil {
		return SelectVar{}, err
	}
	if p.isKeyword("DISTINCT") {
		agg.Distinct = true
		if err := p.advance(); err != nil {
			return SelectVar{}, err
		}
	}
	if p.tok.kind == tkStar {
		if err := p.advance(); err != nil {
			return SelectVar{}, err
		}
	} else if p.tok.kind == tkVar {
		agg.Arg = p.tok.text
		if err := p.advance(); err != nil {
			return SelectVar{}, err
		}
	} else {
		return SelectVar{}, p.errf("expected variable or '*' in aggregate call")
	}
	if _, err := p.expect(tkRParen); err != nil {
		return SelectVar{}, err
	}
	if err := p.expectKeyword("AS"); err != nil {
		return SelectVar{}, err
	}
	if p.tok.kind != tkVar {
		return SelectVar{}, p.errf("expected variable after AS")
	}
	out := p.tok.text
	if err := p.advance(); err != nil {
		return SelectVar{}, err
	}
	if _, err := p.expect(tkRParen); err != nil {
		return SelectVar{}, err
	}
	return SelectVar{Var: out, Agg: agg}, nil
}

func (p *parser) expect(k tokKind) (sparqlToken, error) {
	if p.tok.kind != k {
		return sparqlToken{}, p.errf("unexpected token in query")
	}
	t := p.tok
	return t, p.advance()
}

func (p *parser) parseConstruct(q *Query) error {
	if err := p.advance(); err != nil {
		return err
	}
	if _, err := p.expect(tkLBrace); err != nil {
		return err
	}
	for p.tok.kind != tkRBrace {
		tp, err := p.parseTriplePatternsOne()
		if err != nil {
			return err
		}
		q.ConstructTemplate = append(q.ConstructTemplate, tp...)
	}
	return p.advance() // consume '}'
}

// parseGroupPattern parses a `{ ... }` group graph pattern.
func (p *parser) parseGroupPattern() (*GroupPattern, error) {
	if _, err := p.expect(tkLBrace); err != nil {
		return nil, err
	}
	g := &GroupPattern{}
	for p.tok.kind != tkRBrace {
		switch {
		case p.isKeyword("OPTIONAL"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			inner, err := p.parseGroupPattern()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, OptionalElement{Group: inner})
		case p.isKeyword("FILTER"):
			if err := p.advance(); err != nil {
				return nil, err
			}
			expr, err := p.parseFilterExpr()
			if err != nil {
				return nil, err
			}
			g.Elements = append(g.Elements, FilterElement{Expr: expr})
		case p.tok.kind == tkLBrace:
			left, err := p.parseGroupPattern()
			if err != nil {
				return nil, err
			}
			if p.isKeyword("UNION") {
				if err := p.advance(); err != nil {
					return nil, err
				}
				right, err := p.parseGroupPattern()
				if err != nil {
					return nil, err
				}
				g.Elements = append(g.Elements, UnionElement{Left: left, Right: right})
			} else {
				g.Elements = append(g.Elements, SubGroupElement{Group: left})
			}
		case p.tok.kind == tkDot:
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			tps, err := p.parseTriplePatternsOne()
			if err != nil {
				return nil, err
			}
			for _, tp := range tps {
				g.Elements = append(g.Elements, TripleElement{Pattern: tp})
			}
		}
	}
	return g, p.advance() // consume '}'
}

// parseTriplePatternsOne parses one subject with its predicate-object
// list (and any trailing '.'), expanding ';' and ',' into multiple
// TriplePatterns sharing the subject/predicate as appropriate.
func (p *parser) parseTriplePatternsOne() ([]TriplePattern, error) {
	subject, err := p.parseNode()
	if err != nil {
		return nil, err
	}
	var out []TriplePattern
	for {
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}
		for {
			obj, err := p.parseNode()
			if err != nil {
				return nil, err
			}
			out = append(out, TriplePattern{Subject: subject, Predicate: pred, Object: obj})
			if p.tok.kind != tkComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
		if p.tok.kind != tkSemicolon {
			break
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tkDot || p.tok.kind == tkRBrace {
			break
		}
	}
	if p.tok.kind == tkDot {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *parser) parseNode() (Node, error) {
	switch p.tok.kind {
	case tkVar:
		v := p.tok.text
		return Node{Var: v}, p.advance()
	case tkIRIRef:
		v := p.tok.text
		return Node{Term: quad.IRITerm(v)}, p.advance()
	case tkPNameLN, tkPNameNS:
		iri, err := p.resolvePName(p.tok.text)
		if err != nil {
			return Node{}, err
		}
		return Node{Term: quad.IRITerm(iri)}, p.advance()
	case tkString:
		return p.parseLiteralNode()
	case tkNumber:
		lex := p.tok.text
		dt := quad.XSDInteger
		if strings.Contains(lex, ".") {
			dt = quad.XSDDecimal
		}
		return Node{Term: quad.TypedLiteral(lex, dt)}, p.advance()
	case tkKeyword:
		if p.tok.text == "TRUE" || p.tok.text == "FALSE" {
			v := strings.ToLower(p.tok.text)
			return Node{Term: quad.TypedLiteral(v, quad.XSDBoolean)}, p.advance()
		}
		return Node{}, p.errf("unexpected keyword in node position")
	default:
		return Node{}, p.errf("expected a subject or object term")
	}
}

func (p *parser) parseLiteralNode() (Node, error) {
	lex := p.tok.text
	if err := p.advance(); err != nil {
		return Node{}, err
	}
	switch p.tok.kind {
	case tkLangTag:
		lang := p.tok.text
		return Node{Term: quad.LangLiteral(lex, lang)}, p.advance()
	case tkDatatypeMarker:
		if err := p.advance(); err != nil {
			return Node{}, err
		}
		dt, err := p.parseNode()
		if err != nil {
			return Node{}, err
		}
		return Node{Term: quad.TypedLiteral(lex, dt.Term.Value)}, nil
	default:
		return Node{Term: quad.PlainLiteral(lex)}, nil
	}
}

// parsePredicate parses a predicate position: the `a` shorthand, a bound
// variable, or a (possibly compound) property path expression.
func (p *parser) parsePredicate() (PredicateSpec, error) {
	if p.tok.kind == tkA {
		if err := p.advance(); err != nil {
			return PredicateSpec{}, err
		}
		return PredicateSpec{Path: IRIPath{IRI: quad.RDFType}}, nil
	}
	if p.tok.kind == tkVar {
		v := p.tok.text
		return PredicateSpec{Var: v}, p.advance()
	}
	path, err := p.parsePathAlt()
	if err != nil {
		return PredicateSpec{}, err
	}
	return PredicateSpec{Path: path}, nil
}

func (p *parser) parsePathAlt() (Path, error) {
	left, err := p.parsePathSeq()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tkPipe {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePathSeq()
		if err != nil {
			return nil, err
		}
		left = AltPath{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePathSeq() (Path, error) {
	left, err := p.parsePathPostfix()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tkSlash {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePathPostfix()
		if err != nil {
			return nil, err
		}
		left = SeqPath{Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parsePathPostfix() (Path, error) {
	base, err := p.parsePathPrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.tok.kind {
		case tkStar:
			base = ZeroOrMorePath{Inner: base}
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tkPlus:
			base = OneOrMorePath{Inner: base}
			if err := p.advance(); err != nil {
				return nil, err
			}
		case tkQuestion:
			base = ZeroOrOnePath{Inner: base}
			if err := p.advance(); err != nil {
				return nil, err
			}
		default:
			return base, nil
		}
	}
}

func (p *parser) parsePathPrimary() (Path, error) {
	switch p.tok.kind {
	case tkIRIRef:
		v := p.tok.text
		return IRIPath{IRI: v}, p.advance()
	case tkPNameLN, tkPNameNS:
		iri, err := p.resolvePName(p.tok.text)
		if err != nil {
			return nil, err
		}
		return IRIPath{IRI: iri}, p.advance()
	case tkLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parsePathAlt()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tkRParen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, p.errf("expected a predicate IRI or property path")
	}
}

// --- FILTER expression grammar (precedence: || < && < comparison < additive < unary < primary) ---

func (p *parser) parseFilterExpr() (Expr, error) {
	if _, err := p.expect(tkLParen); err != nil {
		return nil, err
	}
	expr, err := p.parseOrExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tkRParen); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *parser) parseOrExpr() (Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tkOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "||", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAndExpr() (Expr, error) {
	left, err := p.parseComparisonExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tkAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparisonExpr()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: "&&", Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[tokKind]string{
	tkEq: "=", tkNe: "!=", tkLt: "<", tkLe: "<=", tkGt: ">", tkGe: ">=",
}

func (p *parser) parseComparisonExpr() (Expr, error) {
	left, err := p.parseAdditiveExpr()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.tok.kind]; ok {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAdditiveExpr()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

func (p *parser) parseAdditiveExpr() (Expr, error) {
	left, err := p.parseMultiplicativeExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tkPlus || p.tok.kind == tkMinus {
		op := "+"
		if p.tok.kind == tkMinus {
			op = "-"
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseMultiplicativeExpr()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicativeExpr() (Expr, error) {
	left, err := p.parseUnaryExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tkStar || p.tok.kind == tkSlash {
		op := "*"
		if p.tok.kind == tkSlash {
			op = "/"
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnaryExpr() (Expr, error) {
	if p.tok.kind == tkNot {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "!", Operand: operand}, nil
	}
	if p.tok.kind == tkMinus {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnaryExpr()
		if err != nil {
			return nil, err
		}
		return UnaryExpr{Op: "-", Operand: operand}, nil
	}
	return p.parsePrimaryExpr()
}

func (p *parser) parsePrimaryExpr() (Expr, error) {
	switch p.tok.kind {
	case tkLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOrExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tkRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tkVar:
		v := p.tok.text
		return VarExpr{Name: v}, p.advance()
	case tkNumber:
		lex := p.tok.text
		dt := quad.XSDInteger
		if strings.Contains(lex, ".") {
			dt = quad.XSDDecimal
		}
		return LiteralExpr{Term: quad.TypedLiteral(lex, dt)}, p.advance()
	case tkString:
		lex := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tkLangTag {
			lang := p.tok.text
			return LiteralExpr{Term: quad.LangLiteral(lex, lang)}, p.advance()
		}
		return LiteralExpr{Term: quad.PlainLiteral(lex)}, nil
	case tkKeyword:
		if p.tok.text == "TRUE" || p.tok.text == "FALSE" {
			v := strings.ToLower(p.tok.text)
			return LiteralExpr{Term: quad.TypedLiteral(v, quad.XSDBoolean)}, p.advance()
		}
		return nil, p.errf("unexpected keyword in expression")
	case tkIRIRef:
		v := p.tok.text
		return LiteralExpr{Term: quad.IRITerm(v)}, p.advance()
	case tkPNameLN, tkPNameNS:
		iri, err := p.resolvePName(p.tok.text)
		if err != nil {
			return nil, err
		}
		return LiteralExpr{Term: quad.IRITerm(iri)}, p.advance()
	case tkIdent:
		return p.parseCallExpr()
	default:
		return nil, p.errf("expected an expression")
	}
}

func (p *parser) parseCallExpr() (Expr, error) {
	fn := strings.ToLower(p.tok.text)
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tkLParen); err != nil {
		return nil, err
	}
	var args []Expr
	if p.tok.kind != tkRParen {
		for {
			arg, err := p.parseOrExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok.kind != tkComma {
				break
			}
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(tkRParen); err != nil {
		return nil, err
	}
	return CallExpr{Func: fn, Args: args}, nil
}
