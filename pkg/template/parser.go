package template

import "strings"

// ParseTemplate parses the body (front-matter already stripped) into
// a renderable Template.
func ParseTemplate(src string) (*Template, error) {
	segs, err := splitSegments(src)
	if err != nil {
		return nil, err
	}
	p := &bodyParser{segs: segs}
	nodes, err := p.parseNodes("")
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.segs) {
		return nil, &SyntaxError{Reason: "unexpected trailing tag"}
	}
	return &Template{nodes: nodes}, nil
}

type bodyParser struct {
	segs []segment
	pos  int
}

// parseNodes consumes segments until it sees a tag matching one of
// stopWords (or EOF when stopWords is empty), returning the sibling
// nodes collected along the way. The terminating tag itself is left
// for the caller.
func (p *bodyParser) parseNodes(stopWords string) ([]Node, error) {
	var nodes []Node
	for p.pos < len(p.segs) {
		seg := p.segs[p.pos]
		switch seg.kind {
		case segText:
			nodes = append(nodes, textNode{text: seg.text})
			p.pos++
		case segOutput:
			e, err := parseExpr(seg.text)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, outputNode{expr: e})
			p.pos++
		case segTag:
			word := firstWord(seg.text)
			if stopWords != "" && containsWord(stopWords, word) {
				return nodes, nil
			}
			switch word {
			case "if":
				n, err := p.parseIf(seg.text)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			case "for":
				n, err := p.parseFor(seg.text)
				if err != nil {
					return nil, err
				}
				nodes = append(nodes, n)
			case "set":
				n, err := p.parseSet(seg.text)
				if err != nil {
					return nil, err
				}
				p.pos++
				nodes = append(nodes, n)
			default:
				return nil, &SyntaxError{Reason: "unexpected tag: {% " + seg.text + " %}", Pos: seg.pos}
			}
		}
	}
	return nodes, nil
}

func (p *bodyParser) parseIf(tagText string) (Node, error) {
	condSrc := strings.TrimSpace(strings.TrimPrefix(tagText, "if"))
	cond, err := parseCondition(condSrc)
	if err != nil {
		return nil, err
	}
	p.pos++ // consume "if" tag

	thenNodes, err := p.parseNodes("else endif")
	if err != nil {
		return nil, err
	}

	var elseNodes []Node
	if p.pos < len(p.segs) && firstWord(p.segs[p.pos].text) == "else" {
		p.pos++ // consume "else"
		elseNodes, err = p.parseNodes("endif")
		if err != nil {
			return nil, err
		}
	}

	if p.pos >= len(p.segs) || firstWord(p.segs[p.pos].text) != "endif" {
		return nil, &SyntaxError{Reason: "missing {% endif %}"}
	}
	p.pos++ // consume "endif"

	return ifNode{cond: cond, then: thenNodes, els: elseNodes}, nil
}

func (p *bodyParser) parseFor(tagText string) (Node, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(tagText, "for"))
	parts := strings.SplitN(rest, " in ", 2)
	if len(parts) != 2 {
		return nil, &SyntaxError{Reason: "malformed for tag, expected 'for x in xs'"}
	}
	varName := strings.TrimSpace(parts[0])
	listExpr, err := parseExpr(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	p.pos++ // consume "for" tag

	body, err := p.parseNodes("endfor")
	if err != nil {
		return nil, err
	}
	if p.pos >= len(p.segs) || firstWord(p.segs[p.pos].text) != "endfor" {
		return nil, &SyntaxError{Reason: "missing {% endfor %}"}
	}
	p.pos++ // consume "endfor"

	return forNode{varName: varName, list: listExpr, body: body}, nil
}

func (p *bodyParser) parseSet(tagText string) (Node, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(tagText, "set"))
	idx := strings.IndexByte(rest, '=')
	if idx < 0 {
		return nil, &SyntaxError{Reason: "malformed set tag, expected 'set x = expr'"}
	}
	varName := strings.TrimSpace(rest[:idx])
	e, err := parseExpr(strings.TrimSpace(rest[idx+1:]))
	if err != nil {
		return nil, err
	}
	return setNode{varName: varName, expr: e}, nil
}

func firstWord(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, ' '); idx >= 0 {
		return s[:idx]
	}
	return s
}

func containsWord(words, word string) bool {
	for _, w := range strings.Fields(words) {
		if w == word {
			return true
		}
	}
	return false
}
