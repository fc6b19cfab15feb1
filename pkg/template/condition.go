package template

import "strings"

// Condition is the boolean-expression grammar used by `when` and
// `{% if %}`: a chain of comparisons joined by `and`/`or`, with
// optional leading `not`.
type Condition struct {
	Negate  bool
	Left    Expr
	Op      string // "", "==", "!=", ">", ">=", "<", "<="
	Right   Expr
	Next    *Condition
	NextOp  string // "and" | "or"
}

func parseCondition(src string) (Condition, error) {
	c, rest, err := parseConditionTerm(src)
	if err != nil {
		return Condition{}, err
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return c, nil
	}
	for _, kw := range []string{"and", "or"} {
		if strings.HasPrefix(rest, kw+" ") || rest == kw {
			next, err := parseCondition(strings.TrimSpace(rest[len(kw):]))
			if err != nil {
				return Condition{}, err
			}
			c.NextOp = kw
			c.Next = &next
			return c, nil
		}
	}
	return Condition{}, &SyntaxError{Reason: "unexpected trailing content in condition: " + rest}
}

func parseConditionTerm(src string) (Condition, string, error) {
	src = strings.TrimSpace(src)
	negate := false
	if strings.HasPrefix(src, "not ") {
		negate = true
		src = strings.TrimSpace(src[4:])
	}

	left, rest, err := parseExprPrefix(src)
	if err != nil {
		return Condition{}, "", err
	}
	rest = strings.TrimSpace(rest)

	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<"} {
		if strings.HasPrefix(rest, op) {
			right, rest2, err := parseExprPrefix(strings.TrimSpace(rest[len(op):]))
			if err != nil {
				return Condition{}, "", err
			}
			return Condition{Negate: negate, Left: left, Op: op, Right: right}, rest2, nil
		}
	}
	return Condition{Negate: negate, Left: left}, rest, nil
}
