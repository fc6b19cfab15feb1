package template

import (
	"fmt"
	"strings"
)

// Vars is the variable context a template renders against. Values are
// the usual JSON-ish shapes: string, float64, bool, []any,
// map[string]any, or nil.
type Vars map[string]any

func (v Vars) clone() Vars {
	out := make(Vars, len(v)+4)
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Render walks a parsed Template against vars and produces the
// rendered output body.
func Render(tpl *Template, vars Vars) (string, error) {
	var sb strings.Builder
	if err := renderNodes(&sb, tpl.nodes, vars); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func renderNodes(sb *strings.Builder, nodes []Node, vars Vars) error {
	for _, n := range nodes {
		if err := renderNode(sb, n, vars); err != nil {
			return err
		}
	}
	return nil
}

func renderNode(sb *strings.Builder, n Node, vars Vars) error {
	switch t := n.(type) {
	case textNode:
		sb.WriteString(t.text)
		return nil
	case outputNode:
		v, err := evalExpr(t.expr, vars)
		if err != nil {
			return err
		}
		sb.WriteString(toStr(v))
		return nil
	case ifNode:
		ok, err := evalCondition(t.cond, vars)
		if err != nil {
			return err
		}
		if ok {
			return renderNodes(sb, t.then, vars)
		}
		return renderNodes(sb, t.els, vars)
	case forNode:
		listVal, err := evalExpr(t.list, vars)
		if err != nil {
			return err
		}
		items := toSlice(listVal)
		scope := vars.clone()
		for i, item := range items {
			scope[t.varName] = item
			scope["loop"] = map[string]any{
				"index":  float64(i),
				"index1": float64(i + 1),
				"first":  i == 0,
				"last":   i == len(items)-1,
			}
			if err := renderNodes(sb, t.body, scope); err != nil {
				return err
			}
		}
		return nil
	case setNode:
		v, err := evalExpr(t.expr, vars)
		if err != nil {
			return err
		}
		vars[t.varName] = v
		return nil
	default:
		return &SyntaxError{Reason: fmt.Sprintf("unknown node type %T", n)}
	}
}

func evalExpr(e Expr, vars Vars) (any, error) {
	var v any
	if e.IsLit {
		v = e.Literal
	} else {
		v = resolvePath(e.Path, vars)
	}
	return applyFilters(v, e.Filters, vars)
}

func resolvePath(path []string, vars Vars) any {
	if len(path) == 0 {
		return nil
	}
	val, present := vars[path[0]]
	if !present {
		return nil
	}
	var cur any = val
	for _, seg := range path[1:] {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[seg]
		case Vars:
			cur = m[seg]
		default:
			return nil
		}
	}
	return cur
}

func evalCondition(c Condition, vars Vars) (bool, error) {
	result, err := evalConditionTerm(c, vars)
	if err != nil {
		return false, err
	}
	if c.Next == nil {
		return result, nil
	}
	rhs, err := evalCondition(*c.Next, vars)
	if err != nil {
		return false, err
	}
	switch c.NextOp {
	case "and":
		return result && rhs, nil
	case "or":
		return result || rhs, nil
	default:
		return result, nil
	}
}

func evalConditionTerm(c Condition, vars Vars) (bool, error) {
	lv, err := evalExpr(c.Left, vars)
	if err != nil {
		return false, err
	}
	var result bool
	if c.Op == "" {
		result = toBool(lv)
	} else {
		rv, err := evalExpr(c.Right, vars)
		if err != nil {
			return false, err
		}
		result, err = compareValues(c.Op, lv, rv)
		if err != nil {
			return false, err
		}
	}
	if c.Negate {
		result = !result
	}
	return result, nil
}

func compareValues(op string, lv, rv any) (bool, error) {
	switch op {
	case "==":
		return valuesEqual(lv, rv), nil
	case "!=":
		return !valuesEqual(lv, rv), nil
	case ">", ">=", "<", "<=":
		lf, rf := toFloat(lv), toFloat(rv)
		switch op {
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		}
	}
	return false, &SyntaxError{Reason: "unknown comparison operator: " + op}
}

func valuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	switch a.(type) {
	case string, bool:
		return a == b
	default:
		return toFloat(a) == toFloat(b)
	}
}
