package sparql

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/gitvan-dev/gitvan/pkg/quad"
)

func toFloat(t quad.Term) (float64, bool) {
	if t.Kind != quad.Literal {
		return 0, false
	}
	if t.Datatype == quad.XSDBoolean {
		if t.Value == "true" {
			return 1, true
		}
		return 0, true
	}
	f, err := strconv.ParseFloat(t.Value, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func numTerm(f float64) quad.Term {
	if f == math.Trunc(f) && !math.IsInf(f, 0) {
		return quad.TypedLiteral(strconv.FormatInt(int64(f), 10), quad.XSDInteger)
	}
	return quad.TypedLiteral(strconv.FormatFloat(f, 'f', -1, 64), quad.XSDDecimal)
}

func boolTerm(v bool) quad.Term {
	if v {
		return quad.TypedLiteral("true", quad.XSDBoolean)
	}
	return quad.TypedLiteral("false", quad.XSDBoolean)
}

func truthy(t quad.Term) bool {
	switch t.Kind {
	case quad.Literal:
		if t.Datatype == quad.XSDBoolean {
			return t.Value == "true"
		}
		if f, ok := toFloat(t); ok {
			return f != 0
		}
		return t.Value != ""
	default:
		return true
	}
}

func compareTerms(op string, a, b quad.Term) (bool, error) {
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch op {
			case "=":
				return af == bf, nil
			case "!=":
				return af != bf, nil
			case "<":
				return af < bf, nil
			case "<=":
				return af <= bf, nil
			case ">":
				return af > bf, nil
			case ">=":
				return af >= bf, nil
			}
		}
	}
	switch op {
	case "=":
		return a.Equal(b), nil
	case "!=":
		return !a.Equal(b), nil
	case "<":
		return a.Value < b.Value, nil
	case "<=":
		return a.Value <= b.Value, nil
	case ">":
		return a.Value > b.Value, nil
	case ">=":
		return a.Value >= b.Value, nil
	}
	return false, fmt.Errorf("sparql: unsupported comparison operator %q", op)
}

func evalExpr(e Expr, b Binding) (quad.Term, error) {
	switch ex := e.(type) {
	case VarExpr:
		t, ok := b[ex.Name]
		if !ok {
			return quad.Term{}, fmt.Errorf("sparql: unbound variable ?%s", ex.Name)
		}
		return t, nil
	case LiteralExpr:
		return ex.Term, nil
	case BinaryExpr:
		return evalBinary(ex, b)
	case UnaryExpr:
		return evalUnary(ex, b)
	case CallExpr:
		return evalCall(ex, b)
	default:
		return quad.Term{}, fmt.Errorf("sparql: unsupported expression")
	}
}

func evalBinary(ex BinaryExpr, b Binding) (quad.Term, error) {
	switch ex.Op {
	case "&&":
		lv, lerr := evalExpr(ex.Left, b)
		if lerr == nil && !truthy(lv) {
			return boolTerm(false), nil
		}
		rv, rerr := evalExpr(ex.Right, b)
		if rerr == nil && !truthy(rv) {
			return boolTerm(false), nil
		}
		if lerr != nil {
			return quad.Term{}, lerr
		}
		if rerr != nil {
			return quad.Term{}, rerr
		}
		return boolTerm(true), nil
	case "||":
		lv, lerr := evalExpr(ex.Left, b)
		if lerr == nil && truthy(lv) {
			return boolTerm(true), nil
		}
		rv, rerr := evalExpr(ex.Right, b)
		if rerr == nil && truthy(rv) {
			return boolTerm(true), nil
		}
		if lerr != nil {
			return quad.Term{}, lerr
		}
		if rerr != nil {
			return quad.Term{}, rerr
		}
		return boolTerm(false), nil
	}

	lv, err := evalExpr(ex.Left, b)
	if err != nil {
		return quad.Term{}, err
	}
	rv, err := evalExpr(ex.Right, b)
	if err != nil {
		return quad.Term{}, err
	}
	switch ex.Op {
	case "=", "!=", "<", "<=", ">", ">=":
		ok, err := compareTerms(ex.Op, lv, rv)
		if err != nil {
			return quad.Term{}, err
		}
		return boolTerm(ok), nil
	case "+", "-", "*", "/":
		lf, lok := toFloat(lv)
		rf, rok := toFloat(rv)
		if !lok || !rok {
			return quad.Term{}, fmt.Errorf("sparql: arithmetic on non-numeric operand")
		}
		switch ex.Op {
		case "+":
			return numTerm(lf + rf), nil
		case "-":
			return numTerm(lf - rf), nil
		case "*":
			return numTerm(lf * rf), nil
		case "/":
			if rf == 0 {
				return quad.Term{}, fmt.Errorf("sparql: division by zero")
			}
			return numTerm(lf / rf), nil
		}
	}
	return quad.Term{}, fmt.Errorf("sparql: unsupported operator %q", ex.Op)
}

func evalUnary(ex UnaryExpr, b Binding) (quad.Term, error) {
	v, err := evalExpr(ex.Operand, b)
	if err != nil {
		return quad.Term{}, err
	}
	switch ex.Op {
	case "!":
		return boolTerm(!truthy(v)), nil
	case "-":
		f, ok := toFloat(v)
		if !ok {
			return quad.Term{}, fmt.Errorf("sparql: unary minus on non-numeric operand")
		}
		return numTerm(-f), nil
	default:
		return quad.Term{}, fmt.Errorf("sparql: unsupported unary operator %q", ex.Op)
	}
}

func evalCall(ex CallExpr, b Binding) (quad.Term, error) {
	switch ex.Func {
	case "bound":
		if len(ex.Args) != 1 {
			return quad.Term{}, fmt.Errorf("sparql: bound() takes one argument")
		}
		v, ok := ex.Args[0].(VarExpr)
		if !ok {
			return quad.Term{}, fmt.Errorf("sparql: bound() requires a variable argument")
		}
		_, present := b[v.Name]
		return boolTerm(present), nil
	case "str":
		v, err := evalExpr(ex.Args[0], b)
		if err != nil {
			return quad.Term{}, err
		}
		return quad.PlainLiteral(v.Value), nil
	case "lang":
		v, err := evalExpr(ex.Args[0], b)
		if err != nil {
			return quad.Term{}, err
		}
		return quad.PlainLiteral(v.Lang), nil
	case "datatype":
		v, err := evalExpr(ex.Args[0], b)
		if err != nil {
			return quad.Term{}, err
		}
		dt := v.Datatype
		if dt == "" {
			dt = quad.XSDString
		}
		return quad.IRITerm(dt), nil
	case "langmatches":
		if len(ex.Args) != 2 {
			return quad.Term{}, fmt.Errorf("sparql: langMatches() takes two arguments")
		}
		lv, err := evalExpr(ex.Args[0], b)
		if err != nil {
			return quad.Term{}, err
		}
		pv, err := evalExpr(ex.Args[1], b)
		if err != nil {
			return quad.Term{}, err
		}
		if pv.Value == "*" {
			return boolTerm(lv.Value != ""), nil
		}
		return boolTerm(strings.EqualFold(lv.Value, pv.Value)), nil
	case "regex":
		if len(ex.Args) < 2 {
			return quad.Term{}, fmt.Errorf("sparql: regex() takes at least two arguments")
		}
		subject, err := evalExpr(ex.Args[0], b)
		if err != nil {
			return quad.Term{}, err
		}
		pattern, err := evalExpr(ex.Args[1], b)
		if err != nil {
			return quad.Term{}, err
		}
		pat := pattern.Value
		if len(ex.Args) == 3 {
			flags, err := evalExpr(ex.Args[2], b)
			if err != nil {
				return quad.Term{}, err
			}
			if strings.Contains(flags.Value, "i") {
				pat = "(?i)" + pat
			}
		}
		re, err := regexp.Compile(pat)
		if err != nil {
			return quad.Term{}, fmt.Errorf("sparql: invalid regex pattern: %w", err)
		}
		return boolTerm(re.MatchString(subject.Value)), nil
	default:
		return quad.Term{}, fmt.Errorf("sparql: unknown function %q", ex.Func)
	}
}

func computeAgg(agg *AggExpr, group []Binding) quad.Term {
	switch agg.Func {
	case "COUNT":
		if agg.Arg == "" {
			return quad.TypedLiteral(strconv.Itoa(len(group)), quad.XSDInteger)
		}
		seen := make(map[string]bool)
		count := 0
		for _, b := range group {
			t, ok := b[agg.Arg]
			if !ok {
				continue
			}
			if agg.Distinct {
				if seen[t.Key()] {
					continue
				}
				seen[t.Key()] = true
			}
			count++
		}
		return quad.TypedLiteral(strconv.Itoa(count), quad.XSDInteger)
	case "SUM", "AVG", "MIN", "MAX":
		var nums []float64
		seen := make(map[string]bool)
		for _, b := range group {
			t, ok := b[agg.Arg]
			if !ok {
				continue
			}
			if agg.Distinct {
				if seen[t.Key()] {
					continue
				}
				seen[t.Key()] = true
			}
			f, ok := toFloat(t)
			if !ok {
				continue
			}
			nums = append(nums, f)
		}
		if len(nums) == 0 {
			if agg.Func == "SUM" {
				return quad.TypedLiteral("0", quad.XSDInteger)
			}
			return quad.Term{}
		}
		switch agg.Func {
		case "SUM":
			var s float64
			for _, n := range nums {
				s += n
			}
			return numTerm(s)
		case "AVG":
			var s float64
			for _, n := range nums {
				s += n
			}
			return numTerm(s / float64(len(nums)))
		case "MIN":
			m := nums[0]
			for _, n := range nums[1:] {
				if n < m {
					m = n
				}
			}
			return numTerm(m)
		case "MAX":
			m := nums[0]
			for _, n := range nums[1:] {
				if n > m {
					m = n
				}
			}
			return numTerm(m)
		}
	}
	return quad.Term{}
}
