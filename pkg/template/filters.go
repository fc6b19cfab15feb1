package template

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
)

// dateTokenReplacer translates the spec's token language (`YYYY MM DD
// HH mm ss`) into Go's reference-time layout.
var dateTokenReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"MM", "01",
	"DD", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
)

func applyFilters(v any, calls []filterCall, vars Vars) (any, error) {
	for _, fc := range calls {
		args := make([]any, 0, len(fc.Args))
		for _, a := range fc.Args {
			av, err := evalExpr(a, vars)
			if err != nil {
				return nil, err
			}
			args = append(args, av)
		}
		var err error
		v, err = applyFilter(fc.Name, v, args)
		if err != nil {
			return nil, err
		}
	}
	return v, nil
}

func applyFilter(name string, v any, args []any) (any, error) {
	switch name {
	case "date":
		layout := "2006-01-02 15:04:05"
		if len(args) > 0 {
			layout = dateTokenReplacer.Replace(toStr(args[0]))
		}
		t := time.Now()
		if s, ok := v.(string); !ok || s != "now" {
			if parsed, ok := v.(time.Time); ok {
				t = parsed
			}
		}
		return t.Format(layout), nil
	case "tojson":
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("template: tojson: %w", err)
		}
		return string(b), nil
	case "length":
		return float64(collectionLen(v)), nil
	case "join":
		sep := ","
		if len(args) > 0 {
			sep = toStr(args[0])
		}
		items := toSlice(v)
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = toStr(it)
		}
		return strings.Join(parts, sep), nil
	case "split":
		sep := ","
		if len(args) > 0 {
			sep = toStr(args[0])
		}
		parts := strings.Split(toStr(v), sep)
		out := make([]any, len(parts))
		for i, p := range parts {
			out[i] = p
		}
		return out, nil
	case "sum":
		var s float64
		for _, it := range toSlice(v) {
			s += toFloat(it)
		}
		return s, nil
	case "min":
		items := toSlice(v)
		if len(items) == 0 {
			return float64(0), nil
		}
		m := toFloat(items[0])
		for _, it := range items[1:] {
			if f := toFloat(it); f < m {
				m = f
			}
		}
		return m, nil
	case "max":
		items := toSlice(v)
		if len(items) == 0 {
			return float64(0), nil
		}
		m := toFloat(items[0])
		for _, it := range items[1:] {
			if f := toFloat(it); f > m {
				m = f
			}
		}
		return m, nil
	case "round":
		n := 0
		if len(args) > 0 {
			n = int(toFloat(args[0]))
		}
		factor := pow10(n)
		return float64(int(toFloat(v)*factor+0.5)) / factor, nil
	case "int":
		return float64(int(toFloat(v))), nil
	case "string":
		return toStr(v), nil
	case "bool":
		return toBool(v), nil
	case "default":
		if v == nil || v == "" {
			if len(args) > 0 {
				return args[0], nil
			}
			return "", nil
		}
		return v, nil
	case "pascalCase":
		return strcase.ToCamel(toStr(v)), nil
	case "camelCase":
		return strcase.ToLowerCamel(toStr(v)), nil
	case "kebabCase":
		return strcase.ToKebab(toStr(v)), nil
	case "titleCase":
		return toTitleCase(toStr(v)), nil
	case "truncate":
		n := 80
		if len(args) > 0 {
			n = int(toFloat(args[0]))
		}
		s := toStr(v)
		if len(s) <= n {
			return s, nil
		}
		if n <= 3 {
			return s[:n], nil
		}
		return s[:n-3] + "...", nil
	case "number_format":
		return formatThousands(toFloat(v)), nil
	case "groupby":
		if len(args) == 0 {
			return nil, &SyntaxError{Reason: "groupby requires a key argument"}
		}
		key := toStr(args[0])
		groups := make(map[string][]any)
		var order []string
		for _, it := range toSlice(v) {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			k := toStr(m[key])
			if _, seen := groups[k]; !seen {
				order = append(order, k)
			}
			groups[k] = append(groups[k], it)
		}
		out := make([]any, 0, len(order))
		for _, k := range order {
			out = append(out, map[string]any{"key": k, "items": groups[k]})
		}
		return out, nil
	case "dump":
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("template: dump: %w", err)
		}
		return string(b), nil
	default:
		return nil, &SyntaxError{Reason: "unknown filter: " + name}
	}
}

func collectionLen(v any) int {
	switch t := v.(type) {
	case string:
		return len(t)
	case []any:
		return len(t)
	case map[string]any:
		return len(t)
	default:
		return 0
	}
}

func toSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case nil:
		return nil
	default:
		return []any{t}
	}
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case int:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	case bool:
		if t {
			return 1
		}
		return 0
	default:
		return 0
	}
}

func toStr(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func toBool(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != "" && t != "false"
	case float64:
		return t != 0
	case nil:
		return false
	default:
		return true
	}
}

func toTitleCase(s string) string {
	fields := strings.Fields(strings.ReplaceAll(strings.ReplaceAll(s, "-", " "), "_", " "))
	for i, f := range fields {
		if f == "" {
			continue
		}
		fields[i] = strings.ToUpper(f[:1]) + f[1:]
	}
	return strings.Join(fields, " ")
}

func pow10(n int) float64 {
	f := 1.0
	for i := 0; i < n; i++ {
		f *= 10
	}
	for i := 0; i > n; i-- {
		f /= 10
	}
	return f
}

func formatThousands(f float64) string {
	neg := f < 0
	if neg {
		f = -f
	}
	whole := int64(f)
	s := strconv.FormatInt(whole, 10)
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	out := strings.Join(groups, ",")
	if neg {
		out = "-" + out
	}
	return out
}
