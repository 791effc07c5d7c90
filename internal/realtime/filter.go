package realtime

import (
	"fmt"
	"slices"
	"strings"
)

// Filter is a row predicate in the form "col=eq.value" or "col=in.(a,b)".
// The zero Filter matches every row.
type Filter struct {
	Column string
	Values []string
}

// ParseFilter parses a filter expression. An empty expression yields the
// zero Filter.
func ParseFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{}, nil
	}

	col, rest, ok := strings.Cut(expr, "=")
	col = strings.TrimSpace(col)
	if !ok || col == "" {
		return Filter{}, fmt.Errorf("invalid filter %q: expected col=op.value", expr)
	}

	op, value, ok := strings.Cut(rest, ".")
	if !ok {
		return Filter{}, fmt.Errorf("invalid filter %q: missing operator", expr)
	}

	switch op {
	case "eq":
		return Filter{Column: col, Values: []string{value}}, nil
	case "in":
		if !strings.HasPrefix(value, "(") || !strings.HasSuffix(value, ")") {
			return Filter{}, fmt.Errorf("invalid filter %q: in requires a parenthesized list", expr)
		}
		inner := value[1 : len(value)-1]
		var values []string
		for _, v := range strings.Split(inner, ",") {
			v = strings.Trim(strings.TrimSpace(v), `"`)
			if v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return Filter{}, fmt.Errorf("invalid filter %q: empty in list", expr)
		}
		return Filter{Column: col, Values: values}, nil
	default:
		return Filter{}, fmt.Errorf("invalid filter %q: unsupported operator %q", expr, op)
	}
}

// Eq builds a "col=eq.value" expression.
func Eq(col, value string) string {
	return col + "=eq." + value
}

// In builds a "col=in.(a,b)" expression.
func In(col string, values ...string) string {
	return col + "=in.(" + strings.Join(values, ",") + ")"
}

// Match reports whether record satisfies the filter. A record without the
// filtered column never matches a non-zero filter.
func (f Filter) Match(record map[string]string) bool {
	if f.Column == "" {
		return true
	}
	v, ok := record[f.Column]
	if !ok {
		return false
	}
	return slices.Contains(f.Values, v)
}

func (f Filter) String() string {
	switch len(f.Values) {
	case 0:
		return ""
	case 1:
		return Eq(f.Column, f.Values[0])
	default:
		return In(f.Column, f.Values...)
	}
}
