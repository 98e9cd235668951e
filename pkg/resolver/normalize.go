package resolver

import (
	"regexp"
	"strconv"
	"strings"
)

// shorthandRe matches a numeric literal immediately followed by a
// magnitude suffix: 100M, 1.5K, 2b.
var shorthandRe = regexp.MustCompile(`^(\d+(?:\.\d+)?)([KkMmBbTt])$`)

var multipliers = map[string]float64{
	"k": 1e3,
	"m": 1e6,
	"b": 1e9,
	"t": 1e12,
}

// NormalizeFilterValue expands magnitude shorthand in filter values:
// "100M" → "100000000", "1.5K" → "1500". Anything that is not a bare
// number with a K/M/B/T suffix — quoted strings, plain numbers,
// booleans — passes through unchanged.
func NormalizeFilterValue(value string) string {
	m := shorthandRe.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return value
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return value
	}
	n *= multipliers[strings.ToLower(m[2])]
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Predicate is a filter expression split into parts, with the column
// resolved and the value normalized. A predicate that could not be
// split carries the original text in Raw with the other fields empty.
type Predicate struct {
	Column   string
	Operator string
	Value    string
	Raw      string
}

// SQL renders the predicate.
func (p Predicate) SQL() string {
	if p.Column == "" {
		return p.Raw
	}
	return p.Column + " " + p.Operator + " " + p.Value
}

// comparison operators, two-rune forms first so ">=" wins over ">".
var operators = []string{">=", "<=", "!=", "<>", "=", ">", "<"}

// ResolveFilter splits a free-text predicate on its comparison operator,
// resolves the column reference, and normalizes the value. Predicates
// without a recognizable operator pass through as raw SQL.
func (r *Resolver) ResolveFilter(expr string) Predicate {
	expr = strings.TrimSpace(expr)
	column, op, value := splitPredicate(expr)
	if op == "" {
		return Predicate{Raw: expr}
	}
	return Predicate{
		Column:   r.Resolve(column),
		Operator: op,
		Value:    NormalizeFilterValue(value),
		Raw:      expr,
	}
}

// splitPredicate finds the first comparison operator and splits around
// it. Returns an empty operator when none is found.
func splitPredicate(expr string) (column, op, value string) {
	best := -1
	for _, candidate := range operators {
		idx := strings.Index(expr, candidate)
		if idx < 0 {
			continue
		}
		if best == -1 || idx < best {
			best = idx
			op = candidate
		}
	}
	if best < 0 {
		return "", "", ""
	}
	column = strings.TrimSpace(expr[:best])
	value = strings.TrimSpace(expr[best+len(op):])
	return column, op, value
}
