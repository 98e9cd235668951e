package resolver

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Jaro-Winkler parameters: the standard 0.7 boost threshold and 4-rune
// prefix weight. Jaro-Winkler is the metric of record here because the
// snake_case column names this resolver sees share long prefixes and
// suffixes (customer_type vs client_type); edit-distance ratios punish
// the differing infix too hard to clear a useful threshold.
const (
	jwBoostThreshold = 0.7
	jwPrefixSize     = 4
)

// Similarity scores two identifiers in [0,1], case-insensitively.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	return smetrics.JaroWinkler(a, b, jwBoostThreshold, jwPrefixSize)
}
