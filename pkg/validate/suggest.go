package validate

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// maxSuggestionDistance bounds how far a did-you-mean candidate may be
// from the unknown name.
const maxSuggestionDistance = 2

// closest returns the candidate within maxSuggestionDistance edits of
// name, preferring the smallest distance. Ties keep the earliest
// candidate. Returns the empty string when nothing is close enough.
func closest(name string, candidates []string) string {
	best := ""
	bestDist := maxSuggestionDistance + 1
	source := []rune(strings.ToLower(name))
	for _, c := range candidates {
		d := levenshtein.DistanceForStrings(source, []rune(strings.ToLower(c)), levenshtein.DefaultOptions)
		if d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
