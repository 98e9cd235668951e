// Package resolver maps ambiguous, free-text column references to
// canonical table.column form using the schema graph, the request's
// resolved entities, and bounded fuzzy matching. It also normalizes
// shorthand filter values (100M → 100000000).
//
// Resolution never fails hard: an unresolvable reference is returned
// unchanged and the caller defers the error to validation.
package resolver

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/schema"
)

// Options are the resolution policy knobs. The similarity threshold and
// the active-table restriction are policy, not algorithmic necessities;
// they are exposed here so tests and callers can tighten or relax them.
type Options struct {
	// SimilarityThreshold is the minimum fuzzy score to consider a
	// candidate at all.
	SimilarityThreshold float64
	// MaxFuzzyCandidates caps how many fuzzy candidates are ranked.
	MaxFuzzyCandidates int
	// RestrictToActiveTables rejects fuzzy candidates whose owning
	// table no entity references, preventing cross-domain matches.
	RestrictToActiveTables bool
}

// DefaultOptions returns the production policy.
func DefaultOptions() Options {
	return Options{
		SimilarityThreshold:    0.7,
		MaxFuzzyCandidates:     3,
		RestrictToActiveTables: true,
	}
}

// Resolver resolves column references for one request. It reads the
// shared graph and the request's entities; it holds no mutable state and
// is safe to discard after the request.
type Resolver struct {
	graph    *schema.Graph
	entities []core.Entity
	active   map[string]bool
	opts     Options
	logger   *slog.Logger
}

// New creates a resolver for one request. The active table set is the
// set of tables referenced by the given entities.
func New(g *schema.Graph, entities []core.Entity, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultOptions().SimilarityThreshold
	}
	if opts.MaxFuzzyCandidates <= 0 {
		opts.MaxFuzzyCandidates = DefaultOptions().MaxFuzzyCandidates
	}

	active := make(map[string]bool, len(entities))
	for _, e := range entities {
		if e.Table != "" {
			active[e.Table] = true
		}
	}
	return &Resolver{
		graph:    g,
		entities: entities,
		active:   active,
		opts:     opts,
		logger:   logger,
	}
}

// ActiveTables returns the active table set in sorted order.
func (r *Resolver) ActiveTables() []string {
	out := make([]string, 0, len(r.active))
	for t := range r.active {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Resolve maps a raw reference to canonical table.column form, trying in
// order: qualified-reference entity substitution, exact entity text
// match, exact column name match, fuzzy match restricted to active
// tables. The first match wins; with no match the input comes back
// unchanged and the caller must treat it as unresolved.
func (r *Resolver) Resolve(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ref
	}

	if table, column, ok := strings.Cut(ref, "."); ok {
		return r.resolveQualified(ref, table, column)
	}
	if resolved, ok := r.matchEntityText(ref); ok {
		return resolved
	}
	if resolved, ok := r.matchColumnName(ref); ok {
		return resolved
	}
	if resolved, ok := r.matchFuzzy(ref); ok {
		return resolved
	}
	return ref
}

// resolveQualified handles references already in table.column form. When
// the table segment is an entity's display text, the entity's real table
// is substituted; otherwise the reference passes through untouched.
func (r *Resolver) resolveQualified(ref, table, column string) string {
	for _, e := range r.entities {
		if e.Table != "" && strings.EqualFold(e.Text, table) {
			return e.Table + "." + column
		}
	}
	return ref
}

// matchEntityText compares the whole reference against entity display
// texts. Column entities resolve to table.column, table entities to the
// bare table name.
func (r *Resolver) matchEntityText(ref string) (string, bool) {
	for _, e := range r.entities {
		if !strings.EqualFold(e.Text, ref) {
			continue
		}
		switch e.Type {
		case core.EntityColumn:
			if q := e.Qualified(); q != "" {
				return q, true
			}
		case core.EntityTable:
			if e.Table != "" {
				return e.Table, true
			}
		}
	}
	return "", false
}

// matchColumnName compares the reference against every column node's
// bare name, case-insensitively, in graph insertion order.
func (r *Resolver) matchColumnName(ref string) (string, bool) {
	for _, n := range r.graph.ColumnNodes() {
		if strings.EqualFold(n.ColumnName(), ref) {
			return n.Name, true
		}
	}
	return "", false
}

type fuzzyCandidate struct {
	node  *schema.Node
	score float64
}

// matchFuzzy ranks column nodes by string similarity. Candidates above
// the threshold are capped and then filtered by the active table set:
// a match in a table no entity references is rejected and logged, never
// silently substituted.
func (r *Resolver) matchFuzzy(ref string) (string, bool) {
	var candidates []fuzzyCandidate
	for _, n := range r.graph.ColumnNodes() {
		score := Similarity(ref, n.ColumnName())
		if score > r.opts.SimilarityThreshold {
			candidates = append(candidates, fuzzyCandidate{node: n, score: score})
		}
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})
	if len(candidates) > r.opts.MaxFuzzyCandidates {
		candidates = candidates[:r.opts.MaxFuzzyCandidates]
	}

	for _, c := range candidates {
		if !r.opts.RestrictToActiveTables || r.active[c.node.Table] {
			r.logger.Debug("fuzzy match accepted",
				"ref", ref, "resolved", c.node.Name, "score", c.score)
			return c.node.Name, true
		}
		r.logger.Warn("fuzzy match rejected: table not in active set",
			"ref", ref, "candidate", c.node.Name, "table", c.node.Table, "score", c.score)
	}
	return "", false
}
