package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/querypath-labs/querypath/internal/state"
	"github.com/querypath-labs/querypath/pkg/cache"
	"github.com/querypath-labs/querypath/pkg/core"
	"github.com/querypath-labs/querypath/pkg/plan"
	"github.com/querypath-labs/querypath/pkg/resolver"
	"github.com/querypath-labs/querypath/pkg/validate"
)

// PlanRequest describes one query to plan. Entities and Intent come
// from the upstream resolution and intent-analysis layers; Columns,
// GroupBy, and Tables accept free-text references that are resolved
// against the schema graph.
type PlanRequest struct {
	Entities []core.Entity `json:"entities"`
	Intent   core.Intent   `json:"intent"`
	Columns  []string      `json:"columns,omitempty"`
	GroupBy  []string      `json:"group_by,omitempty"`
	Tables   []string      `json:"tables,omitempty"`
	Validate bool          `json:"validate,omitempty"`
}

// PlanResult is the outcome of planning one request.
type PlanResult struct {
	SQL          string           `json:"sql"`
	PrimaryTable string           `json:"primary_table"`
	UsedCTE      bool             `json:"used_cte"`
	Validation   *validate.Result `json:"validation,omitempty"`
	PlanID       string           `json:"plan_id,omitempty"`
	Cached       bool             `json:"cached,omitempty"`
	DurationMS   int64            `json:"duration_ms"`
}

// Plan resolves the request's references, derives joins, and builds
// SQL. Validation runs when requested, and the plan is recorded in
// history unless it came from the cache.
func (e *Engine) Plan(req PlanRequest) (*PlanResult, error) {
	start := time.Now()

	primary := selectPrimaryTable(req.Entities)
	if primary == "" {
		return nil, fmt.Errorf("no table entity in request")
	}

	r := resolver.New(e.graph, req.Entities, e.resolverOpts, e.logger)
	planReq := e.buildPlanRequest(r, primary, req)

	var (
		key    string
		sqlStr string
		q      *plan.Query
		cached bool
	)
	if e.cache != nil {
		key = planKey(e.fingerprint, planReq)
		if hit, ok := e.cache.Get(key); ok {
			sqlStr = hit
			cached = true
		}
	}

	if !cached {
		built, err := e.planner.Build(planReq)
		if err != nil {
			return nil, err
		}
		q = built
		sqlStr = q.SQL()
		if e.cache != nil {
			e.cache.Set(key, sqlStr)
		}
	}

	result := &PlanResult{
		SQL:          sqlStr,
		PrimaryTable: primary,
		UsedCTE:      strings.HasPrefix(sqlStr, "WITH "),
		Cached:       cached,
	}

	if req.Validate {
		result.Validation = e.validator.Validate(sqlStr, q, req.Entities)
	}

	result.DurationMS = time.Since(start).Milliseconds()

	// Cache hits were recorded when first planned.
	if e.store != nil && !cached {
		record := &state.PlanRecord{
			SchemaVersion: e.fingerprint,
			IntentType:    string(req.Intent.Type),
			PrimaryTable:  primary,
			SQL:           sqlStr,
			UsedCTE:       result.UsedCTE,
			Valid:         result.Validation == nil || result.Validation.IsValid,
			DurationMS:    result.DurationMS,
		}
		if err := e.store.RecordPlan(record); err != nil {
			e.logger.Warn("failed to record plan", "error", err)
		} else {
			result.PlanID = record.ID
		}
	}

	e.logger.Debug("plan built",
		"table", primary, "intent", string(req.Intent.Type),
		"cached", cached, "used_cte", result.UsedCTE, "duration_ms", result.DurationMS)

	return result, nil
}

// buildPlanRequest resolves free-text references into a concrete plan
// request. Order terms pass through untouched so ordering by an
// aggregate alias is not rewritten to the underlying column.
func (e *Engine) buildPlanRequest(r *resolver.Resolver, primary string, req PlanRequest) plan.Request {
	columns := make([]plan.Column, 0, len(req.Columns))
	for _, c := range req.Columns {
		table, name := splitColumn(r.Resolve(c))
		columns = append(columns, plan.Column{Table: table, Name: name})
	}

	aggs := make([]core.Aggregation, 0, len(req.Intent.Aggregations))
	for _, a := range req.Intent.Aggregations {
		if a.Column != "" && a.Column != "*" {
			a.Column = r.Resolve(a.Column)
		}
		aggs = append(aggs, a)
	}

	filters := make([]plan.Filter, 0, len(req.Intent.Filters))
	for _, f := range req.Intent.Filters {
		p := r.ResolveFilter(f)
		filters = append(filters, plan.Filter{
			Column:   p.Column,
			Operator: p.Operator,
			Value:    p.Value,
			Raw:      p.Raw,
		})
	}

	groupBy := make([]string, 0, len(req.GroupBy))
	for _, g := range req.GroupBy {
		groupBy = append(groupBy, r.Resolve(g))
	}

	return plan.Request{
		PrimaryTable: primary,
		Columns:      columns,
		Intent:       req.Intent.Type,
		Aggregations: aggs,
		Filters:      filters,
		GroupBy:      groupBy,
		OrderBy:      req.Intent.OrderBy,
		Limit:        req.Intent.Limit,
		Tables:       req.Tables,
	}
}

// planKey derives the cache key for a resolved plan request.
func planKey(fingerprint string, req plan.Request) string {
	encoded, err := json.Marshal(req)
	if err != nil {
		encoded = []byte(fmt.Sprintf("%+v", req))
	}
	return cache.Key("plan", fingerprint, string(encoded))
}

// selectPrimaryTable picks the anchor table among the request's
// entities.
func selectPrimaryTable(entities []core.Entity) string {
	best := -1
	for i, e := range entities {
		if e.Table == "" {
			continue
		}
		if best == -1 || betterSource(e, entities[best]) {
			best = i
		}
	}
	if best == -1 {
		return ""
	}
	return entities[best].Table
}

// betterSource ranks competing table references: an explicit optimal
// source wins, then priority, then confidence, then table entities
// over column entities. Earlier entities win remaining ties.
func betterSource(a, b core.Entity) bool {
	if a.OptimalSource != b.OptimalSource {
		return a.OptimalSource
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if (a.Type == core.EntityTable) != (b.Type == core.EntityTable) {
		return a.Type == core.EntityTable
	}
	return false
}

func splitColumn(ref string) (table, name string) {
	if t, n, ok := strings.Cut(ref, "."); ok {
		return t, n
	}
	return "", ref
}
