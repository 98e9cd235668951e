package engine

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Check statuses.
const (
	CheckOK   = "ok"
	CheckWarn = "warn"
	CheckFail = "fail"
)

// Check is one doctor diagnostic.
type Check struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail"`
}

// Doctor runs environment diagnostics: schema shape, graph
// connectivity, the history store, and database reachability. The
// slow checks run concurrently.
func (e *Engine) Doctor(ctx context.Context) []Check {
	checks := make([]Check, 4)

	checks[0] = e.checkSchema()
	checks[1] = e.checkConnectivity()

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		checks[2] = e.checkHistory()
		return nil
	})
	eg.Go(func() error {
		checks[3] = e.checkDatabase(egctx)
		return nil
	})
	_ = eg.Wait()

	return checks
}

func (e *Engine) checkSchema() Check {
	tables := len(e.graph.Tables())
	if tables == 0 {
		return Check{Name: "schema", Status: CheckFail, Detail: "no tables defined"}
	}
	return Check{
		Name:   "schema",
		Status: CheckOK,
		Detail: fmt.Sprintf("%d tables, %d relationships", tables, e.graph.EdgeCount()),
	}
}

// checkConnectivity reports tables with no relationships at all; joins
// involving them can never be derived.
func (e *Engine) checkConnectivity() Check {
	tables := e.graph.Tables()
	if len(tables) <= 1 {
		return Check{Name: "graph", Status: CheckOK, Detail: "single-table schema"}
	}

	var isolated []string
	for _, t := range tables {
		out, in := e.graph.Relationships(t)
		if len(out)+len(in) == 0 {
			isolated = append(isolated, t)
		}
	}
	if len(isolated) > 0 {
		return Check{
			Name:   "graph",
			Status: CheckWarn,
			Detail: fmt.Sprintf("tables without relationships: %s", strings.Join(isolated, ", ")),
		}
	}
	return Check{Name: "graph", Status: CheckOK, Detail: "all tables have relationships"}
}

func (e *Engine) checkHistory() Check {
	if e.store == nil {
		return Check{Name: "history", Status: CheckWarn, Detail: "plan history disabled (no state path)"}
	}
	store, ok := e.store.(interface{ MigrationVersion() (int64, error) })
	if !ok {
		return Check{Name: "history", Status: CheckOK, Detail: "history store configured"}
	}
	version, err := store.MigrationVersion()
	if err != nil {
		return Check{Name: "history", Status: CheckFail, Detail: err.Error()}
	}
	return Check{Name: "history", Status: CheckOK, Detail: fmt.Sprintf("migrated to version %d", version)}
}

func (e *Engine) checkDatabase(ctx context.Context) Check {
	if e.dbConfig.Type == "" {
		return Check{Name: "database", Status: CheckWarn, Detail: "no database target configured"}
	}
	if err := e.ensureDBConnected(ctx); err != nil {
		return Check{Name: "database", Status: CheckFail, Detail: err.Error()}
	}
	if _, err := e.db.Query(ctx, "SELECT 1", 1); err != nil {
		return Check{Name: "database", Status: CheckFail, Detail: err.Error()}
	}
	return Check{
		Name:   "database",
		Status: CheckOK,
		Detail: fmt.Sprintf("connected (%s)", e.db.Dialect()),
	}
}
