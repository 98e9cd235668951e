// Package state persists query planning history using SQLite. Each
// plan the engine produces is recorded with its SQL, validation
// outcome, and the schema fingerprint it was planned against.
package state

import "time"

// PlanRecord is one planned query as stored in history.
type PlanRecord struct {
	ID            string    `json:"id"`
	SchemaVersion string    `json:"schema_version"`
	IntentType    string    `json:"intent_type"`
	PrimaryTable  string    `json:"primary_table"`
	SQL           string    `json:"sql"`
	UsedCTE       bool      `json:"used_cte"`
	Valid         bool      `json:"valid"`
	DurationMS    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

// Store records and retrieves plan history.
type Store interface {
	RecordPlan(record *PlanRecord) error
	RecentPlans(limit int) ([]*PlanRecord, error)
	PlanByID(id string) (*PlanRecord, error)
	Close() error
}
