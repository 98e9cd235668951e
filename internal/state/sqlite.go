package state

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver (pure Go)
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore creates a new SQLite state store instance.
func NewSQLiteStore() *SQLiteStore {
	return &SQLiteStore{}
}

// Open opens a connection to the SQLite database.
// Use ":memory:" for an in-memory database.
func (s *SQLiteStore) Open(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// A single connection sidesteps both SQLITE_BUSY on concurrent
	// writes and per-connection :memory: databases.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	s.db = db
	s.path = path
	return nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// RecordPlan inserts a plan record. Missing ID and CreatedAt fields
// are filled in.
func (s *SQLiteStore) RecordPlan(record *PlanRecord) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	if record.ID == "" {
		record.ID = generateID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO plans (id, schema_version, intent_type, primary_table, sql_text, used_cte, valid, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.SchemaVersion, record.IntentType, record.PrimaryTable,
		record.SQL, record.UsedCTE, record.Valid, record.DurationMS, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record plan: %w", err)
	}

	return nil
}

// RecentPlans retrieves the most recent plans, newest first.
func (s *SQLiteStore) RecentPlans(limit int) ([]*PlanRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT id, schema_version, intent_type, primary_table, sql_text, used_cte, valid, duration_ms, created_at
		 FROM plans ORDER BY created_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []*PlanRecord
	for rows.Next() {
		record := &PlanRecord{}
		if err := rows.Scan(
			&record.ID, &record.SchemaVersion, &record.IntentType, &record.PrimaryTable,
			&record.SQL, &record.UsedCTE, &record.Valid, &record.DurationMS, &record.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// PlanByID retrieves a single plan record.
func (s *SQLiteStore) PlanByID(id string) (*PlanRecord, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	record := &PlanRecord{}
	err := s.db.QueryRow(
		`SELECT id, schema_version, intent_type, primary_table, sql_text, used_cte, valid, duration_ms, created_at
		 FROM plans WHERE id = ?`,
		id,
	).Scan(
		&record.ID, &record.SchemaVersion, &record.IntentType, &record.PrimaryTable,
		&record.SQL, &record.UsedCTE, &record.Valid, &record.DurationMS, &record.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}

	return record, nil
}

// Ensure SQLiteStore implements Store interface
var _ Store = (*SQLiteStore)(nil)
