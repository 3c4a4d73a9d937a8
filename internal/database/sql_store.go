package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// SQLStore implements MetadataStore over database/sql, against either
// SQLite (the teacher's default) or MySQL (the teacher's alternate
// driver) — the schema below avoids driver-specific syntax so the same
// queries run against both.
type SQLStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if absent) a SQLite-backed store at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("database: open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("database: enable WAL: %w", err)
	}
	return newStore(db)
}

// NewMySQLStore opens a MySQL-backed store against dsn (e.g.
// "user:pass@tcp(host:3306)/dbname?parseTime=true").
func NewMySQLStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: open mysql: %w", err)
	}
	return newStore(db)
}

func newStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("database: init schema: %w", err)
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pipeline_run_records (
		pipeline_name TEXT NOT NULL,
		event TEXT NOT NULL,
		detail TEXT,
		timestamp TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS plugin_catalog (
		name TEXT NOT NULL,
		capability TEXT NOT NULL,
		pipeline_name TEXT NOT NULL,
		installed_at TIMESTAMP NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// RecordPipelineEvent appends one lifecycle transition.
func (s *SQLStore) RecordPipelineEvent(record PipelineRunRecord) error {
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	_, err := s.db.Exec(
		"INSERT INTO pipeline_run_records (pipeline_name, event, detail, timestamp) VALUES (?, ?, ?, ?)",
		record.PipelineName, record.Event, record.Detail, record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("database: record pipeline event: %w", err)
	}
	return nil
}

// ListPipelineEvents returns the most recent limit events for
// pipelineName, newest first. An empty pipelineName lists across every
// pipeline.
func (s *SQLStore) ListPipelineEvents(pipelineName string, limit int) ([]PipelineRunRecord, error) {
	var rows *sql.Rows
	var err error
	if pipelineName == "" {
		rows, err = s.db.Query(
			"SELECT pipeline_name, event, detail, timestamp FROM pipeline_run_records ORDER BY timestamp DESC LIMIT ?",
			limit,
		)
	} else {
		rows, err = s.db.Query(
			"SELECT pipeline_name, event, detail, timestamp FROM pipeline_run_records WHERE pipeline_name = ? ORDER BY timestamp DESC LIMIT ?",
			pipelineName, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("database: list pipeline events: %w", err)
	}
	defer rows.Close()

	var records []PipelineRunRecord
	for rows.Next() {
		var r PipelineRunRecord
		if err := rows.Scan(&r.PipelineName, &r.Event, &r.Detail, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("database: scan pipeline event: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SavePluginCatalog replaces the stored plugin catalog snapshot with
// entries, taken at startup once the DAG builder has resolved every
// plugin block.
func (s *SQLStore) SavePluginCatalog(entries []PluginCatalogEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("database: begin catalog tx: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM plugin_catalog"); err != nil {
		tx.Rollback()
		return fmt.Errorf("database: clear catalog: %w", err)
	}
	for _, e := range entries {
		if e.InstalledAt.IsZero() {
			e.InstalledAt = time.Now()
		}
		if _, err := tx.Exec(
			"INSERT INTO plugin_catalog (name, capability, pipeline_name, installed_at) VALUES (?, ?, ?, ?)",
			e.Name, e.Capability, e.PipelineName, e.InstalledAt,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("database: insert catalog entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("database: commit catalog tx: %w", err)
	}
	return nil
}

// ListPluginCatalog returns the current plugin catalog snapshot.
func (s *SQLStore) ListPluginCatalog() ([]PluginCatalogEntry, error) {
	rows, err := s.db.Query("SELECT name, capability, pipeline_name, installed_at FROM plugin_catalog ORDER BY pipeline_name, name")
	if err != nil {
		return nil, fmt.Errorf("database: list catalog: %w", err)
	}
	defer rows.Close()

	var entries []PluginCatalogEntry
	for rows.Next() {
		var e PluginCatalogEntry
		if err := rows.Scan(&e.Name, &e.Capability, &e.PipelineName, &e.InstalledAt); err != nil {
			return nil, fmt.Errorf("database: scan catalog entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
