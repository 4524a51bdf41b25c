// Package store persists benchmark results in DuckDB so runs can be
// queried and compared after the fact.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding benchmark results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file, empty for an in-memory store.
func (s *Store) Path() string {
	return s.path
}

// NewRunID returns a fresh identifier for a benchmark run.
func NewRunID() string {
	return uuid.NewString()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		run_id VARCHAR PRIMARY KEY,
		tool VARCHAR,
		mode VARCHAR,
		output_dir VARCHAR,
		started TIMESTAMP,
		finished TIMESTAMP,
		cases INTEGER,
		succeeded INTEGER,
		failed INTEGER
	)`,
	`CREATE TABLE IF NOT EXISTS cases (
		run_id VARCHAR,
		case_id VARCHAR,
		rank INTEGER,
		extracted VARCHAR,
		gene_id VARCHAR,
		gene_symbol VARCHAR
	)`,
	`CREATE TABLE IF NOT EXISTS reference_files (
		run_id VARCHAR,
		role VARCHAR,
		path VARCHAR,
		size BIGINT,
		mod_time TIMESTAMP
	)`,
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
