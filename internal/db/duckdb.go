// Package db provides the process-wide in-memory DuckDB connection used by
// the factor builder's tile aggregation, following the same singleton
// pattern used for embedding DuckDB inside a long-lived Go service.
package db

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/duckdb/duckdb-go/v2"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Get returns the singleton in-memory DuckDB connection. A translation run
// never needs persistent DuckDB state across runs — tile aggregation is a
// pure function of one run's tile set — so, unlike a long-lived service,
// this always opens ":memory:" rather than a file path.
func Get() (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = sql.Open("duckdb", "")
		if initErr != nil {
			initErr = fmt.Errorf("open in-memory duckdb: %w", initErr)
		}
	})
	return instance, initErr
}

// Close closes the singleton connection. Safe to call even if Get was never
// called.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// Reset clears the singleton so a subsequent Get opens a fresh connection.
// Used between independent test cases and independent CLI invocations in
// the same process (the engine itself is otherwise single-run-per-process).
func Reset() {
	if instance != nil {
		_ = instance.Close()
	}
	instance = nil
	initErr = nil
	once = sync.Once{}
}
