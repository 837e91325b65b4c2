// Package sqlite persists jobs in SQLite through mattn/go-sqlite3.
//
// Example connection strings:
//
//	"file:askflow.db?_busy_timeout=5000&_journal_mode=WAL"
//	"file::memory:?cache=shared"
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ncobase/askflow/config"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Open opens and pings a SQLite database. A single connection is used since
// SQLite serialises writers and in-memory databases are per connection.
func Open(ctx context.Context, cfg *config.SQLite) (*sql.DB, error) {
	if cfg == nil || cfg.Source == "" {
		return nil, fmt.Errorf("sqlite: connection source is empty")
	}

	db, err := sql.Open("sqlite3", cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}
	return db, nil
}
