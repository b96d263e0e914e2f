package database

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/andrew/scoutchat/internal/ledger"
)

//go:embed migrations/001_schema.sql
var schema string

// DB wraps the SQL database connection
type DB struct {
	conn *sql.DB
}

// New creates a new database connection and runs migrations
func New(dbPath string) (*DB, error) {
	if dbPath != ":memory:" {
		// Ensure directory exists
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Immediate transactions take the write lock up front so two
	// read-modify-write cycles on the ledger cannot interleave.
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", dbPath)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only allows one writer at a time
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}

	// Run schema
	if _, err := db.conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("schema failed: %w", err)
	}

	var version int
	if err := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != ledger.SchemaVersion {
		conn.Close()
		return nil, fmt.Errorf("unsupported schema version %d (want %d)", version, ledger.SchemaVersion)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}
