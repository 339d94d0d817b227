package db

import (
	"database/sql"
	"fmt"
)

// StateTable is the key-value table every SQL backend reads and writes.
const StateTable = "state"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS state (
    bucket     TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS state (
    bucket     TEXT PRIMARY KEY,
    payload    BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the state table if it doesn't already exist.
func EnsureSchema(db *sql.DB, driver string) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = sqliteSchema
	case DriverPostgres:
		schema = postgresSchema
	default:
		return fmt.Errorf("creating schema: unknown driver %q", driver)
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}
