package kv

import (
	"context"
	"fmt"

	"github.com/erazemk/knjiznica/internal/db"
)

// Config selects and parameterises a backend.
type Config struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
	S3          S3Config
}

// Open creates the backend named by cfg.Driver. SQL backends get their
// schema created on open.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverSQLite, "":
		database, err := db.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(database, db.DriverSQLite); err != nil {
			database.Close()
			return nil, err
		}
		return NewSQL(database, db.DriverSQLite)
	case DriverPostgres:
		database, err := db.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(database, db.DriverPostgres); err != nil {
			database.Close()
			return nil, err
		}
		return NewSQL(database, db.DriverPostgres)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
