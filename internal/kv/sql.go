package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/knjiznica/internal/db"
)

const (
	colBucket    = "bucket"
	colPayload   = "payload"
	colUpdatedAt = "updated_at"
)

// SQL is a Backend over the state table of a SQLite or Postgres database.
type SQL struct {
	db      *sqlx.DB
	dialect goqu.DialectWrapper
	driver  Driver
}

// NewSQL wraps an open database. driverName is the database/sql driver the
// connection was opened with (db.DriverSQLite or db.DriverPostgres); the
// state table must already exist.
func NewSQL(database *sql.DB, driverName string) (*SQL, error) {
	var dialect string
	var driver Driver
	switch driverName {
	case db.DriverSQLite:
		dialect, driver = "sqlite3", DriverSQLite
	case db.DriverPostgres:
		dialect, driver = "postgres", DriverPostgres
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driverName)
	}

	return &SQL{
		db:      sqlx.NewDb(database, driverName),
		dialect: goqu.Dialect(dialect),
		driver:  driver,
	}, nil
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := s.dialect.From(db.StateTable).
		Select(colPayload).
		Where(goqu.C(colBucket).Eq(key)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building select: %w", err)
	}

	var payload []byte
	err = s.db.GetContext(ctx, &payload, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	return payload, nil
}

func (s *SQL) Put(ctx context.Context, key string, value []byte) error {
	now := time.Now().UTC()
	query, args, err := s.dialect.Insert(db.StateTable).
		Rows(goqu.Record{colBucket: key, colPayload: value, colUpdatedAt: now}).
		OnConflict(goqu.DoUpdate(colBucket, goqu.Record{colPayload: value, colUpdatedAt: now})).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building upsert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	query, args, err := s.dialect.Delete(db.StateTable).
		Where(goqu.C(colBucket).Eq(key)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

func (s *SQL) Driver() Driver { return s.driver }

func (s *SQL) Close() error { return s.db.Close() }
