// Package store persists induction plans and peak-shift state in SQLite or
// PostgreSQL through database/sql.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
)

var ErrNotFound = errors.New("not found")

var schema = []string{
	`CREATE TABLE IF NOT EXISTS induction_plans (
		id TEXT PRIMARY KEY,
		generated_at BIGINT NOT NULL,
		revenue INTEGER NOT NULL,
		standby INTEGER NOT NULL,
		ibl INTEGER NOT NULL,
		payload TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_induction_plans_generated_at ON induction_plans (generated_at)`,
	`CREATE TABLE IF NOT EXISTS rider_profiles (
		user_id TEXT PRIMARY KEY,
		payload TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS peak_offers (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		status TEXT NOT NULL,
		expires_at BIGINT NOT NULL,
		payload TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_peak_offers_user ON peak_offers (user_id)`,
	`CREATE TABLE IF NOT EXISTS reward_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		recorded_at BIGINT NOT NULL,
		payload TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reward_transactions_user ON reward_transactions (user_id)`,
}

// Store is safe for concurrent use; database/sql pools connections.
type Store struct {
	db     *sql.DB
	driver string
}

// DriverFor picks the database/sql driver name for a DSN.
func DriverFor(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "pgx"
	}
	return "sqlite3"
}

// Open connects to dsn and applies the schema. Postgres URLs use pgx; any
// other value is treated as a SQLite file path.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("database DSN is empty")
	}
	driver := DriverFor(dsn)
	source := dsn
	if driver == "sqlite3" && !strings.Contains(dsn, "?") {
		source = dsn + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, driver: driver}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Driver reports which database/sql driver the store uses.
func (s *Store) Driver() string {
	return s.driver
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}
