// Package db implements the relational store for fares, search profiles,
// scan history and matched deals. It speaks both SQLite (the default, via a
// file path) and PostgreSQL (via a postgres:// URL) through database/sql.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/tbruni/weekendfly/config"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported dialects.
const (
	DialectSQLite   = "sqlite"
	DialectPostgres = "postgres"
)

// DB represents a database connection
type DB struct {
	db      *sql.DB
	dialect string
}

// New opens a database connection. A postgres:// or postgresql:// URL selects
// PostgreSQL, anything else is treated as a SQLite file path.
func New(cfg config.DatabaseConfig) (*DB, error) {
	url := cfg.URL

	var (
		conn    *sql.DB
		dialect string
		err     error
	)
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		dialect = DialectPostgres
		conn, err = sql.Open("postgres", url)
	} else {
		dialect = DialectSQLite
		conn, err = sql.Open("sqlite", url+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(30000)")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{db: conn, dialect: dialect}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.db.Close()
}

// Conn returns the underlying database connection
func (d *DB) Conn() *sql.DB {
	return d.db
}

// Dialect returns the active SQL dialect
func (d *DB) Dialect() string {
	return d.dialect
}

// Store returns a query handle bound to the connection pool.
func (d *DB) Store() *Store {
	return &Store{q: d.db, dialect: d.dialect}
}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (d *DB) WithTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&Store{q: tx, dialect: d.dialect}); err != nil {
		return err
	}
	return tx.Commit()
}

// Queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Store executes typed queries against either a connection pool or an open
// transaction. Queries are written with ? placeholders and rebound for
// PostgreSQL.
type Store struct {
	q       Queryer
	dialect string
}

func (s *Store) rebind(query string) string {
	return rebind(s.dialect, query)
}

// rebind rewrites ? placeholders to $N for PostgreSQL.
func rebind(dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// InitSchema initializes the database schema
func (d *DB) InitSchema() error {
	ddl := schemaSQLite
	if d.dialect == DialectPostgres {
		ddl = schemaPostgres
	}
	if _, err := d.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

const schemaSQLite = `
	-- Fare observations, one row per flight leg
	CREATE TABLE IF NOT EXISTS flights (
		id TEXT PRIMARY KEY,
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		origin_full TEXT NOT NULL DEFAULT '',
		destination_full TEXT NOT NULL DEFAULT '',
		departure TEXT NOT NULL,
		arrival TEXT NOT NULL,
		flight_number TEXT NOT NULL DEFAULT '',
		price REAL NOT NULL,
		currency TEXT NOT NULL DEFAULT 'EUR',
		party INTEGER NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_flights_route_date ON flights(origin, destination, departure);
	CREATE INDEX IF NOT EXISTS idx_flights_origin_party ON flights(origin, party);

	-- Scan history used for the per-airport cooldown
	CREATE TABLE IF NOT EXISTS scan_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		airport TEXT NOT NULL,
		party INTEGER NOT NULL DEFAULT 1,
		scanned_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scan_log_airport ON scan_log(airport, party, scanned_at);

	-- Subscriber search profiles
	CREATE TABLE IF NOT EXISTS search_profiles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		origins TEXT NOT NULL,
		allowed_destinations TEXT NOT NULL DEFAULT '[]',
		excluded_destinations TEXT NOT NULL DEFAULT '[]',
		notify_destinations TEXT NOT NULL DEFAULT '[]',
		party INTEGER NOT NULL DEFAULT 1,
		max_price_pp REAL NOT NULL,
		strategy TEXT NOT NULL,
		nearby_origins BOOLEAN NOT NULL DEFAULT FALSE,
		ntfy_topic TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT ''
	);

	-- Matched round trips per profile
	CREATE TABLE IF NOT EXISTS deals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		profile_id INTEGER NOT NULL,
		outbound_flight_id TEXT NOT NULL,
		inbound_flight_id TEXT NOT NULL,
		total_price_pp REAL NOT NULL,
		notified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (profile_id, outbound_flight_id, inbound_flight_id)
	);
	CREATE INDEX IF NOT EXISTS idx_deals_profile ON deals(profile_id, notified);
`

const schemaPostgres = `
	-- Fare observations, one row per flight leg
	CREATE TABLE IF NOT EXISTS flights (
		id TEXT PRIMARY KEY,
		origin VARCHAR(3) NOT NULL,
		destination VARCHAR(3) NOT NULL,
		origin_full VARCHAR(255) NOT NULL DEFAULT '',
		destination_full VARCHAR(255) NOT NULL DEFAULT '',
		departure TEXT NOT NULL,
		arrival TEXT NOT NULL,
		flight_number VARCHAR(16) NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL,
		currency VARCHAR(3) NOT NULL DEFAULT 'EUR',
		party INT NOT NULL DEFAULT 1,
		updated_at TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_flights_route_date ON flights(origin, destination, departure);
	CREATE INDEX IF NOT EXISTS idx_flights_origin_party ON flights(origin, party);

	-- Scan history used for the per-airport cooldown
	CREATE TABLE IF NOT EXISTS scan_log (
		id SERIAL PRIMARY KEY,
		airport VARCHAR(3) NOT NULL,
		party INT NOT NULL DEFAULT 1,
		scanned_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_scan_log_airport ON scan_log(airport, party, scanned_at);

	-- Subscriber search profiles
	CREATE TABLE IF NOT EXISTS search_profiles (
		id SERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		origins TEXT NOT NULL,
		allowed_destinations TEXT NOT NULL DEFAULT '[]',
		excluded_destinations TEXT NOT NULL DEFAULT '[]',
		notify_destinations TEXT NOT NULL DEFAULT '[]',
		party INT NOT NULL DEFAULT 1,
		max_price_pp DOUBLE PRECISION NOT NULL,
		strategy TEXT NOT NULL,
		nearby_origins BOOLEAN NOT NULL DEFAULT FALSE,
		ntfy_topic VARCHAR(255) NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT ''
	);

	-- Matched round trips per profile
	CREATE TABLE IF NOT EXISTS deals (
		id SERIAL PRIMARY KEY,
		profile_id INT NOT NULL,
		outbound_flight_id TEXT NOT NULL,
		inbound_flight_id TEXT NOT NULL,
		total_price_pp DOUBLE PRECISION NOT NULL,
		notified BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE (profile_id, outbound_flight_id, inbound_flight_id)
	);
	CREATE INDEX IF NOT EXISTS idx_deals_profile ON deals(profile_id, notified);
`
