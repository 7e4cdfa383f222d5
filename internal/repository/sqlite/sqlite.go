// Package sqlite implements the repository interfaces on SQLite, using the
// pure-Go modernc.org/sqlite driver.
//
// The schema lives in migrations/*.sql, embedded into the binary and
// applied with golang-migrate when the database is opened.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// DB wraps the sql.DB pool and implements every repository interface.
// now stamps CreatedAt; tests replace it with a stepping clock so ordering
// by created_at is deterministic.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens (or creates) the database at dbPath and migrates it to the
// latest schema. ":memory:" gives a private in-memory database.
func New(dbPath string) (*DB, error) {
	// Pragmas in the DSN apply to every pooled connection, not just the
	// first one. Immediate transactions take the write lock on BEGIN, so
	// two concurrent read-then-write transactions queue instead of
	// failing with SQLITE_BUSY on lock upgrade.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" {
		// Each connection to :memory: is a separate database.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	if err := migrateUp(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return newWithConn(conn), nil
}

// newWithConn wraps an already-migrated pool. Tests use it with sqlmock.
func newWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn, now: func() time.Time { return time.Now().UTC() }}
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable; used by the health endpoint.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

// migrateUp brings the schema to the latest version.
//
// EMBEDDED MIGRATIONS WITH golang-migrate:
//
//  1. //go:embed copies migrations/*.sql into the binary at build time, so
//     the server needs no files on disk besides the database itself.
//  2. iofs.New adapts that embed.FS into a migrate source driver. Files
//     are named <version>_<name>.up.sql / .down.sql; the version prefix
//     orders them.
//  3. database/sqlite (the modernc driver, no cgo) wraps our own *sql.DB,
//     so the migrations run on the same pool and pragmas as queries do.
//  4. m.Up applies every version newer than the one recorded in the
//     schema_migrations table. ErrNoChange means the schema is current
//     and is not an error.
//
// Opening the same file twice is therefore a no-op the second time.
func migrateUp(conn *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(conn, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("creating migrate driver: %w", err)
	}

	// m.Close would close conn as well, so the migrator is simply dropped.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("creating migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY failure. Only
// the author columns reference another table on insert paths.
func isForeignKeyViolation(err error) bool {
	var se *moderncsqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
