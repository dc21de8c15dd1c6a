// Package store is the SQLite persistence layer. All writes that span more
// than one row run through Store.Tx so they commit or roll back as a unit.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mattn/go-sqlite3"

	"github.com/smallbooks/bookkeeper/internal/errs"
)

// SchemaVersion is the schema this build reads and writes. Open refuses any
// database stamped with a different nonzero version.
const SchemaVersion = 1

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same query methods run standalone or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds every query method against a DBTX.
type Queries struct {
	db DBTX
}

// Store owns the database handle. It embeds a Queries bound to the raw
// handle for single-statement work; multi-statement work goes through Tx.
type Store struct {
	db   *sql.DB
	path string
	*Queries
}

// Open opens (creating if needed) the database at dbPath, applies the schema
// to a fresh database, and fails fast on a version it does not understand.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// WAL for concurrent readers; immediate transactions so read-modify-write
	// sequences like payment allocation serialize at BEGIN instead of racing
	// to upgrade their locks at COMMIT.
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{db: db, path: dbPath, Queries: &Queries{db: db}}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	switch version {
	case 0:
		if _, err := s.db.Exec(schema); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
		if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", SchemaVersion)); err != nil {
			return fmt.Errorf("failed to stamp schema version: %w", err)
		}
		return nil
	case SchemaVersion:
		return nil
	default:
		return fmt.Errorf("unsupported schema version %d (this build supports %d)", version, SchemaVersion)
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Tx runs fn inside a transaction, committing on a nil return and rolling
// back on error or panic.
func (s *Store) Tx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Transient("store", fmt.Errorf("failed to begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&Queries{db: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return errs.Transient("store", fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite unique or primary key
// constraint failure.
func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// isFKViolation reports whether err is a SQLite foreign key constraint
// failure.
func isFKViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
}
