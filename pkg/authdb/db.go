// Package authdb provides connection plumbing for the SQLite authorisation
// store. All durable state lives here; callers acquire a scoped connection
// per request and release it on every exit path.
package authdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

// ErrUnconfigured distinguishes "store not configured / not present" from
// "store configured but erroring". Callers surface it as 503.
var ErrUnconfigured = fmt.Errorf("authorisation store is not configured")

// Available reports whether the store path is configured and exists on
// disk. It performs no connection attempt.
func Available(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Open opens the authorisation store at the given path. Foreign keys are
// enforced; the store refuses to open a missing file rather than silently
// creating an empty one.
func Open(path string) (*sql.DB, error) {
	if !Available(path) {
		return nil, ErrUnconfigured
	}
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open authorisation store: %w", err)
	}
	return db, nil
}

// WithConnection runs fn with a dedicated connection from the pool,
// guaranteeing release on every exit path including panics.
func WithConnection(ctx context.Context, db *sql.DB, fn func(conn *sql.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire store connection: %w", err)
	}
	defer conn.Close()
	return fn(conn)
}

// WithTransaction runs fn inside a transaction, committing on nil and
// rolling back otherwise.
func WithTransaction(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
