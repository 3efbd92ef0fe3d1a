package authdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAvailable(t *testing.T) {
	if Available("") {
		t.Error("an empty path must not be available")
	}
	if Available(filepath.Join(t.TempDir(), "missing.db")) {
		t.Error("a missing file must not be available")
	}

	path := filepath.Join(t.TempDir(), "auth.db")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("failed to create store file: %v", err)
	}
	if !Available(path) {
		t.Error("an existing file must be available")
	}
}

func TestOpenRefusesMissingStore(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"))
	if !errors.Is(err, ErrUnconfigured) {
		t.Errorf("expected ErrUnconfigured, got %v", err)
	}
}

func TestRunMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "auth.db")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("failed to create store file: %v", err)
	}
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}
	// Rerunning against an up-to-date store applies nothing and succeeds.
	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("repeated RunMigrations failed: %v", err)
	}

	var applied int
	if err := db.QueryRow("SELECT COUNT(*) FROM auth_migrations").Scan(&applied); err != nil {
		t.Fatalf("failed to count migrations: %v", err)
	}
	if want := len(Migrations()); applied != want {
		t.Errorf("recorded %d migrations, want %d", applied, want)
	}
}

func TestMigrationsSeedBuiltInRoles(t *testing.T) {
	db := OpenTestStore(t)

	var roles int
	err := db.QueryRow(
		"SELECT COUNT(*) FROM roles WHERE role_name IN ('group-creator', 'group-leader') AND group_id IS NULL",
	).Scan(&roles)
	if err != nil {
		t.Fatalf("failed to count built-in roles: %v", err)
	}
	if roles != 2 {
		t.Errorf("expected 2 built-in roles, got %d", roles)
	}

	var links int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM role_privileges rp
		JOIN roles r ON r.role_id = rp.role_id
		WHERE r.role_name = 'group-leader'`).Scan(&links)
	if err != nil {
		t.Fatalf("failed to count role privileges: %v", err)
	}
	if links == 0 {
		t.Error("group-leader must carry privileges")
	}
}

func TestWithConnection(t *testing.T) {
	ctx := context.Background()
	db := OpenTestStore(t)

	err := WithConnection(ctx, db, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			"INSERT INTO groups(group_id, group_name) VALUES ('g1', 'Scoped')")
		return err
	})
	if err != nil {
		t.Fatalf("WithConnection failed: %v", err)
	}

	// The connection went back to the pool; the single-connection test
	// store would block here if it had leaked.
	failure := errors.New("boom")
	err = WithConnection(ctx, db, func(conn *sql.Conn) error { return failure })
	if !errors.Is(err, failure) {
		t.Fatalf("expected the callback error back, got %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM groups").Scan(&count); err != nil {
		t.Fatalf("failed to count groups: %v", err)
	}
	if count != 1 {
		t.Errorf("expected the scoped insert to persist, got %d rows", count)
	}
}

func TestWithTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	db := OpenTestStore(t)

	failure := errors.New("boom")
	err := WithTransaction(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO groups(group_id, group_name) VALUES ('g1', 'Doomed')"); err != nil {
			return err
		}
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected the callback error back, got %v", err)
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM groups").Scan(&count); err != nil {
		t.Fatalf("failed to count groups: %v", err)
	}
	if count != 0 {
		t.Error("insert survived a rolled-back transaction")
	}
}
