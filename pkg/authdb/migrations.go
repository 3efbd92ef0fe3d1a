package authdb

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one versioned schema change for the authorisation store.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations returns the authorisation store schema in order.
func Migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create identity tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS users (
					user_id TEXT PRIMARY KEY,
					email TEXT NOT NULL UNIQUE,
					name TEXT NOT NULL
				);

				CREATE TABLE IF NOT EXISTS user_credentials (
					user_id TEXT PRIMARY KEY REFERENCES users(user_id) ON DELETE CASCADE,
					password BLOB NOT NULL
				);
			`,
		},
		{
			Version:     2,
			Description: "Create group and membership tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS groups (
					group_id TEXT PRIMARY KEY,
					group_name TEXT NOT NULL,
					group_metadata TEXT NOT NULL DEFAULT '{}'
				);

				CREATE TABLE IF NOT EXISTS group_users (
					group_id TEXT NOT NULL REFERENCES groups(group_id) ON DELETE CASCADE,
					user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
					PRIMARY KEY (group_id, user_id)
				);
			`,
		},
		{
			Version:     3,
			Description: "Create role and privilege tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS privileges (
					privilege_id TEXT PRIMARY KEY,
					privilege_description TEXT
				);

				CREATE TABLE IF NOT EXISTS roles (
					role_id TEXT PRIMARY KEY,
					role_name TEXT NOT NULL,
					group_id TEXT REFERENCES groups(group_id) ON DELETE CASCADE,
					UNIQUE (role_name, group_id)
				);

				CREATE TABLE IF NOT EXISTS role_privileges (
					role_id TEXT NOT NULL REFERENCES roles(role_id) ON DELETE CASCADE,
					privilege_id TEXT NOT NULL REFERENCES privileges(privilege_id) ON DELETE CASCADE,
					PRIMARY KEY (role_id, privilege_id)
				);

				CREATE TABLE IF NOT EXISTS user_roles (
					user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
					role_id TEXT NOT NULL REFERENCES roles(role_id) ON DELETE CASCADE,
					group_id TEXT REFERENCES groups(group_id) ON DELETE CASCADE,
					UNIQUE (user_id, role_id, group_id)
				);
			`,
		},
		{
			Version:     4,
			Description: "Create resource tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS resources (
					resource_id TEXT PRIMARY KEY,
					group_id TEXT NOT NULL REFERENCES groups(group_id) ON DELETE CASCADE,
					resource_name TEXT NOT NULL,
					public INTEGER NOT NULL DEFAULT 0
				);

				CREATE TABLE IF NOT EXISTS resource_data (
					resource_id TEXT NOT NULL REFERENCES resources(resource_id) ON DELETE CASCADE,
					dataset_type TEXT NOT NULL,
					dataset_name TEXT NOT NULL,
					PRIMARY KEY (resource_id, dataset_type, dataset_name)
				);
			`,
		},
		{
			Version:     5,
			Description: "Create oauth2 tables",
			SQL: `
				CREATE TABLE IF NOT EXISTS oauth2_clients (
					client_id TEXT PRIMARY KEY,
					client_name TEXT NOT NULL
				);

				CREATE TABLE IF NOT EXISTS oauth2_tokens (
					token_id TEXT PRIMARY KEY,
					token_hash TEXT NOT NULL UNIQUE,
					client_id TEXT NOT NULL REFERENCES oauth2_clients(client_id) ON DELETE CASCADE,
					user_id TEXT NOT NULL REFERENCES users(user_id) ON DELETE CASCADE,
					scope TEXT NOT NULL DEFAULT '',
					issued_at INTEGER NOT NULL,
					expires_at INTEGER NOT NULL,
					revoked INTEGER NOT NULL DEFAULT 0
				);
			`,
		},
		{
			Version:     6,
			Description: "Create linked_group_data audit table",
			SQL: `
				CREATE TABLE IF NOT EXISTS linked_group_data (
					group_id TEXT NOT NULL REFERENCES groups(group_id) ON DELETE CASCADE,
					dataset_type TEXT NOT NULL,
					dataset_or_trait_id TEXT NOT NULL,
					dataset_name TEXT NOT NULL,
					dataset_fullname TEXT NOT NULL,
					accession_id TEXT,
					UNIQUE (group_id, dataset_type, dataset_name)
				);
			`,
		},
		{
			Version:     7,
			Description: "Seed built-in roles",
			SQL: `
				INSERT OR IGNORE INTO privileges(privilege_id, privilege_description) VALUES
					('system:group:create-group', 'Create a group'),
					('group:resource:create-resource', 'Create a resource'),
					('group:resource:view-resource', 'View a resource and its data'),
					('group:resource:edit-resource', 'Edit a resource'),
					('group:user:add-group-member', 'Add a user to a group'),
					('group:role:create-role', 'Create a role within a group');

				INSERT OR IGNORE INTO roles(role_id, role_name, group_id) VALUES
					('ade7e6b0-ba9c-4b51-87d0-2af7fe39a347', 'group-creator', NULL),
					('a0e67630-d502-4b9f-b23f-6805d0f30e30', 'group-leader', NULL);

				INSERT OR IGNORE INTO role_privileges(role_id, privilege_id) VALUES
					('ade7e6b0-ba9c-4b51-87d0-2af7fe39a347', 'system:group:create-group'),
					('a0e67630-d502-4b9f-b23f-6805d0f30e30', 'group:resource:create-resource'),
					('a0e67630-d502-4b9f-b23f-6805d0f30e30', 'group:resource:view-resource'),
					('a0e67630-d502-4b9f-b23f-6805d0f30e30', 'group:resource:edit-resource'),
					('a0e67630-d502-4b9f-b23f-6805d0f30e30', 'group:user:add-group-member'),
					('a0e67630-d502-4b9f-b23f-6805d0f30e30', 'group:role:create-role');
			`,
		},
	}
}

// RunMigrations applies all pending schema migrations, recording each one
// in auth_migrations.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS auth_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	rows, err := db.QueryContext(ctx, "SELECT version FROM auth_migrations ORDER BY version")
	if err != nil {
		return fmt.Errorf("failed to query migrations: %w", err)
	}
	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	for _, migration := range Migrations() {
		if applied[migration.Version] {
			continue
		}
		err := WithTransaction(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", migration.Version, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO auth_migrations (version, description) VALUES (?, ?)",
				migration.Version, migration.Description,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}
