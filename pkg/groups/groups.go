// Package groups owns group records and group membership, including the
// home-group lookup the migration flow depends on.
package groups

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/genenetwork/gn-auth/pkg/auth"
)

// Group is a named collection of users that owns zero or more resources.
type Group struct {
	GroupID   uuid.UUID         `json:"group_id"`
	GroupName string            `json:"group_name"`
	Metadata  map[string]string `json:"group_metadata"`
}

// Store reads and writes group records in the authorisation store.
type Store struct {
	db *sql.DB
}

// NewStore creates a group store over the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GroupByID fetches a group by id. Returns NotFoundError when absent.
func (s *Store) GroupByID(ctx context.Context, groupID uuid.UUID) (Group, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT group_id, group_name, group_metadata FROM groups WHERE group_id = ?",
		groupID.String())
	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return Group{}, auth.NewNotFoundError("no group with id %q", groupID)
	}
	return group, err
}

// UserGroup resolves the group the user belongs to. Absence is an explicit
// NotFoundError, never a sentinel value; a user belongs to at most one
// home group.
func (s *Store) UserGroup(ctx context.Context, user auth.User) (Group, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT g.group_id, g.group_name, g.group_metadata
		FROM groups g
		JOIN group_users gu ON gu.group_id = g.group_id
		WHERE gu.user_id = ?
		LIMIT 1`,
		user.UserID.String())
	group, err := scanGroup(row)
	if err == sql.ErrNoRows {
		return Group{}, auth.NewNotFoundError("user %q belongs to no group", user.UserID)
	}
	return group, err
}

// CreateGroup inserts a new group row.
func (s *Store) CreateGroup(ctx context.Context, group Group) error {
	metadata, err := json.Marshal(group.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal group metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO groups(group_id, group_name, group_metadata) VALUES (?, ?, ?)",
		group.GroupID.String(), group.GroupName, string(metadata))
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}
	return nil
}

// AddUser makes the user a member of the group. Idempotent.
func (s *Store) AddUser(ctx context.Context, group Group, user auth.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO group_users(group_id, user_id) VALUES (?, ?)",
		group.GroupID.String(), user.UserID.String())
	if err != nil {
		return fmt.Errorf("failed to add user to group: %w", err)
	}
	return nil
}

func scanGroup(row *sql.Row) (Group, error) {
	var group Group
	var rawID, rawMetadata string
	if err := row.Scan(&rawID, &group.GroupName, &rawMetadata); err != nil {
		return Group{}, err
	}
	groupID, err := uuid.Parse(rawID)
	if err != nil {
		return Group{}, fmt.Errorf("corrupt group id %q: %w", rawID, err)
	}
	group.GroupID = groupID
	if err := json.Unmarshal([]byte(rawMetadata), &group.Metadata); err != nil {
		return Group{}, fmt.Errorf("corrupt group metadata: %w", err)
	}
	return group, nil
}
