// Package roles maps (user, resource) onto granted privilege sets via role
// assignment and the role catalogue.
package roles

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/groups"
)

// Built-in role names.
const (
	RoleGroupCreator = "group-creator"
	RoleGroupLeader  = "group-leader"
)

// Role is a named, group-scoped bundle of privileges. A nil GroupID marks a
// system-wide catalogue entry; group-scoped definitions shadow system-wide
// ones of the same name.
type Role struct {
	RoleID     uuid.UUID  `json:"role_id"`
	RoleName   string     `json:"role_name"`
	GroupID    *uuid.UUID `json:"group_id,omitempty"`
	Privileges []string   `json:"privileges"`
}

// catalogueCacheSize bounds the role-definition cache. The catalogue is
// read-mostly; definitions only change on explicit catalogue writes.
const catalogueCacheSize = 256

// Engine evaluates role-based grants against the authorisation store.
type Engine struct {
	db        *sql.DB
	catalogue *lru.Cache[string, Role]
}

// NewEngine creates a role engine over the given database handle.
func NewEngine(db *sql.DB) (*Engine, error) {
	cache, err := lru.New[string, Role](catalogueCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalogue cache: %w", err)
	}
	return &Engine{db: db, catalogue: cache}, nil
}

func catalogueKey(roleName string, groupID *uuid.UUID) string {
	if groupID == nil {
		return roleName
	}
	return roleName + "@" + groupID.String()
}

// RoleByName resolves a role name against the group's catalogue. The
// group-scoped definition wins over a system-wide one of the same name.
// Returns NotFoundError for undefined names.
func (e *Engine) RoleByName(ctx context.Context, roleName string, groupID *uuid.UUID) (Role, error) {
	key := catalogueKey(roleName, groupID)
	if role, ok := e.catalogue.Get(key); ok {
		return role, nil
	}

	var rawGroupID interface{}
	if groupID != nil {
		rawGroupID = groupID.String()
	}
	var role Role
	var rawRoleID string
	var scopedGroup sql.NullString
	err := e.db.QueryRowContext(ctx, `
		SELECT role_id, role_name, group_id
		FROM roles
		WHERE role_name = ? AND (group_id = ? OR group_id IS NULL)
		ORDER BY group_id IS NULL
		LIMIT 1`,
		roleName, rawGroupID,
	).Scan(&rawRoleID, &role.RoleName, &scopedGroup)
	if err == sql.ErrNoRows {
		return Role{}, auth.NewNotFoundError("no role named %q in the catalogue", roleName)
	}
	if err != nil {
		return Role{}, fmt.Errorf("failed to resolve role %q: %w", roleName, err)
	}

	if role.RoleID, err = uuid.Parse(rawRoleID); err != nil {
		return Role{}, fmt.Errorf("corrupt role id %q: %w", rawRoleID, err)
	}
	if scopedGroup.Valid {
		gid, err := uuid.Parse(scopedGroup.String)
		if err != nil {
			return Role{}, fmt.Errorf("corrupt group id %q: %w", scopedGroup.String, err)
		}
		role.GroupID = &gid
	}
	if role.Privileges, err = e.rolePrivileges(ctx, role.RoleID); err != nil {
		return Role{}, err
	}

	e.catalogue.Add(key, role)
	return role, nil
}

func (e *Engine) rolePrivileges(ctx context.Context, roleID uuid.UUID) ([]string, error) {
	rows, err := e.db.QueryContext(ctx,
		"SELECT privilege_id FROM role_privileges WHERE role_id = ? ORDER BY privilege_id",
		roleID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch role privileges: %w", err)
	}
	defer rows.Close()

	var privileges []string
	for rows.Next() {
		var privilege string
		if err := rows.Scan(&privilege); err != nil {
			return nil, fmt.Errorf("failed to scan privilege: %w", err)
		}
		privileges = append(privileges, privilege)
	}
	return privileges, rows.Err()
}

// DefineRole adds a role with its privileges to the catalogue and
// invalidates the cached definition.
func (e *Engine) DefineRole(ctx context.Context, role Role) error {
	var groupID interface{}
	if role.GroupID != nil {
		groupID = role.GroupID.String()
	}
	_, err := e.db.ExecContext(ctx,
		"INSERT INTO roles(role_id, role_name, group_id) VALUES (?, ?, ?)",
		role.RoleID.String(), role.RoleName, groupID)
	if err != nil {
		return fmt.Errorf("failed to define role: %w", err)
	}
	for _, privilege := range role.Privileges {
		if _, err := e.db.ExecContext(ctx,
			"INSERT OR IGNORE INTO privileges(privilege_id) VALUES (?)", privilege); err != nil {
			return fmt.Errorf("failed to register privilege: %w", err)
		}
		if _, err := e.db.ExecContext(ctx,
			"INSERT INTO role_privileges(role_id, privilege_id) VALUES (?, ?)",
			role.RoleID.String(), privilege); err != nil {
			return fmt.Errorf("failed to link privilege: %w", err)
		}
	}
	e.catalogue.Remove(catalogueKey(role.RoleName, role.GroupID))
	return nil
}

// AssignRoleByName idempotently grants the named role to the user on the
// group. Fails with NotFoundError if the name is undefined for the group's
// catalogue.
func (e *Engine) AssignRoleByName(ctx context.Context, user auth.User, group groups.Group, roleName string) error {
	role, err := e.RoleByName(ctx, roleName, &group.GroupID)
	if err != nil {
		return err
	}
	_, err = e.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO user_roles(user_id, role_id, group_id) VALUES (?, ?, ?)",
		user.UserID.String(), role.RoleID.String(), group.GroupID.String())
	if err != nil {
		return fmt.Errorf("failed to assign role %q: %w", roleName, err)
	}
	return nil
}

// RevokeRoleByName removes the named role from the user if present. A
// missing assignment is a no-op, not an error; other roles are untouched.
func (e *Engine) RevokeRoleByName(ctx context.Context, user auth.User, roleName string) error {
	_, err := e.db.ExecContext(ctx, `
		DELETE FROM user_roles
		WHERE user_id = ?
		  AND role_id IN (SELECT role_id FROM roles WHERE role_name = ?)`,
		user.UserID.String(), roleName)
	if err != nil {
		return fmt.Errorf("failed to revoke role %q: %w", roleName, err)
	}
	return nil
}

// PrivilegesOf returns, for each resource id, the privilege set derivable
// from the user's roles on the resource's owning group. Resources where the
// user holds no role map to an empty set, never an error.
func (e *Engine) PrivilegesOf(ctx context.Context, user auth.User, resourceIDs []uuid.UUID) (map[uuid.UUID][]string, error) {
	privileges := make(map[uuid.UUID][]string, len(resourceIDs))
	for _, id := range resourceIDs {
		privileges[id] = nil
	}
	if len(resourceIDs) == 0 {
		return privileges, nil
	}

	placeholders := make([]string, len(resourceIDs))
	args := []interface{}{user.UserID.String()}
	for i, id := range resourceIDs {
		placeholders[i] = "?"
		args = append(args, id.String())
	}

	rows, err := e.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT DISTINCT r.resource_id, rp.privilege_id
		FROM resources r
		JOIN user_roles ur ON ur.group_id = r.group_id AND ur.user_id = ?
		JOIN role_privileges rp ON rp.role_id = ur.role_id
		WHERE r.resource_id IN (%s)
		ORDER BY r.resource_id, rp.privilege_id`,
		strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query privileges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawID, privilege string
		if err := rows.Scan(&rawID, &privilege); err != nil {
			return nil, fmt.Errorf("failed to scan privilege row: %w", err)
		}
		resourceID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("corrupt resource id %q: %w", rawID, err)
		}
		privileges[resourceID] = append(privileges[resourceID], privilege)
	}
	return privileges, rows.Err()
}
