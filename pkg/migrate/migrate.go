// Package migrate moves user accounts and their dataset links from the
// legacy key-value registry into the authorisation store.
//
// The pipeline is deliberately not wrapped in a single transaction: each
// step is idempotent, so a failed run can simply be retried and picks up
// where the previous one stopped.
package migrate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/datasets"
	"github.com/genenetwork/gn-auth/pkg/groups"
	"github.com/genenetwork/gn-auth/pkg/observability"
	"github.com/genenetwork/gn-auth/pkg/roles"
)

// Coordinator runs the migration pipeline against the authorisation store,
// the dataset catalogue and the legacy registry.
type Coordinator struct {
	authDB  *sql.DB
	users   *auth.UserStore
	groups  *groups.Store
	roles   *roles.Engine
	catalog *datasets.Store
	legacy  *datasets.LegacyStore
	metrics *observability.Metrics
	log     *logrus.Logger
	now     func() time.Time
}

// NewCoordinator wires a migration coordinator. metrics may be nil in tests.
func NewCoordinator(
	authDB *sql.DB,
	users *auth.UserStore,
	groupStore *groups.Store,
	engine *roles.Engine,
	catalog *datasets.Store,
	legacy *datasets.LegacyStore,
	metrics *observability.Metrics,
	log *logrus.Logger,
) *Coordinator {
	if log == nil {
		log = logrus.New()
	}
	return &Coordinator{
		authDB:  authDB,
		users:   users,
		groups:  groupStore,
		roles:   engine,
		catalog: catalog,
		legacy:  legacy,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// Result is the outcome of one migration run.
type Result struct {
	Description string       `json:"description"`
	User        auth.User    `json:"user"`
	Group       groups.Group `json:"group"`
	Linked      []LinkedData `json:"-"`
}

// Migrate runs the full pipeline for one user: validation, account
// migration, home group creation and dataset linking.
func (c *Coordinator) Migrate(ctx context.Context, req Request) (Result, error) {
	userID, err := req.Validate()
	if err != nil {
		c.countRun("invalid")
		return Result{}, err
	}

	user, err := c.MigrateUser(ctx, userID, req.Email, req.Username, req.Password)
	if err != nil {
		c.countRun("failed")
		return Result{}, err
	}
	group, err := c.MigrateUserGroup(ctx, user)
	if err != nil {
		c.countRun("failed")
		return Result{}, err
	}
	linked, err := c.MigrateData(ctx, user, group)
	if err != nil {
		c.countRun("failed")
		return Result{}, err
	}

	c.countRun("succeeded")
	c.log.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"group_id": group.GroupID,
		"linked":   len(linked),
	}).Info("migration run completed")
	return Result{
		Description: fmt.Sprintf("Migrated %d resource data items.", len(linked)),
		User:        user,
		Group:       group,
		Linked:      linked,
	}, nil
}

// MigrateUser fetches the user if already migrated, creating the account
// with the given credentials otherwise.
func (c *Coordinator) MigrateUser(ctx context.Context, userID uuid.UUID, email, username, password string) (auth.User, error) {
	user, err := c.users.UserByID(ctx, userID)
	if err == nil {
		return user, nil
	}
	if !auth.IsNotFound(err) {
		return auth.User{}, err
	}

	user = auth.User{UserID: userID, Email: email, Name: username}
	if err := c.users.CreateUser(ctx, user); err != nil {
		return auth.User{}, err
	}
	if err := c.users.SetPassword(ctx, user, password); err != nil {
		return auth.User{}, err
	}
	c.log.WithField("user_id", userID).Info("migrated user account")
	return user, nil
}

// MigrateUserGroup returns the user's home group, creating one when they
// have none. Creation swaps the group-creator role for group-leader.
func (c *Coordinator) MigrateUserGroup(ctx context.Context, user auth.User) (groups.Group, error) {
	group, err := c.groups.UserGroup(ctx, user)
	if err == nil {
		return group, nil
	}
	if !auth.IsNotFound(err) {
		return groups.Group{}, err
	}

	group = groups.Group{
		GroupID:   uuid.New(),
		GroupName: fmt.Sprintf("%s's Group", user.Name),
		Metadata: map[string]string{
			"created": c.now().Format(time.RFC3339),
			"notes":   "Imported from the legacy registry",
		},
	}
	if err := c.groups.CreateGroup(ctx, group); err != nil {
		return groups.Group{}, err
	}
	if err := c.groups.AddUser(ctx, group, user); err != nil {
		return groups.Group{}, err
	}
	if err := c.roles.RevokeRoleByName(ctx, user, roles.RoleGroupCreator); err != nil {
		return groups.Group{}, err
	}
	if err := c.roles.AssignRoleByName(ctx, user, group, roles.RoleGroupLeader); err != nil {
		return groups.Group{}, err
	}
	c.log.WithFields(logrus.Fields{
		"user_id":  user.UserID,
		"group_id": group.GroupID,
	}).Info("created home group for migrated user")
	return group, nil
}

// MigrateData links the user's legacy datasets to their group. Only
// datasets that are still ungrouped and present in the legacy registry
// under the user's ownership are linked; reruns are no-ops.
func (c *Coordinator) MigrateData(ctx context.Context, user auth.User, group groups.Group) ([]LinkedData, error) {
	owned, err := c.legacy.ResourcesOwnedBy(ctx, user.UserID.String())
	if err != nil {
		return nil, err
	}
	ownedByType := datasets.Partition(owned)

	var linked []LinkedData
	for _, t := range datasets.AllTypes() {
		names := make(map[string]bool, len(ownedByType[t]))
		for _, name := range ownedByType[t] {
			names[name] = true
		}
		if len(names) == 0 {
			continue
		}

		ungrouped, err := c.catalog.Ungrouped(ctx, c.authDB, t)
		if err != nil {
			return nil, err
		}
		for _, record := range ungrouped {
			if !names[record.Name] {
				continue
			}
			linked = append(linked, LinkedData{
				GroupID:          group.GroupID,
				DatasetType:      t.LongForm(),
				DatasetOrTraitID: record.ID,
				DatasetName:      record.Name,
				DatasetFullName:  record.FullName,
				AccessionID:      record.AccessionID,
			})
		}
	}

	if err := c.insertLinked(ctx, linked); err != nil {
		return nil, err
	}
	if c.metrics != nil {
		for _, row := range linked {
			c.metrics.MigratedDatasetsTotal.WithLabelValues(row.DatasetType).Inc()
		}
	}
	return linked, nil
}

func (c *Coordinator) countRun(status string) {
	if c.metrics != nil {
		c.metrics.MigrationsTotal.WithLabelValues(status).Inc()
	}
}
