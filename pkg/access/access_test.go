package access

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/authdb"
	"github.com/genenetwork/gn-auth/pkg/groups"
	"github.com/genenetwork/gn-auth/pkg/resources"
	"github.com/genenetwork/gn-auth/pkg/roles"
)

type fixture struct {
	db       *sql.DB
	service  *Service
	store    *resources.Store
	engine   *roles.Engine
	user     auth.User
	groupID  uuid.UUID
	private  uuid.UUID
	public   uuid.UUID
	orphaned uuid.UUID
}

// setupFixture seeds one user in one group, a private and a public resource
// in that group, and a private resource in an unrelated group. The user
// holds a role granting view-resource on their own group.
func setupFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	db := authdb.OpenTestStore(t)

	f := fixture{
		db:       db,
		store:    resources.NewStore(db),
		user:     auth.User{UserID: uuid.New(), Email: "test@genenetwork.org", Name: "Test User"},
		groupID:  uuid.New(),
		private:  uuid.New(),
		public:   uuid.New(),
		orphaned: uuid.New(),
	}
	engine, err := roles.NewEngine(db)
	if err != nil {
		t.Fatalf("failed to create role engine: %v", err)
	}
	f.engine = engine
	f.service = NewService(engine, f.store, nil)

	otherGroup := uuid.New()
	mustExec(t, db, "INSERT INTO users(user_id, email, name) VALUES (?, ?, ?)",
		f.user.UserID.String(), f.user.Email, f.user.Name)
	mustExec(t, db, "INSERT INTO groups(group_id, group_name) VALUES (?, ?)",
		f.groupID.String(), "Test Group")
	mustExec(t, db, "INSERT INTO groups(group_id, group_name) VALUES (?, ?)",
		otherGroup.String(), "Other Group")
	mustExec(t, db, "INSERT INTO group_users(group_id, user_id) VALUES (?, ?)",
		f.groupID.String(), f.user.UserID.String())

	for _, resource := range []resources.Resource{
		{ResourceID: f.private, GroupID: f.groupID, ResourceName: "private-data"},
		{ResourceID: f.public, GroupID: f.groupID, ResourceName: "public-data", Public: true},
		{ResourceID: f.orphaned, GroupID: otherGroup, ResourceName: "other-data"},
	} {
		if err := f.store.CreateResource(ctx, resource); err != nil {
			t.Fatalf("failed to create resource: %v", err)
		}
	}
	attach := func(id uuid.UUID, datasetType, datasetName string) {
		if err := f.store.AttachDataItem(ctx, id,
			resources.DataItem{DatasetType: datasetType, DatasetName: datasetName}); err != nil {
			t.Fatalf("failed to attach data: %v", err)
		}
	}
	attach(f.private, "mRNA", "HC_M2_0606_P")
	attach(f.public, "Genotype", "BXDGeno")
	attach(f.orphaned, "Phenotype", "OtherPublish")

	viewer := roles.Role{
		RoleID:     uuid.New(),
		RoleName:   "resource-viewer",
		GroupID:    &f.groupID,
		Privileges: []string{PrivilegeViewResource},
	}
	if err := engine.DefineRole(ctx, viewer); err != nil {
		t.Fatalf("failed to define role: %v", err)
	}
	group := groups.Group{GroupID: f.groupID, GroupName: "Test Group"}
	if err := engine.AssignRoleByName(ctx, f.user, group, "resource-viewer"); err != nil {
		t.Fatalf("failed to assign role: %v", err)
	}
	return f
}

func mustExec(t *testing.T, db *sql.DB, query string, args ...interface{}) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("seed query failed: %v", err)
	}
}

func TestAuthorisedFor(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	authorised, err := f.service.AuthorisedFor(ctx, f.user,
		[]string{PrivilegeViewResource},
		[]uuid.UUID{f.private, f.orphaned})
	if err != nil {
		t.Fatalf("AuthorisedFor failed: %v", err)
	}
	if len(authorised) != 2 {
		t.Fatalf("expected one answer per resource, got %d", len(authorised))
	}
	if !authorised[f.private] {
		t.Error("expected access to the group's own resource")
	}
	if authorised[f.orphaned] {
		t.Error("expected no access to another group's resource")
	}
}

func TestAuthorisedForSupersetCheck(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	authorised, err := f.service.AuthorisedFor(ctx, f.user,
		[]string{PrivilegeViewResource, "group:resource:edit-resource"},
		[]uuid.UUID{f.private})
	if err != nil {
		t.Fatalf("AuthorisedFor failed: %v", err)
	}
	if authorised[f.private] {
		t.Error("partial privilege overlap must not authorise")
	}
}

func TestAuthorisedForEmptyInput(t *testing.T) {
	f := setupFixture(t)

	authorised, err := f.service.AuthorisedFor(
		context.Background(), f.user, []string{PrivilegeViewResource}, nil)
	if err != nil {
		t.Fatalf("AuthorisedFor failed: %v", err)
	}
	if len(authorised) != 0 {
		t.Errorf("expected empty map, got %v", authorised)
	}
}

func TestResolveRequestPrivilegesAuthenticated(t *testing.T) {
	f := setupFixture(t)

	result, err := f.service.ResolveRequestPrivileges(
		context.Background(), &f.user,
		[]string{
			"HC_M2_0606_P::1442370_at",
			"BXDGeno::01.001.695",
			"UnknownSet::123",
		})
	if err != nil {
		t.Fatalf("ResolveRequestPrivileges failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("expected 3 items, got %d", len(result))
	}

	if got := result[0].Privileges; len(got) != 1 || got[0] != PrivilegeViewResource {
		t.Errorf("private resource privileges = %v, want view-resource", got)
	}
	if result[0].DatasetType != "mRNA" {
		t.Errorf("dataset type = %q, want mRNA", result[0].DatasetType)
	}
	if result[0].TraitName != "1442370_at" {
		t.Errorf("trait name = %q", result[0].TraitName)
	}

	if got := result[1].Privileges; len(got) != 1 || got[0] != PrivilegePublicRead {
		t.Errorf("public resource privileges = %v, want public-read", got)
	}
	if result[1].DatasetType != "Genotype" {
		t.Errorf("dataset type = %q, want Genotype", result[1].DatasetType)
	}

	if got := result[2].Privileges; len(got) != 0 {
		t.Errorf("unmapped trait privileges = %v, want empty", got)
	}
}

func TestResolveRequestPrivilegesAnonymous(t *testing.T) {
	f := setupFixture(t)

	result, err := f.service.ResolveRequestPrivileges(
		context.Background(), nil,
		[]string{"BXDGeno::01.001.695", "HC_M2_0606_P::1442370_at"})
	if err != nil {
		t.Fatalf("ResolveRequestPrivileges failed: %v", err)
	}

	if got := result[0].Privileges; len(got) != 1 || got[0] != PrivilegePublicRead {
		t.Errorf("public resource privileges = %v, want public-read", got)
	}
	if got := result[1].Privileges; len(got) != 0 {
		t.Errorf("private resource must be invisible anonymously, got %v", got)
	}
}

func TestResolveRequestPrivilegesMalformedTrait(t *testing.T) {
	f := setupFixture(t)

	if _, err := f.service.ResolveRequestPrivileges(
		context.Background(), &f.user, []string{"nodelimiter"}); err == nil {
		t.Error("expected a parse error for a malformed trait name")
	}
}
