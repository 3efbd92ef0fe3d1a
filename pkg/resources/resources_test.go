package resources

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"

	"github.com/genenetwork/gn-auth/pkg/auth"
	"github.com/genenetwork/gn-auth/pkg/authdb"
)

func seed(t *testing.T, db *sql.DB) (auth.User, uuid.UUID) {
	t.Helper()
	user := auth.User{UserID: uuid.New(), Email: "ada@genenetwork.org", Name: "Ada"}
	if err := auth.NewUserStore(db).CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	groupID := uuid.New()
	if _, err := db.Exec("INSERT INTO groups(group_id, group_name) VALUES (?, ?)",
		groupID.String(), "Ada's Lab"); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}
	if _, err := db.Exec("INSERT INTO group_users(group_id, user_id) VALUES (?, ?)",
		groupID.String(), user.UserID.String()); err != nil {
		t.Fatalf("failed to add membership: %v", err)
	}
	return user, groupID
}

func TestResourceLifecycle(t *testing.T) {
	ctx := context.Background()
	db := authdb.OpenTestStore(t)
	store := NewStore(db)
	_, groupID := seed(t, db)

	resource := Resource{
		ResourceID:   uuid.New(),
		GroupID:      groupID,
		ResourceName: "hippocampus-mrna",
	}
	if err := store.CreateResource(ctx, resource); err != nil {
		t.Fatalf("CreateResource failed: %v", err)
	}

	got, err := store.ResourceByID(ctx, resource.ResourceID)
	if err != nil {
		t.Fatalf("ResourceByID failed: %v", err)
	}
	if got.ResourceName != "hippocampus-mrna" || got.Public {
		t.Errorf("ResourceByID = %+v", got)
	}

	if _, err := store.ResourceByID(ctx, uuid.New()); !auth.IsNotFound(err) {
		t.Errorf("expected NotFoundError, got %v", err)
	}
}

func TestUserAndPublicResources(t *testing.T) {
	ctx := context.Background()
	db := authdb.OpenTestStore(t)
	store := NewStore(db)
	user, groupID := seed(t, db)

	otherGroup := uuid.New()
	if _, err := db.Exec("INSERT INTO groups(group_id, group_name) VALUES (?, ?)",
		otherGroup.String(), "Elsewhere"); err != nil {
		t.Fatalf("failed to create group: %v", err)
	}

	mine := Resource{ResourceID: uuid.New(), GroupID: groupID, ResourceName: "mine"}
	minePublic := Resource{ResourceID: uuid.New(), GroupID: groupID, ResourceName: "mine-public", Public: true}
	foreign := Resource{ResourceID: uuid.New(), GroupID: otherGroup, ResourceName: "foreign", Public: true}
	for _, r := range []Resource{mine, minePublic, foreign} {
		if err := store.CreateResource(ctx, r); err != nil {
			t.Fatalf("CreateResource failed: %v", err)
		}
	}

	owned, err := store.UserResources(ctx, user)
	if err != nil {
		t.Fatalf("UserResources failed: %v", err)
	}
	if len(owned) != 2 {
		t.Errorf("expected 2 group resources, got %d", len(owned))
	}

	public, err := store.PublicResources(ctx)
	if err != nil {
		t.Fatalf("PublicResources failed: %v", err)
	}
	if len(public) != 2 {
		t.Errorf("expected 2 public resources, got %d", len(public))
	}
	for _, r := range public {
		if !r.Public {
			t.Errorf("non-public resource %q in public listing", r.ResourceName)
		}
	}
}

func TestAttachData(t *testing.T) {
	ctx := context.Background()
	db := authdb.OpenTestStore(t)
	store := NewStore(db)
	_, groupID := seed(t, db)

	withData := Resource{ResourceID: uuid.New(), GroupID: groupID, ResourceName: "with-data"}
	empty := Resource{ResourceID: uuid.New(), GroupID: groupID, ResourceName: "empty"}
	for _, r := range []Resource{withData, empty} {
		if err := store.CreateResource(ctx, r); err != nil {
			t.Fatalf("CreateResource failed: %v", err)
		}
	}

	item := DataItem{DatasetType: "Genotype", DatasetName: "BXDGeno"}
	if err := store.AttachDataItem(ctx, withData.ResourceID, item); err != nil {
		t.Fatalf("AttachDataItem failed: %v", err)
	}
	// Idempotent on the (resource, type, name) key.
	if err := store.AttachDataItem(ctx, withData.ResourceID, item); err != nil {
		t.Fatalf("repeated AttachDataItem failed: %v", err)
	}

	enriched, err := store.AttachData(ctx, []Resource{withData, empty})
	if err != nil {
		t.Fatalf("AttachData failed: %v", err)
	}
	if len(enriched[0].Data) != 1 || enriched[0].Data[0] != item {
		t.Errorf("enriched data = %+v", enriched[0].Data)
	}
	if enriched[1].Data != nil {
		t.Errorf("resource without data must keep a nil slice, got %v", enriched[1].Data)
	}
}
