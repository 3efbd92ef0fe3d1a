// Package resources owns the authorisation-relevant wrappers around
// datasets: resource records tagged with an owning group and a
// public/private flag, plus the lazy data-enrichment step.
package resources

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/genenetwork/gn-auth/pkg/auth"
)

// DataItem is one dataset attached to a resource. DatasetType carries the
// long-form label ("mRNA", "Genotype", "Phenotype").
type DataItem struct {
	DatasetType string `json:"dataset_type"`
	DatasetName string `json:"dataset_name"`
}

// Resource wraps one or more datasets for authorisation purposes. A public
// resource bypasses role checks entirely for the read privilege.
type Resource struct {
	ResourceID   uuid.UUID  `json:"resource_id"`
	GroupID      uuid.UUID  `json:"group_id"`
	ResourceName string     `json:"resource_name"`
	Public       bool       `json:"public"`
	Data         []DataItem `json:"resource_data"`
}

// Store reads and writes resource records in the authorisation store.
type Store struct {
	db *sql.DB
}

// NewStore creates a resource store over the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// CreateResource inserts a new resource row.
func (s *Store) CreateResource(ctx context.Context, resource Resource) error {
	public := 0
	if resource.Public {
		public = 1
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO resources(resource_id, group_id, resource_name, public) VALUES (?, ?, ?, ?)",
		resource.ResourceID.String(), resource.GroupID.String(), resource.ResourceName, public)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

// ResourceByID fetches a single resource. Returns NotFoundError when absent.
func (s *Store) ResourceByID(ctx context.Context, resourceID uuid.UUID) (Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT resource_id, group_id, resource_name, public FROM resources WHERE resource_id = ?",
		resourceID.String())
	if err != nil {
		return Resource{}, fmt.Errorf("failed to fetch resource: %w", err)
	}
	resources, err := collectResources(rows)
	if err != nil {
		return Resource{}, err
	}
	if len(resources) == 0 {
		return Resource{}, auth.NewNotFoundError("no resource with id %q", resourceID)
	}
	return resources[0], nil
}

// UserResources lists the resources owned by the groups the user belongs
// to. Data is not attached; call AttachData for enrichment.
func (s *Store) UserResources(ctx context.Context, user auth.User) ([]Resource, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.resource_id, r.group_id, r.resource_name, r.public
		FROM resources r
		JOIN group_users gu ON gu.group_id = r.group_id
		WHERE gu.user_id = ?`,
		user.UserID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user resources: %w", err)
	}
	return collectResources(rows)
}

// PublicResources lists every resource flagged public.
func (s *Store) PublicResources(ctx context.Context) ([]Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT resource_id, group_id, resource_name, public FROM resources WHERE public = 1")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch public resources: %w", err)
	}
	return collectResources(rows)
}

// AttachData enriches resources with their ordered resource_data rows in a
// single batched query. Resources with no data keep a nil Data slice.
func (s *Store) AttachData(ctx context.Context, resources []Resource) ([]Resource, error) {
	if len(resources) == 0 {
		return resources, nil
	}

	placeholders := make([]string, len(resources))
	args := make([]interface{}, len(resources))
	index := make(map[uuid.UUID]int, len(resources))
	for i, resource := range resources {
		placeholders[i] = "?"
		args[i] = resource.ResourceID.String()
		index[resource.ResourceID] = i
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT resource_id, dataset_type, dataset_name
		FROM resource_data
		WHERE resource_id IN (%s)
		ORDER BY resource_id, dataset_type, dataset_name`,
		strings.Join(placeholders, ", ")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resource data: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rawID string
		var item DataItem
		if err := rows.Scan(&rawID, &item.DatasetType, &item.DatasetName); err != nil {
			return nil, fmt.Errorf("failed to scan resource data: %w", err)
		}
		resourceID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("corrupt resource id %q: %w", rawID, err)
		}
		if i, ok := index[resourceID]; ok {
			resources[i].Data = append(resources[i].Data, item)
		}
	}
	return resources, rows.Err()
}

// AttachDataItem links one dataset to a resource. Idempotent.
func (s *Store) AttachDataItem(ctx context.Context, resourceID uuid.UUID, item DataItem) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO resource_data(resource_id, dataset_type, dataset_name) VALUES (?, ?, ?)",
		resourceID.String(), item.DatasetType, item.DatasetName)
	if err != nil {
		return fmt.Errorf("failed to attach resource data: %w", err)
	}
	return nil
}

func collectResources(rows *sql.Rows) ([]Resource, error) {
	defer rows.Close()
	var resources []Resource
	for rows.Next() {
		var resource Resource
		var rawResourceID, rawGroupID string
		var public int
		if err := rows.Scan(&rawResourceID, &rawGroupID, &resource.ResourceName, &public); err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resourceID, err := uuid.Parse(rawResourceID)
		if err != nil {
			return nil, fmt.Errorf("corrupt resource id %q: %w", rawResourceID, err)
		}
		groupID, err := uuid.Parse(rawGroupID)
		if err != nil {
			return nil, fmt.Errorf("corrupt group id %q: %w", rawGroupID, err)
		}
		resource.ResourceID = resourceID
		resource.GroupID = groupID
		resource.Public = public != 0
		resources = append(resources, resource)
	}
	return resources, rows.Err()
}
