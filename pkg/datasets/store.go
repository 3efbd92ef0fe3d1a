package datasets

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Record is one dataset row from the datasets database, in the shape the
// ungrouped-data query returns.
type Record struct {
	ID          string `json:"Id"`
	Name        string `json:"Name"`
	FullName    string `json:"FullName"`
	AccessionID string `json:"accession_id"`
}

// Store queries the main datasets database (the collaborator holding the
// actual dataset catalogue, distinct from the authorisation store).
type Store struct {
	db *sql.DB
}

// NewStore creates a dataset store over an open datasets database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Connect opens the datasets database and verifies reachability.
func Connect(sqlURI string) (*Store, error) {
	db, err := sql.Open("postgres", sqlURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open datasets database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("datasets database not reachable: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// categoryQueries maps each dataset type onto the catalogue query for its
// category. Accession ids live in the info_files side table keyed by the
// dataset name.
var categoryQueries = map[DatasetType]string{
	ProbeSet: `
		SELECT p.dataset_id, p.name, p.full_name, COALESCE(i.accession_id, '')
		FROM probeset_freeze p
		LEFT JOIN info_files i ON i.info_page_name = p.name`,
	Geno: `
		SELECT g.dataset_id, g.name, g.full_name, COALESCE(i.accession_id, '')
		FROM geno_freeze g
		LEFT JOIN info_files i ON i.info_page_name = g.name`,
	Publish: `
		SELECT p.dataset_id, p.name, p.full_name, COALESCE(i.accession_id, '')
		FROM publish_freeze p
		LEFT JOIN info_files i ON i.info_page_name = p.name`,
}

// ByCategory fetches every dataset record in the given type's category.
func (s *Store) ByCategory(ctx context.Context, t DatasetType) ([]Record, error) {
	query, ok := categoryQueries[t]
	if !ok {
		return nil, fmt.Errorf("no catalogue query for dataset type %s", t)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s datasets: %w", t.Category(), err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var record Record
		if err := rows.Scan(&record.ID, &record.Name, &record.FullName, &record.AccessionID); err != nil {
			return nil, fmt.Errorf("failed to scan dataset record: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Ungrouped returns the records in the given type's category that are not
// yet linked to any group in the authorisation store.
func (s *Store) Ungrouped(ctx context.Context, authDB *sql.DB, t DatasetType) ([]Record, error) {
	records, err := s.ByCategory(ctx, t)
	if err != nil {
		return nil, err
	}

	rows, err := authDB.QueryContext(ctx,
		"SELECT dataset_name FROM linked_group_data WHERE dataset_type = ?",
		t.LongForm())
	if err != nil {
		return nil, fmt.Errorf("failed to query linked data: %w", err)
	}
	defer rows.Close()

	linked := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan linked dataset name: %w", err)
		}
		linked[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ungrouped := records[:0]
	for _, record := range records {
		if !linked[record.Name] {
			ungrouped = append(ungrouped, record)
		}
	}
	return ungrouped, nil
}
