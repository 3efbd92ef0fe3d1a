package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/genenetwork/gn-auth/pkg/authdb"
)

// LinkedData is one immutable dataset-to-group link written by the
// migration pipeline. Rows are created once and never updated.
type LinkedData struct {
	GroupID          uuid.UUID `json:"group_id"`
	DatasetType      string    `json:"dataset_type"`
	DatasetOrTraitID string    `json:"dataset_or_trait_id"`
	DatasetName      string    `json:"dataset_name"`
	DatasetFullName  string    `json:"dataset_fullname"`
	AccessionID      string    `json:"accession_id"`
}

// insertLinked bulk-inserts the link rows over one scoped connection. The
// unique constraint on (group_id, dataset_type, dataset_name) plus OR IGNORE
// keeps reruns idempotent.
func (c *Coordinator) insertLinked(ctx context.Context, rows []LinkedData) error {
	if len(rows) == 0 {
		return nil
	}
	return authdb.WithConnection(ctx, c.authDB, func(conn *sql.Conn) error {
		stmt, err := conn.PrepareContext(ctx, `
			INSERT OR IGNORE INTO linked_group_data
				(group_id, dataset_type, dataset_or_trait_id,
				 dataset_name, dataset_fullname, accession_id)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare link insert: %w", err)
		}
		defer stmt.Close()

		for _, row := range rows {
			if _, err := stmt.ExecContext(ctx,
				row.GroupID.String(), row.DatasetType, row.DatasetOrTraitID,
				row.DatasetName, row.DatasetFullName, row.AccessionID); err != nil {
				return fmt.Errorf("failed to link dataset %q: %w", row.DatasetName, err)
			}
		}
		return nil
	})
}
