package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/vogonweb/vogon/domain/texts"
)

func init() {
	goose.AddMigrationContext(upBackfillDocumentType, downBackfillDocumentType)
}

func upBackfillDocumentType(ctx context.Context, tx *sql.Tx) error {
	rows, err := tx.QueryContext(ctx, `SELECT id, tokenized_content, COALESCE(document_type, '') FROM texts`)
	if err != nil {
		return fmt.Errorf("select texts: %w", err)
	}

	updates := map[string]string{}
	for rows.Next() {
		var id, tokenized, current string
		if err := rows.Scan(&id, &tokenized, &current); err != nil {
			rows.Close()
			return fmt.Errorf("scan text: %w", err)
		}
		if next := texts.BackfillDocumentType(tokenized, current); next != current {
			updates[id] = next
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for id, docType := range updates {
		if _, err := tx.ExecContext(ctx, `UPDATE texts SET document_type = $1 WHERE id = $2`, docType, id); err != nil {
			return fmt.Errorf("update text %s: %w", id, err)
		}
	}
	return nil
}

// The back-fill is not reversible: earlier document types are not recorded.
func downBackfillDocumentType(context.Context, *sql.Tx) error {
	return nil
}
