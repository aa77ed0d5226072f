package database

import (
	"context"
	"database/sql"
	"fmt"
)

// CreateGINIndexes creates full-text search GIN indexes not expressed in
// the plain-SQL migrations: operator search over HITL request summaries and
// golden path resolutions (spec §6 "search a tenant's open HITL queue" /
// feedback search).
func CreateGINIndexes(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_hitl_requests_summary_gin
		ON hitl_requests USING gin(to_tsvector('english', summary))`)
	if err != nil {
		return fmt.Errorf("failed to create hitl_requests summary GIN index: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_golden_paths_resolution_gin
		ON golden_paths USING gin(to_tsvector('english', resolution))`)
	if err != nil {
		return fmt.Errorf("failed to create golden_paths resolution GIN index: %w", err)
	}
	return nil
}
