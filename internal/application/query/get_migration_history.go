package query

import (
	"context"
	"errors"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET MIGRATION HISTORY QUERY
// Reads a student's promotion lineage from the append-only event store.
// ══════════════════════════════════════════════════════════════════════════════

// GetMigrationHistoryQuery identifies the student.
type GetMigrationHistoryQuery struct {
	ExternalID string
}

// GetMigrationHistoryHandler handles the GetMigrationHistoryQuery.
type GetMigrationHistoryHandler struct {
	migrations student.MigrationLog
}

// NewGetMigrationHistoryHandler creates a GetMigrationHistoryHandler.
func NewGetMigrationHistoryHandler(migrations student.MigrationLog) *GetMigrationHistoryHandler {
	return &GetMigrationHistoryHandler{migrations: migrations}
}

// Handle returns the student's migration events, oldest first. A student
// with no recorded moves yields an empty slice, not an error.
func (h *GetMigrationHistoryHandler) Handle(ctx context.Context, q GetMigrationHistoryQuery) ([]student.MigrationEvent, error) {
	if q.ExternalID == "" {
		return nil, errors.New("get_migration_history: external_id is required")
	}
	return h.migrations.ListByStudent(ctx, student.ExternalID(q.ExternalID).Normalized())
}
