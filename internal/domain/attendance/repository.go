package attendance

import (
	"context"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// Repository defines storage operations on a subject's attendance partition.
type Repository interface {
	// Put writes the record for its day and reports whether a prior record
	// was replaced. When overwrite is false and a record for the day
	// already exists, returns ErrDuplicateRecord with the existing record
	// untouched.
	Put(ctx context.Context, h partition.Handle, r *Record, overwrite bool) (replaced bool, err error)

	// Get returns the record for one day.
	// Returns ErrAttendanceNotFound if absent.
	Get(ctx context.Context, h partition.Handle, day shared.Day) (*Record, error)

	// ListDays returns the days that have a record, newest first, capped at
	// limit (0 means no cap).
	ListDays(ctx context.Context, h partition.Handle, limit int) ([]shared.Day, error)
}
