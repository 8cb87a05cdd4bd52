package notification

import (
	"context"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// Log is the process-wide dispatch log. Implementations must make Claim
// atomic with respect to concurrent claims for the same (day, stream,
// period): exactly one caller wins, every loser sees the winner's entry.
// A plain read-then-write is not an acceptable implementation.
type Log interface {
	// Claim atomically inserts the in-progress entry. When a prior entry
	// exists (in progress or completed), claimed is false and the existing
	// entry is returned instead; the claim entry is not written.
	Claim(ctx context.Context, claim *LogEntry) (existing *LogEntry, claimed bool, err error)

	// ForceClaim overwrites any prior entry with the in-progress claim.
	// Used by force-override dispatch; the new run's counts replace the
	// prior entry entirely once completed.
	ForceClaim(ctx context.Context, claim *LogEntry) error

	// Complete rewrites the claimed entry with final counts and outcomes.
	Complete(ctx context.Context, entry *LogEntry) error

	// Release deletes an in-progress claim after a failed run, so the
	// caller can retry. Completed entries are never released.
	Release(ctx context.Context, day shared.Day, stream shared.Stream, period shared.Period) error

	// Get returns the entry for one scope without side effects.
	// Returns ErrDispatchLogNotFound if absent.
	Get(ctx context.Context, day shared.Day, stream shared.Stream, period shared.Period) (*LogEntry, error)
}
