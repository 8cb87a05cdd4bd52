package query

import (
	"context"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/notification"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET DISPATCH REPORT QUERY
// Reads the dispatch log entry for one (day, stream, period) without side
// effects, for auditing past runs.
// ══════════════════════════════════════════════════════════════════════════════

// GetDispatchReportQuery identifies one dispatch scope.
type GetDispatchReportQuery struct {
	Stream shared.Stream
	Period shared.Period
	Day    shared.Day
}

// GetDispatchReportHandler handles the GetDispatchReportQuery.
type GetDispatchReportHandler struct {
	log notification.Log
}

// NewGetDispatchReportHandler creates a GetDispatchReportHandler.
func NewGetDispatchReportHandler(log notification.Log) *GetDispatchReportHandler {
	return &GetDispatchReportHandler{log: log}
}

// Handle returns the stored entry.
// Returns ErrDispatchLogNotFound when no run was recorded for the scope.
func (h *GetDispatchReportHandler) Handle(ctx context.Context, q GetDispatchReportQuery) (*notification.LogEntry, error) {
	if !q.Day.IsValid() {
		return nil, shared.WrapError("query", "GetDispatchReport", shared.ErrInvalidFormat, "day must be YYYY-MM-DD", nil)
	}
	return h.log.Get(ctx, q.Day, q.Stream.Normalized(), q.Period)
}
