// Package notification contains the absence-notification model: the dispatch
// log that backs the dedup gate, per-student dispatch outcomes, and the
// message templates sent to guardians.
package notification

import (
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOG ENTRY
// ══════════════════════════════════════════════════════════════════════════════

// Status tracks a log entry through a dispatch run. A claimed entry blocks
// concurrent dispatchers; a completed entry blocks repeat dispatch until
// force-overridden.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Initiator records how a dispatch run was started.
type Initiator string

const (
	InitiatorManual Initiator = "manual"
	InitiatorForced Initiator = "forced"
)

// StudentOutcome is the per-student result of one dispatch attempt. Failures
// are accounted here and nowhere else; they never abort the batch.
type StudentOutcome struct {
	StudentID      student.ExternalID        `json:"student_id"`
	DisplayName    string                    `json:"display_name"`
	Contact        student.GuardianContact   `json:"contact"`
	Classification attendance.Classification `json:"classification"`
	Success        bool                      `json:"success"`
	DispatchID     string                    `json:"dispatch_id,omitempty"`
	Error          string                    `json:"error,omitempty"`
	AttemptedAt    time.Time                 `json:"attempted_at"`
}

// LogEntry is the process-wide dispatch log record for one consolidation
// scope (day, stream, period). It is written even when zero students need
// notifying, so "already dispatched" checks stay meaningful for all-present
// days too.
type LogEntry struct {
	Day    shared.Day
	Stream shared.Stream
	Period shared.Period

	Status    Status
	Initiator Initiator
	BatchID   string

	SentCount       int
	FailedCount     int
	FullDayCount    int
	PartialDayCount int

	Outcomes []StudentOutcome

	StartedAt   time.Time
	CompletedAt time.Time
}

// NewClaim builds the in-progress placeholder written atomically before
// dispatch work starts.
func NewClaim(day shared.Day, stream shared.Stream, period shared.Period, batchID string, initiator Initiator, at time.Time) *LogEntry {
	return &LogEntry{
		Day:       day,
		Stream:    stream.Normalized(),
		Period:    period,
		Status:    StatusInProgress,
		Initiator: initiator,
		BatchID:   batchID,
		StartedAt: at,
	}
}

// RecordOutcome appends one dispatch attempt and updates the counters.
func (e *LogEntry) RecordOutcome(o StudentOutcome) {
	e.Outcomes = append(e.Outcomes, o)
	if o.Success {
		e.SentCount++
	} else {
		e.FailedCount++
	}
	switch o.Classification {
	case attendance.ClassFullDay:
		e.FullDayCount++
	case attendance.ClassPartialDay:
		e.PartialDayCount++
	}
}

// MarkCompleted finalizes the entry.
func (e *LogEntry) MarkCompleted(at time.Time) {
	e.Status = StatusCompleted
	e.CompletedAt = at
}

// BlocksDispatch reports whether this entry stops a non-forced dispatch.
// Any completed entry blocks, including zero-send entries for all-present
// days; an in-progress claim blocks concurrent dispatchers for the same key.
func (e *LogEntry) BlocksDispatch() bool {
	return e.Status == StatusCompleted || e.Status == StatusInProgress
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCH REPORT
// ══════════════════════════════════════════════════════════════════════════════

// DispatchReport is the caller-facing result of a dispatch request.
type DispatchReport struct {
	// AlreadyDispatched is true when the dedup gate short-circuited: the
	// entry below is the prior run's record and no new work was performed.
	AlreadyDispatched bool

	Entry *LogEntry
}
