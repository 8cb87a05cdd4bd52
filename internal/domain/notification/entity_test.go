package notification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
)

func TestLogEntry_RecordOutcome(t *testing.T) {
	e := NewClaim("2025-01-15", "bca", 3, "batch-1", InitiatorManual, time.Now())
	assert.Equal(t, StatusInProgress, e.Status)
	assert.Equal(t, "BCA", e.Stream.String())

	e.RecordOutcome(StudentOutcome{StudentID: "S1", Classification: attendance.ClassFullDay, Success: true})
	e.RecordOutcome(StudentOutcome{StudentID: "S2", Classification: attendance.ClassPartialDay, Success: false, Error: "gateway timeout"})

	assert.Equal(t, 1, e.SentCount)
	assert.Equal(t, 1, e.FailedCount)
	assert.Equal(t, 1, e.FullDayCount)
	assert.Equal(t, 1, e.PartialDayCount)
	assert.Len(t, e.Outcomes, 2)
}

func TestLogEntry_BlocksDispatch(t *testing.T) {
	e := NewClaim("2025-01-15", "BCA", 3, "batch-1", InitiatorManual, time.Now())
	assert.True(t, e.BlocksDispatch(), "in-progress claims block concurrent dispatchers")

	e.MarkCompleted(time.Now())
	assert.True(t, e.BlocksDispatch(), "completed entries block even with zero sends")
	assert.Equal(t, StatusCompleted, e.Status)
}

func TestBuildAbsenceMessage_Templates(t *testing.T) {
	full := BuildAbsenceMessage(attendance.AbsenceSummary{
		DisplayName:    "Ravi Kumar",
		Day:            "2025-01-15",
		Classification: attendance.ClassFullDay,
		AbsentSubjects: []string{"Kannada", "Math"},
	})
	assert.Contains(t, full.Body, "absent for the full day")
	assert.Contains(t, full.Body, "Ravi Kumar")

	partial := BuildAbsenceMessage(attendance.AbsenceSummary{
		DisplayName:    "Ravi Kumar",
		Day:            "2025-01-15",
		Classification: attendance.ClassPartialDay,
		AbsentSubjects: []string{"Kannada", "Math"},
	})
	assert.Contains(t, partial.Body, "Kannada, Math")
	assert.NotEqual(t, full.Body, partial.Body)

	present := BuildAbsenceMessage(attendance.AbsenceSummary{Classification: attendance.ClassPresent})
	assert.Empty(t, present.Body)
}
