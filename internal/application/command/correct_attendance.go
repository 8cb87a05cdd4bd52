package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// CORRECT ATTENDANCE COMMAND
// Flips one student's mark on an existing record, for after-the-fact fixes
// ("was marked absent but was present"). The full record is rewritten with
// the overwritten flag set, same as a bulk overwrite.
// ══════════════════════════════════════════════════════════════════════════════

// CorrectAttendanceCommand flips one student's presence on a recorded day.
type CorrectAttendanceCommand struct {
	Stream     shared.Stream
	Period     shared.Period
	Subject    string
	Day        shared.Day
	ExternalID string

	// Present is the corrected state for the student.
	Present bool
}

// CorrectAttendanceHandler handles the CorrectAttendanceCommand.
type CorrectAttendanceHandler struct {
	router     partition.Router
	students   student.Repository
	attendance attendance.Repository
	publisher  shared.EventPublisher
}

// NewCorrectAttendanceHandler creates a CorrectAttendanceHandler.
func NewCorrectAttendanceHandler(
	router partition.Router,
	students student.Repository,
	att attendance.Repository,
	publisher shared.EventPublisher,
) *CorrectAttendanceHandler {
	return &CorrectAttendanceHandler{
		router:     router,
		students:   students,
		attendance: att,
		publisher:  publisher,
	}
}

// Handle applies the correction.
func (h *CorrectAttendanceHandler) Handle(ctx context.Context, cmd CorrectAttendanceCommand) (*attendance.Record, error) {
	if cmd.Subject == "" || cmd.ExternalID == "" {
		return nil, errors.New("correct_attendance: subject and external_id are required")
	}
	if !cmd.Day.IsValid() {
		return nil, shared.WrapError("command", "CorrectAttendance", shared.ErrInvalidFormat, "day must be YYYY-MM-DD", nil)
	}

	attendanceHandle, err := h.router.Resolve(ctx, partition.AttendanceKey(cmd.Stream, cmd.Period, cmd.Subject))
	if err != nil {
		return nil, err
	}
	record, err := h.attendance.Get(ctx, attendanceHandle, cmd.Day)
	if err != nil {
		return nil, err
	}

	// The student must exist in the period's roster and be eligible for the
	// record's language scope; corrections follow the same strictness as the
	// original write.
	studentHandle, err := h.router.Resolve(ctx, partition.StudentsKey(cmd.Stream, cmd.Period))
	if err != nil {
		return nil, err
	}
	s, err := h.students.GetByExternalID(ctx, studentHandle, student.ExternalID(cmd.ExternalID))
	if err != nil {
		return nil, err
	}
	if !s.Active {
		return nil, shared.ErrStudentNotActive
	}
	if !s.EligibleFor(record.Language) {
		return nil, shared.WrapError("command", "CorrectAttendance", shared.ErrIneligibleStudent,
			fmt.Sprintf("student %s is not eligible for subject %q", s.ExternalID, record.Subject), nil)
	}

	id := s.ExternalID
	present := record.PresentSet()
	_, wasPresent := present[id]
	if wasPresent == cmd.Present {
		// Already in the requested state; nothing to rewrite.
		return record, nil
	}

	if cmd.Present {
		record.PresentIDs = append(record.PresentIDs, id)
	} else {
		kept := record.PresentIDs[:0]
		for _, pid := range record.PresentIDs {
			if pid != id {
				kept = append(kept, pid)
			}
		}
		record.PresentIDs = kept
	}

	corrected, err := attendance.NewRecord(record.Day, record.Subject, record.Stream, record.Period,
		record.PresentIDs, record.EligibleCount, record.Language, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	replaced, err := h.attendance.Put(ctx, attendanceHandle, corrected, true)
	if err != nil {
		return nil, err
	}
	corrected.Overwritten = replaced

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewAttendanceCorrectedEvent(
			corrected.Stream, corrected.Period, corrected.Subject, corrected.Day,
			id.String(), cmd.Present))
	}
	return corrected, nil
}
