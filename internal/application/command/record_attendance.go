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
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD ATTENDANCE COMMAND
// Writes one day's attendance for one subject. The eligible population is
// computed at write time from the subject's eligibility tag, and every
// present ID is verified against it before anything is stored.
// ══════════════════════════════════════════════════════════════════════════════

// RecordAttendanceCommand contains one attendance submission.
type RecordAttendanceCommand struct {
	Stream  shared.Stream
	Period  shared.Period
	Subject string
	Day     shared.Day

	// PresentIDs are the external IDs marked present. Everyone eligible and
	// not listed is absent.
	PresentIDs []string

	// Overwrite replaces an existing record for the same day instead of
	// rejecting the write.
	Overwrite bool
}

// Validate validates the command.
func (c RecordAttendanceCommand) Validate() error {
	if !c.Stream.IsValid() {
		return errors.New("record_attendance: stream is required")
	}
	if !c.Period.IsValid() {
		return shared.ErrInvalidPeriod
	}
	if c.Subject == "" {
		return errors.New("record_attendance: subject is required")
	}
	if !c.Day.IsValid() {
		return shared.WrapError("command", "RecordAttendance", shared.ErrInvalidFormat, "day must be YYYY-MM-DD", nil)
	}
	return nil
}

// RecordAttendanceResult contains the stored record and derived counts.
type RecordAttendanceResult struct {
	Record        *attendance.Record
	EligibleCount int
	PresentCount  int
	AbsentCount   int
	Overwritten   bool
}

// RecordAttendanceHandler handles the RecordAttendanceCommand.
type RecordAttendanceHandler struct {
	router     partition.Router
	students   student.Repository
	subjects   subject.Repository
	attendance attendance.Repository
	publisher  shared.EventPublisher
}

// NewRecordAttendanceHandler creates a RecordAttendanceHandler.
func NewRecordAttendanceHandler(
	router partition.Router,
	students student.Repository,
	subjects subject.Repository,
	att attendance.Repository,
	publisher shared.EventPublisher,
) *RecordAttendanceHandler {
	return &RecordAttendanceHandler{
		router:     router,
		students:   students,
		subjects:   subjects,
		attendance: att,
		publisher:  publisher,
	}
}

// Handle executes the attendance write.
func (h *RecordAttendanceHandler) Handle(ctx context.Context, cmd RecordAttendanceCommand) (*RecordAttendanceResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	subjectHandle, err := h.router.Resolve(ctx, partition.SubjectsKey(cmd.Stream, cmd.Period))
	if err != nil {
		return nil, err
	}
	sub, err := h.subjects.GetByName(ctx, subjectHandle, cmd.Subject)
	if err != nil {
		return nil, err
	}

	studentHandle, err := h.router.Resolve(ctx, partition.StudentsKey(cmd.Stream, cmd.Period))
	if err != nil {
		return nil, err
	}
	roster, err := h.students.ListActive(ctx, studentHandle)
	if err != nil {
		return nil, err
	}

	tag := sub.EligibilityTag()
	eligible := make(map[student.ExternalID]struct{}, len(roster))
	for _, s := range roster {
		if s.EligibleFor(tag) {
			eligible[s.ExternalID] = struct{}{}
		}
	}
	if len(eligible) == 0 {
		return nil, shared.ErrNoEligibleStudents
	}

	// Present IDs outside the eligible population are rejected outright: a
	// silent drop would under-report absences for the student's real subjects.
	presentIDs := make([]student.ExternalID, 0, len(cmd.PresentIDs))
	for _, raw := range cmd.PresentIDs {
		id := student.ExternalID(raw).Normalized()
		if _, ok := eligible[id]; !ok {
			return nil, shared.WrapError("command", "RecordAttendance", shared.ErrIneligibleStudent,
				fmt.Sprintf("student %s is not eligible for subject %q", id, sub.Name), nil)
		}
		presentIDs = append(presentIDs, id)
	}

	record, err := attendance.NewRecord(cmd.Day, sub.Name, cmd.Stream, cmd.Period, presentIDs, len(eligible), tag, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	attendanceHandle, err := h.router.Resolve(ctx, partition.AttendanceKey(cmd.Stream, cmd.Period, sub.Name))
	if err != nil {
		return nil, err
	}
	replaced, err := h.attendance.Put(ctx, attendanceHandle, record, cmd.Overwrite)
	if err != nil {
		return nil, err
	}
	record.Overwritten = replaced

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewAttendanceRecordedEvent(
			record.Stream, record.Period, record.Subject, record.Day,
			len(record.PresentIDs), record.EligibleCount, replaced))
	}

	return &RecordAttendanceResult{
		Record:        record,
		EligibleCount: record.EligibleCount,
		PresentCount:  len(record.PresentIDs),
		AbsentCount:   record.AbsentCount(),
		Overwritten:   replaced,
	}, nil
}
