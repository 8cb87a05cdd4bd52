package query

import (
	"context"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER QUERIES
// Read-only views of one (stream, period): active students and subjects,
// plus the recorded attendance days of a subject.
// ══════════════════════════════════════════════════════════════════════════════

// GetRosterQuery identifies one cohort partition.
type GetRosterQuery struct {
	Stream shared.Stream
	Period shared.Period
}

// Roster is the cohort view: who studies what.
type Roster struct {
	Students []*student.Student
	Subjects []*subject.Subject
}

// GetRosterHandler handles the GetRosterQuery.
type GetRosterHandler struct {
	router   partition.Router
	students student.Repository
	subjects subject.Repository
}

// NewGetRosterHandler creates a GetRosterHandler.
func NewGetRosterHandler(router partition.Router, students student.Repository, subjects subject.Repository) *GetRosterHandler {
	return &GetRosterHandler{router: router, students: students, subjects: subjects}
}

// Handle returns the cohort's active students and subjects.
func (h *GetRosterHandler) Handle(ctx context.Context, q GetRosterQuery) (*Roster, error) {
	studentHandle, err := h.router.Resolve(ctx, partition.StudentsKey(q.Stream, q.Period))
	if err != nil {
		return nil, err
	}
	students, err := h.students.ListActive(ctx, studentHandle)
	if err != nil {
		return nil, err
	}

	subjectHandle, err := h.router.Resolve(ctx, partition.SubjectsKey(q.Stream, q.Period))
	if err != nil {
		return nil, err
	}
	subjects, err := h.subjects.ListActive(ctx, subjectHandle)
	if err != nil {
		return nil, err
	}

	return &Roster{Students: students, Subjects: subjects}, nil
}
