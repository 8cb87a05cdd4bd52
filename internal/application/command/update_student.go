package command

import (
	"context"
	"errors"
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT MAINTENANCE COMMANDS
// Deactivation and guardian-contact updates. Both locate the record through
// the partition router; records never move partitions outside promotion.
// ══════════════════════════════════════════════════════════════════════════════

// DeactivateStudentCommand removes a student from attendance and promotion
// without deleting the record.
type DeactivateStudentCommand struct {
	ExternalID string
	Stream     shared.Stream
	Period     shared.Period
}

// UpdateGuardianCommand changes the guardian notification contact.
type UpdateGuardianCommand struct {
	ExternalID string
	Stream     shared.Stream
	Period     shared.Period
	Guardian   string
}

// UpdateStudentHandler handles student maintenance commands.
type UpdateStudentHandler struct {
	router   partition.Router
	students student.Repository
}

// NewUpdateStudentHandler creates an UpdateStudentHandler.
func NewUpdateStudentHandler(router partition.Router, students student.Repository) *UpdateStudentHandler {
	return &UpdateStudentHandler{router: router, students: students}
}

func (h *UpdateStudentHandler) load(ctx context.Context, externalID string, stream shared.Stream, period shared.Period) (partition.Handle, *student.Student, error) {
	if externalID == "" {
		return nil, nil, errors.New("update_student: external_id is required")
	}
	handle, err := h.router.Resolve(ctx, partition.StudentsKey(stream, period))
	if err != nil {
		return nil, nil, err
	}
	s, err := h.students.GetByExternalID(ctx, handle, student.ExternalID(externalID))
	if err != nil {
		return nil, nil, err
	}
	return handle, s, nil
}

// HandleDeactivate marks the student inactive.
func (h *UpdateStudentHandler) HandleDeactivate(ctx context.Context, cmd DeactivateStudentCommand) (*student.Student, error) {
	handle, s, err := h.load(ctx, cmd.ExternalID, cmd.Stream, cmd.Period)
	if err != nil {
		return nil, err
	}

	s.Deactivate(time.Now().UTC())
	if err := h.students.Update(ctx, handle, s); err != nil {
		return nil, err
	}
	return s, nil
}

// HandleUpdateGuardian replaces the guardian contact.
func (h *UpdateStudentHandler) HandleUpdateGuardian(ctx context.Context, cmd UpdateGuardianCommand) (*student.Student, error) {
	if student.GuardianContact(cmd.Guardian) == "" {
		return nil, errors.New("update_student: guardian contact is required")
	}

	handle, s, err := h.load(ctx, cmd.ExternalID, cmd.Stream, cmd.Period)
	if err != nil {
		return nil, err
	}

	s.UpdateGuardian(student.GuardianContact(cmd.Guardian), time.Now().UTC())
	if err := h.students.Update(ctx, handle, s); err != nil {
		return nil, err
	}
	return s, nil
}
