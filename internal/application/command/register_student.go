// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// REGISTER STUDENT COMMAND
// Creates a student record in the partition of its (stream, period).
// ══════════════════════════════════════════════════════════════════════════════

// RegisterStudentCommand contains the data to register a student.
type RegisterStudentCommand struct {
	// ExternalID is the immutable business key (register number).
	ExternalID string

	// Name is the display name.
	Name string

	// Stream and Period locate the owning partition.
	Stream shared.Stream
	Period shared.Period

	// Language is the declared second-language choice; may be empty for
	// streams without language subjects.
	Language shared.LanguageTag

	// Guardian is the notification contact.
	Guardian string
}

// Validate validates the command.
func (c RegisterStudentCommand) Validate() error {
	if c.ExternalID == "" {
		return errors.New("register_student: external_id is required")
	}
	if c.Name == "" {
		return errors.New("register_student: name is required")
	}
	if !c.Stream.IsValid() {
		return errors.New("register_student: stream is required")
	}
	if !c.Period.IsValid() {
		return shared.ErrInvalidPeriod
	}
	return nil
}

// RegisterStudentResult contains the result of a registration.
type RegisterStudentResult struct {
	Student     *student.Student
	PartitionID partition.ID
}

// RegisterStudentHandler handles the RegisterStudentCommand.
type RegisterStudentHandler struct {
	table     *partition.Table
	router    partition.Router
	students  student.Repository
	publisher shared.EventPublisher
}

// NewRegisterStudentHandler creates a RegisterStudentHandler.
func NewRegisterStudentHandler(
	table *partition.Table,
	router partition.Router,
	students student.Repository,
	publisher shared.EventPublisher,
) *RegisterStudentHandler {
	return &RegisterStudentHandler{
		table:     table,
		router:    router,
		students:  students,
		publisher: publisher,
	}
}

// Handle executes the registration.
func (h *RegisterStudentHandler) Handle(ctx context.Context, cmd RegisterStudentCommand) (*RegisterStudentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	// A declared language must be one the stream actually offers; otherwise
	// the student could never be eligible for any language subject.
	unit, err := h.table.Unit(cmd.Stream)
	if err != nil {
		return nil, err
	}
	if cmd.Language != "" && !unit.OffersLanguage(cmd.Language) {
		return nil, shared.WrapError("command", "RegisterStudent", shared.ErrInvalidLanguageTag,
			fmt.Sprintf("stream %s does not offer language %q", cmd.Stream, cmd.Language), nil)
	}

	s, err := student.New(
		student.ExternalID(cmd.ExternalID),
		cmd.Name,
		cmd.Stream,
		cmd.Period,
		cmd.Language,
		student.GuardianContact(cmd.Guardian),
	)
	if err != nil {
		return nil, err
	}

	handle, err := h.router.Resolve(ctx, partition.StudentsKey(cmd.Stream, cmd.Period))
	if err != nil {
		return nil, err
	}

	if err := h.students.Insert(ctx, handle, s); err != nil {
		return nil, err
	}

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewStudentRegisteredEvent(
			s.ExternalID.String(), s.Stream, s.CurrentPeriod, s.Language.String()))
	}

	return &RegisterStudentResult{Student: s, PartitionID: handle.PartitionID()}, nil
}
