package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBJECT LIFECYCLE COMMANDS
// Subjects are fixtures of one (stream, period): created once, optionally
// deactivated, never migrated.
// ══════════════════════════════════════════════════════════════════════════════

// CreateSubjectCommand contains the data to create a subject.
type CreateSubjectCommand struct {
	Name   string
	Stream shared.Stream
	Period shared.Period

	// Type is "core" or "language".
	Type subject.Type

	// Language is required iff Type is language.
	Language shared.LanguageTag
}

// Validate validates the command.
func (c CreateSubjectCommand) Validate() error {
	if c.Name == "" {
		return errors.New("create_subject: name is required")
	}
	if !c.Stream.IsValid() {
		return errors.New("create_subject: stream is required")
	}
	if !c.Period.IsValid() {
		return shared.ErrInvalidPeriod
	}
	if !c.Type.IsValid() {
		return fmt.Errorf("create_subject: unknown subject type %q", c.Type)
	}
	return nil
}

// DeactivateSubjectCommand retires a subject from further attendance.
type DeactivateSubjectCommand struct {
	Name   string
	Stream shared.Stream
	Period shared.Period
}

// SubjectHandler handles subject lifecycle commands.
type SubjectHandler struct {
	table    *partition.Table
	router   partition.Router
	subjects subject.Repository
}

// NewSubjectHandler creates a SubjectHandler.
func NewSubjectHandler(table *partition.Table, router partition.Router, subjects subject.Repository) *SubjectHandler {
	return &SubjectHandler{table: table, router: router, subjects: subjects}
}

// HandleCreate creates a subject in its partition. Language subjects must
// use a language the stream offers.
func (h *SubjectHandler) HandleCreate(ctx context.Context, cmd CreateSubjectCommand) (*subject.Subject, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if cmd.Type == subject.TypeLanguage {
		unit, err := h.table.Unit(cmd.Stream)
		if err != nil {
			return nil, err
		}
		if !unit.OffersLanguage(cmd.Language) {
			return nil, shared.WrapError("command", "CreateSubject", shared.ErrInvalidLanguageTag,
				fmt.Sprintf("stream %s does not offer language %q", cmd.Stream, cmd.Language), nil)
		}
	}

	sub, err := subject.New(cmd.Name, cmd.Stream, cmd.Period, cmd.Type, cmd.Language)
	if err != nil {
		return nil, err
	}

	handle, err := h.router.Resolve(ctx, partition.SubjectsKey(cmd.Stream, cmd.Period))
	if err != nil {
		return nil, err
	}

	if err := h.subjects.Create(ctx, handle, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// HandleDeactivate retires a subject. Historical attendance stays readable.
func (h *SubjectHandler) HandleDeactivate(ctx context.Context, cmd DeactivateSubjectCommand) (*subject.Subject, error) {
	if cmd.Name == "" {
		return nil, errors.New("deactivate_subject: name is required")
	}

	handle, err := h.router.Resolve(ctx, partition.SubjectsKey(cmd.Stream, cmd.Period))
	if err != nil {
		return nil, err
	}

	sub, err := h.subjects.GetByName(ctx, handle, cmd.Name)
	if err != nil {
		return nil, err
	}

	sub.Deactivate(time.Now().UTC())
	if err := h.subjects.Update(ctx, handle, sub); err != nil {
		return nil, err
	}
	return sub, nil
}
