// Package student contains the student record model. A student record is
// exclusively owned by the partition of its current academic period; cohort
// promotion moves ownership between partitions (delete-then-insert, never
// update-in-place, because partitions are physically distinct).
package student

import (
	"strings"
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ExternalID is the immutable business key of a student (e.g. a register
// number). It survives promotions unchanged.
type ExternalID string

// IsValid checks the external ID shape.
func (id ExternalID) IsValid() bool {
	s := string(id)
	return len(s) >= 2 && len(s) <= 40 && !strings.ContainsAny(s, " \t\n\r")
}

// String returns the external ID as a string.
func (id ExternalID) String() string {
	return string(id)
}

// Normalized returns the canonical upper-case form.
func (id ExternalID) Normalized() ExternalID {
	return ExternalID(strings.ToUpper(strings.TrimSpace(string(id))))
}

// GuardianContact is a phone number (or other gateway-routable address) for
// the student's guardian.
type GuardianContact string

// IsUsable reports whether the contact can be handed to the messaging
// gateway. The gateway does its own strict validation; this only filters
// obviously empty values.
func (c GuardianContact) IsUsable() bool {
	return len(strings.TrimSpace(string(c))) >= 7
}

// String returns the contact as a string.
func (c GuardianContact) String() string {
	return string(c)
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION EVENTS
// ══════════════════════════════════════════════════════════════════════════════

// MigrationKind distinguishes promotion moves from terminal graduation.
type MigrationKind string

const (
	MigrationPromotion  MigrationKind = "promotion"
	MigrationGraduation MigrationKind = "graduation"
)

// MigrationEvent is one entry of a student's promotion lineage. Events live
// in a separate append-only store keyed by external ID, not embedded in the
// student record, so history can grow and be queried independently.
type MigrationEvent struct {
	StudentID  ExternalID
	Stream     shared.Stream
	Kind       MigrationKind
	FromPeriod shared.Period
	ToPeriod   shared.Period // equals FromPeriod for graduation
	BatchID    string
	Generation int
	OccurredAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT RECORD
// ══════════════════════════════════════════════════════════════════════════════

// Student is one student record within a (stream, period) partition.
type Student struct {
	// ExternalID is the immutable business key.
	ExternalID ExternalID

	// DisplayName is the student's name for notifications and reports.
	DisplayName string

	// Stream is the program the student belongs to.
	Stream shared.Stream

	// CurrentPeriod is the academic period whose partition owns this record.
	CurrentPeriod shared.Period

	// OriginalPeriod is the first period ever assigned; promotions preserve it.
	OriginalPeriod shared.Period

	// Language is the student's declared second-language choice. Determines
	// eligibility for language-restricted subjects.
	Language shared.LanguageTag

	// Guardian is the notification contact.
	Guardian GuardianContact

	// Active marks whether the student participates in attendance and
	// promotion. Deactivated students stay in their partition but are
	// ignored by both.
	Active bool

	// MigrationGeneration is a monotonic counter incremented once per
	// promotion. A freshly registered student has generation 0.
	MigrationGeneration int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a student record for first registration into a period.
func New(externalID ExternalID, name string, stream shared.Stream, period shared.Period, language shared.LanguageTag, guardian GuardianContact) (*Student, error) {
	externalID = externalID.Normalized()
	if !externalID.IsValid() {
		return nil, shared.ErrInvalidExternalID
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.WrapError("student", "New", shared.ErrEmptyValue, "display name is required", nil)
	}
	if !stream.IsValid() {
		return nil, shared.WrapError("student", "New", shared.ErrInvalidInput, "invalid stream", nil)
	}
	if !period.IsValid() {
		return nil, shared.WrapError("student", "New", shared.ErrInvalidInput, "invalid period", nil)
	}

	now := time.Now().UTC()
	return &Student{
		ExternalID:          externalID,
		DisplayName:         strings.TrimSpace(name),
		Stream:              stream.Normalized(),
		CurrentPeriod:       period,
		OriginalPeriod:      period,
		Language:            language.Normalized(),
		Guardian:            guardian,
		Active:              true,
		MigrationGeneration: 0,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// Promoted returns a copy of the student moved into the next period, with
// the migration generation bumped and lineage fields preserved, plus the
// migration event describing the move. The receiver is not mutated: the
// source record is deleted from its partition, the returned copy is inserted
// into the target partition.
func (s *Student) Promoted(batchID string, at time.Time) (*Student, MigrationEvent) {
	next := *s
	next.CurrentPeriod = s.CurrentPeriod.Next()
	next.MigrationGeneration = s.MigrationGeneration + 1
	next.UpdatedAt = at

	event := MigrationEvent{
		StudentID:  s.ExternalID,
		Stream:     s.Stream,
		Kind:       MigrationPromotion,
		FromPeriod: s.CurrentPeriod,
		ToPeriod:   next.CurrentPeriod,
		BatchID:    batchID,
		Generation: next.MigrationGeneration,
		OccurredAt: at,
	}
	return &next, event
}

// GraduationEvent builds the lineage event recorded when the student leaves
// the terminal period. Graduation deletes the record without copying it
// forward, so there is no successor period.
func (s *Student) GraduationEvent(batchID string, at time.Time) MigrationEvent {
	return MigrationEvent{
		StudentID:  s.ExternalID,
		Stream:     s.Stream,
		Kind:       MigrationGraduation,
		FromPeriod: s.CurrentPeriod,
		ToPeriod:   s.CurrentPeriod,
		BatchID:    batchID,
		Generation: s.MigrationGeneration,
		OccurredAt: at,
	}
}

// EligibleFor reports whether the student can attend a subject restricted to
// the given language tag. An empty tag means the subject is unrestricted.
func (s *Student) EligibleFor(tag shared.LanguageTag) bool {
	if tag == "" {
		return true
	}
	return s.Language.Matches(tag)
}

// Deactivate marks the student inactive.
func (s *Student) Deactivate(at time.Time) {
	s.Active = false
	s.UpdatedAt = at
}

// UpdateGuardian changes the guardian contact.
func (s *Student) UpdateGuardian(contact GuardianContact, at time.Time) {
	s.Guardian = contact
	s.UpdatedAt = at
}
