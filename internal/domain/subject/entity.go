// Package subject contains the subject record model. Subjects are stable
// fixtures of one (stream, period): created once, never migrated. Students
// move through them during promotion; subjects stay put.
package subject

import (
	"strings"
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// Type classifies a subject's eligibility rule.
type Type string

const (
	// TypeCore subjects admit every active student of the period.
	TypeCore Type = "core"

	// TypeLanguage subjects admit only students whose declared language
	// matches the subject's language tag.
	TypeLanguage Type = "language"
)

// IsValid reports whether the type is known.
func (t Type) IsValid() bool {
	return t == TypeCore || t == TypeLanguage
}

// Subject is one subject record within a (stream, period) partition.
type Subject struct {
	// Name is the subject name, unique within its partition.
	Name string

	Stream shared.Stream
	Period shared.Period
	Type   Type

	// Language is set iff Type == TypeLanguage.
	Language shared.LanguageTag

	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New creates a subject record.
func New(name string, stream shared.Stream, period shared.Period, typ Type, language shared.LanguageTag) (*Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.WrapError("subject", "New", shared.ErrEmptyValue, "subject name is required", nil)
	}
	if !typ.IsValid() {
		return nil, shared.WrapError("subject", "New", shared.ErrInvalidInput, "unknown subject type", nil)
	}
	switch typ {
	case TypeLanguage:
		if !language.IsValid() {
			return nil, shared.ErrInvalidLanguageTag
		}
	case TypeCore:
		if language != "" {
			return nil, shared.WrapError("subject", "New", shared.ErrInvalidInput, "core subjects must not carry a language tag", nil)
		}
	}

	now := time.Now().UTC()
	return &Subject{
		Name:      name,
		Stream:    stream.Normalized(),
		Period:    period,
		Type:      typ,
		Language:  language.Normalized(),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// IsLanguageRestricted reports whether eligibility is limited by language.
func (s *Subject) IsLanguageRestricted() bool {
	return s.Type == TypeLanguage
}

// EligibilityTag returns the language tag that bounds the eligible
// population, or "" for unrestricted subjects.
func (s *Subject) EligibilityTag() shared.LanguageTag {
	if s.IsLanguageRestricted() {
		return s.Language
	}
	return ""
}

// Deactivate marks the subject inactive; inactive subjects take no further
// attendance but their historical records remain readable.
func (s *Subject) Deactivate(at time.Time) {
	s.Active = false
	s.UpdatedAt = at
}
