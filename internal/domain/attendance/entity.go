// Package attendance contains the attendance record model and the pure
// consolidation logic that turns per-subject attendance into per-student
// daily absence classification.
package attendance

import (
	"sort"
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// Record is one day's attendance for one subject. It lives in the subject's
// attendance partition; at most one record exists per (day, subject) unless
// an explicit overwrite replaces it.
type Record struct {
	Day     shared.Day
	Subject string
	Stream  shared.Stream
	Period  shared.Period

	// PresentIDs is the set of present students' external IDs.
	PresentIDs []student.ExternalID

	// EligibleCount is the size of the eligible population captured at
	// write time.
	EligibleCount int

	// Language is the subject's eligibility tag captured at write time
	// ("" for unrestricted subjects). Consolidation re-applies the same
	// rule without needing the subject record.
	Language shared.LanguageTag

	// Overwritten marks records that replaced a prior record for the same
	// (day, subject).
	Overwritten bool

	RecordedAt time.Time
}

// NewRecord builds an attendance record. presentIDs are normalized and
// deduplicated; eligibility is the caller's concern (the write path verifies
// every present ID against the eligible population before calling this).
func NewRecord(day shared.Day, subj string, stream shared.Stream, period shared.Period, presentIDs []student.ExternalID, eligibleCount int, language shared.LanguageTag, at time.Time) (*Record, error) {
	if !day.IsValid() {
		return nil, shared.WrapError("attendance", "NewRecord", shared.ErrInvalidFormat, "invalid day", nil)
	}
	if subj == "" {
		return nil, shared.WrapError("attendance", "NewRecord", shared.ErrEmptyValue, "subject is required", nil)
	}
	if eligibleCount <= 0 {
		return nil, shared.ErrNoEligibleStudents
	}

	seen := make(map[student.ExternalID]struct{}, len(presentIDs))
	normalized := make([]student.ExternalID, 0, len(presentIDs))
	for _, id := range presentIDs {
		n := id.Normalized()
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		normalized = append(normalized, n)
	}
	sort.Slice(normalized, func(i, j int) bool { return normalized[i] < normalized[j] })

	return &Record{
		Day:           day,
		Subject:       subj,
		Stream:        stream.Normalized(),
		Period:        period,
		PresentIDs:    normalized,
		EligibleCount: eligibleCount,
		Language:      language.Normalized(),
		RecordedAt:    at,
	}, nil
}

// PresentSet returns the present IDs as a set for O(1) membership checks.
func (r *Record) PresentSet() map[student.ExternalID]struct{} {
	set := make(map[student.ExternalID]struct{}, len(r.PresentIDs))
	for _, id := range r.PresentIDs {
		set[id] = struct{}{}
	}
	return set
}

// AbsentCount returns how many eligible students were absent.
func (r *Record) AbsentCount() int {
	return r.EligibleCount - len(r.PresentIDs)
}
