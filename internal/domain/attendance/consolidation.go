package attendance

import (
	"sort"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ABSENCE CLASSIFICATION
// ══════════════════════════════════════════════════════════════════════════════

// Classification is a student's daily absence status across every subject
// that took attendance that day.
type Classification string

const (
	// ClassPresent: no absences among the student's eligible subjects
	// (including the degenerate case of zero subjects taking attendance).
	ClassPresent Classification = "present"

	// ClassPartialDay: absent from a strict non-empty subset of eligible
	// subjects with attendance taken.
	ClassPartialDay Classification = "partial_day"

	// ClassFullDay: absent from every eligible subject with attendance
	// taken (at least one).
	ClassFullDay Classification = "full_day"
)

// AbsenceSummary is the consolidation result for one student on one day.
type AbsenceSummary struct {
	StudentID   student.ExternalID      `json:"student_id"`
	DisplayName string                  `json:"display_name"`
	Guardian    student.GuardianContact `json:"guardian"`
	Day         shared.Day              `json:"day"`

	// AbsentSubjects lists the subjects (with attendance taken that day)
	// the student was marked absent from, sorted by name.
	AbsentSubjects []string `json:"absent_subjects"`

	// EligibleTaken is how many of the day's recorded subjects the student
	// was eligible for. A subject the student is not eligible for is never
	// counted against them.
	EligibleTaken int `json:"eligible_taken"`

	Classification Classification `json:"classification"`
}

// IsAbsent reports whether the student missed at least one subject.
func (s AbsenceSummary) IsAbsent() bool {
	return s.Classification != ClassPresent
}

// Consolidate computes per-student daily absence summaries from the active
// student roster and the day's attendance records (one per subject).
//
// Eligibility filtering uses the same rule as the write path: a student
// absent from a language-restricted subject they are not eligible for is
// never counted. With zero records every student classifies as present with
// zero absences - a day without attendance is not a full-day absence.
func Consolidate(day shared.Day, students []*student.Student, records []*Record) []AbsenceSummary {
	type subjectView struct {
		name     string
		language shared.LanguageTag
		present  map[student.ExternalID]struct{}
	}
	views := make([]subjectView, 0, len(records))
	for _, r := range records {
		views = append(views, subjectView{
			name:     r.Subject,
			language: r.Language,
			present:  r.PresentSet(),
		})
	}

	summaries := make([]AbsenceSummary, 0, len(students))
	for _, s := range students {
		if !s.Active {
			continue
		}

		summary := AbsenceSummary{
			StudentID:      s.ExternalID,
			DisplayName:    s.DisplayName,
			Guardian:       s.Guardian,
			Day:            day,
			Classification: ClassPresent,
		}
		for _, v := range views {
			if !s.EligibleFor(v.language) {
				continue
			}
			summary.EligibleTaken++
			if _, present := v.present[s.ExternalID]; !present {
				summary.AbsentSubjects = append(summary.AbsentSubjects, v.name)
			}
		}

		absent := len(summary.AbsentSubjects)
		switch {
		case summary.EligibleTaken > 0 && absent == summary.EligibleTaken:
			summary.Classification = ClassFullDay
		case absent > 0:
			summary.Classification = ClassPartialDay
		}
		sort.Strings(summary.AbsentSubjects)
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].StudentID < summaries[j].StudentID })
	return summaries
}
