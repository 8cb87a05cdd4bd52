package notification

import (
	"fmt"
	"strings"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
)

// Message is one guardian-facing notification.
type Message struct {
	Subject string
	Body    string
}

// BuildAbsenceMessage renders the guardian message for one absence summary.
// Full-day and partial-day absences use distinct templates; partial-day
// messages enumerate the missed subjects.
func BuildAbsenceMessage(s attendance.AbsenceSummary) Message {
	switch s.Classification {
	case attendance.ClassFullDay:
		return Message{
			Subject: "Absence notice",
			Body: fmt.Sprintf(
				"Dear guardian, %s was absent for the full day on %s. Please contact the college office if this is unexpected.",
				s.DisplayName, s.Day,
			),
		}
	case attendance.ClassPartialDay:
		return Message{
			Subject: "Absence notice",
			Body: fmt.Sprintf(
				"Dear guardian, %s missed the following classes on %s: %s.",
				s.DisplayName, s.Day, strings.Join(s.AbsentSubjects, ", "),
			),
		}
	default:
		// Present students never get a message; callers filter first.
		return Message{}
	}
}
