package shared

import (
	"fmt"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Stream identifies a program/major grouping (e.g., "BCA", "BCOM").
// The set of valid streams comes from the organization-unit configuration;
// the value object only enforces shape, not membership.
type Stream string

// IsValid checks the stream name shape.
func (s Stream) IsValid() bool {
	v := string(s)
	return len(v) >= 2 && len(v) <= 30 && !strings.ContainsAny(v, " \t\n\r")
}

// String returns the stream name.
func (s Stream) String() string {
	return string(s)
}

// Normalized returns the canonical upper-case form used for partition keys
// and lock names.
func (s Stream) Normalized() Stream {
	return Stream(strings.ToUpper(strings.TrimSpace(string(s))))
}

// Period is an academic term/semester, 1..N per stream. Zero is not a valid
// period; range validation against the per-stream configuration happens in
// the partition router.
type Period int

// IsValid checks that the period is positive.
func (p Period) IsValid() bool {
	return p > 0
}

// Next returns the following period.
func (p Period) Next() Period {
	return p + 1
}

// String returns a human-readable form, e.g. "sem3".
func (p Period) String() string {
	return fmt.Sprintf("sem%d", int(p))
}

// LanguageTag identifies a declared second-language choice (e.g., "kannada",
// "hindi"). Tags are compared case-insensitively.
type LanguageTag string

// IsValid checks that the tag is non-empty and has no whitespace.
func (l LanguageTag) IsValid() bool {
	v := string(l)
	return len(v) >= 2 && len(v) <= 30 && !strings.ContainsAny(v, " \t\n\r")
}

// Normalized returns the canonical lower-case form.
func (l LanguageTag) Normalized() LanguageTag {
	return LanguageTag(strings.ToLower(strings.TrimSpace(string(l))))
}

// Matches reports whether two tags denote the same language.
func (l LanguageTag) Matches(other LanguageTag) bool {
	return l.Normalized() == other.Normalized()
}

// String returns the tag.
func (l LanguageTag) String() string {
	return string(l)
}

// Day is a calendar date in "YYYY-MM-DD" form. Attendance, consolidation and
// dispatch are all keyed by Day; using a string-backed date keeps the value
// comparable and usable as a map key without timezone ambiguity.
type Day string

// DayLayout is the wire/storage format for Day.
const DayLayout = "2006-01-02"

// DayOf truncates a time to its calendar date in the time's own location.
func DayOf(t time.Time) Day {
	return Day(t.Format(DayLayout))
}

// ParseDay parses a "YYYY-MM-DD" string into a Day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: day must be YYYY-MM-DD: %v", ErrInvalidFormat, err)
	}
	return DayOf(t), nil
}

// IsValid reports whether the day parses.
func (d Day) IsValid() bool {
	_, err := time.Parse(DayLayout, string(d))
	return err == nil
}

// Time returns the day at midnight UTC.
func (d Day) Time() time.Time {
	t, _ := time.Parse(DayLayout, string(d))
	return t
}

// String returns the "YYYY-MM-DD" form.
func (d Day) String() string {
	return string(d)
}
