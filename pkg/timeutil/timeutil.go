// Package timeutil provides timezone utilities for the college's local time
// (IST, UTC+5:30). Attendance days, promotion timestamps and notification
// windows are all anchored to IST regardless of server timezone.
package timeutil

import (
	"time"
)

// IST is the Indian Standard Time zone (UTC+5:30, no DST).
var IST = time.FixedZone("Asia/Kolkata", 5*3600+1800)

// Now returns the current time in IST.
func Now() time.Time {
	return time.Now().In(IST)
}

// ToIST converts a time to IST.
func ToIST(t time.Time) time.Time {
	return t.In(IST)
}

// Date creates a midnight IST time for the given date.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, IST)
}

// StartOfDay returns 00:00:00 IST of t's day.
func StartOfDay(t time.Time) time.Time {
	ist := ToIST(t)
	return time.Date(ist.Year(), ist.Month(), ist.Day(), 0, 0, 0, 0, IST)
}

// IsSameDay reports whether two times fall on the same IST calendar day.
func IsSameDay(t1, t2 time.Time) bool {
	a, b := ToIST(t1), ToIST(t2)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// IsToday reports whether t falls on today's IST calendar day.
func IsToday(t time.Time) bool {
	return IsSameDay(t, Now())
}

// DaysBetween returns the absolute number of IST calendar days between two times.
func DaysBetween(t1, t2 time.Time) int {
	days := int(StartOfDay(t2).Sub(StartOfDay(t1)).Hours() / 24)
	if days < 0 {
		days = -days
	}
	return days
}

// IsSchoolDay reports whether t is a working day (Monday through Saturday).
// Colleges here run six-day weeks; only Sunday is off.
func IsSchoolDay(t time.Time) bool {
	return ToIST(t).Weekday() != time.Sunday
}

// NextSchoolDay returns midnight IST of the next working day.
func NextSchoolDay(t time.Time) time.Time {
	next := ToIST(t).AddDate(0, 0, 1)
	for !IsSchoolDay(next) {
		next = next.AddDate(0, 0, 1)
	}
	return StartOfDay(next)
}

// Guardian notification window. Messages outside this window wait for the
// next morning.
const (
	// NotifyWindowStart is the earliest hour (IST) to message guardians.
	NotifyWindowStart = 8
	// NotifyWindowEnd is the latest hour (IST) to message guardians.
	NotifyWindowEnd = 21
)

// IsSafeNotificationTime reports whether guardians may be messaged at t.
func IsSafeNotificationTime(t time.Time) bool {
	hour := ToIST(t).Hour()
	return hour >= NotifyWindowStart && hour < NotifyWindowEnd
}

// NextSafeNotificationTime returns t if inside the window, otherwise the
// start of the next window.
func NextSafeNotificationTime(t time.Time) time.Time {
	ist := ToIST(t)
	hour := ist.Hour()

	if hour < NotifyWindowStart {
		return time.Date(ist.Year(), ist.Month(), ist.Day(), NotifyWindowStart, 0, 0, 0, IST)
	}
	if hour >= NotifyWindowEnd {
		next := ist.AddDate(0, 0, 1)
		return time.Date(next.Year(), next.Month(), next.Day(), NotifyWindowStart, 0, 0, 0, IST)
	}
	return ist
}

// Common layouts.
const (
	// FormatDate is the attendance day format (YYYY-MM-DD).
	FormatDate = "2006-01-02"
	// FormatDateTime is the standard datetime format.
	FormatDateTime = "2006-01-02 15:04"
	// FormatHumanDate is the format used in guardian messages (02 Jan 2006).
	FormatHumanDate = "02 Jan 2006"
)

// FormatIST formats a time in IST with the given layout.
func FormatIST(t time.Time, layout string) string {
	return ToIST(t).Format(layout)
}

// FormatDateStr formats a time as an attendance day string in IST.
func FormatDateStr(t time.Time) string {
	return FormatIST(t, FormatDate)
}

// ParseIST parses a time string in IST.
func ParseIST(layout, value string) (time.Time, error) {
	return time.ParseInLocation(layout, value, IST)
}

// ParseDateIST parses an attendance day string (YYYY-MM-DD) in IST.
func ParseDateIST(value string) (time.Time, error) {
	return ParseIST(FormatDate, value)
}
