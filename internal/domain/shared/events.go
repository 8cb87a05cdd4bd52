// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - each represents something significant that happened
// in the attendance domain.
const (
	// Student events
	EventStudentRegistered  EventType = "student.registered"
	EventStudentDeactivated EventType = "student.deactivated"

	// Attendance events
	EventAttendanceRecorded  EventType = "attendance.recorded"
	EventAttendanceCorrected EventType = "attendance.corrected"

	// Promotion events
	EventCohortPromoted  EventType = "promotion.cohort_promoted"
	EventCohortGraduated EventType = "promotion.cohort_graduated"

	// Notification events
	EventNotificationsDispatched EventType = "notification.dispatched"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
	}
}

// EventHandler processes a published domain event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events to interested subscribers.
// Publishing is fire-and-forget from the producer's point of view.
type EventPublisher interface {
	Publish(event Event) error
}

// ═══════════════════════════════════════════════════════════════════════════
// Student Events
// ═══════════════════════════════════════════════════════════════════════════

// StudentRegisteredEvent is emitted when a student record is first created.
type StudentRegisteredEvent struct {
	BaseEvent
	Stream   Stream `json:"stream"`
	Period   Period `json:"period"`
	Language string `json:"language,omitempty"`
}

// NewStudentRegisteredEvent creates a StudentRegisteredEvent.
func NewStudentRegisteredEvent(externalID string, stream Stream, period Period, language string) StudentRegisteredEvent {
	return StudentRegisteredEvent{
		BaseEvent: NewBaseEvent(EventStudentRegistered, externalID),
		Stream:    stream,
		Period:    period,
		Language:  language,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Attendance Events
// ═══════════════════════════════════════════════════════════════════════════

// AttendanceRecordedEvent is emitted when an attendance record is written.
// Consolidation caches keyed by (stream, period, day) must be invalidated
// when this event fires.
type AttendanceRecordedEvent struct {
	BaseEvent
	Stream    Stream `json:"stream"`
	Period    Period `json:"period"`
	Subject   string `json:"subject"`
	Day       Day    `json:"day"`
	Present   int    `json:"present"`
	Eligible  int    `json:"eligible"`
	Overwrite bool   `json:"overwrite"`
}

// NewAttendanceRecordedEvent creates an AttendanceRecordedEvent.
func NewAttendanceRecordedEvent(stream Stream, period Period, subject string, day Day, present, eligible int, overwrite bool) AttendanceRecordedEvent {
	return AttendanceRecordedEvent{
		BaseEvent: NewBaseEvent(EventAttendanceRecorded, string(stream)+"/"+period.String()+"/"+subject+"/"+day.String()),
		Stream:    stream,
		Period:    period,
		Subject:   subject,
		Day:       day,
		Present:   present,
		Eligible:  eligible,
		Overwrite: overwrite,
	}
}

// AttendanceCorrectedEvent is emitted when a single student's mark on an
// existing record is flipped after the fact.
type AttendanceCorrectedEvent struct {
	BaseEvent
	Stream    Stream `json:"stream"`
	Period    Period `json:"period"`
	Subject   string `json:"subject"`
	Day       Day    `json:"day"`
	StudentID string `json:"student_id"`
	Present   bool   `json:"present"`
}

// NewAttendanceCorrectedEvent creates an AttendanceCorrectedEvent.
func NewAttendanceCorrectedEvent(stream Stream, period Period, subject string, day Day, studentID string, present bool) AttendanceCorrectedEvent {
	return AttendanceCorrectedEvent{
		BaseEvent: NewBaseEvent(EventAttendanceCorrected, string(stream)+"/"+period.String()+"/"+subject+"/"+day.String()),
		Stream:    stream,
		Period:    period,
		Subject:   subject,
		Day:       day,
		StudentID: studentID,
		Present:   present,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Promotion Events
// ═══════════════════════════════════════════════════════════════════════════

// CohortPromotedEvent is emitted after a promotion batch commits.
type CohortPromotedEvent struct {
	BaseEvent
	Stream    Stream `json:"stream"`
	BatchID   string `json:"batch_id"`
	Promoted  int    `json:"promoted"`
	Graduated int    `json:"graduated"`
}

// NewCohortPromotedEvent creates a CohortPromotedEvent.
func NewCohortPromotedEvent(stream Stream, batchID string, promoted, graduated int) CohortPromotedEvent {
	return CohortPromotedEvent{
		BaseEvent: NewBaseEvent(EventCohortPromoted, string(stream)+"/"+batchID),
		Stream:    stream,
		BatchID:   batchID,
		Promoted:  promoted,
		Graduated: graduated,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Notification Events
// ═══════════════════════════════════════════════════════════════════════════

// NotificationsDispatchedEvent is emitted after a dispatch batch completes
// (including zero-send days, which still write a log entry).
type NotificationsDispatchedEvent struct {
	BaseEvent
	Stream Stream `json:"stream"`
	Period Period `json:"period"`
	Day    Day    `json:"day"`
	Sent   int    `json:"sent"`
	Failed int    `json:"failed"`
	Forced bool   `json:"forced"`
}

// NewNotificationsDispatchedEvent creates a NotificationsDispatchedEvent.
func NewNotificationsDispatchedEvent(stream Stream, period Period, day Day, sent, failed int, forced bool) NotificationsDispatchedEvent {
	return NotificationsDispatchedEvent{
		BaseEvent: NewBaseEvent(EventNotificationsDispatched, string(stream)+"/"+period.String()+"/"+day.String()),
		Stream:    stream,
		Period:    period,
		Day:       day,
		Sent:      sent,
		Failed:    failed,
		Forced:    forced,
	}
}
