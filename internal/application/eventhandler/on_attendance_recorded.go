// Package eventhandler wires domain events to their side effects.
package eventhandler

import (
	"context"
	"log/slog"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// SummaryInvalidator drops cached consolidations for one scope.
type SummaryInvalidator interface {
	Invalidate(ctx context.Context, stream shared.Stream, period shared.Period, day shared.Day) error
}

// OnAttendanceRecorded invalidates the cached consolidation of the scope an
// attendance write (or correction) touched, so the next consolidation sees
// the new record. It subscribes to both recorded and corrected events.
type OnAttendanceRecorded struct {
	invalidator SummaryInvalidator
	logger      *slog.Logger
}

// NewOnAttendanceRecorded creates the handler.
func NewOnAttendanceRecorded(invalidator SummaryInvalidator, logger *slog.Logger) *OnAttendanceRecorded {
	if logger == nil {
		logger = slog.Default()
	}
	return &OnAttendanceRecorded{invalidator: invalidator, logger: logger}
}

// Handle processes one event.
func (h *OnAttendanceRecorded) Handle(event shared.Event) error {
	var (
		stream shared.Stream
		period shared.Period
		day    shared.Day
	)

	switch e := event.(type) {
	case shared.AttendanceRecordedEvent:
		stream, period, day = e.Stream, e.Period, e.Day
	case shared.AttendanceCorrectedEvent:
		stream, period, day = e.Stream, e.Period, e.Day
	default:
		return nil
	}

	if err := h.invalidator.Invalidate(context.Background(), stream, period, day); err != nil {
		h.logger.Warn("failed to invalidate absence summary cache",
			slog.String("stream", stream.String()),
			slog.String("day", day.String()),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Register subscribes the handler on the bus for both event types.
func (h *OnAttendanceRecorded) Register(subscribe func(shared.EventType, shared.EventHandler) error) error {
	if err := subscribe(shared.EventAttendanceRecorded, h.Handle); err != nil {
		return err
	}
	return subscribe(shared.EventAttendanceCorrected, h.Handle)
}
