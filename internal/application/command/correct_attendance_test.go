package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

func newCorrectionFixture(t *testing.T) (*CorrectAttendanceHandler, *attendanceFixture) {
	t.Helper()
	f := newAttendanceFixture()
	h := NewCorrectAttendanceHandler(&fakeRouter{table: f.table}, f.students, f.attendance, f.bus)

	// Mathematics on 2026-03-10: R001 present, R002 and R003 absent.
	_, err := f.handler.Handle(context.Background(), RecordAttendanceCommand{
		Stream:     "BCA",
		Period:     3,
		Subject:    "Mathematics",
		Day:        "2026-03-10",
		PresentIDs: []string{"R001"},
	})
	require.NoError(t, err)
	return h, f
}

func TestCorrectAttendanceFlipsMarkToPresent(t *testing.T) {
	h, f := newCorrectionFixture(t)

	record, err := h.Handle(context.Background(), CorrectAttendanceCommand{
		Stream:     "BCA",
		Period:     3,
		Subject:    "Mathematics",
		Day:        "2026-03-10",
		ExternalID: "R002",
		Present:    true,
	})
	require.NoError(t, err)

	assert.True(t, record.Overwritten)
	_, present := record.PresentSet()["R002"]
	assert.True(t, present)
	assert.Equal(t, 1, record.AbsentCount())
	assert.Contains(t, f.bus.types(), shared.EventAttendanceCorrected)

	attHandle := fakeHandle{id: partID(f.table, partition.AttendanceKey("BCA", 3, "Mathematics"))}
	stored, err := f.attendance.Get(context.Background(), attHandle, "2026-03-10")
	require.NoError(t, err)
	assert.True(t, stored.Overwritten)
	assert.Len(t, stored.PresentIDs, 2)
}

func TestCorrectAttendanceFlipsMarkToAbsent(t *testing.T) {
	h, _ := newCorrectionFixture(t)

	record, err := h.Handle(context.Background(), CorrectAttendanceCommand{
		Stream:     "BCA",
		Period:     3,
		Subject:    "Mathematics",
		Day:        "2026-03-10",
		ExternalID: "R001",
		Present:    false,
	})
	require.NoError(t, err)
	assert.Empty(t, record.PresentIDs)
	assert.Equal(t, 3, record.AbsentCount())
}

func TestCorrectAttendanceAlreadyInRequestedState(t *testing.T) {
	h, f := newCorrectionFixture(t)
	published := len(f.bus.types())

	record, err := h.Handle(context.Background(), CorrectAttendanceCommand{
		Stream:     "BCA",
		Period:     3,
		Subject:    "Mathematics",
		Day:        "2026-03-10",
		ExternalID: "R001",
		Present:    true,
	})
	require.NoError(t, err)

	// Nothing rewritten, nothing published.
	assert.False(t, record.Overwritten)
	assert.Len(t, f.bus.types(), published)
}

func TestCorrectAttendanceRejectsInactiveStudent(t *testing.T) {
	h, f := newCorrectionFixture(t)

	dropped := mustStudent("R009", "Dhruv", "BCA", 3, "", "+914444444444")
	dropped.Active = false
	f.students.seed(partID(f.table, partition.StudentsKey("BCA", 3)), dropped)

	_, err := h.Handle(context.Background(), CorrectAttendanceCommand{
		Stream:     "BCA",
		Period:     3,
		Subject:    "Mathematics",
		Day:        "2026-03-10",
		ExternalID: "R009",
		Present:    true,
	})
	assert.ErrorIs(t, err, shared.ErrStudentNotActive)
}

func TestCorrectAttendanceUnknownRecord(t *testing.T) {
	h, _ := newCorrectionFixture(t)

	_, err := h.Handle(context.Background(), CorrectAttendanceCommand{
		Stream:     "BCA",
		Period:     3,
		Subject:    "Mathematics",
		Day:        "2026-03-11",
		ExternalID: "R001",
		Present:    true,
	})
	assert.ErrorIs(t, err, shared.ErrAttendanceNotFound)
}
