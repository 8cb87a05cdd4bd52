package command

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/application/query"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/notification"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// memNotificationLog implements notification.Log with the same atomic-claim
// contract as the Postgres implementation.
type memNotificationLog struct {
	mu      sync.Mutex
	entries map[string]*notification.LogEntry
}

func newMemNotificationLog() *memNotificationLog {
	return &memNotificationLog{entries: make(map[string]*notification.LogEntry)}
}

func logKey(day shared.Day, stream shared.Stream, period shared.Period) string {
	return day.String() + "/" + stream.String() + "/" + period.String()
}

func (l *memNotificationLog) Claim(_ context.Context, claim *notification.LogEntry) (*notification.LogEntry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := logKey(claim.Day, claim.Stream, claim.Period)
	if existing, ok := l.entries[key]; ok {
		copy := *existing
		return &copy, false, nil
	}
	copy := *claim
	l.entries[key] = &copy
	return nil, true, nil
}

func (l *memNotificationLog) ForceClaim(_ context.Context, claim *notification.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	copy := *claim
	l.entries[logKey(claim.Day, claim.Stream, claim.Period)] = &copy
	return nil
}

func (l *memNotificationLog) Complete(_ context.Context, entry *notification.LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := logKey(entry.Day, entry.Stream, entry.Period)
	if _, ok := l.entries[key]; !ok {
		return shared.ErrDispatchLogNotFound
	}
	copy := *entry
	l.entries[key] = &copy
	return nil
}

func (l *memNotificationLog) Release(_ context.Context, day shared.Day, stream shared.Stream, period shared.Period) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := logKey(day, stream, period)
	if e, ok := l.entries[key]; ok && e.Status == notification.StatusInProgress {
		delete(l.entries, key)
	}
	return nil
}

func (l *memNotificationLog) Get(_ context.Context, day shared.Day, stream shared.Stream, period shared.Period) (*notification.LogEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[logKey(day, stream, period)]
	if !ok {
		return nil, shared.ErrDispatchLogNotFound
	}
	copy := *e
	return &copy, nil
}

// fakeGateway records sends and fails selected contacts.
type fakeGateway struct {
	mu      sync.Mutex
	sent    []string
	failFor map[string]error
}

func (g *fakeGateway) Send(_ context.Context, contact student.GuardianContact, _ notification.Message) (notification.SendResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failFor[contact.String()]; ok {
		return notification.SendResult{}, err
	}
	g.sent = append(g.sent, contact.String())
	return notification.SendResult{DispatchID: "disp-" + contact.String()}, nil
}

func (g *fakeGateway) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

// fakeConsolidator serves preset summaries.
type fakeConsolidator struct {
	summaries []attendance.AbsenceSummary
	err       error
	calls     int
}

func (c *fakeConsolidator) Handle(_ context.Context, _ query.ConsolidateAbsencesQuery) ([]attendance.AbsenceSummary, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.summaries, nil
}

func summariesFixture() []attendance.AbsenceSummary {
	return []attendance.AbsenceSummary{
		{
			StudentID: "R001", DisplayName: "Asha", Guardian: "+911111111111",
			Day: "2026-03-10", AbsentSubjects: []string{"Kannada"},
			EligibleTaken: 3, Classification: attendance.ClassPartialDay,
		},
		{
			StudentID: "R002", DisplayName: "Bharat", Guardian: "+912222222222",
			Day: "2026-03-10", EligibleTaken: 3, Classification: attendance.ClassPresent,
		},
		{
			StudentID: "R003", DisplayName: "Chitra", Guardian: "+913333333333",
			Day: "2026-03-10", AbsentSubjects: []string{"Hindi", "Mathematics"},
			EligibleTaken: 2, Classification: attendance.ClassFullDay,
		},
	}
}

func dispatchCmd(force bool) DispatchNotificationsCommand {
	return DispatchNotificationsCommand{Stream: "BCA", Period: 3, Day: "2026-03-10", Force: force}
}

func TestDispatchSendsOnlyToAbsentees(t *testing.T) {
	log := newMemNotificationLog()
	gateway := &fakeGateway{}
	h := NewDispatchNotificationsHandler(&fakeConsolidator{summaries: summariesFixture()}, log, gateway, nil, nil)

	report, err := h.Handle(context.Background(), dispatchCmd(false))
	require.NoError(t, err)

	assert.False(t, report.AlreadyDispatched)
	assert.Equal(t, notification.StatusCompleted, report.Entry.Status)
	assert.Equal(t, 2, report.Entry.SentCount)
	assert.Equal(t, 0, report.Entry.FailedCount)
	assert.Equal(t, 1, report.Entry.FullDayCount)
	assert.Equal(t, 1, report.Entry.PartialDayCount)
	assert.Equal(t, 2, gateway.sentCount())
}

func TestDispatchSecondRunBlocked(t *testing.T) {
	log := newMemNotificationLog()
	gateway := &fakeGateway{}
	consolidator := &fakeConsolidator{summaries: summariesFixture()}
	h := NewDispatchNotificationsHandler(consolidator, log, gateway, nil, nil)

	first, err := h.Handle(context.Background(), dispatchCmd(false))
	require.NoError(t, err)
	require.False(t, first.AlreadyDispatched)

	second, err := h.Handle(context.Background(), dispatchCmd(false))
	require.NoError(t, err)
	assert.True(t, second.AlreadyDispatched)
	assert.Equal(t, first.Entry.BatchID, second.Entry.BatchID)

	// No extra sends, no second consolidation.
	assert.Equal(t, 2, gateway.sentCount())
	assert.Equal(t, 1, consolidator.calls)
}

func TestDispatchZeroAbsenteesStillWritesBlockingEntry(t *testing.T) {
	log := newMemNotificationLog()
	gateway := &fakeGateway{}
	allPresent := []attendance.AbsenceSummary{
		{StudentID: "R001", Classification: attendance.ClassPresent},
	}
	h := NewDispatchNotificationsHandler(&fakeConsolidator{summaries: allPresent}, log, gateway, nil, nil)

	report, err := h.Handle(context.Background(), dispatchCmd(false))
	require.NoError(t, err)
	assert.Equal(t, 0, report.Entry.SentCount)
	assert.Equal(t, 0, gateway.sentCount())

	// The zero-send entry still blocks a repeat run.
	second, err := h.Handle(context.Background(), dispatchCmd(false))
	require.NoError(t, err)
	assert.True(t, second.AlreadyDispatched)
}

func TestDispatchForceOverridesPriorEntry(t *testing.T) {
	log := newMemNotificationLog()
	gateway := &fakeGateway{}
	h := NewDispatchNotificationsHandler(&fakeConsolidator{summaries: summariesFixture()}, log, gateway, nil, nil)

	first, err := h.Handle(context.Background(), dispatchCmd(false))
	require.NoError(t, err)

	forced, err := h.Handle(context.Background(), dispatchCmd(true))
	require.NoError(t, err)

	assert.False(t, forced.AlreadyDispatched)
	assert.NotEqual(t, first.Entry.BatchID, forced.Entry.BatchID)
	assert.Equal(t, notification.InitiatorForced, forced.Entry.Initiator)
	assert.Equal(t, 4, gateway.sentCount())

	stored, err := log.Get(context.Background(), "2026-03-10", "BCA", 3)
	require.NoError(t, err)
	assert.Equal(t, forced.Entry.BatchID, stored.BatchID)
}

func TestDispatchPerStudentFailuresDoNotAbortBatch(t *testing.T) {
	log := newMemNotificationLog()
	gateway := &fakeGateway{failFor: map[string]error{
		"+913333333333": shared.ErrGatewayRejected,
	}}
	summaries := summariesFixture()
	summaries = append(summaries, attendance.AbsenceSummary{
		StudentID: "R004", DisplayName: "Divya", Guardian: "  ",
		Day: "2026-03-10", AbsentSubjects: []string{"Mathematics"},
		EligibleTaken: 3, Classification: attendance.ClassPartialDay,
	})
	h := NewDispatchNotificationsHandler(&fakeConsolidator{summaries: summaries}, log, gateway, nil, nil)

	report, err := h.Handle(context.Background(), dispatchCmd(false))
	require.NoError(t, err)

	assert.Equal(t, 1, report.Entry.SentCount)
	assert.Equal(t, 2, report.Entry.FailedCount)
	require.Len(t, report.Entry.Outcomes, 3)

	byStudent := make(map[string]notification.StudentOutcome)
	for _, o := range report.Entry.Outcomes {
		byStudent[string(o.StudentID)] = o
	}
	assert.True(t, byStudent["R001"].Success)
	assert.False(t, byStudent["R003"].Success)
	assert.Contains(t, byStudent["R004"].Error, "guardian")
}

func TestDispatchConsolidationFailureReleasesClaim(t *testing.T) {
	log := newMemNotificationLog()
	gateway := &fakeGateway{}
	consolidator := &fakeConsolidator{err: errors.New("storage down")}
	h := NewDispatchNotificationsHandler(consolidator, log, gateway, nil, nil)

	_, err := h.Handle(context.Background(), dispatchCmd(false))
	require.Error(t, err)

	// The claim was released, so a retry can claim again.
	consolidator.err = nil
	consolidator.summaries = summariesFixture()
	report, err := h.Handle(context.Background(), dispatchCmd(false))
	require.NoError(t, err)
	assert.False(t, report.AlreadyDispatched)
	assert.Equal(t, 2, report.Entry.SentCount)
}

func TestDispatchInvalidDay(t *testing.T) {
	h := NewDispatchNotificationsHandler(&fakeConsolidator{}, newMemNotificationLog(), &fakeGateway{}, nil, nil)

	_, err := h.Handle(context.Background(), DispatchNotificationsCommand{Stream: "BCA", Period: 3, Day: "today"})
	assert.ErrorIs(t, err, shared.ErrInvalidFormat)
}
