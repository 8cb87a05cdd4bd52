package messaging

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

func syncBus() *InMemoryEventBus {
	cfg := DefaultConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func TestPublishDeliversToSubscribers(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	var got []shared.Event
	err := bus.Subscribe(shared.EventAttendanceRecorded, func(e shared.Event) error {
		got = append(got, e)
		return nil
	})
	require.NoError(t, err)

	event := shared.NewAttendanceRecordedEvent("BCA", 3, "Kannada", "2026-03-10", 42, 45, false)
	require.NoError(t, bus.Publish(event))

	require.Len(t, got, 1)
	assert.Equal(t, shared.EventAttendanceRecorded, got[0].EventType())
}

func TestPublishSkipsOtherEventTypes(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	calls := 0
	require.NoError(t, bus.Subscribe(shared.EventCohortPromoted, func(e shared.Event) error {
		calls++
		return nil
	}))

	event := shared.NewAttendanceRecordedEvent("BCA", 3, "Kannada", "2026-03-10", 42, 45, false)
	require.NoError(t, bus.Publish(event))
	assert.Zero(t, calls)
}

func TestSubscribeAllSeesEverything(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	calls := 0
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		calls++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewAttendanceRecordedEvent("BCA", 3, "Mathematics", "2026-03-10", 40, 45, false)))
	require.NoError(t, bus.Publish(shared.NewCohortPromotedEvent("BCA", "batch-1", 12, 4)))
	assert.Equal(t, 2, calls)
}

func TestHandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := syncBus()
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventAttendanceRecorded, func(e shared.Event) error {
		return errors.New("handler boom")
	}))

	event := shared.NewAttendanceRecordedEvent("BCA", 3, "Mathematics", "2026-03-10", 40, 45, false)
	assert.NoError(t, bus.Publish(event))
}

func TestAsyncDeliveryCompletesBeforeClose(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerPoolSize = 2
	bus := NewInMemoryEventBus(cfg)

	var mu sync.Mutex
	calls := 0
	require.NoError(t, bus.Subscribe(shared.EventAttendanceRecorded, func(e shared.Event) error {
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	}))

	for i := 0; i < 4; i++ {
		require.NoError(t, bus.Publish(shared.NewAttendanceRecordedEvent("BCA", 3, "Mathematics", "2026-03-10", 40, 45, false)))
	}
	require.NoError(t, bus.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, calls)
}

func TestPublishAfterCloseFails(t *testing.T) {
	bus := syncBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewAttendanceRecordedEvent("BCA", 3, "Mathematics", "2026-03-10", 40, 45, false))
	assert.ErrorIs(t, err, ErrEventBusClosed)
}
