package command

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/application/query"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/notification"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCH NOTIFICATIONS COMMAND
// Sends guardian messages for one day's absences in one (stream, period).
// The dedup gate claims the (day, stream, period) log entry atomically
// before any message goes out: a prior entry - completed or in progress,
// even with zero sends - blocks the run unless Force is set.
// ══════════════════════════════════════════════════════════════════════════════

// defaultMaxConcurrentSends caps parallel gateway calls within one dispatch run.
const defaultMaxConcurrentSends = 4

// AbsenceConsolidator computes the day's absence summaries.
type AbsenceConsolidator interface {
	Handle(ctx context.Context, q query.ConsolidateAbsencesQuery) ([]attendance.AbsenceSummary, error)
}

// DispatchNotificationsCommand requests one dispatch run.
type DispatchNotificationsCommand struct {
	Stream shared.Stream
	Period shared.Period
	Day    shared.Day

	// Force overrides a prior entry and re-sends.
	Force bool
}

// DispatchNotificationsHandler handles the DispatchNotificationsCommand.
type DispatchNotificationsHandler struct {
	consolidator AbsenceConsolidator
	log          notification.Log
	gateway      notification.Gateway
	publisher    shared.EventPublisher
	logger       *slog.Logger

	maxConcurrentSends int
}

// NewDispatchNotificationsHandler creates a DispatchNotificationsHandler.
func NewDispatchNotificationsHandler(
	consolidator AbsenceConsolidator,
	log notification.Log,
	gateway notification.Gateway,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *DispatchNotificationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DispatchNotificationsHandler{
		consolidator:       consolidator,
		log:                log,
		gateway:            gateway,
		publisher:          publisher,
		logger:             logger,
		maxConcurrentSends: defaultMaxConcurrentSends,
	}
}

// SetMaxConcurrentSends overrides the parallel-send cap. Values below 1 are
// ignored.
func (h *DispatchNotificationsHandler) SetMaxConcurrentSends(n int) {
	if n >= 1 {
		h.maxConcurrentSends = n
	}
}

// Handle executes one dispatch run. When the dedup gate blocks, the prior
// entry is returned with AlreadyDispatched set and no error: a repeat
// request is an answered question, not a failure.
func (h *DispatchNotificationsHandler) Handle(ctx context.Context, cmd DispatchNotificationsCommand) (*notification.DispatchReport, error) {
	if !cmd.Day.IsValid() {
		return nil, shared.WrapError("command", "DispatchNotifications", shared.ErrInvalidFormat, "day must be YYYY-MM-DD", nil)
	}
	stream := cmd.Stream.Normalized()

	initiator := notification.InitiatorManual
	if cmd.Force {
		initiator = notification.InitiatorForced
	}
	claim := notification.NewClaim(cmd.Day, stream, cmd.Period, uuid.NewString(), initiator, time.Now().UTC())

	if cmd.Force {
		if err := h.log.ForceClaim(ctx, claim); err != nil {
			return nil, err
		}
	} else {
		existing, claimed, err := h.log.Claim(ctx, claim)
		if err != nil {
			return nil, err
		}
		if !claimed {
			if existing.BlocksDispatch() {
				return &notification.DispatchReport{AlreadyDispatched: true, Entry: existing}, nil
			}
			// A non-blocking stale entry should not exist; treat it as a
			// conflict rather than silently double-sending.
			return nil, shared.ErrAlreadyDispatched
		}
	}

	summaries, err := h.consolidator.Handle(ctx, query.ConsolidateAbsencesQuery{
		Stream:    stream,
		Period:    cmd.Period,
		Day:       cmd.Day,
		SkipCache: cmd.Force,
	})
	if err != nil {
		// Release the claim so a retry is possible; completed entries are
		// never touched by Release.
		if relErr := h.log.Release(context.WithoutCancel(ctx), cmd.Day, stream, cmd.Period); relErr != nil {
			h.logger.Error("failed to release dispatch claim",
				slog.String("day", cmd.Day.String()),
				slog.String("stream", stream.String()),
				slog.String("error", relErr.Error()))
		}
		return nil, err
	}

	h.send(ctx, claim, summaries)

	claim.MarkCompleted(time.Now().UTC())
	if err := h.log.Complete(ctx, claim); err != nil {
		return nil, err
	}

	h.logger.Info("dispatch run completed",
		slog.String("day", cmd.Day.String()),
		slog.String("stream", stream.String()),
		slog.Int("period", int(cmd.Period)),
		slog.Int("sent", claim.SentCount),
		slog.Int("failed", claim.FailedCount),
		slog.Bool("forced", cmd.Force))

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewNotificationsDispatchedEvent(
			stream, cmd.Period, cmd.Day, claim.SentCount, claim.FailedCount, cmd.Force))
	}
	return &notification.DispatchReport{Entry: claim}, nil
}

// send delivers one message per absent student. Per-student failures are
// recorded in the entry and never abort the batch.
func (h *DispatchNotificationsHandler) send(ctx context.Context, entry *notification.LogEntry, summaries []attendance.AbsenceSummary) {
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(h.maxConcurrentSends)
	for _, summary := range summaries {
		if !summary.IsAbsent() {
			continue
		}

		summary := summary
		g.Go(func() error {
			outcome := notification.StudentOutcome{
				StudentID:      summary.StudentID,
				DisplayName:    summary.DisplayName,
				Contact:        summary.Guardian,
				Classification: summary.Classification,
				AttemptedAt:    time.Now().UTC(),
			}

			if !summary.Guardian.IsUsable() {
				outcome.Error = shared.ErrMissingGuardianPhone.Error()
			} else {
				msg := notification.BuildAbsenceMessage(summary)
				result, err := h.gateway.Send(ctx, summary.Guardian, msg)
				if err != nil {
					outcome.Error = err.Error()
				} else {
					outcome.Success = true
					outcome.DispatchID = result.DispatchID
				}
			}

			mu.Lock()
			entry.RecordOutcome(outcome)
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures live in the outcomes.
	_ = g.Wait()
}
