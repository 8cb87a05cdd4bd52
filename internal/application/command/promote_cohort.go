package command

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROMOTE COHORT COMMAND
// Moves every active student of a stream one period forward. Terminal-period
// students graduate (records removed, lineage kept); every other period is
// promoted pairwise in descending order so nobody moves twice in one run.
//
// Graduation commits in its own transaction first: if it fails, the run logs
// and continues, because a stuck graduation must not hold up the rest of the
// college. The pairwise moves share one transaction and commit all-or-nothing.
// ══════════════════════════════════════════════════════════════════════════════

// StreamLock serializes promotion per stream across processes. Acquire
// returns an opaque token for Release. Implementations may be nil-safe
// no-ops for single-process deployments.
type StreamLock interface {
	Acquire(ctx context.Context, stream shared.Stream) (string, error)
	Release(ctx context.Context, stream shared.Stream, token string) error
}

// PromoteCohortCommand requests a promotion run for one stream.
type PromoteCohortCommand struct {
	Stream shared.Stream

	// BatchID labels the run's migration events. Generated when empty.
	BatchID string
}

// PromoteCohortResult summarizes a committed promotion run.
type PromoteCohortResult struct {
	BatchID   string
	Stream    shared.Stream
	Promoted  int
	Graduated int

	// PromotedByPeriod maps source period -> students moved out of it.
	PromotedByPeriod map[shared.Period]int

	// PromotedIDsByPeriod enumerates, per source period, exactly which
	// students moved. GraduatedIDs does the same for the terminal period.
	PromotedIDsByPeriod map[shared.Period][]student.ExternalID
	GraduatedIDs        []student.ExternalID

	// GraduationSkipped is set when the graduation transaction failed and
	// the run proceeded without it.
	GraduationSkipped bool
}

// PromoteCohortHandler handles the PromoteCohortCommand.
type PromoteCohortHandler struct {
	table     *partition.Table
	router    partition.Router
	txRunner  student.TxRunner
	lock      StreamLock
	publisher shared.EventPublisher
	logger    *slog.Logger

	mu      sync.Mutex
	running map[shared.Stream]*sync.Mutex
}

// NewPromoteCohortHandler creates a PromoteCohortHandler. lock may be nil.
func NewPromoteCohortHandler(
	table *partition.Table,
	router partition.Router,
	txRunner student.TxRunner,
	lock StreamLock,
	publisher shared.EventPublisher,
	logger *slog.Logger,
) *PromoteCohortHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PromoteCohortHandler{
		table:     table,
		router:    router,
		txRunner:  txRunner,
		lock:      lock,
		publisher: publisher,
		logger:    logger,
		running:   make(map[shared.Stream]*sync.Mutex),
	}
}

func (h *PromoteCohortHandler) streamMutex(stream shared.Stream) *sync.Mutex {
	h.mu.Lock()
	defer h.mu.Unlock()
	m, ok := h.running[stream]
	if !ok {
		m = &sync.Mutex{}
		h.running[stream] = m
	}
	return m
}

// Handle executes one promotion run.
func (h *PromoteCohortHandler) Handle(ctx context.Context, cmd PromoteCohortCommand) (*PromoteCohortResult, error) {
	stream := cmd.Stream.Normalized()
	unit, err := h.table.Unit(stream)
	if err != nil {
		return nil, err
	}

	m := h.streamMutex(stream)
	if !m.TryLock() {
		return nil, shared.ErrPromotionInProgress
	}
	defer m.Unlock()

	var token string
	if h.lock != nil {
		token, err = h.lock.Acquire(ctx, stream)
		if err != nil {
			return nil, err
		}
		defer func() {
			if relErr := h.lock.Release(context.WithoutCancel(ctx), stream, token); relErr != nil {
				h.logger.Warn("failed to release promotion lock",
					slog.String("stream", stream.String()), slog.String("error", relErr.Error()))
			}
		}()
	}

	// Resolve every student partition up front; resolution provisions lazily
	// and must not run inside the promotion transaction.
	handles := make(map[shared.Period]partition.Handle)
	for p := unit.MinPeriod; p <= unit.MaxPeriod; p++ {
		handle, err := h.router.Resolve(ctx, partition.StudentsKey(stream, p))
		if err != nil {
			return nil, err
		}
		handles[p] = handle
	}

	batchID := cmd.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}
	result := &PromoteCohortResult{
		BatchID:             batchID,
		Stream:              stream,
		PromotedByPeriod:    make(map[shared.Period]int),
		PromotedIDsByPeriod: make(map[shared.Period][]student.ExternalID),
	}
	at := time.Now().UTC()

	result.GraduatedIDs, err = h.graduate(ctx, handles[unit.MaxPeriod], result.BatchID, at)
	if err != nil {
		// Graduation failure never aborts the run.
		result.GraduationSkipped = true
		h.logger.Warn("graduation failed, continuing promotion without it",
			slog.String("stream", stream.String()),
			slog.String("batch_id", result.BatchID),
			slog.String("error", err.Error()))
	}
	result.Graduated = len(result.GraduatedIDs)

	err = h.txRunner.WithinTx(ctx, func(tx student.TxStore) error {
		for p := unit.MaxPeriod - 1; p >= unit.MinPeriod; p-- {
			moved, err := h.promotePair(ctx, tx, handles[p], handles[p+1], result.BatchID, at)
			if err != nil {
				return fmt.Errorf("period %d -> %d: %w", p, p+1, err)
			}
			if len(moved) > 0 {
				result.PromotedByPeriod[p] = len(moved)
				result.PromotedIDsByPeriod[p] = moved
				result.Promoted += len(moved)
			}
		}
		return nil
	})
	if err != nil {
		return nil, shared.WrapError("command", "PromoteCohort", shared.ErrPromotionAborted, err.Error(), err)
	}

	if result.Promoted == 0 && result.Graduated == 0 {
		return nil, shared.ErrEmptyPromotionRange
	}

	h.logger.Info("promotion run committed",
		slog.String("stream", stream.String()),
		slog.String("batch_id", result.BatchID),
		slog.Int("promoted", result.Promoted),
		slog.Int("graduated", result.Graduated))

	if h.publisher != nil {
		_ = h.publisher.Publish(shared.NewCohortPromotedEvent(stream, result.BatchID, result.Promoted, result.Graduated))
	}
	return result, nil
}

// graduate removes the terminal period's active students in its own
// transaction and appends their graduation lineage events. It returns the
// IDs of everyone removed.
func (h *PromoteCohortHandler) graduate(ctx context.Context, terminal partition.Handle, batchID string, at time.Time) ([]student.ExternalID, error) {
	var graduated []student.ExternalID
	err := h.txRunner.WithinTx(ctx, func(tx student.TxStore) error {
		students, err := tx.ListActive(ctx, terminal)
		if err != nil {
			return err
		}
		if len(students) == 0 {
			return nil
		}

		ids := make([]student.ExternalID, 0, len(students))
		events := make([]student.MigrationEvent, 0, len(students))
		for _, s := range students {
			ids = append(ids, s.ExternalID)
			events = append(events, s.GraduationEvent(batchID, at))
		}

		if err := tx.DeleteByExternalIDs(ctx, terminal, ids); err != nil {
			return err
		}
		if err := tx.AppendMigrationEvents(ctx, events); err != nil {
			return err
		}
		graduated = ids
		return nil
	})
	return graduated, err
}

// promotePair moves one period's active students into the next period's
// partition within the surrounding transaction. It returns the IDs of
// everyone moved.
func (h *PromoteCohortHandler) promotePair(ctx context.Context, tx student.TxStore, source, target partition.Handle, batchID string, at time.Time) ([]student.ExternalID, error) {
	students, err := tx.ListActive(ctx, source)
	if err != nil {
		return nil, err
	}
	if len(students) == 0 {
		return nil, nil
	}

	ids := make([]student.ExternalID, 0, len(students))
	copies := make([]*student.Student, 0, len(students))
	events := make([]student.MigrationEvent, 0, len(students))
	for _, s := range students {
		promoted, event := s.Promoted(batchID, at)
		ids = append(ids, s.ExternalID)
		copies = append(copies, promoted)
		events = append(events, event)
	}

	if err := tx.BulkInsert(ctx, target, copies); err != nil {
		return nil, err
	}
	if err := tx.DeleteByExternalIDs(ctx, source, ids); err != nil {
		return nil, err
	}
	if err := tx.AppendMigrationEvents(ctx, events); err != nil {
		return nil, err
	}
	return ids, nil
}
