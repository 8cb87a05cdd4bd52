// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/subject"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONSOLIDATE ABSENCES QUERY
// Gathers one day's attendance across every subject of a (stream, period)
// and classifies each student's day. Subjects without a record that day are
// simply not counted; zero records means everyone is present.
// ══════════════════════════════════════════════════════════════════════════════

// maxSubjectFetches caps concurrent per-subject attendance reads.
const maxSubjectFetches = 8

// SummaryCache caches consolidation results per (stream, period, day).
// Implementations treat misses and backend failures identically.
type SummaryCache interface {
	Get(ctx context.Context, stream shared.Stream, period shared.Period, day shared.Day) ([]attendance.AbsenceSummary, bool)
	Set(ctx context.Context, stream shared.Stream, period shared.Period, day shared.Day, summaries []attendance.AbsenceSummary) error
}

// ConsolidateAbsencesQuery identifies one consolidation scope.
type ConsolidateAbsencesQuery struct {
	Stream shared.Stream
	Period shared.Period
	Day    shared.Day

	// SkipCache forces a fresh fan-out, used by force-dispatch.
	SkipCache bool
}

// ConsolidateAbsencesHandler handles the ConsolidateAbsencesQuery.
type ConsolidateAbsencesHandler struct {
	router     partition.Router
	students   student.Repository
	subjects   subject.Repository
	attendance attendance.Repository
	cache      SummaryCache
	logger     *slog.Logger
}

// NewConsolidateAbsencesHandler creates a ConsolidateAbsencesHandler.
// cache may be nil.
func NewConsolidateAbsencesHandler(
	router partition.Router,
	students student.Repository,
	subjects subject.Repository,
	att attendance.Repository,
	cache SummaryCache,
	logger *slog.Logger,
) *ConsolidateAbsencesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsolidateAbsencesHandler{
		router:     router,
		students:   students,
		subjects:   subjects,
		attendance: att,
		cache:      cache,
		logger:     logger,
	}
}

// Handle computes (or serves from cache) the day's absence summaries,
// sorted by student ID.
func (h *ConsolidateAbsencesHandler) Handle(ctx context.Context, q ConsolidateAbsencesQuery) ([]attendance.AbsenceSummary, error) {
	if !q.Day.IsValid() {
		return nil, shared.WrapError("query", "ConsolidateAbsences", shared.ErrInvalidFormat, "day must be YYYY-MM-DD", nil)
	}
	stream := q.Stream.Normalized()

	if h.cache != nil && !q.SkipCache {
		if cached, ok := h.cache.Get(ctx, stream, q.Period, q.Day); ok {
			return cached, nil
		}
	}

	studentHandle, err := h.router.Resolve(ctx, partition.StudentsKey(stream, q.Period))
	if err != nil {
		return nil, err
	}
	roster, err := h.students.ListActive(ctx, studentHandle)
	if err != nil {
		return nil, err
	}

	subjectHandle, err := h.router.Resolve(ctx, partition.SubjectsKey(stream, q.Period))
	if err != nil {
		return nil, err
	}
	subjects, err := h.subjects.ListActive(ctx, subjectHandle)
	if err != nil {
		return nil, err
	}

	records, err := h.fetchRecords(ctx, stream, q.Period, q.Day, subjects)
	if err != nil {
		return nil, err
	}

	summaries := attendance.Consolidate(q.Day, roster, records)

	if h.cache != nil {
		if err := h.cache.Set(ctx, stream, q.Period, q.Day, summaries); err != nil {
			h.logger.Warn("failed to cache absence summaries",
				slog.String("stream", stream.String()),
				slog.String("day", q.Day.String()),
				slog.String("error", err.Error()))
		}
	}
	return summaries, nil
}

// fetchRecords reads the day's record from every subject partition
// concurrently. Missing records are skipped, anything else aborts.
func (h *ConsolidateAbsencesHandler) fetchRecords(ctx context.Context, stream shared.Stream, period shared.Period, day shared.Day, subjects []*subject.Subject) ([]*attendance.Record, error) {
	var (
		mu      sync.Mutex
		records []*attendance.Record
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxSubjectFetches)
	for _, sub := range subjects {
		sub := sub
		g.Go(func() error {
			handle, err := h.router.Resolve(ctx, partition.AttendanceKey(stream, period, sub.Name))
			if err != nil {
				return err
			}
			record, err := h.attendance.Get(ctx, handle, day)
			if err != nil {
				if errors.Is(err, shared.ErrAttendanceNotFound) {
					return nil
				}
				return err
			}
			mu.Lock()
			records = append(records, record)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}
