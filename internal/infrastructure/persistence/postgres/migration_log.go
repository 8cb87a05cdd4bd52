package postgres

import (
	"context"
	"fmt"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// MigrationLog implements student.MigrationLog over the process-wide
// append-only migration_events table. Promotion writes events through its
// transaction (appendMigrationEvents); this type serves reads.
type MigrationLog struct {
	q Querier
}

// NewMigrationLog creates a MigrationLog.
func NewMigrationLog(conn *Connection) *MigrationLog {
	return &MigrationLog{q: conn}
}

// ListByStudent returns all migration events for one external ID, oldest first.
func (l *MigrationLog) ListByStudent(ctx context.Context, id student.ExternalID) ([]student.MigrationEvent, error) {
	query := `
		SELECT student_id, stream, kind, from_period, to_period, batch_id, generation, occurred_at
		FROM migration_events
		WHERE student_id = $1
		ORDER BY occurred_at, id
	`

	rows, err := l.q.Query(ctx, query, string(id.Normalized()))
	if err != nil {
		return nil, fmt.Errorf("failed to list migration events: %w", err)
	}
	defer rows.Close()

	var events []student.MigrationEvent
	for rows.Next() {
		var (
			e                      student.MigrationEvent
			studentID, stream      string
			kind                   string
			fromPeriod, toPeriod   int
		)
		if err := rows.Scan(&studentID, &stream, &kind, &fromPeriod, &toPeriod, &e.BatchID, &e.Generation, &e.OccurredAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration event: %w", err)
		}
		e.StudentID = student.ExternalID(studentID)
		e.Stream = shared.Stream(stream)
		e.Kind = student.MigrationKind(kind)
		e.FromPeriod = shared.Period(fromPeriod)
		e.ToPeriod = shared.Period(toPeriod)
		events = append(events, e)
	}
	return events, rows.Err()
}

// appendMigrationEvents inserts lineage events on the given querier (pool or
// open transaction).
func appendMigrationEvents(ctx context.Context, q Querier, events []student.MigrationEvent) error {
	const query = `
		INSERT INTO migration_events
			(student_id, stream, kind, from_period, to_period, batch_id, generation, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for _, e := range events {
		_, err := q.Exec(ctx, query,
			string(e.StudentID),
			string(e.Stream),
			string(e.Kind),
			int(e.FromPeriod),
			int(e.ToPeriod),
			e.BatchID,
			e.Generation,
			e.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append migration event for %s: %w", e.StudentID, err)
		}
	}
	return nil
}
