package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/notification"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
)

// NotificationLog implements notification.Log over the process-wide
// notification_log table. The dedup guarantee rides on the (day, stream,
// period) primary key: Claim is an INSERT ... ON CONFLICT DO NOTHING, so
// two concurrent dispatch calls cannot both observe "not yet sent".
type NotificationLog struct {
	q Querier
}

// NewNotificationLog creates a NotificationLog.
func NewNotificationLog(conn *Connection) *NotificationLog {
	return &NotificationLog{q: conn}
}

// Claim atomically inserts the in-progress entry. On conflict the existing
// entry is returned and claimed is false.
func (l *NotificationLog) Claim(ctx context.Context, claim *notification.LogEntry) (*notification.LogEntry, bool, error) {
	const query = `
		INSERT INTO notification_log
			(day, stream, period, status, initiator, batch_id, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (day, stream, period) DO NOTHING
	`

	tag, err := l.q.Exec(ctx, query,
		claim.Day.Time(),
		string(claim.Stream),
		int(claim.Period),
		string(claim.Status),
		string(claim.Initiator),
		claim.BatchID,
		claim.StartedAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to claim notification log entry: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, true, nil
	}

	existing, err := l.Get(ctx, claim.Day, claim.Stream, claim.Period)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// ForceClaim overwrites any prior entry with the in-progress claim.
func (l *NotificationLog) ForceClaim(ctx context.Context, claim *notification.LogEntry) error {
	const query = `
		INSERT INTO notification_log
			(day, stream, period, status, initiator, batch_id, started_at,
			 sent_count, failed_count, full_day_count, partial_day_count, outcomes, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, 0, '[]', NULL)
		ON CONFLICT (day, stream, period) DO UPDATE SET
			status = EXCLUDED.status,
			initiator = EXCLUDED.initiator,
			batch_id = EXCLUDED.batch_id,
			started_at = EXCLUDED.started_at,
			sent_count = 0,
			failed_count = 0,
			full_day_count = 0,
			partial_day_count = 0,
			outcomes = '[]',
			completed_at = NULL
	`

	_, err := l.q.Exec(ctx, query,
		claim.Day.Time(),
		string(claim.Stream),
		int(claim.Period),
		string(claim.Status),
		string(claim.Initiator),
		claim.BatchID,
		claim.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to force-claim notification log entry: %w", err)
	}
	return nil
}

// Complete rewrites the claimed entry with final counts and outcomes.
func (l *NotificationLog) Complete(ctx context.Context, entry *notification.LogEntry) error {
	outcomes, err := json.Marshal(entry.Outcomes)
	if err != nil {
		return fmt.Errorf("failed to marshal dispatch outcomes: %w", err)
	}

	const query = `
		UPDATE notification_log SET
			status = $4,
			sent_count = $5,
			failed_count = $6,
			full_day_count = $7,
			partial_day_count = $8,
			outcomes = $9,
			completed_at = $10
		WHERE day = $1 AND stream = $2 AND period = $3
	`

	tag, err := l.q.Exec(ctx, query,
		entry.Day.Time(),
		string(entry.Stream),
		int(entry.Period),
		string(entry.Status),
		entry.SentCount,
		entry.FailedCount,
		entry.FullDayCount,
		entry.PartialDayCount,
		outcomes,
		entry.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to complete notification log entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrDispatchLogNotFound
	}
	return nil
}

// Release deletes an in-progress claim after a failed run.
func (l *NotificationLog) Release(ctx context.Context, day shared.Day, stream shared.Stream, period shared.Period) error {
	const query = `
		DELETE FROM notification_log
		WHERE day = $1 AND stream = $2 AND period = $3 AND status = $4
	`
	_, err := l.q.Exec(ctx, query, day.Time(), string(stream.Normalized()), int(period), string(notification.StatusInProgress))
	if err != nil {
		return fmt.Errorf("failed to release notification log claim: %w", err)
	}
	return nil
}

// Get returns the entry for one scope.
func (l *NotificationLog) Get(ctx context.Context, day shared.Day, stream shared.Stream, period shared.Period) (*notification.LogEntry, error) {
	const query = `
		SELECT day, stream, period, status, initiator, batch_id,
			sent_count, failed_count, full_day_count, partial_day_count,
			outcomes, started_at, completed_at
		FROM notification_log
		WHERE day = $1 AND stream = $2 AND period = $3
	`

	var (
		entry        notification.LogEntry
		dayValue     time.Time
		streamValue  string
		periodValue  int
		status       string
		initiator    string
		outcomesJSON []byte
		completedAt  *time.Time
	)
	err := l.q.QueryRow(ctx, query, day.Time(), string(stream.Normalized()), int(period)).Scan(
		&dayValue,
		&streamValue,
		&periodValue,
		&status,
		&initiator,
		&entry.BatchID,
		&entry.SentCount,
		&entry.FailedCount,
		&entry.FullDayCount,
		&entry.PartialDayCount,
		&outcomesJSON,
		&entry.StartedAt,
		&completedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrDispatchLogNotFound
		}
		return nil, fmt.Errorf("failed to get notification log entry: %w", err)
	}

	entry.Day = shared.DayOf(dayValue)
	entry.Stream = shared.Stream(streamValue)
	entry.Period = shared.Period(periodValue)
	entry.Status = notification.Status(status)
	entry.Initiator = notification.Initiator(initiator)
	if completedAt != nil {
		entry.CompletedAt = *completedAt
	}
	if len(outcomesJSON) > 0 {
		if err := json.Unmarshal(outcomesJSON, &entry.Outcomes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal dispatch outcomes: %w", err)
		}
	}
	return &entry, nil
}
