package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/attendance"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// AttendanceStore implements attendance.Repository against per-subject
// attendance partitions. One row per day; the primary key on day enforces
// the at-most-one-record invariant at the storage level.
type AttendanceStore struct {
	q Querier
}

// NewAttendanceStore creates an AttendanceStore over the pooled connection.
func NewAttendanceStore(conn *Connection) *AttendanceStore {
	return &AttendanceStore{q: conn}
}

const attendanceColumns = `day, subject, stream, period, present_ids, eligible_count, language, overwritten, recorded_at`

// Put writes the record for its day. Overwrite semantics ride on the
// day primary key: without overwrite a duplicate insert surfaces as
// ErrDuplicateRecord, with overwrite it becomes an upsert that marks the
// row overwritten only when a prior row was actually replaced.
func (s *AttendanceStore) Put(ctx context.Context, h partition.Handle, r *attendance.Record, overwrite bool) (bool, error) {
	presentIDs := make([]string, 0, len(r.PresentIDs))
	for _, id := range r.PresentIDs {
		presentIDs = append(presentIDs, string(id))
	}

	args := []interface{}{
		r.Day.Time(),
		r.Subject,
		string(r.Stream),
		int(r.Period),
		presentIDs,
		r.EligibleCount,
		string(r.Language),
		r.Overwritten,
		r.RecordedAt,
	}

	if !overwrite {
		query := fmt.Sprintf(`
			INSERT INTO %s (%s)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, tableName(h), attendanceColumns)

		if _, err := s.q.Exec(ctx, query, args...); err != nil {
			if IsUniqueViolation(err) {
				return false, shared.ErrDuplicateRecord
			}
			return false, fmt.Errorf("failed to insert attendance record: %w", err)
		}
		return false, nil
	}

	// xmax is nonzero only for the updated row, which distinguishes a
	// replacing upsert from a fresh insert.
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (day) DO UPDATE SET
			present_ids = EXCLUDED.present_ids,
			eligible_count = EXCLUDED.eligible_count,
			language = EXCLUDED.language,
			overwritten = TRUE,
			recorded_at = EXCLUDED.recorded_at
		RETURNING (xmax <> 0)
	`, tableName(h), attendanceColumns)

	var replaced bool
	if err := s.q.QueryRow(ctx, query, args...).Scan(&replaced); err != nil {
		return false, fmt.Errorf("failed to upsert attendance record: %w", err)
	}
	return replaced, nil
}

// Get returns the record for one day.
func (s *AttendanceStore) Get(ctx context.Context, h partition.Handle, day shared.Day) (*attendance.Record, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE day = $1`, attendanceColumns, tableName(h))

	var (
		r            attendance.Record
		dayValue     time.Time
		stream, lang string
		period       int
		presentIDs   []string
	)
	err := s.q.QueryRow(ctx, query, day.Time()).Scan(
		&dayValue,
		&r.Subject,
		&stream,
		&period,
		&presentIDs,
		&r.EligibleCount,
		&lang,
		&r.Overwritten,
		&r.RecordedAt,
	)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrAttendanceNotFound
		}
		return nil, fmt.Errorf("failed to get attendance record: %w", err)
	}

	r.Day = shared.DayOf(dayValue)
	r.Stream = shared.Stream(stream)
	r.Period = shared.Period(period)
	r.Language = shared.LanguageTag(lang)
	r.PresentIDs = make([]student.ExternalID, 0, len(presentIDs))
	for _, id := range presentIDs {
		r.PresentIDs = append(r.PresentIDs, student.ExternalID(id))
	}
	return &r, nil
}

// ListDays returns the days that have a record, newest first.
func (s *AttendanceStore) ListDays(ctx context.Context, h partition.Handle, limit int) ([]shared.Day, error) {
	query := fmt.Sprintf(`SELECT to_char(day, 'YYYY-MM-DD') FROM %s ORDER BY day DESC`, tableName(h))
	if limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, limit)
	}

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendance days: %w", err)
	}
	defer rows.Close()

	var days []shared.Day
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan attendance day: %w", err)
		}
		days = append(days, shared.Day(d))
	}
	return days, rows.Err()
}
