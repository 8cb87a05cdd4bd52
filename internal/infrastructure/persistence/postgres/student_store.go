package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT STORE
// ══════════════════════════════════════════════════════════════════════════════

// StudentStore implements student.Repository against partitioned tables.
// Every query targets the table named by the resolved handle.
type StudentStore struct {
	q Querier
}

// NewStudentStore creates a StudentStore over the pooled connection.
func NewStudentStore(conn *Connection) *StudentStore {
	return &StudentStore{q: conn}
}

const studentColumns = `external_id, display_name, stream, current_period, original_period,
	language, guardian, active, migration_generation, created_at, updated_at`

// Insert adds a student to the partition.
func (s *StudentStore) Insert(ctx context.Context, h partition.Handle, st *student.Student) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, tableName(h), studentColumns)

	_, err := s.q.Exec(ctx, query,
		string(st.ExternalID),
		st.DisplayName,
		string(st.Stream),
		int(st.CurrentPeriod),
		int(st.OriginalPeriod),
		string(st.Language),
		string(st.Guardian),
		st.Active,
		st.MigrationGeneration,
		st.CreatedAt,
		st.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrStudentAlreadyExists
		}
		return fmt.Errorf("failed to insert student: %w", err)
	}
	return nil
}

// GetByExternalID returns one student from the partition.
func (s *StudentStore) GetByExternalID(ctx context.Context, h partition.Handle, id student.ExternalID) (*student.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE external_id = $1`, studentColumns, tableName(h))

	st, err := scanStudent(s.q.QueryRow(ctx, query, string(id.Normalized())))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return st, nil
}

// ListActive returns all active students in the partition.
func (s *StudentStore) ListActive(ctx context.Context, h partition.Handle) ([]*student.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE active ORDER BY external_id`, studentColumns, tableName(h))

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var students []*student.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan student row: %w", err)
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// Update rewrites a student's mutable fields.
func (s *StudentStore) Update(ctx context.Context, h partition.Handle, st *student.Student) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET display_name = $2, language = $3, guardian = $4, active = $5, updated_at = $6
		WHERE external_id = $1
	`, tableName(h))

	tag, err := s.q.Exec(ctx, query,
		string(st.ExternalID),
		st.DisplayName,
		string(st.Language),
		string(st.Guardian),
		st.Active,
		st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrStudentNotFound
	}
	return nil
}

// Count returns the number of students in the partition.
func (s *StudentStore) Count(ctx context.Context, h partition.Handle) (int, error) {
	var count int
	query := fmt.Sprintf(`SELECT count(*) FROM %s`, tableName(h))
	if err := s.q.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count students: %w", err)
	}
	return count, nil
}

// scanStudent reads one student row.
func scanStudent(row pgx.Row) (*student.Student, error) {
	var (
		st                            student.Student
		externalID, stream, language  string
		guardian                      string
		currentPeriod, originalPeriod int
	)
	err := row.Scan(
		&externalID,
		&st.DisplayName,
		&stream,
		&currentPeriod,
		&originalPeriod,
		&language,
		&guardian,
		&st.Active,
		&st.MigrationGeneration,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	st.ExternalID = student.ExternalID(externalID)
	st.Stream = shared.Stream(stream)
	st.CurrentPeriod = shared.Period(currentPeriod)
	st.OriginalPeriod = shared.Period(originalPeriod)
	st.Language = shared.LanguageTag(language)
	st.Guardian = student.GuardianContact(guardian)
	return &st, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROMOTION TRANSACTION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// PromotionTxRunner implements student.TxRunner: every store operation
// inside fn runs on one pgx transaction spanning all touched partitions, so
// a failure anywhere rolls back the whole promotion.
type PromotionTxRunner struct {
	conn *Connection
}

// NewPromotionTxRunner creates a PromotionTxRunner.
func NewPromotionTxRunner(conn *Connection) *PromotionTxRunner {
	return &PromotionTxRunner{conn: conn}
}

// WithinTx implements student.TxRunner.
func (r *PromotionTxRunner) WithinTx(ctx context.Context, fn func(tx student.TxStore) error) error {
	return r.conn.WithTx(ctx, PromotionTxOptions(), func(tx pgx.Tx) error {
		return fn(&promotionTxStore{tx: tx})
	})
}

// promotionTxStore implements student.TxStore on one open transaction.
type promotionTxStore struct {
	tx pgx.Tx
}

// ListActive returns all active students in the partition, inside the tx.
func (s *promotionTxStore) ListActive(ctx context.Context, h partition.Handle) ([]*student.Student, error) {
	return (&StudentStore{q: s.tx}).ListActive(ctx, h)
}

// BulkInsert inserts promoted copies into the target partition.
func (s *promotionTxStore) BulkInsert(ctx context.Context, h partition.Handle, students []*student.Student) error {
	if len(students) == 0 {
		return nil
	}

	rows := make([][]interface{}, 0, len(students))
	for _, st := range students {
		rows = append(rows, []interface{}{
			string(st.ExternalID),
			st.DisplayName,
			string(st.Stream),
			int(st.CurrentPeriod),
			int(st.OriginalPeriod),
			string(st.Language),
			string(st.Guardian),
			st.Active,
			st.MigrationGeneration,
			st.CreatedAt,
			st.UpdatedAt,
		})
	}

	_, err := s.tx.CopyFrom(ctx,
		pgx.Identifier{tableName(h)},
		[]string{"external_id", "display_name", "stream", "current_period", "original_period",
			"language", "guardian", "active", "migration_generation", "created_at", "updated_at"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("failed to bulk insert students into %s: %w", h.PartitionID(), err)
	}
	return nil
}

// DeleteByExternalIDs removes source records from the partition.
func (s *promotionTxStore) DeleteByExternalIDs(ctx context.Context, h partition.Handle, ids []student.ExternalID) error {
	if len(ids) == 0 {
		return nil
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE external_id = ANY($1)`, tableName(h))
	tag, err := s.tx.Exec(ctx, query, raw)
	if err != nil {
		return fmt.Errorf("failed to delete students from %s: %w", h.PartitionID(), err)
	}
	if int(tag.RowsAffected()) != len(ids) {
		return shared.WrapError("student", "DeleteByExternalIDs", shared.ErrConcurrentModification,
			fmt.Sprintf("expected to delete %d students from %s, deleted %d", len(ids), h.PartitionID(), tag.RowsAffected()), nil)
	}
	return nil
}

// AppendMigrationEvents writes lineage events within the same transaction.
func (s *promotionTxStore) AppendMigrationEvents(ctx context.Context, events []student.MigrationEvent) error {
	return appendMigrationEvents(ctx, s.tx, events)
}
