package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/shared"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/subject"
)

// SubjectStore implements subject.Repository against partitioned tables.
type SubjectStore struct {
	q Querier
}

// NewSubjectStore creates a SubjectStore over the pooled connection.
func NewSubjectStore(conn *Connection) *SubjectStore {
	return &SubjectStore{q: conn}
}

const subjectColumns = `name, stream, period, type, language, active, created_at, updated_at`

// Create adds a subject to the partition.
func (s *SubjectStore) Create(ctx context.Context, h partition.Handle, sub *subject.Subject) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tableName(h), subjectColumns)

	_, err := s.q.Exec(ctx, query,
		sub.Name,
		string(sub.Stream),
		int(sub.Period),
		string(sub.Type),
		string(sub.Language),
		sub.Active,
		sub.CreatedAt,
		sub.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.ErrSubjectAlreadyExists
		}
		return fmt.Errorf("failed to create subject: %w", err)
	}
	return nil
}

// GetByName returns one active subject by name.
func (s *SubjectStore) GetByName(ctx context.Context, h partition.Handle, name string) (*subject.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE name = $1 AND active`, subjectColumns, tableName(h))

	sub, err := scanSubject(s.q.QueryRow(ctx, query, name))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrSubjectNotFound
		}
		return nil, fmt.Errorf("failed to get subject: %w", err)
	}
	return sub, nil
}

// ListActive returns all active subjects in the partition.
func (s *SubjectStore) ListActive(ctx context.Context, h partition.Handle) ([]*subject.Subject, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE active ORDER BY name`, subjectColumns, tableName(h))

	rows, err := s.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	defer rows.Close()

	var subjects []*subject.Subject
	for rows.Next() {
		sub, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subject row: %w", err)
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// Update rewrites a subject's mutable fields.
func (s *SubjectStore) Update(ctx context.Context, h partition.Handle, sub *subject.Subject) error {
	query := fmt.Sprintf(`
		UPDATE %s SET active = $2, updated_at = $3 WHERE name = $1
	`, tableName(h))

	tag, err := s.q.Exec(ctx, query, sub.Name, sub.Active, sub.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update subject: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrSubjectNotFound
	}
	return nil
}

// scanSubject reads one subject row.
func scanSubject(row pgx.Row) (*subject.Subject, error) {
	var (
		sub                    subject.Subject
		stream, typ, language  string
		period                 int
	)
	err := row.Scan(
		&sub.Name,
		&stream,
		&period,
		&typ,
		&language,
		&sub.Active,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Stream = shared.Stream(stream)
	sub.Period = shared.Period(period)
	sub.Type = subject.Type(typ)
	sub.Language = shared.LanguageTag(language)
	return &sub, nil
}
