package student

import (
	"context"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// These interfaces define the storage contract. Implementations live in
// infrastructure/persistence. Every operation is scoped to one resolved
// partition handle: the partition owns its records exclusively.
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines single-record operations on a student partition.
type Repository interface {
	// Insert adds a student to the partition.
	// Returns ErrStudentAlreadyExists if the external ID is already present.
	Insert(ctx context.Context, h partition.Handle, s *Student) error

	// GetByExternalID returns one student from the partition.
	// Returns ErrStudentNotFound if absent.
	GetByExternalID(ctx context.Context, h partition.Handle, id ExternalID) (*Student, error)

	// ListActive returns all active students in the partition, ordered by
	// external ID.
	ListActive(ctx context.Context, h partition.Handle) ([]*Student, error)

	// Update rewrites a student's mutable fields (name, guardian, language,
	// active flag). Returns ErrStudentNotFound if absent.
	Update(ctx context.Context, h partition.Handle, s *Student) error

	// Count returns the number of students in the partition, active or not.
	Count(ctx context.Context, h partition.Handle) (int, error)
}

// TxStore defines the bulk operations the promotion engine performs inside
// its all-or-nothing transaction. All writes through one TxStore either
// commit together or are rolled back together.
type TxStore interface {
	// ListActive returns all active students in the partition.
	ListActive(ctx context.Context, h partition.Handle) ([]*Student, error)

	// BulkInsert inserts promoted copies into the target partition.
	BulkInsert(ctx context.Context, h partition.Handle, students []*Student) error

	// DeleteByExternalIDs removes source records after their copies are in
	// the target partition.
	DeleteByExternalIDs(ctx context.Context, h partition.Handle, ids []ExternalID) error

	// AppendMigrationEvents writes lineage events to the append-only
	// migration-event store within the same transaction.
	AppendMigrationEvents(ctx context.Context, events []MigrationEvent) error
}

// TxRunner executes fn within a single transaction spanning every partition
// fn touches. A non-nil error from fn aborts and rolls back everything.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx TxStore) error) error
}

// MigrationLog reads the append-only lineage store outside transactions.
type MigrationLog interface {
	// ListByStudent returns all migration events for one external ID,
	// oldest first.
	ListByStudent(ctx context.Context, id ExternalID) ([]MigrationEvent, error)
}
