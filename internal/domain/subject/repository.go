package subject

import (
	"context"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
)

// Repository defines storage operations on a subject partition. All
// operations are scoped to one resolved partition handle.
type Repository interface {
	// Create adds a subject to the partition.
	// Returns ErrSubjectAlreadyExists if the name is already taken there.
	Create(ctx context.Context, h partition.Handle, s *Subject) error

	// GetByName returns one subject by name.
	// Returns ErrSubjectNotFound if absent or inactive.
	GetByName(ctx context.Context, h partition.Handle, name string) (*Subject, error)

	// ListActive returns all active subjects in the partition, ordered by name.
	ListActive(ctx context.Context, h partition.Handle) ([]*Subject, error)

	// Update rewrites a subject's mutable fields (active flag).
	// Returns ErrSubjectNotFound if absent.
	Update(ctx context.Context, h partition.Handle, s *Subject) error
}
