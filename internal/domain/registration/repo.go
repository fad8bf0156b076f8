package registration

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for registrations and their
// append-only status log.
type Repository interface {
	Create(ctx context.Context, r *Registration) error
	GetByID(ctx context.Context, id uuid.UUID) (*Registration, error)
	ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*Registration, int, error)
	ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Registration, int, error)

	// UpdateStatus applies a guarded status change. It must fail when the
	// stored version differs from expectedVersion so concurrent writers
	// cannot both win.
	UpdateStatus(ctx context.Context, id uuid.UUID, to Status, expectedVersion int) error

	AppendStatusLog(ctx context.Context, entry *StatusLog) error
	ListStatusLog(ctx context.Context, registrationID uuid.UUID) ([]*StatusLog, error)
}
