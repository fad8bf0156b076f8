package bloodrequest

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence port for blood requests and their
// assignments.
type Repository interface {
	Create(ctx context.Context, r *BloodRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*BloodRequest, error)

	// GetByIDForUpdate holds the request's row lock so concurrent
	// distributions against the same request serialize.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*BloodRequest, error)

	List(ctx context.Context, status Status, limit, offset int) ([]*BloodRequest, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error

	CreateAssignment(ctx context.Context, a *Assignment) error
	ListAssignments(ctx context.Context, requestID uuid.UUID) ([]*Assignment, error)
	MarkAssignmentsDelivered(ctx context.Context, requestID uuid.UUID, at time.Time) error
}
