package bloodunit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListFilter narrows an inventory query. Zero values mean "any".
type ListFilter struct {
	FacilityID uuid.UUID
	BloodGroup string
	Component  Component
	Status     Status
}

// Repository is the persistence port for blood units.
type Repository interface {
	Create(ctx context.Context, u *BloodUnit) error
	GetByID(ctx context.Context, id uuid.UUID) (*BloodUnit, error)
	ListByDonation(ctx context.Context, donationID uuid.UUID) ([]*BloodUnit, error)

	// List returns inventory ordered by ascending expiry so the units
	// closest to wastage surface first.
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*BloodUnit, int, error)

	Update(ctx context.Context, u *BloodUnit) error

	// LockForAllocation loads the given units with row locks held for the
	// rest of the transaction. Callers must pass ids in a deterministic
	// order to avoid lock cycles between concurrent allocators.
	LockForAllocation(ctx context.Context, ids []uuid.UUID) ([]*BloodUnit, error)

	// ApplyAllocation decrements remaining quantity and writes the new
	// status produced by an allocation.
	ApplyAllocation(ctx context.Context, id uuid.UUID, newRemaining int, status Status) error

	// ExpireOverdue marks non-terminal units past their expiry as expired
	// and returns how many rows changed.
	ExpireOverdue(ctx context.Context, now time.Time) (int, error)
}
