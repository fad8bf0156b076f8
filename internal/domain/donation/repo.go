package donation

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for donations.
type Repository interface {
	Create(ctx context.Context, d *Donation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Donation, error)

	// GetByIDForUpdate loads the donation with its row lock held so
	// concurrent splits against the same donation serialize.
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*Donation, error)

	GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*Donation, error)
	Update(ctx context.Context, d *Donation) error
}
