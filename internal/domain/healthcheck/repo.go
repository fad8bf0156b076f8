package healthcheck

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for health checks.
type Repository interface {
	Create(ctx context.Context, hc *HealthCheck) error
	GetByID(ctx context.Context, id uuid.UUID) (*HealthCheck, error)
	GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*HealthCheck, error)
	Update(ctx context.Context, hc *HealthCheck) error
}
