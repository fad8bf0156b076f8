package healthcheck

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/domain/registration"
	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/auth"
	"github.com/hemobank/hemobank/internal/platform/db"
	"github.com/hemobank/hemobank/internal/platform/vitals"
)

// Advancer moves the owning registration once a verdict is recorded.
// Implemented by the registration service.
type Advancer interface {
	Advance(ctx context.Context, id uuid.UUID, event registration.Event, actor auth.Actor) (*registration.Registration, error)
}

type Service struct {
	repo     Repository
	runner   db.TxRunner
	advancer Advancer
	log      zerolog.Logger
}

func NewService(repo Repository, runner db.TxRunner, advancer Advancer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, runner: runner, advancer: advancer, log: logger}
}

// CreatePending opens an empty health check for a registration entering
// the consult room. Satisfies registration.HealthCheckCreator.
func (s *Service) CreatePending(ctx context.Context, registrationID uuid.UUID) error {
	return s.repo.Create(ctx, &HealthCheck{RegistrationID: registrationID})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*HealthCheck, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*HealthCheck, error) {
	return s.repo.GetByRegistration(ctx, registrationID)
}

// Resolve records the doctor's verdict exactly once. Vitals must be in
// range, a deferral needs a reason, and the owning registration moves to
// waiting_donation or rejected in the same transaction.
func (s *Service) Resolve(ctx context.Context, id uuid.UUID, reading vitals.Reading, eligible bool, deferralReason string, actor auth.Actor) (*HealthCheck, error) {
	if err := vitals.Validate(reading); err != nil {
		return nil, err
	}
	if !eligible && deferralReason == "" {
		return nil, apperr.ValidationField("deferral_reason", "a deferral requires a reason")
	}

	var out *HealthCheck
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		hc, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if hc.Resolved() {
			return apperr.InvalidTransition("health check is already resolved")
		}

		hc.applyVitals(reading)
		hc.IsEligible = &eligible
		if !eligible {
			hc.DeferralReason = &deferralReason
		}
		resolvedBy := actor.UserID
		hc.ResolvedBy = &resolvedBy
		now := time.Now().UTC()
		hc.ResolvedAt = &now

		if err := s.repo.Update(ctx, hc); err != nil {
			return fmt.Errorf("update health check: %w", err)
		}

		event := registration.EventEligible
		if !eligible {
			event = registration.EventIneligible
		}
		if _, err := s.advancer.Advance(ctx, hc.RegistrationID, event, actor); err != nil {
			return err
		}

		out = hc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("health_check_id", id.String()).
		Bool("eligible", eligible).
		Str("doctor_id", actor.UserID.String()).
		Msg("health check resolved")
	return out, nil
}
