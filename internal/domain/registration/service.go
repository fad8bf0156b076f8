package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/auth"
	"github.com/hemobank/hemobank/internal/platform/db"
)

// HealthCheckCreator opens the pending consultation record when a
// registration enters in_consult. Implemented by the healthcheck service.
type HealthCheckCreator interface {
	CreatePending(ctx context.Context, registrationID uuid.UUID) error
}

// DonationOpener opens the collection record when a registration enters
// donating. Implemented by the donation service.
type DonationOpener interface {
	OpenDonation(ctx context.Context, registrationID, facilityID uuid.UUID) error
}

type Service struct {
	repo   Repository
	runner db.TxRunner
	log    zerolog.Logger

	healthChecks HealthCheckCreator
	donations    DonationOpener
}

func NewService(repo Repository, runner db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, runner: runner, log: logger}
}

// SetHealthCheckCreator wires the consultation hook. Set once at startup.
func (s *Service) SetHealthCheckCreator(hc HealthCheckCreator) { s.healthChecks = hc }

// SetDonationOpener wires the collection hook. Set once at startup.
func (s *Service) SetDonationOpener(d DonationOpener) { s.donations = d }

// Create opens a new visit in pending_approval for the given donor.
func (s *Service) Create(ctx context.Context, donorID, facilityID uuid.UUID, preferredDate time.Time) (*Registration, error) {
	if donorID == uuid.Nil {
		return nil, apperr.ValidationField("donor_id", "donor id is required")
	}
	if facilityID == uuid.Nil {
		return nil, apperr.ValidationField("facility_id", "facility id is required")
	}
	if preferredDate.IsZero() {
		return nil, apperr.ValidationField("preferred_date", "preferred date is required")
	}

	reg := &Registration{
		DonorID:       donorID,
		FacilityID:    facilityID,
		Status:        StatusPendingApproval,
		PreferredDate: preferredDate,
		VersionID:     1,
	}

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, reg); err != nil {
			return fmt.Errorf("create registration: %w", err)
		}
		return s.repo.AppendStatusLog(ctx, &StatusLog{
			RegistrationID: reg.ID,
			Status:         StatusPendingApproval,
			ChangedBy:      donorID,
			ChangedAt:      time.Now().UTC(),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("registration_id", reg.ID.String()).
		Str("donor_id", donorID.String()).
		Msg("registration created")
	return reg, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Registration, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByDonor(ctx context.Context, donorID uuid.UUID, limit, offset int) ([]*Registration, int, error) {
	return s.repo.ListByDonor(ctx, donorID, limit, offset)
}

func (s *Service) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Registration, int, error) {
	if !status.Valid() {
		return nil, 0, apperr.ValidationField("status", "unknown status %q", status)
	}
	return s.repo.ListByStatus(ctx, status, limit, offset)
}

func (s *Service) StatusLog(ctx context.Context, id uuid.UUID) ([]*StatusLog, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListStatusLog(ctx, id)
}

// Advance fires one lifecycle event against a registration. The status
// change, its log entry, and any side records (pending health check,
// open donation) commit atomically; version guarding rejects the loser
// of a concurrent double-fire.
func (s *Service) Advance(ctx context.Context, id uuid.UUID, event Event, actor auth.Actor) (*Registration, error) {
	var out *Registration
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		reg, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}

		to, err := s.resolve(reg, event, actor)
		if err != nil {
			return err
		}

		if err := s.repo.UpdateStatus(ctx, id, to, reg.VersionID); err != nil {
			return err
		}
		if err := s.repo.AppendStatusLog(ctx, &StatusLog{
			RegistrationID: id,
			Status:         to,
			ChangedBy:      actor.UserID,
			ChangedAt:      time.Now().UTC(),
		}); err != nil {
			return fmt.Errorf("append status log: %w", err)
		}

		switch to {
		case StatusInConsult:
			if s.healthChecks != nil {
				if err := s.healthChecks.CreatePending(ctx, id); err != nil {
					return fmt.Errorf("open health check: %w", err)
				}
			}
		case StatusDonating:
			if s.donations != nil {
				if err := s.donations.OpenDonation(ctx, id, reg.FacilityID); err != nil {
					return fmt.Errorf("open donation: %w", err)
				}
			}
		}

		reg.Status = to
		reg.VersionID++
		out = reg
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("registration_id", id.String()).
		Str("event", string(event)).
		Str("status", string(out.Status)).
		Str("actor_id", actor.UserID.String()).
		Msg("registration advanced")
	return out, nil
}

// resolve checks that event is legal from the registration's current
// status and that the actor is allowed to fire it, returning the target
// status.
func (s *Service) resolve(reg *Registration, event Event, actor auth.Actor) (Status, error) {
	if event == EventCancel {
		return s.resolveCancel(reg, actor)
	}

	tr, ok := transitions[event]
	if !ok {
		return "", apperr.ValidationField("event", "unknown event %q", event)
	}
	if reg.Status != tr.from {
		return "", apperr.InvalidTransition("event %s is not legal from status %s", event, reg.Status)
	}
	if !actor.HasAnyRole(tr.roles...) {
		return "", apperr.InvalidTransition("actor is not permitted to fire event %s", event)
	}
	return tr.to, nil
}

// resolveCancel allows a donor to withdraw their own visit, or an admin
// any visit, at any point before collection starts.
func (s *Service) resolveCancel(reg *Registration, actor auth.Actor) (Status, error) {
	idx := reg.Status.Index()
	if idx < 0 || idx >= StatusDonating.Index() {
		return "", apperr.InvalidTransition("registration in status %s can no longer be cancelled", reg.Status)
	}
	if actor.HasRole(auth.RoleAdmin) {
		return StatusCancelled, nil
	}
	if !actor.HasRole(auth.RoleDonor) || actor.UserID != reg.DonorID {
		return "", apperr.InvalidTransition("only the donor or an administrator may cancel a registration")
	}
	return StatusCancelled, nil
}
