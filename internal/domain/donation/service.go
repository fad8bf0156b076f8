package donation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/domain/bloodunit"
	"github.com/hemobank/hemobank/internal/domain/registration"
	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/auth"
	"github.com/hemobank/hemobank/internal/platform/db"
)

// Advancer moves the owning registration when a collection is recorded.
// Implemented by the registration service.
type Advancer interface {
	Advance(ctx context.Context, id uuid.UUID, event registration.Event, actor auth.Actor) (*registration.Registration, error)
}

type Service struct {
	repo     Repository
	units    bloodunit.Repository
	runner   db.TxRunner
	advancer Advancer
	log      zerolog.Logger
}

func NewService(repo Repository, units bloodunit.Repository, runner db.TxRunner, advancer Advancer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, units: units, runner: runner, advancer: advancer, log: logger}
}

// OpenDonation creates the empty collection record when a registration
// enters the donation room. Satisfies registration.DonationOpener.
func (s *Service) OpenDonation(ctx context.Context, registrationID, facilityID uuid.UUID) error {
	return s.repo.Create(ctx, &Donation{
		RegistrationID: registrationID,
		FacilityID:     facilityID,
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Donation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*Donation, error) {
	return s.repo.GetByRegistration(ctx, registrationID)
}

// SourceForUpdate locks the donation row and returns the collection
// attributes a unit edit must re-check against. Satisfies
// bloodunit.DonationReader.
func (s *Service) SourceForUpdate(ctx context.Context, donationID uuid.UUID) (bloodunit.SourceDonation, error) {
	d, err := s.repo.GetByIDForUpdate(ctx, donationID)
	if err != nil {
		return bloodunit.SourceDonation{}, err
	}
	if !d.Collected() {
		return bloodunit.SourceDonation{}, apperr.InvalidTransition("donation %s has no recorded collection", donationID)
	}
	return bloodunit.SourceDonation{Component: *d.Component, QuantityML: d.QuantityML}, nil
}

// Units lists the blood units split off a donation.
func (s *Service) Units(ctx context.Context, donationID uuid.UUID) ([]*bloodunit.BloodUnit, error) {
	if _, err := s.repo.GetByID(ctx, donationID); err != nil {
		return nil, err
	}
	return s.units.ListByDonation(ctx, donationID)
}

// RecordCollection fixes the donation's blood group, source component,
// and volume, and moves the registration out of the donation room. The
// quantity never changes after this.
func (s *Service) RecordCollection(ctx context.Context, registrationID uuid.UUID, bloodGroup string, component bloodunit.Component, quantityML int, actor auth.Actor) (*Donation, error) {
	if !bloodunit.BloodGroups[bloodGroup] {
		return nil, apperr.ValidationField("blood_group", "unknown blood group %q", bloodGroup)
	}
	if !component.Valid() {
		return nil, apperr.ValidationField("component", "unknown component %q", component)
	}
	if quantityML <= 0 {
		return nil, apperr.ValidationField("quantity_ml", "quantity must be positive")
	}

	var out *Donation
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByRegistration(ctx, registrationID)
		if err != nil {
			return err
		}
		if d.Collected() {
			return apperr.InvalidTransition("collection is already recorded for this donation")
		}

		d.BloodGroup = &bloodGroup
		d.Component = &component
		d.QuantityML = quantityML
		now := time.Now().UTC()
		d.CollectedAt = &now
		if err := s.repo.Update(ctx, d); err != nil {
			return fmt.Errorf("update donation: %w", err)
		}

		if _, err := s.advancer.Advance(ctx, registrationID, registration.EventFinishDonation, actor); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("donation_id", out.ID.String()).
		Str("blood_group", bloodGroup).
		Str("component", string(component)).
		Int("quantity_ml", quantityML).
		Msg("collection recorded")
	return out, nil
}

// Split derives typed blood units from a donation. The batch is
// all-or-nothing: every requested component must be derivable from the
// source and the running total across all splits must stay within the
// collected volume.
func (s *Service) Split(ctx context.Context, donationID uuid.UUID, requests []SplitRequest) ([]*bloodunit.BloodUnit, error) {
	if len(requests) == 0 {
		return nil, apperr.ValidationField("units", "at least one unit is required")
	}

	var created []*bloodunit.BloodUnit
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByIDForUpdate(ctx, donationID)
		if err != nil {
			return err
		}
		if !d.Collected() {
			return apperr.InvalidTransition("donation has no recorded collection yet")
		}
		if d.IsDivided {
			return apperr.InvalidTransition("splitting is closed for this donation")
		}

		existing, err := s.units.ListByDonation(ctx, donationID)
		if err != nil {
			return err
		}
		assigned := 0
		for _, u := range existing {
			assigned += u.QuantityML
		}

		requested := 0
		for _, req := range requests {
			if req.QuantityML <= 0 {
				return apperr.ValidationField("quantity_ml", "unit quantity must be positive")
			}
			if !req.Component.Valid() {
				return apperr.IllegalComponent("unknown component %q", req.Component)
			}
			if !req.Component.DerivableFrom(*d.Component) {
				return apperr.IllegalComponent("%s cannot be derived from %s", req.Component, *d.Component)
			}
			requested += req.QuantityML
		}
		if assigned+requested > d.QuantityML {
			return apperr.VolumeExceeded("requested %d ml with %d ml already assigned exceeds the %d ml collected",
				requested, assigned, d.QuantityML)
		}

		now := time.Now().UTC()
		created = make([]*bloodunit.BloodUnit, 0, len(requests))
		for _, req := range requests {
			u := &bloodunit.BloodUnit{
				DonationID:  donationID,
				FacilityID:  d.FacilityID,
				BloodGroup:  *d.BloodGroup,
				Component:   req.Component,
				QuantityML:  req.QuantityML,
				RemainingML: req.QuantityML,
				Status:      bloodunit.StatusTesting,
				TestResults: bloodunit.NewTestResults(),
				CollectedAt: now,
				ExpiresAt:   now.Add(req.Component.ShelfLife()),
			}
			if err := s.units.Create(ctx, u); err != nil {
				return fmt.Errorf("create blood unit: %w", err)
			}
			created = append(created, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("donation_id", donationID.String()).
		Int("units", len(created)).
		Msg("donation split")
	return created, nil
}

// CloseSplitting permanently ends splitting for a donation. Closing with
// unassigned volume left over is allowed but logged, since it usually
// means deliberate wastage.
func (s *Service) CloseSplitting(ctx context.Context, donationID uuid.UUID) (*Donation, error) {
	var out *Donation
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		d, err := s.repo.GetByIDForUpdate(ctx, donationID)
		if err != nil {
			return err
		}
		if d.IsDivided {
			return apperr.InvalidTransition("splitting is already closed for this donation")
		}
		if !d.Collected() {
			return apperr.InvalidTransition("donation has no recorded collection yet")
		}

		existing, err := s.units.ListByDonation(ctx, donationID)
		if err != nil {
			return err
		}
		assigned := 0
		for _, u := range existing {
			assigned += u.QuantityML
		}
		if assigned < d.QuantityML {
			s.log.Warn().
				Str("donation_id", donationID.String()).
				Int("collected_ml", d.QuantityML).
				Int("assigned_ml", assigned).
				Msg("splitting closed with unassigned volume")
		}

		d.IsDivided = true
		if err := s.repo.Update(ctx, d); err != nil {
			return err
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
