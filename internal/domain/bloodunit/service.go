package bloodunit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/db"
)

// SourceDonation is the slice of the owning collection record needed to
// re-check splitting rules when a unit is edited.
type SourceDonation struct {
	Component  Component
	QuantityML int
}

// DonationReader loads the owning donation under its row lock so unit
// edits serialize with concurrent splits against the same donation.
// Implemented by the donation service.
type DonationReader interface {
	SourceForUpdate(ctx context.Context, donationID uuid.UUID) (SourceDonation, error)
}

type Service struct {
	repo      Repository
	donations DonationReader
	runner    db.TxRunner
	log       zerolog.Logger
}

func NewService(repo Repository, donations DonationReader, runner db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, donations: donations, runner: runner, log: logger}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*BloodUnit, error) {
	return s.repo.GetByID(ctx, id)
}

// List is the inventory query surface. Results come back in
// first-expire-first-out order.
func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*BloodUnit, int, error) {
	if f.BloodGroup != "" && !BloodGroups[f.BloodGroup] {
		return nil, 0, apperr.ValidationField("blood_group", "unknown blood group %q", f.BloodGroup)
	}
	if f.Component != "" && !f.Component.Valid() {
		return nil, 0, apperr.ValidationField("component", "unknown component %q", f.Component)
	}
	return s.repo.List(ctx, f, limit, offset)
}

// RecordTest writes one assay result. Legal only while the unit is in
// testing; results never revert to pending.
func (s *Service) RecordTest(ctx context.Context, unitID uuid.UUID, assay Assay, result Result) (*BloodUnit, error) {
	if !assay.Valid() {
		return nil, apperr.ValidationField("assay", "unknown assay %q", assay)
	}
	if result != ResultNegative && result != ResultPositive {
		return nil, apperr.ValidationField("result", "result must be negative or positive")
	}

	var out *BloodUnit
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.repo.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		if u.Status != StatusTesting {
			return apperr.InvalidTransition("unit in status %s does not accept test results", u.Status)
		}
		u.TestResults.Set(assay, result)
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("unit_id", unitID.String()).
		Str("assay", string(assay)).
		Str("result", string(result)).
		Msg("test result recorded")
	return out, nil
}

// Confirm applies the admission decision once all four assays resolved:
// any positive rejects the unit, all negative admits it to inventory.
// Both outcomes are final.
func (s *Service) Confirm(ctx context.Context, unitID uuid.UUID) (*BloodUnit, error) {
	var out *BloodUnit
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.repo.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		if u.Status != StatusTesting {
			return apperr.InvalidTransition("unit in status %s cannot be confirmed", u.Status)
		}
		if !u.TestResults.AllResolved() {
			return apperr.IncompleteTests("all four assays must be resolved before confirmation")
		}
		if u.TestResults.AnyPositive() {
			u.Status = StatusRejected
		} else {
			u.Status = StatusAvailable
		}
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("unit_id", unitID.String()).
		Str("status", string(out.Status)).
		Msg("unit confirmed")
	return out, nil
}

// UpdatePatch applies a partial correction to a unit still in testing.
// Quantity, expiry and assay results may be fixed while no admission
// decision exists; statuses only change through Confirm.
type UpdatePatch struct {
	Component   *Component
	QuantityML  *int
	ExpiresAt   *time.Time
	TestResults map[Assay]Result
}

func (s *Service) Update(ctx context.Context, unitID uuid.UUID, patch UpdatePatch) (*BloodUnit, error) {
	var out *BloodUnit
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.repo.GetByID(ctx, unitID)
		if err != nil {
			return err
		}
		if u.Status != StatusTesting {
			return apperr.InvalidTransition("unit in status %s can no longer be edited", u.Status)
		}
		if patch.Component != nil || patch.QuantityML != nil {
			if err := s.applySplitPatch(ctx, u, patch); err != nil {
				return err
			}
		}
		if patch.ExpiresAt != nil {
			u.ExpiresAt = *patch.ExpiresAt
		}
		for assay, result := range patch.TestResults {
			if !assay.Valid() {
				return apperr.ValidationField("test_results", "unknown assay %q", assay)
			}
			if result != ResultNegative && result != ResultPositive {
				return apperr.ValidationField("test_results", "result must be negative or positive")
			}
			u.TestResults.Set(assay, result)
		}
		if err := s.repo.Update(ctx, u); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// applySplitPatch edits a unit's component or quantity. Both attributes
// were fixed by the split, so the split rules hold here too: the new
// component must derive from the donation's and the donation's volume
// stays conserved across all of its units. The donation row lock keeps
// a concurrent split from claiming the same volume.
func (s *Service) applySplitPatch(ctx context.Context, u *BloodUnit, patch UpdatePatch) error {
	src, err := s.donations.SourceForUpdate(ctx, u.DonationID)
	if err != nil {
		return err
	}

	if patch.Component != nil {
		if !patch.Component.Valid() {
			return apperr.ValidationField("component", "unknown component %q", *patch.Component)
		}
		if !patch.Component.DerivableFrom(src.Component) {
			return apperr.IllegalComponent("%s cannot be derived from a %s donation", *patch.Component, src.Component)
		}
		u.Component = *patch.Component
	}

	if patch.QuantityML != nil {
		if *patch.QuantityML <= 0 {
			return apperr.ValidationField("quantity_ml", "quantity must be positive")
		}
		siblings, err := s.repo.ListByDonation(ctx, u.DonationID)
		if err != nil {
			return err
		}
		allotted := 0
		for _, sib := range siblings {
			if sib.ID != u.ID {
				allotted += sib.QuantityML
			}
		}
		if allotted+*patch.QuantityML > src.QuantityML {
			return apperr.VolumeExceeded("units would total %d ml against a %d ml donation",
				allotted+*patch.QuantityML, src.QuantityML)
		}
		u.QuantityML = *patch.QuantityML
		u.RemainingML = *patch.QuantityML
	}

	return nil
}

// ExpireOverdue sweeps units past their expiry into the expired status.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	n, err := s.repo.ExpireOverdue(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info().Int("count", n).Msg("expired overdue units")
	}
	return n, nil
}
