package bloodrequest

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/domain/bloodunit"
	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/db"
)

// UnitStore is the slice of the blood unit repository distribution
// needs: locked reads and allocation writes.
type UnitStore interface {
	LockForAllocation(ctx context.Context, ids []uuid.UUID) ([]*bloodunit.BloodUnit, error)
	ApplyAllocation(ctx context.Context, id uuid.UUID, newRemaining int, status bloodunit.Status) error
}

type Service struct {
	repo   Repository
	units  UnitStore
	runner db.TxRunner
	log    zerolog.Logger
}

func NewService(repo Repository, units UnitStore, runner db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{repo: repo, units: units, runner: runner, log: logger}
}

// Create registers external demand for blood.
func (s *Service) Create(ctx context.Context, facilityID uuid.UUID, bloodGroup string, component bloodunit.Component, quantityML int, note string, createdBy uuid.UUID) (*BloodRequest, error) {
	if !bloodunit.BloodGroups[bloodGroup] {
		return nil, apperr.ValidationField("blood_group", "unknown blood group %q", bloodGroup)
	}
	if !component.Valid() {
		return nil, apperr.ValidationField("component", "unknown component %q", component)
	}
	if quantityML <= 0 {
		return nil, apperr.ValidationField("quantity_ml", "quantity must be positive")
	}
	if facilityID == uuid.Nil {
		return nil, apperr.ValidationField("facility_id", "facility id is required")
	}

	br := &BloodRequest{
		FacilityID: facilityID,
		BloodGroup: bloodGroup,
		Component:  component,
		QuantityML: quantityML,
		Status:     StatusOpen,
		CreatedBy:  createdBy,
	}
	if note != "" {
		br.Note = &note
	}
	if err := s.repo.Create(ctx, br); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", br.ID.String()).
		Str("blood_group", bloodGroup).
		Str("component", string(component)).
		Int("quantity_ml", quantityML).
		Msg("blood request created")
	return br, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*BloodRequest, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, status Status, limit, offset int) ([]*BloodRequest, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) Assignments(ctx context.Context, requestID uuid.UUID) ([]*Assignment, error) {
	if _, err := s.repo.GetByID(ctx, requestID); err != nil {
		return nil, err
	}
	return s.repo.ListAssignments(ctx, requestID)
}

// Distribute allocates the selected units against a request. The whole
// batch commits or aborts as one: the selection must cover the request,
// every unit must match the demanded group and component, and every
// quantity must still fit the unit's remaining volume at commit time.
// Retrying after any failure requires re-querying the inventory first.
func (s *Service) Distribute(ctx context.Context, requestID uuid.UUID, selections []Selection, transporterID uuid.UUID, scheduledDeliveryDate time.Time, note string) ([]*Assignment, error) {
	if len(selections) == 0 {
		return nil, apperr.ValidationField("blood_units", "at least one unit must be selected")
	}
	if transporterID == uuid.Nil {
		return nil, apperr.ValidationField("transporter_id", "transporter id is required")
	}
	if scheduledDeliveryDate.IsZero() {
		return nil, apperr.ValidationField("scheduled_delivery_date", "scheduled delivery date is required")
	}

	seen := make(map[uuid.UUID]bool, len(selections))
	ids := make([]uuid.UUID, 0, len(selections))
	total := 0
	for _, sel := range selections {
		if sel.QuantityML <= 0 {
			return nil, apperr.ValidationField("quantity_ml", "selected quantity must be positive")
		}
		if seen[sel.UnitID] {
			return nil, apperr.ValidationField("blood_units", "unit %s selected more than once", sel.UnitID)
		}
		seen[sel.UnitID] = true
		ids = append(ids, sel.UnitID)
		total += sel.QuantityML
	}

	// Lock in a deterministic order so two concurrent distributions can
	// never deadlock against each other.
	sortUUIDs(ids)

	var created []*Assignment
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.repo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusOpen {
			return apperr.InvalidTransition("request in status %s cannot be distributed", req.Status)
		}
		if total < req.QuantityML {
			return apperr.InsufficientSelection("selected %d ml but the request demands %d ml", total, req.QuantityML)
		}

		units, err := s.units.LockForAllocation(ctx, ids)
		if err != nil {
			return err
		}
		byID := make(map[uuid.UUID]*bloodunit.BloodUnit, len(units))
		for _, u := range units {
			byID[u.ID] = u
		}

		for _, sel := range selections {
			u, ok := byID[sel.UnitID]
			if !ok {
				return apperr.NotFound("blood unit %s not found", sel.UnitID)
			}
			if u.Status != bloodunit.StatusAvailable {
				return apperr.ConcurrentModification("unit %s is no longer available", u.ID)
			}
			if u.FacilityID != req.FacilityID {
				return apperr.ValidationField("blood_units", "unit %s belongs to another facility", u.ID)
			}
			if u.BloodGroup != req.BloodGroup {
				return apperr.ValidationField("blood_units", "unit %s is group %s, request demands %s", u.ID, u.BloodGroup, req.BloodGroup)
			}
			if u.Component != req.Component {
				return apperr.ValidationField("blood_units", "unit %s is %s, request demands %s", u.ID, u.Component, req.Component)
			}
			if sel.QuantityML > u.RemainingML {
				return apperr.ConcurrentModification("unit %s has only %d ml remaining", u.ID, u.RemainingML)
			}
		}

		created = make([]*Assignment, 0, len(selections))
		for _, sel := range selections {
			u := byID[sel.UnitID]
			a := &Assignment{
				RequestID:             requestID,
				UnitID:                sel.UnitID,
				QuantityML:            sel.QuantityML,
				TransporterID:         transporterID,
				ScheduledDeliveryDate: scheduledDeliveryDate,
			}
			if note != "" {
				a.Note = &note
			}
			if err := s.repo.CreateAssignment(ctx, a); err != nil {
				return fmt.Errorf("create assignment: %w", err)
			}

			remaining := u.RemainingML - sel.QuantityML
			status := u.Status
			if remaining == 0 {
				status = bloodunit.StatusReserved
			}
			if err := s.units.ApplyAllocation(ctx, u.ID, remaining, status); err != nil {
				return fmt.Errorf("apply allocation: %w", err)
			}
			created = append(created, a)
		}

		return s.repo.UpdateStatus(ctx, requestID, StatusAssigned)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("request_id", requestID.String()).
		Int("assignments", len(created)).
		Int("total_ml", total).
		Msg("blood request distributed")
	return created, nil
}

// ConfirmDelivery records the transporter's handover: assignments get a
// delivery timestamp and fully reserved units become used.
func (s *Service) ConfirmDelivery(ctx context.Context, requestID uuid.UUID) (*BloodRequest, error) {
	var out *BloodRequest
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		req, err := s.repo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if req.Status != StatusAssigned {
			return apperr.InvalidTransition("request in status %s has no pending delivery", req.Status)
		}

		assignments, err := s.repo.ListAssignments(ctx, requestID)
		if err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(assignments))
		for _, a := range assignments {
			ids = append(ids, a.UnitID)
		}
		sortUUIDs(ids)

		units, err := s.units.LockForAllocation(ctx, ids)
		if err != nil {
			return err
		}
		for _, u := range units {
			if u.Status == bloodunit.StatusReserved {
				if err := s.units.ApplyAllocation(ctx, u.ID, u.RemainingML, bloodunit.StatusUsed); err != nil {
					return err
				}
			}
		}

		if err := s.repo.MarkAssignmentsDelivered(ctx, requestID, time.Now().UTC()); err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, requestID, StatusDelivered); err != nil {
			return err
		}
		req.Status = StatusDelivered
		out = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("request_id", requestID.String()).Msg("delivery confirmed")
	return out, nil
}

func sortUUIDs(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
}
