package smartscan

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/domain/donation"
	"github.com/hemobank/hemobank/internal/domain/healthcheck"
	"github.com/hemobank/hemobank/internal/domain/registration"
	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/auth"
	"github.com/hemobank/hemobank/internal/platform/qr"
)

// RegistrationReader is the slice of the registration service the scan
// flow uses.
type RegistrationReader interface {
	Get(ctx context.Context, id uuid.UUID) (*registration.Registration, error)
	StatusLog(ctx context.Context, id uuid.UUID) ([]*registration.StatusLog, error)
	Advance(ctx context.Context, id uuid.UUID, event registration.Event, actor auth.Actor) (*registration.Registration, error)
}

// HealthCheckReader resolves a registration's consult record, if any.
type HealthCheckReader interface {
	GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*healthcheck.HealthCheck, error)
}

// DonationReader resolves a registration's collection record, if any.
type DonationReader interface {
	GetByRegistration(ctx context.Context, registrationID uuid.UUID) (*donation.Donation, error)
}

// ScanResult bundles everything a scanning station needs to render: the
// projected action plus the records behind it.
type ScanResult struct {
	Action     string   `json:"action"`
	Status     string   `json:"status"`
	Code       int      `json:"code"`
	Data       ScanData `json:"data"`
	ActionData Action   `json:"actionData"`
}

type ScanData struct {
	Registration   *registration.Registration `json:"registration"`
	HealthCheck    *healthcheck.HealthCheck   `json:"healthCheck"`
	Donation       *donation.Donation         `json:"donation"`
	DonorStatusLog []*registration.StatusLog  `json:"donorStatusLog"`
}

type Service struct {
	registrations RegistrationReader
	healthChecks  HealthCheckReader
	donations     DonationReader
	log           zerolog.Logger
}

func NewService(regs RegistrationReader, hcs HealthCheckReader, dons DonationReader, logger zerolog.Logger) *Service {
	return &Service{registrations: regs, healthChecks: hcs, donations: dons, log: logger}
}

// Scan parses a QR payload, assembles the registration snapshot, and
// projects the next action for the scanning actor. Read-only.
func (s *Service) Scan(ctx context.Context, qrData string, actor auth.Actor) (*ScanResult, error) {
	payload, err := qr.Parse(qrData)
	if err != nil {
		return nil, err
	}

	reg, err := s.registrations.Get(ctx, payload.RegistrationID)
	if err != nil {
		return nil, err
	}

	snap := Snapshot{Status: reg.Status}
	data := ScanData{Registration: reg}

	if hc, err := s.healthChecks.GetByRegistration(ctx, reg.ID); err == nil {
		snap.HasHealthCheck = true
		snap.IsEligible = hc.IsEligible
		data.HealthCheck = hc
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	if d, err := s.donations.GetByRegistration(ctx, reg.ID); err == nil {
		snap.HasDonation = true
		snap.IsDivided = d.IsDivided
		data.Donation = d
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, err
	}

	log, err := s.registrations.StatusLog(ctx, reg.ID)
	if err != nil {
		return nil, err
	}
	data.DonorStatusLog = log

	action := Route(snap, primaryRole(actor))

	s.log.Debug().
		Str("registration_id", reg.ID.String()).
		Str("status", string(reg.Status)).
		Str("action", action.Action).
		Msg("smart scan routed")

	return &ScanResult{
		Action:     action.Action,
		Status:     string(reg.Status),
		Code:       200,
		Data:       data,
		ActionData: action,
	}, nil
}

// CheckIn is the one scan action with a side effect: it fires the
// check_in event against the scanned registration.
func (s *Service) CheckIn(ctx context.Context, qrData string, actor auth.Actor) (*registration.Registration, error) {
	payload, err := qr.Parse(qrData)
	if err != nil {
		return nil, err
	}
	return s.registrations.Advance(ctx, payload.RegistrationID, registration.EventCheckIn, actor)
}

// primaryRole picks the station role the routing table keys on.
func primaryRole(actor auth.Actor) string {
	for _, r := range []string{auth.RoleDoctor, auth.RoleNurse, auth.RoleManager} {
		for _, have := range actor.Roles {
			if have == r {
				return r
			}
		}
	}
	if len(actor.Roles) > 0 {
		return actor.Roles[0]
	}
	return ""
}
