package healthcheck

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/domain/registration"
	"github.com/hemobank/hemobank/internal/platform/apperr"
	"github.com/hemobank/hemobank/internal/platform/auth"
	"github.com/hemobank/hemobank/internal/platform/vitals"
)

// -- Mock Repository --

type mockRepo struct {
	store map[uuid.UUID]*HealthCheck
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[uuid.UUID]*HealthCheck)}
}

func (m *mockRepo) Create(_ context.Context, hc *HealthCheck) error {
	if hc.ID == uuid.Nil {
		hc.ID = uuid.New()
	}
	m.store[hc.ID] = hc
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*HealthCheck, error) {
	hc, ok := m.store[id]
	if !ok {
		return nil, apperr.NotFound("health check not found")
	}
	cp := *hc
	return &cp, nil
}

func (m *mockRepo) GetByRegistration(_ context.Context, registrationID uuid.UUID) (*HealthCheck, error) {
	for _, hc := range m.store {
		if hc.RegistrationID == registrationID {
			cp := *hc
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("health check not found")
}

func (m *mockRepo) Update(_ context.Context, hc *HealthCheck) error {
	if _, ok := m.store[hc.ID]; !ok {
		return apperr.NotFound("health check not found")
	}
	cp := *hc
	m.store[hc.ID] = &cp
	return nil
}

type mockAdvancer struct {
	events []registration.Event
	err    error
}

func (m *mockAdvancer) Advance(_ context.Context, id uuid.UUID, event registration.Event, _ auth.Actor) (*registration.Registration, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.events = append(m.events, event)
	return &registration.Registration{ID: id}, nil
}

type passRunner struct{}

func (passRunner) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo, *mockAdvancer) {
	repo := newMockRepo()
	adv := &mockAdvancer{}
	return NewService(repo, passRunner{}, adv, zerolog.Nop()), repo, adv
}

func seedPending(repo *mockRepo) *HealthCheck {
	hc := &HealthCheck{ID: uuid.New(), RegistrationID: uuid.New()}
	repo.store[hc.ID] = hc
	return hc
}

func goodReading() vitals.Reading {
	return vitals.Reading{
		BloodPressure: "120/80",
		Hemoglobin:    14.5,
		Weight:        72,
		Pulse:         68,
		Temperature:   36.6,
	}
}

func doctor() auth.Actor {
	return auth.Actor{UserID: uuid.New(), Roles: []string{auth.RoleDoctor}}
}

// -- Tests --

func TestResolveEligible(t *testing.T) {
	svc, repo, adv := newTestService()
	hc := seedPending(repo)

	got, err := svc.Resolve(context.Background(), hc.ID, goodReading(), true, "", doctor())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.IsEligible == nil || !*got.IsEligible {
		t.Error("expected eligible verdict")
	}
	if got.ResolvedAt == nil || got.ResolvedBy == nil {
		t.Error("resolution metadata missing")
	}
	if len(adv.events) != 1 || adv.events[0] != registration.EventEligible {
		t.Errorf("expected eligible event, got %v", adv.events)
	}
}

func TestResolveIneligible(t *testing.T) {
	svc, repo, adv := newTestService()
	hc := seedPending(repo)

	got, err := svc.Resolve(context.Background(), hc.ID, goodReading(), false, "low hemoglobin trend", doctor())
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got.DeferralReason == nil || *got.DeferralReason != "low hemoglobin trend" {
		t.Error("deferral reason not stored")
	}
	if len(adv.events) != 1 || adv.events[0] != registration.EventIneligible {
		t.Errorf("expected ineligible event, got %v", adv.events)
	}
}

func TestResolveDeferralNeedsReason(t *testing.T) {
	svc, repo, adv := newTestService()
	hc := seedPending(repo)

	_, err := svc.Resolve(context.Background(), hc.ID, goodReading(), false, "", doctor())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if len(adv.events) != 0 {
		t.Error("registration must not move on validation failure")
	}
}

func TestResolveOutOfRangeVitals(t *testing.T) {
	svc, repo, _ := newTestService()

	cases := []struct {
		name   string
		mutate func(*vitals.Reading)
	}{
		{"systolic too high", func(r *vitals.Reading) { r.BloodPressure = "200/80" }},
		{"diastolic too low", func(r *vitals.Reading) { r.BloodPressure = "120/40" }},
		{"malformed pressure", func(r *vitals.Reading) { r.BloodPressure = "120-80" }},
		{"hemoglobin low", func(r *vitals.Reading) { r.Hemoglobin = 9.9 }},
		{"weight high", func(r *vitals.Reading) { r.Weight = 151 }},
		{"pulse high", func(r *vitals.Reading) { r.Pulse = 130 }},
		{"temperature high", func(r *vitals.Reading) { r.Temperature = 38.5 }},
	}

	for _, tc := range cases {
		hc := seedPending(repo)
		reading := goodReading()
		tc.mutate(&reading)
		_, err := svc.Resolve(context.Background(), hc.ID, reading, true, "", doctor())
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("%s: expected validation error, got %v", tc.name, err)
		}
	}
}

func TestResolveBoundaryVitalsAccepted(t *testing.T) {
	svc, repo, _ := newTestService()
	hc := seedPending(repo)

	reading := vitals.Reading{
		BloodPressure: "90/60",
		Hemoglobin:    10,
		Weight:        40,
		Pulse:         50,
		Temperature:   35,
	}
	if _, err := svc.Resolve(context.Background(), hc.ID, reading, true, "", doctor()); err != nil {
		t.Errorf("inclusive lower bounds rejected: %v", err)
	}
}

func TestResolveTwiceRejected(t *testing.T) {
	svc, repo, adv := newTestService()
	hc := seedPending(repo)

	if _, err := svc.Resolve(context.Background(), hc.ID, goodReading(), true, "", doctor()); err != nil {
		t.Fatalf("first resolve failed: %v", err)
	}
	_, err := svc.Resolve(context.Background(), hc.ID, goodReading(), true, "", doctor())
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition on second resolve, got %v", err)
	}
	if len(adv.events) != 1 {
		t.Errorf("expected exactly one advance, got %d", len(adv.events))
	}
}

func TestResolveAdvanceFailureRollsBack(t *testing.T) {
	svc, repo, adv := newTestService()
	hc := seedPending(repo)
	adv.err = apperr.InvalidTransition("event eligible is not legal from status registered")

	_, err := svc.Resolve(context.Background(), hc.ID, goodReading(), true, "", doctor())
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected propagated invalid_transition, got %v", err)
	}
}

func TestCreatePending(t *testing.T) {
	svc, _, _ := newTestService()
	regID := uuid.New()

	if err := svc.CreatePending(context.Background(), regID); err != nil {
		t.Fatalf("CreatePending failed: %v", err)
	}
	hc, err := svc.GetByRegistration(context.Background(), regID)
	if err != nil {
		t.Fatalf("GetByRegistration failed: %v", err)
	}
	if hc.Resolved() {
		t.Error("new health check must be unresolved")
	}
}
