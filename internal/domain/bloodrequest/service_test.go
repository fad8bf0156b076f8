package bloodrequest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/domain/bloodunit"
	"github.com/hemobank/hemobank/internal/platform/apperr"
)

// -- Mock Repositories --

type mockRepo struct {
	requests    map[uuid.UUID]*BloodRequest
	assignments []*Assignment
}

func newMockRepo() *mockRepo {
	return &mockRepo{requests: make(map[uuid.UUID]*BloodRequest)}
}

func (m *mockRepo) Create(_ context.Context, br *BloodRequest) error {
	if br.ID == uuid.Nil {
		br.ID = uuid.New()
	}
	m.requests[br.ID] = br
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*BloodRequest, error) {
	br, ok := m.requests[id]
	if !ok {
		return nil, apperr.NotFound("blood request not found")
	}
	cp := *br
	return &cp, nil
}

func (m *mockRepo) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*BloodRequest, error) {
	return m.GetByID(ctx, id)
}

func (m *mockRepo) List(_ context.Context, status Status, _, _ int) ([]*BloodRequest, int, error) {
	var out []*BloodRequest
	for _, br := range m.requests {
		if status == "" || br.Status == status {
			out = append(out, br)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	br, ok := m.requests[id]
	if !ok {
		return apperr.NotFound("blood request not found")
	}
	br.Status = status
	return nil
}

func (m *mockRepo) CreateAssignment(_ context.Context, a *Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	m.assignments = append(m.assignments, a)
	return nil
}

func (m *mockRepo) ListAssignments(_ context.Context, requestID uuid.UUID) ([]*Assignment, error) {
	var out []*Assignment
	for _, a := range m.assignments {
		if a.RequestID == requestID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockRepo) MarkAssignmentsDelivered(_ context.Context, requestID uuid.UUID, at time.Time) error {
	for _, a := range m.assignments {
		if a.RequestID == requestID && a.DeliveredAt == nil {
			ts := at
			a.DeliveredAt = &ts
		}
	}
	return nil
}

type mockUnitStore struct {
	units map[uuid.UUID]*bloodunit.BloodUnit
}

func newMockUnitStore() *mockUnitStore {
	return &mockUnitStore{units: make(map[uuid.UUID]*bloodunit.BloodUnit)}
}

func (m *mockUnitStore) LockForAllocation(_ context.Context, ids []uuid.UUID) ([]*bloodunit.BloodUnit, error) {
	var out []*bloodunit.BloodUnit
	for _, id := range ids {
		if u, ok := m.units[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockUnitStore) ApplyAllocation(_ context.Context, id uuid.UUID, newRemaining int, status bloodunit.Status) error {
	u := m.units[id]
	u.RemainingML = newRemaining
	u.Status = status
	return nil
}

type passRunner struct{}

func (passRunner) RunInTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func newTestService() (*Service, *mockRepo, *mockUnitStore) {
	repo := newMockRepo()
	units := newMockUnitStore()
	return NewService(repo, units, passRunner{}, zerolog.Nop()), repo, units
}

func seedRequest(repo *mockRepo, quantityML int) *BloodRequest {
	br := &BloodRequest{
		ID:         uuid.New(),
		FacilityID: uuid.New(),
		BloodGroup: "O+",
		Component:  bloodunit.ComponentRedCells,
		QuantityML: quantityML,
		Status:     StatusOpen,
		CreatedBy:  uuid.New(),
	}
	repo.requests[br.ID] = br
	return br
}

func seedUnit(store *mockUnitStore, facilityID uuid.UUID, remainingML int) *bloodunit.BloodUnit {
	u := &bloodunit.BloodUnit{
		ID:          uuid.New(),
		DonationID:  uuid.New(),
		FacilityID:  facilityID,
		BloodGroup:  "O+",
		Component:   bloodunit.ComponentRedCells,
		QuantityML:  remainingML,
		RemainingML: remainingML,
		Status:      bloodunit.StatusAvailable,
		ExpiresAt:   time.Now().Add(30 * 24 * time.Hour),
	}
	store.units[u.ID] = u
	return u
}

func deliveryDate() time.Time {
	return time.Now().AddDate(0, 0, 2)
}

// -- Tests --

func TestDistribute(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 400)
	u1 := seedUnit(store, br.FacilityID, 250)
	u2 := seedUnit(store, br.FacilityID, 250)

	assignments, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: u1.ID, QuantityML: 250},
		{UnitID: u2.ID, QuantityML: 150},
	}, uuid.New(), deliveryDate(), "urgent, surgery ward")
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if len(assignments) != 2 {
		t.Fatalf("expected 2 assignments, got %d", len(assignments))
	}
	for _, a := range assignments {
		if a.Note == nil || *a.Note != "urgent, surgery ward" {
			t.Errorf("assignment note not carried: %v", a.Note)
		}
	}

	// Fully consumed unit moves to reserved, the other stays available.
	if store.units[u1.ID].Status != bloodunit.StatusReserved || store.units[u1.ID].RemainingML != 0 {
		t.Errorf("u1: expected reserved/0, got %s/%d", store.units[u1.ID].Status, store.units[u1.ID].RemainingML)
	}
	if store.units[u2.ID].Status != bloodunit.StatusAvailable || store.units[u2.ID].RemainingML != 100 {
		t.Errorf("u2: expected available/100, got %s/%d", store.units[u2.ID].Status, store.units[u2.ID].RemainingML)
	}
	if repo.requests[br.ID].Status != StatusAssigned {
		t.Errorf("request status: %s", repo.requests[br.ID].Status)
	}
}

func TestDistributeInsufficientSelection(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 500)
	u := seedUnit(store, br.FacilityID, 250)

	_, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: u.ID, QuantityML: 250},
	}, uuid.New(), deliveryDate(), "")
	if !apperr.IsKind(err, apperr.KindInsufficientSelection) {
		t.Errorf("expected insufficient_selection, got %v", err)
	}
	if len(repo.assignments) != 0 {
		t.Error("no assignment may exist after a rejected batch")
	}
	if store.units[u.ID].RemainingML != 250 {
		t.Error("unit quantity must be untouched")
	}
}

func TestDistributeOverdrawnUnit(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 100)
	u := seedUnit(store, br.FacilityID, 250)

	// A concurrent winner drained the unit after the caller selected it.
	store.units[u.ID].RemainingML = 50

	_, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: u.ID, QuantityML: 100},
	}, uuid.New(), deliveryDate(), "")
	if !apperr.IsKind(err, apperr.KindConcurrentModification) {
		t.Errorf("expected concurrent_modification, got %v", err)
	}
	if len(repo.assignments) != 0 {
		t.Error("the whole batch must abort")
	}
}

func TestDistributeBatchAbortsAtomically(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 300)
	good := seedUnit(store, br.FacilityID, 250)
	drained := seedUnit(store, br.FacilityID, 250)
	store.units[drained.ID].RemainingML = 10

	_, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: good.ID, QuantityML: 250},
		{UnitID: drained.ID, QuantityML: 50},
	}, uuid.New(), deliveryDate(), "")
	if !apperr.IsKind(err, apperr.KindConcurrentModification) {
		t.Fatalf("expected concurrent_modification, got %v", err)
	}
	if len(repo.assignments) != 0 {
		t.Error("no assignment may survive an aborted batch")
	}
	if repo.requests[br.ID].Status != StatusOpen {
		t.Error("request must stay open after an aborted batch")
	}
}

func TestDistributeGroupMismatch(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 100)
	u := seedUnit(store, br.FacilityID, 250)
	store.units[u.ID].BloodGroup = "AB-"

	_, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: u.ID, QuantityML: 100},
	}, uuid.New(), deliveryDate(), "")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDistributeUnavailableUnit(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 100)

	for _, status := range []bloodunit.Status{bloodunit.StatusTesting, bloodunit.StatusRejected, bloodunit.StatusReserved, bloodunit.StatusUsed, bloodunit.StatusExpired} {
		u := seedUnit(store, br.FacilityID, 250)
		store.units[u.ID].Status = status

		_, err := svc.Distribute(context.Background(), br.ID, []Selection{
			{UnitID: u.ID, QuantityML: 100},
		}, uuid.New(), deliveryDate(), "")
		if !apperr.IsKind(err, apperr.KindConcurrentModification) {
			t.Errorf("status %s: expected concurrent_modification, got %v", status, err)
		}
	}
}

func TestDistributeForeignFacilityUnit(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 100)
	u := seedUnit(store, uuid.New(), 250)

	_, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: u.ID, QuantityML: 100},
	}, uuid.New(), deliveryDate(), "")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for foreign facility, got %v", err)
	}
	if len(repo.assignments) != 0 {
		t.Error("no assignment may exist against another facility's stock")
	}
}

func TestDistributeSecondAllocationOverCommits(t *testing.T) {
	svc, repo, store := newTestService()
	first := seedRequest(repo, 200)
	second := seedRequest(repo, 200)
	second.FacilityID = first.FacilityID
	u := seedUnit(store, first.FacilityID, 300)

	// The first allocation wins and drains the unit to 100 ml.
	if _, err := svc.Distribute(context.Background(), first.ID, []Selection{
		{UnitID: u.ID, QuantityML: 200},
	}, uuid.New(), deliveryDate(), ""); err != nil {
		t.Fatalf("first distribute failed: %v", err)
	}

	// The second selected the same unit before the first committed; its
	// re-check under the lock must now fail and leave everything intact.
	_, err := svc.Distribute(context.Background(), second.ID, []Selection{
		{UnitID: u.ID, QuantityML: 200},
	}, uuid.New(), deliveryDate(), "")
	if !apperr.IsKind(err, apperr.KindConcurrentModification) {
		t.Fatalf("expected concurrent_modification, got %v", err)
	}
	if repo.requests[second.ID].Status != StatusOpen {
		t.Errorf("losing request must stay open, got %s", repo.requests[second.ID].Status)
	}
	if store.units[u.ID].RemainingML != 100 {
		t.Errorf("unit remaining must reflect only the winner: %d ml", store.units[u.ID].RemainingML)
	}
	if got := len(repo.assignments); got != 1 {
		t.Errorf("expected only the winner's assignment, got %d", got)
	}
}

func TestDistributeDuplicateSelection(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 200)
	u := seedUnit(store, br.FacilityID, 250)

	_, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: u.ID, QuantityML: 100},
		{UnitID: u.ID, QuantityML: 100},
	}, uuid.New(), deliveryDate(), "")
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDistributeTwiceRejected(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 100)
	u := seedUnit(store, br.FacilityID, 250)

	if _, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: u.ID, QuantityML: 100},
	}, uuid.New(), deliveryDate(), ""); err != nil {
		t.Fatalf("first distribute failed: %v", err)
	}

	other := seedUnit(store, br.FacilityID, 250)
	_, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: other.ID, QuantityML: 100},
	}, uuid.New(), deliveryDate(), "")
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition, got %v", err)
	}
}

func TestConfirmDelivery(t *testing.T) {
	svc, repo, store := newTestService()
	br := seedRequest(repo, 250)
	u := seedUnit(store, br.FacilityID, 250)

	if _, err := svc.Distribute(context.Background(), br.ID, []Selection{
		{UnitID: u.ID, QuantityML: 250},
	}, uuid.New(), deliveryDate(), ""); err != nil {
		t.Fatalf("distribute failed: %v", err)
	}

	got, err := svc.ConfirmDelivery(context.Background(), br.ID)
	if err != nil {
		t.Fatalf("ConfirmDelivery failed: %v", err)
	}
	if got.Status != StatusDelivered {
		t.Errorf("expected delivered, got %s", got.Status)
	}
	if store.units[u.ID].Status != bloodunit.StatusUsed {
		t.Errorf("expected unit used, got %s", store.units[u.ID].Status)
	}
	for _, a := range repo.assignments {
		if a.DeliveredAt == nil {
			t.Error("assignment missing delivery timestamp")
		}
	}
}

func TestConfirmDeliveryWithoutDistribution(t *testing.T) {
	svc, repo, _ := newTestService()
	br := seedRequest(repo, 100)

	_, err := svc.ConfirmDelivery(context.Background(), br.ID)
	if !apperr.IsKind(err, apperr.KindInvalidTransition) {
		t.Errorf("expected invalid_transition, got %v", err)
	}
}

func TestCreateRequestValidation(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Create(context.Background(), uuid.New(), "X+", bloodunit.ComponentPlasma, 100, "", uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for group, got %v", err)
	}
	_, err = svc.Create(context.Background(), uuid.New(), "A+", bloodunit.ComponentPlasma, -5, "", uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for quantity, got %v", err)
	}
}
