package registration

import (
	"time"

	"github.com/google/uuid"

	"github.com/hemobank/hemobank/internal/platform/auth"
)

// Status is a registration's position in the donation visit lifecycle.
type Status string

const (
	StatusPendingApproval Status = "pending_approval"
	StatusRegistered      Status = "registered"
	StatusCheckedIn       Status = "checked_in"
	StatusInConsult       Status = "in_consult"
	StatusWaitingDonation Status = "waiting_donation"
	StatusDonating        Status = "donating"
	StatusDonated         Status = "donated"
	StatusResting         Status = "resting"
	StatusPostRestCheck   Status = "post_rest_check"
	StatusCompleted       Status = "completed"

	// Terminal side branches.
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// canonicalOrder is the forward progression of a visit. rejected and
// cancelled sit outside it as terminal branches.
var canonicalOrder = []Status{
	StatusPendingApproval,
	StatusRegistered,
	StatusCheckedIn,
	StatusInConsult,
	StatusWaitingDonation,
	StatusDonating,
	StatusDonated,
	StatusResting,
	StatusPostRestCheck,
	StatusCompleted,
}

// Index returns the status's position in the canonical order, or -1
// for the terminal side branches.
func (s Status) Index() int {
	for i, st := range canonicalOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no outgoing transition is legal.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Index() >= 0 || s == StatusRejected || s == StatusCancelled
}

// Event is a command that moves a registration along its lifecycle.
type Event string

const (
	EventApprove        Event = "approve"
	EventRefuse         Event = "refuse"
	EventCheckIn        Event = "check_in"
	EventStartConsult   Event = "start_consult"
	EventEligible       Event = "eligible"
	EventIneligible     Event = "ineligible"
	EventStartDonation  Event = "start_donation"
	EventFinishDonation Event = "finish_donation"
	EventStartRest      Event = "start_rest"
	EventFinishRest     Event = "finish_rest"
	EventComplete       Event = "complete"
	EventCancel         Event = "cancel"
)

type transition struct {
	from  Status
	to    Status
	roles []string
}

// transitions maps each event to its single documented predecessor and
// the actor role allowed to fire it. Cancellation is handled separately
// since it is legal from any pre-donating state.
var transitions = map[Event]transition{
	EventApprove:        {StatusPendingApproval, StatusRegistered, []string{auth.RoleAdmin}},
	EventRefuse:         {StatusPendingApproval, StatusRejected, []string{auth.RoleAdmin}},
	EventCheckIn:        {StatusRegistered, StatusCheckedIn, []string{auth.RoleNurse}},
	EventStartConsult:   {StatusCheckedIn, StatusInConsult, []string{auth.RoleNurse}},
	EventEligible:       {StatusInConsult, StatusWaitingDonation, []string{auth.RoleDoctor}},
	EventIneligible:     {StatusInConsult, StatusRejected, []string{auth.RoleDoctor}},
	EventStartDonation:  {StatusWaitingDonation, StatusDonating, []string{auth.RoleNurse}},
	EventFinishDonation: {StatusDonating, StatusDonated, []string{auth.RoleNurse}},
	EventStartRest:      {StatusDonated, StatusResting, []string{auth.RoleNurse}},
	EventFinishRest:     {StatusResting, StatusPostRestCheck, []string{auth.RoleNurse}},
	EventComplete:       {StatusPostRestCheck, StatusCompleted, []string{auth.RoleNurse}},
}

// Registration maps to the registration table. It is the aggregate root
// of one donor visit.
type Registration struct {
	ID            uuid.UUID `db:"id" json:"id"`
	DonorID       uuid.UUID `db:"donor_id" json:"donor_id"`
	FacilityID    uuid.UUID `db:"facility_id" json:"facility_id"`
	Status        Status    `db:"status" json:"status"`
	PreferredDate time.Time `db:"preferred_date" json:"preferred_date"`
	VersionID     int       `db:"version_id" json:"version_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// StatusLog maps to the registration_status_log table. Append-only.
type StatusLog struct {
	ID             uuid.UUID `db:"id" json:"id"`
	RegistrationID uuid.UUID `db:"registration_id" json:"registration_id"`
	Status         Status    `db:"status" json:"status"`
	ChangedBy      uuid.UUID `db:"changed_by" json:"changed_by"`
	ChangedAt      time.Time `db:"changed_at" json:"changed_at"`
}
