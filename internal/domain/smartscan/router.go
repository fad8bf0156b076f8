package smartscan

import (
	"github.com/hemobank/hemobank/internal/domain/registration"
	"github.com/hemobank/hemobank/internal/platform/auth"
)

// Snapshot is the read-only projection the router decides on: the
// registration's status plus the presence and outcome of its derived
// records.
type Snapshot struct {
	Status         registration.Status
	HasHealthCheck bool
	IsEligible     *bool
	HasDonation    bool
	IsDivided      bool
}

// Action is the single next step projected for the scanning actor. Only
// check_in has a side effect; everything else is a navigation hint.
type Action struct {
	Action     string `json:"action"`
	Message    string `json:"message"`
	ButtonText string `json:"buttonText"`
	NavigateTo string `json:"navigateTo"`
}

const (
	ActionNone              = "none"
	ActionCheckIn           = "check_in"
	ActionStartConsult      = "start_consult"
	ActionResolveHealth     = "resolve_health_check"
	ActionStartDonation     = "start_donation"
	ActionRecordCollection  = "record_collection"
	ActionStartRest         = "start_rest"
	ActionFinishRest        = "finish_rest"
	ActionComplete          = "complete"
	ActionSplitDonation     = "split_donation"
	ActionAwaitOtherStation = "await_other_station"
)

type routeKey struct {
	status registration.Status
	role   string
}

// routes is the static part of the table: rows whose action does not
// depend on the derived records.
var routes = map[routeKey]Action{
	{registration.StatusRegistered, auth.RoleNurse}: {
		Action:     ActionCheckIn,
		Message:    "Donor is registered and ready to check in.",
		ButtonText: "Check In",
		NavigateTo: "/check-in",
	},
	{registration.StatusCheckedIn, auth.RoleNurse}: {
		Action:     ActionStartConsult,
		Message:    "Donor is checked in. Send them to the consult room.",
		ButtonText: "Start Consult",
		NavigateTo: "/consult",
	},
	{registration.StatusWaitingDonation, auth.RoleNurse}: {
		Action:     ActionStartDonation,
		Message:    "Donor is cleared for donation.",
		ButtonText: "Start Donation",
		NavigateTo: "/donation-room",
	},
	{registration.StatusDonating, auth.RoleNurse}: {
		Action:     ActionRecordCollection,
		Message:    "Collection is in progress.",
		ButtonText: "Record Collection",
		NavigateTo: "/donation-room/collect",
	},
	{registration.StatusDonated, auth.RoleNurse}: {
		Action:     ActionStartRest,
		Message:    "Collection is finished. Move the donor to the rest area.",
		ButtonText: "Start Rest",
		NavigateTo: "/rest",
	},
	{registration.StatusResting, auth.RoleNurse}: {
		Action:     ActionFinishRest,
		Message:    "Donor is resting.",
		ButtonText: "Finish Rest",
		NavigateTo: "/rest",
	},
	{registration.StatusPostRestCheck, auth.RoleNurse}: {
		Action:     ActionComplete,
		Message:    "Post-rest check is due.",
		ButtonText: "Complete Visit",
		NavigateTo: "/post-rest-check",
	},
}

// Route projects the single next legal action for the given snapshot
// and actor role. Pure and deterministic: the same snapshot always
// yields the same action.
func Route(snap Snapshot, role string) Action {
	if snap.Status.IsTerminal() {
		return Action{
			Action:  ActionNone,
			Message: "This visit is closed (" + string(snap.Status) + ").",
		}
	}

	switch snap.Status {
	case registration.StatusPendingApproval:
		return Action{
			Action:  ActionNone,
			Message: "Registration is awaiting administrative approval.",
		}
	case registration.StatusInConsult:
		return routeConsult(snap, role)
	case registration.StatusDonated, registration.StatusResting, registration.StatusPostRestCheck:
		if role == auth.RoleDoctor {
			return routeSplitting(snap)
		}
	}

	if a, ok := routes[routeKey{snap.Status, role}]; ok {
		return a
	}
	return Action{
		Action:  ActionAwaitOtherStation,
		Message: "No action for your role at this stage.",
	}
}

func routeConsult(snap Snapshot, role string) Action {
	if role != auth.RoleDoctor {
		return Action{
			Action:  ActionAwaitOtherStation,
			Message: "Donor is with the doctor.",
		}
	}
	if snap.HasHealthCheck && snap.IsEligible == nil {
		return Action{
			Action:     ActionResolveHealth,
			Message:    "Record vitals and resolve eligibility.",
			ButtonText: "Resolve Health Check",
			NavigateTo: "/health-check",
		}
	}
	// A consult without an open health check means the side record was
	// never created; surface it rather than inventing a verdict.
	return Action{
		Action:  ActionNone,
		Message: "No unresolved health check found for this consult.",
	}
}

func routeSplitting(snap Snapshot) Action {
	if snap.HasDonation && !snap.IsDivided {
		return Action{
			Action:     ActionSplitDonation,
			Message:    "Collected donation is ready to split into units.",
			ButtonText: "Split Donation",
			NavigateTo: "/blood-units/new",
		}
	}
	return Action{
		Action:  ActionNone,
		Message: "Donation is already divided.",
	}
}
