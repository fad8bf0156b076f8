package bloodunit

import (
	"time"

	"github.com/google/uuid"
)

// Component is a blood fraction type.
type Component string

const (
	ComponentWhole     Component = "WHOLE"
	ComponentRedCells  Component = "RED_CELLS"
	ComponentPlasma    Component = "PLASMA"
	ComponentPlatelets Component = "PLATELETS"
)

// shelfLives holds the storage life applied when a unit is created.
var shelfLives = map[Component]time.Duration{
	ComponentWhole:     35 * 24 * time.Hour,
	ComponentRedCells:  42 * 24 * time.Hour,
	ComponentPlasma:    365 * 24 * time.Hour,
	ComponentPlatelets: 5 * 24 * time.Hour,
}

func (c Component) Valid() bool {
	_, ok := shelfLives[c]
	return ok
}

func (c Component) ShelfLife() time.Duration {
	return shelfLives[c]
}

// DerivableFrom reports whether a unit of component c may be split off a
// donation of the source component. Whole blood splits into anything;
// every other source only reproduces itself.
func (c Component) DerivableFrom(source Component) bool {
	if source == ComponentWhole {
		return c.Valid()
	}
	return c == source
}

// BloodGroups is the recognised ABO/Rh set.
var BloodGroups = map[string]bool{
	"A+": true, "A-": true,
	"B+": true, "B-": true,
	"AB+": true, "AB-": true,
	"O+": true, "O-": true,
}

// Status is a blood unit's inventory state.
type Status string

const (
	StatusTesting   Status = "testing"
	StatusAvailable Status = "available"
	StatusReserved  Status = "reserved"
	StatusUsed      Status = "used"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
)

// IsTerminal reports whether no further transition is legal.
func (s Status) IsTerminal() bool {
	return s == StatusRejected || s == StatusUsed || s == StatusExpired
}

// Assay identifies one of the four mandatory screening tests.
type Assay string

const (
	AssayHIV        Assay = "hiv"
	AssayHepatitisB Assay = "hepatitis_b"
	AssayHepatitisC Assay = "hepatitis_c"
	AssaySyphilis   Assay = "syphilis"
)

// Assays lists every mandatory assay; confirmation requires all of them
// resolved.
var Assays = []Assay{AssayHIV, AssayHepatitisB, AssayHepatitisC, AssaySyphilis}

func (a Assay) Valid() bool {
	for _, known := range Assays {
		if a == known {
			return true
		}
	}
	return false
}

// Result is the outcome of one assay.
type Result string

const (
	ResultPending  Result = "pending"
	ResultNegative Result = "negative"
	ResultPositive Result = "positive"
)

// TestResults holds the four assay outcomes for one unit.
type TestResults struct {
	HIV        Result `db:"test_hiv" json:"hiv"`
	HepatitisB Result `db:"test_hepatitis_b" json:"hepatitis_b"`
	HepatitisC Result `db:"test_hepatitis_c" json:"hepatitis_c"`
	Syphilis   Result `db:"test_syphilis" json:"syphilis"`
}

func NewTestResults() TestResults {
	return TestResults{
		HIV:        ResultPending,
		HepatitisB: ResultPending,
		HepatitisC: ResultPending,
		Syphilis:   ResultPending,
	}
}

// Get returns the result of the given assay.
func (t TestResults) Get(a Assay) Result {
	switch a {
	case AssayHIV:
		return t.HIV
	case AssayHepatitisB:
		return t.HepatitisB
	case AssayHepatitisC:
		return t.HepatitisC
	case AssaySyphilis:
		return t.Syphilis
	}
	return ""
}

// Set records the result of the given assay.
func (t *TestResults) Set(a Assay, r Result) {
	switch a {
	case AssayHIV:
		t.HIV = r
	case AssayHepatitisB:
		t.HepatitisB = r
	case AssayHepatitisC:
		t.HepatitisC = r
	case AssaySyphilis:
		t.Syphilis = r
	}
}

// AllResolved reports whether every assay has a non-pending result.
func (t TestResults) AllResolved() bool {
	for _, a := range Assays {
		if t.Get(a) == ResultPending {
			return false
		}
	}
	return true
}

// AnyPositive reports whether any assay came back positive.
func (t TestResults) AnyPositive() bool {
	for _, a := range Assays {
		if t.Get(a) == ResultPositive {
			return true
		}
	}
	return false
}

// BloodUnit maps to the blood_unit table. Quantities are millilitres.
type BloodUnit struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	DonationID  uuid.UUID   `db:"donation_id" json:"donation_id"`
	FacilityID  uuid.UUID   `db:"facility_id" json:"facility_id"`
	BloodGroup  string      `db:"blood_group" json:"blood_group"`
	Component   Component   `db:"component" json:"component"`
	QuantityML  int         `db:"quantity_ml" json:"quantity_ml"`
	RemainingML int         `db:"remaining_ml" json:"remaining_ml"`
	Status      Status      `db:"status" json:"status"`
	TestResults TestResults `db:"-" json:"test_results"`
	CollectedAt time.Time   `db:"collected_at" json:"collected_at"`
	ExpiresAt   time.Time   `db:"expires_at" json:"expires_at"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}
