package healthcheck

import (
	"time"

	"github.com/google/uuid"

	"github.com/hemobank/hemobank/internal/platform/vitals"
)

// HealthCheck maps to the health_check table. One per consultation,
// created empty when the registration enters the consult room and
// resolved exactly once by a doctor.
type HealthCheck struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	RegistrationID uuid.UUID  `db:"registration_id" json:"registration_id"`
	BloodPressure  *string    `db:"blood_pressure" json:"blood_pressure"`
	Hemoglobin     *float64   `db:"hemoglobin" json:"hemoglobin"`
	Weight         *float64   `db:"weight" json:"weight"`
	Pulse          *int       `db:"pulse" json:"pulse"`
	Temperature    *float64   `db:"temperature" json:"temperature"`
	IsEligible     *bool      `db:"is_eligible" json:"is_eligible"`
	DeferralReason *string    `db:"deferral_reason" json:"deferral_reason"`
	ResolvedBy     *uuid.UUID `db:"resolved_by" json:"resolved_by"`
	ResolvedAt     *time.Time `db:"resolved_at" json:"resolved_at"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Resolved reports whether the eligibility verdict has been recorded.
func (h *HealthCheck) Resolved() bool {
	return h.IsEligible != nil
}

func (h *HealthCheck) applyVitals(r vitals.Reading) {
	bp := r.BloodPressure
	h.BloodPressure = &bp
	hb := r.Hemoglobin
	h.Hemoglobin = &hb
	w := r.Weight
	h.Weight = &w
	p := r.Pulse
	h.Pulse = &p
	temp := r.Temperature
	h.Temperature = &temp
}
