package donation

import (
	"time"

	"github.com/google/uuid"

	"github.com/hemobank/hemobank/internal/domain/bloodunit"
)

// Donation maps to the donation table. Opened empty when a registration
// enters the donation room; blood group, component, and quantity are
// fixed by the collection record and never change afterwards.
type Donation struct {
	ID             uuid.UUID            `db:"id" json:"id"`
	RegistrationID uuid.UUID            `db:"registration_id" json:"registration_id"`
	FacilityID     uuid.UUID            `db:"facility_id" json:"facility_id"`
	BloodGroup     *string              `db:"blood_group" json:"blood_group"`
	Component      *bloodunit.Component `db:"component" json:"component"`
	QuantityML     int                  `db:"quantity_ml" json:"quantity_ml"`
	IsDivided      bool                 `db:"is_divided" json:"is_divided"`
	CollectedAt    *time.Time           `db:"collected_at" json:"collected_at"`
	CreatedAt      time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time            `db:"updated_at" json:"updated_at"`
}

// Collected reports whether the physical collection has been recorded.
func (d *Donation) Collected() bool {
	return d.CollectedAt != nil
}

// SplitRequest asks for one unit of the given component and volume.
type SplitRequest struct {
	Component  bloodunit.Component `json:"component"`
	QuantityML int                 `json:"quantity_ml"`
}
