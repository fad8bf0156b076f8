package bloodrequest

import (
	"time"

	"github.com/google/uuid"

	"github.com/hemobank/hemobank/internal/domain/bloodunit"
)

// Status tracks a request from demand to fulfilment.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAssigned  Status = "assigned"
	StatusDelivered Status = "delivered"
)

// BloodRequest maps to the blood_request table. External demand for a
// quantity of one component in one blood group.
type BloodRequest struct {
	ID         uuid.UUID           `db:"id" json:"id"`
	FacilityID uuid.UUID           `db:"facility_id" json:"facility_id"`
	BloodGroup string              `db:"blood_group" json:"blood_group"`
	Component  bloodunit.Component `db:"component" json:"component"`
	QuantityML int                 `db:"quantity_ml" json:"quantity_ml"`
	Status     Status              `db:"status" json:"status"`
	Note       *string             `db:"note" json:"note"`
	CreatedBy  uuid.UUID           `db:"created_by" json:"created_by"`
	CreatedAt  time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time           `db:"updated_at" json:"updated_at"`
}

// Assignment maps to the assignment table. Binds a quantity from one
// blood unit to one request; append-only.
type Assignment struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	RequestID             uuid.UUID  `db:"request_id" json:"request_id"`
	UnitID                uuid.UUID  `db:"unit_id" json:"unit_id"`
	QuantityML            int        `db:"quantity_ml" json:"quantity_ml"`
	TransporterID         uuid.UUID  `db:"transporter_id" json:"transporter_id"`
	ScheduledDeliveryDate time.Time  `db:"scheduled_delivery_date" json:"scheduled_delivery_date"`
	Note                  *string    `db:"note" json:"note"`
	DeliveredAt           *time.Time `db:"delivered_at" json:"delivered_at"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
}

// Selection is one (unit, quantity) pair picked for distribution.
type Selection struct {
	UnitID     uuid.UUID `json:"unit_id"`
	QuantityML int       `json:"quantity_ml"`
}
