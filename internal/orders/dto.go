package orders

import (
	"github.com/google/uuid"
)

// ItemInput is one requested product line in a submission.
type ItemInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// SubmitInput carries a customer order submission. The server recomputes the
// total from catalog prices; client-supplied amounts are ignored.
type SubmitInput struct {
	UserID             uuid.UUID   `json:"-"`
	CustomerName       string      `json:"customer_name" validate:"required"`
	PhoneNumber        string      `json:"phone_number" validate:"required"`
	ScheduleDeliveryID uuid.UUID   `json:"schedule_delivery_id" validate:"required"`
	Notes              *string     `json:"notes,omitempty"`
	Items              []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// ListParams carries admin listing filters.
type ListParams struct {
	Limit  int
	Cursor string
	Status string
}
