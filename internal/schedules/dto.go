package schedules

import (
	"time"

	"github.com/craftmeals/preorder-backend/pkg/enums"
	"github.com/google/uuid"
)

// ProductLineInput is one production line in a schedule save request.
type ProductLineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gte=0"`
}

// DeliverySlotInput is one fulfillment slot in a schedule save request.
// A nil ID means the slot is new.
type DeliverySlotInput struct {
	ID               *uuid.UUID `json:"id,omitempty"`
	DeliveryOptionID uuid.UUID  `json:"delivery_option_id" validate:"required"`
	DeliveryTime     time.Time  `json:"delivery_time" validate:"required"`
	CutoffTime       *time.Time `json:"cutoff_time,omitempty"`
}

// SaveInput carries a full schedule definition. Save diffs it against the
// stored state; lines and slots absent from the input are removed.
type SaveInput struct {
	ID         *uuid.UUID           `json:"id,omitempty"`
	Title      string               `json:"title" validate:"required"`
	Status     enums.ScheduleStatus `json:"status" validate:"required"`
	Notes      *string              `json:"notes,omitempty"`
	Products   []ProductLineInput   `json:"products" validate:"dive"`
	Deliveries []DeliverySlotInput  `json:"deliveries" validate:"dive"`
}
