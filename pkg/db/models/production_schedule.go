package models

import (
	"time"

	"github.com/craftmeals/preorder-backend/pkg/enums"
	"github.com/google/uuid"
)

// ProductionSchedule groups a cooking run: which products get made, in what
// quantities, and which fulfillment slots serve it.
type ProductionSchedule struct {
	ID         uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Title      string               `gorm:"column:title;not null"`
	Status     enums.ScheduleStatus `gorm:"column:status;type:text;not null;default:draft"`
	Notes      *string              `gorm:"column:notes"`
	Products   []ScheduleProduct    `gorm:"foreignKey:ScheduleID;constraint:OnDelete:CASCADE"`
	Deliveries []ScheduleDelivery   `gorm:"foreignKey:ScheduleID"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// ScheduleProduct is one production line: a product and the quantity that
// will be made for the schedule. Quantity is the stock ceiling for orders.
type ScheduleProduct struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ScheduleID uuid.UUID `gorm:"column:schedule_id;type:uuid;not null;uniqueIndex:idx_schedule_product"`
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_schedule_product"`
	Quantity   int       `gorm:"column:quantity;not null"`
	Product    *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// ScheduleDelivery is a fulfillment slot: a delivery option bound to a
// schedule at a concrete time, optionally with an ordering cutoff.
type ScheduleDelivery struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ScheduleID       uuid.UUID       `gorm:"column:schedule_id;type:uuid;not null"`
	DeliveryOptionID uuid.UUID       `gorm:"column:delivery_option_id;type:uuid;not null"`
	DeliveryTime     time.Time       `gorm:"column:delivery_time;not null"`
	CutoffTime       *time.Time      `gorm:"column:cutoff_time"`
	DeliveryOption   *DeliveryOption `gorm:"foreignKey:DeliveryOptionID"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
