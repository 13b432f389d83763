package models

import (
	"time"

	"github.com/craftmeals/preorder-backend/pkg/enums"
	"github.com/craftmeals/preorder-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a customer pre-order against a production schedule. The schedule
// references are nullable: a null slot means an out-of-band arrangement that
// never passed through admission and holds no scheduled stock.
type Order struct {
	ID                 uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	UserID             uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	CustomerName       string            `gorm:"column:customer_name;not null"`
	PhoneNumber        string            `gorm:"column:phone_number;not null"`
	ReferenceNumber    string            `gorm:"column:reference_number;not null;uniqueIndex"`
	Status             enums.OrderStatus `gorm:"column:status;type:text;not null;default:pending;index"`
	ScheduleID         *uuid.UUID        `gorm:"column:schedule_id;type:uuid;index"`
	ScheduleDeliveryID *uuid.UUID        `gorm:"column:schedule_delivery_id;type:uuid"`
	TotalAmount        decimal.Decimal   `gorm:"column:total_amount;type:numeric(10,2);not null"`
	Note               *string           `gorm:"column:note"`
	PaidAt             *time.Time        `gorm:"column:paid_at"`
	Items              []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	User               *User             `gorm:"foreignKey:UserID"`
	ScheduleDelivery   *ScheduleDelivery `gorm:"foreignKey:ScheduleDeliveryID"`
	CreatedAt          time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots the product name and unit price at order time so later
// catalog edits do not rewrite order history.
type OrderItem struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID           `gorm:"column:product_id;type:uuid;not null"`
	Name      types.LocalizedText `gorm:"column:name;type:jsonb;not null"`
	UnitPrice decimal.Decimal     `gorm:"column:unit_price;type:numeric(10,2);not null"`
	Quantity  int                 `gorm:"column:quantity;not null"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
}
