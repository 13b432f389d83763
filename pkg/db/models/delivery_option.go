package models

import (
	"time"

	"github.com/craftmeals/preorder-backend/pkg/enums"
	"github.com/craftmeals/preorder-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryOption is a reusable pickup location or delivery area that
// schedule slots reference.
type DeliveryOption struct {
	ID          uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Method      enums.DeliveryMethod `gorm:"column:method;type:text;not null"`
	Label       types.LocalizedText  `gorm:"column:label;type:jsonb;not null"`
	Description types.LocalizedText  `gorm:"column:description;type:jsonb"`
	Address     *string              `gorm:"column:address"`
	MapURL      *string              `gorm:"column:map_url"`
	Fee         decimal.Decimal      `gorm:"column:fee;type:numeric(10,2);not null;default:0"`
	IsActive    bool                 `gorm:"column:is_active;not null"`
	SortOrder   int                  `gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
