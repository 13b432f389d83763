package models

import (
	"time"

	"github.com/craftmeals/preorder-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a menu item in the catalog.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name        types.LocalizedText `gorm:"column:name;type:jsonb;not null"`
	Description types.LocalizedText `gorm:"column:description;type:jsonb"`
	Tag         types.LocalizedText `gorm:"column:tag;type:jsonb"`
	Price       decimal.Decimal     `gorm:"column:price;type:numeric(10,2);not null"`
	ImageURL    *string             `gorm:"column:image_url"`
	IsActive    bool                `gorm:"column:is_active;not null"`
	SortOrder   int                 `gorm:"column:sort_order;not null;default:0"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
