package models

import (
	"time"

	"github.com/craftmeals/preorder-backend/pkg/enums"
	"github.com/google/uuid"
)

// User represents the canonical identity entity. Identity is issued
// externally; rows here are upserted from verified token claims.
type User struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	Email     string           `gorm:"column:email;type:text;not null;uniqueIndex"`
	Name      *string          `gorm:"column:name"`
	Role      enums.MemberRole `gorm:"column:role;type:text;not null;default:customer"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
