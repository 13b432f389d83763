package deliveryoptions

import (
	"context"

	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes delivery option persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.DeliveryOption, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryOption, error)
	Upsert(ctx context.Context, option *models.DeliveryOption) error
	Delete(ctx context.Context, id uuid.UUID) error
	CountSlotReferences(ctx context.Context, id uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a delivery options repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.DeliveryOption, error) {
	var options []models.DeliveryOption
	err := r.db.WithContext(ctx).
		Order("sort_order ASC, created_at ASC").
		Find(&options).Error
	if err != nil {
		return nil, err
	}
	return options, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DeliveryOption, error) {
	var option models.DeliveryOption
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&option).Error
	if err != nil {
		return nil, err
	}
	return &option, nil
}

func (r *repository) Upsert(ctx context.Context, option *models.DeliveryOption) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"method", "label", "description", "address", "map_url",
				"fee", "is_active", "sort_order", "updated_at",
			}),
		}).
		Create(option).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.DeliveryOption{}, "id = ?", id).Error
}

// CountSlotReferences reports how many schedule slots point at the option.
func (r *repository) CountSlotReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ScheduleDelivery{}).
		Where("delivery_option_id = ?", id).
		Count(&count).Error
	return count, err
}
