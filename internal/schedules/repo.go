package schedules

import (
	"context"

	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes schedule persistence operations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	List(ctx context.Context) ([]models.ProductionSchedule, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProductionSchedule, error)
	Create(ctx context.Context, schedule *models.ProductionSchedule) error
	Update(ctx context.Context, schedule *models.ProductionSchedule) error
	Delete(ctx context.Context, id uuid.UUID) error

	ListLines(ctx context.Context, scheduleID uuid.UUID) ([]models.ScheduleProduct, error)
	InsertLines(ctx context.Context, lines []models.ScheduleProduct) error
	UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error
	DeleteLines(ctx context.Context, lineIDs []uuid.UUID) error

	ListSlots(ctx context.Context, scheduleID uuid.UUID) ([]models.ScheduleDelivery, error)
	FindSlot(ctx context.Context, slotID uuid.UUID) (*models.ScheduleDelivery, error)
	InsertSlots(ctx context.Context, slots []models.ScheduleDelivery) error
	UpdateSlot(ctx context.Context, slot *models.ScheduleDelivery) error
	DeleteSlot(ctx context.Context, slotID uuid.UUID) error

	CountOrdersForSlot(ctx context.Context, slotID uuid.UUID) (int64, error)
	CountOrdersForSchedule(ctx context.Context, scheduleID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a schedules repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.ProductionSchedule, error) {
	var schedules []models.ProductionSchedule
	err := r.db.WithContext(ctx).
		Preload("Products.Product").
		Preload("Deliveries.DeliveryOption").
		Order("created_at DESC").
		Find(&schedules).Error
	if err != nil {
		return nil, err
	}
	return schedules, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ProductionSchedule, error) {
	var schedule models.ProductionSchedule
	err := r.db.WithContext(ctx).
		Preload("Products.Product").
		Preload("Deliveries.DeliveryOption").
		Where("id = ?", id).
		First(&schedule).Error
	if err != nil {
		return nil, err
	}
	return &schedule, nil
}

func (r *repository) Create(ctx context.Context, schedule *models.ProductionSchedule) error {
	return r.db.WithContext(ctx).
		Omit("Products", "Deliveries").
		Create(schedule).Error
}

func (r *repository) Update(ctx context.Context, schedule *models.ProductionSchedule) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductionSchedule{}).
		Where("id = ?", schedule.ID).
		Updates(map[string]any{
			"title":  schedule.Title,
			"status": schedule.Status,
			"notes":  schedule.Notes,
		}).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.ProductionSchedule{}, "id = ?", id).Error
}

func (r *repository) ListLines(ctx context.Context, scheduleID uuid.UUID) ([]models.ScheduleProduct, error) {
	var lines []models.ScheduleProduct
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) InsertLines(ctx context.Context, lines []models.ScheduleProduct) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) UpdateLineQuantity(ctx context.Context, lineID uuid.UUID, quantity int) error {
	return r.db.WithContext(ctx).
		Model(&models.ScheduleProduct{}).
		Where("id = ?", lineID).
		Update("quantity", quantity).Error
}

func (r *repository) DeleteLines(ctx context.Context, lineIDs []uuid.UUID) error {
	if len(lineIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Delete(&models.ScheduleProduct{}, "id IN ?", lineIDs).Error
}

func (r *repository) ListSlots(ctx context.Context, scheduleID uuid.UUID) ([]models.ScheduleDelivery, error) {
	var slots []models.ScheduleDelivery
	err := r.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Find(&slots).Error
	if err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *repository) FindSlot(ctx context.Context, slotID uuid.UUID) (*models.ScheduleDelivery, error) {
	var slot models.ScheduleDelivery
	err := r.db.WithContext(ctx).Where("id = ?", slotID).First(&slot).Error
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repository) InsertSlots(ctx context.Context, slots []models.ScheduleDelivery) error {
	if len(slots) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&slots).Error
}

func (r *repository) UpdateSlot(ctx context.Context, slot *models.ScheduleDelivery) error {
	return r.db.WithContext(ctx).
		Model(&models.ScheduleDelivery{}).
		Where("id = ?", slot.ID).
		Updates(map[string]any{
			"delivery_option_id": slot.DeliveryOptionID,
			"delivery_time":      slot.DeliveryTime,
			"cutoff_time":        slot.CutoffTime,
		}).Error
}

func (r *repository) DeleteSlot(ctx context.Context, slotID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&models.ScheduleDelivery{}, "id = ?", slotID).Error
}

func (r *repository) CountOrdersForSlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("schedule_delivery_id = ?", slotID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountOrdersForSchedule(ctx context.Context, scheduleID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("schedule_id = ?", scheduleID).
		Count(&count).Error
	return count, err
}
