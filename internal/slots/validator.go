package slots

import (
	"context"
	"fmt"
	"time"

	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unavailability reasons surfaced in SLOT_UNAVAILABLE error details.
const (
	ReasonNotPublished  = "not_published"
	ReasonExpiredCutoff = "expired_cutoff"
)

// Validator decides which fulfillment slots are currently orderable.
type Validator interface {
	WithTx(tx *gorm.DB) Validator
	ListOrderable(ctx context.Context) ([]models.ScheduleDelivery, error)
	Validate(ctx context.Context, slotID uuid.UUID) (*models.ScheduleDelivery, error)
}

type validator struct {
	db  *gorm.DB
	now func() time.Time
}

// NewValidator builds a validator bound to the provided DB. The clock is
// injectable so cutoff behavior can be pinned in tests.
func NewValidator(db *gorm.DB, now func() time.Time) (Validator, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	if now == nil {
		now = time.Now
	}
	return &validator{db: db, now: now}, nil
}

func (v *validator) WithTx(tx *gorm.DB) Validator {
	if tx == nil {
		return v
	}
	return &validator{db: tx, now: v.now}
}

// ListOrderable returns slots a customer can order against right now:
// schedule published, delivery at least a full day out, cutoff not passed.
func (v *validator) ListOrderable(ctx context.Context) ([]models.ScheduleDelivery, error) {
	var slots []models.ScheduleDelivery
	err := v.db.WithContext(ctx).
		Preload("DeliveryOption").
		Joins("JOIN production_schedules ON production_schedules.id = schedule_deliveries.schedule_id").
		Where("production_schedules.status = ?", enums.ScheduleStatusPublished).
		Order("schedule_deliveries.delivery_time ASC").
		Find(&slots).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading slots")
	}

	now := v.now()
	orderable := slots[:0]
	for _, slot := range slots {
		if v.timeOK(slot, now) {
			orderable = append(orderable, slot)
		}
	}
	return orderable, nil
}

// Validate returns the slot when it is orderable, or a coded error naming
// the first failing reason.
func (v *validator) Validate(ctx context.Context, slotID uuid.UUID) (*models.ScheduleDelivery, error) {
	var slot models.ScheduleDelivery
	err := v.db.WithContext(ctx).
		Preload("DeliveryOption").
		Where("id = ?", slotID).
		First(&slot).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading slot")
	}

	var schedule models.ProductionSchedule
	err = v.db.WithContext(ctx).
		Where("id = ?", slot.ScheduleID).
		First(&schedule).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading schedule")
	}

	if schedule.Status != enums.ScheduleStatusPublished {
		return nil, pkgerrors.New(pkgerrors.CodeSlotUnavailable, "schedule is not published").
			WithDetails(map[string]string{"reason": ReasonNotPublished})
	}
	if !v.timeOK(slot, v.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeSlotUnavailable, "ordering window has closed").
			WithDetails(map[string]string{"reason": ReasonExpiredCutoff})
	}
	return &slot, nil
}

// timeOK enforces the lead-time rule (delivery strictly after the start of
// tomorrow, local server time) and the optional explicit cutoff.
func (v *validator) timeOK(slot models.ScheduleDelivery, now time.Time) bool {
	startOfTomorrow := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	if !slot.DeliveryTime.After(startOfTomorrow) {
		return false
	}
	if slot.CutoffTime != nil && !slot.CutoffTime.After(now) {
		return false
	}
	return true
}
