package inventory

import (
	"context"
	"fmt"

	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Remaining describes stock for one product within a scope.
type Remaining struct {
	ProductID uuid.UUID `json:"product_id"`
	Produced  int       `json:"produced"`
	Consumed  int       `json:"consumed"`
	Remaining int       `json:"remaining"`
}

// Calculator derives remaining stock from production quantities minus active
// order consumption. Stock is never stored; it is always computed.
type Calculator interface {
	WithTx(tx *gorm.DB) Calculator
	RemainingForSchedule(ctx context.Context, scheduleID uuid.UUID) (map[uuid.UUID]Remaining, error)
	RemainingAcrossPublishedFuture(ctx context.Context) (map[uuid.UUID]Remaining, error)
}

type calculator struct {
	db *gorm.DB
}

// NewCalculator builds a calculator bound to the provided DB.
func NewCalculator(db *gorm.DB) (Calculator, error) {
	if db == nil {
		return nil, fmt.Errorf("db handle required")
	}
	return &calculator{db: db}, nil
}

func (c *calculator) WithTx(tx *gorm.DB) Calculator {
	if tx == nil {
		return c
	}
	return &calculator{db: tx}
}

type consumptionRow struct {
	ProductID uuid.UUID
	Total     int
}

// RemainingForSchedule returns produced/consumed/remaining per product line
// of the schedule. Consumption counts orders in pending, paid, or completed
// status; waitlisted and cancelled orders hold no stock. Remaining floors at
// zero even when consumption exceeds production.
func (c *calculator) RemainingForSchedule(ctx context.Context, scheduleID uuid.UUID) (map[uuid.UUID]Remaining, error) {
	var lines []models.ScheduleProduct
	err := c.db.WithContext(ctx).
		Where("schedule_id = ?", scheduleID).
		Find(&lines).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading production lines")
	}

	consumed, err := c.consumptionForSchedules(ctx, []uuid.UUID{scheduleID})
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]Remaining, len(lines))
	for _, line := range lines {
		used := consumed[line.ProductID]
		remaining := line.Quantity - used
		if remaining < 0 {
			remaining = 0
		}
		result[line.ProductID] = Remaining{
			ProductID: line.ProductID,
			Produced:  line.Quantity,
			Consumed:  used,
			Remaining: remaining,
		}
	}
	return result, nil
}

// RemainingAcrossPublishedFuture aggregates stock over all published
// schedules that still have an upcoming slot. The union is advisory: it
// feeds the admin dashboard, not admission decisions.
func (c *calculator) RemainingAcrossPublishedFuture(ctx context.Context) (map[uuid.UUID]Remaining, error) {
	var scheduleIDs []uuid.UUID
	err := c.db.WithContext(ctx).
		Model(&models.ProductionSchedule{}).
		Distinct("production_schedules.id").
		Joins("JOIN schedule_deliveries ON schedule_deliveries.schedule_id = production_schedules.id").
		Where("production_schedules.status = ?", enums.ScheduleStatusPublished).
		Where("schedule_deliveries.delivery_time > CURRENT_TIMESTAMP").
		Pluck("production_schedules.id", &scheduleIDs).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading published schedules")
	}
	if len(scheduleIDs) == 0 {
		return map[uuid.UUID]Remaining{}, nil
	}

	var lines []models.ScheduleProduct
	err = c.db.WithContext(ctx).
		Where("schedule_id IN ?", scheduleIDs).
		Find(&lines).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading production lines")
	}

	consumed, err := c.consumptionForSchedules(ctx, scheduleIDs)
	if err != nil {
		return nil, err
	}

	result := make(map[uuid.UUID]Remaining)
	for _, line := range lines {
		entry := result[line.ProductID]
		entry.ProductID = line.ProductID
		entry.Produced += line.Quantity
		result[line.ProductID] = entry
	}
	for productID, entry := range result {
		entry.Consumed = consumed[productID]
		entry.Remaining = entry.Produced - entry.Consumed
		if entry.Remaining < 0 {
			entry.Remaining = 0
		}
		result[productID] = entry
	}
	return result, nil
}

func (c *calculator) consumptionForSchedules(ctx context.Context, scheduleIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	var rows []consumptionRow
	err := c.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Select("order_items.product_id AS product_id, SUM(order_items.quantity) AS total").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.schedule_id IN ?", scheduleIDs).
		Where("orders.status IN ?", []enums.OrderStatus{
			enums.OrderStatusPending,
			enums.OrderStatusPaid,
			enums.OrderStatusCompleted,
		}).
		Group("order_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "summing order consumption")
	}

	consumed := make(map[uuid.UUID]int, len(rows))
	for _, row := range rows {
		consumed[row.ProductID] = row.Total
	}
	return consumed, nil
}
