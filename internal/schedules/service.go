package schedules

import (
	"context"
	"fmt"

	"github.com/craftmeals/preorder-backend/pkg/db/models"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines admin management of production schedules.
type Service interface {
	List(ctx context.Context) ([]models.ProductionSchedule, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ProductionSchedule, error)
	Save(ctx context.Context, input SaveInput) (*models.ProductionSchedule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteSlot(ctx context.Context, slotID uuid.UUID) error
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds a schedules service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("schedules repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) List(ctx context.Context) ([]models.ProductionSchedule, error) {
	schedules, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading schedules")
	}
	return schedules, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.ProductionSchedule, error) {
	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading schedule")
	}
	return schedule, nil
}

// Save writes the schedule header, product lines, and delivery slots in one
// transaction, diffing lines and slots against the stored state. Stock
// visible to customers never passes through an empty intermediate state.
func (s *service) Save(ctx context.Context, input SaveInput) (*models.ProductionSchedule, error) {
	if err := validateSaveInput(input); err != nil {
		return nil, err
	}

	var scheduleID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		id, err := s.saveHeader(ctx, repo, input)
		if err != nil {
			return err
		}
		scheduleID = id

		if err := s.diffLines(ctx, repo, id, input.Products); err != nil {
			return err
		}
		return s.diffSlots(ctx, repo, id, input.Deliveries)
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, scheduleID)
}

func (s *service) saveHeader(ctx context.Context, repo Repository, input SaveInput) (uuid.UUID, error) {
	if input.ID == nil {
		schedule := &models.ProductionSchedule{
			ID:     uuid.New(),
			Title:  input.Title,
			Status: input.Status,
			Notes:  input.Notes,
		}
		if err := repo.Create(ctx, schedule); err != nil {
			return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating schedule")
		}
		return schedule.ID, nil
	}

	if _, err := repo.FindByID(ctx, *input.ID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
		}
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading schedule")
	}

	update := &models.ProductionSchedule{
		ID:     *input.ID,
		Title:  input.Title,
		Status: input.Status,
		Notes:  input.Notes,
	}
	if err := repo.Update(ctx, update); err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating schedule")
	}
	return *input.ID, nil
}

func (s *service) diffLines(ctx context.Context, repo Repository, scheduleID uuid.UUID, inputs []ProductLineInput) error {
	existing, err := repo.ListLines(ctx, scheduleID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product lines")
	}

	byProduct := make(map[uuid.UUID]models.ScheduleProduct, len(existing))
	for _, line := range existing {
		byProduct[line.ProductID] = line
	}

	var inserts []models.ScheduleProduct
	kept := make(map[uuid.UUID]bool, len(inputs))
	for _, in := range inputs {
		kept[in.ProductID] = true
		current, ok := byProduct[in.ProductID]
		if !ok {
			inserts = append(inserts, models.ScheduleProduct{
				ID:         uuid.New(),
				ScheduleID: scheduleID,
				ProductID:  in.ProductID,
				Quantity:   in.Quantity,
			})
			continue
		}
		if current.Quantity != in.Quantity {
			if err := repo.UpdateLineQuantity(ctx, current.ID, in.Quantity); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating product line")
			}
		}
	}

	var removals []uuid.UUID
	for _, line := range existing {
		if !kept[line.ProductID] {
			removals = append(removals, line.ID)
		}
	}

	if err := repo.InsertLines(ctx, inserts); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting product lines")
	}
	if err := repo.DeleteLines(ctx, removals); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing product lines")
	}
	return nil
}

func (s *service) diffSlots(ctx context.Context, repo Repository, scheduleID uuid.UUID, inputs []DeliverySlotInput) error {
	existing, err := repo.ListSlots(ctx, scheduleID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading slots")
	}

	byID := make(map[uuid.UUID]models.ScheduleDelivery, len(existing))
	for _, slot := range existing {
		byID[slot.ID] = slot
	}

	var inserts []models.ScheduleDelivery
	kept := make(map[uuid.UUID]bool, len(inputs))
	for _, in := range inputs {
		if in.ID == nil {
			inserts = append(inserts, models.ScheduleDelivery{
				ID:               uuid.New(),
				ScheduleID:       scheduleID,
				DeliveryOptionID: in.DeliveryOptionID,
				DeliveryTime:     in.DeliveryTime,
				CutoffTime:       in.CutoffTime,
			})
			continue
		}

		current, ok := byID[*in.ID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "slot does not belong to schedule").
				WithDetails(map[string]string{"slot_id": in.ID.String()})
		}
		kept[current.ID] = true

		if err := repo.UpdateSlot(ctx, &models.ScheduleDelivery{
			ID:               current.ID,
			DeliveryOptionID: in.DeliveryOptionID,
			DeliveryTime:     in.DeliveryTime,
			CutoffTime:       in.CutoffTime,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating slot")
		}
	}

	for _, slot := range existing {
		if kept[slot.ID] {
			continue
		}
		refs, err := repo.CountOrdersForSlot(ctx, slot.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting slot orders")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "slot has orders and cannot be removed").
				WithDetails(map[string]any{"slot_id": slot.ID, "order_count": refs})
		}
		if err := repo.DeleteSlot(ctx, slot.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing slot")
		}
	}

	return repo.InsertSlots(ctx, inserts)
}

// Delete removes a schedule unless orders reference it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "schedule id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindByID(ctx, id); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "schedule not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading schedule")
		}

		refs, err := repo.CountOrdersForSchedule(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting schedule orders")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "schedule has orders and cannot be removed").
				WithDetails(map[string]any{"order_count": refs})
		}

		slots, err := repo.ListSlots(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading slots")
		}
		for _, slot := range slots {
			if err := repo.DeleteSlot(ctx, slot.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing slot")
			}
		}

		lines, err := repo.ListLines(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product lines")
		}
		lineIDs := make([]uuid.UUID, 0, len(lines))
		for _, line := range lines {
			lineIDs = append(lineIDs, line.ID)
		}
		if err := repo.DeleteLines(ctx, lineIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "removing product lines")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting schedule")
		}
		return nil
	})
}

// DeleteSlot removes a single slot unless orders reference it.
func (s *service) DeleteSlot(ctx context.Context, slotID uuid.UUID) error {
	if slotID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "slot id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.FindSlot(ctx, slotID); err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading slot")
		}

		refs, err := repo.CountOrdersForSlot(ctx, slotID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "counting slot orders")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "slot has orders and cannot be removed").
				WithDetails(map[string]any{"order_count": refs})
		}

		if err := repo.DeleteSlot(ctx, slotID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting slot")
		}
		return nil
	})
}

func validateSaveInput(input SaveInput) error {
	if input.Title == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown schedule status").
			WithDetails(map[string]string{"status": input.Status.String()})
	}

	seen := make(map[uuid.UUID]bool, len(input.Products))
	for _, line := range input.Products {
		if line.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if line.Quantity < 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must not be negative").
				WithDetails(map[string]string{"product_id": line.ProductID.String()})
		}
		if seen[line.ProductID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate product line").
				WithDetails(map[string]string{"product_id": line.ProductID.String()})
		}
		seen[line.ProductID] = true
	}

	for _, slot := range input.Deliveries {
		if slot.DeliveryOptionID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery option id required")
		}
		if slot.DeliveryTime.IsZero() {
			return pkgerrors.New(pkgerrors.CodeValidation, "delivery time required")
		}
	}
	return nil
}
