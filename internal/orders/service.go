package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/craftmeals/preorder-backend/internal/catalog"
	"github.com/craftmeals/preorder-backend/internal/inventory"
	"github.com/craftmeals/preorder-backend/internal/slots"
	"github.com/craftmeals/preorder-backend/pkg/db"
	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/craftmeals/preorder-backend/pkg/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order admission and lifecycle operations.
type Service interface {
	Submit(ctx context.Context, input SubmitInput) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, error)
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus enums.OrderStatus) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	slots    slots.Validator
	stock    inventory.Calculator
	products catalog.Repository
	metrics  *metrics.OrderMetrics
	now      func() time.Time
	genRef   func() (string, error)
}

// Option tweaks service construction. Used by tests to pin the clock and
// the reference generator.
type Option func(*service)

// WithClock overrides the service clock.
func WithClock(now func() time.Time) Option {
	return func(s *service) { s.now = now }
}

// WithReferenceGenerator overrides reference number generation.
func WithReferenceGenerator(gen func() (string, error)) Option {
	return func(s *service) { s.genRef = gen }
}

// NewService builds an orders service with the required dependencies.
func NewService(
	repo Repository,
	tx txRunner,
	slotValidator slots.Validator,
	stock inventory.Calculator,
	products catalog.Repository,
	m *metrics.OrderMetrics,
	opts ...Option,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if slotValidator == nil {
		return nil, fmt.Errorf("slot validator required")
	}
	if stock == nil {
		return nil, fmt.Errorf("inventory calculator required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}

	s := &service{
		repo:     repo,
		tx:       tx,
		slots:    slotValidator,
		stock:    stock,
		products: products,
		metrics:  m,
		now:      time.Now,
		genRef:   NewReferenceNumber,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Submit runs the full admission sequence inside one transaction: slot
// validation, per-schedule stock check, server-side total, reference
// generation, order + item insert, and a post-insert stock re-check. A
// failure at any point rolls the whole order back; there is no window where
// an order row exists without its items.
func (s *service) Submit(ctx context.Context, input SubmitInput) (*models.Order, error) {
	start := s.now()
	order, err := s.submit(ctx, input)
	elapsed := s.now().Sub(start)

	if err != nil {
		s.metrics.ObserveAdmission("rejected", elapsed)
		s.metrics.IncRejected(rejectionReason(err))
		return nil, err
	}
	s.metrics.ObserveAdmission("admitted", elapsed)
	s.metrics.IncAdmitted(order.Status.String())
	return order, nil
}

func (s *service) submit(ctx context.Context, input SubmitInput) (*models.Order, error) {
	if err := validateSubmitInput(input); err != nil {
		return nil, err
	}

	// The whole admission runs at SERIALIZABLE isolation: two overlapping
	// submissions cannot both pass the stock check and commit.
	var created *models.Order
	err := s.tx.WithSerializableTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		slot, err := s.slots.WithTx(tx).Validate(ctx, input.ScheduleDeliveryID)
		if err != nil {
			return err
		}

		remaining, err := s.stock.WithTx(tx).RemainingForSchedule(ctx, slot.ScheduleID)
		if err != nil {
			return err
		}
		if err := checkStock(input.Items, remaining); err != nil {
			return err
		}

		items, total, err := s.snapshotItems(ctx, tx, input.Items)
		if err != nil {
			return err
		}

		order, err := s.insertOrder(ctx, tx, repo, input, slot, total)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting order items")
		}
		order.Items = items

		// Re-read after the insert so consumption including this order is
		// checked against production before commit.
		recheck, err := s.stock.WithTx(tx).RemainingForSchedule(ctx, slot.ScheduleID)
		if err != nil {
			return err
		}
		for _, item := range input.Items {
			entry := recheck[item.ProductID]
			if entry.Consumed > entry.Produced {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "stock exhausted during admission").
					WithDetails(map[string]any{"product_id": item.ProductID})
			}
		}

		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) snapshotItems(ctx context.Context, tx *gorm.DB, inputs []ItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, item := range inputs {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading products")
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	total := decimal.Zero
	items := make([]models.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		product, ok := byID[in.ProductID]
		if !ok {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "unknown product").
				WithDetails(map[string]string{"product_id": in.ProductID.String()})
		}
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			ProductID: product.ID,
			Name:      product.Name,
			UnitPrice: product.Price,
			Quantity:  in.Quantity,
		})
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(in.Quantity))))
	}
	return items, total, nil
}

// insertOrder creates the order row, regenerating the reference once on a
// unique-constraint collision. Each attempt runs under a savepoint: a failed
// INSERT aborts the surrounding Postgres transaction, so the retry has to
// roll back to a point before the violation.
func (s *service) insertOrder(ctx context.Context, tx *gorm.DB, repo Repository, input SubmitInput, slot *models.ScheduleDelivery, total decimal.Decimal) (*models.Order, error) {
	const savepoint = "order_insert"

	for attempt := 0; attempt < 2; attempt++ {
		ref, err := s.genRef()
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generating reference")
		}

		order := &models.Order{
			ID:                 uuid.New(),
			UserID:             input.UserID,
			CustomerName:       input.CustomerName,
			PhoneNumber:        input.PhoneNumber,
			ReferenceNumber:    ref,
			Status:             enums.OrderStatusPending,
			ScheduleID:         &slot.ScheduleID,
			ScheduleDeliveryID: &slot.ID,
			TotalAmount:        total,
			Note:               input.Notes,
		}

		if err := tx.SavePoint(savepoint).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "creating savepoint")
		}
		err = repo.Create(ctx, order)
		if err == nil {
			return order, nil
		}
		if !db.IsUniqueViolation(err, "orders_reference_number_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "inserting order")
		}
		if err := tx.RollbackTo(savepoint).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "rolling back to savepoint")
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeReferenceCollision, "reference number collided twice")
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orders, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading orders")
	}
	return orders, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Order, error) {
	if params.Status != "" {
		if _, err := enums.ParseOrderStatus(params.Status); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter").
				WithDetails(map[string]string{"status": params.Status})
		}
	}
	orders, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading orders")
	}
	return orders, nil
}

func (s *service) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	order, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
	}
	return order, nil
}

// UpdateStatus re-fetches the current status inside the transaction before
// writing. Orders that reached paid or completed are immutable; transitions
// among the editable statuses are otherwise unrestricted.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus enums.OrderStatus) (*models.Order, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]string{"status": newStatus.String()})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
		}

		if order.Status.Immutable() {
			return pkgerrors.New(pkgerrors.CodeImmutableOrder, "order status can no longer change").
				WithDetails(map[string]string{"status": order.Status.String()})
		}

		fields := map[string]any{}
		if newStatus == enums.OrderStatusPaid {
			fields["paid_at"] = s.now()
		}
		if err := repo.UpdateStatus(ctx, id, newStatus, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "updating order status")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reloading order")
	}
	return order, nil
}

// Delete removes an order and its items. Paid and completed orders cannot
// be deleted.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByID(ctx, id)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading order")
		}

		if order.Status.Immutable() {
			return pkgerrors.New(pkgerrors.CodeImmutableOrder, "order can no longer be deleted").
				WithDetails(map[string]string{"status": order.Status.String()})
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting order")
		}
		return nil
	})
}

func validateSubmitInput(input SubmitInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "customer name is required")
	}
	if strings.TrimSpace(input.PhoneNumber) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "phone number is required")
	}
	if input.ScheduleDeliveryID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "schedule delivery id is required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}

	seen := make(map[uuid.UUID]bool, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]string{"product_id": item.ProductID.String()})
		}
		if seen[item.ProductID] {
			return pkgerrors.New(pkgerrors.CodeValidation, "duplicate item").
				WithDetails(map[string]string{"product_id": item.ProductID.String()})
		}
		seen[item.ProductID] = true
	}
	return nil
}

// checkStock enforces the all-or-nothing admission rule: any shortfall
// rejects the whole order, naming the first failing product.
func checkStock(items []ItemInput, remaining map[uuid.UUID]inventory.Remaining) error {
	for _, item := range items {
		available := 0
		if entry, ok := remaining[item.ProductID]; ok {
			available = entry.Remaining
		}
		if item.Quantity > available {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "not enough stock for product").
				WithDetails(map[string]any{
					"product_id": item.ProductID,
					"requested":  item.Quantity,
					"remaining":  available,
				})
		}
	}
	return nil
}

func rejectionReason(err error) string {
	if typed := pkgerrors.As(err); typed != nil {
		return strings.ToLower(string(typed.Code()))
	}
	return "internal_error"
}
