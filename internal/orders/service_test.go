package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/craftmeals/preorder-backend/internal/catalog"
	"github.com/craftmeals/preorder-backend/internal/inventory"
	"github.com/craftmeals/preorder-backend/internal/slots"
	"github.com/craftmeals/preorder-backend/pkg/db"
	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/craftmeals/preorder-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var frozenNow = time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)

type fixture struct {
	conn     *gorm.DB
	svc      Service
	repo     Repository
	user     models.User
	product  models.Product
	schedule models.ProductionSchedule
	slot     models.ScheduleDelivery
}

func newFixture(t *testing.T, produced int, opts ...Option) *fixture {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.DeliveryOption{},
		&models.ProductionSchedule{},
		&models.ScheduleProduct{},
		&models.ScheduleDelivery{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{conn: conn}

	f.user = models.User{ID: uuid.New(), Email: "pat@example.com", Role: enums.MemberRoleCustomer}
	if err := conn.Create(&f.user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	option := models.DeliveryOption{
		ID:     uuid.New(),
		Method: enums.DeliveryMethodPickup,
		Label:  types.LocalizedText{EN: "Market"},
	}
	if err := conn.Create(&option).Error; err != nil {
		t.Fatalf("seed option: %v", err)
	}
	f.schedule = models.ProductionSchedule{
		ID:     uuid.New(),
		Title:  "Week 1",
		Status: enums.ScheduleStatusPublished,
	}
	if err := conn.Create(&f.schedule).Error; err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	f.slot = models.ScheduleDelivery{
		ID:               uuid.New(),
		ScheduleID:       f.schedule.ID,
		DeliveryOptionID: option.ID,
		DeliveryTime:     frozenNow.Add(72 * time.Hour),
	}
	if err := conn.Create(&f.slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}
	f.product = f.addProduct(t, "Noodles", "11.00", produced)

	f.repo = NewRepository(conn)
	validator, err := slots.NewValidator(conn, func() time.Time { return frozenNow })
	if err != nil {
		t.Fatalf("new validator: %v", err)
	}
	calc, err := inventory.NewCalculator(conn)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}

	allOpts := append([]Option{WithClock(func() time.Time { return frozenNow })}, opts...)
	svc, err := NewService(
		f.repo,
		db.NewFromConn(conn),
		validator,
		calc,
		catalog.NewRepository(conn),
		nil,
		allOpts...,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	return f
}

func (f *fixture) addProduct(t *testing.T, name, price string, produced int) models.Product {
	t.Helper()
	amount, err := decimal.NewFromString(price)
	if err != nil {
		t.Fatalf("parse price: %v", err)
	}
	product := models.Product{
		ID:       uuid.New(),
		Name:     types.LocalizedText{EN: name},
		Price:    amount,
		IsActive: true,
	}
	if err := f.conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	line := models.ScheduleProduct{
		ID:         uuid.New(),
		ScheduleID: f.schedule.ID,
		ProductID:  product.ID,
		Quantity:   produced,
	}
	if err := f.conn.Create(&line).Error; err != nil {
		t.Fatalf("seed line: %v", err)
	}
	return product
}

func (f *fixture) submitInput(items ...ItemInput) SubmitInput {
	return SubmitInput{
		UserID:             f.user.ID,
		CustomerName:       "Pat",
		PhoneNumber:        "555-0101",
		ScheduleDeliveryID: f.slot.ID,
		Items:              items,
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
}

func TestSubmitAdmitsOrderAndConsumesStock(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	order, err := f.svc.Submit(ctx, f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 3}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if order.Status != enums.OrderStatusPending {
		t.Fatalf("expected pending, got %s", order.Status)
	}
	if !ReferencePattern.MatchString(order.ReferenceNumber) {
		t.Fatalf("reference %q does not match pattern", order.ReferenceNumber)
	}
	if strings.ContainsAny(strings.TrimPrefix(order.ReferenceNumber, ReferencePrefix), "IO01Q") {
		t.Fatalf("reference %q contains ambiguous characters", order.ReferenceNumber)
	}
	if !order.TotalAmount.Equal(decimal.NewFromFloat(33.00)) {
		t.Fatalf("expected server-side total 33.00, got %s", order.TotalAmount)
	}
	if len(order.Items) != 1 || order.Items[0].Name.EN != "Noodles" {
		t.Fatalf("expected snapshot item, got %+v", order.Items)
	}
	if order.ScheduleID == nil || *order.ScheduleID != f.schedule.ID {
		t.Fatalf("expected schedule id denormalized onto order")
	}

	calc, err := inventory.NewCalculator(f.conn)
	if err != nil {
		t.Fatalf("new calculator: %v", err)
	}
	remaining, err := calc.RemainingForSchedule(ctx, f.schedule.ID)
	if err != nil {
		t.Fatalf("remaining: %v", err)
	}
	if got := remaining[f.product.ID].Remaining; got != 7 {
		t.Fatalf("expected remaining 7 after admission, got %d", got)
	}
}

func TestSubmitInsufficientStockRejectsWholeOrder(t *testing.T) {
	f := newFixture(t, 5)
	ctx := context.Background()
	scarce := f.addProduct(t, "Dumplings", "8.50", 2)

	_, err := f.svc.Submit(ctx, f.submitInput(
		ItemInput{ProductID: f.product.ID, Quantity: 3},
		ItemInput{ProductID: scarce.ID, Quantity: 10},
	))
	assertCode(t, err, pkgerrors.CodeInsufficientStock)

	var count int64
	if err := f.conn.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("rejection must leave no order rows, found %d", count)
	}
}

func TestSubmitRejectsSlotOnUnpublishedSchedule(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	if err := f.conn.Model(&models.ProductionSchedule{}).
		Where("id = ?", f.schedule.ID).
		Update("status", enums.ScheduleStatusDraft).Error; err != nil {
		t.Fatalf("unpublish: %v", err)
	}

	_, err := f.svc.Submit(ctx, f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 1}))
	assertCode(t, err, pkgerrors.CodeSlotUnavailable)
}

func TestSubmitRejectsDuplicateItems(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.submitInput(
		ItemInput{ProductID: f.product.ID, Quantity: 1},
		ItemInput{ProductID: f.product.ID, Quantity: 2},
	))
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestSubmitRegeneratesReferenceOnCollision(t *testing.T) {
	refs := []string{"CRAFT_AAAAAA", "CRAFT_BBBBBB"}
	calls := 0
	gen := func() (string, error) {
		ref := refs[calls%len(refs)]
		calls++
		return ref, nil
	}
	f := newFixture(t, 10, WithReferenceGenerator(gen))
	ctx := context.Background()

	first, err := f.svc.Submit(ctx, f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if first.ReferenceNumber != "CRAFT_AAAAAA" {
		t.Fatalf("unexpected first reference %q", first.ReferenceNumber)
	}

	// Second submission collides on AAAAAA and must retry with the next code.
	calls = 0
	second, err := f.svc.Submit(ctx, f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if second.ReferenceNumber != "CRAFT_BBBBBB" {
		t.Fatalf("expected regenerated reference, got %q", second.ReferenceNumber)
	}

	// The collided first attempt is rolled back to its savepoint; the
	// retried order must still commit with its items.
	var itemCount int64
	if err := f.conn.Model(&models.OrderItem{}).Where("order_id = ?", second.ID).Count(&itemCount).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if itemCount != 1 {
		t.Fatalf("expected 1 item on the retried order, got %d", itemCount)
	}
}

func TestSubmitGivesUpAfterSecondCollision(t *testing.T) {
	gen := func() (string, error) { return "CRAFT_CCCCCC", nil }
	f := newFixture(t, 10, WithReferenceGenerator(gen))
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 1})); err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err := f.svc.Submit(ctx, f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 1}))
	assertCode(t, err, pkgerrors.CodeReferenceCollision)
}

func TestUpdateStatusSetsPaidAtAndFreezesOrder(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	order, err := f.svc.Submit(ctx, f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 1}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	paid, err := f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if paid.Status != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", paid.Status)
	}
	if paid.PaidAt == nil || !paid.PaidAt.Equal(frozenNow) {
		t.Fatalf("expected paid_at %v, got %v", frozenNow, paid.PaidAt)
	}

	_, err = f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled)
	assertCode(t, err, pkgerrors.CodeImmutableOrder)

	err = f.svc.Delete(ctx, order.ID)
	assertCode(t, err, pkgerrors.CodeImmutableOrder)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, uuid.New(), enums.OrderStatus("shipped"))
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestUpdateStatusMissingOrder(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	_, err := f.svc.UpdateStatus(ctx, uuid.New(), enums.OrderStatusCancelled)
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestDeletePendingOrderRemovesItems(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	order, err := f.svc.Submit(ctx, f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 2}))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if err := f.svc.Delete(ctx, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var orderCount, itemCount int64
	if err := f.conn.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if err := f.conn.Model(&models.OrderItem{}).Count(&itemCount).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if orderCount != 0 || itemCount != 0 {
		t.Fatalf("expected order and items gone, got %d orders %d items", orderCount, itemCount)
	}
}

func TestListForUserReturnsOwnOrdersOnly(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	if _, err := f.svc.Submit(ctx, f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 1})); err != nil {
		t.Fatalf("submit: %v", err)
	}

	other := models.User{ID: uuid.New(), Email: "sam@example.com", Role: enums.MemberRoleCustomer}
	if err := f.conn.Create(&other).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	input := f.submitInput(ItemInput{ProductID: f.product.ID, Quantity: 1})
	input.UserID = other.ID
	if _, err := f.svc.Submit(ctx, input); err != nil {
		t.Fatalf("submit other: %v", err)
	}

	mine, err := f.svc.ListForUser(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("expected 1 order for user, got %d", len(mine))
	}
	if mine[0].UserID != f.user.ID {
		t.Fatalf("listed order belongs to wrong user")
	}
}

func TestNewReferenceNumberFormat(t *testing.T) {
	for i := 0; i < 50; i++ {
		ref, err := NewReferenceNumber()
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if !ReferencePattern.MatchString(ref) {
			t.Fatalf("reference %q does not match pattern", ref)
		}
		if strings.ContainsAny(strings.TrimPrefix(ref, ReferencePrefix), "IO01Q") {
			t.Fatalf("reference %q contains ambiguous characters", ref)
		}
	}
}
