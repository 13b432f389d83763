package schedules

import (
	"context"
	"testing"
	"time"

	dbpkg "github.com/craftmeals/preorder-backend/pkg/db"
	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/craftmeals/preorder-backend/pkg/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type fixture struct {
	conn    *gorm.DB
	svc     Service
	product models.Product
	option  models.DeliveryOption
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := "file:schedules_" + uuid.NewString() + "?mode=memory&cache=shared"
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

	svc, err := NewService(NewRepository(conn), dbpkg.NewFromConn(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	product := models.Product{
		ID:       uuid.New(),
		Name:     types.LocalizedText{EN: "Dumplings"},
		Price:    decimal.NewFromFloat(15.00),
		IsActive: true,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	option := models.DeliveryOption{
		ID:     uuid.New(),
		Method: enums.DeliveryMethodPickup,
		Label:  types.LocalizedText{EN: "Market"},
	}
	if err := conn.Create(&option).Error; err != nil {
		t.Fatalf("seed option: %v", err)
	}

	return &fixture{conn: conn, svc: svc, product: product, option: option}
}

func (f *fixture) seedOrderForSlot(t *testing.T, scheduleID, slotID uuid.UUID) {
	t.Helper()
	user := models.User{ID: uuid.New(), Email: uuid.NewString() + "@example.com", Role: enums.MemberRoleCustomer}
	if err := f.conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	order := models.Order{
		ID:                 uuid.New(),
		UserID:             user.ID,
		CustomerName:       "Pat",
		PhoneNumber:        "555-0101",
		ReferenceNumber:    "CRAFT_" + uuid.NewString()[:6],
		Status:             enums.OrderStatusPending,
		ScheduleID:         &scheduleID,
		ScheduleDeliveryID: &slotID,
		TotalAmount:        decimal.NewFromFloat(15.00),
	}
	if err := f.conn.Create(&order).Error; err != nil {
		t.Fatalf("seed order: %v", err)
	}
}

func TestSaveCreatesScheduleWithLinesAndSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	deliveryTime := time.Now().Add(72 * time.Hour)
	schedule, err := f.svc.Save(ctx, SaveInput{
		Title:  "Week 12",
		Status: enums.ScheduleStatusDraft,
		Products: []ProductLineInput{
			{ProductID: f.product.ID, Quantity: 30},
		},
		Deliveries: []DeliverySlotInput{
			{DeliveryOptionID: f.option.ID, DeliveryTime: deliveryTime},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(schedule.Products) != 1 || schedule.Products[0].Quantity != 30 {
		t.Fatalf("unexpected product lines: %+v", schedule.Products)
	}
	if len(schedule.Deliveries) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(schedule.Deliveries))
	}
	if schedule.Products[0].Product == nil || schedule.Products[0].Product.Name.EN != "Dumplings" {
		t.Fatalf("expected product preload")
	}
}

func TestSaveDiffsLinesWithoutReinsert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := models.Product{
		ID:       uuid.New(),
		Name:     types.LocalizedText{EN: "Buns"},
		Price:    decimal.NewFromFloat(8.00),
		IsActive: true,
	}
	if err := f.conn.Create(&other).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	created, err := f.svc.Save(ctx, SaveInput{
		Title:  "Week 13",
		Status: enums.ScheduleStatusPublished,
		Products: []ProductLineInput{
			{ProductID: f.product.ID, Quantity: 10},
			{ProductID: other.ID, Quantity: 20},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	var keptLineID uuid.UUID
	for _, line := range created.Products {
		if line.ProductID == f.product.ID {
			keptLineID = line.ID
		}
	}

	// Update one quantity, drop the other line.
	updated, err := f.svc.Save(ctx, SaveInput{
		ID:     &created.ID,
		Title:  "Week 13",
		Status: enums.ScheduleStatusPublished,
		Products: []ProductLineInput{
			{ProductID: f.product.ID, Quantity: 15},
		},
	})
	if err != nil {
		t.Fatalf("resave: %v", err)
	}
	if len(updated.Products) != 1 {
		t.Fatalf("expected 1 line after diff, got %d", len(updated.Products))
	}
	if updated.Products[0].ID != keptLineID {
		t.Fatal("expected surviving line to keep its row identity")
	}
	if updated.Products[0].Quantity != 15 {
		t.Fatalf("expected quantity 15, got %d", updated.Products[0].Quantity)
	}
}

func TestSaveBlocksRemovingSlotWithOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Save(ctx, SaveInput{
		Title:  "Week 14",
		Status: enums.ScheduleStatusPublished,
		Deliveries: []DeliverySlotInput{
			{DeliveryOptionID: f.option.ID, DeliveryTime: time.Now().Add(96 * time.Hour)},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	slot := created.Deliveries[0]
	f.seedOrderForSlot(t, created.ID, slot.ID)

	_, err = f.svc.Save(ctx, SaveInput{
		ID:         &created.ID,
		Title:      "Week 14",
		Status:     enums.ScheduleStatusPublished,
		Deliveries: nil,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict removing ordered slot, got %v", err)
	}

	// The failed save must not have removed the slot.
	after, err := f.svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(after.Deliveries) != 1 {
		t.Fatalf("expected slot to survive failed save, got %d slots", len(after.Deliveries))
	}
}

func TestDeleteScheduleGuardedByOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Save(ctx, SaveInput{
		Title:  "Week 15",
		Status: enums.ScheduleStatusPublished,
		Deliveries: []DeliverySlotInput{
			{DeliveryOptionID: f.option.ID, DeliveryTime: time.Now().Add(48 * time.Hour)},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	f.seedOrderForSlot(t, created.ID, created.Deliveries[0].ID)

	err = f.svc.Delete(ctx, created.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict deleting ordered schedule, got %v", err)
	}

	if err := f.conn.Where("schedule_id = ?", created.ID).Delete(&models.Order{}).Error; err != nil {
		t.Fatalf("clear orders: %v", err)
	}
	if err := f.svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete after clearing orders: %v", err)
	}
	if _, err := f.svc.Get(ctx, created.ID); err == nil {
		t.Fatal("expected schedule to be gone")
	}
}

func TestDeleteSlotGuardedByOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Save(ctx, SaveInput{
		Title:  "Week 16",
		Status: enums.ScheduleStatusPublished,
		Deliveries: []DeliverySlotInput{
			{DeliveryOptionID: f.option.ID, DeliveryTime: time.Now().Add(48 * time.Hour)},
		},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	slotID := created.Deliveries[0].ID
	f.seedOrderForSlot(t, created.ID, slotID)

	err = f.svc.DeleteSlot(ctx, slotID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	if err := f.conn.Where("schedule_delivery_id = ?", slotID).Delete(&models.Order{}).Error; err != nil {
		t.Fatalf("clear orders: %v", err)
	}
	if err := f.svc.DeleteSlot(ctx, slotID); err != nil {
		t.Fatalf("delete slot: %v", err)
	}
}

func TestSaveValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Save(ctx, SaveInput{Status: enums.ScheduleStatusDraft})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for missing title, got %v", err)
	}

	_, err = f.svc.Save(ctx, SaveInput{
		Title:  "x",
		Status: enums.ScheduleStatusDraft,
		Products: []ProductLineInput{
			{ProductID: f.product.ID, Quantity: 1},
			{ProductID: f.product.ID, Quantity: 2},
		},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for duplicate lines, got %v", err)
	}
}
