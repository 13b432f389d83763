package deliveryoptions

import (
	"context"
	"testing"

	dbpkg "github.com/craftmeals/preorder-backend/pkg/db"
	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/craftmeals/preorder-backend/pkg/types"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:deliveryoptions_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.DeliveryOption{},
		&models.ProductionSchedule{},
		&models.ScheduleDelivery{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(conn), dbpkg.NewFromConn(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestSaveCreatesAndUpdates(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	option, err := svc.Save(ctx, &models.DeliveryOption{
		Method: enums.DeliveryMethodPickup,
		Label:  types.LocalizedText{EN: "Market pickup"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if option.ID == uuid.Nil {
		t.Fatal("expected id to be assigned")
	}

	option.Label = types.LocalizedText{EN: "Saturday market pickup"}
	if _, err := svc.Save(ctx, option); err != nil {
		t.Fatalf("update: %v", err)
	}

	options, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(options) != 1 {
		t.Fatalf("expected 1 option, got %d", len(options))
	}
	if options[0].Label.EN != "Saturday market pickup" {
		t.Fatalf("expected updated label, got %q", options[0].Label.EN)
	}
}

func TestSavePersistsInactiveOption(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	option, err := svc.Save(ctx, &models.DeliveryOption{
		Method:   enums.DeliveryMethodPickup,
		Label:    types.LocalizedText{EN: "Winter stand"},
		IsActive: false,
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	var stored models.DeliveryOption
	if err := conn.First(&stored, "id = ?", option.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stored.IsActive {
		t.Fatal("option created inactive must be stored inactive")
	}
}

func TestSaveValidation(t *testing.T) {
	svc := newTestService(t, newTestDB(t))
	ctx := context.Background()

	_, err := svc.Save(ctx, &models.DeliveryOption{
		Method: "teleport",
		Label:  types.LocalizedText{EN: "x"},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad method, got %v", err)
	}

	_, err = svc.Save(ctx, &models.DeliveryOption{Method: enums.DeliveryMethodDelivery})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for empty label, got %v", err)
	}
}

func TestDeleteBlockedWhileReferenced(t *testing.T) {
	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	option, err := svc.Save(ctx, &models.DeliveryOption{
		Method: enums.DeliveryMethodDelivery,
		Label:  types.LocalizedText{EN: "Downtown run"},
	})
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	schedule := models.ProductionSchedule{ID: uuid.New(), Title: "Week 12"}
	if err := conn.Create(&schedule).Error; err != nil {
		t.Fatalf("seed schedule: %v", err)
	}
	slot := models.ScheduleDelivery{
		ID:               uuid.New(),
		ScheduleID:       schedule.ID,
		DeliveryOptionID: option.ID,
	}
	if err := conn.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	err = svc.Delete(ctx, option.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict while referenced, got %v", err)
	}

	if err := conn.Delete(&slot).Error; err != nil {
		t.Fatalf("remove slot: %v", err)
	}
	if err := svc.Delete(ctx, option.ID); err != nil {
		t.Fatalf("delete after unreference: %v", err)
	}

	if err := svc.Delete(ctx, option.ID); err == nil {
		t.Fatal("expected not found on second delete")
	}
}
