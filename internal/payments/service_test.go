package payments

import (
	"context"
	"testing"
	"time"

	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type stubGateway struct {
	order       *models.Order
	findErr     error
	updateCalls int
	updateErr   error
}

func (g *stubGateway) FindByReference(ctx context.Context, reference string) (*models.Order, error) {
	if g.findErr != nil {
		return nil, g.findErr
	}
	return g.order, nil
}

func (g *stubGateway) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	g.updateCalls++
	if g.updateErr != nil {
		return nil, g.updateErr
	}
	updated := *g.order
	updated.Status = status
	return &updated, nil
}

type stubStore struct {
	claimed map[string]bool
	deleted []string
	failSet bool
}

func newStubStore() *stubStore {
	return &stubStore{claimed: map[string]bool{}}
}

func (s *stubStore) Get(ctx context.Context, key string) (string, error) {
	return "", nil
}

func (s *stubStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if s.failSet {
		return false, context.DeadlineExceeded
	}
	if s.claimed[key] {
		return false, nil
	}
	s.claimed[key] = true
	return true, nil
}

func (s *stubStore) IdempotencyKey(scope, id string) string {
	return "cm:idempotency:" + scope + ":" + id
}

func (s *stubStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.claimed, key)
		s.deleted = append(s.deleted, key)
	}
	return nil
}

func pendingOrder(total string) *models.Order {
	amount, _ := decimal.NewFromString(total)
	return &models.Order{
		ID:              uuid.New(),
		ReferenceNumber: "CRAFT_AB2C3D",
		Status:          enums.OrderStatusPending,
		TotalAmount:     amount,
	}
}

func notification(body string) Notification {
	return Notification{
		GmailMessageID: "msg-1",
		Sender:         "notify@payments.interac.ca",
		Subject:        "INTERAC e-Transfer: A deposit has been made",
		BodyPlain:      body,
	}
}

func newTestService(t *testing.T, gateway *stubGateway, store *stubStore) Service {
	t.Helper()
	var svc Service
	var err error
	if store != nil {
		svc, err = NewService(NewETransferParser(), gateway, store, nil, nil)
	} else {
		svc, err = NewService(NewETransferParser(), gateway, nil, nil, nil)
	}
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestVerifyMarksOrderPaid(t *testing.T) {
	gateway := &stubGateway{order: pendingOrder("42.00")}
	svc := newTestService(t, gateway, newStubStore())

	result, err := svc.Verify(context.Background(), notification("Funds Deposited! $42.00\nCRAFT_AB2C3D"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.NewStatus != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", result.NewStatus)
	}
	if result.OrderID != gateway.order.ID {
		t.Fatalf("result names wrong order")
	}
	if gateway.updateCalls != 1 {
		t.Fatalf("expected one status update, got %d", gateway.updateCalls)
	}
}

func TestVerifyRejectsOneCentOverpayment(t *testing.T) {
	gateway := &stubGateway{order: pendingOrder("42.00")}
	svc := newTestService(t, gateway, nil)

	_, err := svc.Verify(context.Background(), notification("Funds Deposited! $42.01\nCRAFT_AB2C3D"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAmountMismatch {
		t.Fatalf("expected AMOUNT_MISMATCH for a one cent overpayment, got %v", err)
	}
	if gateway.updateCalls != 0 {
		t.Fatalf("mismatched deposit must leave the order pending, got %d updates", gateway.updateCalls)
	}
}

func TestVerifyAmountMismatch(t *testing.T) {
	gateway := &stubGateway{order: pendingOrder("42.00")}
	store := newStubStore()
	svc := newTestService(t, gateway, store)

	_, err := svc.Verify(context.Background(), notification("Funds Deposited! $40.00\nCRAFT_AB2C3D"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeAmountMismatch {
		t.Fatalf("expected AMOUNT_MISMATCH, got %v", err)
	}
	if gateway.updateCalls != 0 {
		t.Fatalf("mismatch must not transition the order")
	}
	if len(store.deleted) != 1 {
		t.Fatalf("failed verification must release the idempotency claim")
	}
}

func TestVerifyAlreadyPaidShortCircuits(t *testing.T) {
	order := pendingOrder("42.00")
	order.Status = enums.OrderStatusPaid
	gateway := &stubGateway{order: order}
	svc := newTestService(t, gateway, nil)

	result, err := svc.Verify(context.Background(), notification("Funds Deposited! $42.00\nCRAFT_AB2C3D"))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if result.NewStatus != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", result.NewStatus)
	}
	if gateway.updateCalls != 0 {
		t.Fatalf("already paid order must not transition again")
	}
}

func TestVerifyDuplicateNotification(t *testing.T) {
	gateway := &stubGateway{order: pendingOrder("42.00")}
	store := newStubStore()
	svc := newTestService(t, gateway, store)
	ctx := context.Background()

	if _, err := svc.Verify(ctx, notification("Funds Deposited! $42.00\nCRAFT_AB2C3D")); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	result, err := svc.Verify(ctx, notification("Funds Deposited! $42.00\nCRAFT_AB2C3D"))
	if err != nil {
		t.Fatalf("duplicate verify: %v", err)
	}
	if !result.Duplicate {
		t.Fatalf("expected duplicate result")
	}
	if gateway.updateCalls != 1 {
		t.Fatalf("duplicate must not transition again, got %d updates", gateway.updateCalls)
	}
}

func TestVerifyProceedsWhenGuardUnavailable(t *testing.T) {
	gateway := &stubGateway{order: pendingOrder("42.00")}
	store := newStubStore()
	store.failSet = true
	svc := newTestService(t, gateway, store)

	result, err := svc.Verify(context.Background(), notification("Funds Deposited! $42.00\nCRAFT_AB2C3D"))
	if err != nil {
		t.Fatalf("verify without guard: %v", err)
	}
	if result.NewStatus != enums.OrderStatusPaid {
		t.Fatalf("expected paid, got %s", result.NewStatus)
	}
}

func TestVerifyUnknownReference(t *testing.T) {
	gateway := &stubGateway{findErr: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newTestService(t, gateway, nil)

	_, err := svc.Verify(context.Background(), notification("Funds Deposited! $42.00\nCRAFT_ZZ9999"))
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}
