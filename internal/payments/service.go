package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/craftmeals/preorder-backend/pkg/db/models"
	"github.com/craftmeals/preorder-backend/pkg/enums"
	pkgerrors "github.com/craftmeals/preorder-backend/pkg/errors"
	"github.com/craftmeals/preorder-backend/pkg/logger"
	"github.com/craftmeals/preorder-backend/pkg/metrics"
	"github.com/craftmeals/preorder-backend/pkg/redis"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	idempotencyScope      = "etransfer"
	defaultIdempotencyTTL = 720 * time.Hour
)

// amountTolerance bounds the accepted difference between the bank's deposit
// line and the stored order total. A deposit a full cent or more away from
// the total is a mismatch.
var amountTolerance = decimal.NewFromFloat(0.01)

// Notification is the webhook payload forwarded by the mailbox watcher.
type Notification struct {
	GmailMessageID string `json:"gmail_message_id" validate:"required"`
	Sender         string `json:"sender"`
	Subject        string `json:"subject"`
	Date           string `json:"date"`
	BodyPlain      string `json:"body_plain" validate:"required"`
}

// Result reports the outcome of a verified notification.
type Result struct {
	OrderID   uuid.UUID
	NewStatus enums.OrderStatus
	Message   string
	Duplicate bool
}

// orderGateway is the slice of the orders service the verifier needs.
type orderGateway interface {
	FindByReference(ctx context.Context, reference string) (*models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (*models.Order, error)
}

// Service reconciles e-transfer notifications against pending orders.
type Service interface {
	Verify(ctx context.Context, notification Notification) (*Result, error)
}

type service struct {
	parser      Parser
	orders      orderGateway
	idempotency redis.IdempotencyStore
	metrics     *metrics.WebhookMetrics
	logg        *logger.Logger
	ttl         time.Duration
}

// Option tweaks service construction.
type Option func(*service)

// WithIdempotencyTTL overrides how long a processed message id is remembered.
func WithIdempotencyTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// NewService builds the payment verification service. The idempotency store,
// metrics, and logger are optional.
func NewService(parser Parser, gateway orderGateway, idempotency redis.IdempotencyStore, m *metrics.WebhookMetrics, logg *logger.Logger, opts ...Option) (Service, error) {
	if parser == nil {
		return nil, fmt.Errorf("parser required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("order gateway required")
	}
	s := &service{
		parser:      parser,
		orders:      gateway,
		idempotency: idempotency,
		metrics:     m,
		logg:        logg,
		ttl:         defaultIdempotencyTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Verify parses the notification, matches it to an order by reference
// number, checks the deposited amount against the order total, and marks
// the order paid. Re-delivered notifications and already-paid orders both
// resolve as successes without a second transition.
func (s *service) Verify(ctx context.Context, notification Notification) (*Result, error) {
	guardKey, fresh := s.claim(ctx, notification.GmailMessageID)
	if !fresh {
		s.metrics.IncDuplicate()
		return &Result{Duplicate: true, Message: "notification already processed"}, nil
	}

	result, err := s.verify(ctx, notification)
	if err != nil {
		// Release the claim so a corrected redelivery can be reprocessed.
		s.release(ctx, guardKey)
		s.metrics.IncResult(resultLabel(err))
		return nil, err
	}
	s.metrics.IncResult("verified")
	return result, nil
}

func (s *service) verify(ctx context.Context, notification Notification) (*Result, error) {
	parsed, err := s.parser.Parse(notification.Subject, notification.BodyPlain)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.FindByReference(ctx, parsed.Reference)
	if err != nil {
		return nil, err
	}

	if order.Status.Immutable() {
		return &Result{
			OrderID:   order.ID,
			NewStatus: order.Status,
			Message:   "order already paid",
		}, nil
	}

	if parsed.Amount.Sub(order.TotalAmount).Abs().GreaterThanOrEqual(amountTolerance) {
		return nil, pkgerrors.New(pkgerrors.CodeAmountMismatch, "deposit does not match order total").
			WithDetails(map[string]string{
				"reference": parsed.Reference,
				"deposited": parsed.Amount.StringFixed(2),
				"expected":  order.TotalAmount.StringFixed(2),
			})
	}

	updated, err := s.orders.UpdateStatus(ctx, order.ID, enums.OrderStatusPaid)
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID.String()), "payment verified")
	}
	return &Result{
		OrderID:   updated.ID,
		NewStatus: updated.Status,
		Message:   "payment verified",
	}, nil
}

// claim takes the idempotency slot for a message. The guard is best effort:
// when redis is unavailable the notification is still processed, since the
// paid/completed short circuit keeps reprocessing harmless.
func (s *service) claim(ctx context.Context, messageID string) (string, bool) {
	if s.idempotency == nil || messageID == "" {
		return "", true
	}
	key := s.idempotency.IdempotencyKey(idempotencyScope, messageID)
	fresh, err := s.idempotency.SetNX(ctx, key, "1", s.ttl)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "idempotency claim failed, processing without guard")
		}
		return "", true
	}
	return key, fresh
}

func (s *service) release(ctx context.Context, key string) {
	if s.idempotency == nil || key == "" {
		return
	}
	if err := s.idempotency.Del(ctx, key); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "releasing idempotency claim failed")
	}
}

func resultLabel(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "error"
	}
	switch typed.Code() {
	case pkgerrors.CodeNoReferenceFound:
		return "no_reference"
	case pkgerrors.CodeAmountUnparseable:
		return "amount_unparseable"
	case pkgerrors.CodeNotFound:
		return "order_not_found"
	case pkgerrors.CodeAmountMismatch:
		return "amount_mismatch"
	default:
		return "error"
	}
}
