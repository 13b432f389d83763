package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/craftmeals/preorder-backend/api/controllers"
	webhookcontrollers "github.com/craftmeals/preorder-backend/api/controllers/webhooks"
	"github.com/craftmeals/preorder-backend/api/middleware"
	"github.com/craftmeals/preorder-backend/internal/catalog"
	optionsvc "github.com/craftmeals/preorder-backend/internal/deliveryoptions"
	"github.com/craftmeals/preorder-backend/internal/inventory"
	"github.com/craftmeals/preorder-backend/internal/orders"
	"github.com/craftmeals/preorder-backend/internal/payments"
	schedulesvc "github.com/craftmeals/preorder-backend/internal/schedules"
	"github.com/craftmeals/preorder-backend/internal/slots"
	"github.com/craftmeals/preorder-backend/internal/users"
	"github.com/craftmeals/preorder-backend/pkg/config"
	"github.com/craftmeals/preorder-backend/pkg/db"
	"github.com/craftmeals/preorder-backend/pkg/logger"
	"github.com/craftmeals/preorder-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    *redis.Client
	Registry *prometheus.Registry

	Users           users.Service
	Catalog         catalog.Service
	SlotValidator   slots.Validator
	Inventory       inventory.Calculator
	Schedules       schedulesvc.Service
	DeliveryOptions optionsvc.Service
	Orders          orders.Service
	Payments        payments.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ListProducts(deps.Catalog, logg))
		r.Get("/slots", controllers.ListOrderableSlots(deps.SlotValidator, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, deps.Users, logg))
			r.Post("/orders", controllers.SubmitOrder(deps.Orders, logg))
			r.Get("/orders", controllers.ListMyOrders(deps.Orders, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Users, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", controllers.AdminListSchedules(deps.Schedules, logg))
			r.Post("/", controllers.AdminSaveSchedule(deps.Schedules, logg))
			r.Get("/{scheduleId}", controllers.AdminGetSchedule(deps.Schedules, logg))
			r.Put("/{scheduleId}", controllers.AdminSaveSchedule(deps.Schedules, logg))
			r.Delete("/{scheduleId}", controllers.AdminDeleteSchedule(deps.Schedules, logg))
			r.Get("/{scheduleId}/inventory", controllers.AdminScheduleInventory(deps.Inventory, logg))
		})
		r.Delete("/schedule-deliveries/{slotId}", controllers.AdminDeleteScheduleSlot(deps.Schedules, logg))
		r.Get("/inventory", controllers.AdminInventoryOverview(deps.Inventory, logg))

		r.Route("/delivery-options", func(r chi.Router) {
			r.Get("/", controllers.AdminListDeliveryOptions(deps.DeliveryOptions, logg))
			r.Post("/", controllers.AdminSaveDeliveryOption(deps.DeliveryOptions, logg))
			r.Delete("/{optionId}", controllers.AdminDeleteDeliveryOption(deps.DeliveryOptions, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminListOrders(deps.Orders, logg))
			r.Patch("/{orderId}/status", controllers.AdminUpdateOrderStatus(deps.Orders, logg))
			r.Delete("/{orderId}", controllers.AdminDeleteOrder(deps.Orders, logg))
		})
	})

	r.With(middleware.FixedWindowLimit(
		"webhook:etransfer",
		cfg.ETransfer.RateLimit,
		cfg.ETransfer.RateLimitWindow,
		deps.Redis,
		logg,
	)).Post("/api/verify-transfer", webhookcontrollers.VerifyTransfer(deps.Payments, cfg.ETransfer, logg))

	return r
}
