package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/craftmeals/preorder-backend/api/routes"
	"github.com/craftmeals/preorder-backend/internal/catalog"
	"github.com/craftmeals/preorder-backend/internal/deliveryoptions"
	"github.com/craftmeals/preorder-backend/internal/inventory"
	"github.com/craftmeals/preorder-backend/internal/orders"
	"github.com/craftmeals/preorder-backend/internal/payments"
	"github.com/craftmeals/preorder-backend/internal/schedules"
	"github.com/craftmeals/preorder-backend/internal/slots"
	"github.com/craftmeals/preorder-backend/internal/users"
	"github.com/craftmeals/preorder-backend/pkg/config"
	"github.com/craftmeals/preorder-backend/pkg/db"
	"github.com/craftmeals/preorder-backend/pkg/logger"
	"github.com/craftmeals/preorder-backend/pkg/metrics"
	"github.com/craftmeals/preorder-backend/pkg/migrate"
	"github.com/craftmeals/preorder-backend/pkg/redis"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	orderMetrics := metrics.NewOrderMetrics(registry)
	webhookMetrics := metrics.NewWebhookMetrics(registry)

	conn := dbClient.DB()

	userService, err := users.NewService(users.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(conn)
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	slotValidator, err := slots.NewValidator(conn, nil)
	if err != nil {
		logg.Error(context.Background(), "failed to create slot validator", err)
		os.Exit(1)
	}

	stockCalculator, err := inventory.NewCalculator(conn)
	if err != nil {
		logg.Error(context.Background(), "failed to create inventory calculator", err)
		os.Exit(1)
	}

	scheduleService, err := schedules.NewService(schedules.NewRepository(conn), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create schedules service", err)
		os.Exit(1)
	}

	optionService, err := deliveryoptions.NewService(deliveryoptions.NewRepository(conn), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create delivery options service", err)
		os.Exit(1)
	}

	orderService, err := orders.NewService(
		orders.NewRepository(conn),
		dbClient,
		slotValidator,
		stockCalculator,
		catalogRepo,
		orderMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentService, err := payments.NewService(
		payments.NewETransferParser(),
		orderService,
		redisClient,
		webhookMetrics,
		logg,
		payments.WithIdempotencyTTL(cfg.ETransfer.IdempotencyTTL),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	handler := routes.NewRouter(routes.Deps{
		Config:          cfg,
		Logger:          logg,
		DB:              dbClient,
		Redis:           redisClient,
		Registry:        registry,
		Users:           userService,
		Catalog:         catalogService,
		SlotValidator:   slotValidator,
		Inventory:       stockCalculator,
		Schedules:       scheduleService,
		DeliveryOptions: optionService,
		Orders:          orderService,
		Payments:        paymentService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-stopCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server stopped")
	}
}
