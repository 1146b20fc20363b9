package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/inkhouse/backoffice/api/controllers"
	"github.com/inkhouse/backoffice/api/routes"
	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/internal/balances"
	"github.com/inkhouse/backoffice/internal/customers"
	"github.com/inkhouse/backoffice/internal/orders"
	"github.com/inkhouse/backoffice/internal/reports"
	"github.com/inkhouse/backoffice/pkg/config"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/instance"
	"github.com/inkhouse/backoffice/pkg/logger"
	"github.com/inkhouse/backoffice/pkg/metrics"
	"github.com/inkhouse/backoffice/pkg/migrate"
	"github.com/inkhouse/backoffice/pkg/redis"
)

const shutdownGrace = 15 * time.Second

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

	conn := dbClient.DB()
	readiness := map[string]controllers.Pinger{"database": dbClient, "redis": nil}

	activitySvc, err := activity.NewService(activity.NewRepository(conn))
	requireService(logg, "activity", err)
	customerRepo := customers.NewRepository(conn)
	customerSvc, err := customers.NewService(customerRepo, dbClient, activitySvc)
	requireService(logg, "customers", err)

	orderRepo := orders.NewRepository(conn)
	numbers := orders.NewDBNumberSource(orderRepo, cfg.Ledger.OrderNumberPrefix, cfg.Ledger.OrderNumberWidth)

	var redisClient *redis.Client
	routeDeps := routes.Deps{}
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(context.Background(), cfg.Redis, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		readiness["redis"] = redisClient
		routeDeps.IdempotencyStore = redisClient
		numbers = orders.NewRedisNumberSource(redisClient, orderRepo, cfg.Ledger.OrderNumberPrefix, cfg.Ledger.OrderNumberWidth)
	} else {
		logg.Warn(context.Background(), "redis not configured; idempotency replay disabled and order numbers come from the database")
	}

	ledgerMetrics := metrics.NewLedgerMetrics(prometheus.DefaultRegisterer)

	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:              orderRepo,
		Customers:         customerRepo,
		Tx:                dbClient,
		Activity:          activitySvc,
		Numbers:           numbers,
		Metrics:           ledgerMetrics,
		MaxCreateAttempts: cfg.Ledger.MaxCreateAttempts,
	})
	requireService(logg, "orders", err)

	balanceRepo := balances.NewRepository(conn)
	balanceSvc, err := balances.NewService(balances.ServiceParams{
		Repo:      balanceRepo,
		Customers: customerRepo,
		Orders:    orderSvc,
		Tx:        dbClient,
		Activity:  activitySvc,
		Metrics:   ledgerMetrics,
	})
	requireService(logg, "balances", err)

	reportSvc, err := reports.NewService(customerSvc, orderSvc, balanceSvc, balanceRepo)
	requireService(logg, "reports", err)

	routeDeps.Config = cfg
	routeDeps.Logger = logg
	routeDeps.Readiness = readiness
	routeDeps.Gatherer = prometheus.DefaultGatherer
	routeDeps.Customers = customerSvc
	routeDeps.Orders = orderSvc
	routeDeps.Balances = balanceSvc
	routeDeps.Activity = activitySvc
	routeDeps.Reports = reportSvc

	addr := ":" + cfg.App.Port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(routeDeps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shut down gracefully")
	}
}

func requireService(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name+" service", err)
	os.Exit(1)
}
