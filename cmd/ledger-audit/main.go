package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/inkhouse/backoffice/internal/activity"
	"github.com/inkhouse/backoffice/internal/audit"
	"github.com/inkhouse/backoffice/pkg/config"
	"github.com/inkhouse/backoffice/pkg/db"
	"github.com/inkhouse/backoffice/pkg/logger"
	"github.com/inkhouse/backoffice/pkg/metrics"
	"github.com/inkhouse/backoffice/pkg/redis"
)

func main() {
	repair := flag.Bool("repair", false, "rewrite drifted amount_paid values from payment rows")
	loop := flag.Bool("loop", false, "keep running on -interval instead of exiting after one pass")
	interval := flag.Duration("interval", 0, "delay between passes with -loop (default 24h)")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "ledger-audit"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "ledger-audit",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	actorID, err := uuid.Parse(cfg.Audit.ActorID)
	if err != nil {
		logg.Error(context.Background(), "invalid audit actor id", err)
		os.Exit(1)
	}

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

	var lock audit.Lock = &audit.LocalLock{}
	if cfg.Redis.Enabled() {
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
		lock, err = audit.NewRedisLock(redisClient, cfg.Audit.LockTTL)
		if err != nil {
			logg.Error(context.Background(), "failed to create audit lock", err)
			os.Exit(1)
		}
	}

	activitySvc, err := activity.NewService(activity.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create activity service", err)
		os.Exit(1)
	}
	params := audit.CheckParams{
		Repo:      audit.NewRepository(dbClient.DB()),
		Tx:        dbClient,
		Activity:  activitySvc,
		ActorID:   actorID,
		BatchSize: cfg.Audit.BatchSize,
	}
	orderCheck, orderErr := audit.NewOrderCheck(params)
	balanceCheck, balanceErr := audit.NewPreviousBalanceCheck(params)
	if err := multierr.Combine(orderErr, balanceErr); err != nil {
		logg.Error(context.Background(), "failed to create ledger checks", err)
		os.Exit(1)
	}

	runner, err := audit.NewRunner(audit.RunnerParams{
		Logger:   logg,
		Checks:   []audit.Check{orderCheck, balanceCheck},
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: *interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create audit runner", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	if *loop {
		if err := runner.Run(ctx, *repair); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(ctx, "ledger audit loop stopped unexpectedly", err)
			os.Exit(1)
		}
		return
	}

	reports, err := runner.RunOnce(ctx, *repair)
	if out, marshalErr := json.MarshalIndent(reports, "", "  "); marshalErr == nil {
		fmt.Println(string(out))
	}
	if err != nil {
		if errors.Is(err, audit.ErrLocked) {
			logg.Warn(ctx, "another ledger audit is running")
			os.Exit(2)
		}
		for _, e := range multierr.Errors(err) {
			logg.Error(ctx, "ledger audit error", e)
		}
		os.Exit(1)
	}
	for _, report := range reports {
		if len(report.Drifts) > report.Repaired() {
			os.Exit(3)
		}
	}
}
