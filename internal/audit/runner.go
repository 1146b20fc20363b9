package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/inkhouse/backoffice/pkg/logger"
	"github.com/inkhouse/backoffice/pkg/metrics"
)

// ErrLocked is returned by RunOnce when another audit holds the lock.
var ErrLocked = errors.New("ledger audit already running")

// RunnerParams configure the audit runner.
type RunnerParams struct {
	Logger   *logger.Logger
	Checks   []Check
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Runner executes the ledger checks under a lock.
type Runner struct {
	logg     *logger.Logger
	checks   []Check
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

func NewRunner(params RunnerParams) (*Runner, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if len(params.Checks) == 0 {
		return nil, fmt.Errorf("at least one check required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &Runner{
		logg:     params.Logger,
		checks:   params.Checks,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// RunOnce runs every check once. Reports are returned even when some checks
// fail; the error aggregates every failure.
func (r *Runner) RunOnce(ctx context.Context, repair bool) ([]*Report, error) {
	locked, err := r.lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	defer func() {
		if relErr := r.lock.Release(ctx); relErr != nil {
			r.logg.Error(ctx, "failed to release audit lock", relErr)
		}
	}()

	ctx = r.logg.WithField(ctx, "repair", repair)
	r.logg.Info(ctx, "ledger audit starting")
	var (
		reports []*Report
		errs    error
	)
	for _, check := range r.checks {
		report, err := r.runCheck(ctx, check, repair)
		if report != nil {
			reports = append(reports, report)
		}
		errs = multierr.Append(errs, err)
	}
	r.logg.Info(ctx, "ledger audit complete")
	return reports, errs
}

// Run repeats RunOnce on the configured interval until ctx is canceled.
func (r *Runner) Run(ctx context.Context, repair bool) error {
	r.cycle(ctx, repair)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.logg.Info(ctx, "ledger audit loop stopped")
			return ctx.Err()
		case <-ticker.C:
			r.cycle(ctx, repair)
		}
	}
}

func (r *Runner) cycle(ctx context.Context, repair bool) {
	if _, err := r.RunOnce(ctx, repair); err != nil {
		if errors.Is(err, ErrLocked) {
			r.logg.Info(ctx, "another audit instance is running; skipping this cycle")
			return
		}
		r.logg.Error(ctx, "ledger audit failed", err)
	}
}

func (r *Runner) runCheck(ctx context.Context, check Check, repair bool) (*Report, error) {
	checkCtx := r.logg.WithFields(ctx, map[string]any{
		"ledger": check.Name(),
		"event":  "audit.check",
	})
	start := time.Now()
	report, err := check.Run(checkCtx, repair)
	duration := time.Since(start)
	r.metrics.ObserveDuration(check.Name(), duration)

	if report != nil {
		for _, d := range report.Drifts {
			r.metrics.IncDrift(check.Name())
			if d.Repaired {
				r.metrics.IncRepaired(check.Name())
			}
		}
		checkCtx = r.logg.WithFields(checkCtx, map[string]any{
			"scanned":     report.Scanned,
			"drifts":      len(report.Drifts),
			"repaired":    report.Repaired(),
			"duration_ms": duration.Milliseconds(),
		})
		for _, d := range report.Drifts {
			if !d.Repaired {
				r.logg.Warn(r.logg.WithFields(checkCtx, map[string]any{
					"row_id":     d.ID.String(),
					"stored":     d.Stored.StringFixed(2),
					"recomputed": d.Recomputed.StringFixed(2),
				}), "ledger drift detected")
			}
		}
	}
	if err != nil {
		r.logg.Error(checkCtx, "check failed", err)
		r.metrics.IncFailure(check.Name())
		return report, fmt.Errorf("%s: %w", check.Name(), err)
	}
	r.logg.Info(checkCtx, "check completed")
	r.metrics.IncSuccess(check.Name())
	return report, nil
}
