// Package monitor drives the fixed-interval probe loop: startup diagnostics
// once, then one probe cycle at a time until the run duration expires or the
// context is cancelled.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterw/Pi-Cellular/internal/config"
	"github.com/carterw/Pi-Cellular/internal/diag"
	"github.com/carterw/Pi-Cellular/internal/logging"
	"github.com/carterw/Pi-Cellular/internal/probe"
	"github.com/carterw/Pi-Cellular/internal/tracker"
)

// Prober issues one reachability probe.
type Prober interface {
	Probe(ctx context.Context) probe.Result
}

// Diagnostics runs the startup check battery.
type Diagnostics interface {
	All(ctx context.Context) []diag.CheckResult
}

// Runner owns the monitoring loop. It is single-threaded: one cycle runs to
// completion before the next begins, so the tracker needs no locking.
type Runner struct {
	cfg     *config.Config
	prober  Prober
	diags   Diagnostics
	tracker *tracker.Tracker
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Runner. Pass nil logger to use the default logger.
func New(cfg *config.Config, prober Prober, diags Diagnostics, tr *tracker.Tracker, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:     cfg,
		prober:  prober,
		diags:   diags,
		tracker: tr,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes the monitoring loop until the configured duration expires or
// ctx is cancelled. The final report is emitted on every exit path.
func (r *Runner) Run(ctx context.Context) {
	start := r.now()
	var end time.Time
	if r.cfg.RunFor.Duration > 0 {
		end = start.Add(r.cfg.RunFor.Duration)
	}

	r.logBanner(ctx)
	r.runDiagnostics(ctx)
	r.logger.Log(ctx, logging.LevelInfo, "Starting ping loop...")

	defer func() {
		r.tracker.LogFinal(ctx, r.now().Sub(start))
	}()

	for {
		if !end.IsZero() && !r.now().Before(end) {
			r.logger.Log(ctx, logging.LevelInfo, "Duration exceeded, stopping")
			return
		}
		if ctx.Err() != nil {
			r.logger.Log(ctx, logging.LevelInfo, "Interrupted, stopping")
			return
		}

		// The interrupt is checked between cycles only; an in-flight probe
		// is bounded by its own watchdog timeout, not cancelled mid-call.
		cycleCtx := context.WithoutCancel(ctx)
		res := r.prober.Probe(cycleCtx)
		r.tracker.Observe(cycleCtx, res, r.now())

		if r.tracker.Stats().TotalProbes%r.cfg.StatsEvery == 0 {
			r.tracker.LogSummary(cycleCtx, r.now())
		}

		// Fixed delay, not fixed rate: the interval is slept after the
		// cycle's work.
		timer := time.NewTimer(r.cfg.Interval.Duration)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Log(ctx, logging.LevelInfo, "Interrupted, stopping")
			return
		case <-timer.C:
		}
	}
}

func (r *Runner) logBanner(ctx context.Context) {
	info := func(msg string) { r.logger.Log(ctx, logging.LevelInfo, msg) }

	info("Starting cellular monitor")
	info(fmt.Sprintf("Host: %s", r.cfg.Host))
	info(fmt.Sprintf("Interface: %s", r.cfg.Interface))
	info(fmt.Sprintf("Interval: %.0fs", r.cfg.Interval.Duration.Seconds()))
	info(fmt.Sprintf("Timeout: %.0fs", r.cfg.Timeout.Duration.Seconds()))
	if r.cfg.RunFor.Duration > 0 {
		info(fmt.Sprintf("Duration: %.0f minutes", r.cfg.RunFor.Duration.Minutes()))
	} else {
		info("Duration: Infinite (Ctrl+C to stop)")
	}
}

func (r *Runner) runDiagnostics(ctx context.Context) {
	r.logger.Log(ctx, logging.LevelInfo, "Running diagnostics...")
	for _, c := range r.diags.All(ctx) {
		level := logging.LevelOK
		if !c.OK {
			level = logging.LevelFail
		}
		r.logger.Log(ctx, level, fmt.Sprintf("%-15s: %s", c.Name, c.Message))
	}
}
