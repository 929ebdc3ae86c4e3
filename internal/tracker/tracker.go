// Package tracker owns the monitoring state machine: up/down status,
// downtime episode accounting, cumulative counters, and the rolling
// latency and failure-reason windows used for reporting.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/carterw/Pi-Cellular/internal/logging"
	"github.com/carterw/Pi-Cellular/internal/probe"
)

// Stats holds the cumulative counters for a run. Counters only ever grow.
type Stats struct {
	TotalProbes  int
	SuccessCount int
	FailureCount int

	// CumulativeDowntime is the sum of all closed episode durations.
	CumulativeDowntime time.Duration
	// MaxDowntime is the longest closed episode, zero if none closed.
	MaxDowntime time.Duration
}

// SuccessRate returns successes as a percentage of all probes, 0 when no
// probes have run.
func (s Stats) SuccessRate() float64 {
	if s.TotalProbes == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(s.TotalProbes) * 100
}

// LossRate returns failures as a percentage of all probes, 0 when no
// probes have run. Losses are counted per probe cycle, not per episode.
func (s Stats) LossRate() float64 {
	if s.TotalProbes == 0 {
		return 0
	}
	return float64(s.FailureCount) / float64(s.TotalProbes) * 100
}

// SignalFunc reports the current signal strength. It is queried best-effort
// on failing cycles only; "unknown" is an acceptable answer.
type SignalFunc func(ctx context.Context) string

// ReasonCount is one entry of the failure breakdown.
type ReasonCount struct {
	Reason string
	Count  int
}

// Tracker consumes one probe result per cycle and maintains the run's
// statistics. It is not safe for concurrent use; the loop driver is its
// only caller.
type Tracker struct {
	stats Stats

	// downtimeStart marks the active episode's start; zero while up.
	downtimeStart time.Time

	latencies *Window[time.Duration]
	reasons   *Window[string]

	logger *slog.Logger
	signal SignalFunc
}

// New creates a Tracker with the given rolling-window capacity. signal may
// be nil; logger nil means the default logger.
func New(windowSize int, signal SignalFunc, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		latencies: NewWindow[time.Duration](windowSize),
		reasons:   NewWindow[string](windowSize),
		logger:    logger,
		signal:    signal,
	}
}

// Observe folds one probe result into the run statistics and emits the
// cycle's log line. now is the cycle's wall-clock time.
func (t *Tracker) Observe(ctx context.Context, res probe.Result, now time.Time) {
	t.stats.TotalProbes++

	if res.OK {
		t.stats.SuccessCount++
		t.latencies.Append(res.RTT)

		if !t.downtimeStart.IsZero() {
			down := now.Sub(t.downtimeStart)
			if down < 0 {
				down = 0
			}
			t.stats.CumulativeDowntime += down
			if down > t.stats.MaxDowntime {
				t.stats.MaxDowntime = down
			}
			t.downtimeStart = time.Time{}
			t.logger.Log(ctx, logging.LevelInfo,
				fmt.Sprintf("Connection RECOVERED after %.1fs downtime", down.Seconds()))
		}

		t.logger.Log(ctx, logging.LevelOK,
			fmt.Sprintf("Ping #%d: %.1fms", t.stats.TotalProbes, millis(res.RTT)))
		return
	}

	t.stats.FailureCount++
	t.reasons.Append(res.Reason)

	signal := "unknown"
	if t.signal != nil {
		signal = t.signal(ctx)
	}

	if t.downtimeStart.IsZero() {
		t.downtimeStart = now
		t.logger.Log(ctx, logging.LevelFail,
			fmt.Sprintf("Ping loss #%d: %s (Signal: %s)", t.stats.FailureCount, res.Reason, signal))
		return
	}

	current := now.Sub(t.downtimeStart)
	t.logger.Log(ctx, logging.LevelFail,
		fmt.Sprintf("Still down for %.1fs (Losses: %d, Signal: %s): %s",
			current.Seconds(), t.stats.FailureCount, signal, res.Reason))
}

// Down reports whether a downtime episode is active.
func (t *Tracker) Down() bool {
	return !t.downtimeStart.IsZero()
}

// CurrentDowntime returns how long the active episode has lasted as of now,
// or zero when the link is up.
func (t *Tracker) CurrentDowntime(now time.Time) time.Duration {
	if t.downtimeStart.IsZero() {
		return 0
	}
	d := now.Sub(t.downtimeStart)
	if d < 0 {
		return 0
	}
	return d
}

// Stats returns a copy of the cumulative counters.
func (t *Tracker) Stats() Stats {
	return t.stats
}

// Latencies returns the rolling latency window, oldest first.
func (t *Tracker) Latencies() []time.Duration {
	return t.latencies.Values()
}

// FailureReasons returns the rolling failure-reason window, oldest first.
func (t *Tracker) FailureReasons() []string {
	return t.reasons.Values()
}

// ReasonBreakdown counts the windowed failure reasons, most frequent first.
// Ties keep first-seen order.
func (t *Tracker) ReasonBreakdown() []ReasonCount {
	reasons := t.reasons.Values()
	idx := make(map[string]int, len(reasons))
	var out []ReasonCount
	for _, reason := range reasons {
		i, ok := idx[reason]
		if !ok {
			i = len(out)
			idx[reason] = i
			out = append(out, ReasonCount{Reason: reason})
		}
		out[i].Count++
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out
}

// LogSummary emits the periodic STAT line.
func (t *Tracker) LogSummary(ctx context.Context, now time.Time) {
	s := t.stats
	line := fmt.Sprintf("Stats: %d/%d (%.1f%%)", s.SuccessCount, s.TotalProbes, s.SuccessRate())

	if lat := t.latencies.Values(); len(lat) > 0 {
		avg, min, max := latencyStats(lat)
		line += fmt.Sprintf(" | RTT: %.1fms (min: %.1fms, max: %.1fms)", avg, min, max)
	}
	if t.Down() {
		line += fmt.Sprintf(" | DOWNTIME: %.1fs", t.CurrentDowntime(now).Seconds())
	}

	t.logger.Log(ctx, logging.LevelStat, line)
}

// LogFinal emits the end-of-run report. elapsed is the wall-clock run time.
func (t *Tracker) LogFinal(ctx context.Context, elapsed time.Duration) {
	s := t.stats
	sep := strings.Repeat("=", 70)
	info := func(msg string) { t.logger.Log(ctx, logging.LevelInfo, msg) }
	warn := func(msg string) { t.logger.Log(ctx, logging.LevelWarn, msg) }

	info(sep)
	info("FINAL STATISTICS")
	info(sep)

	info(fmt.Sprintf("Total pings: %d", s.TotalProbes))
	info(fmt.Sprintf("Successful: %d", s.SuccessCount))
	info(fmt.Sprintf("Failed (Cumulative losses): %d", s.FailureCount))
	info(fmt.Sprintf("Success rate: %.1f%%", s.SuccessRate()))
	info(fmt.Sprintf("Loss rate: %.1f%%", s.LossRate()))
	info(fmt.Sprintf("Total time: %.1fs (%.1f minutes)", elapsed.Seconds(), elapsed.Minutes()))

	if lat := t.latencies.Values(); len(lat) > 0 {
		avg, min, max := latencyStats(lat)
		info(fmt.Sprintf("RTT - Avg: %.1fms, Min: %.1fms, Max: %.1fms", avg, min, max))
	}

	if s.FailureCount > 0 {
		warn(fmt.Sprintf("Total downtime: %.1fs", s.CumulativeDowntime.Seconds()))
		warn(fmt.Sprintf("Max downtime episode: %.1fs", s.MaxDowntime.Seconds()))
		warn(fmt.Sprintf("Cumulative ping losses: %d", s.FailureCount))

		if breakdown := t.ReasonBreakdown(); len(breakdown) > 0 {
			warn("Failure breakdown:")
			for _, rc := range breakdown {
				warn(fmt.Sprintf("  - %s: %d times", rc.Reason, rc.Count))
			}
		}
	}

	info(sep)
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// latencyStats returns average, minimum, and maximum in milliseconds.
func latencyStats(lat []time.Duration) (avg, min, max float64) {
	var sum time.Duration
	minD, maxD := lat[0], lat[0]
	for _, d := range lat {
		sum += d
		if d < minD {
			minD = d
		}
		if d > maxD {
			maxD = d
		}
	}
	return millis(sum) / float64(len(lat)), millis(minD), millis(maxD)
}
