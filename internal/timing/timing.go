// Package timing holds the small timing helpers shared by sensors and the
// scheduler: steady tickers with delay (not compress) missed-tick behavior,
// and jitter/drift accounting.
package timing

import "time"

// Tick records one firing of a period ticker, used to compute jitter and
// drift against the nominal period.
type Tick struct {
	At       time.Time
	PeriodNs int64
}

// JitterDrift computes jitter_ms = |actual-nominal| and drift_ms =
// actual-nominal (signed) for the delta between two consecutive ticks,
// given the nominal period. seq==0 (no previous tick) yields (0, 0) per
// spec §4.5.
func JitterDrift(prev, cur time.Time, period time.Duration, seq uint64) (jitterMs, driftMs float64) {
	if seq == 0 || prev.IsZero() {
		return 0, 0
	}
	delta := cur.Sub(prev)
	driftMs = float64(delta-period) / float64(time.Millisecond)
	jitterMs = driftMs
	if jitterMs < 0 {
		jitterMs = -jitterMs
	}
	return jitterMs, driftMs
}

// DelayTicker is a steady-period ticker with "delay" missed-tick semantics:
// if the consumer is slow and a tick is missed, the next tick fires at
// lastFire+period rather than catching up or compressing the backlog. This
// matches Tokio's MissedTickBehavior::Delay used throughout the original
// sensor loops, and is deliberately different from time.Ticker, which can
// fire a burst of backlogged ticks under drift.
type DelayTicker struct {
	period time.Duration
	last   time.Time
	timer  *time.Timer
}

// NewDelayTicker creates a DelayTicker primed to fire first after period.
func NewDelayTicker(period time.Duration) *DelayTicker {
	return &DelayTicker{period: period, last: time.Now(), timer: time.NewTimer(period)}
}

// C returns the channel that fires on each tick.
func (d *DelayTicker) C() <-chan time.Time {
	return d.timer.C
}

// Advance rearms the ticker relative to now (the delay behavior: the next
// deadline is now+period, not last+period+period, so backlogged ticks are
// never compressed into a burst).
func (d *DelayTicker) Advance(now time.Time) {
	d.last = now
	d.timer.Reset(d.period)
}

// Stop releases the underlying timer.
func (d *DelayTicker) Stop() {
	d.timer.Stop()
}
