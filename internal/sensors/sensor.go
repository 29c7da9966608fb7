// Package sensors implements the three polymorphic sensor loops (thermal,
// power, attitude) of spec §4.4/§4.5: periodic sampling with jitter/drift
// accounting, fault-bus reaction, and ingress push into the telemetry
// pipeline. The three sensors share a protocol — only value generation and
// fault-state handling differ — expressed here as a shared Loop driving a
// small per-sensor Producer interface (SPEC_FULL.md §9's "polymorphism over
// sensors").
package sensors

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/satellite-ocs/satellite-ocs/internal/csvlog"
	"github.com/satellite-ocs/satellite-ocs/internal/faultbus"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
	"github.com/satellite-ocs/satellite-ocs/internal/observability"
	"github.com/satellite-ocs/satellite-ocs/internal/timing"
)

// Ingress is the narrow interface sensors push readings through — the
// telemetry ingest channel (satisfied by *batcher.Ingress, kept as an
// interface here to avoid a sensors→batcher import cycle).
type Ingress interface {
	// Push attempts a non-blocking send; it returns false if the ingress
	// channel is full (dropped, per spec §5 backpressure policy) or not
	// yet initialized.
	Push(r model.SensorReading) bool
}

// EmergencySink is the emergency fast-path mailbox (satisfied by
// *batcher.EmergencyMailbox).
type EmergencySink interface {
	Push(e model.EmergencyData) bool
}

// Producer generates one reading per tick and reacts to fault events. It is
// the only part of a sensor's behavior that varies across sensor types.
type Producer interface {
	// Sample builds the next reading given the current fault state and
	// jitter/drift already computed by the shared loop. Returning ok=false
	// means this cycle should not be sent (e.g. attitude pause).
	Sample(seq uint64, jitterMs, driftMs float64, now time.Time) (reading model.SensorReading, ok bool)
	// HandleFault updates internal fault state in reaction to a bus event.
	// Returns an ack to send, if the event was a matching Recover.
	HandleFault(ev faultbus.FaultEvent) (ack *faultbus.FaultAck)
	// Component is this sensor's name for FaultAck correlation.
	Component() string
}

// Loop drives one sensor: a steady-period ticker (delay missed-tick
// behavior), fault-bus subscription, jitter/drift accounting, and ingress
// push, matching spec §4.5.
type Loop struct {
	Name     string
	Period   time.Duration
	Producer Producer
	Bus      *faultbus.Bus
	Out      Ingress
	CSV      *csvlog.Log
	Logger   *zap.Logger
	Metrics  *observability.Metrics
}

// Run executes the sensor loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	sub := l.Bus.Subscribe()
	ticker := timing.NewDelayTicker(l.Period)
	defer ticker.Stop()

	var seq uint64
	var lastTick time.Time

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			if ack := l.Producer.HandleFault(ev); ack != nil {
				l.Bus.AckRecovered(*ack)
			}
		case now := <-ticker.C():
			ticker.Advance(now)
			jitterMs, driftMs := timing.JitterDrift(lastTick, now, l.Period, seq)
			lastTick = now

			reading, ok := l.Producer.Sample(seq, jitterMs, driftMs, now)
			seq++
			if !ok {
				continue
			}

			if l.Out == nil {
				l.Logger.Warn("telemetry channel not initialized", zap.String("sensor", l.Name))
				continue
			}
			sent := l.Out.Push(reading)
			if !sent {
				l.Logger.Error("telemetry ingress full, dropping reading", zap.String("sensor", l.Name), zap.Uint64("seq", seq))
			}
			if cycleTracker, ok := l.Producer.(interface {
				RecordCycleResult(jitterMs float64, sendOK bool, now time.Time)
			}); ok {
				cycleTracker.RecordCycleResult(jitterMs, sent, now)
			}
			if l.CSV != nil {
				l.CSV.Sensor(now, l.Name, reading.SequenceNumber, reading.JitterMs, reading.DriftMs, reading.ProcessingLatencyMs, string(reading.Priority), string(reading.Status))
			}
			if l.Metrics != nil {
				l.Metrics.SensorSamplesTotal.WithLabelValues(l.Name).Inc()
				l.Metrics.SensorJitterMs.WithLabelValues(l.Name).Observe(jitterMs)
			}
		}
	}
}
