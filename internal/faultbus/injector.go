package faultbus

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satellite-ocs/satellite-ocs/internal/csvlog"
	"github.com/satellite-ocs/satellite-ocs/internal/ledger"
	"github.com/satellite-ocs/satellite-ocs/internal/observability"
)

// InjectionPeriod is the round-robin injector cadence, per spec §4.4.
const InjectionPeriod = 60 * time.Second

// RecoveryDeadline is the maximum time the injector waits for a matching
// ack before declaring a timeout.
const RecoveryDeadline = 500 * time.Millisecond

// RecoveryLateThreshold marks a recovery as aborted even though an ack was
// received, if it arrived later than this.
const RecoveryLateThreshold = 200 * time.Millisecond

var roundRobin = []struct {
	target     Target
	kind       Kind
	durationMs float64
}{
	{TargetThermal, KindDelay, 150},
	{TargetPower, KindCorrupt, 200},
	{TargetAttitude, KindPause, 150},
}

// Injector drives the 60s round-robin fault injection/recovery loop.
type Injector struct {
	bus     *Bus
	log     *csvlog.Log
	ledger  *ledger.AsyncWriter
	logger  *zap.Logger
	metrics *observability.Metrics
	which   int
}

// NewInjector builds an Injector. ledgerWriter and metrics may be nil
// (audit persistence and metrics are both best-effort and optional).
func NewInjector(bus *Bus, log *csvlog.Log, ledgerWriter *ledger.AsyncWriter, logger *zap.Logger, metrics *observability.Metrics) *Injector {
	return &Injector{bus: bus, log: log, ledger: ledgerWriter, logger: logger, metrics: metrics}
}

// Run executes the injection loop until ctx is cancelled.
func (inj *Injector) Run(ctx context.Context) {
	ticker := time.NewTicker(InjectionPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			inj.injectOnce(ctx)
		}
	}
}

func (inj *Injector) injectOnce(ctx context.Context) {
	slot := roundRobin[inj.which%len(roundRobin)]
	inj.which++

	faultID := uuid.NewString()
	ev := FaultEvent{FaultID: faultID, ForMs: slot.durationMs}
	switch slot.kind {
	case KindDelay:
		ev.Kind = EventThermalDelay
		ev.ExtraMs = 10
	case KindCorrupt:
		ev.Kind = EventPowerCorrupt
	case KindPause:
		ev.Kind = EventAttitudePause
	}

	now := time.Now()
	inj.bus.Publish(ev)
	inj.logger.Info("fault injected", zap.String("fault_id", faultID), zap.String("target", string(slot.target)), zap.String("kind", string(slot.kind)))
	if inj.log != nil {
		inj.log.FaultInjection(now, faultID, string(slot.target), string(slot.kind), slot.durationMs)
	}
	if inj.metrics != nil {
		inj.metrics.FaultInjectionsTotal.WithLabelValues(string(slot.target)).Inc()
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(time.Duration(slot.durationMs) * time.Millisecond):
	}

	recoverSentAt := time.Now()
	inj.bus.Publish(FaultEvent{Kind: EventRecover, FaultID: faultID})

	waitCtx, cancel := context.WithTimeout(ctx, RecoveryDeadline)
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case <-waitCtx.Done():
			inj.onTimeout(faultID)
			return
		case ack := <-inj.bus.Acks():
			if ack.FaultID != faultID {
				continue // unrelated ack, keep waiting against the remaining deadline
			}
			recoveryMs := float64(time.Since(recoverSentAt)) / float64(time.Millisecond)
			inj.onAcked(faultID, ack.Component, recoveryMs)
			return
		}
	}
}

func (inj *Injector) onAcked(faultID, component string, recoveryMs float64) {
	aborted := recoveryMs > float64(RecoveryLateThreshold/time.Millisecond)
	if aborted {
		inj.bus.Publish(FaultEvent{Kind: EventAbort, Reason: "recovery late"})
		inj.logger.Warn("fault recovery late, aborting", zap.String("fault_id", faultID), zap.Float64("recovery_ms", recoveryMs))
	} else {
		inj.logger.Info("fault recovered", zap.String("fault_id", faultID), zap.Float64("recovery_ms", recoveryMs))
	}
	now := time.Now()
	if inj.log != nil {
		inj.log.FaultRecovery(now, faultID, component, recoveryMs, aborted, "")
	}
	if inj.metrics != nil {
		inj.metrics.FaultRecoveryMs.Observe(recoveryMs)
		if aborted {
			inj.metrics.FaultAbortsTotal.Inc()
		}
	}
	inj.appendLedger(faultID, recoveryMs, aborted)
}

func (inj *Injector) onTimeout(faultID string) {
	const recoveryMs = 1000.0
	inj.bus.Publish(FaultEvent{Kind: EventAbort, Reason: "recovery timeout"})
	inj.logger.Warn("fault recovery timed out", zap.String("fault_id", faultID))
	now := time.Now()
	if inj.log != nil {
		inj.log.FaultRecovery(now, faultID, "unknown", recoveryMs, true, "recovery timeout")
	}
	if inj.metrics != nil {
		inj.metrics.FaultRecoveryMs.Observe(recoveryMs)
		inj.metrics.FaultAbortsTotal.Inc()
	}
	inj.appendLedger(faultID, recoveryMs, true)
}

func (inj *Injector) appendLedger(faultID string, recoveryMs float64, aborted bool) {
	if inj.ledger == nil {
		return
	}
	detail := "aborted"
	if !aborted {
		detail = "ok"
	}
	inj.ledger.Submit(ledger.Entry{
		Kind:    ledger.EventFaultRecovery,
		Subject: faultID,
		Detail:  detail,
	})
}
