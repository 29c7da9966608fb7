// Package batcher implements the telemetry ingest stage, the periodic
// batch-and-send loop gated by the downlink window, and the emergency
// fast-path sender of spec §4.2.
package batcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satellite-ocs/satellite-ocs/internal/buffer"
	"github.com/satellite-ocs/satellite-ocs/internal/crypto"
	"github.com/satellite-ocs/satellite-ocs/internal/csvlog"
	"github.com/satellite-ocs/satellite-ocs/internal/downlink"
	"github.com/satellite-ocs/satellite-ocs/internal/model"
	"github.com/satellite-ocs/satellite-ocs/internal/netio"
	"github.com/satellite-ocs/satellite-ocs/internal/observability"
)

const ingressCapacity = 1024
const emergencyCapacity = 32

// Ingress is the sensor telemetry ingest channel: sensors push readings
// here non-blocking; a single consumer goroutine stamps processing latency
// and inserts into the priority buffer, logging any eviction.
type Ingress struct {
	ch      chan model.SensorReading
	buf     *buffer.Handle
	csv     *csvlog.Log
	metrics *observability.Metrics
}

// NewIngress builds an Ingress feeding into buf. metrics may be nil.
func NewIngress(buf *buffer.Handle, log *csvlog.Log, metrics *observability.Metrics) *Ingress {
	return &Ingress{ch: make(chan model.SensorReading, ingressCapacity), buf: buf, csv: log, metrics: metrics}
}

// Push is the non-blocking send sensors call; false means the ingest
// channel was full and the reading was dropped before ever reaching the
// priority buffer.
func (i *Ingress) Push(r model.SensorReading) bool {
	select {
	case i.ch <- r:
		return true
	default:
		return false
	}
}

// Run drains the ingest channel until ctx is cancelled, stamping
// processing_latency_ms and inserting into the priority buffer.
func (i *Ingress) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case r := <-i.ch:
			now := time.Now()
			r.ProcessingLatencyMs = float64(now.Sub(r.Timestamp)) / float64(time.Millisecond)

			outcome := i.buf.Push(r)
			if !outcome.Accepted {
				if i.csv != nil {
					i.csv.Drop(now, string(outcome.DroppedPriority), outcome.DroppedCount)
				}
				if i.metrics != nil {
					i.metrics.BufferDropsTotal.WithLabelValues(string(outcome.DroppedPriority)).Add(float64(outcome.DroppedCount))
				}
			}
			if i.metrics != nil {
				i.metrics.BufferFillPct.Set(i.buf.FillPct())
			}
		}
	}
}

// EmergencyMailbox is the bounded (32) out-of-band alert channel; the
// emergency sender wraps and transmits each alert immediately, bypassing
// the batch tick.
type EmergencyMailbox struct {
	ch      chan model.EmergencyData
	crypto  *crypto.Context
	sock    *netio.Sockets
	csv     *csvlog.Log
	logger  *zap.Logger
	metrics *observability.Metrics
	seq     uint32
}

// NewEmergencyMailbox builds an EmergencyMailbox. metrics may be nil.
func NewEmergencyMailbox(ctx *crypto.Context, sock *netio.Sockets, log *csvlog.Log, logger *zap.Logger, metrics *observability.Metrics) *EmergencyMailbox {
	return &EmergencyMailbox{ch: make(chan model.EmergencyData, emergencyCapacity), crypto: ctx, sock: sock, csv: log, logger: logger, metrics: metrics}
}

// Push is the non-blocking send sensors call to raise an alert.
func (m *EmergencyMailbox) Push(e model.EmergencyData) bool {
	select {
	case m.ch <- e:
		return true
	default:
		return false
	}
}

// Run sends each queued alert immediately until ctx is cancelled.
func (m *EmergencyMailbox) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-m.ch:
			m.seq++
			pkt := model.NewEmergencyPacket(uuid.NewString(), m.seq, model.EndpointSatellite, model.EndpointGroundControl, e, time.Now())
			bytes, err := m.crypto.Seal(pkt)
			if err != nil {
				m.logger.Warn("failed to seal emergency packet", zap.Error(err))
				if m.metrics != nil {
					m.metrics.SealErrorsTotal.Inc()
				}
				continue
			}
			if err := m.sock.Send(bytes); err != nil {
				m.logger.Warn("failed to send emergency packet", zap.Error(err))
				continue
			}
			if m.csv != nil {
				m.csv.Packet(time.Now(), string(model.PacketEmergency), m.seq, len(bytes))
			}
		}
	}
}

// Batcher drains the priority buffer on a batch_ms tick, consults the
// downlink gate, and seals + transmits a telemetry packet.
type Batcher struct {
	buf      *buffer.Handle
	dl       *downlink.Handle
	crypto   *crypto.Context
	sock     *netio.Sockets
	csv      *csvlog.Log
	logger   *zap.Logger
	metrics  *observability.Metrics
	batchMs  time.Duration
	maxBatch int
	seq      uint32
}

// New builds a Batcher with the given batch period and per-tick drain cap.
// metrics may be nil.
func New(buf *buffer.Handle, dl *downlink.Handle, cryptoCtx *crypto.Context, sock *netio.Sockets, log *csvlog.Log, logger *zap.Logger, metrics *observability.Metrics, batchMs time.Duration, maxBatch int) *Batcher {
	return &Batcher{buf: buf, dl: dl, crypto: cryptoCtx, sock: sock, csv: log, logger: logger, metrics: metrics, batchMs: batchMs, maxBatch: maxBatch}
}

// Run executes the batch-tick loop until ctx is cancelled.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.batchMs)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			batch := b.buf.PopMany(b.maxBatch)
			if len(batch) == 0 {
				continue
			}
			b.send(now, batch)
		}
	}
}

func (b *Batcher) send(now time.Time, batch []model.SensorReading) {
	oldestMs := 0.0
	for _, r := range batch {
		age := float64(now.Sub(r.Timestamp)) / float64(time.Millisecond)
		if age > oldestMs {
			oldestMs = age
		}
	}
	fillPct := b.buf.FillPct()

	gate := b.dl.PreSend(now)
	if b.metrics != nil {
		b.metrics.DownlinkEventsTotal.WithLabelValues(gate.Event.String()).Inc()
	}
	switch gate.Event {
	case downlink.EventMissedInit, downlink.EventNotInWindow:
		if b.csv != nil {
			b.csv.TxQueue(now, oldestMs, fillPct)
		}
		return
	case downlink.EventReadyPrepLate:
		b.logger.Warn("downlink: prep time exceeded 30ms", zap.Float64("prep_ms", gate.PrepMs))
	case downlink.EventReadyDegraded:
		b.logger.Warn("downlink: degraded mode active")
	}

	b.seq++
	pkt := model.NewTelemetryPacket(uuid.NewString(), b.seq, model.EndpointSatellite, model.EndpointGroundControl, batch, now)
	bytes, err := b.crypto.Seal(pkt)
	if err != nil {
		b.logger.Warn("failed to seal telemetry packet", zap.Error(err))
		if b.metrics != nil {
			b.metrics.SealErrorsTotal.Inc()
		}
		return
	}
	if err := b.sock.Send(bytes); err != nil {
		b.logger.Warn("failed to send telemetry packet", zap.Error(err))
		return
	}

	var critical, important, normal int
	for _, r := range batch {
		switch r.Priority {
		case model.PriorityEmergency, model.PriorityCritical:
			critical++
		case model.PriorityImportant:
			important++
		default:
			normal++
		}
	}

	if b.csv != nil {
		b.csv.Batch(now, len(batch), critical, important, normal)
		b.csv.TxQueue(now, oldestMs, fillPct)
		b.csv.Packet(now, string(model.PacketTelemetry), b.seq, len(bytes))
	}
	b.logger.Info("tx telemetry",
		zap.Int("total", len(batch)), zap.Int("critical", critical), zap.Int("important", important), zap.Int("normal", normal),
		zap.Float64("queue_oldest_ms", oldestMs), zap.Float64("fill_pct", fillPct))

	b.dl.SetDegraded(fillPct >= 80.0)
}
