package csvlog

import (
	"time"
)

// Log aggregates every CSV series the onboard software persists under
// logs/, matching the column schemas of the original implementation's
// logging/csv.rs and logging/packets.rs column-for-column.
type Log struct {
	sensors   *Series
	drops     *Series
	batches   *Series
	scheduler *Series
	cpu       *Series
	downlinkS *Series
	faults    *Series
	txqueue   *Series
	packets   *Series
}

// New opens every series under dir (typically "logs").
func New(dir string) (*Log, error) {
	specs := []struct {
		name   string
		header []string
	}{
		{"sensors.csv", []string{"ts", "sensor", "seq", "jitter_ms", "drift_ms", "processing_latency_ms", "priority", "status"}},
		{"drops.csv", []string{"ts", "priority", "dropped_count"}},
		{"batches.csv", []string{"ts", "total", "critical", "important", "normal"}},
		{"scheduler.csv", []string{"ts", "task", "seq", "start_delay_ms", "completion_delay_ms", "runtime_ms", "preemptions", "deadline_ms"}},
		{"cpu.csv", []string{"ts", "window_ms", "active_ms", "idle_ms", "active_pct"}},
		{"downlink.csv", []string{"ts", "batch_size", "avg_queue_ms", "max_queue_ms", "fill_pct", "event"}},
		{"faults.csv", []string{"ts", "event", "fault_id", "target", "kind", "duration_ms", "component", "recovery_ms", "aborted", "note"}},
		{"txqueue.csv", []string{"ts", "oldest_ms", "fill_pct"}},
		{"packets.csv", []string{"ts", "packet_type", "seq", "bytes"}},
	}
	opened := make(map[string]*Series, len(specs))
	for _, sp := range specs {
		s, err := openSeries(dir, sp.name, sp.header)
		if err != nil {
			for _, o := range opened {
				o.Close()
			}
			return nil, err
		}
		opened[sp.name] = s
	}
	return &Log{
		sensors:   opened["sensors.csv"],
		drops:     opened["drops.csv"],
		batches:   opened["batches.csv"],
		scheduler: opened["scheduler.csv"],
		cpu:       opened["cpu.csv"],
		downlinkS: opened["downlink.csv"],
		faults:    opened["faults.csv"],
		txqueue:   opened["txqueue.csv"],
		packets:   opened["packets.csv"],
	}, nil
}

// Close closes every underlying series.
func (l *Log) Close() {
	for _, s := range []*Series{l.sensors, l.drops, l.batches, l.scheduler, l.cpu, l.downlinkS, l.faults, l.txqueue, l.packets} {
		s.Close()
	}
}

func ts(t time.Time) string { return i64(t.UnixMilli()) }

// Sensor logs one sensor-reading row.
func (l *Log) Sensor(t time.Time, sensor string, seq uint64, jitterMs, driftMs, latencyMs float64, priority, status string) error {
	return l.sensors.write([]string{ts(t), sensor, i64(int64(seq)), f64(jitterMs), f64(driftMs), f64(latencyMs), priority, status})
}

// Drop logs one buffer-eviction row.
func (l *Log) Drop(t time.Time, priority string, count int) error {
	return l.drops.write([]string{ts(t), priority, itoa(count)})
}

// Batch logs one batch-composition row.
func (l *Log) Batch(t time.Time, total, critical, important, normal int) error {
	return l.batches.write([]string{ts(t), itoa(total), itoa(critical), itoa(important), itoa(normal)})
}

// SchedEvent logs one job-completion row.
func (l *Log) SchedEvent(t time.Time, task string, seq uint64, startDelayMs, completionDelayMs, runtimeMs float64, preemptions int, deadlineMs float64) error {
	return l.scheduler.write([]string{ts(t), task, i64(int64(seq)), f64(startDelayMs), f64(completionDelayMs), f64(runtimeMs), itoa(preemptions), f64(deadlineMs)})
}

// CPUWindow logs one CPU-utilization window row.
func (l *Log) CPUWindow(t time.Time, windowMs, activeMs float64) error {
	idleMs := windowMs - activeMs
	if idleMs < 0 {
		idleMs = 0
	}
	activePct := 0.0
	if windowMs != 0 {
		activePct = activeMs / windowMs * 100
	}
	return l.cpu.write([]string{ts(t), f64(windowMs), f64(activeMs), f64(idleMs), f64(activePct)})
}

// Downlink logs one downlink-state-transition row (distinct from TxQueue,
// which samples the batcher's queue; this records the FSM's own events).
func (l *Log) Downlink(t time.Time, batchSize int, avgQueueMs, maxQueueMs, fillPct float64, event string) error {
	return l.downlinkS.write([]string{ts(t), itoa(batchSize), f64(avgQueueMs), f64(maxQueueMs), f64(fillPct), event})
}

// FaultInjection logs a fault-injection row.
func (l *Log) FaultInjection(t time.Time, faultID, target, kind string, durationMs float64) error {
	return l.faults.write([]string{ts(t), "inject", faultID, target, kind, f64(durationMs), "", "", "", ""})
}

// FaultRecovery logs a fault-recovery row.
func (l *Log) FaultRecovery(t time.Time, faultID, component string, recoveryMs float64, aborted bool, note string) error {
	return l.faults.write([]string{ts(t), "recovery", faultID, "", "", "", component, f64(recoveryMs), boolStr(aborted), note})
}

// TxQueue logs one TX-queue sample row.
func (l *Log) TxQueue(t time.Time, oldestMs, fillPct float64) error {
	return l.txqueue.write([]string{ts(t), f64(oldestMs), f64(fillPct)})
}

// Packet logs one outbound/inbound frame's header summary.
func (l *Log) Packet(t time.Time, packetType string, seq uint32, bytes int) error {
	return l.packets.write([]string{ts(t), packetType, i64(int64(seq)), itoa(bytes)})
}
