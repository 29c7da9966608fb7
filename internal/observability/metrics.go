// Package observability — metrics.go
//
// Prometheus metrics for the satellite onboard control software.
//
// Endpoint: GET /metrics on 127.0.0.1:9091 (configurable).
// Format: Prometheus text exposition format (OpenMetrics compatible).
//
// All metrics are registered on a dedicated prometheus.Registry (not the
// default global registry) to avoid collisions with other instrumented
// libraries in the same process.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metric descriptors for the onboard software.
type Metrics struct {
	registry *prometheus.Registry

	// ─── Scheduler ────────────────────────────────────────────────────────────

	// JobsCompletedTotal counts completed scheduler jobs, by task name.
	JobsCompletedTotal *prometheus.CounterVec

	// DeadlineViolationsTotal counts jobs that finished past their
	// deadline, by task name.
	DeadlineViolationsTotal *prometheus.CounterVec

	// CPUActivePercent is the most recent CPU-utilization-window active
	// percentage.
	CPUActivePercent prometheus.Gauge

	// ─── Telemetry buffer ─────────────────────────────────────────────────────

	// BufferFillPct is the priority buffer's current occupancy percentage.
	BufferFillPct prometheus.Gauge

	// BufferDropsTotal counts evicted readings, by dropped priority.
	BufferDropsTotal *prometheus.CounterVec

	// ─── Downlink ─────────────────────────────────────────────────────────────

	// DownlinkEventsTotal counts pre_send outcomes, by event name.
	DownlinkEventsTotal *prometheus.CounterVec

	// ─── Faults ───────────────────────────────────────────────────────────────

	// FaultInjectionsTotal counts fault injections, by target.
	FaultInjectionsTotal *prometheus.CounterVec

	// FaultRecoveryMs records recovery latency.
	FaultRecoveryMs prometheus.Histogram

	// FaultAbortsTotal counts recoveries that were aborted (late or
	// timed out).
	FaultAbortsTotal prometheus.Counter

	// ─── Sensors ──────────────────────────────────────────────────────────────

	// SensorSamplesTotal counts samples produced, by sensor.
	SensorSamplesTotal *prometheus.CounterVec

	// SensorJitterMs records per-sample jitter.
	SensorJitterMs *prometheus.HistogramVec

	// ─── Crypto ───────────────────────────────────────────────────────────────

	// SealErrorsTotal counts Seal failures.
	SealErrorsTotal prometheus.Counter

	// OpenErrorsTotal counts Open failures, by cause.
	OpenErrorsTotal *prometheus.CounterVec

	// ─── Commands ─────────────────────────────────────────────────────────────

	// CommandsReceivedTotal counts accepted uplink commands.
	CommandsReceivedTotal prometheus.Counter

	// ─── Process ──────────────────────────────────────────────────────────────

	// UptimeSeconds is the number of seconds since process start.
	UptimeSeconds prometheus.Gauge

	startTime time.Time
}

// NewMetrics creates and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		JobsCompletedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "scheduler", Name: "jobs_completed_total",
			Help: "Total scheduler jobs completed, by task name.",
		}, []string{"task"}),

		DeadlineViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "scheduler", Name: "deadline_violations_total",
			Help: "Total jobs that finished past their deadline, by task name.",
		}, []string{"task"}),

		CPUActivePercent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "satellite_ocs", Subsystem: "scheduler", Name: "cpu_active_percent",
			Help: "Most recent CPU-utilization-window active percentage.",
		}),

		BufferFillPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "satellite_ocs", Subsystem: "buffer", Name: "fill_pct",
			Help: "Priority buffer occupancy percentage.",
		}),

		BufferDropsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "buffer", Name: "drops_total",
			Help: "Total evicted readings, by dropped bucket priority.",
		}, []string{"priority"}),

		DownlinkEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "downlink", Name: "events_total",
			Help: "Total pre_send outcomes, by event.",
		}, []string{"event"}),

		FaultInjectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "faults", Name: "injections_total",
			Help: "Total faults injected, by target.",
		}, []string{"target"}),

		FaultRecoveryMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "satellite_ocs", Subsystem: "faults", Name: "recovery_ms",
			Help:    "Fault recovery latency in milliseconds.",
			Buckets: []float64{10, 50, 100, 150, 200, 300, 500, 1000},
		}),

		FaultAbortsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "faults", Name: "aborts_total",
			Help: "Total fault recoveries that were aborted (late or timed out).",
		}),

		SensorSamplesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "sensors", Name: "samples_total",
			Help: "Total samples produced, by sensor.",
		}, []string{"sensor"}),

		SensorJitterMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "satellite_ocs", Subsystem: "sensors", Name: "jitter_ms",
			Help:    "Per-sample jitter in milliseconds, by sensor.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
		}, []string{"sensor"}),

		SealErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "crypto", Name: "seal_errors_total",
			Help: "Total Seal() failures.",
		}),

		OpenErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "crypto", Name: "open_errors_total",
			Help: "Total Open() failures, by cause.",
		}, []string{"cause"}),

		CommandsReceivedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "satellite_ocs", Subsystem: "commands", Name: "received_total",
			Help: "Total uplink commands accepted.",
		}),

		UptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "satellite_ocs", Subsystem: "process", Name: "uptime_seconds",
			Help: "Seconds since process start.",
		}),
	}

	reg.MustRegister(
		m.JobsCompletedTotal, m.DeadlineViolationsTotal, m.CPUActivePercent,
		m.BufferFillPct, m.BufferDropsTotal,
		m.DownlinkEventsTotal,
		m.FaultInjectionsTotal, m.FaultRecoveryMs, m.FaultAbortsTotal,
		m.SensorSamplesTotal, m.SensorJitterMs,
		m.SealErrorsTotal, m.OpenErrorsTotal,
		m.CommandsReceivedTotal,
		m.UptimeSeconds,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return m
}

// ServeMetrics starts the Prometheus HTTP metrics server on addr. Blocks
// until ctx is cancelled or the server fails.
func (m *Metrics) ServeMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go m.updateUptime(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("metrics server on %s: %w", addr, err)
	}
	return nil
}

func (m *Metrics) updateUptime(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.UptimeSeconds.Set(time.Since(m.startTime).Seconds())
		case <-ctx.Done():
			return
		}
	}
}
