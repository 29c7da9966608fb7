// Package main — cmd/satellite-ocs/main.go
//
// Satellite onboard control software entrypoint.
//
// Startup sequence:
//  1. Load and validate config from /etc/satellite-ocs/config.yaml.
//  2. Initialise structured logger (zap).
//  3. Build the crypto context from the configured key.
//  4. Open BoltDB audit ledger and CSV telemetry series.
//  5. Start Prometheus metrics server.
//  6. Open UDP sockets.
//  7. Wire the priority buffer, downlink gate, and fault bus.
//  8. Start the downlink visibility simulator and the fault injector.
//  9. Start the emergency mailbox and the three sensor loops (thermal,
//     power, attitude).
// 10. Start the rate-monotonic scheduler, wired to preempt on thermal alarm.
// 11. Start telemetry ingest and the batcher.
// 12. Start the command uplink receiver.
// 13. Start the heartbeat sender.
// 14. Block on SIGINT/SIGTERM for graceful shutdown.
//
// Shutdown sequence (on SIGINT/SIGTERM):
//  1. Cancel root context (propagates to all goroutines).
//  2. Allow in-flight goroutines a bounded grace period to observe it.
//  3. Close sockets, ledger, and CSV series.
//  4. Flush logger.
//  5. Exit 0.
//
// On config validation or crypto/storage/socket init failure: exit 1
// immediately (no partial state).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/satellite-ocs/satellite-ocs/internal/batcher"
	"github.com/satellite-ocs/satellite-ocs/internal/buffer"
	"github.com/satellite-ocs/satellite-ocs/internal/commands"
	"github.com/satellite-ocs/satellite-ocs/internal/config"
	"github.com/satellite-ocs/satellite-ocs/internal/crypto"
	"github.com/satellite-ocs/satellite-ocs/internal/csvlog"
	"github.com/satellite-ocs/satellite-ocs/internal/downlink"
	"github.com/satellite-ocs/satellite-ocs/internal/faultbus"
	"github.com/satellite-ocs/satellite-ocs/internal/health"
	"github.com/satellite-ocs/satellite-ocs/internal/ledger"
	"github.com/satellite-ocs/satellite-ocs/internal/netio"
	"github.com/satellite-ocs/satellite-ocs/internal/observability"
	"github.com/satellite-ocs/satellite-ocs/internal/scheduler"
	"github.com/satellite-ocs/satellite-ocs/internal/sensors"
)

const (
	ledgerQueueCapacity = 256
	shutdownGrace       = 300 * time.Millisecond

	thermalPeriod  = 100 * time.Millisecond
	powerPeriod    = 500 * time.Millisecond
	attitudePeriod = 200 * time.Millisecond
)

func main() {
	configPath := flag.String("config", "/etc/satellite-ocs/config.yaml", "Path to an optional YAML config file")
	gcsAddr := flag.String("gcs-addr", "", "Ground-control-station address (overlays net.gcs_addr)")
	bindAddr := flag.String("bind-addr", "", "Local uplink bind address (overlays net.bind_addr)")
	keyID := flag.Uint("key-id", 0, "AEAD key id (overlays crypto.key_id)")
	keyHex := flag.String("key-hex", "", "64-char hex AEAD key (overlays crypto.key_hex)")
	batchMs := flag.Uint64("batch-ms", 0, "Batcher tick period in ms (overlays telemetry.batch_ms)")
	maxBatch := flag.Int("max-batch", 0, "Max readings drained per batch tick (overlays telemetry.max_batch)")
	logLevel := flag.String("log-level", "", "Log level (overlays observability.log_level)")
	logFormat := flag.String("log-format", "", "Log format (overlays observability.log_format)")
	metricsAddr := flag.String("metrics-addr", "", "Metrics HTTP bind address (overlays observability.metrics_addr)")
	flag.Parse()

	// ── Step 1: Load config, then overlay any flags the caller set ───────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config load failed: %v\n", err)
		os.Exit(1)
	}
	if *gcsAddr != "" {
		cfg.Net.GCSAddr = *gcsAddr
	}
	if *bindAddr != "" {
		cfg.Net.BindAddr = *bindAddr
	}
	if *keyID != 0 {
		cfg.Crypto.KeyID = uint8(*keyID)
	}
	if *keyHex != "" {
		cfg.Crypto.KeyHex = *keyHex
	}
	if *batchMs != 0 {
		cfg.Telemetry.BatchMs = time.Duration(*batchMs) * time.Millisecond
	}
	if *maxBatch != 0 {
		cfg.Telemetry.MaxBatch = *maxBatch
	}
	if *logLevel != "" {
		cfg.Observability.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.Observability.LogFormat = *logFormat
	}
	if *metricsAddr != "" {
		cfg.Observability.MetricsAddr = *metricsAddr
	}
	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: config validation failed: %v\n", err)
		os.Exit(1)
	}

	// ── Step 2: Initialise logger ─────────────────────────────────────────────
	log, err := buildLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("satellite-ocs starting", zap.String("config", *configPath))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Step 3: Crypto context ────────────────────────────────────────────────
	cryptoCtx, err := crypto.NewContextFromHex(cfg.Crypto.KeyID, cfg.Crypto.KeyHex)
	if err != nil {
		log.Fatal("crypto context init failed", zap.Error(err))
	}

	// ── Step 4: Ledger + CSV series ───────────────────────────────────────────
	db, err := ledger.Open(cfg.Storage.DBPath)
	if err != nil {
		log.Fatal("ledger open failed", zap.Error(err), zap.String("path", cfg.Storage.DBPath))
	}
	defer db.Close() //nolint:errcheck
	ledgerWriter := ledger.NewAsyncWriter(db, ledgerQueueCapacity, func(err error) {
		log.Warn("ledger append failed", zap.Error(err))
	})
	defer ledgerWriter.Close()

	csvLog, err := csvlog.New(cfg.Storage.LogDir)
	if err != nil {
		log.Fatal("csv log open failed", zap.Error(err), zap.String("dir", cfg.Storage.LogDir))
	}
	defer csvLog.Close()

	// ── Step 5: Metrics server ────────────────────────────────────────────────
	metrics := observability.NewMetrics()
	go func() {
		if err := metrics.ServeMetrics(ctx, cfg.Observability.MetricsAddr); err != nil {
			log.Error("metrics server error", zap.Error(err))
		}
	}()
	log.Info("metrics server started", zap.String("addr", cfg.Observability.MetricsAddr))

	// ── Step 6: UDP sockets ────────────────────────────────────────────────────
	sock, err := netio.Dial(cfg.Net.GCSAddr, cfg.Net.BindAddr)
	if err != nil {
		log.Fatal("netio dial failed", zap.Error(err))
	}
	defer sock.Close() //nolint:errcheck

	// ── Step 7: Buffer, downlink gate, fault bus ──────────────────────────────
	buf := buffer.New(cfg.Telemetry.BufferCapacity)
	dl := downlink.New()
	bus := faultbus.New()

	// ── Step 8: Downlink simulator + fault injector ───────────────────────────
	go dl.RunVisibilitySimulator(ctx.Done())

	injector := faultbus.NewInjector(bus, csvLog, ledgerWriter, log, metrics)
	go injector.Run(ctx)

	// ── Step 9: Sensors ────────────────────────────────────────────────────────
	ingress := batcher.NewIngress(buf, csvLog, metrics)
	emergency := batcher.NewEmergencyMailbox(cryptoCtx, sock, csvLog, log, metrics)
	go emergency.Run(ctx)

	sched := scheduler.New(csvLog, ledgerWriter, log, metrics)

	thermal := sensors.NewThermal(emergency)
	thermal.Preempt = sched.PreemptThermal
	power := sensors.NewPower()
	attitude := sensors.NewAttitude()

	sensorLoops := []*sensors.Loop{
		{Name: "thermal", Period: thermalPeriod, Producer: thermal, Bus: bus, Out: ingress, CSV: csvLog, Logger: log, Metrics: metrics},
		{Name: "power", Period: powerPeriod, Producer: power, Bus: bus, Out: ingress, CSV: csvLog, Logger: log, Metrics: metrics},
		{Name: "attitude", Period: attitudePeriod, Producer: attitude, Bus: bus, Out: ingress, CSV: csvLog, Logger: log, Metrics: metrics},
	}
	for _, loop := range sensorLoops {
		go loop.Run(ctx)
	}

	// ── Step 10: Scheduler ─────────────────────────────────────────────────────
	go sched.Run(ctx)

	// ── Step 11: Ingest + batcher ──────────────────────────────────────────────
	go ingress.Run(ctx)

	dlBatcher := batcher.New(buf, dl, cryptoCtx, sock, csvLog, log, metrics, cfg.Telemetry.BatchMs, cfg.Telemetry.MaxBatch)
	go dlBatcher.Run(ctx)

	// ── Step 12: Command uplink receiver ──────────────────────────────────────
	receiver := commands.New(cryptoCtx, sock, csvLog, log, metrics)
	go sock.ReadLoop(ctx, receiver.Handle)

	// ── Step 13: Heartbeat ─────────────────────────────────────────────────────
	hb := health.New(cryptoCtx, sock, csvLog, log, metrics)
	go hb.Run(ctx)

	log.Info("satellite-ocs running",
		zap.String("gcs_addr", cfg.Net.GCSAddr), zap.String("bind_addr", cfg.Net.BindAddr))

	// ── Step 14: Wait for shutdown signal ─────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))

	cancel()
	time.Sleep(shutdownGrace)

	log.Info("satellite-ocs shutdown complete")
}

// buildLogger constructs a zap.Logger with the given level and format.
func buildLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	var cfg zap.Config
	if format == "console" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	return cfg.Build()
}
