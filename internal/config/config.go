// Package config provides configuration loading and validation for the
// satellite onboard control software.
//
// Configuration file: /etc/satellite-ocs/config.yaml (default, overridable
// with --config). The file itself is optional — Load falls back to
// Defaults() when it is absent — since the CLI flag overlay applied by
// cmd/satellite-ocs/main.go after Load is itself a complete configuration
// source for the fields it covers.
// Schema version: 1.
//
// Validation:
//   - All required fields must be present.
//   - Numeric ranges enforced (batch sizes, timing periods, key length).
//   - Invalid config on startup: the process refuses to start (fatal error).
//   - Validate is a separate step from Load, run by the caller after any
//     flag overlay has been applied.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	// SchemaVersion must be "1".
	SchemaVersion string `yaml:"schema_version"`

	Net        NetConfig        `yaml:"net"`
	Crypto     CryptoConfig     `yaml:"crypto"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Storage    StorageConfig    `yaml:"storage"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// NetConfig holds the UDP transport endpoints.
type NetConfig struct {
	// GCSAddr is the ground-control-station address the TX socket connects to.
	GCSAddr string `yaml:"gcs_addr"`

	// BindAddr is the local address the RX socket binds to for uplinked
	// commands.
	BindAddr string `yaml:"bind_addr"`
}

// CryptoConfig holds the AEAD envelope parameters.
type CryptoConfig struct {
	// KeyID identifies the symmetric key in ClearHeader.key_id.
	KeyID uint8 `yaml:"key_id"`

	// KeyHex is the 64-character hex encoding of the 32-byte ChaCha20-
	// Poly1305 key.
	KeyHex string `yaml:"key_hex"`
}

// TelemetryConfig holds priority-buffer and batching parameters.
type TelemetryConfig struct {
	// BufferCapacity bounds the priority buffer (spec §4.2).
	// Default: max_batch * 8.
	BufferCapacity int `yaml:"buffer_capacity"`

	// BatchMs is the batcher's tick period. Default: 50ms.
	BatchMs time.Duration `yaml:"batch_ms"`

	// MaxBatch is the maximum number of readings drained per tick.
	MaxBatch int `yaml:"max_batch"`
}

// StorageConfig holds the audit ledger parameters.
type StorageConfig struct {
	// DBPath is the path to the bbolt audit ledger file.
	DBPath string `yaml:"db_path"`

	// LogDir is the directory CSV telemetry/scheduler series are written
	// under.
	LogDir string `yaml:"log_dir"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	// MetricsAddr is the Prometheus metrics HTTP bind address.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogFormat controls the log output format (json, console).
	LogFormat string `yaml:"log_format"`
}

// Defaults returns a Config populated with all default values.
func Defaults() Config {
	return Config{
		SchemaVersion: "1",
		Net: NetConfig{
			GCSAddr:  "127.0.0.1:7891",
			BindAddr: "0.0.0.0:7892",
		},
		Crypto: CryptoConfig{
			KeyID: 1,
		},
		Telemetry: TelemetryConfig{
			BufferCapacity: 512,
			BatchMs:        50 * time.Millisecond,
			MaxBatch:       64,
		},
		Storage: StorageConfig{
			DBPath: "/var/lib/satellite-ocs/ledger.db",
			LogDir: "logs",
		},
		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},
	}
}

// Load reads a config file from the given path, merging it over Defaults().
// The file is optional: if path does not exist, Load returns Defaults()
// unchanged rather than failing, so the CLI overlay (and, ultimately,
// Validate) has the final say on whether the result is usable. Callers are
// expected to apply any flag overlay and then call Validate themselves;
// Load does not validate.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks all config fields for correctness, returning a single
// error listing every violation found.
func Validate(cfg *Config) error {
	var errs []string

	if cfg.SchemaVersion != "1" {
		errs = append(errs, fmt.Sprintf("schema_version must be \"1\", got %q", cfg.SchemaVersion))
	}
	if cfg.Net.GCSAddr == "" {
		errs = append(errs, "net.gcs_addr must not be empty")
	}
	if cfg.Net.BindAddr == "" {
		errs = append(errs, "net.bind_addr must not be empty")
	}
	if len(cfg.Crypto.KeyHex) != 64 {
		errs = append(errs, fmt.Sprintf("crypto.key_hex must decode to 32 bytes (64 hex chars), got %d chars", len(cfg.Crypto.KeyHex)))
	}
	if cfg.Telemetry.BufferCapacity < 1 {
		errs = append(errs, fmt.Sprintf("telemetry.buffer_capacity must be >= 1, got %d", cfg.Telemetry.BufferCapacity))
	}
	if cfg.Telemetry.BatchMs < time.Millisecond {
		errs = append(errs, fmt.Sprintf("telemetry.batch_ms must be >= 1ms, got %s", cfg.Telemetry.BatchMs))
	}
	if cfg.Telemetry.MaxBatch < 1 {
		errs = append(errs, fmt.Sprintf("telemetry.max_batch must be >= 1, got %d", cfg.Telemetry.MaxBatch))
	}
	if cfg.Storage.DBPath == "" {
		errs = append(errs, "storage.db_path must not be empty")
	}
	if cfg.Storage.LogDir == "" {
		errs = append(errs, "storage.log_dir must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", joinStrings(errs, "\n  - "))
	}
	return nil
}

func joinStrings(ss []string, sep string) string {
	if len(ss) == 0 {
		return ""
	}
	result := ss[0]
	for _, s := range ss[1:] {
		result += sep + s
	}
	return result
}
