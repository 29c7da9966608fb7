package config

import (
	"path/filepath"
	"testing"
)

func TestLoadFallsBackToDefaultsWhenFileAbsent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("expected a missing config file to fall back to defaults, got error: %v", err)
	}
	want := Defaults()
	if *cfg != want {
		t.Fatalf("expected Load to return Defaults() verbatim when the file is absent, got %+v", *cfg)
	}
}

func TestDefaultsPassValidation(t *testing.T) {
	cfg := Defaults()
	cfg.Crypto.KeyHex = hex64()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("expected defaults plus a valid key_hex to validate, got %v", err)
	}
}

func hex64() string {
	s := ""
	for i := 0; i < 64; i++ {
		s += "0"
	}
	return s
}

func TestValidateRejectsBadSchemaVersion(t *testing.T) {
	cfg := Defaults()
	cfg.SchemaVersion = "2"
	if err := Validate(&cfg); err == nil {
		t.Fatalf("expected validation error for unsupported schema_version")
	}
}

func TestValidateRejectsShortKey(t *testing.T) {
	cfg := Defaults()
	cfg.Crypto.KeyHex = "deadbeef"
	if err := Validate(&cfg); err == nil {
		t.Fatalf("expected validation error for short key_hex")
	}
}

func TestValidateRejectsZeroMaxBatch(t *testing.T) {
	cfg := Defaults()
	cfg.Crypto.KeyHex = hex64()
	cfg.Telemetry.MaxBatch = 0
	if err := Validate(&cfg); err == nil {
		t.Fatalf("expected validation error for max_batch=0")
	}
}
