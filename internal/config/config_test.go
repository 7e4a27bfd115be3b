package config

import (
	"os"
	"path/filepath"
	"testing"

	"wasmcache/internal/backend"
	"wasmcache/internal/store"
	"wasmcache/internal/vmconfig"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse([]byte(`{}`), ".json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if cfg.LogLevel != DefaultLogLevel {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if !cfg.IsCacheEnabled() || cfg.GetCacheSize() != DefaultCacheSize {
		t.Errorf("cache = %+v, want enabled with default size", cfg.Cache)
	}
	if cfg.GetStoreDriver() != store.DriverSQLite || cfg.GetStorePath() != DefaultStorePath {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.GetBackend() != backend.KindWazeroCompiler {
		t.Errorf("backend = %s, want compiler for the default protocol", cfg.GetBackend())
	}
	if cfg.GetGasMetering() != vmconfig.GasMeteringWasm {
		t.Errorf("gas metering = %s", cfg.GetGasMetering())
	}
	if cfg.IsDedupEnabled() {
		t.Error("dedup enabled by default")
	}
	if cfg.VM.NonCryptoHash() != vmconfig.Default().NonCryptoHash() {
		t.Error("vm config differs from default")
	}
}

func TestParse_Formats(t *testing.T) {
	tests := []struct {
		ext  string
		data string
	}{
		{".json", `{
			"logLevel": "debug",
			"protocolVersion": 42,
			"gasMetering": "host",
			"cache": {"enabled": true, "size": 16},
			"store": {"driver": "memory"},
			"compiler": {"dedupCompiles": true},
			"vm": {"limits": {"maxMemoryPages": 512, "initialMemoryPages": 256}}
		}`},
		{".yaml", `
logLevel: debug
protocolVersion: 42
gasMetering: host
cache:
  enabled: true
  size: 16
store:
  driver: memory
compiler:
  dedupCompiles: true
vm:
  limits:
    maxMemoryPages: 512
    initialMemoryPages: 256
`},
		{".toml", `
logLevel = "debug"
protocolVersion = 42
gasMetering = "host"

[cache]
enabled = true
size = 16

[store]
driver = "memory"

[compiler]
dedupCompiles = true

[vm.limits]
maxMemoryPages = 512
initialMemoryPages = 256
`},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.data), tt.ext)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if cfg.LogLevel != "debug" {
				t.Errorf("LogLevel = %q", cfg.LogLevel)
			}
			if cfg.GetBackend() != backend.KindWazeroInterpreter {
				t.Errorf("backend = %s, want interpreter for protocol 42", cfg.GetBackend())
			}
			if cfg.GetGasMetering() != vmconfig.GasMeteringHost {
				t.Errorf("gas metering = %s", cfg.GetGasMetering())
			}
			if cfg.GetCacheSize() != 16 {
				t.Errorf("cache size = %d", cfg.GetCacheSize())
			}
			if cfg.GetStoreDriver() != store.DriverMemory {
				t.Errorf("driver = %q", cfg.GetStoreDriver())
			}
			if !cfg.IsDedupEnabled() {
				t.Error("dedup not enabled")
			}
			if cfg.VM.Limits.MaxMemoryPages != 512 {
				t.Errorf("maxMemoryPages = %d", cfg.VM.Limits.MaxMemoryPages)
			}
			if cfg.VM.Limits.InitialMemoryPages != 256 {
				t.Errorf("initialMemoryPages = %d", cfg.VM.Limits.InitialMemoryPages)
			}
			// untouched vm fields keep their defaults
			if cfg.VM.RegularOpCost != vmconfig.DefaultRegularOpCost {
				t.Errorf("regularOpCost = %d", cfg.VM.RegularOpCost)
			}
			if cfg.VM.Limits.MaxFunctions != vmconfig.DefaultMaxFunctions {
				t.Errorf("maxFunctions = %d", cfg.VM.Limits.MaxFunctions)
			}
		})
	}
}

func TestParse_BackendOverride(t *testing.T) {
	cfg, err := Parse([]byte(`{"protocolVersion": 1, "backend": "compiler"}`), ".json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.GetBackend() != backend.KindWazeroCompiler {
		t.Errorf("backend = %s, want override", cfg.GetBackend())
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"log level", `{"logLevel": "loud"}`},
		{"backend", `{"backend": "v8"}`},
		{"gas metering", `{"gasMetering": "none"}`},
		{"cache size", `{"cache": {"enabled": true, "size": -1}}`},
		{"store driver", `{"store": {"driver": "redis"}}`},
		{"vm limits", `{"vm": {"limits": {"initialMemoryPages": 4096}}}`},
		{"syntax", `{`},
	}
	for _, tt := range tests {
		if _, err := Parse([]byte(tt.data), ".json"); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestParse_DisabledCache(t *testing.T) {
	cfg, err := Parse([]byte(`{"cache": {"enabled": false}}`), ".json")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.IsCacheEnabled() {
		t.Error("cache enabled")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wasmcache.yml")
	data := []byte("store:\n  driver: sqlite\n  path: /var/lib/contracts.db\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GetStorePath() != "/var/lib/contracts.db" {
		t.Errorf("path = %q", cfg.GetStorePath())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}
}
