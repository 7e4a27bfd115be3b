package config

import (
	"wasmcache/internal/backend"
	"wasmcache/internal/cache"
	"wasmcache/internal/store"
	"wasmcache/internal/vmconfig"
)

// Config represents the main configuration structure
type Config struct {
	LogLevel        string          `json:"logLevel" yaml:"logLevel" toml:"logLevel"`
	ProtocolVersion uint32          `json:"protocolVersion" yaml:"protocolVersion" toml:"protocolVersion"`
	Backend         string          `json:"backend" yaml:"backend" toml:"backend"` // overrides the protocol-selected backend
	GasMetering     string          `json:"gasMetering" yaml:"gasMetering" toml:"gasMetering"`
	Cache           *CacheConfig    `json:"cache,omitempty" yaml:"cache,omitempty" toml:"cache,omitempty"`
	Store           *StoreConfig    `json:"store,omitempty" yaml:"store,omitempty" toml:"store,omitempty"`
	Compiler        *CompilerConfig `json:"compiler,omitempty" yaml:"compiler,omitempty" toml:"compiler,omitempty"`
	VM              vmconfig.Config `json:"vm" yaml:"vm" toml:"vm"`
}

// CacheConfig represents the in-memory module cache configuration
type CacheConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled" toml:"enabled"`
	Size    int  `json:"size" yaml:"size" toml:"size"` // number of entries
}

// StoreConfig represents the persistent store configuration
type StoreConfig struct {
	Driver string `json:"driver" yaml:"driver" toml:"driver"` // memory, sqlite or none
	Path   string `json:"path" yaml:"path" toml:"path"`
}

// CompilerConfig represents compiler orchestration options
type CompilerConfig struct {
	CacheDir      string `json:"cacheDir" yaml:"cacheDir" toml:"cacheDir"` // wazero compilation cache directory
	DedupCompiles bool   `json:"dedupCompiles" yaml:"dedupCompiles" toml:"dedupCompiles"`
}

// Default values
const (
	DefaultLogLevel        = "info"
	DefaultProtocolVersion = backend.CompilerBackendProtocolVersion
	DefaultGasMetering     = "wasm"
	DefaultCacheSize       = cache.DefaultSize
	DefaultStoreDriver     = store.DriverSQLite
	DefaultStorePath       = "./contracts.db"
)

// IsCacheEnabled returns true if the in-memory cache is configured and enabled
func (c *Config) IsCacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled
}

// GetCacheSize returns the in-memory cache capacity
func (c *Config) GetCacheSize() int {
	if c.Cache == nil || c.Cache.Size == 0 {
		return DefaultCacheSize
	}
	return c.Cache.Size
}

// GetStoreDriver returns the persistent store driver name
func (c *Config) GetStoreDriver() string {
	if c.Store == nil || c.Store.Driver == "" {
		return DefaultStoreDriver
	}
	return c.Store.Driver
}

// GetStorePath returns the sqlite database path
func (c *Config) GetStorePath() string {
	if c.Store == nil || c.Store.Path == "" {
		return DefaultStorePath
	}
	return c.Store.Path
}

// GetCompilationCacheDir returns the wazero compilation cache directory, or
// "" to keep compiled code in memory only
func (c *Config) GetCompilationCacheDir() string {
	if c.Compiler == nil {
		return ""
	}
	return c.Compiler.CacheDir
}

// IsDedupEnabled returns true if concurrent compilations are de-duplicated
func (c *Config) IsDedupEnabled() bool {
	return c.Compiler != nil && c.Compiler.DedupCompiles
}

// GetBackend returns the configured backend override, or the backend
// selected for ProtocolVersion when none is set
func (c *Config) GetBackend() backend.Kind {
	if c.Backend == "" {
		return backend.ForProtocolVersion(c.ProtocolVersion)
	}
	// validated on load
	kind, _ := backend.ParseKind(c.Backend)
	return kind
}

// GetGasMetering returns the gas metering mode
func (c *Config) GetGasMetering() vmconfig.GasMeteringMode {
	// validated on load
	mode, _ := vmconfig.ParseGasMeteringMode(c.GasMetering)
	return mode
}
