package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"wasmcache/internal/backend"
	"wasmcache/internal/store"
	"wasmcache/internal/vmconfig"
)

// Load reads and parses the configuration file. The format is chosen by
// extension: .yaml/.yml, .toml, anything else is JSON.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data, filepath.Ext(path))
}

// Parse decodes data in the format named by ext, applies defaults and
// validates the result
func Parse(data []byte, ext string) (*Config, error) {
	// vm fields omitted from the file keep their defaults
	cfg := &Config{VM: *vmconfig.Default()}

	var err error
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.NewDecoder(bytes.NewReader(data)).Decode(cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	cfg := &Config{VM: *vmconfig.Default()}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.ProtocolVersion == 0 {
		cfg.ProtocolVersion = DefaultProtocolVersion
	}
	if cfg.GasMetering == "" {
		cfg.GasMetering = DefaultGasMetering
	}
	// An absent cache section means the default cache, not no cache
	if cfg.Cache == nil {
		cfg.Cache = &CacheConfig{Enabled: true}
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = DefaultCacheSize
	}
	if cfg.Store == nil {
		cfg.Store = &StoreConfig{}
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = DefaultStoreDriver
	}
	if cfg.Store.Driver == store.DriverSQLite && cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	if cfg.Backend != "" {
		if _, err := backend.ParseKind(cfg.Backend); err != nil {
			return err
		}
	}

	if _, err := vmconfig.ParseGasMeteringMode(cfg.GasMetering); err != nil {
		return err
	}

	if cfg.Cache.Enabled && cfg.Cache.Size <= 0 {
		return fmt.Errorf("cache.size must be positive when cache is enabled")
	}

	switch cfg.Store.Driver {
	case store.DriverMemory, store.DriverNone:
	case store.DriverSQLite:
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("store.driver must be one of: %s, %s, %s",
			store.DriverMemory, store.DriverSQLite, store.DriverNone)
	}

	if err := cfg.VM.Validate(); err != nil {
		return fmt.Errorf("vm: %w", err)
	}

	return nil
}
