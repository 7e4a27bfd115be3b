package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"

	"wasmcache/internal/backend"
	"wasmcache/internal/cache"
	"wasmcache/internal/compiler"
	"wasmcache/internal/config"
	"wasmcache/internal/contract"
	"wasmcache/internal/store"
	"wasmcache/internal/vmerr"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Parse flags
	configPath := flag.String("config", "", "path to config file (json, yaml or toml)")
	protocol := flag.Uint("protocol", 0, "protocol version selecting the backend (overrides config)")
	fingerprintOnly := flag.Bool("fingerprint-only", false, "print fingerprints without compiling")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] contract.wasm...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Load config
	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			// Basic logger for startup errors
			log := zerolog.New(os.Stderr).With().Timestamp().Logger()
			log.Fatal().Err(err).Msg("failed to load config")
		}
	}
	if *protocol != 0 {
		cfg.ProtocolVersion = uint32(*protocol)
	}

	logger := setupLogger(cfg.LogLevel).With().Str("run", uuid.NewString()).Logger()

	if flag.NArg() == 0 {
		flag.Usage()
		return 2
	}

	kind := cfg.GetBackend()
	mode := cfg.GetGasMetering()
	logger.Info().
		Str("config", *configPath).
		Uint32("protocolVersion", cfg.ProtocolVersion).
		Str("backend", kind.String()).
		Str("gasMetering", mode.String()).
		Str("store", cfg.GetStoreDriver()).
		Int("contracts", flag.NArg()).
		Msg("starting wasmcache")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := newRegistry(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create backends")
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := registry.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("error closing backends")
		}
	}()

	st, closeStore, err := openStore(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer closeStore()

	opts := []compiler.Option{compiler.WithDedupCompiles(cfg.IsDedupEnabled())}
	if cfg.IsCacheEnabled() {
		mc, err := cache.NewLRUCache(cfg.GetCacheSize(), logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create module cache")
		}
		opts = append(opts, compiler.WithModuleCache(mc))
	}
	c := compiler.New(registry, logger, opts...)

	failed := 0
	for _, path := range flag.Args() {
		if ctx.Err() != nil {
			logger.Info().Msg("interrupted")
			break
		}

		data, err := os.ReadFile(path)
		if err != nil {
			logger.Error().Err(err).Str("file", path).Msg("failed to read contract")
			failed++
			continue
		}
		code := contract.NewCode(data)
		fp := c.ComputeFingerprint(code, &cfg.VM, kind, mode)

		if *fingerprintOnly {
			fmt.Printf("%s  %s  %s\n", fp, code.Hash(), path)
			continue
		}

		start := time.Now()
		res, err := c.Precompile(ctx, code, &cfg.VM, kind, mode, st)
		if err != nil {
			failed++
		}
		resultEvent(logger, err).
			Str("file", path).
			Str("codeHash", code.Hash().String()).
			Str("fingerprint", fp.String()).
			Str("size", humanize.Bytes(uint64(code.Len()))).
			Str("result", res.String()).
			Dur("elapsed", time.Since(start)).
			Msg("precompile")
	}

	stats := c.Stats()
	logger.Info().
		Uint64("compiles", stats.Compiles).
		Uint64("storeHits", stats.StoreHits).
		Uint64("writeFailures", stats.WriteFailures).
		Int("failed", failed).
		Msg("done")

	if failed > 0 {
		return 1
	}
	return 0
}

// resultEvent picks the log level for a precompile outcome. A contract that
// does not compile is a warning; a cache failure is an error.
func resultEvent(logger zerolog.Logger, err error) *zerolog.Event {
	if err == nil {
		return logger.Info()
	}
	if _, ok := vmerr.AsCompileError(err); ok && !vmerr.IsCacheError(err, vmerr.CacheWriteError) {
		return logger.Warn().Err(err)
	}
	return logger.Error().Err(err)
}

// newRegistry creates the wazero backends, sharing one compilation cache
func newRegistry(cfg *config.Config, logger zerolog.Logger) (*backend.Registry, error) {
	cc := wazero.NewCompilationCache()
	if dir := cfg.GetCompilationCacheDir(); dir != "" {
		var err error
		cc, err = wazero.NewCompilationCacheWithDir(dir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache %s: %w", dir, err)
		}
	}
	return &backend.Registry{
		Interpreter: backend.NewWazeroInterpreter(cc, logger),
		Compiler:    backend.NewWazeroCompiler(cc, logger),
	}, nil
}

// openStore opens the configured persistent store. A nil store disables
// persistent caching.
func openStore(cfg *config.Config, logger zerolog.Logger) (store.Store, func(), error) {
	switch cfg.GetStoreDriver() {
	case store.DriverMemory:
		return store.NewMemoryStore(), func() {}, nil
	case store.DriverSQLite:
		s, err := store.OpenSQLite(cfg.GetStorePath(), logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing store")
			}
		}, nil
	default:
		return nil, func() {}, nil
	}
}

// setupLogger configures the zerolog logger
func setupLogger(level string) zerolog.Logger {
	// Set log level
	var logLevel zerolog.Level
	switch level {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Console output for terminals, JSON lines otherwise
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).With().Timestamp().Logger()
}
