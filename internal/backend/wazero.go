package backend

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"wasmcache/internal/vmconfig"
	"wasmcache/internal/vmerr"
)

// WazeroModule is a contract compiled by one of the wazero backends
type WazeroModule struct {
	kind     Kind
	compiled wazero.CompiledModule
	runtime  wazero.Runtime
	cfg      *vmconfig.Config
	mode     vmconfig.GasMeteringMode
	code     []byte
}

// Kind returns the backend that compiled the module
func (m *WazeroModule) Kind() Kind {
	return m.kind
}

// Compiled returns the underlying wazero module
func (m *WazeroModule) Compiled() wazero.CompiledModule {
	return m.compiled
}

// Instantiate creates an anonymous instance of the module in the runtime
// that compiled it
func (m *WazeroModule) Instantiate(ctx context.Context) (api.Module, error) {
	return m.runtime.InstantiateModule(ctx, m.compiled, wazero.NewModuleConfig().WithName(""))
}

// WazeroAdapter implements Adapter on top of a wazero engine. One runtime is
// kept per distinct compilation config; all runtimes share a compilation
// cache so artifacts load without regenerating native code.
type WazeroAdapter struct {
	kind      Kind
	version   uint64
	newConfig func() wazero.RuntimeConfig
	cache     wazero.CompilationCache
	logger    zerolog.Logger

	runtimes map[uint64]wazero.Runtime
	mu       sync.Mutex
}

// NewWazeroInterpreter creates the interpreter backend adapter
func NewWazeroInterpreter(cache wazero.CompilationCache, logger zerolog.Logger) *WazeroAdapter {
	return newWazeroAdapter(KindWazeroInterpreter, wazero.NewRuntimeConfigInterpreter, cache, logger)
}

// NewWazeroCompiler creates the native compiler backend adapter
func NewWazeroCompiler(cache wazero.CompilationCache, logger zerolog.Logger) *WazeroAdapter {
	return newWazeroAdapter(KindWazeroCompiler, wazero.NewRuntimeConfigCompiler, cache, logger)
}

func newWazeroAdapter(kind Kind, newConfig func() wazero.RuntimeConfig, cache wazero.CompilationCache, logger zerolog.Logger) *WazeroAdapter {
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	return &WazeroAdapter{
		kind:      kind,
		version:   internalVersion(kind, linkedWazeroVersion()),
		newConfig: newConfig,
		cache:     cache,
		logger:    logger.With().Str("component", "backend").Str("backend", kind.String()).Logger(),
		runtimes:  make(map[uint64]wazero.Runtime),
	}
}

// Kind returns the backend identity
func (a *WazeroAdapter) Kind() Kind {
	return a.kind
}

// Version returns the backend internal version
func (a *WazeroAdapter) Version() uint64 {
	return a.version
}

// Compile validates and compiles prepared bytecode
func (a *WazeroAdapter) Compile(ctx context.Context, prepared []byte, cfg *vmconfig.Config, mode vmconfig.GasMeteringMode) (Module, error) {
	rt, err := a.runtimeFor(ctx, cfg)
	if err != nil {
		return nil, vmerr.NewCompileError(vmerr.KindInvalidConfig, err.Error())
	}

	compiled, err := rt.CompileModule(ctx, prepared)
	if err != nil {
		return nil, vmerr.NewCompileError(vmerr.KindInvalidModule, err.Error())
	}

	code := make([]byte, len(prepared))
	copy(code, prepared)

	return &WazeroModule{
		kind:     a.kind,
		compiled: compiled,
		runtime:  rt,
		cfg:      cfg.Clone(),
		mode:     mode,
		code:     code,
	}, nil
}

// Serialize encodes m as an artifact stamped with this adapter's version
func (a *WazeroAdapter) Serialize(m Module) ([]byte, error) {
	wm, ok := m.(*WazeroModule)
	if !ok || wm.kind != a.kind {
		return nil, fmt.Errorf("%s: %w", a.kind, ErrForeignModule)
	}
	return marshalArtifact(&artifact{
		Format:  artifactFormat,
		Backend: a.kind,
		Version: a.version,
		Config:  wm.cfg,
		Mode:    uint8(wm.mode),
		Code:    wm.code,
	})
}

// Deserialize loads an artifact written by Serialize at the same version
func (a *WazeroAdapter) Deserialize(ctx context.Context, data []byte) (Module, error) {
	art, err := unmarshalArtifact(data)
	if err != nil {
		return nil, err
	}
	if art.Format != artifactFormat || art.Backend != a.kind || art.Version != a.version {
		return nil, fmt.Errorf("%s: artifact format %d backend %s version %x: %w",
			a.kind, art.Format, art.Backend, art.Version, ErrVersionMismatch)
	}

	rt, err := a.runtimeFor(ctx, art.Config)
	if err != nil {
		return nil, fmt.Errorf("%s: artifact config: %w", a.kind, err)
	}
	compiled, err := rt.CompileModule(ctx, art.Code)
	if err != nil {
		return nil, fmt.Errorf("%s: reload artifact: %w", a.kind, err)
	}

	return &WazeroModule{
		kind:     a.kind,
		compiled: compiled,
		runtime:  rt,
		cfg:      art.Config,
		mode:     vmconfig.GasMeteringMode(art.Mode),
		code:     art.Code,
	}, nil
}

// Close closes every runtime created by the adapter
func (a *WazeroAdapter) Close(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for h, rt := range a.runtimes {
		if err := rt.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		delete(a.runtimes, h)
	}
	return errors.Join(errs...)
}

// runtimeFor returns the runtime configured for cfg, creating it on first
// use. Limits wazero cannot honour are rejected here instead of panicking
// inside the engine.
func (a *WazeroAdapter) runtimeFor(ctx context.Context, cfg *vmconfig.Config) (wazero.Runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := cfg.NonCryptoHash()

	a.mu.Lock()
	defer a.mu.Unlock()

	if rt, ok := a.runtimes[h]; ok {
		return rt, nil
	}

	rc := a.newConfig().
		WithCompilationCache(a.cache).
		WithMemoryLimitPages(cfg.Limits.MaxMemoryPages).
		WithCoreFeatures(coreFeatures(cfg.Features))
	rt := wazero.NewRuntimeWithConfig(ctx, rc)
	a.runtimes[h] = rt

	a.logger.Debug().
		Uint64("configHash", h).
		Int("runtimes", len(a.runtimes)).
		Msg("created runtime")

	return rt, nil
}

// coreFeatures maps configured feature toggles onto wazero's feature set
func coreFeatures(f vmconfig.Features) api.CoreFeatures {
	features := api.CoreFeaturesV1
	toggles := []struct {
		on      bool
		feature api.CoreFeatures
	}{
		{f.SignExtension, api.CoreFeatureSignExtensionOps},
		{f.MultiValue, api.CoreFeatureMultiValue},
		{f.BulkMemory, api.CoreFeatureBulkMemoryOperations},
		{f.NonTrappingF2I, api.CoreFeatureNonTrappingFloatToIntConversion},
		{f.MutableGlobals, api.CoreFeatureMutableGlobal},
		{f.ReferenceTypes, api.CoreFeatureReferenceTypes},
		{f.SIMD, api.CoreFeatureSIMD},
	}
	for _, t := range toggles {
		features = features.SetEnabled(t.feature, t.on)
	}
	return features
}
