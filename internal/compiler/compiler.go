package compiler

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"wasmcache/internal/backend"
	"wasmcache/internal/cache"
	"wasmcache/internal/contract"
	"wasmcache/internal/fingerprint"
	"wasmcache/internal/prepare"
	"wasmcache/internal/record"
	"wasmcache/internal/store"
	"wasmcache/internal/vmconfig"
	"wasmcache/internal/vmerr"
)

// Compiler resolves contracts to compiled modules through the in-memory
// cache, the persistent store and finally the backend.
type Compiler struct {
	backends *backend.Registry
	preparer prepare.Preparer
	modules  cache.ModuleCache
	dedup    bool
	group    singleflight.Group
	logger   zerolog.Logger

	memoryHits     atomic.Uint64
	storeHits      atomic.Uint64
	failureReplays atomic.Uint64
	compiles       atomic.Uint64
	writeFailures  atomic.Uint64
}

// New creates a Compiler dispatching to backends. Without WithModuleCache
// the in-memory cache is disabled.
func New(backends *backend.Registry, logger zerolog.Logger, opts ...Option) *Compiler {
	c := &Compiler{
		backends: backends,
		preparer: prepare.NewValidator(),
		modules:  cache.NewNoopCache(),
		logger:   logger.With().Str("component", "compiler").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComputeFingerprint returns the cache key for compiling code with cfg on
// kind under the given gas metering mode
func (c *Compiler) ComputeFingerprint(code *contract.Code, cfg *vmconfig.Config, kind backend.Kind, mode vmconfig.GasMeteringMode) fingerprint.Fingerprint {
	return fingerprint.Build(code, cfg, kind, mode, c.backends)
}

// Resolve returns the compiled module for code on kind.
//
// A nil st disables caching entirely: the contract is compiled and neither
// cache is consulted. Otherwise a remembered compile failure is returned
// without recompiling. If compilation succeeds but the record cannot be
// stored, Resolve returns the module together with a CacheWriteError.
func (c *Compiler) Resolve(ctx context.Context, code *contract.Code, cfg *vmconfig.Config, kind backend.Kind, mode vmconfig.GasMeteringMode, st store.Store) (backend.Module, error) {
	fp := c.ComputeFingerprint(code, cfg, kind, mode)
	return c.ResolveFingerprint(ctx, fp, code, cfg, kind, mode, st)
}

// ResolveForProtocol resolves code on the backend selected for protocolVersion
func (c *Compiler) ResolveForProtocol(ctx context.Context, code *contract.Code, cfg *vmconfig.Config, protocolVersion uint32, mode vmconfig.GasMeteringMode, st store.Store) (backend.Module, error) {
	return c.Resolve(ctx, code, cfg, backend.ForProtocolVersion(protocolVersion), mode, st)
}

// ResolveFingerprint is Resolve with a fingerprint the caller already
// computed with ComputeFingerprint for the same inputs
func (c *Compiler) ResolveFingerprint(ctx context.Context, fp fingerprint.Fingerprint, code *contract.Code, cfg *vmconfig.Config, kind backend.Kind, mode vmconfig.GasMeteringMode, st store.Store) (backend.Module, error) {
	// Fails hard on an unsupported backend before any work is done.
	c.backends.Adapter(kind)

	if st == nil {
		return c.compile(ctx, code, cfg, kind, mode)
	}

	if out, ok := c.modules.Get(fp); ok {
		c.memoryHits.Add(1)
		c.logger.Debug().Str("fingerprint", fp.String()).Msg("resolved from memory")
		return out.Module, out.Err
	}

	m, err := c.resolveFromStore(ctx, fp, code, cfg, kind, mode, st)
	if out, ok := memoizable(m, err); ok {
		c.modules.Add(fp, out)
	}
	return m, err
}

// Stats returns a snapshot of the counters
func (c *Compiler) Stats() Stats {
	return Stats{
		MemoryHits:     c.memoryHits.Load(),
		StoreHits:      c.storeHits.Load(),
		FailureReplays: c.failureReplays.Load(),
		Compiles:       c.compiles.Load(),
		WriteFailures:  c.writeFailures.Load(),
	}
}

func (c *Compiler) resolveFromStore(ctx context.Context, fp fingerprint.Fingerprint, code *contract.Code, cfg *vmconfig.Config, kind backend.Kind, mode vmconfig.GasMeteringMode, st store.Store) (backend.Module, error) {
	data, found, err := st.Get(ctx, fp.Bytes())
	if err != nil {
		return nil, vmerr.NewCacheError(vmerr.CacheReadError, fp.Bytes(), err)
	}
	if found {
		c.storeHits.Add(1)
		return c.load(ctx, fp, kind, data)
	}

	c.logger.Debug().
		Str("fingerprint", fp.String()).
		Str("backend", kind.String()).
		Msg("cache miss")

	return c.compileAndStore(ctx, fp, code, cfg, kind, mode, st)
}

// load turns a stored record back into a module or a replayed failure
func (c *Compiler) load(ctx context.Context, fp fingerprint.Fingerprint, kind backend.Kind, data []byte) (backend.Module, error) {
	rec, err := record.Decode(data)
	if err != nil {
		return nil, vmerr.NewCacheError(vmerr.CacheDeserializationError, fp.Bytes(), err)
	}

	if rec.IsFailure() {
		c.failureReplays.Add(1)
		c.logger.Debug().
			Str("fingerprint", fp.String()).
			Str("kind", string(rec.Failure.Kind)).
			Msg("replaying cached compile failure")
		return nil, rec.Failure
	}

	m, err := c.backends.Deserialize(ctx, kind, rec.Artifact)
	if err != nil {
		return nil, vmerr.NewCacheError(vmerr.CacheDeserializationError, fp.Bytes(), err)
	}
	return m, nil
}

// compileAndStore compiles on a store miss and persists the outcome. With
// de-duplication enabled, concurrent callers for fp share one execution.
func (c *Compiler) compileAndStore(ctx context.Context, fp fingerprint.Fingerprint, code *contract.Code, cfg *vmconfig.Config, kind backend.Kind, mode vmconfig.GasMeteringMode, st store.Store) (backend.Module, error) {
	if !c.dedup {
		return c.doCompileAndStore(ctx, fp, code, cfg, kind, mode, st)
	}

	// Joined callers share this execution, so it must not be cut short
	// by the first caller's cancellation.
	sharedCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(fp.String(), func() (interface{}, error) {
		return c.doCompileAndStore(sharedCtx, fp, code, cfg, kind, mode, st)
	})
	if shared {
		c.logger.Debug().Str("fingerprint", fp.String()).Msg("shared concurrent compilation")
	}
	m, _ := v.(backend.Module)
	return m, err
}

func (c *Compiler) doCompileAndStore(ctx context.Context, fp fingerprint.Fingerprint, code *contract.Code, cfg *vmconfig.Config, kind backend.Kind, mode vmconfig.GasMeteringMode, st store.Store) (backend.Module, error) {
	m, err := c.compile(ctx, code, cfg, kind, mode)
	if err != nil {
		ce, _ := vmerr.AsCompileError(err)
		if perr := st.Put(ctx, fp.Bytes(), record.Encode(record.Failure(ce))); perr != nil {
			// The caller already lost on compilation; surface the write
			// failure so it is not silently swallowed.
			c.writeFailures.Add(1)
			return nil, vmerr.NewCacheError(vmerr.CacheWriteError, fp.Bytes(), errors.Join(perr, ce))
		}
		return nil, ce
	}

	artifact, err := c.backends.Serialize(kind, m)
	if err != nil {
		return nil, vmerr.NewCacheError(vmerr.CacheSerializationError, fp.Bytes(), err)
	}

	if err := st.Put(ctx, fp.Bytes(), record.Encode(record.Artifact(artifact))); err != nil {
		c.writeFailures.Add(1)
		c.logger.Warn().
			Err(err).
			Str("fingerprint", fp.String()).
			Msg("failed to store compiled contract")
		return m, vmerr.NewCacheError(vmerr.CacheWriteError, fp.Bytes(), err)
	}

	return m, nil
}

// compile prepares and compiles code. Every failure is returned as a
// *vmerr.CompileError so it can be remembered.
func (c *Compiler) compile(ctx context.Context, code *contract.Code, cfg *vmconfig.Config, kind backend.Kind, mode vmconfig.GasMeteringMode) (backend.Module, error) {
	c.compiles.Add(1)

	prepared, err := c.preparer.Prepare(code.Bytes(), cfg, mode)
	if err != nil {
		return nil, asCompileError(err)
	}

	m, err := c.backends.Compile(ctx, kind, prepared, cfg, mode)
	if err != nil {
		return nil, asCompileError(err)
	}
	return m, nil
}

func asCompileError(err error) *vmerr.CompileError {
	if ce, ok := vmerr.AsCompileError(err); ok {
		return ce
	}
	return vmerr.NewCompileError(vmerr.KindInternal, err.Error())
}

// memoizable decides what, if anything, the in-memory cache keeps for a
// resolution. Modules and compile failures are kept. Nothing carrying a
// cache error is kept, even alongside a module or a compile error, so the
// next call goes back to the store and sees the same result it would see
// without the in-memory cache.
func memoizable(m backend.Module, err error) (cache.Outcome, bool) {
	var cacheErr *vmerr.CacheError
	if errors.As(err, &cacheErr) {
		return cache.Outcome{}, false
	}
	if m != nil {
		return cache.Outcome{Module: m}, true
	}
	if ce, ok := vmerr.AsCompileError(err); ok {
		return cache.Outcome{Err: ce}, true
	}
	return cache.Outcome{}, false
}
