package compiler

import (
	"context"

	"wasmcache/internal/backend"
	"wasmcache/internal/contract"
	"wasmcache/internal/store"
	"wasmcache/internal/vmconfig"
)

// Precompile compiles code ahead of execution and stores the outcome in st.
// An existing record for the fingerprint, including a failure record, is
// never overwritten. A failed compilation is stored and then returned as
// the error.
func (c *Compiler) Precompile(ctx context.Context, code *contract.Code, cfg *vmconfig.Config, kind backend.Kind, mode vmconfig.GasMeteringMode, st store.Store) (PrecompileResult, error) {
	// Fails hard on an unsupported backend before any work is done.
	c.backends.Adapter(kind)

	if st == nil {
		return CacheUnavailable, nil
	}

	fp := c.ComputeFingerprint(code, cfg, kind, mode)

	_, found, err := st.Get(ctx, fp.Bytes())
	switch {
	case err != nil:
		// Warming is best effort; an unreadable entry is recompiled.
		c.logger.Warn().
			Err(err).
			Str("fingerprint", fp.String()).
			Msg("failed to check cache before precompiling")
	case found:
		return AlreadyCached, nil
	}

	if _, err := c.compileAndStore(ctx, fp, code, cfg, kind, mode, st); err != nil {
		return 0, err
	}

	c.logger.Debug().
		Str("fingerprint", fp.String()).
		Str("backend", kind.String()).
		Int("size", code.Len()).
		Msg("precompiled contract")

	return Compiled, nil
}

// PrecompileForProtocol precompiles for the backend selected for
// protocolVersion
func (c *Compiler) PrecompileForProtocol(ctx context.Context, code *contract.Code, cfg *vmconfig.Config, protocolVersion uint32, mode vmconfig.GasMeteringMode, st store.Store) (PrecompileResult, error) {
	return c.Precompile(ctx, code, cfg, backend.ForProtocolVersion(protocolVersion), mode, st)
}
