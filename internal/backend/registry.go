package backend

import (
	"context"
	"fmt"

	"wasmcache/internal/vmconfig"
	"wasmcache/internal/vmerr"
)

// Registry is the single dispatch point from a backend Kind to its Adapter.
type Registry struct {
	Interpreter Adapter
	Compiler    Adapter
}

// Adapter returns the adapter for kind. Selecting a backend without an
// implementation panics with vmerr.ErrUnsupportedBackend: continuing would
// let nodes silently diverge on execution results.
func (r *Registry) Adapter(kind Kind) Adapter {
	var a Adapter
	switch kind {
	case KindWazeroInterpreter:
		a = r.Interpreter
	case KindWazeroCompiler:
		a = r.Compiler
	case KindWasmtime:
		panic(fmt.Errorf("%s: %w", kind, vmerr.ErrUnsupportedBackend))
	default:
		panic(fmt.Errorf("%s: %w", kind, vmerr.ErrUnsupportedBackend))
	}
	if a == nil {
		panic(fmt.Errorf("%s: no adapter registered: %w", kind, vmerr.ErrUnsupportedBackend))
	}
	return a
}

// Version returns the internal version of kind's adapter
func (r *Registry) Version(kind Kind) uint64 {
	return r.Adapter(kind).Version()
}

// Compile compiles prepared bytecode with kind's adapter
func (r *Registry) Compile(ctx context.Context, kind Kind, prepared []byte, cfg *vmconfig.Config, mode vmconfig.GasMeteringMode) (Module, error) {
	return r.Adapter(kind).Compile(ctx, prepared, cfg, mode)
}

// Serialize serializes a module with kind's adapter
func (r *Registry) Serialize(kind Kind, m Module) ([]byte, error) {
	return r.Adapter(kind).Serialize(m)
}

// Deserialize loads an artifact with kind's adapter.
//
// Artifacts are trusted: they were written by this host at the same backend
// version. This is the only place that trust is exercised. A backend that
// faults while loading a corrupted artifact is reported as an error and
// never crashes the caller.
func (r *Registry) Deserialize(ctx context.Context, kind Kind, data []byte) (m Module, err error) {
	a := r.Adapter(kind)

	defer func() {
		if rec := recover(); rec != nil {
			m = nil
			err = fmt.Errorf("%s: loading artifact panicked: %v", kind, rec)
		}
	}()

	return a.Deserialize(ctx, data)
}

// Close releases resources held by adapters that own any
func (r *Registry) Close(ctx context.Context) error {
	var firstErr error
	for _, a := range []Adapter{r.Interpreter, r.Compiler} {
		c, ok := a.(interface{ Close(context.Context) error })
		if !ok {
			continue
		}
		if err := c.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
