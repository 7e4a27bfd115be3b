package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"wasmcache/internal/backend"
	"wasmcache/internal/cache"
	"wasmcache/internal/prepare"
	"wasmcache/internal/store"
	"wasmcache/internal/vmconfig"
	"wasmcache/internal/vmerr"
)

var errDisk = errors.New("disk unavailable")

type fakeModule struct {
	kind backend.Kind
	code string
}

func (m *fakeModule) Kind() backend.Kind { return m.kind }

// countingAdapter compiles any code except code containing "bad".
// When entered/release are set, Compile reports entry, blocks until
// release is closed and then fails if ctx was cancelled meanwhile.
type countingAdapter struct {
	kind    backend.Kind
	version uint64

	compiles     atomic.Int64
	deserializes atomic.Int64
	entered      chan struct{}
	release      chan struct{}
}

func newCountingAdapter(kind backend.Kind) *countingAdapter {
	return &countingAdapter{kind: kind, version: 1}
}

func (a *countingAdapter) Kind() backend.Kind { return a.kind }
func (a *countingAdapter) Version() uint64    { return a.version }

func (a *countingAdapter) Compile(ctx context.Context, prepared []byte, cfg *vmconfig.Config, mode vmconfig.GasMeteringMode) (backend.Module, error) {
	a.compiles.Add(1)
	if a.entered != nil {
		a.entered <- struct{}{}
		<-a.release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	if bytes.Contains(prepared, []byte("bad")) {
		return nil, vmerr.NewCompileError(vmerr.KindInvalidModule, "bad opcode")
	}
	return &fakeModule{kind: a.kind, code: string(prepared)}, nil
}

func (a *countingAdapter) Serialize(m backend.Module) ([]byte, error) {
	fm, ok := m.(*fakeModule)
	if !ok {
		return nil, backend.ErrForeignModule
	}
	return []byte(fmt.Sprintf("v%d:%s", a.version, fm.code)), nil
}

func (a *countingAdapter) Deserialize(ctx context.Context, data []byte) (backend.Module, error) {
	a.deserializes.Add(1)
	prefix := []byte(fmt.Sprintf("v%d:", a.version))
	if !bytes.HasPrefix(data, prefix) {
		return nil, backend.ErrVersionMismatch
	}
	return &fakeModule{kind: a.kind, code: string(data[len(prefix):])}, nil
}

// fakeStore wraps a MemoryStore with injectable failures and call counters
type fakeStore struct {
	*store.MemoryStore
	getErr error
	putErr error
	gets   atomic.Int64
	puts   atomic.Int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{MemoryStore: store.NewMemoryStore()}
}

func (s *fakeStore) Get(ctx context.Context, key []byte) ([]byte, bool, error) {
	s.gets.Add(1)
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.MemoryStore.Get(ctx, key)
}

func (s *fakeStore) Put(ctx context.Context, key, value []byte) error {
	s.puts.Add(1)
	if s.putErr != nil {
		return s.putErr
	}
	return s.MemoryStore.Put(ctx, key, value)
}

var passthrough = prepare.PreparerFunc(func(code []byte, cfg *vmconfig.Config, mode vmconfig.GasMeteringMode) ([]byte, error) {
	return code, nil
})

type fixture struct {
	interp   *countingAdapter
	compiler *countingAdapter
	registry *backend.Registry
}

func newFixture() *fixture {
	f := &fixture{
		interp:   newCountingAdapter(backend.KindWazeroInterpreter),
		compiler: newCountingAdapter(backend.KindWazeroCompiler),
	}
	f.registry = &backend.Registry{Interpreter: f.interp, Compiler: f.compiler}
	return f
}

func (f *fixture) newCompiler(opts ...Option) *Compiler {
	opts = append([]Option{WithPreparer(passthrough)}, opts...)
	return New(f.registry, zerolog.Nop(), opts...)
}

func newLRU(size int) cache.ModuleCache {
	c, err := cache.NewLRUCache(size, zerolog.Nop())
	if err != nil {
		panic(err)
	}
	return c
}
