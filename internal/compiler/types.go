package compiler

import (
	"fmt"

	"wasmcache/internal/cache"
	"wasmcache/internal/prepare"
)

// PrecompileResult reports what Precompile did
type PrecompileResult int

const (
	// CacheUnavailable means no persistent store was supplied
	CacheUnavailable PrecompileResult = iota + 1
	// AlreadyCached means a record for the fingerprint already existed and
	// was left untouched
	AlreadyCached
	// Compiled means the contract was compiled and its record stored
	Compiled
)

// String returns the result name
func (r PrecompileResult) String() string {
	switch r {
	case CacheUnavailable:
		return "cache_unavailable"
	case AlreadyCached:
		return "already_cached"
	case Compiled:
		return "compiled"
	default:
		return fmt.Sprintf("unknown(%d)", int(r))
	}
}

// Stats is a snapshot of orchestrator counters
type Stats struct {
	MemoryHits     uint64 `json:"memoryHits"`
	StoreHits      uint64 `json:"storeHits"`
	FailureReplays uint64 `json:"failureReplays"`
	Compiles       uint64 `json:"compiles"`
	WriteFailures  uint64 `json:"writeFailures"`
}

// Option configures a Compiler
type Option func(*Compiler)

// WithModuleCache sets the in-memory cache of resolved contracts. The same
// instance should be shared by every Compiler in the process.
func WithModuleCache(mc cache.ModuleCache) Option {
	return func(c *Compiler) {
		c.modules = mc
	}
}

// WithPreparer replaces the default bytecode preparation step
func WithPreparer(p prepare.Preparer) Option {
	return func(c *Compiler) {
		c.preparer = p
	}
}

// WithDedupCompiles makes concurrent misses for the same fingerprint share
// one compilation. The shared compilation ignores cancellation of the
// caller that started it. Off by default: duplicate compiles are harmless because
// compilation is deterministic and the store tolerates overwrites.
func WithDedupCompiles(enabled bool) Option {
	return func(c *Compiler) {
		c.dedup = enabled
	}
}
