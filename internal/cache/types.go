package cache

import (
	"wasmcache/internal/backend"
	"wasmcache/internal/fingerprint"
)

// DefaultSize is the default number of resolved contracts kept in memory
const DefaultSize = 128

// Outcome is a fully resolved compilation: a usable module, or the compile
// error that is replayed for the fingerprint.
type Outcome struct {
	Module backend.Module
	Err    error
}

// ModuleCache holds resolved outcomes in memory, keyed by fingerprint.
// A ModuleCache only accelerates lookups; removing it must never change
// what callers observe.
type ModuleCache interface {
	// Get returns the outcome for fp and marks it recently used
	Get(fp fingerprint.Fingerprint) (Outcome, bool)

	// Add stores the outcome for fp, evicting the least recently used
	// entry when full
	Add(fp fingerprint.Fingerprint, outcome Outcome)

	// Len returns the number of cached outcomes
	Len() int

	// Purge removes every entry
	Purge()
}
