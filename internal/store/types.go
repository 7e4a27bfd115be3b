package store

import "context"

// Store is the persistent compiled-contract cache supplied by the host.
// Keys are fingerprints and values are encoded cache records; both are
// opaque to the store. Every call may fail independently, and concurrent
// Put/Get pairs from different callers are not assumed to be atomic.
type Store interface {
	// Get returns the value stored under key and whether it was found
	Get(ctx context.Context, key []byte) ([]byte, bool, error)

	// Put stores value under key, replacing any previous value
	Put(ctx context.Context, key, value []byte) error
}

// Driver names accepted in configuration
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverNone   = "none"
)
