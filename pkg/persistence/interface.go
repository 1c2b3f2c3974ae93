package persistence

import "context"

// Store is the durable KV layer behind the ledger. It maps raw 32-byte
// content keys to formatted entry strings.
//
// All implementations must be thread-safe and must serialise writes through
// an exclusive lock, preserving single-writer semantics even when called
// concurrently by unrelated tasks.
type Store interface {
	// Put persists a formatted entry under its content key, overwriting any
	// previous value.
	Put(ctx context.Context, key [32]byte, value string) error

	// Get retrieves the formatted entry for a key. found is false when the
	// key is absent; absence is not an error.
	Get(ctx context.Context, key [32]byte) (value string, found bool, err error)

	// Close cleanly shuts down the store. Further Put and Get calls fail.
	Close() error
}
