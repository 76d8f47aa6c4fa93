// Package blob provides storage backends for the CID mirror: a directory
// of files whose basenames equal the CID of their contents. The default
// backend is the local cids/ directory; an S3 backend mirrors the same
// layout into a bucket, and a badger-backed cache can wrap either for hot
// hashed-CID reads.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist in the backend.
var ErrNotFound = errors.New("blob not found")

// Backend stores blobs keyed by CID. Implementations must be safe for
// concurrent use. Writes to the same key carry identical bytes by
// construction (the key is the content hash), so last-write-wins races are
// harmless.
type Backend interface {
	// Put stores content under the given CID key.
	Put(ctx context.Context, cid string, content []byte) error

	// Get returns the content stored under the CID key.
	Get(ctx context.Context, cid string) ([]byte, error)

	// Exists reports whether the key is present.
	Exists(ctx context.Context, cid string) (bool, error)

	// List returns every stored CID key.
	List(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}
