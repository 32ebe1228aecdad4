package cache

import (
	"io"

	"github.com/opencontainers/go-digest"
)

// Cache stores decoded entry content.
//
// Implementations should handle their own size limits and eviction
// policies and must be safe for concurrent use.
type Cache interface {
	// Get returns the content stored under key.
	// Returns nil, false if content is not cached.
	Get(key digest.Digest) ([]byte, bool)

	// Put stores content under key. Implementations may decline to store
	// content that exceeds their limits without returning an error.
	Put(key digest.Digest, content []byte) error

	// Delete removes cached content for key.
	// Implementations should treat missing entries as a no-op.
	Delete(key digest.Digest) error
}

// SizedCache is a Cache with a byte budget.
type SizedCache interface {
	Cache

	// MaxBytes returns the configured cache size limit (0 = unlimited).
	MaxBytes() int64

	// SizeBytes returns the current cache size in bytes.
	SizeBytes() int64

	// Prune removes cached entries until the cache is at or below
	// targetBytes. Returns the number of bytes freed.
	Prune(targetBytes int64) (int64, error)
}

// Key returns the cache key of the entry called name inside the container
// identified by sourceID.
func Key(sourceID, name string) digest.Digest {
	return digest.FromString(sourceID + "\x00" + name)
}

// ByteSource provides random access to a container for block caching.
type ByteSource interface {
	io.ReaderAt

	// Size returns the total size of the data source in bytes.
	Size() int64

	// SourceID returns a unique identifier for this data source.
	// The ID is used as part of the cache key, so it must be stable
	// across calls and unique across different sources.
	SourceID() string
}

// RangeReader provides range reads for block fetches.
// Sources implementing it are fetched with one range request per block
// instead of ReadAt.
type RangeReader interface {
	// ReadRange returns a ReadCloser for reading length bytes starting at off.
	// The caller is responsible for closing the returned ReadCloser.
	ReadRange(off, length int64) (io.ReadCloser, error)
}

// DefaultBlockSize is the default block size used by block caches.
const DefaultBlockSize int64 = 64 << 10
