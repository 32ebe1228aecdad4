// Package archive provides a read-only virtual file system over packed
// game asset containers.
//
// A container is one large file holding many entries back to back. Its
// contents are described by two parallel tables:
//   - Name table: newline-separated entry names
//   - Record table: fixed 12-byte records (offset, uncompressed size, kind)
//
// The record table stores no compressed size; the on-disk span of an entry
// is inferred from the next entry in offset order, or the end of the
// container for the last one. Entries may be stored raw, LZSS compressed
// (optionally twice, or with an unrecorded output size) or as LZ4 blocks
// behind a pre-header of varying width.
//
// A [Map] indexes one container and extracts entries from any [ByteSource].
// Maps are safe for concurrent lookups and extraction once built; Add and
// Merge must not run concurrently with any other use of the same Map.
package archive
