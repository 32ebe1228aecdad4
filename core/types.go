package archive

import "github.com/meigma/ffarchive/core/internal/arctype"

// Re-export types from internal/arctype for the public API.
type (
	// Kind identifies the compression applied to an entry or region.
	Kind = arctype.Kind

	// Record describes where an entry lives in its container and how it
	// is compressed.
	Record = arctype.Record

	// Entry pairs a name with its Record.
	Entry = arctype.Entry
)

// Re-export kind constants.
const (
	KindNone            = arctype.KindNone
	KindLZSS            = arctype.KindLZSS
	KindLZ4             = arctype.KindLZ4
	KindLZSSUnknownSize = arctype.KindLZSSUnknownSize
	KindLZSSLZSS        = arctype.KindLZSSLZSS
)

// RecordSize is the encoded size of one record table entry.
const RecordSize = arctype.RecordSize

// ParseKind parses a kind name such as "lzss" or "lz4".
var ParseKind = arctype.ParseKind

// Sentinel errors re-exported from internal/arctype.
var (
	// ErrInvalidArgument is returned when a required input is nil or blank.
	ErrInvalidArgument = arctype.ErrInvalidArgument

	// ErrStructure is returned when index or entry data is inconsistent:
	// table count mismatches, size prefix mismatches, unknown kinds,
	// negative offsets and regions outside their container.
	ErrStructure = arctype.ErrStructure

	// ErrDecompression is returned when an entry cannot be decoded.
	ErrDecompression = arctype.ErrDecompression

	// ErrSizeOverflow is returned when offsets or sizes leave their
	// supported range or exceed the configured entry size limit.
	ErrSizeOverflow = arctype.ErrSizeOverflow

	// ErrNotFound is returned when no entry matches a name.
	// It satisfies errors.Is(err, fs.ErrNotExist).
	ErrNotFound = arctype.ErrNotFound
)
