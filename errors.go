package ffarchive

import (
	archive "github.com/meigma/ffarchive/core"
	"github.com/meigma/ffarchive/resolver"
)

// Errors re-exported from core.
var (
	// ErrInvalidArgument is returned when a required input is nil or blank.
	ErrInvalidArgument = archive.ErrInvalidArgument

	// ErrStructure is returned when index or entry data is inconsistent.
	ErrStructure = archive.ErrStructure

	// ErrDecompression is returned when an entry cannot be decoded.
	ErrDecompression = archive.ErrDecompression

	// ErrSizeOverflow is returned when offsets or sizes leave their range.
	ErrSizeOverflow = archive.ErrSizeOverflow

	// ErrNotFound is returned when no entry matches a name.
	ErrNotFound = archive.ErrNotFound
)

// Errors re-exported from resolver.
var (
	// ErrUnknownArchive is returned for a logical name with no definition.
	ErrUnknownArchive = resolver.ErrUnknownArchive
)
