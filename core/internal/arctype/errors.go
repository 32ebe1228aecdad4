package arctype

import (
	"errors"
	"fmt"
	"io/fs"
)

// Sentinel errors for archive operations.
var (
	// ErrInvalidArgument is returned when a required input is nil or blank.
	ErrInvalidArgument = errors.New("archive: invalid argument")

	// ErrStructure is returned when index or entry data is internally inconsistent.
	ErrStructure = errors.New("archive: structural integrity violation")

	// ErrDecompression is returned when decompression fails.
	ErrDecompression = errors.New("archive: decompression failed")

	// ErrSizeOverflow is returned when offsets or sizes leave their supported range.
	ErrSizeOverflow = errors.New("archive: size overflow")

	// ErrNotFound is returned when no entry matches a name.
	// It matches fs.ErrNotExist under errors.Is.
	ErrNotFound = fmt.Errorf("archive: entry not found: %w", fs.ErrNotExist)
)
