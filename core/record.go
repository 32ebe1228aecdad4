package archive

import (
	"fmt"

	"github.com/meigma/ffarchive/core/internal/sizing"
)

// NewRecord builds a record from 64-bit container coordinates. It fails
// with ErrInvalidArgument for negative values and with ErrSizeOverflow
// when offset or size does not fit the 32-bit record fields.
func NewRecord(offset, size int64, kind Kind) (Record, error) {
	if offset < 0 || size < 0 {
		return Record{}, fmt.Errorf("%w: negative record %d+%d", ErrInvalidArgument, offset, size)
	}
	off, err := sizing.ToInt32(offset, ErrSizeOverflow)
	if err != nil {
		return Record{}, fmt.Errorf("record offset %d: %w", offset, err)
	}
	n, err := sizing.ToInt32(size, ErrSizeOverflow)
	if err != nil {
		return Record{}, fmt.Errorf("record size %d: %w", size, err)
	}
	return Record{Offset: off, UncompressedSize: n, Kind: kind}, nil
}
