package codec

import (
	"fmt"

	"github.com/pierrec/lz4/v4"

	"github.com/meigma/ffarchive/core/internal/arctype"
)

const (
	// DefaultLZ4HeaderWidth is where LZ4 probing starts: the width of the
	// pre-header most containers put in front of the block.
	DefaultLZ4HeaderWidth = 12

	// DefaultLZ4MaxProbe bounds how far past DefaultLZ4HeaderWidth the
	// block start is searched for.
	DefaultLZ4MaxProbe = 64
)

// DecodeLZ4 decodes an LZ4 block of exactly size bytes that starts
// somewhere at or after DefaultLZ4HeaderWidth in src.
//
// Each candidate start offset is tried in increasing order; a candidate
// succeeds when the block decodes without error to exactly size bytes.
// maxProbe limits the number of extra bytes searched beyond the default
// width; a negative value searches to the end of src. It returns the
// decoded data and the offset at which the block was found.
func DecodeLZ4(src []byte, size, maxProbe int) ([]byte, int, error) {
	if size <= 0 {
		return nil, 0, fmt.Errorf("%w: lz4: output size %d is not positive", arctype.ErrDecompression, size)
	}
	last := len(src) - 1
	if maxProbe >= 0 {
		last = min(last, DefaultLZ4HeaderWidth+maxProbe)
	}
	dst := make([]byte, size)
	for off := DefaultLZ4HeaderWidth; off <= last; off++ {
		n, err := lz4.UncompressBlock(src[off:], dst)
		if err == nil && n == size {
			return dst, off, nil
		}
	}
	return nil, 0, fmt.Errorf("%w: lz4: no block start found in offsets %d..%d of %d bytes",
		arctype.ErrDecompression, DefaultLZ4HeaderWidth, last, len(src))
}
