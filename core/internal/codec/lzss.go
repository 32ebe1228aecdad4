package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/ffarchive/core/internal/arctype"
)

// LZSS parameters used by the containers: a 4 KiB ring buffer that starts
// zero-filled with the write cursor at ringSize-maxMatch, 12-bit positions
// and 4-bit lengths biased by threshold+1.
const (
	ringSize  = 4096
	ringMask  = ringSize - 1
	maxMatch  = 18
	threshold = 2
	minMatch  = threshold + 1
	ringStart = ringSize - maxMatch
)

// PrefixSize is the width of the little-endian compressed-size prefix that
// precedes LZSS streams on disk.
const PrefixSize = 4

// DecodeLZSS decompresses a raw LZSS stream (no size prefix).
//
// When size > 0 the output is exactly size bytes and a stream that ends
// early is an error. When size == 0 the output size is unknown and decoding
// runs until the input is exhausted.
func DecodeLZSS(src []byte, size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: lzss: negative output size %d", arctype.ErrDecompression, size)
	}
	capacity := size
	if capacity == 0 {
		capacity = len(src) * 2
	}
	out := make([]byte, 0, capacity)
	full := func() bool { return size > 0 && len(out) >= size }

	var ring [ringSize]byte
	r := ringStart
	var flags uint
	i := 0
	for !full() {
		flags >>= 1
		if flags&0x100 == 0 {
			if i >= len(src) {
				break
			}
			flags = uint(src[i]) | 0xFF00
			i++
		}
		if flags&1 != 0 {
			if i >= len(src) {
				break
			}
			c := src[i]
			i++
			out = append(out, c)
			ring[r] = c
			r = (r + 1) & ringMask
			continue
		}
		if i+1 >= len(src) {
			if size > 0 {
				return nil, fmt.Errorf("%w: lzss: truncated reference at input byte %d", arctype.ErrDecompression, i)
			}
			break
		}
		b1, b2 := int(src[i]), int(src[i+1])
		i += 2
		pos := b1 | (b2&0xF0)<<4
		n := b2&0x0F + minMatch
		for k := 0; k < n && !full(); k++ {
			c := ring[(pos+k)&ringMask]
			out = append(out, c)
			ring[r] = c
			r = (r + 1) & ringMask
		}
	}

	if size > 0 && len(out) < size {
		return nil, fmt.Errorf("%w: lzss: stream ended after %d of %d bytes", arctype.ErrDecompression, len(out), size)
	}
	return out, nil
}

// SplitPrefix reads the 4-byte compressed-size prefix from src and returns
// the declared length and the stream that follows it.
// The stream is truncated to the declared length; a declared length larger
// than the available bytes is a structural error.
func SplitPrefix(src []byte) (int, []byte, error) {
	if len(src) < PrefixSize {
		return 0, nil, fmt.Errorf("%w: lzss: %d bytes is too short for a size prefix", arctype.ErrStructure, len(src))
	}
	n := binary.LittleEndian.Uint32(src[:PrefixSize])
	rest := src[PrefixSize:]
	if uint64(n) > uint64(len(rest)) {
		return 0, nil, fmt.Errorf("%w: lzss: prefix declares %d bytes, %d available", arctype.ErrStructure, n, len(rest))
	}
	return int(n), rest[:n], nil
}

// DecodeLZSSPrefixed decompresses a stream that carries its own
// compressed-size prefix. size has the same meaning as for DecodeLZSS.
func DecodeLZSSPrefixed(src []byte, size int) ([]byte, error) {
	_, stream, err := SplitPrefix(src)
	if err != nil {
		return nil, err
	}
	return DecodeLZSS(stream, size)
}
