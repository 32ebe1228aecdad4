package codec

import "encoding/binary"

// EncodeLZSS compresses data into a raw LZSS stream that DecodeLZSS
// reproduces exactly. It is a greedy reference encoder intended for
// fixtures and tooling, not for producing optimal output.
func EncodeLZSS(data []byte) []byte {
	var ring [ringSize]byte
	r := ringStart
	out := make([]byte, 0, len(data)+len(data)/8+1)

	flagPos := -1
	bit := uint(8)
	emit := func(literal bool, b ...byte) {
		if bit == 8 {
			out = append(out, 0)
			flagPos = len(out) - 1
			bit = 0
		}
		if literal {
			out[flagPos] |= 1 << bit
		}
		bit++
		out = append(out, b...)
	}
	push := func(c byte) {
		ring[r] = c
		r = (r + 1) & ringMask
	}

	for cur := 0; cur < len(data); {
		pos, length := longestMatch(&ring, r, data[cur:])
		if length < minMatch {
			emit(true, data[cur])
			push(data[cur])
			cur++
			continue
		}
		emit(false, byte(pos&0xFF), byte((pos>>4)&0xF0|(length-minMatch)))
		for k := range length {
			push(data[cur+k])
		}
		cur += length
	}
	return out
}

// longestMatch finds the ring position whose copy, as the decoder performs
// it starting with the write cursor at r, reproduces the longest prefix of
// ahead.
func longestMatch(ring *[ringSize]byte, r int, ahead []byte) (int, int) {
	limit := min(maxMatch, len(ahead))
	if limit < minMatch {
		return 0, 0
	}
	bestPos, bestLen := 0, 0
	for p := range ringSize {
		n := 0
		for n < limit {
			var c byte
			// Positions written earlier in this same copy hold lookahead bytes.
			if j := (p + n - r) & ringMask; j < n {
				c = ahead[j]
			} else {
				c = ring[(p+n)&ringMask]
			}
			if c != ahead[n] {
				break
			}
			n++
		}
		if n > bestLen {
			bestPos, bestLen = p, n
			if n == limit {
				break
			}
		}
	}
	return bestPos, bestLen
}

// PrefixLZSS returns stream preceded by its 4-byte little-endian length.
func PrefixLZSS(stream []byte) []byte {
	out := make([]byte, PrefixSize+len(stream))
	binary.LittleEndian.PutUint32(out, uint32(len(stream))) //nolint:gosec // fixture streams are far below 4 GiB
	copy(out[PrefixSize:], stream)
	return out
}
