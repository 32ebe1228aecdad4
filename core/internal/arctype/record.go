package arctype

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// RecordSize is the encoded size of one Record in a record table.
const RecordSize = 12

// Record describes one packed entry: where its data starts in the
// container, how large it is once decompressed, and how it is compressed.
//
// Layout (little-endian):
//
//	offset            int32
//	uncompressed size int32
//	kind              uint8   low byte of the third word
//	flags             uint24  remaining bytes of the third word
type Record struct {
	Offset           int32
	UncompressedSize int32
	Kind             Kind
	Flags            uint32
}

// DecodeRecord parses one record from the first RecordSize bytes of b.
// Unknown kinds are kept; they fail when the entry is decoded.
func DecodeRecord(b []byte) (Record, error) {
	if len(b) < RecordSize {
		return Record{}, fmt.Errorf("%w: record needs %d bytes, got %d", ErrStructure, RecordSize, len(b))
	}
	word := binary.LittleEndian.Uint32(b[8:12])
	r := Record{
		Offset:           int32(binary.LittleEndian.Uint32(b[0:4])), //nolint:gosec // two's complement reinterpretation
		UncompressedSize: int32(binary.LittleEndian.Uint32(b[4:8])), //nolint:gosec // two's complement reinterpretation
		Kind:             Kind(word & 0xFF),
		Flags:            word >> 8,
	}
	if r.Offset < 0 {
		return Record{}, fmt.Errorf("%w: negative offset %d", ErrStructure, r.Offset)
	}
	return r, nil
}

// Encode writes the record into the first RecordSize bytes of dst.
func (r Record) Encode(dst []byte) {
	binary.LittleEndian.PutUint32(dst[0:4], uint32(r.Offset))           //nolint:gosec // two's complement reinterpretation
	binary.LittleEndian.PutUint32(dst[4:8], uint32(r.UncompressedSize)) //nolint:gosec // two's complement reinterpretation
	binary.LittleEndian.PutUint32(dst[8:12], uint32(r.Kind)|r.Flags<<8)
}

// Placeholder reports whether the record marks a deleted or empty slot.
func (r Record) Placeholder() bool {
	return r.UncompressedSize <= 0
}

// Rebase returns a copy of r with base added to its offset.
// ok is false when the result is negative or overflows int32.
func (r Record) Rebase(base int64) (Record, bool) {
	off := int64(r.Offset) + base
	if off < 0 || off > math.MaxInt32 {
		return Record{}, false
	}
	r.Offset = int32(off)
	return r, true
}

// WithKind returns a copy of r using kind k.
func (r Record) WithKind(k Kind) Record {
	r.Kind = k
	return r
}

// Entry pairs a name with its record.
type Entry struct {
	Name string
	Record
}

// Visible reports whether the entry appears in filtered views:
// it has a non-blank name and a positive uncompressed size.
func (e Entry) Visible() bool {
	return strings.TrimSpace(e.Name) != "" && e.UncompressedSize > 0
}
