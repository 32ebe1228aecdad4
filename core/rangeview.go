package archive

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/meigma/ffarchive/core/internal/codec"
	"github.com/meigma/ffarchive/core/internal/sizing"
)

// RangeView is a sub-region of a container that may be compressed on its
// own, such as an index table or a nested archive's data file.
//
// A RangeView is itself a ByteSource over the raw (still compressed) bytes
// of the region. Passing one to Map.Extract decompresses the region first
// and addresses entries relative to its start.
type RangeView struct {
	// Source is the container holding the region.
	Source ByteSource

	// Offset is where the region starts in Source.
	Offset int64

	// Length is the on-disk length of the region.
	Length int64

	// Kind is how the region as a whole is compressed.
	Kind Kind

	// UncompressedLength is the decoded length of the region.
	// Zero means unknown, or equal to Length for uncompressed regions.
	UncompressedLength int64
}

var _ ByteSource = (*RangeView)(nil)

// NewRangeView returns an uncompressed view of [off, off+length) in src.
func NewRangeView(src ByteSource, off, length int64) *RangeView {
	return &RangeView{Source: src, Offset: off, Length: length, Kind: KindNone}
}

// ReadAt reads raw region bytes; off is relative to the region start.
func (v *RangeView) ReadAt(p []byte, off int64) (int, error) {
	return io.NewSectionReader(v.Source, v.Offset, v.Length).ReadAt(p, off)
}

// Size returns the on-disk length of the region.
func (v *RangeView) Size() int64 {
	return v.Length
}

// SourceID identifies the region within its container.
func (v *RangeView) SourceID() string {
	return fmt.Sprintf("%s|range:%d+%d|%s", v.Source.SourceID(), v.Offset, v.Length, v.Kind)
}

// DecodedLength returns the length of the region once decoded:
// UncompressedLength when known, otherwise Length.
func (v *RangeView) DecodedLength() int64 {
	if v.UncompressedLength > 0 {
		return v.UncompressedLength
	}
	return v.Length
}

// validate checks that the view describes a readable region.
func (v *RangeView) validate() error {
	if v == nil || v.Source == nil {
		return fmt.Errorf("%w: range view has no source", ErrInvalidArgument)
	}
	if v.Offset < 0 || v.Length < 0 || v.UncompressedLength < 0 {
		return fmt.Errorf("%w: range view %d+%d has negative bounds", ErrStructure, v.Offset, v.Length)
	}
	if !sizing.InRange(v.Offset, v.Length, v.Source.Size()) {
		return fmt.Errorf("%w: range view %d+%d exceeds container of %d bytes",
			ErrStructure, v.Offset, v.Length, v.Source.Size())
	}
	return nil
}

// open returns a zero-based ByteSource over the decoded region.
// Uncompressed regions are read in place; compressed ones are read and
// decoded into memory.
func (v *RangeView) open(dec *codec.Decoder) (ByteSource, error) {
	if err := v.validate(); err != nil {
		return nil, err
	}
	if v.Kind == KindNone {
		return &sectionSource{
			section: io.NewSectionReader(v.Source, v.Offset, v.Length),
			id:      v.SourceID(),
		}, nil
	}

	size, err := sizing.ToInt(v.Length, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	raw, err := readRegion(v.Source, v.Offset, int64(size))
	if err != nil {
		return nil, err
	}
	if v.Kind.Prefixed() {
		if len(raw) < codec.PrefixSize {
			return nil, fmt.Errorf("%w: range view of %d bytes has no size prefix", ErrStructure, len(raw))
		}
		declared := int64(binary.LittleEndian.Uint32(raw))
		if declared != v.Length-codec.PrefixSize {
			return nil, fmt.Errorf("%w: range view size prefix %d != %d",
				ErrStructure, declared, v.Length-codec.PrefixSize)
		}
		raw = raw[codec.PrefixSize:]
	}
	outSize, err := sizing.ToInt(v.UncompressedLength, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	data, err := dec.Decode(v.Kind, raw, outSize)
	if err != nil {
		return nil, fmt.Errorf("decode range view %d+%d: %w", v.Offset, v.Length, err)
	}
	return NewBytesSource(data, v.SourceID()), nil
}

// sectionSource adapts an io.SectionReader to ByteSource.
type sectionSource struct {
	section *io.SectionReader
	id      string
}

func (s *sectionSource) ReadAt(p []byte, off int64) (int, error) {
	return s.section.ReadAt(p, off)
}

func (s *sectionSource) Size() int64 {
	return s.section.Size()
}

func (s *sectionSource) SourceID() string {
	return s.id
}
