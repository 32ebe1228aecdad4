package archive

import (
	"encoding/binary"
	"fmt"
	"io/fs"

	"github.com/meigma/ffarchive/core/internal/codec"
	"github.com/meigma/ffarchive/core/internal/sizing"
)

// Extract resolves name with Find and returns the decoded entry data read
// from container.
//
// If container is a *RangeView, the region is decoded first and entry
// offsets are taken relative to its start. An unresolved name returns an
// *fs.PathError wrapping ErrNotFound and leaves the map untouched.
func (m *Map) Extract(name string, container ByteSource) ([]byte, error) {
	if container == nil {
		return nil, &fs.PathError{Op: "extract", Path: name, Err: fmt.Errorf("%w: container is nil", ErrInvalidArgument)}
	}
	if isBlank(name) {
		return nil, &fs.PathError{Op: "extract", Path: name, Err: fmt.Errorf("%w: name is blank", ErrInvalidArgument)}
	}

	e, ok := m.Find(name)
	if !ok {
		m.log().Debug("entry not found", "name", name)
		return nil, &fs.PathError{Op: "extract", Path: name, Err: ErrNotFound}
	}

	src := container
	if view, ok := container.(*RangeView); ok {
		decoded, err := view.open(m.decoder)
		if err != nil {
			return nil, &fs.PathError{Op: "extract", Path: e.Name, Err: err}
		}
		src = decoded
	}

	data, err := m.ExtractEntry(e, src)
	if err != nil {
		return nil, &fs.PathError{Op: "extract", Path: e.Name, Err: err}
	}
	return data, nil
}

// ExtractEntry reads and decodes e from src, which must already be
// addressed the way e's offset is (decoded, zero-based). The on-disk size
// is inferred with RegionSize, falling back to the end of src.
func (m *Map) ExtractEntry(e Entry, src ByteSource) ([]byte, error) {
	size, ok := m.RegionSize(e)
	if !ok {
		size = src.Size() - int64(e.Offset)
	}
	return m.extractRegion(e, size, src)
}

// extractRegion reads the size bytes of e's region and decodes them.
func (m *Map) extractRegion(e Entry, size int64, src ByteSource) ([]byte, error) {
	m.log().Debug("extracting entry",
		"name", e.Name,
		"offset", e.Offset,
		"region", size,
		"size", e.UncompressedSize,
		"kind", e.Kind.String(),
	)

	if size < 0 || !sizing.InRange(int64(e.Offset), size, src.Size()) {
		return nil, fmt.Errorf("%w: region %d+%d exceeds container of %d bytes",
			ErrStructure, e.Offset, size, src.Size())
	}
	if m.maxEntrySize > 0 && (size > m.maxEntrySize || int64(e.UncompressedSize) > m.maxEntrySize) {
		return nil, fmt.Errorf("%w: entry exceeds %d bytes", ErrSizeOverflow, m.maxEntrySize)
	}

	raw, err := readRegion(src, int64(e.Offset), size)
	if err != nil {
		return nil, err
	}

	if e.Kind.Prefixed() {
		if len(raw) < codec.PrefixSize {
			return nil, fmt.Errorf("%w: region of %d bytes has no size prefix", ErrStructure, len(raw))
		}
		declared := int64(binary.LittleEndian.Uint32(raw))
		if size != declared+codec.PrefixSize {
			return nil, fmt.Errorf("%w: size prefix %d does not match region size %d",
				ErrStructure, declared, size)
		}
		raw = raw[codec.PrefixSize:]
	}

	return m.decoder.Decode(e.Kind, raw, int(e.UncompressedSize))
}
