package archive

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/meigma/ffarchive/core/internal/index"
	"github.com/meigma/ffarchive/core/internal/sizing"
)

// DefaultMaxSnapshotSize limits the decoded size of a snapshot read by
// ReadSnapshot (64MB).
const DefaultMaxSnapshotSize = 64 << 20

// WriteSnapshot writes every entry of m, placeholders included, as a
// zstd-compressed snapshot tagged with sourceID. Restoring it with
// ReadSnapshot yields an equivalent map without re-reading the index
// tables.
func (m *Map) WriteSnapshot(w io.Writer, sourceID string) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderConcurrency(1), zstd.WithLowerEncoderMem(true))
	if err != nil {
		return fmt.Errorf("create zstd encoder: %w", err)
	}
	if _, err := enc.Write(index.Encode(sourceID, m.entries)); err != nil {
		enc.Close()
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	m.log().Debug("wrote snapshot", "entries", len(m.entries), "source", sourceID)
	return nil
}

// ReadSnapshot restores a map written by WriteSnapshot. It returns the
// map together with the source identifier the snapshot was tagged with,
// so callers can check that the snapshot still describes their container.
//
// Snapshot entries are restored as written; the .lzs correction already
// applied when the original map was built is not repeated.
func ReadSnapshot(r io.Reader, opts ...Option) (*Map, string, error) {
	dec, err := zstd.NewReader(r,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(DefaultMaxSnapshotSize),
	)
	if err != nil {
		return nil, "", fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	data, err := sizing.ReadAllWithLimit(dec, DefaultMaxSnapshotSize, ErrSizeOverflow)
	if err != nil {
		return nil, "", fmt.Errorf("read snapshot: %w", err)
	}
	snap, err := index.Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("decode snapshot: %w", err)
	}

	m := NewMap(len(snap.Entries), opts...)
	for i, e := range snap.Entries {
		if e.Offset < 0 {
			return nil, "", fmt.Errorf("%w: snapshot entry %d has negative offset", ErrStructure, i)
		}
		if !m.insert(e.Name, e.Record) {
			return nil, "", fmt.Errorf("%w: duplicate entry %q", ErrStructure, e.Name)
		}
	}
	return m, snap.SourceID, nil
}
