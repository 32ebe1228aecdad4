// Package testutil builds synthetic containers for tests.
package testutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/meigma/ffarchive/core/internal/arctype"
	"github.com/meigma/ffarchive/core/internal/codec"
)

// LZ4Pad is the filler placed between the standard LZ4 pre-header and
// the block by Region. Two zero bytes make probes at the first two
// candidate offsets fail, so the block is found at offset 14.
var LZ4Pad = []byte{0x00, 0x00}

// Region returns content encoded as it is stored on disk for kind.
//
// LZSS family regions carry the 4-byte size prefix. LZ4 regions carry a
// 12-byte pre-header followed by LZ4Pad. For KindLZSSLZSS the record's
// uncompressed size must be the length of the inner prefixed stream;
// InnerSize reports it.
func Region(kind arctype.Kind, content []byte) ([]byte, error) {
	switch kind {
	case arctype.KindNone:
		return bytes.Clone(content), nil
	case arctype.KindLZSS, arctype.KindLZSSUnknownSize:
		return codec.PrefixLZSS(codec.EncodeLZSS(content)), nil
	case arctype.KindLZSSLZSS:
		inner := codec.PrefixLZSS(codec.EncodeLZSS(content))
		return codec.PrefixLZSS(codec.EncodeLZSS(inner)), nil
	case arctype.KindLZ4:
		block, err := CompressLZ4(content)
		if err != nil {
			return nil, err
		}
		region := make([]byte, codec.DefaultLZ4HeaderWidth, codec.DefaultLZ4HeaderWidth+len(LZ4Pad)+len(block))
		for i := range region {
			region[i] = 0xAB
		}
		region = append(region, LZ4Pad...)
		return append(region, block...), nil
	default:
		return nil, fmt.Errorf("testutil: unsupported kind %s", kind)
	}
}

// InnerSize returns the size recorded for content stored as kind.
func InnerSize(kind arctype.Kind, content []byte) int32 {
	if kind == arctype.KindLZSSLZSS {
		return int32(len(codec.PrefixLZSS(codec.EncodeLZSS(content)))) //nolint:gosec // test data is small
	}
	return int32(len(content)) //nolint:gosec // test data is small
}

// CompressLZ4 compresses content as a raw LZ4 block.
func CompressLZ4(content []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(content)))
	n, err := lz4.CompressBlock(content, dst, nil)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("testutil: %d bytes are not compressible as an lz4 block", len(content))
	}
	return dst[:n], nil
}

// Container is a synthetic archive: a record table, a name table and
// the data they describe.
type Container struct {
	FI []byte
	FL []byte
	FS []byte
}

// Builder assembles a Container entry by entry. Regions are laid out in
// the order they are added.
type Builder struct {
	fi    bytes.Buffer
	names []string
	fs    bytes.Buffer
	err   error
}

// Add stores content under name, encoded as kind.
func (b *Builder) Add(name string, kind arctype.Kind, content []byte) *Builder {
	if b.err != nil {
		return b
	}
	region, err := Region(kind, content)
	if err != nil {
		b.err = err
		return b
	}
	return b.AddRegion(name, arctype.Record{
		Offset:           int32(b.fs.Len()), //nolint:gosec // test data is small
		UncompressedSize: InnerSize(kind, content),
		Kind:             kind,
	}, region)
}

// AddRegion appends region bytes and a record for them as given.
func (b *Builder) AddRegion(name string, r arctype.Record, region []byte) *Builder {
	var rec [arctype.RecordSize]byte
	r.Encode(rec[:])
	b.fi.Write(rec[:])
	b.names = append(b.names, name)
	b.fs.Write(region)
	return b
}

// Offset returns the offset the next added region will start at.
func (b *Builder) Offset() int32 {
	return int32(b.fs.Len()) //nolint:gosec // test data is small
}

// Build returns the assembled container.
func (b *Builder) Build() (Container, error) {
	if b.err != nil {
		return Container{}, b.err
	}
	fl := strings.Join(b.names, "\r\n")
	if len(b.names) > 0 {
		fl += "\r\n"
	}
	return Container{
		FI: bytes.Clone(b.fi.Bytes()),
		FL: []byte(fl),
		FS: bytes.Clone(b.fs.Bytes()),
	}, nil
}

// MockByteSource implements a simple in-memory byte source for tests.
type MockByteSource struct {
	data     []byte
	sourceID string
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	sum := sha256.Sum256(data)
	return &MockByteSource{
		data:     data,
		sourceID: "mock:" + hex.EncodeToString(sum[:]),
	}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// SourceID returns a stable identifier for the source data.
func (m *MockByteSource) SourceID() string {
	return m.sourceID
}
