package codec

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ffarchive/core/internal/arctype"
)

func sampleData() []byte {
	var buf bytes.Buffer
	for i := range 200 {
		buf.WriteString("field/mapdata/")
		buf.WriteByte(byte('a' + i%26))
		buf.WriteString(".map\x00\x01\x02")
	}
	return buf.Bytes()
}

func TestLZSSRoundTrip(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "short literal", data: []byte("ab")},
		{name: "zeros match initial ring", data: make([]byte, 100)},
		{name: "run", data: bytes.Repeat([]byte{'x'}, 1000)},
		{name: "mixed", data: sampleData()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			stream := EncodeLZSS(tt.data)

			known, err := DecodeLZSS(stream, len(tt.data))
			if len(tt.data) == 0 {
				// size 0 means unknown, so the result is decode-to-end.
				require.NoError(t, err)
				assert.Empty(t, known)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.data, known)

			unknown, err := DecodeLZSS(stream, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.data, unknown)
		})
	}
}

func TestLZSSCompresses(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte("abcdefgh"), 256)
	stream := EncodeLZSS(data)
	assert.Less(t, len(stream), len(data)/4)
}

func TestDecodeLZSSTruncated(t *testing.T) {
	t.Parallel()
	data := sampleData()
	stream := EncodeLZSS(data)

	_, err := DecodeLZSS(stream[:len(stream)/2], len(data))
	require.ErrorIs(t, err, arctype.ErrDecompression)
}

func TestDecodeLZSSStopsAtDeclaredSize(t *testing.T) {
	t.Parallel()
	data := []byte("hello, world")
	stream := EncodeLZSS(data)

	out, err := DecodeLZSS(stream, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), out)
}

func TestDecodeLZSSPrefixed(t *testing.T) {
	t.Parallel()
	data := sampleData()
	prefixed := PrefixLZSS(EncodeLZSS(data))

	out, err := DecodeLZSSPrefixed(prefixed, 0)
	require.NoError(t, err)
	assert.Equal(t, data, out)

	t.Run("too short", func(t *testing.T) {
		t.Parallel()
		_, err := DecodeLZSSPrefixed([]byte{1, 2}, 0)
		require.ErrorIs(t, err, arctype.ErrStructure)
	})

	t.Run("prefix exceeds data", func(t *testing.T) {
		t.Parallel()
		bad := bytes.Clone(prefixed)
		binary.LittleEndian.PutUint32(bad, uint32(len(prefixed)))
		_, err := DecodeLZSSPrefixed(bad, 0)
		require.ErrorIs(t, err, arctype.ErrStructure)
	})
}

func compressLZ4(t *testing.T, data []byte) []byte {
	t.Helper()
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, dst, nil)
	require.NoError(t, err)
	require.Positive(t, n, "data must be compressible")
	return dst[:n]
}

func TestDecodeLZ4Probe(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte("abcdefgh"), 64)
	block := compressLZ4(t, data)

	// Twelve header bytes, two stray zero bytes, then the block at 14.
	src := make([]byte, 0, 14+len(block))
	src = append(src, bytes.Repeat([]byte{0xAB}, DefaultLZ4HeaderWidth)...)
	src = append(src, 0x00, 0x00)
	src = append(src, block...)

	direct := make([]byte, len(data))
	n, err := lz4.UncompressBlock(src[14:], direct)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	out, off, err := DecodeLZ4(src, len(data), DefaultLZ4MaxProbe)
	require.NoError(t, err)
	assert.Equal(t, 14, off)
	assert.Equal(t, direct, out)
	assert.Equal(t, data, out)
}

func TestDecodeLZ4AtDefaultWidth(t *testing.T) {
	t.Parallel()
	data := bytes.Repeat([]byte("0123456789"), 50)
	src := append(make([]byte, DefaultLZ4HeaderWidth), compressLZ4(t, data)...)

	out, off, err := DecodeLZ4(src, len(data), 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLZ4HeaderWidth, off)
	assert.Equal(t, data, out)
}

func TestDecodeLZ4Exhausted(t *testing.T) {
	t.Parallel()

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()
		src := bytes.Repeat([]byte{0xFF}, 40)
		_, _, err := DecodeLZ4(src, 100, -1)
		require.ErrorIs(t, err, arctype.ErrDecompression)
	})

	t.Run("block beyond probe limit", func(t *testing.T) {
		t.Parallel()
		data := bytes.Repeat([]byte("abcdefgh"), 64)
		src := append(make([]byte, DefaultLZ4HeaderWidth+10), compressLZ4(t, data)...)
		_, _, err := DecodeLZ4(src, len(data), 5)
		require.ErrorIs(t, err, arctype.ErrDecompression)
	})

	t.Run("input shorter than header", func(t *testing.T) {
		t.Parallel()
		_, _, err := DecodeLZ4(make([]byte, 8), 10, -1)
		require.ErrorIs(t, err, arctype.ErrDecompression)
	})

	t.Run("non-positive size", func(t *testing.T) {
		t.Parallel()
		_, _, err := DecodeLZ4(make([]byte, 40), 0, -1)
		require.ErrorIs(t, err, arctype.ErrDecompression)
	})
}

func TestDecodeDispatch(t *testing.T) {
	t.Parallel()
	data := sampleData()
	lzss := EncodeLZSS(data)
	nested := PrefixLZSS(EncodeLZSS(data))
	outer := EncodeLZSS(nested)
	lz4src := append(make([]byte, DefaultLZ4HeaderWidth), compressLZ4(t, data)...)

	tests := []struct {
		name string
		kind arctype.Kind
		raw  []byte
		size int
	}{
		{name: "none", kind: arctype.KindNone, raw: data, size: len(data)},
		{name: "lzss", kind: arctype.KindLZSS, raw: lzss, size: len(data)},
		{name: "lzss unknown size", kind: arctype.KindLZSSUnknownSize, raw: lzss, size: 0},
		{name: "lzss lzss", kind: arctype.KindLZSSLZSS, raw: outer, size: len(nested)},
		{name: "lz4", kind: arctype.KindLZ4, raw: lz4src, size: len(data)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			out, err := Decode(tt.kind, tt.raw, tt.size)
			require.NoError(t, err)
			assert.Equal(t, data, out)
		})
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	t.Parallel()
	_, err := NewDecoder().Decode(arctype.Kind(9), []byte{1}, 1)
	require.ErrorIs(t, err, arctype.ErrStructure)
}

func TestDecoderMaxProbe(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultLZ4MaxProbe, NewDecoder().MaxProbe())
	assert.Equal(t, 3, NewDecoder(WithMaxProbe(3)).MaxProbe())
	assert.Equal(t, -1, NewDecoder(WithMaxProbe(-1)).MaxProbe())
}
