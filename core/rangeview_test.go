package archive

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ffarchive/core/internal/codec"
)

func TestRangeViewReadAt(t *testing.T) {
	t.Parallel()

	src := NewBytesSource([]byte("0123456789"), "digits")
	v := NewRangeView(src, 2, 5)

	assert.Equal(t, int64(5), v.Size())
	assert.Equal(t, int64(5), v.DecodedLength())
	assert.Contains(t, v.SourceID(), "digits")

	got, err := io.ReadAll(io.NewSectionReader(v, 0, v.Size()))
	require.NoError(t, err)
	assert.Equal(t, "23456", string(got))

	buf := make([]byte, 4)
	n, err := v.ReadAt(buf, 3)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "56", string(buf[:n]))
}

func TestRangeViewOpen(t *testing.T) {
	t.Parallel()

	content := sampleContent("view", 200)
	stream := codec.PrefixLZSS(codec.EncodeLZSS(content))
	src := NewBytesSource(append([]byte{9, 9, 9}, stream...), "outer")

	v := &RangeView{Source: src, Offset: 3, Length: int64(len(stream)), Kind: KindLZSS, UncompressedLength: int64(len(content))}
	opened, err := v.open(nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), opened.Size())

	got := make([]byte, len(content))
	_, err = opened.ReadAt(got, 0)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestRangeViewValidation(t *testing.T) {
	t.Parallel()

	src := NewBytesSource(make([]byte, 20), "twenty")
	prefixed := make([]byte, 20)
	binary.LittleEndian.PutUint32(prefixed, 12)
	badPrefix := NewBytesSource(prefixed, "bad-prefix")

	tests := []struct {
		name    string
		view    *RangeView
		wantErr error
	}{
		{name: "nil view", view: nil, wantErr: ErrInvalidArgument},
		{name: "nil source", view: &RangeView{Length: 1}, wantErr: ErrInvalidArgument},
		{name: "negative offset", view: &RangeView{Source: src, Offset: -1, Length: 1}, wantErr: ErrStructure},
		{name: "past end", view: NewRangeView(src, 10, 11), wantErr: ErrStructure},
		{
			name:    "prefix disagrees with length",
			view:    &RangeView{Source: badPrefix, Length: 20, Kind: KindLZSS, UncompressedLength: 40},
			wantErr: ErrStructure,
		},
		{
			name:    "undecodable region",
			view:    &RangeView{Source: src, Length: 20, Kind: KindLZ4, UncompressedLength: 40},
			wantErr: ErrDecompression,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.view.open(nil)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
