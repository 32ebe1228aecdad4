package archive

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ffarchive/core/internal/codec"
	"github.com/meigma/ffarchive/core/testutil"
)

func buildContainer(t *testing.T, build func(b *testutil.Builder)) testutil.Container {
	t.Helper()
	var b testutil.Builder
	build(&b)
	c, err := b.Build()
	require.NoError(t, err)
	return c
}

func TestLoad(t *testing.T) {
	t.Parallel()

	c := buildContainer(t, func(b *testutil.Builder) {
		b.Add("data/a.bin", KindNone, []byte("alpha"))
		b.AddRegion("", Record{}, nil)
		b.Add("data/b.bin", KindLZSS, bytes.Repeat([]byte("beta"), 50))
	})

	m, err := Load(c.FI, c.FL)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len(), "one entry per record")
	assert.Equal(t, []string{"data/a.bin", "data/b.bin"}, m.Keys())

	r, ok := m.Lookup("data/b.bin")
	require.True(t, ok)
	assert.Equal(t, KindLZSS, r.Kind)
	assert.Equal(t, int32(5), r.Offset)
	assert.Equal(t, int32(200), r.UncompressedSize)
}

func TestLoadEmpty(t *testing.T) {
	t.Parallel()

	m, err := Load(nil, nil)
	require.NoError(t, err)
	assert.Zero(t, m.Len())
	assert.Empty(t, m.Keys())
}

func TestLoadStructureErrors(t *testing.T) {
	t.Parallel()

	c := buildContainer(t, func(b *testutil.Builder) {
		b.Add("a.bin", KindNone, []byte("a"))
		b.Add("b.bin", KindNone, []byte("b"))
	})
	dup := buildContainer(t, func(b *testutil.Builder) {
		b.Add("a.bin", KindNone, []byte("a"))
		b.Add("a.bin", KindNone, []byte("b"))
	})

	tests := []struct {
		name string
		fi   []byte
		fl   []byte
	}{
		{name: "partial record", fi: c.FI[:RecordSize+5], fl: c.FL},
		{name: "too few names", fi: c.FI, fl: []byte("a.bin\n")},
		{name: "too many names", fi: c.FI[:RecordSize], fl: c.FL},
		{name: "duplicate name", fi: dup.FI, fl: dup.FL},
		{name: "negative offset", fi: bytes.Repeat([]byte{0xFF}, RecordSize), fl: []byte("x\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(tt.fi, tt.fl)
			require.ErrorIs(t, err, ErrStructure)
		})
	}
}

func TestLoadCorrectsLZS(t *testing.T) {
	t.Parallel()

	c := buildContainer(t, func(b *testutil.Builder) {
		b.AddRegion("scene.lzs", Record{Offset: 0, UncompressedSize: 10, Kind: KindNone}, nil)
		b.AddRegion("battle/a0stg000.LZS", Record{Offset: 10, UncompressedSize: 10, Kind: KindLZSS}, nil)
		b.AddRegion("chara.lz4s", Record{Offset: 20, UncompressedSize: 10, Kind: KindLZ4}, nil)
		b.AddRegion("chara.one", Record{Offset: 30, UncompressedSize: 10, Kind: KindLZSS}, nil)
	})
	m, err := Load(c.FI, c.FL)
	require.NoError(t, err)

	tests := map[string]Kind{
		"scene.lzs":           KindLZSSUnknownSize,
		"battle/a0stg000.LZS": KindLZSSLZSS,
		"chara.lz4s":          KindLZ4,
		"chara.one":           KindLZSS,
	}
	for name, want := range tests {
		r, ok := m.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, want, r.Kind, name)
	}
}

func TestLoadRangeViews(t *testing.T) {
	t.Parallel()

	c := buildContainer(t, func(b *testutil.Builder) {
		b.Add("main.fs", KindNone, []byte("0123456789"))
		b.AddRegion("", Record{}, nil)
		b.Add("scene.out", KindLZSS, bytes.Repeat([]byte{7}, 64))
	})

	// fi stored uncompressed and fl stored as prefixed LZSS, back to back.
	flRegion := codec.PrefixLZSS(codec.EncodeLZSS(c.FL))
	var disk bytes.Buffer
	disk.Write(c.FI)
	disk.Write(flRegion)
	src := NewBytesSource(disk.Bytes(), "test")

	fi := NewRangeView(src, 0, int64(len(c.FI)))
	fl := &RangeView{
		Source:             src,
		Offset:             int64(len(c.FI)),
		Length:             int64(len(flRegion)),
		Kind:               KindLZSSUnknownSize,
		UncompressedLength: int64(len(c.FL)),
	}

	m, err := LoadRangeViews(fi, fl)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len(), "blank lines still take a record slot")
	assert.Equal(t, []string{"main.fs", "scene.out"}, m.Keys())
	r, ok := m.Lookup("scene.out")
	require.True(t, ok)
	assert.Equal(t, int32(10), r.Offset)
}

func TestLoadRangeViewsErrors(t *testing.T) {
	t.Parallel()

	c := buildContainer(t, func(b *testutil.Builder) {
		b.Add("a.bin", KindNone, []byte("a"))
		b.Add("b.bin", KindNone, []byte("b"))
	})
	fiSrc := NewBytesSource(c.FI, "fi")
	flSrc := NewBytesSource(c.FL, "fl")

	t.Run("nil view", func(t *testing.T) {
		t.Parallel()
		_, err := LoadRangeViews(nil, NewRangeView(flSrc, 0, flSrc.Size()))
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("name table ends early", func(t *testing.T) {
		t.Parallel()
		_, err := LoadRangeViews(NewRangeView(fiSrc, 0, fiSrc.Size()), NewRangeView(flSrc, 0, 7))
		require.ErrorIs(t, err, ErrStructure)
	})

	t.Run("declared length exceeds data", func(t *testing.T) {
		t.Parallel()
		fi := NewRangeView(fiSrc, 0, fiSrc.Size())
		fi.UncompressedLength = fiSrc.Size() + RecordSize
		_, err := LoadRangeViews(fi, NewRangeView(flSrc, 0, flSrc.Size()))
		require.ErrorIs(t, err, ErrStructure)
	})

	t.Run("view outside container", func(t *testing.T) {
		t.Parallel()
		_, err := LoadRangeViews(NewRangeView(fiSrc, 0, fiSrc.Size()+1), NewRangeView(flSrc, 0, flSrc.Size()))
		require.ErrorIs(t, err, ErrStructure)
	})

	t.Run("partial trailing record ignored", func(t *testing.T) {
		t.Parallel()
		padded := NewBytesSource(append(bytes.Clone(c.FI), 1, 2, 3), "padded")
		m, err := LoadRangeViews(NewRangeView(padded, 0, padded.Size()), NewRangeView(flSrc, 0, flSrc.Size()))
		require.NoError(t, err)
		assert.Equal(t, 2, m.Len())
	})
}
