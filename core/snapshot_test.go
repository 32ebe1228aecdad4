package archive

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/ffarchive/core/internal/index"
	"github.com/meigma/ffarchive/core/testutil"
)

func TestSnapshotRoundTrip(t *testing.T) {
	t.Parallel()

	c := buildContainer(t, func(b *testutil.Builder) {
		b.Add("data/a.bin", KindNone, []byte("alpha"))
		b.AddRegion("", Record{}, nil)
		b.Add("data/b.bin", KindLZSS, sampleContent("beta", 120))
		b.AddRegion("scene.lzs", Record{Offset: b.Offset(), UncompressedSize: 4, Kind: KindLZSS}, nil)
	})
	m, err := Load(c.FI, c.FL)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.WriteSnapshot(&buf, "file:main.fs"))

	restored, sourceID, err := ReadSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, "file:main.fs", sourceID)
	assert.Equal(t, m.Len(), restored.Len())
	assert.Equal(t, m.ByName(), restored.ByName())
	for i, e := range m.All() {
		assert.Equal(t, e, restored.At(i))
	}

	r, _ := restored.Lookup("scene.lzs")
	assert.Equal(t, KindLZSSLZSS, r.Kind, "restored kinds are not corrected twice")

	got, err := restored.Extract("b.bin", NewBytesSource(c.FS, "fs"))
	require.NoError(t, err)
	assert.Equal(t, sampleContent("beta", 120), got)
}

func TestSnapshotKeepsUnknownKinds(t *testing.T) {
	t.Parallel()

	c := buildContainer(t, func(b *testutil.Builder) {
		b.Add("data/a.bin", KindNone, []byte("alpha"))
		b.AddRegion("data/odd.bin", Record{Offset: b.Offset(), UncompressedSize: 4, Kind: 7}, []byte("odd!"))
	})
	m, err := Load(c.FI, c.FL)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.WriteSnapshot(&buf, "file:main.fs"))
	restored, _, err := ReadSnapshot(&buf)
	require.NoError(t, err)

	r, ok := restored.Lookup("data/odd.bin")
	require.True(t, ok)
	assert.Equal(t, Kind(7), r.Kind)

	src := NewBytesSource(c.FS, "fs")
	_, err = restored.Extract("odd.bin", src)
	require.ErrorIs(t, err, ErrStructure)
	got, err := restored.Extract("a.bin", src)
	require.NoError(t, err)
	assert.Equal(t, []byte("alpha"), got)
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, _, err := ReadSnapshot(bytes.NewReader([]byte("not a snapshot")))
	require.Error(t, err)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	_, _, err = ReadSnapshot(bytes.NewReader(enc.EncodeAll([]byte("not flatbuffers"), nil)))
	require.Error(t, err)
}

func TestReadSnapshotRejectsDuplicates(t *testing.T) {
	t.Parallel()

	raw := index.Encode("dup", []Entry{
		{Name: "a.bin", Record: Record{Offset: 0, UncompressedSize: 1}},
		{Name: "a.bin", Record: Record{Offset: 1, UncompressedSize: 1}},
	})
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)

	_, _, err = ReadSnapshot(bytes.NewReader(enc.EncodeAll(raw, nil)))
	require.ErrorIs(t, err, ErrStructure)
}
