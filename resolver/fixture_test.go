package resolver

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	archive "github.com/meigma/ffarchive/core"
	"github.com/meigma/ffarchive/core/testutil"
)

type zzzFile struct {
	name string
	data []byte
}

// buildZZZ lays out a ZZZ container: the directory followed by each
// file's data in order.
func buildZZZ(files ...zzzFile) []byte {
	header := 4
	for _, f := range files {
		header += zzzEntryHeaderSize + len(f.name)
	}

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(files))) //nolint:gosec // test data is small
	off := int64(header)
	for _, f := range files {
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(f.name))) //nolint:gosec // test data is small
		buf.WriteString(f.name)
		_ = binary.Write(&buf, binary.LittleEndian, off)
		_ = binary.Write(&buf, binary.LittleEndian, uint32(len(f.data))) //nolint:gosec // test data is small
		off += int64(len(f.data))
	}
	for _, f := range files {
		buf.Write(f.data)
	}
	return buf.Bytes()
}

// gameFixture is a synthetic installation:
//   - main.zzz holds readme.txt and the field archive
//   - data/lang-en/menu.{fi,fl,fs} are loose
//   - data/lang-en/movies is a plain directory
type gameFixture struct {
	dir    string
	readme []byte
	field  map[string][]byte
	menu   map[string][]byte
	movies map[string][]byte
}

func newGameFixture(t *testing.T) *gameFixture {
	t.Helper()

	g := &gameFixture{
		dir:    t.TempDir(),
		readme: []byte("final fantasy viii\n"),
		field: map[string][]byte{
			"field/mapdata/bg.map":  bytes.Repeat([]byte("tile"), 300),
			"field/model/chara.one": bytes.Repeat([]byte("squall-"), 120),
			"field/script.dat":      []byte("jsm script"),
		},
		menu: map[string][]byte{
			"menu/font.tex": bytes.Repeat([]byte{0x10, 0x20, 0x30}, 200),
			"menu/text.msd": []byte("Draw\x00Magic\x00"),
		},
		movies: map[string][]byte{
			"intro.bik":   []byte("bik intro"),
			"sub/end.bik": []byte("bik ending"),
		},
	}

	var fb testutil.Builder
	fb.Add("field/mapdata/bg.map", archive.KindLZSS, g.field["field/mapdata/bg.map"])
	fb.Add("field/model/chara.one", archive.KindLZ4, g.field["field/model/chara.one"])
	fb.Add("field/script.dat", archive.KindNone, g.field["field/script.dat"])
	field, err := fb.Build()
	require.NoError(t, err)

	// field.fs goes last so its entries' regions run to the container end
	// once merged.
	g.write(t, "main.zzz", buildZZZ(
		zzzFile{name: "readme.txt", data: g.readme},
		zzzFile{name: `data\lang-en\field.fi`, data: field.FI},
		zzzFile{name: `data\lang-en\field.fl`, data: field.FL},
		zzzFile{name: `data\lang-en\field.fs`, data: field.FS},
	))

	var mb testutil.Builder
	mb.Add("menu/font.tex", archive.KindLZSS, g.menu["menu/font.tex"])
	mb.Add("menu/text.msd", archive.KindNone, g.menu["menu/text.msd"])
	menu, err := mb.Build()
	require.NoError(t, err)
	g.write(t, "data/lang-en/menu.fi", menu.FI)
	g.write(t, "data/lang-en/menu.fl", menu.FL)
	g.write(t, "data/lang-en/menu.fs", menu.FS)

	for name, data := range g.movies {
		g.write(t, "data/lang-en/movies/"+name, data)
	}
	return g
}

func (g *gameFixture) write(t *testing.T, rel string, data []byte) {
	t.Helper()
	p := filepath.Join(g.dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, data, 0o600))
}

func (g *gameFixture) registry(t *testing.T, opts ...Option) *Registry {
	t.Helper()
	r, err := New(g.dir, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}
