package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMap(t *testing.T, entries ...Entry) *Map {
	t.Helper()
	m := NewMap(len(entries))
	for _, e := range entries {
		require.NoError(t, m.Add(e.Name, e.Record))
	}
	return m
}

func entry(name string, off, size int32, kind Kind) Entry {
	return Entry{Name: name, Record: Record{Offset: off, UncompressedSize: size, Kind: kind}}
}

func TestMapFilteredViews(t *testing.T) {
	t.Parallel()

	m := newTestMap(t,
		entry("c.bin", 400, 10, KindNone),
		entry("", 0, 0, KindNone),
		entry("a.bin", 250, 10, KindNone),
		entry("empty.bin", 100, 0, KindNone),
		entry("B.bin", 0, 10, KindNone),
	)

	assert.Equal(t, 5, m.Len(), "placeholders and empty entries still occupy a slot")
	assert.Equal(t, []string{"B.bin", "a.bin", "c.bin"}, m.Keys())

	byOffset := m.ByOffset()
	require.Len(t, byOffset, 3)
	assert.Equal(t, []int32{0, 250, 400}, []int32{byOffset[0].Offset, byOffset[1].Offset, byOffset[2].Offset})

	values := m.Values()
	require.Len(t, values, 3)
	assert.Equal(t, int32(0), values[0].Offset)

	assert.True(t, m.Contains("empty.bin"))
	assert.NotContains(t, m.Keys(), "empty.bin")
}

func TestMapViewsAreCopies(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, entry("a", 0, 1, KindNone), entry("b", 1, 1, KindNone))
	byName := m.ByName()
	byName[0].Name = "mutated"
	assert.Equal(t, "a", m.ByName()[0].Name)
}

func TestMapViewsRebuiltAfterAdd(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, entry("b", 10, 1, KindNone))
	assert.Equal(t, []string{"b"}, m.Keys())

	require.NoError(t, m.Add("a", Record{Offset: 0, UncompressedSize: 1}))
	assert.Equal(t, []string{"a", "b"}, m.Keys())
}

func TestMapOrdering(t *testing.T) {
	t.Parallel()

	m := newTestMap(t,
		entry("zeta", 50, 1, KindNone),
		entry("Alpha", 50, 1, KindNone),
		entry("beta", 10, 1, KindNone),
	)
	assert.Equal(t, []string{"Alpha", "beta", "zeta"}, m.Keys(), "names compare ordinally")

	byOffset := m.ByOffset()
	assert.Equal(t, "beta", byOffset[0].Name)
	assert.Equal(t, "Alpha", byOffset[1].Name, "equal offsets order by name")
	assert.Equal(t, "zeta", byOffset[2].Name)
}

func TestMapRegionSize(t *testing.T) {
	t.Parallel()

	m := newTestMap(t,
		entry("d", 400, 1, KindNone),
		entry("a", 0, 1, KindNone),
		entry("c", 250, 1, KindNone),
		entry("b", 100, 1, KindNone),
	)

	want := map[string]int64{"a": 100, "b": 150, "c": 150}
	for name, size := range want {
		e, ok := m.Find(name)
		require.True(t, ok)
		got, ok := m.RegionSize(e)
		require.True(t, ok, name)
		assert.Equal(t, size, got, name)
	}

	last, _ := m.Find("d")
	_, ok := m.RegionSize(last)
	assert.False(t, ok, "the entry with the largest offset has no successor")
}

func TestMapRegionSizeSharedOffset(t *testing.T) {
	t.Parallel()

	m := newTestMap(t,
		entry("alias1", 0, 1, KindNone),
		entry("alias2", 0, 1, KindNone),
		entry("next", 64, 1, KindNone),
	)
	e, _ := m.Find("alias2")
	size, ok := m.RegionSize(e)
	require.True(t, ok)
	assert.Equal(t, int64(64), size, "entries sharing an offset skip to the next larger offset")
}

func TestMapFind(t *testing.T) {
	t.Parallel()

	m := newTestMap(t,
		entry("data/field.fs", 0, 1, KindNone),
		entry("data/field.fi", 10, 1, KindNone),
		entry("menu/mngrp.bin", 20, 1, KindNone),
		entry("FIELD", 30, 0, KindNone),
	)

	tests := []struct {
		name   string
		query  string
		want   string
		wantOK bool
	}{
		{name: "exact match wins", query: "FIELD", want: "FIELD", wantOK: true},
		{name: "substring ignores case", query: "Field.FS", want: "data/field.fs", wantOK: true},
		{name: "first in name order", query: "field", want: "data/field.fi", wantOK: true},
		{name: "partial path", query: "mngrp", want: "menu/mngrp.bin", wantOK: true},
		{name: "no match", query: "world", wantOK: false},
		{name: "blank", query: "  ", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := m.Find(tt.query)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got.Name)
			}
		})
	}
}

func TestMapFindUppercaseQuery(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, entry("data/field.fs", 0, 1, KindNone))
	got, ok := m.Find("FIELD")
	require.True(t, ok)
	assert.Equal(t, "data/field.fs", got.Name)
}

func TestMapAdd(t *testing.T) {
	t.Parallel()

	m := NewMap(0)
	require.NoError(t, m.Add("name.bin  ", Record{Offset: 1, UncompressedSize: 2}))
	r, ok := m.Lookup("name.bin")
	require.True(t, ok, "trailing whitespace is trimmed")
	assert.Equal(t, int32(1), r.Offset)

	err := m.Add("name.bin", Record{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	err = m.Add("neg.bin", Record{Offset: -1})
	require.ErrorIs(t, err, ErrInvalidArgument)

	require.NoError(t, m.Add("", Record{}))
	require.NoError(t, m.Add(" ", Record{}), "placeholders never collide")
	assert.Equal(t, 3, m.Len())
}

func TestMapAll(t *testing.T) {
	t.Parallel()

	m := newTestMap(t, entry("b", 1, 1, KindNone), entry("", 0, 0, KindNone), entry("a", 0, 1, KindNone))
	var names []string
	for i, e := range m.All() {
		assert.Equal(t, m.At(i), e)
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"b", "", "a"}, names)

	for range m.All() {
		break
	}
}
