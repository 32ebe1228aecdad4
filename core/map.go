package archive

import (
	"cmp"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync/atomic"
	"unicode"

	"github.com/meigma/ffarchive/core/internal/codec"
)

// Map indexes the entries of one container by name.
//
// Entries keep their index-table order. Names are stored as given (minus
// trailing whitespace) and are unique; entries with a blank name are kept
// as unnamed placeholders. The filtered views (ByName, ByOffset, Keys,
// Values) skip placeholders and entries with a zero uncompressed size.
type Map struct {
	entries []Entry
	index   map[string]int
	views   atomic.Pointer[mapViews]

	decoder      *codec.Decoder
	maxProbe     int
	maxProbeSet  bool
	maxEntrySize int64
	logger       *slog.Logger
}

// mapViews caches the sorted filtered views. It is dropped by every
// mutation and rebuilt on the next read.
type mapViews struct {
	byName   []Entry
	byOffset []Entry
}

// NewMap returns an empty Map with room for capacity entries, for
// building a map incrementally with Add.
func NewMap(capacity int, opts ...Option) *Map {
	m := &Map{
		entries: make([]Entry, 0, capacity),
		index:   make(map[string]int, capacity),
	}
	m.applyOptions(opts)
	return m
}

// log returns the logger, falling back to a discard logger if nil.
func (m *Map) log() *slog.Logger {
	if m.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.logger
}

// normalizeName strips the trailing whitespace index tables carry.
func normalizeName(name string) string {
	return strings.TrimRightFunc(name, unicode.IsSpace)
}

func isBlank(name string) bool {
	return strings.TrimSpace(name) == ""
}

// Add inserts one entry. A blank name adds an unnamed placeholder.
// Adding a name that already exists is an error; use Merge to overwrite.
func (m *Map) Add(name string, r Record) error {
	name = normalizeName(name)
	if r.Offset < 0 {
		return fmt.Errorf("%w: %q has negative offset %d", ErrInvalidArgument, name, r.Offset)
	}
	if !m.insert(name, r) {
		return fmt.Errorf("%w: duplicate entry %q", ErrInvalidArgument, name)
	}
	m.invalidate()
	return nil
}

// insert appends an entry, reporting false if the name is taken.
func (m *Map) insert(name string, r Record) bool {
	if !isBlank(name) {
		if _, ok := m.index[name]; ok {
			return false
		}
		m.index[name] = len(m.entries)
	}
	m.entries = append(m.entries, Entry{Name: name, Record: r})
	return true
}

// put inserts or overwrites a named entry.
func (m *Map) put(name string, r Record) {
	if i, ok := m.index[name]; ok {
		m.entries[i].Record = r
		return
	}
	m.insert(name, r)
}

func (m *Map) invalidate() {
	m.views.Store(nil)
}

// Len returns the number of entries, including placeholders.
func (m *Map) Len() int {
	return len(m.entries)
}

// At returns the entry at raw index position i.
func (m *Map) At(i int) Entry {
	return m.entries[i]
}

// All returns an iterator over every entry in index order, including
// placeholders.
func (m *Map) All() iter.Seq2[int, Entry] {
	return func(yield func(int, Entry) bool) {
		for i, e := range m.entries {
			if !yield(i, e) {
				return
			}
		}
	}
}

// Lookup returns the record stored under exactly name.
func (m *Map) Lookup(name string) (Record, bool) {
	i, ok := m.index[name]
	if !ok {
		return Record{}, false
	}
	return m.entries[i].Record, true
}

// Contains reports whether an entry is stored under exactly name.
func (m *Map) Contains(name string) bool {
	_, ok := m.index[name]
	return ok
}

// Find resolves name to an entry. An exact match wins; otherwise the
// first entry in name order whose name contains name, ignoring case.
func (m *Map) Find(name string) (Entry, bool) {
	if i, ok := m.index[name]; ok {
		return m.entries[i], true
	}
	if isBlank(name) {
		return Entry{}, false
	}
	needle := strings.ToUpper(name)
	for _, e := range m.loadViews().byName {
		if strings.Contains(strings.ToUpper(e.Name), needle) {
			return e, true
		}
	}
	return Entry{}, false
}

// RegionSize infers the on-disk size of e from the gap to the entry with
// the next larger offset. ok is false when no entry follows e, in which
// case e runs to the end of its container.
func (m *Map) RegionSize(e Entry) (size int64, ok bool) {
	byOffset := m.loadViews().byOffset
	i := sort.Search(len(byOffset), func(i int) bool {
		return byOffset[i].Offset > e.Offset
	})
	if i == len(byOffset) {
		return 0, false
	}
	return int64(byOffset[i].Offset) - int64(e.Offset), true
}

// ByName returns the filtered entries sorted by name.
func (m *Map) ByName() []Entry {
	return slices.Clone(m.loadViews().byName)
}

// ByOffset returns the filtered entries sorted by offset, then name.
func (m *Map) ByOffset() []Entry {
	return slices.Clone(m.loadViews().byOffset)
}

// Keys returns the names of the filtered entries in name order.
func (m *Map) Keys() []string {
	byName := m.loadViews().byName
	keys := make([]string, len(byName))
	for i, e := range byName {
		keys[i] = e.Name
	}
	return keys
}

// Values returns the records of the filtered entries in name order.
func (m *Map) Values() []Record {
	byName := m.loadViews().byName
	values := make([]Record, len(byName))
	for i, e := range byName {
		values[i] = e.Record
	}
	return values
}

func (m *Map) loadViews() *mapViews {
	if v := m.views.Load(); v != nil {
		return v
	}
	v := m.buildViews()
	m.views.CompareAndSwap(nil, v)
	return v
}

func (m *Map) buildViews() *mapViews {
	filtered := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		if e.Visible() {
			filtered = append(filtered, e)
		}
	}

	byName := slices.Clone(filtered)
	slices.SortFunc(byName, func(a, b Entry) int {
		return cmp.Or(
			strings.Compare(a.Name, b.Name),
			compareFold(a.Name, b.Name),
		)
	})

	byOffset := filtered
	slices.SortFunc(byOffset, func(a, b Entry) int {
		return cmp.Or(
			cmp.Compare(a.Offset, b.Offset),
			strings.Compare(a.Name, b.Name),
			compareFold(a.Name, b.Name),
		)
	})

	return &mapViews{byName: byName, byOffset: byOffset}
}

// compareFold compares two names ordinally after upper-casing them.
func compareFold(a, b string) int {
	return strings.Compare(strings.ToUpper(a), strings.ToUpper(b))
}

// correctLZS re-tags entries named *.lzs. Their index records under-report
// the compression: the stored data is an LZSS stream even when the record
// says None, and an LZSS record actually holds a doubly compressed stream.
func (m *Map) correctLZS() {
	for i, e := range m.entries {
		if !strings.HasSuffix(strings.ToLower(e.Name), "lzs") {
			continue
		}
		switch e.Kind {
		case KindNone:
			m.entries[i] = Entry{Name: e.Name, Record: e.WithKind(KindLZSSUnknownSize)}
		case KindLZSS:
			m.entries[i] = Entry{Name: e.Name, Record: e.WithKind(KindLZSSLZSS)}
		}
	}
	m.invalidate()
}
