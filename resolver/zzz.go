package resolver

import (
	"bufio"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	archive "github.com/meigma/ffarchive/core"
)

// zzzEntryHeaderSize is the smallest encoded directory entry: name length,
// offset and size with an empty name.
const zzzEntryHeaderSize = 4 + 8 + 4

// ZZZEntry is one file stored in a ZZZ container. ZZZ containers store
// their files uncompressed with explicit sizes.
type ZZZEntry struct {
	Name   string
	Offset int64
	Size   int64
}

// Directory is the file table at the start of a ZZZ container.
//
// Unlike an archive.Map, offsets are 64-bit: ZZZ containers routinely
// exceed 2GB.
type Directory struct {
	entries []ZZZEntry
	index   map[string]int
	byName  []ZZZEntry
}

// ParseZZZ reads the directory of the ZZZ container src.
//
// The directory is a little-endian u32 entry count followed by, per
// entry, a u32 name length, the name, an i64 offset and a u32 size.
// Backslashes in names are normalized to forward slashes.
func ParseZZZ(src archive.ByteSource) (*Directory, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: container is nil", archive.ErrInvalidArgument)
	}
	r := bufio.NewReader(io.NewSectionReader(src, 0, src.Size()))

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("%w: zzz header: %w", archive.ErrStructure, err)
	}
	if int64(count) > (src.Size()-4)/zzzEntryHeaderSize {
		return nil, fmt.Errorf("%w: zzz declares %d entries in %d bytes", archive.ErrStructure, count, src.Size())
	}

	d := &Directory{
		entries: make([]ZZZEntry, 0, count),
		index:   make(map[string]int, count),
	}
	for i := range count {
		e, err := readZZZEntry(r, src.Size())
		if err != nil {
			return nil, fmt.Errorf("zzz entry %d: %w", i, err)
		}
		if _, dup := d.index[e.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate zzz entry %q", archive.ErrStructure, e.Name)
		}
		d.index[e.Name] = len(d.entries)
		d.entries = append(d.entries, e)
	}

	d.byName = slices.Clone(d.entries)
	slices.SortFunc(d.byName, func(a, b ZZZEntry) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), cmp.Compare(a.Offset, b.Offset))
	})
	return d, nil
}

func readZZZEntry(r io.Reader, containerSize int64) (ZZZEntry, error) {
	var nameLen uint32
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return ZZZEntry{}, structural(err)
	}
	if int64(nameLen) > containerSize {
		return ZZZEntry{}, fmt.Errorf("%w: name length %d", archive.ErrStructure, nameLen)
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return ZZZEntry{}, structural(err)
	}
	var loc struct {
		Offset int64
		Size   uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &loc); err != nil {
		return ZZZEntry{}, structural(err)
	}

	e := ZZZEntry{
		Name:   normalizePath(string(name)),
		Offset: loc.Offset,
		Size:   int64(loc.Size),
	}
	if e.Offset < 0 || e.Offset > containerSize-e.Size {
		return ZZZEntry{}, fmt.Errorf("%w: %q at %d+%d exceeds container of %d bytes",
			archive.ErrStructure, e.Name, e.Offset, e.Size, containerSize)
	}
	return e, nil
}

func structural(err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return fmt.Errorf("%w: %w", archive.ErrStructure, err)
}

// normalizePath converts a stored name to a slash-separated path.
func normalizePath(name string) string {
	return strings.TrimRight(strings.ReplaceAll(name, `\`, "/"), " \t\r\n\x00")
}

// Len returns the number of entries.
func (d *Directory) Len() int {
	return len(d.entries)
}

// Entries returns the entries sorted by name.
func (d *Directory) Entries() []ZZZEntry {
	return slices.Clone(d.byName)
}

// Lookup returns the entry stored under exactly name.
func (d *Directory) Lookup(name string) (ZZZEntry, bool) {
	i, ok := d.index[normalizePath(name)]
	if !ok {
		return ZZZEntry{}, false
	}
	return d.entries[i], true
}

// Find resolves name the way archive.Map.Find does: an exact match wins,
// otherwise the first entry in name order whose name contains name,
// ignoring case.
func (d *Directory) Find(name string) (ZZZEntry, bool) {
	if e, ok := d.Lookup(name); ok {
		return e, true
	}
	needle := strings.ToUpper(normalizePath(name))
	if strings.TrimSpace(needle) == "" {
		return ZZZEntry{}, false
	}
	for _, e := range d.byName {
		if strings.Contains(strings.ToUpper(e.Name), needle) {
			return e, true
		}
	}
	return ZZZEntry{}, false
}

// View returns an uncompressed range view of e inside src.
func (e ZZZEntry) View(src archive.ByteSource) *archive.RangeView {
	return archive.NewRangeView(src, e.Offset, e.Size)
}

// Map converts the directory to an archive.Map of uncompressed entries,
// so child archives can be merged into it. It fails with
// archive.ErrSizeOverflow when an offset or size does not fit a record.
func (d *Directory) Map(opts ...archive.Option) (*archive.Map, error) {
	m := archive.NewMap(len(d.entries), opts...)
	for _, e := range d.entries {
		r, err := archive.NewRecord(e.Offset, e.Size, archive.KindNone)
		if err != nil {
			return nil, fmt.Errorf("zzz entry %q: %w", e.Name, err)
		}
		if err := m.Add(e.Name, r); err != nil {
			return nil, err
		}
	}
	return m, nil
}
