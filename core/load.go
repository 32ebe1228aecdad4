package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meigma/ffarchive/core/internal/arctype"
	"github.com/meigma/ffarchive/core/internal/sizing"
)

// Load builds a Map from a record table (fi) and a name table (fl) held in
// memory. The name table holds one name per line; each name pairs with the
// record at the same position. The two tables must describe the same
// number of entries.
func Load(fi, fl []byte, opts ...Option) (*Map, error) {
	if len(fi)%RecordSize != 0 {
		return nil, fmt.Errorf("%w: record table length %d is not a multiple of %d",
			ErrStructure, len(fi), RecordSize)
	}
	names := splitNames(fl)
	count := len(fi) / RecordSize
	if len(names) != count {
		return nil, fmt.Errorf("%w: name table has %d names, record table has %d records",
			ErrStructure, len(names), count)
	}

	m := NewMap(count, opts...)
	for i, name := range names {
		r, err := arctype.DecodeRecord(fi[i*RecordSize:])
		if err != nil {
			return nil, fmt.Errorf("record %d (%q): %w", i, name, err)
		}
		if !m.insert(normalizeName(name), r) {
			return nil, fmt.Errorf("%w: duplicate entry %q", ErrStructure, name)
		}
	}
	m.correctLZS()
	return m, nil
}

// splitNames splits a name table into lines. A trailing newline does not
// start another name.
func splitNames(fl []byte) []string {
	if len(fl) == 0 {
		return nil
	}
	text := strings.TrimSuffix(string(fl), "\n")
	return strings.Split(text, "\n")
}

// LoadRangeViews builds a Map from a record table region (fi) and a name
// table region (fl), each of which may be compressed on its own.
//
// The number of entries is the decoded record region length divided by
// RecordSize. Each record consumes one line of the name table, so blank
// lines still occupy a record slot.
func LoadRangeViews(fi, fl *RangeView, opts ...Option) (*Map, error) {
	if fi == nil || fl == nil {
		return nil, fmt.Errorf("%w: record and name range views are required", ErrInvalidArgument)
	}
	m := NewMap(0, opts...)

	flSrc, err := fl.open(m.decoder)
	if err != nil {
		return nil, fmt.Errorf("open name table: %w", err)
	}
	fiSrc, err := fi.open(m.decoder)
	if err != nil {
		return nil, fmt.Errorf("open record table: %w", err)
	}

	fiLen := fi.DecodedLength()
	if fiLen > fiSrc.Size() {
		return nil, fmt.Errorf("%w: record table declares %d bytes, %d available",
			ErrStructure, fiLen, fiSrc.Size())
	}
	count := fiLen / RecordSize
	tableLen, err := sizing.ToInt(count*RecordSize, ErrSizeOverflow)
	if err != nil {
		return nil, err
	}
	table, err := readRegion(fiSrc, 0, int64(tableLen))
	if err != nil {
		return nil, fmt.Errorf("read record table: %w", err)
	}

	names := bufio.NewReader(io.NewSectionReader(flSrc, 0, flSrc.Size()))
	m.entries = make([]Entry, 0, count)
	for i := range int(count) {
		name, err := readName(names)
		if err != nil {
			return nil, fmt.Errorf("name %d of %d: %w", i, count, err)
		}
		r, err := arctype.DecodeRecord(table[i*RecordSize:])
		if err != nil {
			return nil, fmt.Errorf("record %d (%q): %w", i, name, err)
		}
		if !m.insert(name, r) {
			return nil, fmt.Errorf("%w: duplicate entry %q", ErrStructure, name)
		}
	}
	m.correctLZS()
	return m, nil
}

// readName reads one line of a name table without its terminator or
// trailing whitespace.
func readName(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", err
		}
		if line == "" {
			return "", fmt.Errorf("%w: name table ended early", ErrStructure)
		}
	}
	return normalizeName(line), nil
}
