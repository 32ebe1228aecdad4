package archive

import (
	"fmt"

	"github.com/meigma/ffarchive/core/internal/arctype"
)

// Merge copies every named entry of child into m with its offset moved by
// base, overwriting entries of the same name. It is used when a child
// archive's data file is stored, uncompressed, inside m's container at
// offset base.
//
// Either every entry is merged or, on error, none is. Child placeholders
// have no name to merge under and are skipped.
func (m *Map) Merge(child *Map, base int64) error {
	if child == nil {
		return fmt.Errorf("%w: child map is nil", ErrInvalidArgument)
	}
	if child == m {
		return fmt.Errorf("%w: cannot merge a map into itself", ErrInvalidArgument)
	}

	rebased := make([]arctype.Entry, 0, len(child.entries))
	for _, e := range child.entries {
		if isBlank(e.Name) {
			continue
		}
		r, ok := e.Rebase(base)
		if !ok {
			return fmt.Errorf("%w: %q at %d moved by %d", ErrSizeOverflow, e.Name, e.Offset, base)
		}
		rebased = append(rebased, arctype.Entry{Name: e.Name, Record: r})
	}

	for _, e := range rebased {
		m.put(e.Name, e.Record)
	}
	m.invalidate()
	m.log().Debug("merged archive", "entries", len(rebased), "base", base)
	return nil
}
