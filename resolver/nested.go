package resolver

import (
	"fmt"
	"io/fs"

	archive "github.com/meigma/ffarchive/core"
)

// mapLoader builds the map of the archive called name from its record and
// name table regions.
type mapLoader func(name string, fi, fl *archive.RangeView) (*archive.Map, error)

// OpenNested opens the FI/FL/FS archive described by def from inside the
// ZZZ container parent. The child's entries are read through a range view
// of the parent, so nothing is copied out of the container up front.
func OpenNested(parent *Archive, def Definition, opts ...archive.Option) (*Archive, error) {
	return openNested(parent, def, func(_ string, fi, fl *archive.RangeView) (*archive.Map, error) {
		return archive.LoadRangeViews(fi, fl, opts...)
	})
}

func openNested(parent *Archive, def Definition, load mapLoader) (*Archive, error) {
	if parent == nil || parent.zzz == nil {
		return nil, fmt.Errorf("%w: %s needs a zzz parent", archive.ErrInvalidArgument, def.Name)
	}
	for _, dir := range def.Dirs {
		fiPath, flPath, fsPath := def.files(dir)
		fi, okFI := parent.zzz.Find(fiPath)
		fl, okFL := parent.zzz.Find(flPath)
		data, okFS := parent.zzz.Find(fsPath)
		if !okFI || !okFL || !okFS {
			continue
		}

		m, err := load(def.Name, fi.View(parent.container), fl.View(parent.container))
		if err != nil {
			return nil, fmt.Errorf("load %s from %s: %w", def.Name, parent.name, err)
		}
		return &Archive{
			name:      def.Name,
			layout:    LayoutNested,
			path:      data.Name,
			m:         m,
			container: data.View(parent.container),
		}, nil
	}
	return nil, &fs.PathError{Op: "open", Path: parent.name + ":" + def.Name, Err: archive.ErrNotFound}
}

// MergeNested merges child, an archive nested in the ZZZ container
// parent, into parent's map at the offset of child's FS file. Afterwards
// parent serves child's entries directly from the container.
//
// The first merge converts parent's file table to a map, which fails with
// archive.ErrSizeOverflow for containers larger than 2GB.
func MergeNested(parent, child *Archive, opts ...archive.Option) error {
	if parent == nil || child == nil {
		return fmt.Errorf("%w: parent and child are required", archive.ErrInvalidArgument)
	}
	if parent.zzz == nil {
		return fmt.Errorf("%w: %s is not a zzz container", archive.ErrInvalidArgument, parent.name)
	}
	childMap := child.Map()
	if childMap == nil {
		return fmt.Errorf("%w: %s has no entry map", archive.ErrInvalidArgument, child.name)
	}
	data, ok := parent.zzz.Lookup(child.path)
	if !ok {
		return &fs.PathError{Op: "merge", Path: parent.name + ":" + child.path, Err: archive.ErrNotFound}
	}

	parent.mu.Lock()
	defer parent.mu.Unlock()
	m := parent.m
	if m == nil {
		var err error
		if m, err = parent.zzz.Map(opts...); err != nil {
			return err
		}
	}
	if err := m.Merge(childMap, data.Offset); err != nil {
		return err
	}
	parent.m = m
	return nil
}
