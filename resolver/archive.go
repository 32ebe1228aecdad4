package resolver

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"slices"
	"strings"
	"sync"

	archive "github.com/meigma/ffarchive/core"
)

// Layout describes how a resolved archive is stored.
type Layout int

const (
	// LayoutZZZ is a ZZZ container with its own file table.
	LayoutZZZ Layout = iota

	// LayoutFiles is a loose FI/FL/FS triple on disk.
	LayoutFiles

	// LayoutNested is an FI/FL/FS triple packed inside a ZZZ container.
	// The FS is read through a range view of the parent.
	LayoutNested

	// LayoutDirectory is a plain directory of loose files.
	LayoutDirectory
)

func (l Layout) String() string {
	switch l {
	case LayoutZZZ:
		return "zzz"
	case LayoutFiles:
		return "files"
	case LayoutNested:
		return "nested"
	case LayoutDirectory:
		return "directory"
	default:
		return fmt.Sprintf("layout(%d)", int(l))
	}
}

// Archive is a resolved logical archive.
//
// An Archive is safe for concurrent reads. Merging a child into it takes
// an exclusive lock, so reads never observe a half-merged map.
type Archive struct {
	name   string
	layout Layout
	path   string

	mu        sync.RWMutex
	zzz       *Directory
	m         *archive.Map
	container archive.ByteSource
	closer    io.Closer
	files     fs.FS
}

// Name returns the logical archive name.
func (a *Archive) Name() string {
	return a.name
}

// Layout returns how the archive is stored.
func (a *Archive) Layout() Layout {
	return a.layout
}

// Path returns where the archive was found, relative to the game root:
// the container file, the FS file, or the directory.
func (a *Archive) Path() string {
	return a.path
}

// Map returns the archive's entry map. It is nil for directories and for
// ZZZ containers nothing has been merged into.
func (a *Archive) Map() *archive.Map {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.m
}

// Directory returns the file table of a ZZZ container, or nil.
func (a *Archive) Directory() *Directory {
	return a.zzz
}

// Container returns the byte source entries are read from, or nil for
// directories. For nested archives it is a range view of the parent.
func (a *Archive) Container() archive.ByteSource {
	return a.container
}

// SourceID identifies the archive's content for cache keys. It is empty
// for directories, which are not cached.
func (a *Archive) SourceID() string {
	if a.container == nil {
		return ""
	}
	return a.container.SourceID()
}

// List returns the names of the archive's visible entries in name order.
func (a *Archive) List() ([]string, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	switch {
	case a.m != nil:
		return a.m.Keys(), nil
	case a.zzz != nil:
		names := make([]string, 0, a.zzz.Len())
		for _, e := range a.zzz.byName {
			names = append(names, e.Name)
		}
		return names, nil
	case a.files != nil:
		return a.listLocked()
	default:
		return nil, nil
	}
}

// resolve returns the canonical name name resolves to.
func (a *Archive) resolve(name string) (string, bool) {
	switch {
	case a.m != nil:
		e, ok := a.m.Find(name)
		return e.Name, ok
	case a.zzz != nil:
		e, ok := a.zzz.Find(name)
		return e.Name, ok
	case a.files != nil:
		if _, err := fs.Stat(a.files, name); err == nil && fs.ValidPath(name) {
			return name, true
		}
		names, err := a.listLocked()
		if err != nil {
			return "", false
		}
		needle := strings.ToUpper(name)
		for _, n := range names {
			if strings.Contains(strings.ToUpper(n), needle) {
				return n, true
			}
		}
	}
	return "", false
}

func (a *Archive) listLocked() ([]string, error) {
	var names []string
	err := fs.WalkDir(a.files, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			names = append(names, p)
		}
		return nil
	})
	slices.Sort(names)
	return names, err
}

// ReadFile returns the decoded content of the entry name resolves to.
// Names resolve exactly first, then by case-insensitive substring.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	canonical, ok := a.resolve(name)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path.Join(a.name, name), Err: archive.ErrNotFound}
	}
	return a.readLocked(canonical)
}

// readLocked reads an entry by canonical name.
func (a *Archive) readLocked(name string) ([]byte, error) {
	switch {
	case a.m != nil:
		return a.m.Extract(name, a.container)
	case a.zzz != nil:
		e, _ := a.zzz.Lookup(name)
		data := make([]byte, e.Size)
		n, err := a.container.ReadAt(data, e.Offset)
		if n != len(data) {
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return nil, &fs.PathError{Op: "read", Path: name, Err: err}
		}
		return data, nil
	default:
		return fs.ReadFile(a.files, name)
	}
}

// Close releases the archive's container.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
