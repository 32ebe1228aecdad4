package disk

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

type cachedFile struct {
	path    string
	size    int64
	modTime time.Time
}

// walkCached visits every committed cache file under root. Temp files of
// in-flight writes are skipped.
func walkCached(root string, visit func(cachedFile)) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), "entry-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		visit(cachedFile{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func dirSize(root string) (int64, error) {
	var total int64
	err := walkCached(root, func(f cachedFile) {
		total += f.size
	})
	return total, err
}

func pruneDir(root string, targetBytes int64) (freed, remaining int64, err error) {
	var files []cachedFile
	if err := walkCached(root, func(f cachedFile) {
		files = append(files, f)
		remaining += f.size
	}); err != nil {
		return 0, 0, err
	}
	if remaining <= targetBytes {
		return 0, remaining, nil
	}

	slices.SortFunc(files, func(a, b cachedFile) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return strings.Compare(a.path, b.path)
	})
	for _, f := range files {
		if remaining <= targetBytes {
			break
		}
		if err := os.Remove(f.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return freed, remaining, err
		}
		remaining -= f.size
		freed += f.size
	}
	return freed, remaining, nil
}
