package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	archive "github.com/meigma/ffarchive/core"
)

// ExtractStats reports the outcome of ExtractAll.
type ExtractStats struct {
	// Extracted is the number of entries written.
	Extracted int

	// Skipped is the number of entries not written because the target
	// exists or the name cannot be mapped to a path.
	Skipped int

	// Bytes is the total decoded size written.
	Bytes int64
}

// ExtractOption configures ExtractAll.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	workers   int
	overwrite bool
}

// WithWorkers sets the number of entries decoded concurrently.
// Values < 1 use GOMAXPROCS.
func WithWorkers(n int) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.workers = n
	}
}

// WithOverwrite replaces files that already exist under the destination.
// By default they are skipped.
func WithOverwrite(overwrite bool) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.overwrite = overwrite
	}
}

// ExtractAll writes every visible entry of archiveName under destDir.
//
// Entry names are mapped to relative paths (backslashes become slashes,
// drive letters and leading slashes are dropped). Files are written to a
// temp file and renamed, so a failed run never leaves a partial file.
// The first error cancels the remaining work.
func (r *Registry) ExtractAll(ctx context.Context, archiveName, destDir string, opts ...ExtractOption) (ExtractStats, error) {
	cfg := extractConfig{workers: runtime.GOMAXPROCS(0)}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = runtime.GOMAXPROCS(0)
	}

	a, err := r.Resolve(ctx, archiveName)
	if err != nil {
		return ExtractStats{}, err
	}
	names, err := a.List()
	if err != nil {
		return ExtractStats{}, err
	}
	if err := os.MkdirAll(destDir, 0o750); err != nil {
		return ExtractStats{}, fmt.Errorf("create destination: %w", err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return ExtractStats{}, fmt.Errorf("open destination: %w", err)
	}
	defer root.Close()

	var extracted, skipped atomic.Int64
	var written atomic.Int64
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(cfg.workers)
	for _, name := range names {
		if gctx.Err() != nil {
			break
		}
		rel, ok := entryPath(name)
		if !ok {
			r.log().Warn("skipping entry with unusable path", "archive", archiveName, "name", name)
			skipped.Add(1)
			continue
		}
		if !cfg.overwrite {
			if _, err := root.Stat(rel); err == nil {
				skipped.Add(1)
				continue
			}
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			a.mu.RLock()
			data, err := a.readLocked(name)
			a.mu.RUnlock()
			if err != nil {
				return err
			}
			if err := writeRootFileAtomic(root, rel, data); err != nil {
				return &fs.PathError{Op: "extract", Path: rel, Err: err}
			}
			extracted.Add(1)
			written.Add(int64(len(data)))
			return nil
		})
	}

	err = eg.Wait()
	if err == nil {
		err = ctx.Err()
	}
	stats := ExtractStats{
		Extracted: int(extracted.Load()),
		Skipped:   int(skipped.Load()),
		Bytes:     written.Load(),
	}
	r.log().Info("extracted archive", "archive", archiveName, "dest", destDir,
		"extracted", stats.Extracted, "skipped", stats.Skipped, "bytes", stats.Bytes)
	return stats, err
}

// entryPath maps an entry name to a slash-separated relative path.
func entryPath(name string) (string, bool) {
	p := strings.ReplaceAll(name, `\`, "/")
	if len(p) >= 2 && p[1] == ':' {
		p = p[2:]
	}
	p = strings.TrimLeft(p, "/")
	p = path.Clean(p)
	if p == "." || !fs.ValidPath(p) {
		return "", false
	}
	return p, true
}

// writeRootFileAtomic writes data to rel inside root through a temp file
// in the same directory.
func writeRootFileAtomic(root *os.Root, rel string, data []byte) error {
	dir := path.Dir(rel)
	if err := root.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	var tmp *os.File
	var tmpRel string
	for i := 0; ; i++ {
		tmpRel = path.Join(dir, fmt.Sprintf(".ffarc-%d-%d", os.Getpid(), i))
		f, err := root.OpenFile(tmpRel, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			tmp = f
			break
		}
		if !errors.Is(err, fs.ErrExist) || i > 100 {
			return err
		}
	}

	success := false
	defer func() {
		if !success {
			tmp.Close()
			_ = root.Remove(tmpRel)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := root.Rename(tmpRel, rel); err != nil {
		return err
	}
	success = true
	return nil
}

// writeSnapshot writes m's snapshot to target through a temp file.
func writeSnapshot(target string, m *archive.Map, sourceID string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".snap-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if err := m.WriteSnapshot(tmp, sourceID); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}
