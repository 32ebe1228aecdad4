package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	archive "github.com/meigma/ffarchive/core"
	"github.com/meigma/ffarchive/core/cache/memory"
	"github.com/meigma/ffarchive/core/remote"
)

// storage locates containers under the game root.
// Paths are slash-separated and relative to the root.
type storage interface {
	// open returns the container at rel. Missing containers report an
	// error matching fs.ErrNotExist.
	open(ctx context.Context, rel string) (archive.ByteSource, io.Closer, error)

	// dirFS returns the loose directory at rel, or false if there is none.
	dirFS(rel string) (fs.FS, bool)

	// String describes the root for logs.
	String() string

	Close() error
}

// newStorage returns local storage for a directory root and HTTP storage
// for an http or https URL.
func newStorage(root string, logger *slog.Logger, blocks []memory.BlockOption) (storage, error) {
	if u, err := url.Parse(root); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return &remoteStorage{base: u, logger: logger, blocks: blocks}, nil
	}
	r, err := os.OpenRoot(root)
	if err != nil {
		return nil, fmt.Errorf("open game root: %w", err)
	}
	return &localStorage{dir: root, root: r}, nil
}

// localStorage reads containers from a directory. Every path is opened
// through an os.Root, so names cannot escape the game directory.
type localStorage struct {
	dir  string
	root *os.Root
}

func (s *localStorage) open(_ context.Context, rel string) (archive.ByteSource, io.Closer, error) {
	f, err := s.root.Open(filepath.FromSlash(rel))
	if err != nil {
		return nil, nil, err
	}
	src, err := archive.NewFileSource(f, filepath.Join(s.dir, filepath.FromSlash(rel)))
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return src, src, nil
}

func (s *localStorage) dirFS(rel string) (fs.FS, bool) {
	if rel == "" {
		rel = "."
	}
	info, err := s.root.Stat(filepath.FromSlash(rel))
	if err != nil || !info.IsDir() {
		return nil, false
	}
	sub, err := fs.Sub(s.root.FS(), rel)
	if err != nil {
		return nil, false
	}
	return sub, true
}

func (s *localStorage) String() string {
	return s.dir
}

func (s *localStorage) Close() error {
	return s.root.Close()
}

// remoteStorage reads containers over HTTP range requests. Each
// container is wrapped in a block cache because index parsing issues many
// small reads.
type remoteStorage struct {
	base   *url.URL
	logger *slog.Logger
	blocks []memory.BlockOption
}

func (s *remoteStorage) open(ctx context.Context, rel string) (archive.ByteSource, io.Closer, error) {
	if !fs.ValidPath(rel) {
		return nil, nil, &fs.PathError{Op: "open", Path: rel, Err: fs.ErrInvalid}
	}
	u := s.base.JoinPath(strings.Split(rel, "/")...)
	src, err := remote.NewSource(ctx, u.String(), remote.WithLogger(s.logger), remote.WithConditionalReads())
	if err != nil {
		return nil, nil, err
	}
	cached, err := memory.NewBlockSource(src, s.blocks...)
	if err != nil {
		return nil, nil, err
	}
	return cached, noopCloser{}, nil
}

// dirFS reports no directories: HTTP roots serve containers only.
func (s *remoteStorage) dirFS(string) (fs.FS, bool) {
	return nil, false
}

func (s *remoteStorage) String() string {
	return s.base.String()
}

func (s *remoteStorage) Close() error {
	return nil
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// containerPath joins a definition directory and a file name.
func containerPath(dir, name string) string {
	return path.Join(dir, name)
}
