package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	archive "github.com/meigma/ffarchive/core"
	"github.com/meigma/ffarchive/core/cache"
	"github.com/meigma/ffarchive/core/cache/memory"
)

// ErrUnknownArchive is returned for a logical name with no definition.
var ErrUnknownArchive = errors.New("resolver: unknown archive")

// Registry resolves logical archive names to opened archives and keeps
// them open until PurgeCache or Close.
//
// A Registry is safe for concurrent use. Concurrent requests for the same
// archive, or the same uncached entry, share a single open or read.
type Registry struct {
	root        string
	store       storage
	lang        string
	defs        map[string]Definition
	extraDefs   []Definition
	logger      *slog.Logger
	entries     cache.Cache
	mapOpts     []archive.Option
	blockOpts   []memory.BlockOption
	snapshotDir string

	mu      sync.Mutex
	open    map[string]*Archive
	aliases map[string]string
	opens   singleflight.Group
	reads   singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithLanguage selects the language directory of the default archive
// definitions. Defaults to DefaultLanguage.
func WithLanguage(lang string) Option {
	return func(r *Registry) {
		r.lang = lang
	}
}

// WithDefinitions adds definitions, replacing defaults of the same name.
func WithDefinitions(defs ...Definition) Option {
	return func(r *Registry) {
		r.extraDefs = append(r.extraDefs, defs...)
	}
}

// WithLogger sets the logger for the registry and the maps it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithCache caches decoded entries read through Registry.ReadFile.
func WithCache(c cache.Cache) Option {
	return func(r *Registry) {
		r.entries = c
	}
}

// WithMapOptions sets options for every archive map the registry builds.
func WithMapOptions(opts ...archive.Option) Option {
	return func(r *Registry) {
		r.mapOpts = append(r.mapOpts, opts...)
	}
}

// WithBlockOptions configures the block cache wrapped around remote
// containers.
func WithBlockOptions(opts ...memory.BlockOption) Option {
	return func(r *Registry) {
		r.blockOpts = append(r.blockOpts, opts...)
	}
}

// WithSnapshotDir stores a snapshot of every FI/FL map built in dir and
// reuses it while the index tables are unchanged.
func WithSnapshotDir(dir string) Option {
	return func(r *Registry) {
		r.snapshotDir = dir
	}
}

// New returns a Registry for the installation at root, which is either a
// directory or an http(s) URL serving the same layout.
func New(root string, opts ...Option) (*Registry, error) {
	r := &Registry{
		root:    root,
		lang:    DefaultLanguage,
		defs:    make(map[string]Definition),
		open:    make(map[string]*Archive),
		aliases: make(map[string]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	defs := append(DefaultDefinitions(r.lang), r.extraDefs...)
	if err := ValidateDefinitions(defs); err != nil {
		return nil, err
	}
	for _, d := range defs {
		r.defs[d.Name] = d
	}
	if r.logger != nil {
		r.mapOpts = append([]archive.Option{archive.WithLogger(r.logger)}, r.mapOpts...)
	}

	store, err := newStorage(root, r.logger, r.blockOpts)
	if err != nil {
		return nil, err
	}
	r.store = store
	return r, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.logger
}

// Definitions returns the known archive definitions sorted by name.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.defs))
	for _, d := range r.defs {
		defs = append(defs, d)
	}
	slices.SortFunc(defs, func(a, b Definition) int {
		return strings.Compare(a.Name, b.Name)
	})
	return defs
}

// Resolve returns the archive called name, opening it on first use.
//
// ZZZ containers are opened from the game root. Other archives are looked
// up in each definition directory as a loose FI/FL/FS triple, then inside
// their parent container, then as a plain directory.
func (r *Registry) Resolve(ctx context.Context, name string) (*Archive, error) {
	r.mu.Lock()
	if alias, ok := r.aliases[name]; ok {
		name = alias
	}
	if a, ok := r.open[name]; ok {
		r.mu.Unlock()
		return a, nil
	}
	def, ok := r.defs[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownArchive, name)
	}

	v, err, _ := r.opens.Do(name, func() (any, error) {
		r.mu.Lock()
		if a, ok := r.open[name]; ok {
			r.mu.Unlock()
			return a, nil
		}
		r.mu.Unlock()

		a, err := r.openArchive(ctx, def)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.open[name] = a
		r.mu.Unlock()
		r.log().Info("opened archive", "archive", name, "layout", a.layout.String(), "path", a.path)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Archive), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

func (r *Registry) openArchive(ctx context.Context, def Definition) (*Archive, error) {
	if def.Container() {
		return r.openZZZ(ctx, def)
	}

	for _, dir := range def.Dirs {
		a, err := r.openFiles(ctx, def, dir)
		if err == nil {
			return a, nil
		}
		if !isNotExist(err) {
			return nil, err
		}
	}

	if def.Parent != "" {
		parent, err := r.Resolve(ctx, def.Parent)
		switch {
		case err == nil:
			a, err := openNested(parent, def, r.loadMap)
			if err == nil {
				return a, nil
			}
			if !isNotExist(err) {
				return nil, err
			}
		case !isNotExist(err):
			return nil, err
		}
	}

	for _, dir := range def.Dirs {
		rel := containerPath(dir, def.Name)
		if files, ok := r.store.dirFS(rel); ok {
			return &Archive{name: def.Name, layout: LayoutDirectory, path: rel, files: files}, nil
		}
	}
	return nil, &fs.PathError{Op: "resolve", Path: def.Name, Err: archive.ErrNotFound}
}

func (r *Registry) openZZZ(ctx context.Context, def Definition) (*Archive, error) {
	var lastErr error = archive.ErrNotFound
	for _, dir := range def.Dirs {
		rel := containerPath(dir, def.Name)
		src, closer, err := r.store.open(ctx, rel)
		if err != nil {
			if isNotExist(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		d, err := ParseZZZ(src)
		if err != nil {
			closer.Close()
			return nil, fmt.Errorf("parse %s: %w", rel, err)
		}
		return &Archive{name: def.Name, layout: LayoutZZZ, path: rel, zzz: d, container: src, closer: closer}, nil
	}
	return nil, &fs.PathError{Op: "resolve", Path: def.Name, Err: lastErr}
}

// openFiles opens a loose FI/FL/FS triple in dir.
func (r *Registry) openFiles(ctx context.Context, def Definition, dir string) (a *Archive, err error) {
	fiPath, flPath, fsPath := def.files(dir)
	var closers []io.Closer
	defer func() {
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
		}
	}()

	sources := make([]archive.ByteSource, 3)
	for i, p := range []string{fsPath, fiPath, flPath} {
		src, closer, err := r.store.open(ctx, p)
		if err != nil {
			return nil, err
		}
		closers = append(closers, closer)
		sources[i] = src
	}

	fi := archive.NewRangeView(sources[1], 0, sources[1].Size())
	fl := archive.NewRangeView(sources[2], 0, sources[2].Size())
	m, err := r.loadMap(def.Name, fi, fl)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", def.Name, err)
	}
	for _, c := range closers[1:] {
		c.Close()
	}
	return &Archive{name: def.Name, layout: LayoutFiles, path: fsPath, m: m, container: sources[0], closer: closers[0]}, nil
}

// loadMap builds a map from its index regions, going through the
// snapshot directory when one is configured.
func (r *Registry) loadMap(name string, fi, fl *archive.RangeView) (*archive.Map, error) {
	if r.snapshotDir == "" {
		return archive.LoadRangeViews(fi, fl, r.mapOpts...)
	}

	sourceID := fi.SourceID() + "|" + fl.SourceID()
	snapPath := filepath.Join(r.snapshotDir, name+"-"+cache.Key(sourceID, name).Encoded()[:16]+".snap")
	if m, ok := r.readSnapshot(snapPath, sourceID); ok {
		r.log().Debug("loaded map snapshot", "archive", name, "path", snapPath)
		return m, nil
	}

	m, err := archive.LoadRangeViews(fi, fl, r.mapOpts...)
	if err != nil {
		return nil, err
	}
	if err := writeSnapshot(snapPath, m, sourceID); err != nil {
		r.log().Warn("write map snapshot", "archive", name, "error", err)
	}
	return m, nil
}

func (r *Registry) readSnapshot(snapPath, sourceID string) (*archive.Map, bool) {
	f, err := os.Open(snapPath) //nolint:gosec // path is built from a digest
	if err != nil {
		return nil, false
	}
	defer f.Close()
	m, id, err := archive.ReadSnapshot(f, r.mapOpts...)
	if err != nil {
		r.log().Warn("read map snapshot", "path", snapPath, "error", err)
		return nil, false
	}
	return m, id == sourceID
}

// ReadFile resolves archiveName and returns the decoded entry name
// resolves to inside it. Results are served from, and added to, the
// configured entry cache.
func (r *Registry) ReadFile(ctx context.Context, archiveName, name string) ([]byte, error) {
	a, err := r.Resolve(ctx, archiveName)
	if err != nil {
		return nil, err
	}
	if r.entries == nil || a.SourceID() == "" {
		return a.ReadFile(name)
	}

	a.mu.RLock()
	canonical, ok := a.resolve(name)
	a.mu.RUnlock()
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: archiveName + "/" + name, Err: archive.ErrNotFound}
	}
	key := cache.Key(a.SourceID(), canonical)
	if data, ok := r.entries.Get(key); ok {
		return data, nil
	}

	v, err, _ := r.reads.Do(key.String(), func() (any, error) {
		a.mu.RLock()
		data, err := a.readLocked(canonical)
		a.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		if err := r.entries.Put(key, data); err != nil {
			r.log().Warn("cache entry", "archive", archiveName, "name", canonical, "error", err)
		}
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil //nolint:errcheck // type assertion always succeeds when err is nil
}

// MergeNested merges the nested archive child into its parent container
// and makes child resolve to the parent from then on.
func (r *Registry) MergeNested(ctx context.Context, parentName, childName string) error {
	parent, err := r.Resolve(ctx, parentName)
	if err != nil {
		return err
	}
	child, err := r.Resolve(ctx, childName)
	if err != nil {
		return err
	}
	if child.layout != LayoutNested {
		return fmt.Errorf("%w: %s is not nested in %s", archive.ErrInvalidArgument, childName, parentName)
	}
	if err := MergeNested(parent, child, r.mapOpts...); err != nil {
		return fmt.Errorf("merge %s into %s: %w", childName, parentName, err)
	}

	r.mu.Lock()
	r.aliases[childName] = parentName
	if r.open[childName] == child {
		delete(r.open, childName)
	}
	r.mu.Unlock()
	r.log().Info("merged archive", "child", childName, "parent", parentName)
	return nil
}

// PurgeCache closes every open archive and forgets merges. Archives are
// reopened on next use.
func (r *Registry) PurgeCache() error {
	r.mu.Lock()
	open := r.open
	r.open = make(map[string]*Archive)
	r.aliases = make(map[string]string)
	r.mu.Unlock()

	var errs []error
	for _, a := range open {
		if err := a.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", a.name, err))
		}
	}
	r.log().Debug("purged archive cache", "archives", len(open))
	return errors.Join(errs...)
}

// Close purges the cache and releases the game root.
func (r *Registry) Close() error {
	return errors.Join(r.PurgeCache(), r.store.Close())
}
