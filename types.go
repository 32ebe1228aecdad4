package ffarchive

import (
	archive "github.com/meigma/ffarchive/core"
	"github.com/meigma/ffarchive/resolver"
)

// --- Re-exports from core ---

// Map is the entry map of one archive.
type Map = archive.Map

// Entry pairs a name with its Record.
type Entry = archive.Entry

// Record describes where an entry lives and how it is compressed.
type Record = archive.Record

// Kind identifies the compression of an entry or region.
type Kind = archive.Kind

// ByteSource provides random access to a container.
type ByteSource = archive.ByteSource

// RangeView is a possibly compressed sub-region of a container.
type RangeView = archive.RangeView

// MapOption configures a Map.
type MapOption = archive.Option

// Kind constants.
const (
	KindNone            = archive.KindNone
	KindLZSS            = archive.KindLZSS
	KindLZ4             = archive.KindLZ4
	KindLZSSUnknownSize = archive.KindLZSSUnknownSize
	KindLZSSLZSS        = archive.KindLZSSLZSS
)

// Map construction and sources re-exported from core.
var (
	NewMap           = archive.NewMap
	Load             = archive.Load
	LoadRangeViews   = archive.LoadRangeViews
	ReadSnapshot     = archive.ReadSnapshot
	NewRangeView     = archive.NewRangeView
	NewBytesSource   = archive.NewBytesSource
	OpenFile         = archive.OpenFile
	ParseKind        = archive.ParseKind
	WithMapLogger    = archive.WithLogger
	WithMaxProbe     = archive.WithMaxProbe
	WithMaxEntrySize = archive.WithMaxEntrySize
)

// --- Re-exports from resolver ---

// Registry resolves logical archive names of an installation.
type Registry = resolver.Registry

// Archive is a resolved logical archive.
type Archive = resolver.Archive

// Definition describes where a logical archive may be found.
type Definition = resolver.Definition

// Option configures a Registry.
type Option = resolver.Option

// Logical archive names of a standard installation.
const (
	MainZZZ  = resolver.MainZZZ
	OtherZZZ = resolver.OtherZZZ
	Battle   = resolver.Battle
	Field    = resolver.Field
	Magic    = resolver.Magic
	Main     = resolver.Main
	Menu     = resolver.Menu
	World    = resolver.World
	Movies   = resolver.Movies
)

// Registry options re-exported from resolver.
var (
	WithLanguage       = resolver.WithLanguage
	WithDefinitions    = resolver.WithDefinitions
	WithLogger         = resolver.WithLogger
	WithCache          = resolver.WithCache
	WithMapOptions     = resolver.WithMapOptions
	WithBlockOptions   = resolver.WithBlockOptions
	WithSnapshotDir    = resolver.WithSnapshotDir
	DefaultDefinitions = resolver.DefaultDefinitions
)

// Open returns a Registry for the installation at root, a directory or an
// http(s) URL.
func Open(root string, opts ...Option) (*Registry, error) {
	return resolver.New(root, opts...)
}
