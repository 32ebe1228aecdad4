package archive

import (
	"log/slog"

	"github.com/meigma/ffarchive/core/internal/codec"
)

const (
	// DefaultMaxEntrySize is the default limit on one entry's on-disk and
	// decoded size (256MB).
	DefaultMaxEntrySize = 256 << 20

	// DefaultLZ4MaxProbe is the default number of bytes past the standard
	// LZ4 pre-header searched for the block start.
	DefaultLZ4MaxProbe = codec.DefaultLZ4MaxProbe
)

// Option configures a Map.
type Option func(*Map)

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Map) {
		m.logger = logger
	}
}

// WithMaxProbe limits how far past the standard pre-header LZ4 decoding
// searches for the block start. Negative values search the whole entry.
func WithMaxProbe(n int) Option {
	return func(m *Map) {
		m.maxProbe = n
		m.maxProbeSet = true
	}
}

// WithMaxEntrySize limits the on-disk and decoded size of a single entry.
// Set limit to 0 to disable the limit.
func WithMaxEntrySize(limit int64) Option {
	return func(m *Map) {
		m.maxEntrySize = limit
	}
}

func (m *Map) applyOptions(opts []Option) {
	m.maxEntrySize = DefaultMaxEntrySize
	for _, opt := range opts {
		opt(m)
	}
	decOpts := []codec.Option{codec.WithLogger(m.logger)}
	if m.maxProbeSet {
		decOpts = append(decOpts, codec.WithMaxProbe(m.maxProbe))
	}
	m.decoder = codec.NewDecoder(decOpts...)
}
