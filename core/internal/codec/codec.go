// Package codec implements the legacy decompression formats found in
// archive containers and dispatches between them by kind.
package codec

import (
	"fmt"
	"log/slog"

	"github.com/meigma/ffarchive/core/internal/arctype"
)

// Decoder decompresses entry and region data by kind.
// The zero value is ready to use; it probes DefaultLZ4MaxProbe bytes
// and does not log. A Decoder is safe for concurrent use.
type Decoder struct {
	maxProbe    int
	maxProbeSet bool
	logger      *slog.Logger
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithMaxProbe sets how many bytes past the default LZ4 header width are
// searched for the block start. Negative values search the whole input.
func WithMaxProbe(n int) Option {
	return func(d *Decoder) {
		d.maxProbe = n
		d.maxProbeSet = true
	}
}

// WithLogger sets the logger that receives probe diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// NewDecoder returns a Decoder configured by opts.
func NewDecoder(opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Decoder) log() *slog.Logger {
	if d == nil || d.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.logger
}

// MaxProbe returns the configured LZ4 probe limit.
func (d *Decoder) MaxProbe() int {
	if d == nil || !d.maxProbeSet {
		return DefaultLZ4MaxProbe
	}
	return d.maxProbe
}

type decodeFunc func(d *Decoder, raw []byte, size int) ([]byte, error)

// decoders holds one function per kind, indexed by the kind tag.
var decoders = [...]decodeFunc{
	arctype.KindNone:            decodeNone,
	arctype.KindLZSS:            decodeLZSS,
	arctype.KindLZ4:             decodeLZ4,
	arctype.KindLZSSUnknownSize: decodeLZSSUnknownSize,
	arctype.KindLZSSLZSS:        decodeLZSSLZSS,
}

// Decode decompresses raw according to kind. size is the declared
// uncompressed size; kinds that do not know their output size ignore it.
//
// For the LZSS family, raw is the stream after the on-disk size prefix.
func (d *Decoder) Decode(kind arctype.Kind, raw []byte, size int) ([]byte, error) {
	if int(kind) >= len(decoders) {
		return nil, fmt.Errorf("%w: unsupported compression kind %s", arctype.ErrStructure, kind)
	}
	return decoders[kind](d, raw, size)
}

// Decode decompresses raw with a default Decoder.
func Decode(kind arctype.Kind, raw []byte, size int) ([]byte, error) {
	return (*Decoder)(nil).Decode(kind, raw, size)
}

func decodeNone(_ *Decoder, raw []byte, _ int) ([]byte, error) {
	return raw, nil
}

func decodeLZSS(_ *Decoder, raw []byte, size int) ([]byte, error) {
	return DecodeLZSS(raw, size)
}

func decodeLZSSUnknownSize(_ *Decoder, raw []byte, _ int) ([]byte, error) {
	return DecodeLZSS(raw, 0)
}

// decodeLZSSLZSS runs two passes. The first pass output is a complete
// prefixed LZSS stream whose own output size is not recorded anywhere.
func decodeLZSSLZSS(_ *Decoder, raw []byte, size int) ([]byte, error) {
	inner, err := DecodeLZSS(raw, size)
	if err != nil {
		return nil, err
	}
	return DecodeLZSSPrefixed(inner, 0)
}

func (d *Decoder) decodeLZ4(raw []byte, size int) ([]byte, error) {
	out, off, err := DecodeLZ4(raw, size, d.MaxProbe())
	if err != nil {
		return nil, err
	}
	d.log().Debug("lz4 probe", "offset", off, "size", size)
	return out, nil
}

func decodeLZ4(d *Decoder, raw []byte, size int) ([]byte, error) {
	return d.decodeLZ4(raw, size)
}
