package arctype

import "fmt"

// Kind identifies the compression applied to an entry or region.
//
// Values are the tags stored in the low byte of a record's kind field;
// changing them breaks compatibility with existing containers.
type Kind uint8

const (
	// KindNone stores data as-is.
	KindNone Kind = 0

	// KindLZSS is a single LZSS stream with a known uncompressed size.
	KindLZSS Kind = 1

	// KindLZ4 is an LZ4 block behind a variable-width pre-header.
	KindLZ4 Kind = 2

	// KindLZSSUnknownSize is a single LZSS stream whose output size is not
	// recorded in the index.
	KindLZSSUnknownSize Kind = 3

	// KindLZSSLZSS is an LZSS stream whose output is itself a prefixed
	// LZSS stream.
	KindLZSSLZSS Kind = 4
)

// String returns the human-readable name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindLZSS:
		return "lzss"
	case KindLZ4:
		return "lz4"
	case KindLZSSUnknownSize:
		return "lzss_unknown_size"
	case KindLZSSLZSS:
		return "lzss_lzss"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// ParseKind parses a kind from its string representation.
func ParseKind(name string) (Kind, error) {
	switch name {
	case "none":
		return KindNone, nil
	case "lzss":
		return KindLZSS, nil
	case "lz4":
		return KindLZ4, nil
	case "lzss_unknown_size":
		return KindLZSSUnknownSize, nil
	case "lzss_lzss":
		return KindLZSSLZSS, nil
	default:
		return 0, fmt.Errorf("unknown compression kind: %q", name)
	}
}

// Prefixed reports whether on-disk data of this kind starts with a
// 4-byte little-endian compressed-size prefix.
func (k Kind) Prefixed() bool {
	switch k {
	case KindLZSS, KindLZSSUnknownSize, KindLZSSLZSS:
		return true
	default:
		return false
	}
}
