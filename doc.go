// Package ffarchive reads the archives of Final Fantasy VIII style game
// installations.
//
// Games of this era pack their files into three-part archives: a record
// table (FI) of 12-byte records, a name table (FL) with one name per line,
// and a data file (FS) holding each entry at its offset, stored raw or
// compressed with LZSS, double LZSS or LZ4. Installations add ZZZ
// containers that bundle whole FI/FL/FS triples alongside loose files.
//
// This package is a thin facade. Low-level map building, codecs and
// extraction live in the [core] package; locating archives inside an
// installation lives in [resolver].
//
// # Quick Start
//
// Open an installation and read an entry:
//
//	reg, err := ffarchive.Open("/games/ff8", ffarchive.WithLanguage("en"))
//	if err != nil {
//	    return err
//	}
//	defer reg.Close()
//
//	data, err := reg.ReadFile(ctx, ffarchive.Field, "mapdata/bg.map")
//
// Build a map directly from index tables held in memory:
//
//	m, err := ffarchive.Load(fi, fl)
//	if err != nil {
//	    return err
//	}
//	data, err := m.Extract("battle/a0stg000.x", ffarchive.NewBytesSource(fs, "battle.fs"))
//
// # Names
//
// Lookups try an exact match first, then the first entry in name order
// whose name contains the query, ignoring case. Unresolved names return
// an error matching [ErrNotFound] and [io/fs.ErrNotExist].
//
// [core]: https://pkg.go.dev/github.com/meigma/ffarchive/core
// [resolver]: https://pkg.go.dev/github.com/meigma/ffarchive/resolver
package ffarchive
