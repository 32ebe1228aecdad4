// Package resolver maps logical archive names of a game installation to
// opened archives.
//
// An installation stores its archives in several layouts: ZZZ containers
// at the game root, loose FI/FL/FS triples under per-language
// directories, the same triples packed inside a ZZZ container, and plain
// directories of loose files. A [Registry] searches them in that order
// for each [Definition] and keeps the result open:
//
//	reg, err := resolver.New("/games/ff8")
//	if err != nil {
//		return err
//	}
//	defer reg.Close()
//
//	data, err := reg.ReadFile(ctx, resolver.Field, "field/mapdata/bg.map")
//
// The game root may also be an http(s) URL serving the same layout; reads
// then go through HTTP range requests and an in-memory block cache.
//
// Archives nested in a container can be merged into it with
// [Registry.MergeNested], after which the child's entries are served
// straight from the container.
package resolver
