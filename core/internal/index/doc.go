// Package index encodes and decodes snapshots of a built archive map.
//
// A snapshot is a FlatBuffers buffer holding every entry in index-table
// order, so a map can be restored without reading or decompressing the
// container's own name and record tables.
package index
