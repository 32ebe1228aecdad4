// Package cache provides caching for decoded archive entries and for the
// byte ranges of slow containers.
//
// Entry caches are keyed by a digest of the container's source identifier
// and the entry name. Source identifiers change whenever the container
// does, so a stale entry is never returned for a rewritten container; it
// simply stops being hit and ages out.
package cache
