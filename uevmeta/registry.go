// Package uevmeta indexes the static metadata attached to log call
// sites.  Each site registers a descriptor once at program start
// (generated code or an init function stands in for the original
// link-time collection); the registry dedupes the descriptors and
// builds a hash-sorted index for O(log n) lookup by site identity.
package uevmeta

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// SiteID identifies a log call site.  It is opaque to the bridge;
// front ends typically use "name@file:line".
type SiteID string

// SiteDescriptor is immutable once registered.  One exists per static
// log site for the life of the process.
type SiteDescriptor struct {
	Keyword  uint64
	Identity SiteID
	Tag      uint32
}

type parsedEntry struct {
	identityHash uint64
	desc         *SiteDescriptor
	order        int // registration order, tie-break for hash collisions
}

// Registry collects descriptors while the program loads and serves
// lookups afterward.  The index is built at most once, on first
// lookup; descriptors registered after that are kept in the table but
// are not visible to Lookup, matching the compile-time-baked semantics
// of the descriptors themselves.
type Registry struct {
	mu    sync.Mutex
	table []*SiteDescriptor

	once  sync.Once
	index []parsedEntry
}

var defaultRegistry = NewRegistry()

// Default is the process-wide registry that RegisterSite feeds.
func Default() *Registry { return defaultRegistry }

// NewRegistry is intended for tests and replay tooling; production
// code shares Default.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a descriptor to the table.  Registering the same
// pointer more than once is allowed (generated code may instantiate a
// site's registration in multiple places) and collapses to one entry
// when the index is built.
func (r *Registry) Register(desc *SiteDescriptor) {
	if desc == nil {
		return
	}
	r.mu.Lock()
	r.table = append(r.table, desc)
	r.mu.Unlock()
}

func (r *Registry) build() {
	r.once.Do(func() {
		r.mu.Lock()
		table := make([]*SiteDescriptor, len(r.table))
		copy(table, r.table)
		r.mu.Unlock()

		seen := make(map[*SiteDescriptor]struct{}, len(table))
		parsed := make([]parsedEntry, 0, len(table))
		for i, desc := range table {
			if _, dup := seen[desc]; dup {
				continue
			}
			seen[desc] = struct{}{}
			parsed = append(parsed, parsedEntry{
				identityHash: xxhash.Sum64String(string(desc.Identity)),
				desc:         desc,
				order:        i,
			})
		}

		// Descending by hash; distinct sites whose hashes collide
		// stay in registration order so lookup can scan the run and
		// match on identity rather than aliasing.
		sort.Slice(parsed, func(i, j int) bool {
			if parsed[i].identityHash != parsed[j].identityHash {
				return parsed[i].identityHash > parsed[j].identityHash
			}
			return parsed[i].order < parsed[j].order
		})
		r.index = parsed
	})
}

// Lookup returns the descriptor for a site identity, or nil if the
// site never registered.  A nil result is the cold-start/no-sites
// case, not an error: callers fall back to their default keyword.
func (r *Registry) Lookup(id SiteID) *SiteDescriptor {
	r.build()
	h := xxhash.Sum64String(string(id))
	// First entry whose hash is <= h, since the index is descending.
	i := sort.Search(len(r.index), func(i int) bool {
		return r.index[i].identityHash <= h
	})
	for ; i < len(r.index); i++ {
		entry := &r.index[i]
		if entry.identityHash != h {
			return nil
		}
		if entry.desc.Identity == id {
			return entry.desc
		}
	}
	return nil
}

// Iterate visits each distinct registered descriptor.  Return false
// from the callback to stop early.
func (r *Registry) Iterate(f func(*SiteDescriptor) bool) {
	r.build()
	for i := range r.index {
		if !f(r.index[i].desc) {
			return
		}
	}
}

// Len reports the number of distinct descriptors in the built index.
func (r *Registry) Len() int {
	r.build()
	return len(r.index)
}
