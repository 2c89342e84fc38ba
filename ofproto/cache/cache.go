// Package cache implements the flow cache (spec.md §4.6): a map from a
// packet's 64-bit content fingerprint to the flow it last classified to,
// letting repeat traffic skip the classification tree entirely. Three
// interchangeable backends trade off concurrency model for lookup cost;
// callers pick one via NewConcurrent/NewWriterOwned/NewPatricia and wrap it
// in a Cache for the hit/miss bookkeeping every backend shares.
package cache

import (
	"sync/atomic"

	"github.com/contiv/ofdp/ofproto"
)

// Entry is one cached classification result.
type Entry struct {
	Flow    *ofproto.Flow
	TableID uint8
}

// Backend is the storage strategy a Cache delegates to.
type Backend interface {
	Get(fingerprint uint64) (*Entry, bool)
	Put(fingerprint uint64, e *Entry)
	Delete(fingerprint uint64)
	Clear()
	Len() int
}

// Stats is a point-in-time snapshot of a Cache's counters.
type Stats struct {
	Entries int
	Hits    uint64
	Misses  uint64
}

// Cache wraps a Backend with the hit/miss/entry counters every backend
// needs, so the three implementations don't each reimplement them.
type Cache struct {
	backend Backend
	hits    uint64
	misses  uint64
}

func New(backend Backend) *Cache {
	return &Cache{backend: backend}
}

// Lookup returns the cached flow for fingerprint, bumping the hit or miss
// counter.
func (c *Cache) Lookup(fingerprint uint64) (*Entry, bool) {
	e, ok := c.backend.Get(fingerprint)
	if ok {
		atomic.AddUint64(&c.hits, 1)
	} else {
		atomic.AddUint64(&c.misses, 1)
	}
	return e, ok
}

// Insert records a fresh classification result.
func (c *Cache) Insert(fingerprint uint64, e *Entry) {
	c.backend.Put(fingerprint, e)
}

// Invalidate drops one fingerprint, used when the flow it resolved to is
// modified or deleted out from under the cache.
func (c *Cache) Invalidate(fingerprint uint64) {
	c.backend.Delete(fingerprint)
}

// Clear drops every cached entry — the per-partition action ClearCaches
// fans out on a BARRIER_REQUEST (spec.md §9). Hit/miss counts are cumulative
// per-bridge statistics (spec.md §4.6) and survive a flush.
func (c *Cache) Clear() {
	c.backend.Clear()
}

func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.backend.Len(),
		Hits:    atomic.LoadUint64(&c.hits),
		Misses:  atomic.LoadUint64(&c.misses),
	}
}
