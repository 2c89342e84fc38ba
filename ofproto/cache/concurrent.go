package cache

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// concurrentBackend is the many-reader/many-writer flow cache used by
// classification paths that span multiple worker goroutines over one
// fingerprint space. Lookup and Put never block each other.
type concurrentBackend struct {
	m *xsync.MapOf[uint64, *Entry]
}

// NewConcurrent returns a Cache safe for concurrent Lookup/Insert from many
// goroutines, backed by a lock-free hash map.
func NewConcurrent() *Cache {
	return New(&concurrentBackend{m: xsync.NewMapOf[uint64, *Entry]()})
}

func (b *concurrentBackend) Get(fingerprint uint64) (*Entry, bool) {
	return b.m.Load(fingerprint)
}

func (b *concurrentBackend) Put(fingerprint uint64, e *Entry) {
	b.m.Store(fingerprint, e)
}

func (b *concurrentBackend) Delete(fingerprint uint64) {
	b.m.Delete(fingerprint)
}

func (b *concurrentBackend) Clear() {
	b.m.Clear()
}

func (b *concurrentBackend) Len() int {
	return b.m.Size()
}
