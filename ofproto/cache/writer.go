package cache

// writerOwnedBackend is a plain Go map with no internal lock. It is legal
// only when a single goroutine owns every Get/Put/Delete/Clear call for its
// lifetime — the per-worker partition model described in spec.md §9, where
// each classification worker owns one fingerprint partition outright and
// the control plane never touches it directly.
type writerOwnedBackend struct {
	m map[uint64]*Entry
}

// NewWriterOwned returns a Cache with no synchronization at all, for a
// partition owned by exactly one goroutine.
func NewWriterOwned() *Cache {
	return New(&writerOwnedBackend{m: make(map[uint64]*Entry)})
}

func (b *writerOwnedBackend) Get(fingerprint uint64) (*Entry, bool) {
	e, ok := b.m[fingerprint]
	return e, ok
}

func (b *writerOwnedBackend) Put(fingerprint uint64, e *Entry) {
	b.m[fingerprint] = e
}

func (b *writerOwnedBackend) Delete(fingerprint uint64) {
	delete(b.m, fingerprint)
}

func (b *writerOwnedBackend) Clear() {
	b.m = make(map[uint64]*Entry)
}

func (b *writerOwnedBackend) Len() int {
	return len(b.m)
}
