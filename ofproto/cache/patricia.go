package cache

// patriciaBackend indexes fingerprints by their big-endian bit pattern
// instead of hashing them a second time, trading map's O(1) average lookup
// for a bound on worst-case probe depth (64) — useful when fingerprints are themselves already a hash and a second
// hash-of-a-hash buys nothing. Not github.com/gaissmai/bart: bart keys on
// net/netip prefixes for IP route lookups, not raw 64-bit integers, so it
// has no entry point for this table (see DESIGN.md).
type patriciaBackend struct {
	root *patriciaNode
	n    int
}

type patriciaNode struct {
	children [2]*patriciaNode
	entry    *Entry
	leaf     bool
}

// NewPatricia returns a Cache backed by a bit-trie over the fingerprint,
// one branch per bit from MSB to LSB.
func NewPatricia() *Cache {
	return New(&patriciaBackend{root: &patriciaNode{}})
}

func (b *patriciaBackend) Get(fingerprint uint64) (*Entry, bool) {
	n := b.root
	for bit := 63; bit >= 0; bit-- {
		n = n.children[bitAt(fingerprint, bit)]
		if n == nil {
			return nil, false
		}
	}
	if !n.leaf {
		return nil, false
	}
	return n.entry, true
}

func (b *patriciaBackend) Put(fingerprint uint64, e *Entry) {
	n := b.root
	for bit := 63; bit >= 0; bit-- {
		i := bitAt(fingerprint, bit)
		if n.children[i] == nil {
			n.children[i] = &patriciaNode{}
		}
		n = n.children[i]
	}
	if !n.leaf {
		b.n++
	}
	n.leaf = true
	n.entry = e
}

func (b *patriciaBackend) Delete(fingerprint uint64) {
	n := b.root
	for bit := 63; bit >= 0; bit-- {
		n = n.children[bitAt(fingerprint, bit)]
		if n == nil {
			return
		}
	}
	if !n.leaf {
		return
	}
	n.leaf = false
	n.entry = nil
	b.n--
}

func (b *patriciaBackend) Clear() {
	b.root = &patriciaNode{}
	b.n = 0
}

func (b *patriciaBackend) Len() int {
	return b.n
}

func bitAt(v uint64, bit int) int {
	return int((v >> uint(bit)) & 1)
}
