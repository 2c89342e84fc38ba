package cache

// Manager owns one Cache partition per classification worker and fans out
// a clear signal to all of them, replacing the DPDK broadcast this module
// has no lcore ring to reuse (see DESIGN.md's Open Question decision for
// spec.md §9). Each partition is meant to be read/written only by the
// worker it belongs to; ClearCaches only ever signals — it never touches a
// partition's map directly, preserving the single-writer discipline a
// writer-owned backend depends on.
type Manager struct {
	partitions []*Cache
	signal     []chan struct{}
}

// NewManager builds a Manager with n partitions, each backed by a Cache
// returned from newBackend. Pass NewWriterOwned for worker-owned
// partitions, or NewConcurrent/NewPatricia for a shared cache split into n
// independently-clearable shards.
func NewManager(n int, newBackend func() *Cache) *Manager {
	m := &Manager{
		partitions: make([]*Cache, n),
		signal:     make([]chan struct{}, n),
	}
	for i := 0; i < n; i++ {
		m.partitions[i] = newBackend()
		m.signal[i] = make(chan struct{}, 1)
	}
	return m
}

// Partition returns the Cache a given worker index owns.
func (m *Manager) Partition(i int) *Cache {
	return m.partitions[i]
}

// ClearSignal returns the channel a worker should select on to learn when
// to clear its own partition. The worker — not the Manager — calls Clear
// on its own Cache in response, keeping the map mutation on its owning
// goroutine.
func (m *Manager) ClearSignal(i int) <-chan struct{} {
	return m.signal[i]
}

// ClearCaches asks every partition's owner to clear it. Signals are
// non-blocking and coalesce: a worker that hasn't drained the previous
// signal yet doesn't need a second one queued behind it.
func (m *Manager) ClearCaches() {
	for _, ch := range m.signal {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Stats aggregates every partition's counters into one snapshot.
func (m *Manager) Stats() Stats {
	var total Stats
	for _, p := range m.partitions {
		s := p.Stats()
		total.Entries += s.Entries
		total.Hits += s.Hits
		total.Misses += s.Misses
	}
	return total
}
