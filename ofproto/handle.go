package ofproto

import "sync"

// Handle, BridgeHandle and TimerHandle replace the teacher source's cyclic
// pointer graph (flow <-> bridge <-> flowdb <-> flow-list -> flow) with
// stable 32-bit indices into arena-owned slots, per spec.md §9's
// re-architecture note. A handle pairs a slot index with a generation
// counter so a stale handle (slot freed and reused) is detected instead of
// silently resolving to the wrong flow.
type Handle struct {
	index      uint32
	generation uint32
}

func (h Handle) Valid() bool { return h.generation != 0 }

// BridgeHandle identifies the bridge that owns a flowdb; it is opaque here
// since the bridge/port config store is an external collaborator (spec.md
// §1) — flows only carry it back as a tag for removal events.
type BridgeHandle uint32

// TimerHandle is a flow's back-reference into the updater's timer wheel
// bucket, letting a flow cancel its own timeout in O(1) without the wheel
// walking every bucket to find it.
type TimerHandle struct {
	Bucket uint32
	Slot   uint32
}

// arena is a generation-tagged slot allocator for *Flow, replacing the
// source's direct pointer ownership. Freed slots are reused via a
// free-list, and the generation counter bumps on every reuse so a Handle
// captured before a free cannot resolve to the slot's new occupant.
type arena struct {
	mu     sync.RWMutex
	slots  []arenaSlot
	free   []uint32
}

type arenaSlot struct {
	flow       *Flow
	generation uint32
}

func newArena() *arena {
	return &arena{}
}

// Alloc stores f in a free slot (or grows the arena) and returns its handle.
func (a *arena) Alloc(f *Flow) Handle {
	a.mu.Lock()
	defer a.mu.Unlock()

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[idx].generation++
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, arenaSlot{generation: 1})
	}
	a.slots[idx].flow = f
	h := Handle{index: idx, generation: a.slots[idx].generation}
	f.handle = h
	return h
}

// Free releases h's slot for reuse. It is a no-op if h is already stale.
func (a *arena) Free(h Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if int(h.index) >= len(a.slots) || a.slots[h.index].generation != h.generation {
		return
	}
	a.slots[h.index].flow = nil
	a.free = append(a.free, h.index)
}

// Get resolves h to its Flow, or nil if the handle is stale.
func (a *arena) Get(h Handle) *Flow {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if int(h.index) >= len(a.slots) || a.slots[h.index].generation != h.generation {
		return nil
	}
	return a.slots[h.index].flow
}
