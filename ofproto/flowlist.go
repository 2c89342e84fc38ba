package ofproto

import (
	"sort"
	"sync"

	"github.com/contiv/ofdp/openflow13"
)

// FlowList is an ordered collection of flows for one table, augmented with
// an optional acceleration index (spec.md §3 "Flow list"). Flows are kept
// sorted by descending priority; ties keep insertion order, which is
// stable across calls on the same table revision as spec.md §3's priority
// invariant requires.
type FlowList struct {
	mu    sync.RWMutex
	flows []*Flow

	// Stale is set whenever the flow set changes and cleared once the
	// updater rebuilds Accel off to the side and swaps it in under this
	// FlowList's own write lock (MarkRebuilt).
	Stale bool
	Accel Accelerator
}

func NewFlowList() *FlowList {
	return &FlowList{}
}

// Insert adds f in priority order. If an existing flow has the same
// priority and an identical match set, it is replaced in place (spec.md
// §4.2's ADD-replace rule) and the displaced flow is returned.
func (fl *FlowList) Insert(f *Flow) (replaced *Flow) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	for i, existing := range fl.flows {
		if existing.Priority == f.Priority && sameMatchSet(existing.Matches, f.Matches) {
			fl.flows[i] = f
			fl.Stale = true
			return existing
		}
	}

	idx := sort.Search(len(fl.flows), func(i int) bool {
		return fl.flows[i].Priority < f.Priority
	})
	fl.flows = append(fl.flows, nil)
	copy(fl.flows[idx+1:], fl.flows[idx:])
	fl.flows[idx] = f
	fl.Stale = true
	return nil
}

// Remove deletes every flow for which match returns true, returning the
// removed flows.
func (fl *FlowList) Remove(match func(*Flow) bool) []*Flow {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	var removed []*Flow
	kept := fl.flows[:0]
	for _, f := range fl.flows {
		if match(f) {
			removed = append(removed, f)
		} else {
			kept = append(kept, f)
		}
	}
	fl.flows = kept
	if len(removed) > 0 {
		fl.Stale = true
	}
	return removed
}

// Overlaps reports whether any flow at the given priority has a match set
// intersecting m (CHECK_OVERLAP, spec.md §4.2).
func (fl *FlowList) Overlaps(priority int32, m []openflow13.MatchField) bool {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	for _, f := range fl.flows {
		if f.Priority == priority && matchSetsOverlap(f.Matches, m) {
			return true
		}
	}
	return false
}

// Each calls fn for every flow in priority order, holding the read lock for
// the duration — used by strict/non-strict modify and stats scans
// that must see a single consistent snapshot.
func (fl *FlowList) Each(fn func(*Flow)) {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	for _, f := range fl.flows {
		fn(f)
	}
}

// Len returns the current flow count.
func (fl *FlowList) Len() int {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	return len(fl.flows)
}

// Snapshot returns the current flows as priority-ordered slice; callers
// must not mutate it.
func (fl *FlowList) Snapshot() []*Flow {
	fl.mu.RLock()
	defer fl.mu.RUnlock()
	out := make([]*Flow, len(fl.flows))
	copy(out, fl.flows)
	return out
}

// MarkRebuilt installs a freshly built accelerator and clears Stale; called
// by the updater after building the new index off to the side (spec.md
// §4.7's "produce the new index off to the side, then swap the pointer
// under the write lock").
func (fl *FlowList) MarkRebuilt(accel Accelerator) {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	fl.Accel = accel
	fl.Stale = false
}

// Find classifies key against the flow list's accelerator if one is
// installed and fresh; otherwise it falls back to a linear scan over the
// sorted flow list, which is always correct (if slower) since flows remain
// priority-ordered.
func (fl *FlowList) Find(key *ClassifyKey, matchFn func(*Flow, *ClassifyKey) bool) (*Flow, bool) {
	fl.mu.RLock()
	accel, stale := fl.Accel, fl.Stale
	flows := fl.flows
	fl.mu.RUnlock()

	if accel != nil && !stale {
		return accel.Find(key)
	}
	for _, f := range flows {
		if matchFn(f, key) {
			return f, true
		}
	}
	return nil, false
}
