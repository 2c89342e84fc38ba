package ofproto

// Accelerator is the common interface satisfied by the three
// classification index strategies (flowinfo, mbtree, thtable; spec.md
// §4.3-§4.5). It replaces the source's function-pointer vtable
// (add_func/del_func/find_func/match_func in original flowinfo.h) with a Go
// interface per spec.md §9's explicit redesign note. A FlowList holds one
// Accelerator, built off to the side by the updater and swapped in under
// the flowdb write lock.
type Accelerator interface {
	// Add indexes f. Called only while building a fresh Accelerator from a
	// FlowList's current flow set; an Accelerator is never mutated after a
	// reader has observed it, so there is no concurrent-add concern.
	Add(f *Flow) error
	// Del removes f from the index.
	Del(f *Flow) error
	// Find returns the highest-priority flow whose match set accepts key,
	// or ok=false if none does.
	Find(key *ClassifyKey) (flow *Flow, ok bool)
}

// OffloadProbe is an optional plug-point consulted before the software
// classifier on the hot path (spec.md §9 Open Question: the source's
// lagopus_find_flow_hook is settable but never set by the shipped code;
// resolved here as a hardware-offload probe). Nil by default.
type OffloadProbe interface {
	Find(key *ClassifyKey) (flow *Flow, ok bool)
}
