package ofproto

// ActionHookRegistry replaces the source's module-level function pointers
// (lagopus_register_action_hook, lagopus_add_flow_hook,
// lagopus_del_flow_hook) with a small object injected into the Flowdb at
// construction, per spec.md §9's redesign note; lagopus_find_flow_hook's
// counterpart is Flowdb.Probe, not a field here. Every field is optional; a
// nil hook is simply skipped.
type ActionHookRegistry struct {
	// GroupExists validates a GROUP action/instruction's group id against
	// the (external) group table. If nil, group ids are accepted
	// unchecked.
	GroupExists func(groupID uint32) bool
	// MeterExists validates a METER instruction's meter id against the
	// (external) meter table.
	MeterExists func(meterID uint32) bool
	// OnFlowAdded is called after a flow is durably inserted into its
	// table, mirroring lagopus_add_flow_hook.
	OnFlowAdded func(f *Flow, table *Table)
	// OnFlowRemoved is called after FlowDelete or ExpireFlow removes a flow
	// that carries OFPFF_SEND_FLOW_REM, with the OpenFlow removal reason
	// (OFPRR_*), mirroring lagopus_del_flow_hook. Removed flows without that
	// flag, and flows replaced by an identical FlowAdd, do not trigger it.
	// This is where SEND_FLOW_REM delivery to the external agent is wired in.
	OnFlowRemoved func(f *Flow, table *Table, reason uint8)
}

func (r *ActionHookRegistry) groupExists(id uint32) bool {
	if r == nil || r.GroupExists == nil {
		return true
	}
	return r.GroupExists(id)
}

func (r *ActionHookRegistry) meterExists(id uint32) bool {
	if r == nil || r.MeterExists == nil {
		return true
	}
	return r.MeterExists(id)
}

func (r *ActionHookRegistry) flowAdded(f *Flow, t *Table) {
	if r != nil && r.OnFlowAdded != nil {
		r.OnFlowAdded(f, t)
	}
}

func (r *ActionHookRegistry) flowRemoved(f *Flow, t *Table, reason uint8) {
	if r != nil && r.OnFlowRemoved != nil {
		r.OnFlowRemoved(f, t, reason)
	}
}
