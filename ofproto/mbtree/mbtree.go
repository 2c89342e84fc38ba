// Package mbtree implements the statistics-driven multi-branch
// classification tree (original_source's mbtree.c): given a snapshot of a
// table's flows, it picks, at each level, whichever OXM field the most
// flows constrain with an exact value, partitions flows into per-value
// buckets plus a don't-care bucket, and recurses. A group small enough that
// indexing it further wouldn't pay for itself reverts to a flowinfo.Basic
// linear scan, exactly the original's leaf behavior.
package mbtree

import (
	"sync"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/ofproto/flowinfo"
	"github.com/contiv/ofdp/openflow13"
)

// DefaultThreshold mirrors the original's build_mbtree: a group with this
// many flows or fewer is cheaper to scan linearly than to index further.
const DefaultThreshold = 5

// DefaultCandidateFields is the set of fields build statistics over, in the
// order ties are broken. MPLS_LABEL and PBB_ISID are deliberately absent:
// original_source special-cases MPLS/PBB ether types by merging them into
// the don't-care branch rather than indexing on the shim header, since a
// flow matching on an MPLS label almost always also wants the don't-care
// ether-type bucket to remain reachable for outer IP traffic.
var DefaultCandidateFields = []uint8{
	openflow13.OXM_FIELD_ETH_TYPE,
	openflow13.OXM_FIELD_IP_PROTO,
	openflow13.OXM_FIELD_IPV4_SRC,
	openflow13.OXM_FIELD_IPV4_DST,
	openflow13.OXM_FIELD_TCP_SRC,
	openflow13.OXM_FIELD_TCP_DST,
	openflow13.OXM_FIELD_UDP_SRC,
	openflow13.OXM_FIELD_UDP_DST,
	openflow13.OXM_FIELD_ARP_SPA,
	openflow13.OXM_FIELD_ARP_TPA,
}

// Build turns a flow snapshot into a classification index, recursing with
// DefaultThreshold and DefaultCandidateFields.
func Build(flows []*ofproto.Flow) ofproto.Accelerator {
	return build(flows, DefaultCandidateFields, DefaultThreshold)
}

func build(flows []*ofproto.Flow, candidates []uint8, threshold int) ofproto.Accelerator {
	if len(flows) <= threshold || len(candidates) == 0 {
		return toBasic(flows)
	}

	field, selectivity := pickField(flows, candidates)
	if selectivity == 0 {
		return toBasic(flows)
	}

	groups := make(map[uint64][]*ofproto.Flow)
	var dontcare []*ofproto.Flow
	for _, f := range flows {
		value, exact, present := ofproto.FieldConstraint(f, field)
		if present && exact {
			groups[value] = append(groups[value], f)
		} else {
			dontcare = append(dontcare, f)
		}
	}

	remaining := without(candidates, field)
	node := &node{field: field, dispatch: make(map[uint64]ofproto.Accelerator, len(groups))}
	for value, group := range groups {
		node.dispatch[value] = build(group, remaining, threshold)
	}
	if len(dontcare) > 0 {
		node.dontcare = build(dontcare, remaining, threshold)
	}
	return node
}

func toBasic(flows []*ofproto.Flow) ofproto.Accelerator {
	b := flowinfo.NewBasic()
	for _, f := range flows {
		b.Add(f)
	}
	return b
}

// pickField returns whichever candidate the largest number of flows
// constrain with an exact value (original_source's per-field match
// statistics pass), and that count as its selectivity. A zero selectivity
// means no remaining candidate field narrows this group at all; field is
// meaningless in that case (best starts at -1, so a 0-count field still
// wins the first comparison), but build bails on selectivity==0 before
// using it.
func pickField(flows []*ofproto.Flow, candidates []uint8) (field uint8, selectivity int) {
	best := -1
	for _, c := range candidates {
		count := 0
		for _, f := range flows {
			if _, exact, present := ofproto.FieldConstraint(f, c); present && exact {
				count++
			}
		}
		if count > best {
			best, field = count, c
		}
	}
	return field, best
}

func without(fields []uint8, drop uint8) []uint8 {
	out := make([]uint8, 0, len(fields))
	for _, f := range fields {
		if f != drop {
			out = append(out, f)
		}
	}
	return out
}

// node is one level of the tree: flows are routed on field's exact value,
// falling to dontcare when the packet (or, for Add/Del, the flow) doesn't
// pin the field down.
type node struct {
	mu       sync.RWMutex
	field    uint8
	dispatch map[uint64]ofproto.Accelerator
	dontcare ofproto.Accelerator
}

func (n *node) Add(f *ofproto.Flow) error {
	value, exact, present := ofproto.FieldConstraint(f, n.field)

	n.mu.Lock()
	defer n.mu.Unlock()
	if !present || !exact {
		if n.dontcare == nil {
			n.dontcare = flowinfo.NewBasic()
		}
		return n.dontcare.Add(f)
	}
	child, ok := n.dispatch[value]
	if !ok {
		child = flowinfo.NewBasic()
		n.dispatch[value] = child
	}
	return child.Add(f)
}

func (n *node) Del(f *ofproto.Flow) error {
	value, exact, present := ofproto.FieldConstraint(f, n.field)

	n.mu.RLock()
	defer n.mu.RUnlock()
	if !present || !exact {
		if n.dontcare == nil {
			return nil
		}
		return n.dontcare.Del(f)
	}
	if child, ok := n.dispatch[value]; ok {
		return child.Del(f)
	}
	return nil
}

func (n *node) Find(key *ofproto.ClassifyKey) (*ofproto.Flow, bool) {
	value, present := fieldValueOf(n.field, key)

	n.mu.RLock()
	var child ofproto.Accelerator
	if present {
		child = n.dispatch[value]
	}
	dontcare := n.dontcare
	n.mu.RUnlock()

	var best *ofproto.Flow
	if child != nil {
		if fl, ok := child.Find(key); ok {
			best = fl
		}
	}
	if dontcare != nil {
		if fl, ok := dontcare.Find(key); ok && (best == nil || fl.Priority > best.Priority) {
			best = fl
		}
	}
	return best, best != nil
}

// fieldValueOf extracts the field mbtree dispatches key on; ether_type and
// ip_proto cover the overwhelming majority of real traffic mixes, so those
// two are fast-pathed directly off the ClassifyKey's OOB scalars and
// ofproto.IPProto, while the remaining address and transport-port
// candidates go through
// ofproto's generic field-descriptor extraction.
func fieldValueOf(field uint8, key *ofproto.ClassifyKey) (uint64, bool) {
	switch field {
	case openflow13.OXM_FIELD_ETH_TYPE:
		return uint64(key.EtherType), true
	case openflow13.OXM_FIELD_IP_PROTO:
		proto, ok := ofproto.IPProto(key)
		return uint64(proto), ok
	default:
		return ofproto.FieldValueAt(field, key)
	}
}
