package ofproto

import (
	"sync/atomic"

	"github.com/contiv/ofdp/openflow13"
)

// FlowMatchTypeCountSize sizes the per-table match-type histogram up to
// and including IPV6_EXTHDR, the highest OXM field number in the closed
// enumeration (original_source's `flow_match_type_count[OFPXMT_OFB_IPV6_EXTHDR + 1]`).
const FlowMatchTypeCountSize = openflow13.OXM_FIELD_IPV6_EXTHDR + 1

// Table is one OpenFlow flow table (spec.md §3). It holds a single
// FlowList plus the lookup/matched counter pair reported over TABLE_STATS
// and the OXM table-features description reported over TABLE_FEATURES.
type Table struct {
	TableID  uint8
	Flows    *FlowList
	Features openflow13.OFPTableFeatures

	lookupCount  uint64
	matchedCount uint64

	flowMatchTypeCount [FlowMatchTypeCountSize]uint32
}

func NewTable(tableID uint8) *Table {
	return &Table{
		TableID: tableID,
		Flows:   NewFlowList(),
		Features: openflow13.OFPTableFeatures{
			TableID: tableID,
		},
	}
}

func (t *Table) LookupCount() uint64  { return atomic.LoadUint64(&t.lookupCount) }
func (t *Table) MatchedCount() uint64 { return atomic.LoadUint64(&t.matchedCount) }

// RecordLookup bumps the per-table counters (spec.md §8: "lookup_count >=
// matched_count and both are monotone non-decreasing between deletes").
func (t *Table) RecordLookup(matched bool) {
	atomic.AddUint64(&t.lookupCount, 1)
	if matched {
		atomic.AddUint64(&t.matchedCount, 1)
	}
}

func (t *Table) bumpFieldCount(field uint8, delta int32) {
	if int(field) >= len(t.flowMatchTypeCount) {
		return
	}
	if delta > 0 {
		atomic.AddUint32(&t.flowMatchTypeCount[field], uint32(delta))
	} else {
		atomic.AddUint32(&t.flowMatchTypeCount[field], ^uint32(-delta-1))
	}
}

func (t *Table) accountFlow(f *Flow, added bool) {
	delta := int32(1)
	if !added {
		delta = -1
	}
	for _, m := range f.Matches {
		t.bumpFieldCount(m.Field, delta)
	}
}

// ToTableStats builds the OFPT_MULTIPART_REPLY/OFPMP_TABLE payload for this
// table.
func (t *Table) ToTableStats() openflow13.TableStats {
	return openflow13.TableStats{
		TableId:      t.TableID,
		ActiveCount:  uint32(t.Flows.Len()),
		LookupCount:  t.LookupCount(),
		MatchedCount: t.MatchedCount(),
	}
}
