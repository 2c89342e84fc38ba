// Package ofproto implements the flow table data model: flow entries,
// per-table flow lists, the table vector, and the flowdb that owns them
// under a single reader/writer lock.
package ofproto

import (
	"sort"
	"sync/atomic"
	"time"

	"github.com/contiv/ofdp/openflow13"
)

// Instruction slot indices. A flow's instruction set is compiled into this
// fixed-size vector rather than kept as a bare list, so execution never has
// to search for "the" goto-table or write-metadata instruction.
const (
	InstrIndexMeter = iota
	InstrIndexApplyActions
	InstrIndexClearActions
	InstrIndexWriteActions
	InstrIndexWriteMetadata
	InstrIndexGotoTable
	InstrIndexMax
)

// ofp_flow_mod_flags (OpenFlow 1.3 §7.3.4).
const (
	OFPFF_SEND_FLOW_REM = 1 << 0
	OFPFF_CHECK_OVERLAP = 1 << 1
	OFPFF_RESET_COUNTS  = 1 << 2
	OFPFF_NO_PKT_COUNTS = 1 << 3
	OFPFF_NO_BYT_COUNTS = 1 << 4
)

// ofp_flow_mod_command (OpenFlow 1.3 §7.3.4).
const (
	OFPFC_ADD           = 0
	OFPFC_MODIFY        = 1
	OFPFC_MODIFY_STRICT = 2
	OFPFC_DELETE        = 3
	OFPFC_DELETE_STRICT = 4
)

// ofp_flow_removed_reason (OpenFlow 1.3 §7.4.3).
const (
	OFPRR_IDLE_TIMEOUT = 0
	OFPRR_HARD_TIMEOUT = 1
	OFPRR_DELETE       = 2
	OFPRR_GROUP_DELETE = 3
)

// Flow is one flow-table entry. Priority, cookie, timeouts, flags and the
// match list are immutable after construction (a modify replaces the whole
// flow in flowdb rather than mutating fields in place, except for
// instructions under flow_modify); counters and UpdateTime are mutated by
// workers with relaxed atomics per spec.
type Flow struct {
	handle       Handle
	TableID      uint8
	Priority     int32
	Cookie       uint64
	IdleTimeout  uint16
	HardTimeout  uint16
	Flags        uint16
	Matches      []openflow13.MatchField
	Instructions [InstrIndexMax]openflow13.Instruction
	// FieldBits is a bitset of OXM field numbers present in Matches,
	// letting the classifier skip a full scan to ask "does this flow
	// constrain field X".
	FieldBits uint64

	packetCount uint64
	byteCount   uint64
	createTime  int64 // unix nanos
	updateTime  int64 // unix nanos

	Bridge      BridgeHandle
	TimerHandle TimerHandle
}

// NewFlow builds a Flow from a decoded match/instruction set, compiling the
// instruction list into the fixed slot vector and rejecting a duplicate
// instruction kind (BAD_INSTRUCTION/DUP_INST, OpenFlow 1.3 §7.2.4).
func NewFlow(tableID uint8, priority int32, cookie uint64, matches []openflow13.MatchField, instrs []openflow13.Instruction, idle, hard uint16, flags uint16) (*Flow, *openflow13.Error) {
	f := &Flow{
		TableID:     tableID,
		Priority:    priority,
		Cookie:      cookie,
		IdleTimeout: idle,
		HardTimeout: hard,
		Flags:       flags,
		Matches:     append([]openflow13.MatchField(nil), matches...),
	}
	now := time.Now().UnixNano()
	f.createTime = now
	f.updateTime = now

	for _, m := range f.Matches {
		f.FieldBits |= 1 << uint64(m.Field)
	}

	for _, instr := range instrs {
		idx, ok := instrIndex(instr)
		if !ok {
			return nil, openflow13.NewError(openflow13.OFPET_BAD_INSTRUCTION, openflow13.OFPBIC_UNKNOWN_INST)
		}
		if f.Instructions[idx] != nil {
			return nil, openflow13.NewError(openflow13.OFPET_BAD_INSTRUCTION, openflow13.OFPBIC_DUP_INST)
		}
		f.Instructions[idx] = instr
	}
	return f, nil
}

func instrIndex(instr openflow13.Instruction) (int, bool) {
	switch instr.GetInstrType() {
	case openflow13.OFPIT_METER:
		return InstrIndexMeter, true
	case openflow13.OFPIT_APPLY_ACTIONS:
		return InstrIndexApplyActions, true
	case openflow13.OFPIT_CLEAR_ACTIONS:
		return InstrIndexClearActions, true
	case openflow13.OFPIT_WRITE_ACTIONS:
		return InstrIndexWriteActions, true
	case openflow13.OFPIT_WRITE_METADATA:
		return InstrIndexWriteMetadata, true
	case openflow13.OFPIT_GOTO_TABLE:
		return InstrIndexGotoTable, true
	default:
		return 0, false
	}
}

func (f *Flow) PacketCount() uint64 { return atomic.LoadUint64(&f.packetCount) }
func (f *Flow) ByteCount() uint64   { return atomic.LoadUint64(&f.byteCount) }

// AddStats bumps the per-flow counters; called from the worker hot path, so
// it never takes a lock.
func (f *Flow) AddStats(packets, bytes uint64) {
	atomic.AddUint64(&f.packetCount, packets)
	atomic.AddUint64(&f.byteCount, bytes)
	atomic.StoreInt64(&f.updateTime, time.Now().UnixNano())
}

func (f *Flow) CreateTime() time.Time { return time.Unix(0, f.createTime) }
func (f *Flow) UpdateTime() time.Time { return time.Unix(0, atomic.LoadInt64(&f.updateTime)) }

// DurationSec is the FLOW_STATS_REQUEST duration_sec field.
func (f *Flow) DurationSec() uint32 {
	return uint32(time.Since(f.CreateTime()) / time.Second)
}

func (f *Flow) Handle() Handle { return f.handle }

// matchKey canonicalizes the match set for STRICT-equality and ADD-replace
// comparisons: sorted by OXM field number, concatenating each field's
// number, a has-mask flag byte, the mask bytes (if any) and the value bytes.
func (f *Flow) matchKey() string {
	return matchSetKey(f.Matches)
}

func matchSetKey(matches []openflow13.MatchField) string {
	sorted := append([]openflow13.MatchField(nil), matches...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Field < sorted[j].Field })
	var buf []byte
	for _, m := range sorted {
		buf = append(buf, byte(m.Field))
		if m.HasMask {
			buf = append(buf, 1)
			buf = append(buf, m.Mask...)
		} else {
			buf = append(buf, 0)
		}
		buf = append(buf, m.Value...)
	}
	return string(buf)
}

// sameMatchSet reports whether two flows have byte-identical match sets,
// the STRICT-modify/STRICT-delete equality test.
func sameMatchSet(a, b []openflow13.MatchField) bool {
	return matchSetKey(a) == matchSetKey(b)
}

// effectiveValueMask returns a field's value and mask bytes, treating an
// unmasked field as an exact match (all-ones mask).
func effectiveValueMask(f openflow13.MatchField) (value, mask []byte) {
	if f.HasMask {
		return f.Value, f.Mask
	}
	ones := make([]byte, len(f.Value))
	for i := range ones {
		ones[i] = 0xff
	}
	return f.Value, ones
}

func fieldsOverlap(a, b openflow13.MatchField) bool {
	av, am := effectiveValueMask(a)
	bv, bm := effectiveValueMask(b)
	if len(av) != len(bv) {
		return true
	}
	for i := range av {
		common := am[i] & bm[i]
		if av[i]&common != bv[i]&common {
			return false
		}
	}
	return true
}

// matchSetsOverlap reports whether there exists a packet that both match
// sets would accept: every field present in both sets must overlap; a
// field present in only one set is a don't-care for the other (OpenFlow
// 1.3 §6.4 overlap semantics for CHECK_OVERLAP).
func matchSetsOverlap(a, b []openflow13.MatchField) bool {
	bf := make(map[uint8]openflow13.MatchField, len(b))
	for _, m := range b {
		bf[m.Field] = m
	}
	for _, ma := range a {
		if mb, ok := bf[ma.Field]; ok {
			if !fieldsOverlap(ma, mb) {
				return false
			}
		}
	}
	return true
}

// matchSetSuperset reports whether flow set a is a superset of selector set
// b: every field b constrains, a constrains identically (non-STRICT modify
// and delete selector semantics).
func matchSetSuperset(a, b []openflow13.MatchField) bool {
	af := make(map[uint8]openflow13.MatchField, len(a))
	for _, m := range a {
		af[m.Field] = m
	}
	for _, mb := range b {
		ma, ok := af[mb.Field]
		if !ok {
			return false
		}
		av, amask := effectiveValueMask(ma)
		bv, bmask := effectiveValueMask(mb)
		if len(av) != len(bv) || string(amask) != string(bmask) {
			return false
		}
		for i := range av {
			if av[i]&amask[i] != bv[i]&amask[i] {
				return false
			}
		}
	}
	return true
}

func (f *Flow) cookieMatches(cookie, mask uint64) bool {
	if mask == 0 {
		return true
	}
	return f.Cookie&mask == cookie&mask
}
