package ofproto

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/contiv/ofdp/openflow13"
)

// FlowdbTableSizeMax is the length of the table vector, indexed directly by
// table ids 0..254. FlowAdd, FlowModify and FlowDelete reject only ids at or
// above it (255, OFPTT_ALL), so 254 (OFPTT_MAX) is accepted and stored like
// any other table id; the stats paths treat OFPTT_ALL as every table.
const FlowdbTableSizeMax = 255

// SwitchMode controls classifier-miss behavior (spec.md §7).
type SwitchMode int

const (
	SwitchModeOpenFlow SwitchMode = iota
	SwitchModeSecure
	SwitchModeStandalone
)

// Flowdb is a fixed-size vector of tables plus the reader/writer lock and
// switch-mode enum spec.md §3 names. Flow table mutation is single-writer
// (the write lock is held only across one flow_mod, per spec.md §5).
// Classify does not hold this lock across a lookup; it reads the table's
// FlowList under that list's own read lock.
type Flowdb struct {
	mu     sync.RWMutex
	tables [FlowdbTableSizeMax]*Table
	mode   SwitchMode
	arena  *arena

	Hooks *ActionHookRegistry
	Probe OffloadProbe

	// OnStale is invoked after a successful mutation, once per affected
	// table, so an updater (a separate package, to avoid an import cycle
	// back into ofproto) can schedule a debounced rebuild. Nil is a valid
	// no-op default.
	OnStale func(tableID uint8, fl *FlowList)

	// OnMutate is invoked synchronously in the same spots as OnStale,
	// before the write lock in markStale's caller is released. Spec.md §3's
	// cache-coherence invariant requires every cache entry that could
	// reference the mutated table to be invalidated before the next lookup
	// observes the change, and §4.6 assigns that to the writer ("on
	// flow-table mutation the writer clears all entries"), not to the next
	// barrier. Nil is a valid no-op default.
	OnMutate func(tableID uint8)
}

func NewFlowdb() *Flowdb {
	return &Flowdb{arena: newArena()}
}

func (db *Flowdb) SwitchMode() SwitchMode {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.mode
}

func (db *Flowdb) SetSwitchMode(m SwitchMode) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.mode = m
}

// Table returns the table for tableID, allocating it on first use.
func (db *Flowdb) Table(tableID uint8) *Table {
	db.mu.RLock()
	t := db.tables[tableID]
	db.mu.RUnlock()
	if t != nil {
		return t
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.tables[tableID] == nil {
		db.tables[tableID] = NewTable(tableID)
	}
	return db.tables[tableID]
}

func (db *Flowdb) markStale(t *Table) {
	t.Flows.Stale = true
	if db.OnStale != nil {
		db.OnStale(t.TableID, t.Flows)
	}
	if db.OnMutate != nil {
		db.OnMutate(t.TableID)
	}
}

// FlowModRequest is the ofp_flow_mod payload flowdb operations act on.
type FlowModRequest struct {
	TableID     uint8
	Command     uint8
	Priority    int32
	Cookie      uint64
	CookieMask  uint64
	IdleTimeout uint16
	HardTimeout uint16
	Flags       uint16
	OutPort     uint32
	OutGroup    uint32
	Matches     []openflow13.MatchField
	Instructions []openflow13.Instruction
}

// validateInstructions checks every GROUP action and METER instruction
// against the registered hooks (spec.md §4.2: "rejects ... a flow whose
// actions reference a non-existent group").
func (db *Flowdb) validateInstructions(instrs [InstrIndexMax]openflow13.Instruction) *openflow13.Error {
	for _, idx := range []int{InstrIndexApplyActions, InstrIndexWriteActions, InstrIndexClearActions} {
		instr := instrs[idx]
		if instr == nil {
			continue
		}
		actions, ok := instr.(*openflow13.InstrActions)
		if !ok {
			continue
		}
		for _, act := range actions.Actions {
			if grp, ok := act.(*openflow13.ActionGroup); ok {
				if !db.Hooks.groupExists(grp.GroupId) {
					return openflow13.NewError(openflow13.OFPET_BAD_ACTION, openflow13.OFPBAC_BAD_OUT_GROUP)
				}
			}
		}
	}
	if meter, ok := instrs[InstrIndexMeter].(*openflow13.InstrMeter); ok {
		if !db.Hooks.meterExists(meter.MeterId) {
			return openflow13.NewError(openflow13.OFPET_BAD_INSTRUCTION, openflow13.OFPBIC_UNSUP_INST)
		}
	}
	return nil
}

// FlowAdd implements flowdb_flow_add (spec.md §4.2).
func (db *Flowdb) FlowAdd(req *FlowModRequest) *openflow13.Error {
	if req.TableID >= FlowdbTableSizeMax {
		return openflow13.NewError(openflow13.OFPET_FLOW_MOD_FAILED, openflow13.OFPFMFC_BAD_TABLE_ID)
	}
	if err := validateNoDupFields(req.Matches); err != nil {
		return err
	}
	if err := validatePrereqs(req.Matches); err != nil {
		return err
	}

	f, ferr := NewFlow(req.TableID, req.Priority, req.Cookie, req.Matches, req.Instructions, req.IdleTimeout, req.HardTimeout, req.Flags)
	if ferr != nil {
		return ferr
	}
	if err := db.validateInstructions(f.Instructions); err != nil {
		return err
	}

	t := db.Table(req.TableID)

	db.mu.Lock()
	defer db.mu.Unlock()

	if req.Flags&OFPFF_CHECK_OVERLAP != 0 && t.Flows.Overlaps(req.Priority, req.Matches) {
		return openflow13.NewError(openflow13.OFPET_FLOW_MOD_FAILED, openflow13.OFPFMFC_OVERLAP)
	}

	replaced := t.Flows.Insert(f)
	db.arena.Alloc(f)
	if replaced != nil {
		t.accountFlow(replaced, false)
		db.arena.Free(replaced.Handle())
	}
	t.accountFlow(f, true)
	db.markStale(t)
	db.Hooks.flowAdded(f, t)

	log.WithFields(log.Fields{"table": req.TableID, "priority": req.Priority}).Debug("flow added")
	return nil
}

// FlowModify implements flowdb_flow_modify: replaces the instruction set of
// every targeted flow without touching counters, timeouts, or match list
// (spec.md §4.2).
func (db *Flowdb) FlowModify(req *FlowModRequest, strict bool) *openflow13.Error {
	if req.TableID >= FlowdbTableSizeMax {
		return openflow13.NewError(openflow13.OFPET_FLOW_MOD_FAILED, openflow13.OFPFMFC_BAD_TABLE_ID)
	}

	newInstrs, ferr := compileInstructions(req.Instructions)
	if ferr != nil {
		return ferr
	}
	if err := db.validateInstructions(newInstrs); err != nil {
		return err
	}

	t := db.Table(req.TableID)

	db.mu.Lock()
	defer db.mu.Unlock()

	t.Flows.Each(func(f *Flow) {
		if !f.cookieMatches(req.Cookie, req.CookieMask) {
			return
		}
		if strict {
			if f.Priority != req.Priority || !sameMatchSet(f.Matches, req.Matches) {
				return
			}
		} else if !matchSetSuperset(f.Matches, req.Matches) {
			return
		}
		f.Instructions = newInstrs
	})
	db.markStale(t)
	return nil
}

// FlowDelete implements flowdb_flow_delete (spec.md §4.2): removes every
// flow matching the selector, honoring SEND_FLOW_REM via the removal hook.
func (db *Flowdb) FlowDelete(req *FlowModRequest, strict bool) *openflow13.Error {
	if req.TableID >= FlowdbTableSizeMax {
		return openflow13.NewError(openflow13.OFPET_FLOW_MOD_FAILED, openflow13.OFPFMFC_BAD_TABLE_ID)
	}
	t := db.Table(req.TableID)

	db.mu.Lock()
	defer db.mu.Unlock()

	removed := t.Flows.Remove(func(f *Flow) bool {
		if !f.cookieMatches(req.Cookie, req.CookieMask) {
			return false
		}
		if strict {
			if f.Priority != req.Priority || !sameMatchSet(f.Matches, req.Matches) {
				return false
			}
		} else if !matchSetSuperset(f.Matches, req.Matches) {
			return false
		}
		if req.OutPort != 0 && req.OutPort != openflow13.P_ANY && !flowOutputsToPort(f, req.OutPort) {
			return false
		}
		if req.OutGroup != 0 && req.OutGroup != openflow13.P_ANY && !flowOutputsToGroup(f, req.OutGroup) {
			return false
		}
		return true
	})

	for _, f := range removed {
		t.accountFlow(f, false)
		db.arena.Free(f.Handle())
		reason := uint8(OFPRR_DELETE)
		if f.Flags&OFPFF_SEND_FLOW_REM != 0 {
			db.Hooks.flowRemoved(f, t, reason)
		}
	}
	if len(removed) > 0 {
		db.markStale(t)
	}
	return nil
}

// ExpireFlow removes one specific flow by identity, used by the updater's
// timer wheel when a flow's idle or hard timeout fires (spec.md §5: "an
// expired flow is removed with reason IDLE_TIMEOUT or HARD_TIMEOUT"). Unlike
// FlowDelete, which matches a FlowModRequest selector and always reports
// OFPRR_DELETE, the caller already knows exactly which flow and why.
func (db *Flowdb) ExpireFlow(f *Flow, reason uint8) {
	t := db.Table(f.TableID)

	db.mu.Lock()
	defer db.mu.Unlock()

	removed := t.Flows.Remove(func(candidate *Flow) bool {
		return candidate == f
	})
	if len(removed) == 0 {
		return
	}

	t.accountFlow(f, false)
	db.arena.Free(f.Handle())
	if f.Flags&OFPFF_SEND_FLOW_REM != 0 {
		db.Hooks.flowRemoved(f, t, reason)
	}
	db.markStale(t)
}

func flowOutputsToPort(f *Flow, port uint32) bool {
	for _, idx := range []int{InstrIndexApplyActions, InstrIndexWriteActions} {
		actions, ok := f.Instructions[idx].(*openflow13.InstrActions)
		if !ok {
			continue
		}
		for _, act := range actions.Actions {
			if out, ok := act.(*openflow13.ActionOutput); ok && out.Port == port {
				return true
			}
		}
	}
	return false
}

func flowOutputsToGroup(f *Flow, group uint32) bool {
	for _, idx := range []int{InstrIndexApplyActions, InstrIndexWriteActions} {
		actions, ok := f.Instructions[idx].(*openflow13.InstrActions)
		if !ok {
			continue
		}
		for _, act := range actions.Actions {
			if grp, ok := act.(*openflow13.ActionGroup); ok && grp.GroupId == group {
				return true
			}
		}
	}
	return false
}

// compileInstructions validates and slots a fresh instruction list, the
// part of NewFlow that flow_modify also needs without rebuilding the whole
// Flow.
func compileInstructions(instrs []openflow13.Instruction) (out [InstrIndexMax]openflow13.Instruction, ferr *openflow13.Error) {
	for _, instr := range instrs {
		idx, ok := instrIndex(instr)
		if !ok {
			return out, openflow13.NewError(openflow13.OFPET_BAD_INSTRUCTION, openflow13.OFPBIC_UNKNOWN_INST)
		}
		if out[idx] != nil {
			return out, openflow13.NewError(openflow13.OFPET_BAD_INSTRUCTION, openflow13.OFPBIC_DUP_INST)
		}
		out[idx] = instr
	}
	return out, nil
}

// FlowStats implements flowdb_flow_stats: collects FlowStats for every flow
// in req.TableID (or every table, for OFPTT_ALL) matching req's selector.
func (db *Flowdb) FlowStats(req *openflow13.FlowStatsRequest, selector []openflow13.MatchField) []openflow13.FlowStats {
	var out []openflow13.FlowStats
	db.forEachSelectedTable(req.TableId, func(t *Table) {
		t.RecordLookup(false)
		t.Flows.Each(func(f *Flow) {
			if !f.cookieMatches(req.Cookie, req.CookieMask) {
				return
			}
			if !matchSetSuperset(f.Matches, selector) {
				return
			}
			out = append(out, db.toFlowStats(f))
		})
	})
	return out
}

// AggregateStats implements flowdb_aggregate_stats.
func (db *Flowdb) AggregateStats(req *openflow13.AggregateStatsRequest, selector []openflow13.MatchField) openflow13.AggregateStats {
	var agg openflow13.AggregateStats
	db.forEachSelectedTable(req.TableId, func(t *Table) {
		t.Flows.Each(func(f *Flow) {
			if !f.cookieMatches(req.Cookie, req.CookieMask) {
				return
			}
			if !matchSetSuperset(f.Matches, selector) {
				return
			}
			agg.PacketCount += f.PacketCount()
			agg.ByteCount += f.ByteCount()
			agg.FlowCount++
		})
	})
	return agg
}

// TableStats implements flowdb_table_stats.
func (db *Flowdb) TableStats() []openflow13.TableStats {
	var out []openflow13.TableStats
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, t := range db.tables {
		if t == nil {
			continue
		}
		out = append(out, t.ToTableStats())
	}
	return out
}

// GetTableFeatures implements flowdb_get_table_features.
func (db *Flowdb) GetTableFeatures() []openflow13.OFPTableFeatures {
	var out []openflow13.OFPTableFeatures
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, t := range db.tables {
		if t == nil {
			continue
		}
		out = append(out, t.Features)
	}
	return out
}

func (db *Flowdb) forEachSelectedTable(tableID uint8, fn func(*Table)) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if tableID == openflow13.OFPTT_ALL {
		for _, t := range db.tables {
			if t != nil {
				fn(t)
			}
		}
		return
	}
	if t := db.tables[tableID]; t != nil {
		fn(t)
	}
}

func (db *Flowdb) toFlowStats(f *Flow) openflow13.FlowStats {
	m := openflow13.NewMatch()
	for _, field := range f.Matches {
		m.AddField(field)
	}
	return openflow13.FlowStats{
		TableId:      f.TableID,
		DurationSec:  f.DurationSec(),
		Priority:     uint16(f.Priority),
		IdleTimeout:  f.IdleTimeout,
		HardTimeout:  f.HardTimeout,
		Flags:        f.Flags,
		Cookie:       f.Cookie,
		PacketCount:  f.PacketCount(),
		ByteCount:    f.ByteCount(),
		Match:        *m,
	}
}

// Classify runs the classifier for one packet against a single table:
// consults the OffloadProbe first if one is installed, then the table's
// FlowList (accelerator or linear fallback). matchFn is supplied by the
// caller (ofproto/flowinfo, mbtree, thtable callers compose their own
// comparison, but a plain caller can pass a basic per-field comparison).
func (db *Flowdb) Classify(tableID uint8, key *ClassifyKey, matchFn func(*Flow, *ClassifyKey) bool) (*Flow, bool) {
	if db.Probe != nil {
		if f, ok := db.Probe.Find(key); ok {
			return f, true
		}
	}
	t := db.Table(tableID)
	f, ok := t.Flows.Find(key, matchFn)
	t.RecordLookup(ok)
	return f, ok
}
