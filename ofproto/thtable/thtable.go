// Package thtable implements the tuple-hash classification index
// (original_source's thtable.h/thtable_timer.c): flows that fully and
// exactly constrain some set of OXM fields (no wildcards) are grouped by
// that field set — a "tuple signature" — and hashed within the group on
// their field values. A lookup computes the packet's value for every
// signature present in the table and probes each group's hash, keeping the
// highest-priority hit; flows that wildcard at least one field can't be
// hashed and fall into a linear-scan overflow list instead.
//
// thtable is rebuilt on its own 1-2s timer, independent of mbtree's
// change-debounced rebuild (thtable_timer.c's add_thtable_timer), since its
// cost is dominated by rehashing rather than by tree-shape statistics.
package thtable

import (
	"sort"
	"strings"
	"sync"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/ofproto/flowinfo"
)

// Table is the tuple-hash index; it satisfies ofproto.Accelerator.
type Table struct {
	mu       sync.RWMutex
	groups   map[string]*group
	overflow *flowinfo.Basic
}

type group struct {
	fields []uint8
	index  map[string][]*ofproto.Flow
}

// Build groups flows into Table from a flow-list snapshot.
func Build(flows []*ofproto.Flow) *Table {
	t := &Table{groups: make(map[string]*group), overflow: flowinfo.NewBasic()}
	for _, f := range flows {
		t.Add(f)
	}
	return t
}

func (t *Table) Add(f *ofproto.Flow) error {
	fields, ok := exactFields(f)
	if !ok {
		return t.overflow.Add(f)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	sig := signatureKey(fields)
	g, ok := t.groups[sig]
	if !ok {
		g = &group{fields: fields, index: make(map[string][]*ofproto.Flow)}
		t.groups[sig] = g
	}
	key := valueKey(f, fields)
	g.index[key] = append(g.index[key], f)
	return nil
}

func (t *Table) Del(f *ofproto.Flow) error {
	fields, ok := exactFields(f)
	if !ok {
		return t.overflow.Del(f)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	sig := signatureKey(fields)
	g, ok := t.groups[sig]
	if !ok {
		return nil
	}
	key := valueKey(f, fields)
	flows := g.index[key]
	for i, existing := range flows {
		if existing == f {
			g.index[key] = append(flows[:i], flows[i+1:]...)
			break
		}
	}
	if len(g.index[key]) == 0 {
		delete(g.index, key)
	}
	return nil
}

// Find enumerates every tuple signature present in the table, probes each
// group's hash with the packet's value for that signature, and keeps the
// highest-priority hit across every group plus the overflow scan.
func (t *Table) Find(key *ofproto.ClassifyKey) (*ofproto.Flow, bool) {
	t.mu.RLock()
	groups := make([]*group, 0, len(t.groups))
	for _, g := range t.groups {
		groups = append(groups, g)
	}
	t.mu.RUnlock()

	var best *ofproto.Flow
	for _, g := range groups {
		lookup, ok := packetKey(g.fields, key)
		if !ok {
			continue
		}
		t.mu.RLock()
		flows := g.index[lookup]
		t.mu.RUnlock()
		for _, fl := range flows {
			if best == nil || fl.Priority > best.Priority {
				best = fl
			}
		}
	}
	if fl, ok := t.overflow.Find(key); ok && (best == nil || fl.Priority > best.Priority) {
		best = fl
	}
	return best, best != nil
}

// exactFields reports the sorted OXM field numbers f constrains, failing if
// any field carries a mask narrower than all-ones — such a flow cannot be
// placed in an exact-match hash group.
func exactFields(f *ofproto.Flow) ([]uint8, bool) {
	fields := make([]uint8, 0, len(f.Matches))
	for _, m := range f.Matches {
		if m.HasMask && !allOnes(m.Mask) {
			return nil, false
		}
		fields = append(fields, m.Field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i] < fields[j] })
	return fields, true
}

func allOnes(mask []byte) bool {
	for _, b := range mask {
		if b != 0xff {
			return false
		}
	}
	return true
}

func signatureKey(fields []uint8) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteByte(f)
	}
	return b.String()
}

// valueKey builds the canonical tuple key for f's own values, in fields
// order (fields is already sorted, and is exactly the set f constrains, so
// every lookup succeeds).
func valueKey(f *ofproto.Flow, fields []uint8) string {
	var b strings.Builder
	for _, field := range fields {
		for _, m := range f.Matches {
			if m.Field == field {
				b.Write(m.Value)
				break
			}
		}
	}
	return b.String()
}

// packetKey builds the same canonical key from a classified packet; ok is
// false if the packet is missing a header one of fields needs, meaning this
// group cannot possibly match.
func packetKey(fields []uint8, key *ofproto.ClassifyKey) (string, bool) {
	var b strings.Builder
	for _, field := range fields {
		raw, ok := ofproto.FieldBytes(field, key)
		if !ok {
			return "", false
		}
		b.Write(raw)
	}
	return b.String(), true
}
