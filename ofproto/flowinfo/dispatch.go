package flowinfo

import (
	"sync"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/openflow13"
)

// fieldDispatcher indexes flows by one OXM field's exact value, delegating
// to a child Node per distinct value plus a "misc" child for flows that
// either don't constrain the field or constrain it with a mask (so they
// can't be routed to one bucket) — original_source's per-field hash table
// plus its misc linked list.
type fieldDispatcher struct {
	mu       sync.RWMutex
	field    uint8
	keyOf    func(*ofproto.ClassifyKey) (uint64, bool)
	newChild func() Node
	children map[uint64]Node
	misc     Node
}

func newFieldDispatcher(field uint8, keyOf func(*ofproto.ClassifyKey) (uint64, bool), newChild func() Node) *fieldDispatcher {
	return &fieldDispatcher{
		field:    field,
		keyOf:    keyOf,
		newChild: newChild,
		children: make(map[uint64]Node),
	}
}

func (d *fieldDispatcher) Add(f *ofproto.Flow) error {
	value, exact, present := ofproto.FieldConstraint(f, d.field)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !present || !exact {
		if d.misc == nil {
			d.misc = d.newChild()
		}
		return d.misc.Add(f)
	}
	child, ok := d.children[value]
	if !ok {
		child = d.newChild()
		d.children[value] = child
	}
	return child.Add(f)
}

func (d *fieldDispatcher) Del(f *ofproto.Flow) error {
	value, exact, present := ofproto.FieldConstraint(f, d.field)

	d.mu.Lock()
	defer d.mu.Unlock()
	if !present || !exact {
		if d.misc == nil {
			return nil
		}
		return d.misc.Del(f)
	}
	child, ok := d.children[value]
	if !ok {
		return nil
	}
	return child.Del(f)
}

func (d *fieldDispatcher) Find(key *ofproto.ClassifyKey) (*ofproto.Flow, bool) {
	value, present := d.keyOf(key)

	d.mu.RLock()
	var child Node
	if present {
		child = d.children[value]
	}
	misc := d.misc
	d.mu.RUnlock()

	var best *ofproto.Flow
	if child != nil {
		if fl, ok := child.Find(key); ok {
			best = fl
		}
	}
	if misc != nil {
		if fl, ok := misc.Find(key); ok && (best == nil || fl.Priority > best.Priority) {
			best = fl
		}
	}
	return best, best != nil
}

func newMetadataDispatcher() Node {
	return newFieldDispatcher(openflow13.OXM_FIELD_METADATA, metadataOf, newEtherTypeDispatcher)
}

func metadataOf(key *ofproto.ClassifyKey) (uint64, bool) {
	return key.Metadata, true
}
