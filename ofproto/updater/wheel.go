package updater

import (
	"sync"
	"time"

	"github.com/contiv/ofdp/ofproto"
)

// Wheel is the dataplane timer wheel (spec.md §4.7): flows with a non-zero
// idle or hard timeout register themselves into the bucket for their next
// candidate deadline, keyed by absolute Unix second. A flow carries its own
// Bucket/Slot back-reference (ofproto.TimerHandle) so Cancel never has to
// search a bucket to find it.
//
// Idle timeouts are not actively rescheduled on every packet: Register/Tick
// simply re-derive the deadline from the flow's current UpdateTime each
// time its bucket comes due, and re-insert into a later bucket if traffic
// pushed the deadline forward. A flow fires as soon as either its hard or
// its idle deadline has passed, the hard timeout being checked first.
type Wheel struct {
	mu      sync.Mutex
	buckets map[uint32][]*ofproto.Flow
}

func NewWheel() *Wheel {
	return &Wheel{buckets: make(map[uint32][]*ofproto.Flow)}
}

// Expired is one flow the wheel has determined should be removed.
type Expired struct {
	Flow   *ofproto.Flow
	Reason uint8
}

// Register arms f's timeout tracking. A flow with neither timeout set is
// not inserted at all.
func (w *Wheel) Register(f *ofproto.Flow, now time.Time) {
	if f.IdleTimeout == 0 && f.HardTimeout == 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.insert(f, nextDeadline(f, now))
}

// Cancel removes f from the wheel. The updater calls it from the flowdb's
// OnFlowRemoved hook, so it runs only for removed flows that carry
// OFPFF_SEND_FLOW_REM; other removed flows stay in their bucket until it
// comes due, when ExpireFlow finds them already gone and does nothing.
func (w *Wheel) Cancel(f *ofproto.Flow) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.remove(f)
}

// Tick processes every bucket at or before now, returning flows that have
// genuinely expired. Flows whose deadline moved forward are silently
// re-armed into a later bucket rather than firing early.
func (w *Wheel) Tick(now time.Time) []Expired {
	w.mu.Lock()
	defer w.mu.Unlock()

	var expired []Expired
	nowSec := uint32(now.Unix())
	for sec, flows := range w.buckets {
		if sec > nowSec {
			continue
		}
		delete(w.buckets, sec)
		for _, f := range flows {
			reason, done := checkDeadline(f, now)
			if done {
				expired = append(expired, Expired{Flow: f, Reason: reason})
				continue
			}
			w.insert(f, nextDeadline(f, now))
		}
	}
	return expired
}

func (w *Wheel) insert(f *ofproto.Flow, sec uint32) {
	b := w.buckets[sec]
	slot := uint32(len(b))
	w.buckets[sec] = append(b, f)
	f.TimerHandle = ofproto.TimerHandle{Bucket: sec, Slot: slot}
}

func (w *Wheel) remove(f *ofproto.Flow) {
	h := f.TimerHandle
	b := w.buckets[h.Bucket]
	if int(h.Slot) >= len(b) || b[h.Slot] != f {
		return
	}
	last := len(b) - 1
	b[h.Slot] = b[last]
	b[h.Slot].TimerHandle.Slot = h.Slot
	b = b[:last]
	if len(b) == 0 {
		delete(w.buckets, h.Bucket)
	} else {
		w.buckets[h.Bucket] = b
	}
}

func nextDeadline(f *ofproto.Flow, now time.Time) uint32 {
	deadline := now
	set := false
	if f.HardTimeout != 0 {
		deadline = f.CreateTime().Add(time.Duration(f.HardTimeout) * time.Second)
		set = true
	}
	if f.IdleTimeout != 0 {
		idle := f.UpdateTime().Add(time.Duration(f.IdleTimeout) * time.Second)
		if !set || idle.Before(deadline) {
			deadline = idle
			set = true
		}
	}
	if !set || deadline.Before(now) {
		deadline = now
	}
	return uint32(deadline.Unix())
}

func checkDeadline(f *ofproto.Flow, now time.Time) (reason uint8, expired bool) {
	if f.HardTimeout != 0 {
		hardDeadline := f.CreateTime().Add(time.Duration(f.HardTimeout) * time.Second)
		if !now.Before(hardDeadline) {
			return ofproto.OFPRR_HARD_TIMEOUT, true
		}
	}
	if f.IdleTimeout != 0 {
		idleDeadline := f.UpdateTime().Add(time.Duration(f.IdleTimeout) * time.Second)
		if !now.Before(idleDeadline) {
			return ofproto.OFPRR_IDLE_TIMEOUT, true
		}
	}
	return 0, false
}
