package updater

import "github.com/contiv/ofdp/ofproto"

// scratchPool is util/stream.go's BufferPool idiom (a fixed-size channel of
// reusable buffers, refilled by the same goroutine that drains it)
// generalized from *bytes.Buffer to the []*ofproto.Flow scratch slice a
// rebuild uses to stage a table's snapshot before handing it to a
// Strategy's Build. Reusing the backing array across rebuilds avoids an
// allocation per debounce firing on a hot table.
type scratchPool struct {
	free chan []*ofproto.Flow
}

func newScratchPool(size, cap0 int) *scratchPool {
	p := &scratchPool{free: make(chan []*ofproto.Flow, size)}
	for i := 0; i < size; i++ {
		p.free <- make([]*ofproto.Flow, 0, cap0)
	}
	return p
}

// get returns a scratch slice from the pool, or nil if the pool is
// momentarily empty; the caller then allocates its own (every rebuild must
// proceed; the pool is an optimization, not a throttle).
func (p *scratchPool) get() []*ofproto.Flow {
	select {
	case b := <-p.free:
		return b[:0]
	default:
		return nil
	}
}

// put returns b to the pool for reuse, dropping it if the pool is full.
func (p *scratchPool) put(b []*ofproto.Flow) {
	select {
	case p.free <- b[:0]:
	default:
	}
}
