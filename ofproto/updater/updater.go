// Package updater rebuilds a table's classification index shortly after a
// flow_mod marks it stale, sweeps the timer wheel for expired flows once a
// second, and gives a BARRIER_REQUEST handler a way to drain pending
// rebuilds and flush caches synchronously before replying. Only the wheel
// sweep and the thtable cadence run on Run's tick-loop goroutine; each
// debounced rebuild runs on its own time.AfterFunc goroutine, and Barrier
// runs pending rebuilds on its caller's goroutine, so rebuilds are not
// confined to a single goroutine.
package updater

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/ofproto/cache"
)

// Config holds the per-Updater tunables (SPEC_FULL.md's ambient
// "Configuration" layer: a small Config struct per subsystem).
type Config struct {
	// RebuildDebounce is how long the updater waits after a table is
	// marked stale before rebuilding its index, coalescing bursts of
	// flow_mods into one rebuild (spec.md §4.7, default 1s).
	RebuildDebounce time.Duration
	// ThtableCadence is the thtable strategy's own rebuild interval,
	// independent of staleness, grounded on the teacher's
	// thtable_timer.c add_thtable_timer cadence (default 1-2s).
	ThtableCadence time.Duration
	// TickInterval is how often the timer wheel is swept (spec.md §5:
	// "the updater loop checks a shutdown flag each second").
	TickInterval time.Duration
	// Strategy selects which index a given table rebuilds into. Tables
	// absent from the map use Default.
	Strategy map[uint8]Strategy
	Default  Strategy
}

// DefaultConfig returns the tunables spec.md §4.7 names.
func DefaultConfig() Config {
	return Config{
		RebuildDebounce: time.Second,
		ThtableCadence:  2 * time.Second,
		TickInterval:    time.Second,
		Default:         StrategyMbtree,
	}
}

func (c Config) strategyFor(tableID uint8) Strategy {
	if s, ok := c.Strategy[tableID]; ok {
		return s
	}
	return c.Default
}

// Updater owns the dataplane timer wheel and the rebuild/debounce state for
// every table. The wheel is swept from the tick loop; rebuilds run on the
// debounce timers' goroutines or on Barrier's caller (see the package doc).
type Updater struct {
	db     *ofproto.Flowdb
	caches *cache.Manager
	cfg    Config
	wheel  *Wheel
	pool   *scratchPool

	pendingMu sync.Mutex
	pending   map[uint8]*time.Timer

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New builds an Updater over db, chaining into any OnStale/OnFlowAdded/
// OnFlowRemoved hooks already set rather than replacing them, and returns it
// unstarted; call Run to begin the tick loop. caches may be nil if the
// deployment has no cache partitions to flush on barrier.
func New(db *ofproto.Flowdb, cfg Config, caches *cache.Manager) *Updater {
	u := &Updater{
		db:      db,
		caches:  caches,
		cfg:     cfg,
		wheel:   NewWheel(),
		pool:    newScratchPool(FlowdbTableSizeHint, 64),
		pending: make(map[uint8]*time.Timer),
		stopCh:  make(chan struct{}),
	}

	prevStale := db.OnStale
	db.OnStale = func(tableID uint8, fl *ofproto.FlowList) {
		if prevStale != nil {
			prevStale(tableID, fl)
		}
		u.scheduleRebuild(tableID)
	}

	prevMutate := db.OnMutate
	db.OnMutate = func(tableID uint8) {
		if prevMutate != nil {
			prevMutate(tableID)
		}
		if u.caches != nil {
			u.caches.ClearCaches()
		}
	}

	if db.Hooks == nil {
		db.Hooks = &ofproto.ActionHookRegistry{}
	}
	prevAdded := db.Hooks.OnFlowAdded
	db.Hooks.OnFlowAdded = func(f *ofproto.Flow, t *ofproto.Table) {
		if prevAdded != nil {
			prevAdded(f, t)
		}
		u.wheel.Register(f, time.Now())
	}
	prevRemoved := db.Hooks.OnFlowRemoved
	db.Hooks.OnFlowRemoved = func(f *ofproto.Flow, t *ofproto.Table, reason uint8) {
		if prevRemoved != nil {
			prevRemoved(f, t, reason)
		}
		u.wheel.Cancel(f)
	}

	return u
}

// FlowdbTableSizeHint sizes the scratch pool; it need not match
// ofproto.FlowdbTableSizeMax exactly since the pool is an optimization, not
// a bound on the number of tables actually in use.
const FlowdbTableSizeHint = 16

// Run starts the tick loop in a background goroutine. Stop shuts it down.
func (u *Updater) Run() {
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ticker := time.NewTicker(u.cfg.TickInterval)
		defer ticker.Stop()

		var thtableElapsed time.Duration
		for {
			select {
			case <-u.stopCh:
				return
			case now := <-ticker.C:
				u.sweepWheel(now)
				thtableElapsed += u.cfg.TickInterval
				if thtableElapsed >= u.cfg.ThtableCadence {
					thtableElapsed = 0
					u.rebuildThtables()
				}
			}
		}
	}()
}

// Stop halts the tick loop and waits for it to exit. Pending debounced
// rebuilds are not flushed; call Barrier first if that is required.
func (u *Updater) Stop() {
	close(u.stopCh)
	u.wg.Wait()
}

// scheduleRebuild (dis)arms the per-table debounce timer. Repeated calls
// within RebuildDebounce of each other coalesce into a single rebuild,
// matching spec.md §4.7's "short debounce (1s by default)".
func (u *Updater) scheduleRebuild(tableID uint8) {
	u.pendingMu.Lock()
	defer u.pendingMu.Unlock()

	if t, ok := u.pending[tableID]; ok {
		t.Stop()
	}
	u.pending[tableID] = time.AfterFunc(u.cfg.RebuildDebounce, func() {
		u.pendingMu.Lock()
		delete(u.pending, tableID)
		u.pendingMu.Unlock()
		u.rebuild(tableID)
	})
}

// Barrier drains every pending debounced rebuild synchronously, so a caller
// handling a BARRIER_REQUEST can emit the BARRIER_REPLY only once every
// table's index reflects every flow_mod that preceded the barrier. Cache
// entries are invalidated as each mutation happens (db.OnMutate, wired
// above), not deferred to this point; the ClearCaches call here is a
// belt-and-suspenders flush covering any signal a worker hadn't yet drained.
func (u *Updater) Barrier() {
	u.pendingMu.Lock()
	tableIDs := make([]uint8, 0, len(u.pending))
	for id, t := range u.pending {
		t.Stop()
		tableIDs = append(tableIDs, id)
		delete(u.pending, id)
	}
	u.pendingMu.Unlock()

	for _, id := range tableIDs {
		u.rebuild(id)
	}
	if u.caches != nil {
		u.caches.ClearCaches()
	}
}

// rebuild produces a fresh Accelerator for tableID off to the side and
// swaps it in under FlowList.MarkRebuilt, per spec.md §4.7's "produce the
// new index off to the side, then swap the pointer under the write lock".
func (u *Updater) rebuild(tableID uint8) {
	t := u.db.Table(tableID)

	scratch := u.pool.get()
	if scratch == nil {
		scratch = make([]*ofproto.Flow, 0, t.Flows.Len())
	}
	t.Flows.Each(func(f *ofproto.Flow) {
		scratch = append(scratch, f)
	})

	accel := Build(u.cfg.strategyFor(tableID), tableID, scratch)
	t.Flows.MarkRebuilt(accel)

	log.WithFields(log.Fields{"table": tableID, "flows": len(scratch)}).Debug("rebuilt table index")
	u.pool.put(scratch)
}

// rebuildThtables runs every table the Strategy map assigns StrategyThtable
// through a forced rebuild on its own cadence, independent of staleness,
// mirroring the teacher's distinct thtable aging timer. Tables that get
// StrategyThtable only through Default are not rebuilt on this cadence.
func (u *Updater) rebuildThtables() {
	for tableID, strategy := range u.cfg.Strategy {
		if strategy == StrategyThtable {
			u.rebuild(tableID)
		}
	}
}

// sweepWheel processes one tick of the timer wheel, removing any flow whose
// idle or hard timeout has genuinely elapsed.
func (u *Updater) sweepWheel(now time.Time) {
	for _, e := range u.wheel.Tick(now) {
		u.db.ExpireFlow(e.Flow, e.Reason)
	}
}
