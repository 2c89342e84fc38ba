package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/ofproto"
)

func backends() map[string]func() *Cache {
	return map[string]func() *Cache{
		"concurrent":  NewConcurrent,
		"writerOwned": NewWriterOwned,
		"patricia":    NewPatricia,
	}
}

func TestLookupMissThenHitAfterInsert(t *testing.T) {
	for name, newCache := range backends() {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			_, ok := c.Lookup(42)
			assert.False(t, ok)

			flow := &ofproto.Flow{Priority: 7}
			c.Insert(42, &Entry{Flow: flow, TableID: 1})

			got, ok := c.Lookup(42)
			require.True(t, ok)
			assert.Equal(t, flow, got.Flow)

			stats := c.Stats()
			assert.EqualValues(t, 1, stats.Hits)
			assert.EqualValues(t, 1, stats.Misses)
			assert.Equal(t, 1, stats.Entries)
		})
	}
}

func TestInvalidateRemovesEntry(t *testing.T) {
	for name, newCache := range backends() {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			c.Insert(7, &Entry{Flow: &ofproto.Flow{}})
			c.Invalidate(7)

			_, ok := c.Lookup(7)
			assert.False(t, ok)
		})
	}
}

func TestClearDropsEntriesButKeepsCumulativeCounters(t *testing.T) {
	for name, newCache := range backends() {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			c.Insert(1, &Entry{Flow: &ofproto.Flow{}})
			c.Insert(2, &Entry{Flow: &ofproto.Flow{}})
			c.Lookup(1)

			c.Clear()

			assert.Equal(t, 0, c.Stats().Entries)
			assert.EqualValues(t, 1, c.Stats().Hits, "hit/miss counts are cumulative per-bridge stats, not reset by a flush")
			_, ok := c.Lookup(1)
			assert.False(t, ok)
		})
	}
}

func TestPatriciaDistinguishesNeighboringFingerprints(t *testing.T) {
	c := NewPatricia()
	c.Insert(0, &Entry{Flow: &ofproto.Flow{Priority: 1}})
	c.Insert(1, &Entry{Flow: &ofproto.Flow{Priority: 2}})
	c.Insert(^uint64(0), &Entry{Flow: &ofproto.Flow{Priority: 3}})

	e0, ok := c.Lookup(0)
	require.True(t, ok)
	assert.EqualValues(t, 1, e0.Flow.Priority)

	e1, ok := c.Lookup(1)
	require.True(t, ok)
	assert.EqualValues(t, 2, e1.Flow.Priority)

	eMax, ok := c.Lookup(^uint64(0))
	require.True(t, ok)
	assert.EqualValues(t, 3, eMax.Flow.Priority)
}

func TestManagerClearCachesSignalsEveryPartition(t *testing.T) {
	m := NewManager(3, NewWriterOwned)
	for i := 0; i < 3; i++ {
		m.Partition(i).Insert(uint64(i), &Entry{Flow: &ofproto.Flow{}})
	}

	m.ClearCaches()

	for i := 0; i < 3; i++ {
		select {
		case <-m.ClearSignal(i):
		default:
			t.Fatalf("partition %d did not receive a clear signal", i)
		}
		m.Partition(i).Clear()
		assert.Equal(t, 0, m.Partition(i).Stats().Entries)
	}

	assert.Equal(t, 0, m.Stats().Entries)
}
