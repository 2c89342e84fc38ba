package updater

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/ofproto/cache"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RebuildDebounce = 20 * time.Millisecond
	cfg.TickInterval = 20 * time.Millisecond
	cfg.ThtableCadence = 40 * time.Millisecond
	return cfg
}

func TestScheduleRebuildInstallsIndexAfterBurst(t *testing.T) {
	db := ofproto.NewFlowdb()
	New(db, testConfig(), nil)

	for i := 0; i < 5; i++ {
		req := &ofproto.FlowModRequest{TableID: 0, Priority: int32(i)}
		require.Nil(t, db.FlowAdd(req))
	}

	table := db.Table(0)
	assert.True(t, table.Flows.Len() == 5)

	require.Eventually(t, func() bool {
		return table.Flows.Accel != nil && !table.Flows.Stale
	}, time.Second, 5*time.Millisecond)
}

func TestBarrierFlushesPendingRebuildSynchronously(t *testing.T) {
	db := ofproto.NewFlowdb()
	mgr := cache.NewManager(1, cache.NewWriterOwned)
	u := New(db, testConfig(), mgr)

	require.Nil(t, db.FlowAdd(&ofproto.FlowModRequest{TableID: 0, Priority: 1}))

	u.Barrier()

	table := db.Table(0)
	assert.NotNil(t, table.Flows.Accel)
	assert.False(t, table.Flows.Stale)
}

func TestExpiredFlowsAreRemovedFromTheirTable(t *testing.T) {
	db := ofproto.NewFlowdb()
	u := New(db, testConfig(), nil)

	req := &ofproto.FlowModRequest{TableID: 0, Priority: 1, IdleTimeout: 1}
	require.Nil(t, db.FlowAdd(req))

	table := db.Table(0)
	require.Equal(t, 1, table.Flows.Len())

	u.Run()
	defer u.Stop()

	require.Eventually(t, func() bool {
		return table.Flows.Len() == 0
	}, 3*time.Second, 20*time.Millisecond)
}

func TestRunStopShutsDownAfterMultipleTicks(t *testing.T) {
	db := ofproto.NewFlowdb()
	u := New(db, testConfig(), nil)
	u.Run()
	time.Sleep(50 * time.Millisecond)
	u.Stop()
}
