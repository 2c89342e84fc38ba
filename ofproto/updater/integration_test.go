package updater

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/ofproto/cache"
	"github.com/contiv/ofdp/openflow13"
)

// TestBarrierSignalsCachePartitionsForClearing is the seed scenario "cache
// invalidation on barrier" (spec.md §8 #5): Barrier must signal every
// partition so the next matching probe misses after a delete, even though
// the Manager itself never touches a partition's map directly — the
// signaled worker does.
func TestBarrierSignalsCachePartitionsForClearing(t *testing.T) {
	db := ofproto.NewFlowdb()
	mgr := cache.NewManager(2, cache.NewWriterOwned)
	u := New(db, testConfig(), mgr)

	f, err := ofproto.NewFlow(0, 1, 0, nil, nil, 0, 0, 0)
	require.Nil(t, err)
	part := mgr.Partition(0)
	part.Insert(0xdead, &cache.Entry{Flow: f, TableID: 0})
	require.Equal(t, 1, part.Stats().Entries)

	u.Barrier()

	select {
	case <-mgr.ClearSignal(0):
		part.Clear()
	default:
		t.Fatal("expected ClearCaches to signal partition 0")
	}
	assert.Equal(t, 0, part.Stats().Entries)

	_, ok := part.Lookup(0xdead)
	assert.False(t, ok, "probe after barrier-triggered clear must miss")
}

// TestFlowMutationSignalsCacheClearWithoutBarrier is spec.md §3's
// cache-coherence invariant: a mutation must invalidate affected cache
// entries before the next lookup observes it, not only at the next barrier.
func TestFlowMutationSignalsCacheClearWithoutBarrier(t *testing.T) {
	db := ofproto.NewFlowdb()
	mgr := cache.NewManager(1, cache.NewWriterOwned)
	_ = New(db, testConfig(), mgr)

	require.Nil(t, db.FlowAdd(&ofproto.FlowModRequest{
		TableID:      0,
		Priority:     1,
		Matches:      []openflow13.MatchField{*openflow13.NewInPortField(1)},
		Instructions: nil,
	}))

	select {
	case <-mgr.ClearSignal(0):
	default:
		t.Fatal("expected FlowAdd to signal a cache clear without a Barrier call")
	}
}

// randomIPv4MatchSets builds n flows, each matching a distinct random
// source IP with a random priority, the acl1-style benchmark seed scenario
// (spec.md §8 #6) scaled down for a unit test.
func randomIPv4MatchSets(n int, rng *rand.Rand) []*ofproto.Flow {
	flows := make([]*ofproto.Flow, n)
	for i := 0; i < n; i++ {
		ip := make([]byte, 4)
		rng.Read(ip)
		matches := []openflow13.MatchField{
			*openflow13.NewEthTypeField(0x0800),
			*openflow13.NewIpv4SrcField(ip, nil),
		}
		f, err := ofproto.NewFlow(0, int32(rng.Intn(1000)), 0, matches, nil, 0, 0, 0)
		if err != nil {
			panic(err)
		}
		flows[i] = f
	}
	return flows
}

func classifyKeyFor(f *ofproto.Flow) *ofproto.ClassifyKey {
	key := &ofproto.ClassifyKey{}
	key.EtherType = 0x0800
	for _, m := range f.Matches {
		if m.Field == openflow13.OXM_FIELD_IPV4_SRC {
			ipv4 := make([]byte, 20)
			copy(ipv4[12:16], m.Value)
			key.BasePtrs[ofproto.BaseL3] = ipv4
		}
	}
	return key
}

// TestFlowinfoAndMbtreeAgreeOnPriorityForTheSameRuleSet is the quantified
// invariant spec.md §8 states: "for all packets p and all tables t
// containing the same rule set, the three matchers MUST return flows of
// equal priority".
func TestFlowinfoAndMbtreeAgreeOnPriorityForTheSameRuleSet(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	flows := randomIPv4MatchSets(64, rng)

	flowinfoAccel := Build(StrategyFlowinfo, 0, flows)
	mbtreeAccel := Build(StrategyMbtree, 0, flows)
	thtableAccel := Build(StrategyThtable, 0, flows)

	for _, f := range flows {
		key := classifyKeyFor(f)

		fiFlow, fiOK := flowinfoAccel.Find(key)
		mbFlow, mbOK := mbtreeAccel.Find(key)
		thFlow, thOK := thtableAccel.Find(key)

		require.True(t, fiOK)
		require.True(t, mbOK)
		require.True(t, thOK)
		assert.Equal(t, fiFlow.Priority, mbFlow.Priority)
		assert.Equal(t, fiFlow.Priority, thFlow.Priority)
	}
}
