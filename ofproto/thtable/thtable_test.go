package thtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/openflow13"
)

func newFlow(t *testing.T, priority int32, matches []openflow13.MatchField) *ofproto.Flow {
	t.Helper()
	f, err := ofproto.NewFlow(0, priority, 0, matches, nil, 0, 0, 0)
	require.Nil(t, err)
	return f
}

func TestExactMatchFlowsHashByTupleSignature(t *testing.T) {
	f1 := newFlow(t, 1, []openflow13.MatchField{*openflow13.NewInPortField(1), *openflow13.NewEthTypeField(0x0800)})
	f2 := newFlow(t, 2, []openflow13.MatchField{*openflow13.NewInPortField(2), *openflow13.NewEthTypeField(0x0806)})
	tbl := Build([]*ofproto.Flow{f1, f2})

	found, ok := tbl.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{InPort: 1, EtherType: 0x0800}})
	require.True(t, ok)
	assert.Equal(t, f1, found)

	found, ok = tbl.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{InPort: 2, EtherType: 0x0806}})
	require.True(t, ok)
	assert.Equal(t, f2, found)

	_, ok = tbl.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{InPort: 1, EtherType: 0x0806}})
	assert.False(t, ok)
}

func TestWildcardedFlowFallsToOverflowScan(t *testing.T) {
	mask := uint64(0)
	wildcard := newFlow(t, 5, []openflow13.MatchField{
		*openflow13.NewInPortField(1),
		*openflow13.NewMetadataField(0, &mask),
	})
	tbl := Build([]*ofproto.Flow{wildcard})

	found, ok := tbl.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{InPort: 1}})
	require.True(t, ok)
	assert.Equal(t, wildcard, found)
}

func TestFindKeepsHighestPriorityAcrossGroups(t *testing.T) {
	narrow := newFlow(t, 1, []openflow13.MatchField{*openflow13.NewInPortField(1)})
	wide := newFlow(t, 50, []openflow13.MatchField{
		*openflow13.NewInPortField(1),
		*openflow13.NewEthTypeField(0x0800),
	})
	tbl := Build([]*ofproto.Flow{narrow, wide})

	found, ok := tbl.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{InPort: 1, EtherType: 0x0800}})
	require.True(t, ok)
	assert.Equal(t, wide, found)
}

func TestDelRemovesFlowFromItsGroup(t *testing.T) {
	f := newFlow(t, 1, []openflow13.MatchField{*openflow13.NewInPortField(1)})
	tbl := Build([]*ofproto.Flow{f})
	require.Nil(t, tbl.Del(f))

	_, ok := tbl.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{InPort: 1}})
	assert.False(t, ok)
}
