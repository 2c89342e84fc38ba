package flowinfo

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

func TestRootDispatchesUntaggedFlowsByEtherType(t *testing.T) {
	root := NewRoot(0)

	ipFlow := newFlow(t, 10, []openflow13.MatchField{*openflow13.NewEthTypeField(0x0800)})
	arpFlow := newFlow(t, 20, []openflow13.MatchField{*openflow13.NewEthTypeField(0x0806)})
	require.Nil(t, root.Add(ipFlow))
	require.Nil(t, root.Add(arpFlow))

	found, ok := root.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0800}})
	require.True(t, ok)
	assert.Equal(t, ipFlow, found)

	found, ok = root.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0806}})
	require.True(t, ok)
	assert.Equal(t, arpFlow, found)

	_, ok = root.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x86dd}})
	assert.False(t, ok)
}

func TestRootRoutesVlanTaggedAndUntaggedSeparately(t *testing.T) {
	root := NewRoot(0)

	untagged := newFlow(t, 1, []openflow13.MatchField{*openflow13.NewEthTypeField(0x0800)})
	mask := uint16(openflow13.OFPVID_PRESENT)
	tagged := newFlow(t, 2, []openflow13.MatchField{
		*openflow13.NewVlanIdField(uint16(openflow13.OFPVID_PRESENT)|10, &mask),
		*openflow13.NewEthTypeField(0x0800),
	})
	require.Nil(t, root.Add(untagged))
	require.Nil(t, root.Add(tagged))

	found, ok := root.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0800, VlanTCI: 0}})
	require.True(t, ok)
	assert.Equal(t, untagged, found)

	// VlanTCI as the parser actually produces it: OFPVID_PRESENT already
	// ORed in alongside the wire VID.
	found, ok = root.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0800, VlanTCI: uint16(openflow13.OFPVID_PRESENT) | 10}})
	require.True(t, ok)
	assert.Equal(t, tagged, found)
}

func TestFlowWithWildcardedFieldFallsToMiscBucket(t *testing.T) {
	root := NewRoot(0)
	mask := uint16(0)
	wildcardEthType := newFlow(t, 5, []openflow13.MatchField{*openflow13.NewVlanIdField(0, &mask)})
	require.Nil(t, root.Add(wildcardEthType))

	found, ok := root.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0800}})
	require.True(t, ok)
	assert.Equal(t, wildcardEthType, found)
}

func TestDelRemovesFlowFromDispatcher(t *testing.T) {
	root := NewRoot(0)
	f := newFlow(t, 1, []openflow13.MatchField{*openflow13.NewEthTypeField(0x0800)})
	require.Nil(t, root.Add(f))
	require.Nil(t, root.Del(f))

	_, ok := root.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0800}})
	assert.False(t, ok)
}

func TestBasicPicksHighestPriorityMatch(t *testing.T) {
	b := NewBasic()
	low := newFlow(t, 1, []openflow13.MatchField{*openflow13.NewInPortField(1)})
	high := newFlow(t, 100, []openflow13.MatchField{*openflow13.NewInPortField(1)})
	require.Nil(t, b.Add(low))
	require.Nil(t, b.Add(high))

	found, ok := b.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{InPort: 1}})
	require.True(t, ok)
	assert.Equal(t, high, found)
}
