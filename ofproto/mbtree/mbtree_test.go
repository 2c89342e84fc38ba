package mbtree

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

func ipv4Flow(t *testing.T, priority int32, proto uint8) *ofproto.Flow {
	return newFlow(t, priority, []openflow13.MatchField{
		*openflow13.NewEthTypeField(0x0800),
		*openflow13.NewIpProtoField(proto),
	})
}

func TestBuildBelowThresholdReturnsLinearScan(t *testing.T) {
	flows := []*ofproto.Flow{ipv4Flow(t, 1, 6), ipv4Flow(t, 2, 17)}
	accel := Build(flows)

	found, ok := accel.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0800}, BasePtrs: ipProtoKey(17)})
	require.True(t, ok)
	assert.EqualValues(t, 2, found.Priority)
}

func TestBuildAboveThresholdPartitionsByBestField(t *testing.T) {
	var flows []*ofproto.Flow
	for i := 0; i < 8; i++ {
		flows = append(flows, ipv4Flow(t, int32(i), 6))
	}
	flows = append(flows, ipv4Flow(t, 100, 17))

	accel := Build(flows)

	found, ok := accel.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0800}, BasePtrs: ipProtoKey(17)})
	require.True(t, ok)
	assert.EqualValues(t, 100, found.Priority)

	found, ok = accel.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0800}, BasePtrs: ipProtoKey(6)})
	require.True(t, ok)
	assert.EqualValues(t, 7, found.Priority, "highest-priority flow among the tcp bucket's 8 flows")
}

func TestNodeAddRoutesNewFlowIntoExistingBucket(t *testing.T) {
	var flows []*ofproto.Flow
	for i := 0; i < 8; i++ {
		flows = append(flows, ipv4Flow(t, int32(i), 6))
	}
	accel := Build(flows)

	extra := ipv4Flow(t, 50, 6)
	require.Nil(t, accel.Add(extra))

	found, ok := accel.Find(&ofproto.ClassifyKey{OOB: ofproto.OOB{EtherType: 0x0800}, BasePtrs: ipProtoKey(6)})
	require.True(t, ok)
	assert.EqualValues(t, 50, found.Priority)
}

// ipProtoKey builds a minimal BasePtrs table with an IPPROTO base pointer
// carrying just the protocol-number byte, matching the dedicated
// IPPROTO_BASE pointer the parser is expected to set.
func ipProtoKey(proto uint8) [ofproto.BaseMax][]byte {
	var bp [ofproto.BaseMax][]byte
	bp[ofproto.BaseIPProto] = []byte{proto}
	return bp
}
