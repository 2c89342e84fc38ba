package ofproto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/contiv/ofdp/openflow13"
)

// TestMatchBasicMatchesTaggedVlanVidExact exercises the leaf-level
// comparison mbtree/thtable/flowinfo's Basic node all build on, for a
// tagged VLAN_VID match. openflow13.NewVlanIdField always ORs in
// OFPVID_PRESENT, so the packet-derived value must carry that same bit or
// no tagged-VID flow is ever reachable.
func TestMatchBasicMatchesTaggedVlanVidExact(t *testing.T) {
	matches := []openflow13.MatchField{*openflow13.NewVlanIdField(10, nil)}
	key := &ClassifyKey{OOB: OOB{EtherType: 0x0800, VlanTCI: uint16(openflow13.OFPVID_PRESENT) | 10}}
	assert.True(t, MatchBasic(matches, key))

	wrongVid := &ClassifyKey{OOB: OOB{EtherType: 0x0800, VlanTCI: uint16(openflow13.OFPVID_PRESENT) | 11}}
	assert.False(t, MatchBasic(matches, wrongVid))

	untagged := &ClassifyKey{OOB: OOB{EtherType: 0x0800}}
	assert.False(t, MatchBasic(matches, untagged))
}

// TestMatchBasicMatchesVlanPresentBitOnly covers the "any tagged VID"
// boundary case from spec §8: a flow that masks everything but
// OFPVID_PRESENT matches any tag value.
func TestMatchBasicMatchesVlanPresentBitOnly(t *testing.T) {
	mask := uint16(openflow13.OFPVID_PRESENT)
	matches := []openflow13.MatchField{*openflow13.NewVlanIdField(uint16(openflow13.OFPVID_PRESENT), &mask)}

	anyTagged := &ClassifyKey{OOB: OOB{EtherType: 0x0800, VlanTCI: uint16(openflow13.OFPVID_PRESENT) | 42}}
	assert.True(t, MatchBasic(matches, anyTagged))

	untagged := &ClassifyKey{OOB: OOB{EtherType: 0x0800}}
	assert.False(t, MatchBasic(matches, untagged))
}
