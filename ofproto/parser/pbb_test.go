package parser

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/openflow13"
)

// pbbFrame builds an untagged Ethernet frame carrying a PBB I-TAG directly
// (no B-TAG), followed by a customer MAC header and inner ethertype, the
// same minimal shape original_source's match_pbb_test.c exercises.
func pbbFrame(isid uint32, innerType uint16, cDA, cSA [6]byte) []byte {
	frame := ethHeader(macB, macA, ethTypePBB)
	itag := make([]byte, 4)
	itag[1] = byte(isid >> 16)
	itag[2] = byte(isid >> 8)
	itag[3] = byte(isid)
	frame = append(frame, itag...)
	frame = append(frame, cDA[:]...)
	frame = append(frame, cSA[:]...)
	var et [2]byte
	binary.BigEndian.PutUint16(et[:], innerType)
	frame = append(frame, et[:]...)
	return frame
}

func TestParsePBBRecordsISIDByDefault(t *testing.T) {
	PBBIsVLAN = false
	frame := pbbFrame(0x5ac33c, ethTypeIPv4, macA, macB)
	frame = append(frame, ipv4Header(6, [4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 20)...)

	key, err := Parse(frame, 1, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, ethTypePBB, key.EtherType)

	isid, ok := ofproto.FieldValueAt(openflow13.OXM_FIELD_PBB_ISID, key)
	require.True(t, ok)
	assert.EqualValues(t, 0x5ac33c, isid)

	// With the switch off, the I-TAG's own ethertype is what classifies
	// the packet; nothing downstream of the I-TAG was parsed.
	_, ok = ofproto.IPProto(key)
	assert.False(t, ok)
}

func TestParsePBBIsVLANUnwrapsToInnerEtherType(t *testing.T) {
	PBBIsVLAN = true
	defer func() { PBBIsVLAN = false }()

	frame := pbbFrame(0x5ac33c, ethTypeIPv4, macA, macB)
	frame = append(frame, ipv4Header(6, [4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 20)...)

	key, err := Parse(frame, 1, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, ethTypeIPv4, key.EtherType)

	// The I-SID is still recorded even though classification continues
	// past the I-TAG.
	isid, ok := ofproto.FieldValueAt(openflow13.OXM_FIELD_PBB_ISID, key)
	require.True(t, ok)
	assert.EqualValues(t, 0x5ac33c, isid)

	proto, ok := ofproto.IPProto(key)
	require.True(t, ok)
	assert.EqualValues(t, 6, proto)
}
