package parser

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/openflow13"
)

func ipv6Header(nextHeader uint8, src, dst [16]byte, payloadLen uint16) []byte {
	b := make([]byte, 40)
	b[0] = 0x60 // version 6
	binary.BigEndian.PutUint16(b[4:6], payloadLen)
	b[6] = nextHeader
	b[7] = 64
	copy(b[8:24], src[:])
	copy(b[24:40], dst[:])
	return b
}

func TestParseIPv6TCP(t *testing.T) {
	var src, dst [16]byte
	src[15] = 1
	dst[15] = 2
	frame := append(ethHeader(macB, macA, ethTypeIPv6), ipv6Header(6, src, dst, 20)...)
	frame = append(frame, tcpHeader(443, 9999)...)

	key, err := Parse(frame, 1, 0, 0)
	require.NoError(t, err)

	proto, ok := ofproto.IPProto(key)
	require.True(t, ok)
	assert.EqualValues(t, 6, proto)

	srcBytes, ok := ofproto.FieldBytes(openflow13.OXM_FIELD_IPV6_SRC, key)
	require.True(t, ok)
	assert.Equal(t, src[:], srcBytes)

	srcPort, ok := ofproto.FieldValueAt(openflow13.OXM_FIELD_TCP_SRC, key)
	require.True(t, ok)
	assert.EqualValues(t, 443, srcPort)

	assert.Zero(t, key.IPv6Exthdr)
}

func TestParseIPv6WithHopByHopThenUDP(t *testing.T) {
	var src, dst [16]byte
	src[0] = 0xfe
	hbh := []byte{17, 0, 0, 0, 0, 0, 0, 0} // next=UDP, HEL=0 -> 8 bytes total
	frame := append(ethHeader(macB, macA, ethTypeIPv6), ipv6Header(protocolTypeHBH, src, dst, 16)...)
	frame = append(frame, hbh...)
	udp := make([]byte, 8)
	binary.BigEndian.PutUint16(udp[0:2], 5000)
	binary.BigEndian.PutUint16(udp[2:4], 53)
	frame = append(frame, udp...)

	key, err := Parse(frame, 1, 0, 0)
	require.NoError(t, err)

	proto, ok := ofproto.IPProto(key)
	require.True(t, ok)
	assert.EqualValues(t, 17, proto)
	assert.NotZero(t, key.IPv6Exthdr&openflow13.OFPIEH_HOP)

	dstPort, ok := ofproto.FieldValueAt(openflow13.OXM_FIELD_UDP_DST, key)
	require.True(t, ok)
	assert.EqualValues(t, 53, dstPort)
}

func TestParseIPv6NeighborSolicitationCapturesSLL(t *testing.T) {
	var src, dst, target [16]byte
	src[0] = 0xfe
	ns := make([]byte, 32)
	ns[0] = 135 // NS
	copy(ns[8:24], target[:])
	ns[24] = 1 // SLL option type
	ns[25] = 1 // length in 8-byte units
	copy(ns[26:32], macA[:])

	frame := append(ethHeader(macB, macA, ethTypeIPv6), ipv6Header(58, src, dst, uint16(len(ns)))...)
	frame = append(frame, ns...)

	key, err := Parse(frame, 1, 0, 0)
	require.NoError(t, err)

	sll := key.Base(ofproto.BaseNDSLL)
	require.NotNil(t, sll)
	assert.Equal(t, macA[:], sll)

	target2 := key.Base(ofproto.BaseL4P)
	require.NotNil(t, target2)
	assert.Equal(t, target[:], target2)
}

const protocolTypeHBH = 0x00
