package parser

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/openflow13"
)

func ethHeader(dst, src [6]byte, ethType uint16) []byte {
	b := make([]byte, 14)
	copy(b[0:6], dst[:])
	copy(b[6:12], src[:])
	binary.BigEndian.PutUint16(b[12:14], ethType)
	return b
}

func ipv4Header(proto uint8, src, dst [4]byte, totalLen uint16) []byte {
	b := make([]byte, 20)
	b[0] = 0x45 // version 4, IHL 5
	b[1] = 0xb8 // DSCP=0x2e (46), ECN=0
	binary.BigEndian.PutUint16(b[2:4], totalLen)
	b[8] = 64
	b[9] = proto
	copy(b[12:16], src[:])
	copy(b[16:20], dst[:])
	return b
}

func tcpHeader(srcPort, dstPort uint16) []byte {
	b := make([]byte, 20)
	binary.BigEndian.PutUint16(b[0:2], srcPort)
	binary.BigEndian.PutUint16(b[2:4], dstPort)
	return b
}

var (
	macA = [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	macB = [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
)

func TestParseUntaggedIPv4TCP(t *testing.T) {
	frame := append(ethHeader(macB, macA, ethTypeIPv4), ipv4Header(6, [4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 40)...)
	frame = append(frame, tcpHeader(1234, 80)...)

	key, err := Parse(frame, 3, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 3, key.InPort)
	assert.EqualValues(t, ethTypeIPv4, key.EtherType)
	assert.EqualValues(t, 0, key.VlanTCI)

	proto, ok := ofproto.IPProto(key)
	require.True(t, ok)
	assert.EqualValues(t, 6, proto)

	srcBytes, ok := ofproto.FieldBytes(openflow13.OXM_FIELD_IPV4_SRC, key)
	require.True(t, ok)
	assert.Equal(t, []byte{10, 0, 0, 1}, srcBytes)

	port, ok := ofproto.FieldValueAt(openflow13.OXM_FIELD_TCP_DST, key)
	require.True(t, ok)
	assert.EqualValues(t, 80, port)
}

func TestParseDot1QTaggedFrame(t *testing.T) {
	inner := ethHeader(macB, macA, 0)
	b := inner[:12]
	b = append(b, 0x81, 0x00) // TPID
	var tci [2]byte
	binary.BigEndian.PutUint16(tci[:], uint16(42))
	b = append(b, tci[:]...)
	b = append(b, 0x08, 0x00) // real ethertype IPv4
	frame := append(b, ipv4Header(17, [4]byte{1, 1, 1, 1}, [4]byte{2, 2, 2, 2}, 28)...)

	key, err := Parse(frame, 1, 0, 0)
	require.NoError(t, err)
	assert.EqualValues(t, ethTypeIPv4, key.EtherType)
	assert.EqualValues(t, 42|openflow13.OFPVID_PRESENT, key.VlanTCI)
}

func TestParseARP(t *testing.T) {
	arp := make([]byte, 28)
	binary.BigEndian.PutUint16(arp[0:2], 1) // HTYPE ethernet
	binary.BigEndian.PutUint16(arp[2:4], 0x0800)
	arp[4] = 6
	arp[5] = 4
	binary.BigEndian.PutUint16(arp[6:8], 1) // request
	copy(arp[8:14], macA[:])
	copy(arp[14:18], []byte{10, 0, 0, 1})
	copy(arp[18:24], macB[:])
	copy(arp[24:28], []byte{10, 0, 0, 2})

	frame := append(ethHeader(macB, macA, ethTypeARP), arp...)
	key, err := Parse(frame, 1, 0, 0)
	require.NoError(t, err)

	op, ok := ofproto.FieldValueAt(openflow13.OXM_FIELD_ARP_OP, key)
	require.True(t, ok)
	assert.EqualValues(t, 1, op)

	spa, ok := ofproto.FieldBytes(openflow13.OXM_FIELD_ARP_SPA, key)
	require.True(t, ok)
	assert.Equal(t, []byte{10, 0, 0, 1}, spa)
}

func TestFingerprintIsDeterministicAndContentSensitive(t *testing.T) {
	frame := append(ethHeader(macB, macA, ethTypeIPv4), ipv4Header(6, [4]byte{10, 0, 0, 1}, [4]byte{10, 0, 0, 2}, 40)...)
	frame = append(frame, tcpHeader(1234, 80)...)

	k1, err := Parse(frame, 1, 0, 0)
	require.NoError(t, err)
	k2, err := Parse(frame, 1, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, k1.Fingerprint, k2.Fingerprint)

	k3, err := Parse(frame, 2, 0, 0)
	require.NoError(t, err)
	assert.NotEqual(t, k1.Fingerprint, k3.Fingerprint)
}

func TestParseTooShortFrameErrors(t *testing.T) {
	_, err := Parse([]byte{1, 2, 3}, 0, 0, 0)
	assert.Error(t, err)
}
