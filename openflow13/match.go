package openflow13

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/contiv/ofdp/ofbase"
)

// ofp_match_type (only the OXM encoding is supported, as in real OF1.3
// switches; the legacy "standard" match type is not wired anywhere here).
const (
	OFPMT_OXM = 1
)

// MatchField is one OXM TLV: class + field tag + optional mask, carrying its
// value and (if present) mask as raw big-endian bytes of xmFieldLen[Field].
type MatchField struct {
	Class   uint16
	Field   uint8
	HasMask bool
	Value   []byte
	Mask    []byte
}

func (f *MatchField) GetOXMName() string {
	return FieldName(f.Field)
}

func (f *MatchField) GetOXMValue() interface{} {
	return f.Value
}

func (f *MatchField) GetOXMValueMask() interface{} {
	return f.Mask
}

// Len returns the on-wire TLV length, header included.
func (f *MatchField) Len() uint16 {
	n := uint16(4 + len(f.Value))
	if f.HasMask {
		n += uint16(len(f.Mask))
	}
	return n
}

func (f *MatchField) Serialize(encoder *ofbase.Encoder) error {
	tag := f.Field << 1
	if f.HasMask {
		tag |= 1
	}
	encoder.PutUint16(f.Class)
	encoder.PutUint8(tag)
	length := len(f.Value)
	if f.HasMask {
		length += len(f.Mask)
	}
	encoder.PutUint8(uint8(length))
	encoder.Write(f.Value)
	if f.HasMask {
		encoder.Write(f.Mask)
	}
	return nil
}

func (f *MatchField) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := f.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (f *MatchField) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("the []byte is too short to unmarshal an OXM TLV header")
	}
	f.Class = binary.BigEndian.Uint16(data[0:2])
	tag := data[2]
	f.Field = tag >> 1
	f.HasMask = tag&1 == 1
	length := int(data[3])
	if len(data) < 4+length {
		return fmt.Errorf("the []byte is too short to unmarshal a full OXM TLV body")
	}
	body := data[4 : 4+length]
	if f.HasMask {
		half := length / 2
		f.Value = append([]byte(nil), body[:half]...)
		f.Mask = append([]byte(nil), body[half:]...)
	} else {
		f.Value = append([]byte(nil), body...)
	}
	return nil
}

func newField(field uint8, value []byte, mask []byte) MatchField {
	f := MatchField{
		Class: OXM_CLASS_OPENFLOW_BASIC,
		Field: field,
		Value: value,
	}
	if mask != nil {
		f.HasMask = true
		f.Mask = mask
	}
	return f
}

func uint8b(v uint8) []byte { return []byte{v} }

func uint16b(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func uint32b(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func uint64b(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func NewInPortField(inPort uint32) *MatchField {
	f := newField(OXM_FIELD_IN_PORT, uint32b(inPort), nil)
	return &f
}

func NewInPhyPortField(inPhyPort uint32) *MatchField {
	f := newField(OXM_FIELD_IN_PHY_PORT, uint32b(inPhyPort), nil)
	return &f
}

func NewEthDstField(mac net.HardwareAddr, mask *net.HardwareAddr) *MatchField {
	var m []byte
	if mask != nil {
		m = []byte(*mask)
	}
	f := newField(OXM_FIELD_ETH_DST, []byte(mac), m)
	return &f
}

func NewEthSrcField(mac net.HardwareAddr, mask *net.HardwareAddr) *MatchField {
	var m []byte
	if mask != nil {
		m = []byte(*mask)
	}
	f := newField(OXM_FIELD_ETH_SRC, []byte(mac), m)
	return &f
}

func NewEthTypeField(ethType uint16) *MatchField {
	f := newField(OXM_FIELD_ETH_TYPE, uint16b(ethType), nil)
	return &f
}

// NewVlanIdField encodes vlan_vid with the OFPVID_PRESENT bit set, per the
// OpenFlow 1.3 convention that a bare VID match implies a tagged frame.
func NewVlanIdField(vlanId uint16, mask *uint16) *MatchField {
	v := vlanId | OFPVID_PRESENT
	var m []byte
	if mask != nil {
		m = uint16b(*mask)
	}
	f := newField(OXM_FIELD_VLAN_VID, uint16b(v), m)
	return &f
}

func NewVlanPcpField(pcp uint8) *MatchField {
	f := newField(OXM_FIELD_VLAN_PCP, uint8b(pcp), nil)
	return &f
}

func NewIpDscpField(dscp uint8) *MatchField {
	f := newField(OXM_FIELD_IP_DSCP, uint8b(dscp), nil)
	return &f
}

func NewIpEcnField(ecn uint8) *MatchField {
	f := newField(OXM_FIELD_IP_ECN, uint8b(ecn), nil)
	return &f
}

func NewIpProtoField(proto uint8) *MatchField {
	f := newField(OXM_FIELD_IP_PROTO, uint8b(proto), nil)
	return &f
}

func NewIpv4SrcField(ip net.IP, mask *net.IP) *MatchField {
	var m []byte
	if mask != nil {
		m = []byte(mask.To4())
	}
	f := newField(OXM_FIELD_IPV4_SRC, []byte(ip.To4()), m)
	return &f
}

func NewIpv4DstField(ip net.IP, mask *net.IP) *MatchField {
	var m []byte
	if mask != nil {
		m = []byte(mask.To4())
	}
	f := newField(OXM_FIELD_IPV4_DST, []byte(ip.To4()), m)
	return &f
}

func NewIpv6SrcField(ip net.IP, mask *net.IP) *MatchField {
	var m []byte
	if mask != nil {
		m = []byte(mask.To16())
	}
	f := newField(OXM_FIELD_IPV6_SRC, []byte(ip.To16()), m)
	return &f
}

func NewIpv6DstField(ip net.IP, mask *net.IP) *MatchField {
	var m []byte
	if mask != nil {
		m = []byte(mask.To16())
	}
	f := newField(OXM_FIELD_IPV6_DST, []byte(ip.To16()), m)
	return &f
}

func NewIpv6FlabelField(label uint32, mask *uint32) *MatchField {
	var m []byte
	if mask != nil {
		m = uint32b(*mask)
	}
	f := newField(OXM_FIELD_IPV6_FLABEL, uint32b(label), m)
	return &f
}

// NewIpv6ExthdrField encodes the OFPIEH_* bitset the parser derives while
// walking the IPv6 extension header chain.
func NewIpv6ExthdrField(bits uint16, mask *uint16) *MatchField {
	var m []byte
	if mask != nil {
		m = uint16b(*mask)
	}
	f := newField(OXM_FIELD_IPV6_EXTHDR, uint16b(bits), m)
	return &f
}

func NewIpv6NdTargetField(ip net.IP) *MatchField {
	f := newField(OXM_FIELD_IPV6_ND_TARGET, []byte(ip.To16()), nil)
	return &f
}

func NewIpv6NdSllField(mac net.HardwareAddr) *MatchField {
	f := newField(OXM_FIELD_IPV6_ND_SLL, []byte(mac), nil)
	return &f
}

func NewIpv6NdTllField(mac net.HardwareAddr) *MatchField {
	f := newField(OXM_FIELD_IPV6_ND_TLL, []byte(mac), nil)
	return &f
}

func NewTcpSrcField(port uint16) *MatchField {
	f := newField(OXM_FIELD_TCP_SRC, uint16b(port), nil)
	return &f
}

func NewTcpDstField(port uint16) *MatchField {
	f := newField(OXM_FIELD_TCP_DST, uint16b(port), nil)
	return &f
}

func NewUdpSrcField(port uint16) *MatchField {
	f := newField(OXM_FIELD_UDP_SRC, uint16b(port), nil)
	return &f
}

func NewUdpDstField(port uint16) *MatchField {
	f := newField(OXM_FIELD_UDP_DST, uint16b(port), nil)
	return &f
}

func NewSctpSrcField(port uint16) *MatchField {
	f := newField(OXM_FIELD_SCTP_SRC, uint16b(port), nil)
	return &f
}

func NewSctpDstField(port uint16) *MatchField {
	f := newField(OXM_FIELD_SCTP_DST, uint16b(port), nil)
	return &f
}

func NewIcmpv4TypeField(t uint8) *MatchField {
	f := newField(OXM_FIELD_ICMPV4_TYPE, uint8b(t), nil)
	return &f
}

func NewIcmpv4CodeField(c uint8) *MatchField {
	f := newField(OXM_FIELD_ICMPV4_CODE, uint8b(c), nil)
	return &f
}

func NewIcmpv6TypeField(t uint8) *MatchField {
	f := newField(OXM_FIELD_ICMPV6_TYPE, uint8b(t), nil)
	return &f
}

func NewIcmpv6CodeField(c uint8) *MatchField {
	f := newField(OXM_FIELD_ICMPV6_CODE, uint8b(c), nil)
	return &f
}

func NewArpOperField(oper uint16) *MatchField {
	f := newField(OXM_FIELD_ARP_OP, uint16b(oper), nil)
	return &f
}

func NewArpSpaField(ip net.IP, mask *net.IP) *MatchField {
	var m []byte
	if mask != nil {
		m = []byte(mask.To4())
	}
	f := newField(OXM_FIELD_ARP_SPA, []byte(ip.To4()), m)
	return &f
}

func NewArpTpaField(ip net.IP, mask *net.IP) *MatchField {
	var m []byte
	if mask != nil {
		m = []byte(mask.To4())
	}
	f := newField(OXM_FIELD_ARP_TPA, []byte(ip.To4()), m)
	return &f
}

func NewArpShaField(mac net.HardwareAddr) *MatchField {
	f := newField(OXM_FIELD_ARP_SHA, []byte(mac), nil)
	return &f
}

func NewArpThaField(mac net.HardwareAddr) *MatchField {
	f := newField(OXM_FIELD_ARP_THA, []byte(mac), nil)
	return &f
}

func NewMplsLabelField(label uint32) *MatchField {
	f := newField(OXM_FIELD_MPLS_LABEL, uint32b(label&0x000fffff), nil)
	return &f
}

func NewMplsTcField(tc uint8) *MatchField {
	f := newField(OXM_FIELD_MPLS_TC, uint8b(tc), nil)
	return &f
}

func NewMplsBosField(bos uint8) *MatchField {
	f := newField(OXM_FIELD_MPLS_BOS, uint8b(bos), nil)
	return &f
}

func NewPbbIsidField(isid uint32, mask *uint32) *MatchField {
	v := []byte{byte(isid >> 16), byte(isid >> 8), byte(isid)}
	var m []byte
	if mask != nil {
		mv := *mask
		m = []byte{byte(mv >> 16), byte(mv >> 8), byte(mv)}
	}
	f := newField(OXM_FIELD_PBB_ISID, v, m)
	return &f
}

func NewTunnelIdField(id uint64) *MatchField {
	f := newField(OXM_FIELD_TUNNEL_ID, uint64b(id), nil)
	return &f
}

func NewMetadataField(metadata uint64, mask *uint64) *MatchField {
	var m []byte
	if mask != nil {
		m = uint64b(*mask)
	}
	f := newField(OXM_FIELD_METADATA, uint64b(metadata), m)
	return &f
}

// Match is the ofp_match header (OXM type + length) plus its TLV list.
type Match struct {
	Type   uint16
	Length uint16
	Fields []MatchField
}

func NewMatch() *Match {
	return &Match{
		Type:   OFPMT_OXM,
		Fields: make([]MatchField, 0),
	}
}

func (m *Match) AddField(f MatchField) {
	m.Fields = append(m.Fields, f)
}

// Get returns the first field of the given OXM field tag, if present.
func (m *Match) Get(field uint8) *MatchField {
	for i := range m.Fields {
		if m.Fields[i].Field == field {
			return &m.Fields[i]
		}
	}
	return nil
}

func (m *Match) Len() (n uint16) {
	n = 4
	for _, f := range m.Fields {
		n += f.Len()
	}
	return (n + 7) / 8 * 8
}

func (m *Match) Serialize(encoder *ofbase.Encoder) error {
	m.Length = 4
	for _, f := range m.Fields {
		m.Length += f.Len()
	}
	encoder.PutUint16(m.Type)
	encoder.PutUint16(m.Length)
	for _, f := range m.Fields {
		if err := f.Serialize(encoder); err != nil {
			return err
		}
	}
	encoder.SkipAlign()
	return nil
}

func (m *Match) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := m.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (m *Match) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("the []byte is too short to unmarshal an ofp_match header")
	}
	m.Type = binary.BigEndian.Uint16(data[0:2])
	m.Length = binary.BigEndian.Uint16(data[2:4])
	if len(data) < int(m.Length) {
		return fmt.Errorf("the []byte is too short to unmarshal a full ofp_match")
	}
	m.Fields = make([]MatchField, 0)
	n := 4
	for n < int(m.Length) {
		var f MatchField
		if err := f.UnmarshalBinary(data[n:]); err != nil {
			return err
		}
		m.Fields = append(m.Fields, f)
		n += int(f.Len())
	}
	return nil
}
