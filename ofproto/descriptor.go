package ofproto

import (
	"encoding/binary"

	"github.com/contiv/ofdp/openflow13"
)

// fieldDescriptor says how to pull one OXM basic field's raw bits out of a
// ClassifyKey: which base pointer to read (or an OOB/OOB2 scalar when
// base < 0), how many bytes to read there, and the bit shift/mask to apply
// to land on exactly the field's own value. Ported from the teacher
// source's `match_idx[]` table (mbtree.c), indexed by OXM field number;
// OOB-resident fields (in_port, ether_type, vlan_tci, tunnel_id,
// ipv6_exthdr) are read from the ClassifyKey's OOB/OOB2 structs directly
// since our parser carries them as scalars rather than raw header bytes.
type fieldDescriptor struct {
	base   int // one of Base*, or -1/-2 for an OOB/OOB2 scalar
	offset int
	size   int // bytes read at base+offset before masking/shifting
	shift  uint
	mask   uint64
}

const (
	baseOOBScalar  = -1
	baseOOB2Scalar = -2
)

// fieldDescriptors mirrors match_idx[]; index is the OXM field number
// (openflow13.OXM_FIELD_*). Fields with no table entry here (the three
// 128-bit address fields) are special-cased in fieldValue instead, since
// their width doesn't fit the generic uint64 extraction path.
var fieldDescriptors = map[uint8]fieldDescriptor{
	oxmInPort:      {baseOOBScalar, 0, 4, 0, 0xffffffff},
	oxmInPhyPort:   {baseOOBScalar, 4, 4, 0, 0xffffffff},
	oxmMetadata:    {baseOOBScalar, 8, 8, 0, ^uint64(0)},
	oxmEthDst:      {base: baseForEth, offset: 0, size: 6, mask: 0xffffffffffff},
	oxmEthSrc:      {base: baseForEth, offset: 6, size: 6, mask: 0xffffffffffff},
	oxmEthType:     {baseOOBScalar, 16, 2, 0, 0xffff},
	// 0x1fff keeps bits 0-12 (VID plus the parser-synthesized
	// OFPVID_PRESENT flag at bit 12) and drops bits 13-15 (PCP, read
	// separately below), matching the value openflow13.NewVlanIdField
	// encodes on the flow side.
	oxmVlanVid:     {baseOOBScalar, 18, 2, 0, 0x1fff},
	oxmVlanPcp:     {baseOOBScalar, 18, 2, 13, 0x7},
	oxmIPDscp:      {base: baseForL3, offset: 1, size: 1, shift: 2, mask: 0x3f},
	oxmIPEcn:       {base: baseForL3, offset: 1, size: 1, shift: 0, mask: 0x3},
	oxmIPProto:     {base: baseForIPProto, offset: 0, size: 1, mask: 0xff},
	oxmIPv4Src:     {base: baseForL3, offset: 12, size: 4, mask: 0xffffffff},
	oxmIPv4Dst:     {base: baseForL3, offset: 16, size: 4, mask: 0xffffffff},
	oxmTCPSrc:      {base: baseForL4, offset: 0, size: 2, mask: 0xffff},
	oxmTCPDst:      {base: baseForL4, offset: 2, size: 2, mask: 0xffff},
	oxmUDPSrc:      {base: baseForL4, offset: 0, size: 2, mask: 0xffff},
	oxmUDPDst:      {base: baseForL4, offset: 2, size: 2, mask: 0xffff},
	oxmSCTPSrc:     {base: baseForL4, offset: 0, size: 2, mask: 0xffff},
	oxmSCTPDst:     {base: baseForL4, offset: 2, size: 2, mask: 0xffff},
	oxmICMPv4Type:  {base: baseForL4, offset: 0, size: 1, mask: 0xff},
	oxmICMPv4Code:  {base: baseForL4, offset: 1, size: 1, mask: 0xff},
	oxmArpOp:       {base: baseForL3, offset: 6, size: 2, mask: 0xffff},
	oxmArpSpa:      {base: baseForL3, offset: 14, size: 4, mask: 0xffffffff},
	oxmArpTpa:      {base: baseForL3, offset: 24, size: 4, mask: 0xffffffff},
	oxmArpSha:      {base: baseForL3, offset: 8, size: 6, mask: 0xffffffffffff},
	oxmArpTha:      {base: baseForL3, offset: 18, size: 6, mask: 0xffffffffffff},
	oxmIPv6Flabel:  {base: baseForL3, offset: 0, size: 4, mask: 0x000fffff},
	oxmICMPv6Type:  {base: baseForL4, offset: 0, size: 1, mask: 0xff},
	oxmICMPv6Code:  {base: baseForL4, offset: 1, size: 1, mask: 0xff},
	oxmMplsLabel:   {base: baseForMPLS, offset: 0, size: 4, shift: 12, mask: 0xfffff},
	oxmMplsTc:      {base: baseForMPLS, offset: 0, size: 4, shift: 9, mask: 0x7},
	oxmMplsBos:     {base: baseForMPLS, offset: 0, size: 4, shift: 8, mask: 0x1},
	oxmPbbIsid:     {base: baseForPBB, offset: 0, size: 3, mask: 0xffffff},
	oxmTunnelID:    {baseOOB2Scalar, 0, 8, 0, ^uint64(0)},
	oxmIPv6Exthdr:  {baseOOB2Scalar, 8, 2, 0, 0xffff},
	oxmIcmpv6NdSll: {base: baseForNDSLL, offset: 0, size: 6, mask: 0xffffffffffff},
	oxmIcmpv6NdTll: {base: baseForNDTLL, offset: 0, size: 6, mask: 0xffffffffffff},
}

// Field numbers named locally to keep the table above readable without a
// 40-line import alias block; these are exactly openflow13.OXM_FIELD_*.
const (
	oxmInPort      = 0
	oxmInPhyPort   = 1
	oxmMetadata    = 2
	oxmEthDst      = 3
	oxmEthSrc      = 4
	oxmEthType     = 5
	oxmVlanVid     = 6
	oxmVlanPcp     = 7
	oxmIPDscp      = 8
	oxmIPEcn       = 9
	oxmIPProto     = 10
	oxmIPv4Src     = 11
	oxmIPv4Dst     = 12
	oxmTCPSrc      = 13
	oxmTCPDst      = 14
	oxmUDPSrc      = 15
	oxmUDPDst      = 16
	oxmSCTPSrc     = 17
	oxmSCTPDst     = 18
	oxmICMPv4Type  = 19
	oxmICMPv4Code  = 20
	oxmArpOp       = 21
	oxmArpSpa      = 22
	oxmArpTpa      = 23
	oxmArpSha      = 24
	oxmArpTha      = 25
	oxmIPv6Src     = 26
	oxmIPv6Dst     = 27
	oxmIPv6Flabel  = 28
	oxmICMPv6Type  = 29
	oxmICMPv6Code  = 30
	oxmIPv6NdTarget = 31
	oxmIcmpv6NdSll = 32
	oxmIcmpv6NdTll = 33
	oxmMplsLabel   = 34
	oxmMplsTc      = 35
	oxmMplsBos     = 36
	oxmPbbIsid     = 37
	oxmTunnelID    = 38
	oxmIPv6Exthdr  = 39

	baseForEth     = BaseEth
	baseForL3      = BaseL3
	baseForIPProto = BaseIPProto
	baseForL4      = BaseL4
	baseForMPLS    = BaseMPLS
	baseForPBB     = BasePBB
	baseForNDSLL   = BaseNDSLL
	baseForNDTLL   = BaseNDTLL
)

// wide128 fields carry a 16-byte address that does not fit a uint64 lane;
// they are read and compared as raw bytes instead.
var wide128Base = map[uint8]int{
	oxmIPv6Src:      BaseV6Src,
	oxmIPv6Dst:      BaseV6Dst,
	oxmIPv6NdTarget: BaseL4P,
}

// fieldValue extracts field's raw value from key as a big-endian byte slice
// exactly as wide as the field's own OXM encoding (so the caller can compare
// it directly against a MatchField's Value/Mask bytes). ok is false if the
// packet has no header for this field (the relevant base pointer is absent
// or too short), meaning any match constraining the field cannot be
// satisfied.
func fieldValue(field uint8, key *ClassifyKey) (raw []byte, ok bool) {
	if base, wide := wide128Base[field]; wide {
		bp := key.Base(base)
		if len(bp) < 16 {
			return nil, false
		}
		return bp[:16], true
	}

	desc, known := fieldDescriptors[field]
	if !known {
		return nil, false
	}

	var scalar []byte
	switch desc.base {
	case baseOOBScalar:
		scalar = oobScalarBytes(&key.OOB)
	case baseOOB2Scalar:
		scalar = oob2ScalarBytes(&key.OOB2)
	default:
		scalar = key.Base(desc.base)
	}
	if len(scalar) < desc.offset+desc.size {
		return nil, false
	}
	source := scalar[desc.offset : desc.offset+desc.size]

	numeric := beUint(source)
	numeric = (numeric >> desc.shift) & desc.mask

	width := openflow13.FieldLen(field)
	if width == 0 {
		return nil, false
	}
	out := make([]byte, width)
	putBigEndian(out, numeric)
	return out, true
}

// oobScalarBytes serializes the handful of OOB struct fields the descriptor
// table addresses by byte offset (in_port@0, in_phy_port@4, metadata@8,
// ether_type@16, vlan_tci@18), so fieldValue's generic offset/size slicing
// works uniformly for header bytes and OOB scalars alike.
func oobScalarBytes(o *OOB) []byte {
	buf := make([]byte, 20)
	binary.BigEndian.PutUint32(buf[0:4], o.InPort)
	binary.BigEndian.PutUint32(buf[4:8], o.InPhyPort)
	binary.BigEndian.PutUint64(buf[8:16], o.Metadata)
	binary.BigEndian.PutUint16(buf[16:18], o.EtherType)
	binary.BigEndian.PutUint16(buf[18:20], o.VlanTCI)
	return buf
}

func oob2ScalarBytes(o *OOB2) []byte {
	buf := make([]byte, 10)
	binary.BigEndian.PutUint64(buf[0:8], o.TunnelID)
	binary.BigEndian.PutUint16(buf[8:10], o.IPv6Exthdr)
	return buf
}

func putBigEndian(out []byte, v uint64) {
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
}

// BEUint decodes a big-endian byte slice (as carried in a MatchField's Value
// or Mask) into a uint64; exported so flowinfo/mbtree/thtable can read a
// flow's own constraint value without re-deriving this.
func BEUint(b []byte) uint64 { return beUint(b) }

// FieldConstraint reports what a flow demands of one OXM field: whether the
// field is present in its match set at all, and — if present and
// exact-matched (no mask, or an all-ones mask) — its value. A present but
// masked/wildcarded field reports exact=false, telling a dispatching index
// it cannot route the flow to a single child bucket and must fall back to
// its don't-care bucket (original_source's flowinfo "misc" list).
func FieldConstraint(f *Flow, field uint8) (value uint64, exact bool, present bool) {
	for _, m := range f.Matches {
		if m.Field != field {
			continue
		}
		v, mask := effectiveValueMask(m)
		allOnes := true
		for _, b := range mask {
			if b != 0xff {
				allOnes = false
				break
			}
		}
		return beUint(v), allOnes, true
	}
	return 0, false, false
}

// IPProto extracts the IP protocol number from key's parsed packet, or
// ok=false if key carries no IP header.
func IPProto(key *ClassifyKey) (proto uint8, ok bool) {
	raw, ok := fieldValue(oxmIPProto, key)
	if !ok {
		return 0, false
	}
	return raw[0], true
}

// MPLSLabel extracts the 20-bit MPLS label from key's outermost MPLS shim,
// or ok=false if key carries no MPLS header.
func MPLSLabel(key *ClassifyKey) (label uint32, ok bool) {
	raw, ok := fieldValue(oxmMplsLabel, key)
	if !ok {
		return 0, false
	}
	return uint32(beUint(raw)), true
}

// FieldBytes extracts field's raw value from key as big-endian bytes,
// exactly as wide as the field's OXM encoding. thtable uses this to build
// an exact-match tuple key across a flow's full field set, including the
// 128-bit IPv6 address fields FieldValueAt cannot carry.
func FieldBytes(field uint8, key *ClassifyKey) ([]byte, bool) {
	return fieldValue(field, key)
}

// FieldValueAt extracts field's numeric value from key, for use by index
// dispatchers (mbtree, thtable) that route on fields narrower than 64 bits.
// It is not meaningful for the three 128-bit address fields; callers
// needing those should compare raw bytes instead.
func FieldValueAt(field uint8, key *ClassifyKey) (uint64, bool) {
	raw, ok := fieldValue(field, key)
	if !ok {
		return 0, false
	}
	return beUint(raw), true
}

// MatchBasic reports whether every field a flow constrains is satisfied by
// the packet described by key — the leaf-level comparison
// flowinfo/mbtree/thtable all build on (original_source's match_basic).
func MatchBasic(matches []openflow13.MatchField, key *ClassifyKey) bool {
	for _, m := range matches {
		raw, ok := fieldValue(m.Field, key)
		if !ok {
			return false
		}
		flowVal, flowMask := effectiveValueMask(m)
		if len(raw) != len(flowVal) {
			return false
		}
		for i := range raw {
			if raw[i]&flowMask[i] != flowVal[i]&flowMask[i] {
				return false
			}
		}
	}
	return true
}
