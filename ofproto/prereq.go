package ofproto

import (
	"encoding/binary"

	"github.com/contiv/ofdp/openflow13"
)

// Common ethertypes, used by the prerequisite table below and by show.go's
// eth_type keywords.
const (
	ethTypeIPv4 = 0x0800
	ethTypeARP  = 0x0806
	ethTypeIPv6 = 0x86dd
	ethTypeMPLS = 0x8847
	ethTypeMPLS_MC = 0x8848
	ethTypePBB  = 0x88e7
)

const (
	ipProtoICMPv4 = 1
	ipProtoTCP    = 6
	ipProtoUDP    = 17
	ipProtoICMPv6 = 58
	ipProtoSCTP   = 132
)

// prereqRule says field requires one of requiredValues on requiredField
// (e.g. ARP_OP requires ETH_TYPE to be 0x0806), per spec.md §3's
// "Prerequisite closure" invariant.
type prereqRule struct {
	field         uint8
	requiredField uint8
	requiredValues []uint32
}

var prereqTable = []prereqRule{
	{openflow13.OXM_FIELD_ARP_OP, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeARP}},
	{openflow13.OXM_FIELD_ARP_SPA, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeARP}},
	{openflow13.OXM_FIELD_ARP_TPA, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeARP}},
	{openflow13.OXM_FIELD_ARP_SHA, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeARP}},
	{openflow13.OXM_FIELD_ARP_THA, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeARP}},

	{openflow13.OXM_FIELD_IPV4_SRC, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeIPv4}},
	{openflow13.OXM_FIELD_IPV4_DST, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeIPv4}},
	{openflow13.OXM_FIELD_IP_DSCP, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeIPv4, ethTypeIPv6}},
	{openflow13.OXM_FIELD_IP_ECN, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeIPv4, ethTypeIPv6}},
	{openflow13.OXM_FIELD_IP_PROTO, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeIPv4, ethTypeIPv6}},

	{openflow13.OXM_FIELD_IPV6_SRC, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeIPv6}},
	{openflow13.OXM_FIELD_IPV6_DST, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeIPv6}},
	{openflow13.OXM_FIELD_IPV6_FLABEL, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeIPv6}},
	{openflow13.OXM_FIELD_IPV6_EXTHDR, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeIPv6}},
	{openflow13.OXM_FIELD_IPV6_ND_TARGET, openflow13.OXM_FIELD_ICMPV6_TYPE, nil},
	{openflow13.OXM_FIELD_IPV6_ND_SLL, openflow13.OXM_FIELD_ICMPV6_TYPE, nil},
	{openflow13.OXM_FIELD_IPV6_ND_TLL, openflow13.OXM_FIELD_ICMPV6_TYPE, nil},

	{openflow13.OXM_FIELD_TCP_SRC, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoTCP}},
	{openflow13.OXM_FIELD_TCP_DST, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoTCP}},
	{openflow13.OXM_FIELD_UDP_SRC, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoUDP}},
	{openflow13.OXM_FIELD_UDP_DST, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoUDP}},
	{openflow13.OXM_FIELD_SCTP_SRC, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoSCTP}},
	{openflow13.OXM_FIELD_SCTP_DST, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoSCTP}},
	{openflow13.OXM_FIELD_ICMPV4_TYPE, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoICMPv4}},
	{openflow13.OXM_FIELD_ICMPV4_CODE, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoICMPv4}},
	{openflow13.OXM_FIELD_ICMPV6_TYPE, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoICMPv6}},
	{openflow13.OXM_FIELD_ICMPV6_CODE, openflow13.OXM_FIELD_IP_PROTO, []uint32{ipProtoICMPv6}},

	{openflow13.OXM_FIELD_MPLS_TC, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeMPLS, ethTypeMPLS_MC}},
	{openflow13.OXM_FIELD_MPLS_BOS, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypeMPLS, ethTypeMPLS_MC}},
	{openflow13.OXM_FIELD_PBB_ISID, openflow13.OXM_FIELD_ETH_TYPE, []uint32{ethTypePBB}},
	{openflow13.OXM_FIELD_VLAN_PCP, openflow13.OXM_FIELD_VLAN_VID, nil},
}

func fieldValueUint32(f openflow13.MatchField) uint32 {
	switch len(f.Value) {
	case 1:
		return uint32(f.Value[0])
	case 2:
		return uint32(binary.BigEndian.Uint16(f.Value))
	case 4:
		return binary.BigEndian.Uint32(f.Value)
	default:
		return 0
	}
}

// validatePrereqs checks every prerequisite rule matched fields need,
// rejecting with BAD_MATCH/BAD_PREREQ if one is missing (spec.md §4.2).
func validatePrereqs(matches []openflow13.MatchField) *openflow13.Error {
	byField := make(map[uint8]openflow13.MatchField, len(matches))
	for _, m := range matches {
		byField[m.Field] = m
	}

	for _, rule := range prereqTable {
		if _, present := byField[rule.field]; !present {
			continue
		}
		req, ok := byField[rule.requiredField]
		if !ok {
			return openflow13.NewError(openflow13.OFPET_BAD_MATCH, openflow13.OFPBMC_BAD_PREREQ)
		}
		if rule.requiredValues == nil {
			continue
		}
		v := fieldValueUint32(req)
		matched := false
		for _, want := range rule.requiredValues {
			if v == want {
				matched = true
				break
			}
		}
		if !matched {
			return openflow13.NewError(openflow13.OFPET_BAD_MATCH, openflow13.OFPBMC_BAD_PREREQ)
		}
	}
	return nil
}

// validateNoDupFields rejects a match list carrying the same OXM field
// twice (BAD_MATCH/DUP_FIELD).
func validateNoDupFields(matches []openflow13.MatchField) *openflow13.Error {
	seen := make(map[uint8]bool, len(matches))
	for _, m := range matches {
		if seen[m.Field] {
			return openflow13.NewError(openflow13.OFPET_BAD_MATCH, openflow13.OFPBMC_DUP_FIELD)
		}
		seen[m.Field] = true
	}
	return nil
}
