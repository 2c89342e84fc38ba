package openflow13

// OXM field identifiers (ofp_oxm_ofb_match_fields, OpenFlow 1.3 §7.2.3.7).
// This is a closed enumeration: the classifier and the wire codec only ever
// construct one of these, never an experimenter-private field.
const (
	OXM_FIELD_IN_PORT        = 0
	OXM_FIELD_IN_PHY_PORT    = 1
	OXM_FIELD_METADATA       = 2
	OXM_FIELD_ETH_DST        = 3
	OXM_FIELD_ETH_SRC        = 4
	OXM_FIELD_ETH_TYPE       = 5
	OXM_FIELD_VLAN_VID       = 6
	OXM_FIELD_VLAN_PCP       = 7
	OXM_FIELD_IP_DSCP        = 8
	OXM_FIELD_IP_ECN         = 9
	OXM_FIELD_IP_PROTO       = 10
	OXM_FIELD_IPV4_SRC       = 11
	OXM_FIELD_IPV4_DST       = 12
	OXM_FIELD_TCP_SRC        = 13
	OXM_FIELD_TCP_DST        = 14
	OXM_FIELD_UDP_SRC        = 15
	OXM_FIELD_UDP_DST        = 16
	OXM_FIELD_SCTP_SRC       = 17
	OXM_FIELD_SCTP_DST       = 18
	OXM_FIELD_ICMPV4_TYPE    = 19
	OXM_FIELD_ICMPV4_CODE    = 20
	OXM_FIELD_ARP_OP         = 21
	OXM_FIELD_ARP_SPA        = 22
	OXM_FIELD_ARP_TPA        = 23
	OXM_FIELD_ARP_SHA        = 24
	OXM_FIELD_ARP_THA        = 25
	OXM_FIELD_IPV6_SRC       = 26
	OXM_FIELD_IPV6_DST       = 27
	OXM_FIELD_IPV6_FLABEL    = 28
	OXM_FIELD_ICMPV6_TYPE    = 29
	OXM_FIELD_ICMPV6_CODE    = 30
	OXM_FIELD_IPV6_ND_TARGET = 31
	OXM_FIELD_IPV6_ND_SLL    = 32
	OXM_FIELD_IPV6_ND_TLL    = 33
	OXM_FIELD_MPLS_LABEL     = 34
	OXM_FIELD_MPLS_TC        = 35
	OXM_FIELD_MPLS_BOS       = 36
	OXM_FIELD_PBB_ISID       = 37
	OXM_FIELD_TUNNEL_ID      = 38
	OXM_FIELD_IPV6_EXTHDR    = 39
)

// OXM classes (ofp_oxm_class).
const (
	OXM_CLASS_NXM_0          = 0x0000
	OXM_CLASS_NXM_1          = 0x0001
	OXM_CLASS_OPENFLOW_BASIC = 0x8000
	OXM_CLASS_EXPERIMENTER   = 0xffff
)

// VLAN VID special values (ofp_vlan_id).
const (
	OFPVID_PRESENT = 0x1000 // bit set if a VLAN tag is present.
	OFPVID_NONE    = 0x0000 // no VLAN tag.
)

// IPv6 extension header flags (ofp_ipv6exthdr_flags).
const (
	OFPIEH_NONEXT = 1 << 0
	OFPIEH_ESP    = 1 << 1
	OFPIEH_AUTH   = 1 << 2
	OFPIEH_DEST   = 1 << 3
	OFPIEH_FRAG   = 1 << 4
	OFPIEH_ROUTER = 1 << 5
	OFPIEH_HOP    = 1 << 6
	OFPIEH_UNREP  = 1 << 7
	OFPIEH_UNSEQ  = 1 << 8
)

// xmFieldLen gives the byte length of each field's value (not counting an
// optional trailing mask of the same length). The field descriptor table
// (ofproto/descriptor.go, via FieldLen) reuses this as the canonical size
// source.
var xmFieldLen = map[uint8]uint8{
	OXM_FIELD_IN_PORT:        4,
	OXM_FIELD_IN_PHY_PORT:    4,
	OXM_FIELD_METADATA:       8,
	OXM_FIELD_ETH_DST:        6,
	OXM_FIELD_ETH_SRC:        6,
	OXM_FIELD_ETH_TYPE:       2,
	OXM_FIELD_VLAN_VID:       2,
	OXM_FIELD_VLAN_PCP:       1,
	OXM_FIELD_IP_DSCP:        1,
	OXM_FIELD_IP_ECN:         1,
	OXM_FIELD_IP_PROTO:       1,
	OXM_FIELD_IPV4_SRC:       4,
	OXM_FIELD_IPV4_DST:       4,
	OXM_FIELD_TCP_SRC:        2,
	OXM_FIELD_TCP_DST:        2,
	OXM_FIELD_UDP_SRC:        2,
	OXM_FIELD_UDP_DST:        2,
	OXM_FIELD_SCTP_SRC:       2,
	OXM_FIELD_SCTP_DST:       2,
	OXM_FIELD_ICMPV4_TYPE:    1,
	OXM_FIELD_ICMPV4_CODE:    1,
	OXM_FIELD_ARP_OP:         2,
	OXM_FIELD_ARP_SPA:        4,
	OXM_FIELD_ARP_TPA:        4,
	OXM_FIELD_ARP_SHA:        6,
	OXM_FIELD_ARP_THA:        6,
	OXM_FIELD_IPV6_SRC:       16,
	OXM_FIELD_IPV6_DST:       16,
	OXM_FIELD_IPV6_FLABEL:    4,
	OXM_FIELD_ICMPV6_TYPE:    1,
	OXM_FIELD_ICMPV6_CODE:    1,
	OXM_FIELD_IPV6_ND_TARGET: 16,
	OXM_FIELD_IPV6_ND_SLL:    6,
	OXM_FIELD_IPV6_ND_TLL:    6,
	OXM_FIELD_MPLS_LABEL:     4,
	OXM_FIELD_MPLS_TC:        1,
	OXM_FIELD_MPLS_BOS:       1,
	OXM_FIELD_PBB_ISID:       3,
	OXM_FIELD_TUNNEL_ID:      8,
	OXM_FIELD_IPV6_EXTHDR:    2,
}

// xmFieldMaskable mirrors the OpenFlow 1.3 spec table of which fields may
// carry a mask (ofp_oxm_ofb_match_fields "can mask" column).
var xmFieldMaskable = map[uint8]bool{
	OXM_FIELD_METADATA:    true,
	OXM_FIELD_ETH_DST:     true,
	OXM_FIELD_ETH_SRC:     true,
	OXM_FIELD_VLAN_VID:    true,
	OXM_FIELD_IPV4_SRC:    true,
	OXM_FIELD_IPV4_DST:    true,
	OXM_FIELD_ARP_SPA:     true,
	OXM_FIELD_ARP_TPA:     true,
	OXM_FIELD_IPV6_SRC:    true,
	OXM_FIELD_IPV6_DST:    true,
	OXM_FIELD_IPV6_FLABEL: true,
	OXM_FIELD_PBB_ISID:    true,
	OXM_FIELD_TUNNEL_ID:   true,
	OXM_FIELD_IPV6_EXTHDR: true,
}

var xmFieldName = map[uint8]string{
	OXM_FIELD_IN_PORT:        "in_port",
	OXM_FIELD_IN_PHY_PORT:    "in_phy_port",
	OXM_FIELD_METADATA:       "metadata",
	OXM_FIELD_ETH_DST:        "eth_dst",
	OXM_FIELD_ETH_SRC:        "eth_src",
	OXM_FIELD_ETH_TYPE:       "eth_type",
	OXM_FIELD_VLAN_VID:       "vlan_vid",
	OXM_FIELD_VLAN_PCP:       "vlan_pcp",
	OXM_FIELD_IP_DSCP:        "ip_dscp",
	OXM_FIELD_IP_ECN:         "ip_ecn",
	OXM_FIELD_IP_PROTO:       "ip_proto",
	OXM_FIELD_IPV4_SRC:       "ipv4_src",
	OXM_FIELD_IPV4_DST:       "ipv4_dst",
	OXM_FIELD_TCP_SRC:        "tcp_src",
	OXM_FIELD_TCP_DST:        "tcp_dst",
	OXM_FIELD_UDP_SRC:        "udp_src",
	OXM_FIELD_UDP_DST:        "udp_dst",
	OXM_FIELD_SCTP_SRC:       "sctp_src",
	OXM_FIELD_SCTP_DST:       "sctp_dst",
	OXM_FIELD_ICMPV4_TYPE:    "icmpv4_type",
	OXM_FIELD_ICMPV4_CODE:    "icmpv4_code",
	OXM_FIELD_ARP_OP:         "arp_op",
	OXM_FIELD_ARP_SPA:        "arp_spa",
	OXM_FIELD_ARP_TPA:        "arp_tpa",
	OXM_FIELD_ARP_SHA:        "arp_sha",
	OXM_FIELD_ARP_THA:        "arp_tha",
	OXM_FIELD_IPV6_SRC:       "ipv6_src",
	OXM_FIELD_IPV6_DST:       "ipv6_dst",
	OXM_FIELD_IPV6_FLABEL:    "ipv6_flabel",
	OXM_FIELD_ICMPV6_TYPE:    "icmpv6_type",
	OXM_FIELD_ICMPV6_CODE:    "icmpv6_code",
	OXM_FIELD_IPV6_ND_TARGET: "ipv6_nd_target",
	OXM_FIELD_IPV6_ND_SLL:    "ipv6_nd_sll",
	OXM_FIELD_IPV6_ND_TLL:    "ipv6_nd_tll",
	OXM_FIELD_MPLS_LABEL:     "mpls_label",
	OXM_FIELD_MPLS_TC:        "mpls_tc",
	OXM_FIELD_MPLS_BOS:       "mpls_bos",
	OXM_FIELD_PBB_ISID:       "pbb_isid",
	OXM_FIELD_TUNNEL_ID:      "tunnel_id",
	OXM_FIELD_IPV6_EXTHDR:    "ipv6_exthdr",
}

// FieldName returns the human-readable name of an OXM basic field, used by
// the show/dump surface.
func FieldName(field uint8) string {
	if n, ok := xmFieldName[field]; ok {
		return n
	}
	return "unknown"
}

// FieldLen returns the byte width of an OXM basic field's value, or 0 for an
// unknown field.
func FieldLen(field uint8) uint8 {
	return xmFieldLen[field]
}
