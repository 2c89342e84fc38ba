package parser

import (
	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/openflow13"
	"github.com/contiv/ofdp/protocol"
)

// parseIPv6 walks the IPv6 header and its extension-header chain twice:
// once through protocol.IPv6's structured UnmarshalBinary to get the
// extension-header presence bits OFPIEH_* wants, and once as a plain
// offset walk to find where the upper-layer payload actually starts (the
// structured form doesn't retain that offset). Both walks follow the same
// RFC 8200 §4.1 chain as protocol/ipv6.go's MarshalBinary, just reading
// instead of writing.
func parseIPv6(data []byte, key *ofproto.ClassifyKey) {
	if len(data) < 40 {
		return
	}
	key.BasePtrs[ofproto.BaseL3] = data[:4]
	key.BasePtrs[ofproto.BaseV6Src] = data[8:24]
	key.BasePtrs[ofproto.BaseV6Dst] = data[24:40]

	var hdr protocol.IPv6
	if err := hdr.UnmarshalBinary(data); err == nil {
		key.IPv6Exthdr = exthdrBits(&hdr)
	}

	proto, payload := walkExtensionHeaders(data[6], data[40:])
	if payload == nil {
		return
	}
	key.BasePtrs[ofproto.BaseIPProto] = []byte{proto}
	key.BasePtrs[ofproto.BaseL4] = payload

	if proto == protoICMPv6 {
		parseICMPv6ND(payload, key)
	}
}

// exthdrBits recasts the extension headers protocol.IPv6 already decoded
// into the OFPIEH_* bitset OXM_FIELD_IPV6_EXTHDR reports.
func exthdrBits(h *protocol.IPv6) uint16 {
	var bits uint16
	if h.HbhHeader != nil {
		bits |= openflow13.OFPIEH_HOP
	}
	if h.RoutingHeader != nil {
		bits |= openflow13.OFPIEH_ROUTER
	}
	if h.FragmentHeader != nil {
		bits |= openflow13.OFPIEH_FRAG
	}
	if h.DestOptsHeader != nil {
		bits |= openflow13.OFPIEH_DEST
	}
	if h.AuthHeader != nil {
		bits |= openflow13.OFPIEH_AUTH
	}
	if h.ESPPresent {
		bits |= openflow13.OFPIEH_ESP
	}
	if h.NoNextHeader {
		bits |= openflow13.OFPIEH_NONEXT
	}
	return bits
}

// walkExtensionHeaders follows the same next-header chain
// protocol.IPv6.UnmarshalBinary does, but returns the upper-layer
// protocol number and the byte slice where its payload begins, neither of
// which the structured decode exposes.
func walkExtensionHeaders(nextHeader uint8, data []byte) (proto uint8, payload []byte) {
	for {
		switch nextHeader {
		case protocol.Type_HBH, protocol.Type_DestOpts, protocol.Type_AuthHdr:
			if len(data) < 2 {
				return 0, nil
			}
			next := data[0]
			hel := data[1]
			length := 8 * (int(hel) + 1)
			if nextHeader == protocol.Type_AuthHdr {
				// AH measures its length in 4-byte units and excludes the
				// first 8 bytes, per RFC 4302 §2.2 — distinct from the
				// 8-byte-unit HBH/DestOpts convention.
				length = 4*(int(hel)+2)
			}
			if len(data) < length {
				return 0, nil
			}
			nextHeader = next
			data = data[length:]
		case protocol.Type_Routing:
			if len(data) < 2 {
				return 0, nil
			}
			next := data[0]
			length := 8 * (int(data[1]) + 1)
			if len(data) < length {
				return 0, nil
			}
			nextHeader = next
			data = data[length:]
		case protocol.Type_Fragment:
			if len(data) < 8 {
				return 0, nil
			}
			nextHeader = data[0]
			data = data[8:]
		case protocol.Type_ESP, protocol.Type_NoNextHdr:
			return nextHeader, nil
		default:
			return nextHeader, data
		}
	}
}

// parseICMPv6ND locates the Source/Target Link-Layer Address options on a
// Neighbor Solicitation or Advertisement, grounded on protocol/nd.go's
// option layout.
func parseICMPv6ND(data []byte, key *ofproto.ClassifyKey) {
	if len(data) < 1 {
		return
	}
	switch data[0] {
	case protocol.ICMPv6_Type_NeighborSolicit:
		var ns protocol.NeighborSolicitation
		if err := ns.UnmarshalBinary(data); err != nil {
			return
		}
		if sll := ns.SourceLinkLayerAddr(); sll != nil {
			key.BasePtrs[ofproto.BaseNDSLL] = []byte(sll)
		}
		if len(ns.Target) == 16 {
			key.BasePtrs[ofproto.BaseL4P] = []byte(ns.Target)
		}
	case protocol.ICMPv6_Type_NeighborAdvert:
		var na protocol.NeighborAdvertisement
		if err := na.UnmarshalBinary(data); err != nil {
			return
		}
		if tll := na.TargetLinkLayerAddr(); tll != nil {
			key.BasePtrs[ofproto.BaseNDTLL] = []byte(tll)
		}
		if len(na.Target) == 16 {
			key.BasePtrs[ofproto.BaseL4P] = []byte(na.Target)
		}
	}
}
