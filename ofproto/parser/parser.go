// Package parser turns a raw Ethernet frame into the ofproto.ClassifyKey
// the classification tree (flowinfo/mbtree/thtable) and the flow cache key
// off of. It is a read-only walk: unlike protocol.IPv6's MarshalBinary
// round-trip, nothing here reconstructs wire bytes, it only locates the
// byte ranges a fieldDescriptor later slices.
package parser

import (
	"encoding/binary"
	"errors"

	"github.com/cespare/xxhash/v2"

	"github.com/contiv/ofdp/ofproto"
	"github.com/contiv/ofdp/openflow13"
)

// Ethertypes the walk understands; anything else stops the walk at L2,
// which is still a legal (if shallow) ClassifyKey.
const (
	ethTypeDot1Q = 0x8100
	ethTypeIPv4  = 0x0800
	ethTypeARP   = 0x0806
	ethTypeIPv6  = 0x86dd
	ethTypeMPLSU = 0x8847
	ethTypeMPLSM = 0x8848
	ethTypePBB   = 0x88e7
)

var errShortFrame = errors.New("parser: frame shorter than an Ethernet header")

// PBBIsVLAN toggles the PBB_IS_VLAN compatibility switch (spec.md §9):
// when true, a PBB (802.1ah) I-TAG is unwrapped like a VLAN tag — the I-SID
// is still recorded, but EtherType becomes the encapsulated
// customer frame's ethertype and classification continues from the
// customer MAC header, exactly as the source's classify_ether_packet does
// when built with PBB_IS_VLAN defined. Whether this is OpenFlow-compliant
// in every case is unclear upstream too; the switch defaults to false
// (true I-SID-based classification) and exists only for parity with
// deployments that relied on the other behavior.
var PBBIsVLAN = false

// Parse walks frame (starting at the Ethernet destination address) and
// builds the ClassifyKey a Flowdb lookup needs. inPort/inPhyPort/metadata
// are OpenFlow out-of-band state the switch pipeline carries alongside the
// frame bytes, not found in the frame itself.
func Parse(frame []byte, inPort, inPhyPort uint32, metadata uint64) (*ofproto.ClassifyKey, error) {
	if len(frame) < 14 {
		return nil, errShortFrame
	}

	key := &ofproto.ClassifyKey{}
	key.InPort = inPort
	key.InPhyPort = inPhyPort
	key.Metadata = metadata
	key.BasePtrs[ofproto.BaseEth] = frame[0:12]

	ethType := binary.BigEndian.Uint16(frame[12:14])
	offset := 14
	if ethType == ethTypeDot1Q {
		if len(frame) < 18 {
			return nil, errShortFrame
		}
		// OR in OFPVID_PRESENT so the packet-side VlanTCI encodes a tagged
		// VID exactly the way openflow13.NewVlanIdField encodes the flow
		// side (match.go); an untagged frame never sets this bit, leaving
		// VlanTCI == OFPVID_NONE (0).
		key.VlanTCI = binary.BigEndian.Uint16(frame[14:16]) | openflow13.OFPVID_PRESENT
		ethType = binary.BigEndian.Uint16(frame[16:18])
		offset = 18
	}
	key.EtherType = ethType

	var rest []byte
	if offset <= len(frame) {
		rest = frame[offset:]
	}

	if ethType == ethTypePBB {
		parsePBB(rest, key)
		if PBBIsVLAN {
			if innerType, innerRest, ok := unwrapPBBAsVLAN(rest, key); ok {
				ethType = innerType
				key.EtherType = ethType
				rest = innerRest
			}
		}
	}

	switch ethType {
	case ethTypeIPv4:
		parseIPv4(rest, key)
	case ethTypeARP:
		parseARP(rest, key)
	case ethTypeIPv6:
		parseIPv6(rest, key)
	case ethTypeMPLSU, ethTypeMPLSM:
		parseMPLS(rest, key)
	}

	key.Fingerprint = fingerprint(key)
	return key, nil
}

// parseIPv4 locates the DSCP/ECN byte, addresses, protocol number and L4
// payload of an IPv4 datagram. Options (IHL > 5) are skipped over, never
// interpreted.
func parseIPv4(data []byte, key *ofproto.ClassifyKey) {
	if len(data) < 20 {
		return
	}
	ihl := int(data[0]&0x0f) * 4
	if ihl < 20 || len(data) < ihl {
		return
	}
	key.BasePtrs[ofproto.BaseL3] = data[:20]
	key.BasePtrs[ofproto.BaseIPProto] = data[9:10]
	if len(data) > ihl {
		key.BasePtrs[ofproto.BaseL4] = data[ihl:]
	}
}

// parseARP locates the Ethernet/IPv4 ARP packet's fixed fields. Only the
// common 28-byte hardware=Ethernet/protocol=IPv4 shape is addressed by the
// field descriptors this module supports; anything shorter is ignored.
func parseARP(data []byte, key *ofproto.ClassifyKey) {
	if len(data) < 28 {
		return
	}
	key.BasePtrs[ofproto.BaseL3] = data[:28]
}

// parseMPLS reads the outermost MPLS label stack entry. A packet with a
// deeper label stack is still classified on its top label, matching
// OpenFlow 1.3's single MPLS_LABEL/TC/BOS match fields.
func parseMPLS(data []byte, key *ofproto.ClassifyKey) {
	if len(data) < 4 {
		return
	}
	key.BasePtrs[ofproto.BaseMPLS] = data[:4]
}

// parsePBB locates the I-SID of a PBB (IEEE 802.1ah) frame. data starts
// right at the I-TAG word (the ethertype that selected this function is
// the I-TAG's own TPID, occupying the same slot an ordinary ethertype
// would); I-SID is the low 3 bytes of that 4-byte word.
func parsePBB(data []byte, key *ofproto.ClassifyKey) {
	if len(data) < 4 {
		return
	}
	key.BasePtrs[ofproto.BasePBB] = data[1:4]
}

// unwrapPBBAsVLAN implements the PBB_IS_VLAN compatibility switch: it skips
// the I-TAG(4) plus the encapsulated customer MAC header C-DA(6)/C-SA(6) to
// reach the customer frame's own ethertype, treating the whole I-TAG the
// way a VLAN tag is treated elsewhere in this parser. ok is false if data
// is too short to contain a full inner MAC header.
func unwrapPBBAsVLAN(data []byte, key *ofproto.ClassifyKey) (innerType uint16, rest []byte, ok bool) {
	const innerHeaderLen = 4 + 6 + 6 // I-TAG + C-DA + C-SA
	if len(data) < innerHeaderLen+2 {
		return 0, nil, false
	}
	key.BasePtrs[ofproto.BaseEth] = data[4:innerHeaderLen]
	return binary.BigEndian.Uint16(data[innerHeaderLen : innerHeaderLen+2]), data[innerHeaderLen+2:], true
}

const protoICMPv6 = 58

// fingerprint hashes everything a classification decision could depend on:
// the OOB/OOB2 scalars and every populated base-pointer slice. Anything
// that changes which flow a packet matches changes the fingerprint; bytes no
// field reads (the rest of the L4 payload, the IPv4 TTL and checksum) are
// hashed too, so frames that classify identically can still hash apart.
func fingerprint(key *ofproto.ClassifyKey) uint64 {
	h := xxhash.New()
	var scratch [20]byte
	binary.BigEndian.PutUint32(scratch[0:4], key.InPort)
	binary.BigEndian.PutUint32(scratch[4:8], key.InPhyPort)
	binary.BigEndian.PutUint64(scratch[8:16], key.Metadata)
	binary.BigEndian.PutUint16(scratch[16:18], key.EtherType)
	binary.BigEndian.PutUint16(scratch[18:20], key.VlanTCI)
	h.Write(scratch[:])

	var scratch2 [10]byte
	binary.BigEndian.PutUint64(scratch2[0:8], key.TunnelID)
	binary.BigEndian.PutUint16(scratch2[8:10], key.IPv6Exthdr)
	h.Write(scratch2[:])

	for i := 0; i < ofproto.BaseMax; i++ {
		bp := key.Base(i)
		if bp == nil {
			continue
		}
		h.Write(bp)
	}
	return h.Sum64()
}
