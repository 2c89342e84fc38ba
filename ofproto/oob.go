package ofproto

// Base-pointer table indices (spec.md §4.1; original_source
// src/include/lagopus/flowdb.h's OOB_BASE..MAX_BASE enum). The mbtree and
// flowinfo matchers index into ClassifyKey.BasePtrs to fetch the raw bytes a field
// descriptor reads from, instead of re-deriving a header pointer per field.
const (
	BaseOOB = iota
	BaseEth
	BasePBB
	BaseMPLS
	BaseL3
	BaseIPProto
	BaseL4
	BaseL4P
	BaseOOB2
	BaseV6Src
	BaseV6Dst
	BaseNDSLL
	BaseNDTLL
	BaseMax
)

// OOB is the primary Out-Of-Band struct the parser derives from a raw
// frame: fields that exist outside the packet bytes themselves (ingress
// port, metadata) plus the handful of L2/L3 scalars cheap enough to carry
// inline instead of re-reading through a base pointer.
type OOB struct {
	Metadata    uint64
	InPort      uint32
	InPhyPort   uint32
	PacketType  uint32
	EtherType   uint16
	VlanTCI     uint16
}

// OOB2 carries the OpenFlow 1.3 fields that arrived after the original OOB
// struct was frozen (original_source's "2nd" OOB struct) — tunnel id and
// the IPv6 extension-header bitset.
type OOB2 struct {
	TunnelID     uint64
	IPv6Exthdr   uint16
}

// ClassifyKey bundles everything a matcher needs to classify one packet:
// the OOB structs, the base-pointer table (nil entries mean "this packet
// has no such header"), and the 64-bit fingerprint used by the flow cache.
type ClassifyKey struct {
	OOB
	OOB2
	BasePtrs    [BaseMax][]byte
	Fingerprint uint64
}

func (k *ClassifyKey) Base(i int) []byte {
	if i < 0 || i >= BaseMax {
		return nil
	}
	return k.BasePtrs[i]
}
