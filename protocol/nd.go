package protocol

import (
	"encoding/binary"
	"errors"
	"net"
)

// ICMPv6 Neighbor Discovery message types (RFC 4861 §4).
const (
	ICMPv6_Type_RouterSolicit    = 133
	ICMPv6_Type_RouterAdvert     = 134
	ICMPv6_Type_NeighborSolicit  = 135
	ICMPv6_Type_NeighborAdvert   = 136
	ICMPv6_Type_Redirect         = 137
)

// Neighbor Discovery option types (RFC 4861 §4.6).
const (
	NDOptSourceLinkLayerAddr = 1
	NDOptTargetLinkLayerAddr = 2
)

// NeighborSolicitation is the ICMPv6 Neighbor Solicitation message body
// (RFC 4861 §4.3): a 32-bit reserved field, the target address, and a
// trailing list of TLV options among which SLL/TLL may appear.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                           Reserved                           |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|                                                               |
//	+                       Target Address                         +
//	|                                                               |
//	+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+-+
//	|   Options ...
type NeighborSolicitation struct {
	ICMPv6Header
	Target  net.IP
	Options []*Option
}

func (n *NeighborSolicitation) Len() (l uint16) {
	l = 4 + 4 + 16
	for _, o := range n.Options {
		l += o.Len()
	}
	return l
}

func (n *NeighborSolicitation) MarshalBinary() (data []byte, err error) {
	data = make([]byte, int(n.Len()))
	b, err := n.ICMPv6Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(data, b)
	off := 4 + 4
	copy(data[off:], n.Target)
	off += 16
	for _, o := range n.Options {
		ob, err := o.MarshalBinary()
		if err != nil {
			return nil, err
		}
		copy(data[off:], ob)
		off += int(o.Len())
	}
	return data, nil
}

func (n *NeighborSolicitation) UnmarshalBinary(data []byte) error {
	if len(data) < 24 {
		return errors.New("the []byte is too short to unmarshal a NeighborSolicitation")
	}
	if err := n.ICMPv6Header.UnmarshalBinary(data); err != nil {
		return err
	}
	n.Target = net.IP(append([]byte(nil), data[8:24]...))
	return n.unmarshalOptions(data[24:])
}

func (n *NeighborSolicitation) unmarshalOptions(data []byte) error {
	n.Options = nil
	for len(data) >= 2 {
		o := new(Option)
		// ND options measure Length in units of 8 bytes, including
		// the type/length octets themselves.
		l := int(data[1]) * 8
		if l == 0 || l > len(data) {
			return errors.New("malformed neighbor discovery option")
		}
		o.Type = data[0]
		o.Length = data[1]
		o.Data = append([]byte(nil), data[2:l]...)
		n.Options = append(n.Options, o)
		data = data[l:]
	}
	return nil
}

// SourceLinkLayerAddr returns the SLL option payload, if present.
func (n *NeighborSolicitation) SourceLinkLayerAddr() net.HardwareAddr {
	return ndOptionAddr(n.Options, NDOptSourceLinkLayerAddr)
}

// TargetLinkLayerAddr is present on Neighbor Advertisement messages; kept
// here too since the wire shape after the fixed header is identical.
func (n *NeighborSolicitation) TargetLinkLayerAddr() net.HardwareAddr {
	return ndOptionAddr(n.Options, NDOptTargetLinkLayerAddr)
}

// NeighborAdvertisement is the ICMPv6 Neighbor Advertisement message body
// (RFC 4861 §4.4); the flags word precedes the target address, options
// follow exactly like Neighbor Solicitation.
type NeighborAdvertisement struct {
	ICMPv6Header
	Flags   uint32
	Target  net.IP
	Options []*Option
}

func (a *NeighborAdvertisement) Len() (l uint16) {
	l = 4 + 4 + 16
	for _, o := range a.Options {
		l += o.Len()
	}
	return l
}

func (a *NeighborAdvertisement) MarshalBinary() (data []byte, err error) {
	data = make([]byte, int(a.Len()))
	b, err := a.ICMPv6Header.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(data, b)
	binary.BigEndian.PutUint32(data[4:], a.Flags)
	off := 8
	copy(data[off:], a.Target)
	off += 16
	for _, o := range a.Options {
		ob, err := o.MarshalBinary()
		if err != nil {
			return nil, err
		}
		copy(data[off:], ob)
		off += int(o.Len())
	}
	return data, nil
}

func (a *NeighborAdvertisement) UnmarshalBinary(data []byte) error {
	if len(data) < 24 {
		return errors.New("the []byte is too short to unmarshal a NeighborAdvertisement")
	}
	if err := a.ICMPv6Header.UnmarshalBinary(data); err != nil {
		return err
	}
	a.Flags = binary.BigEndian.Uint32(data[4:8])
	a.Target = net.IP(append([]byte(nil), data[8:24]...))
	ns := &NeighborSolicitation{}
	if err := ns.unmarshalOptions(data[24:]); err != nil {
		return err
	}
	a.Options = ns.Options
	return nil
}

// TargetLinkLayerAddr returns the TLL option payload, if present.
func (a *NeighborAdvertisement) TargetLinkLayerAddr() net.HardwareAddr {
	return ndOptionAddr(a.Options, NDOptTargetLinkLayerAddr)
}

func ndOptionAddr(opts []*Option, typ uint8) net.HardwareAddr {
	for _, o := range opts {
		if o.Type == typ && len(o.Data) >= 6 {
			return net.HardwareAddr(o.Data[:6])
		}
	}
	return nil
}
