package openflow13

import (
	"encoding/binary"
	"fmt"

	"github.com/contiv/ofdp/ofbase"
)

// Header is the 8-byte OpenFlow 1.3 message header shared by every message
// this package serializes. It wraps ofbase.Header (which only knows how to
// Decode) with the Len/MarshalBinary pair messages need to round-trip.
type Header struct {
	ofbase.Header
}

func NewOfp13Header() Header {
	return Header{
		ofbase.Header{
			Version: ofbase.VERSION_1_3,
		},
	}
}

func (h *Header) Len() uint16 {
	return 8
}

func (h *Header) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 8)
	data[0] = h.Version
	data[1] = h.Type
	binary.BigEndian.PutUint16(data[2:4], h.Length)
	binary.BigEndian.PutUint32(data[4:8], h.Xid)
	return data, nil
}

func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return fmt.Errorf("the []byte is too short to unmarshal a full Header message: %d < 8", len(data))
	}
	h.Version = data[0]
	h.Type = data[1]
	h.Length = binary.BigEndian.Uint16(data[2:4])
	h.Xid = binary.BigEndian.Uint32(data[4:8])
	return nil
}

func (h *Header) GetVersion() uint8 {
	return h.Version
}

func (h *Header) GetLength() uint16 {
	return h.Length
}

func (h *Header) MessageType() uint8 {
	return h.Type
}

func (h *Header) GetXid() uint32 {
	return h.Xid
}

func (h *Header) SetXid(xid uint32) {
	h.Xid = xid
}
