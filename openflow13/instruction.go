package openflow13

import (
	"encoding/binary"
	"fmt"

	"github.com/contiv/ofdp/ofbase"
)

// ofp_instruction_type (OpenFlow 1.3 §7.2.4).
const (
	OFPIT_GOTO_TABLE     = 1
	OFPIT_WRITE_METADATA = 2
	OFPIT_WRITE_ACTIONS  = 3
	OFPIT_APPLY_ACTIONS  = 4
	OFPIT_CLEAR_ACTIONS  = 5
	OFPIT_METER          = 6
	OFPIT_EXPERIMENTER   = 0xffff
)

// Instruction is the wire-codec contract for one ofp_instruction entry in a
// flow_mod's instruction set.
type Instruction interface {
	ofbase.Serializable
	Len() uint16
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
	GetInstrType() uint16
}

// InstrHeader is the 4-byte ofp_instruction common prefix, used both
// standalone (table-features instruction property lists) and embedded in
// every concrete instruction below.
type InstrHeader struct {
	Type   uint16
	Length uint16
}

func (h *InstrHeader) Len() uint16             { return h.Length }
func (h *InstrHeader) GetInstrType() uint16 { return h.Type }

func (h *InstrHeader) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(h.Type)
	encoder.PutUint16(h.Length)
	return nil
}

func (h *InstrHeader) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], h.Type)
	binary.BigEndian.PutUint16(data[2:4], h.Length)
	return data, nil
}

func (h *InstrHeader) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("the []byte is too short to unmarshal an ofp_instruction header")
	}
	h.Type = binary.BigEndian.Uint16(data[0:2])
	h.Length = binary.BigEndian.Uint16(data[2:4])
	return nil
}

// InstrGotoTable: ofp_instruction_goto_table.
type InstrGotoTable struct {
	InstrHeader
	TableId uint8
	pad     [3]byte
}

func NewInstrGotoTable(tableId uint8) *InstrGotoTable {
	return &InstrGotoTable{InstrHeader: InstrHeader{Type: OFPIT_GOTO_TABLE, Length: 8}, TableId: tableId}
}

func (i *InstrGotoTable) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(i.Type)
	encoder.PutUint16(8)
	encoder.PutUint8(i.TableId)
	encoder.Write(make([]byte, 3))
	return nil
}

func (i *InstrGotoTable) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := i.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (i *InstrGotoTable) UnmarshalBinary(data []byte) error {
	if err := i.InstrHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	i.TableId = data[4]
	return nil
}

// InstrWriteMetadata: ofp_instruction_write_metadata.
type InstrWriteMetadata struct {
	InstrHeader
	pad          [4]byte
	Metadata     uint64
	MetadataMask uint64
}

func NewInstrWriteMetadata(metadata uint64, mask *uint64) *InstrWriteMetadata {
	m := ^uint64(0)
	if mask != nil {
		m = *mask
	}
	return &InstrWriteMetadata{
		InstrHeader:  InstrHeader{Type: OFPIT_WRITE_METADATA, Length: 24},
		Metadata:     metadata,
		MetadataMask: m,
	}
}

func (i *InstrWriteMetadata) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(i.Type)
	encoder.PutUint16(24)
	encoder.Write(make([]byte, 4))
	encoder.PutUint64(i.Metadata)
	encoder.PutUint64(i.MetadataMask)
	return nil
}

func (i *InstrWriteMetadata) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := i.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (i *InstrWriteMetadata) UnmarshalBinary(data []byte) error {
	if err := i.InstrHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	i.Metadata = binary.BigEndian.Uint64(data[8:16])
	i.MetadataMask = binary.BigEndian.Uint64(data[16:24])
	return nil
}

// InstrActions backs WRITE_ACTIONS/APPLY_ACTIONS/CLEAR_ACTIONS: ofp_instruction_actions.
type InstrActions struct {
	InstrHeader
	pad     [4]byte
	Actions []Action
}

func newInstrActions(t uint16) *InstrActions {
	return &InstrActions{InstrHeader: InstrHeader{Type: t, Length: 8}, Actions: make([]Action, 0)}
}

func NewInstrApplyActions() *InstrActions { return newInstrActions(OFPIT_APPLY_ACTIONS) }
func NewInstrWriteActions() *InstrActions { return newInstrActions(OFPIT_WRITE_ACTIONS) }
func NewInstrClearActions() *InstrActions { return newInstrActions(OFPIT_CLEAR_ACTIONS) }

// AddAction appends (or, if prepend is set, prepends) an action to the
// instruction's action list, matching the teacher's builder-friendly
// append-or-prepend idiom for composing a flow's action set incrementally.
func (i *InstrActions) AddAction(action Action, prepend bool) {
	if prepend {
		i.Actions = append([]Action{action}, i.Actions...)
		return
	}
	i.Actions = append(i.Actions, action)
}

func (i *InstrActions) Len() (n uint16) {
	n = 8
	for _, a := range i.Actions {
		n += a.GetLen()
	}
	return n
}

func (i *InstrActions) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(i.Type)
	encoder.PutUint16(i.Len())
	encoder.Write(make([]byte, 4))
	for _, a := range i.Actions {
		if err := a.Serialize(encoder); err != nil {
			return err
		}
	}
	return nil
}

func (i *InstrActions) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := i.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (i *InstrActions) UnmarshalBinary(data []byte) error {
	if err := i.InstrHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	n := 8
	i.Actions = make([]Action, 0)
	for n < int(i.Length) {
		act, err := DecodeAction(data[n:])
		if err != nil {
			return err
		}
		i.Actions = append(i.Actions, act)
		n += int(act.GetLen())
	}
	return nil
}

// InstrMeter: ofp_instruction_meter.
type InstrMeter struct {
	InstrHeader
	MeterId uint32
}

func NewInstrMeter(meterId uint32) *InstrMeter {
	return &InstrMeter{InstrHeader: InstrHeader{Type: OFPIT_METER, Length: 8}, MeterId: meterId}
}

func (i *InstrMeter) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(i.Type)
	encoder.PutUint16(8)
	encoder.PutUint32(i.MeterId)
	return nil
}

func (i *InstrMeter) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := i.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (i *InstrMeter) UnmarshalBinary(data []byte) error {
	if err := i.InstrHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	i.MeterId = binary.BigEndian.Uint32(data[4:8])
	return nil
}

// InstrExperimenter: ofp_instruction_experimenter.
type InstrExperimenter struct {
	InstrHeader
	Experimenter uint32
	Data         []byte
}

func (i *InstrExperimenter) Len() uint16 {
	return (8 + uint16(len(i.Data)) + 7) / 8 * 8
}

func (i *InstrExperimenter) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(OFPIT_EXPERIMENTER)
	encoder.PutUint16(i.Len())
	encoder.PutUint32(i.Experimenter)
	encoder.Write(i.Data)
	encoder.SkipAlign()
	return nil
}

func (i *InstrExperimenter) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := i.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (i *InstrExperimenter) UnmarshalBinary(data []byte) error {
	if err := i.InstrHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	i.Experimenter = binary.BigEndian.Uint32(data[4:8])
	if int(i.Length) > 8 {
		i.Data = append([]byte(nil), data[8:i.Length]...)
	}
	return nil
}

// DecodeInstr dispatches on the ofp_instruction type field and decodes the
// matching concrete instruction from data.
func DecodeInstr(data []byte) Instruction {
	if len(data) < 4 {
		return nil
	}
	t := binary.BigEndian.Uint16(data[0:2])
	var instr Instruction
	switch t {
	case OFPIT_GOTO_TABLE:
		instr = new(InstrGotoTable)
	case OFPIT_WRITE_METADATA:
		instr = new(InstrWriteMetadata)
	case OFPIT_WRITE_ACTIONS, OFPIT_APPLY_ACTIONS, OFPIT_CLEAR_ACTIONS:
		instr = newInstrActions(t)
	case OFPIT_METER:
		instr = new(InstrMeter)
	case OFPIT_EXPERIMENTER:
		instr = new(InstrExperimenter)
	default:
		return nil
	}
	if err := instr.UnmarshalBinary(data); err != nil {
		return nil
	}
	return instr
}
