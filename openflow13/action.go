package openflow13

import (
	"encoding/binary"
	"fmt"

	"github.com/contiv/ofdp/ofbase"
)

// ofp_action_type (OpenFlow 1.3 §7.2.5).
const (
	OFPAT_OUTPUT       = 0
	OFPAT_COPY_TTL_OUT = 11
	OFPAT_COPY_TTL_IN  = 12
	OFPAT_SET_MPLS_TTL = 15
	OFPAT_DEC_MPLS_TTL = 16
	OFPAT_PUSH_VLAN    = 17
	OFPAT_POP_VLAN     = 18
	OFPAT_PUSH_MPLS    = 19
	OFPAT_POP_MPLS     = 20
	OFPAT_SET_QUEUE    = 21
	OFPAT_GROUP        = 22
	OFPAT_SET_NW_TTL   = 23
	OFPAT_DEC_NW_TTL   = 24
	OFPAT_SET_FIELD    = 25
	OFPAT_PUSH_PBB     = 26
	OFPAT_POP_PBB      = 27
	OFPAT_EXPERIMENTER = 0xffff
)

// ofp_port_no reserved ports (OpenFlow 1.3 §7.2.1).
const (
	P_MAX        = 0xffffff00
	P_IN_PORT    = 0xfffffff8
	P_TABLE      = 0xfffffff9
	P_NORMAL     = 0xfffffffa
	P_FLOOD      = 0xfffffffb
	P_ALL        = 0xfffffffc
	P_CONTROLLER = 0xfffffffd
	P_LOCAL      = 0xfffffffe
	P_ANY        = 0xffffffff
)

// ofp_controller_max_len (output-to-controller buffering request).
const (
	OFPCML_MAX      = 0xffe5
	OFPCML_NO_BUFFER = 0xffff
)

// Action is the wire-codec contract every concrete action type satisfies;
// it embeds the generic ofbase vtable the rest of the codec is built on.
type Action interface {
	ofbase.IAction
	Len() uint16
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// ActionHeader is the 4-byte ofp_action_header common prefix every action
// begins with; standalone it is used as a placeholder when decoding an
// action property list whose individual action bodies are not needed.
type ActionHeader struct {
	Type   uint16
	Length uint16
}

func (h *ActionHeader) Len() uint16 {
	return h.Length
}

func (h *ActionHeader) GetType() uint16 { return h.Type }
func (h *ActionHeader) GetLen() uint16  { return h.Length }
func (h *ActionHeader) GetActionName() string {
	return actionName(h.Type)
}
func (h *ActionHeader) GetActionFields() map[string]interface{} {
	return map[string]interface{}{}
}

func (h *ActionHeader) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], h.Type)
	binary.BigEndian.PutUint16(data[2:4], h.Length)
	return data, nil
}

func (h *ActionHeader) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("the []byte is too short to unmarshal an ofp_action_header")
	}
	h.Type = binary.BigEndian.Uint16(data[0:2])
	h.Length = binary.BigEndian.Uint16(data[2:4])
	return nil
}

func (h *ActionHeader) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(h.Type)
	encoder.PutUint16(h.Length)
	return nil
}

var actionNames = map[uint16]string{
	OFPAT_OUTPUT:       "OUTPUT",
	OFPAT_COPY_TTL_OUT: "COPY_TTL_OUT",
	OFPAT_COPY_TTL_IN:  "COPY_TTL_IN",
	OFPAT_SET_MPLS_TTL: "SET_MPLS_TTL",
	OFPAT_DEC_MPLS_TTL: "DEC_MPLS_TTL",
	OFPAT_PUSH_VLAN:    "PUSH_VLAN",
	OFPAT_POP_VLAN:     "POP_VLAN",
	OFPAT_PUSH_MPLS:    "PUSH_MPLS",
	OFPAT_POP_MPLS:     "POP_MPLS",
	OFPAT_SET_QUEUE:    "SET_QUEUE",
	OFPAT_GROUP:        "GROUP",
	OFPAT_SET_NW_TTL:   "SET_NW_TTL",
	OFPAT_DEC_NW_TTL:   "DEC_NW_TTL",
	OFPAT_SET_FIELD:    "SET_FIELD",
	OFPAT_PUSH_PBB:     "PUSH_PBB",
	OFPAT_POP_PBB:      "POP_PBB",
	OFPAT_EXPERIMENTER: "EXPERIMENTER",
}

func actionName(t uint16) string {
	if n, ok := actionNames[t]; ok {
		return n
	}
	return "UNKNOWN"
}

// ActionOutput: ofp_action_output.
type ActionOutput struct {
	ActionHeader
	Port   uint32
	MaxLen uint16
	pad    [6]byte
}

func NewActionOutput(port uint32) *ActionOutput {
	return &ActionOutput{
		ActionHeader: ActionHeader{Type: OFPAT_OUTPUT, Length: 16},
		Port:         port,
		MaxLen:       OFPCML_NO_BUFFER,
	}
}

func (a *ActionOutput) GetActionFields() map[string]interface{} {
	return map[string]interface{}{"port": a.Port, "max_len": a.MaxLen}
}

func (a *ActionOutput) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(a.Type)
	encoder.PutUint16(16)
	encoder.PutUint32(a.Port)
	encoder.PutUint16(a.MaxLen)
	encoder.Write(make([]byte, 6))
	return nil
}

func (a *ActionOutput) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := a.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (a *ActionOutput) UnmarshalBinary(data []byte) error {
	if err := a.ActionHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	a.Port = binary.BigEndian.Uint32(data[4:8])
	a.MaxLen = binary.BigEndian.Uint16(data[8:10])
	return nil
}

// ActionPushVlan/PushMpls/PushPbb: ofp_action_push.
type ActionPush struct {
	ActionHeader
	EtherType uint16
	pad       [2]byte
}

func newActionPush(actType uint16, etherType uint16) *ActionPush {
	return &ActionPush{
		ActionHeader: ActionHeader{Type: actType, Length: 8},
		EtherType:    etherType,
	}
}

func NewActionPushVlan(etherType uint16) *ActionPush {
	return newActionPush(OFPAT_PUSH_VLAN, etherType)
}

func NewActionPushMpls(etherType uint16) *ActionPush {
	return newActionPush(OFPAT_PUSH_MPLS, etherType)
}

func NewActionPushPbb(etherType uint16) *ActionPush {
	return newActionPush(OFPAT_PUSH_PBB, etherType)
}

func (a *ActionPush) GetActionFields() map[string]interface{} {
	return map[string]interface{}{"ethertype": a.EtherType}
}

func (a *ActionPush) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(a.Type)
	encoder.PutUint16(8)
	encoder.PutUint16(a.EtherType)
	encoder.Write(make([]byte, 2))
	return nil
}

func (a *ActionPush) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := a.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (a *ActionPush) UnmarshalBinary(data []byte) error {
	if err := a.ActionHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	a.EtherType = binary.BigEndian.Uint16(data[4:6])
	return nil
}

// ActionPopVlan/PopMpls/PopPbb.
type ActionPop struct {
	ActionHeader
	EtherType uint16 // only meaningful for POP_MPLS; POP_VLAN/POP_PBB ignore it.
	pad       [2]byte
}

func NewActionPopVlan() *ActionPop {
	return &ActionPop{ActionHeader: ActionHeader{Type: OFPAT_POP_VLAN, Length: 8}}
}

func NewActionPopMpls(etherType uint16) *ActionPop {
	return &ActionPop{ActionHeader: ActionHeader{Type: OFPAT_POP_MPLS, Length: 8}, EtherType: etherType}
}

func NewActionPopPbb() *ActionPop {
	return &ActionPop{ActionHeader: ActionHeader{Type: OFPAT_POP_PBB, Length: 8}}
}

func (a *ActionPop) GetActionFields() map[string]interface{} {
	return map[string]interface{}{"ethertype": a.EtherType}
}

func (a *ActionPop) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(a.Type)
	encoder.PutUint16(8)
	encoder.PutUint16(a.EtherType)
	encoder.Write(make([]byte, 2))
	return nil
}

func (a *ActionPop) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := a.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (a *ActionPop) UnmarshalBinary(data []byte) error {
	if err := a.ActionHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	a.EtherType = binary.BigEndian.Uint16(data[4:6])
	return nil
}

// ActionSetField: ofp_action_set_field, carrying one OXM TLV.
type ActionSetField struct {
	ActionHeader
	Field MatchField
}

func NewActionSetField(field MatchField) *ActionSetField {
	a := &ActionSetField{Field: field}
	a.Type = OFPAT_SET_FIELD
	a.Length = a.Len()
	return a
}

func (a *ActionSetField) Len() uint16 {
	n := 4 + a.Field.Len()
	return (n + 7) / 8 * 8
}

func (a *ActionSetField) GetActionFields() map[string]interface{} {
	return map[string]interface{}{"field": a.Field.GetOXMName(), "value": a.Field.Value}
}

func (a *ActionSetField) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(a.Type)
	encoder.PutUint16(a.Len())
	if err := a.Field.Serialize(encoder); err != nil {
		return err
	}
	encoder.SkipAlign()
	return nil
}

func (a *ActionSetField) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := a.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (a *ActionSetField) UnmarshalBinary(data []byte) error {
	if err := a.ActionHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	return a.Field.UnmarshalBinary(data[4:])
}

// ActionSetQueue: ofp_action_set_queue.
type ActionSetQueue struct {
	ActionHeader
	QueueId uint32
}

func NewActionSetQueue(queueId uint32) *ActionSetQueue {
	return &ActionSetQueue{ActionHeader: ActionHeader{Type: OFPAT_SET_QUEUE, Length: 8}, QueueId: queueId}
}

func (a *ActionSetQueue) GetActionFields() map[string]interface{} {
	return map[string]interface{}{"queue_id": a.QueueId}
}

func (a *ActionSetQueue) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(a.Type)
	encoder.PutUint16(8)
	encoder.PutUint32(a.QueueId)
	return nil
}

func (a *ActionSetQueue) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := a.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (a *ActionSetQueue) UnmarshalBinary(data []byte) error {
	if err := a.ActionHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	a.QueueId = binary.BigEndian.Uint32(data[4:8])
	return nil
}

// ActionGroup: ofp_action_group.
type ActionGroup struct {
	ActionHeader
	GroupId uint32
}

func NewActionGroup(groupId uint32) *ActionGroup {
	return &ActionGroup{ActionHeader: ActionHeader{Type: OFPAT_GROUP, Length: 8}, GroupId: groupId}
}

func (a *ActionGroup) GetActionFields() map[string]interface{} {
	return map[string]interface{}{"group_id": a.GroupId}
}

func (a *ActionGroup) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(a.Type)
	encoder.PutUint16(8)
	encoder.PutUint32(a.GroupId)
	return nil
}

func (a *ActionGroup) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := a.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (a *ActionGroup) UnmarshalBinary(data []byte) error {
	if err := a.ActionHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	a.GroupId = binary.BigEndian.Uint32(data[4:8])
	return nil
}

// ActionTtl: ofp_action_nw_ttl (SET_NW_TTL) / ofp_action_mpls_ttl (SET_MPLS_TTL).
type ActionTtl struct {
	ActionHeader
	Ttl uint8
	pad [3]byte
}

func NewActionSetNwTtl(ttl uint8) *ActionTtl {
	return &ActionTtl{ActionHeader: ActionHeader{Type: OFPAT_SET_NW_TTL, Length: 8}, Ttl: ttl}
}

func NewActionSetMplsTtl(ttl uint8) *ActionTtl {
	return &ActionTtl{ActionHeader: ActionHeader{Type: OFPAT_SET_MPLS_TTL, Length: 8}, Ttl: ttl}
}

func (a *ActionTtl) GetActionFields() map[string]interface{} {
	return map[string]interface{}{"ttl": a.Ttl}
}

func (a *ActionTtl) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(a.Type)
	encoder.PutUint16(8)
	encoder.PutUint8(a.Ttl)
	encoder.Write(make([]byte, 3))
	return nil
}

func (a *ActionTtl) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := a.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (a *ActionTtl) UnmarshalBinary(data []byte) error {
	if err := a.ActionHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	a.Ttl = data[4]
	return nil
}

// ActionEmpty covers the zero-payload actions: COPY_TTL_OUT, COPY_TTL_IN,
// DEC_MPLS_TTL, DEC_NW_TTL — ofp_action_header plus 4 bytes of padding.
type ActionEmpty struct {
	ActionHeader
}

func newActionEmpty(t uint16) *ActionEmpty {
	return &ActionEmpty{ActionHeader{Type: t, Length: 8}}
}

func NewActionCopyTtlOut() *ActionEmpty { return newActionEmpty(OFPAT_COPY_TTL_OUT) }
func NewActionCopyTtlIn() *ActionEmpty  { return newActionEmpty(OFPAT_COPY_TTL_IN) }
func NewActionDecMplsTtl() *ActionEmpty { return newActionEmpty(OFPAT_DEC_MPLS_TTL) }
func NewActionDecNwTtl() *ActionEmpty   { return newActionEmpty(OFPAT_DEC_NW_TTL) }

func (a *ActionEmpty) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(a.Type)
	encoder.PutUint16(8)
	encoder.Write(make([]byte, 4))
	return nil
}

func (a *ActionEmpty) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := a.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (a *ActionEmpty) UnmarshalBinary(data []byte) error {
	return a.ActionHeader.UnmarshalBinary(data)
}

// ActionExperimenter: ofp_action_experimenter_header.
type ActionExperimenter struct {
	ActionHeader
	Experimenter uint32
	Data         []byte
}

func (a *ActionExperimenter) Len() uint16 {
	return (8 + uint16(len(a.Data)) + 7) / 8 * 8
}

func (a *ActionExperimenter) GetActionFields() map[string]interface{} {
	return map[string]interface{}{"experimenter": a.Experimenter}
}

func (a *ActionExperimenter) Serialize(encoder *ofbase.Encoder) error {
	encoder.PutUint16(OFPAT_EXPERIMENTER)
	encoder.PutUint16(a.Len())
	encoder.PutUint32(a.Experimenter)
	encoder.Write(a.Data)
	encoder.SkipAlign()
	return nil
}

func (a *ActionExperimenter) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := a.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (a *ActionExperimenter) UnmarshalBinary(data []byte) error {
	if err := a.ActionHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	a.Experimenter = binary.BigEndian.Uint32(data[4:8])
	if int(a.Length) > 8 {
		a.Data = append([]byte(nil), data[8:a.Length]...)
	}
	return nil
}

// DecodeAction dispatches on the ofp_action_header type field and decodes
// the matching concrete action from data.
func DecodeAction(data []byte) (Action, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("the []byte is too short to decode an action header")
	}
	t := binary.BigEndian.Uint16(data[0:2])
	var act Action
	switch t {
	case OFPAT_OUTPUT:
		act = new(ActionOutput)
	case OFPAT_COPY_TTL_OUT, OFPAT_COPY_TTL_IN, OFPAT_DEC_MPLS_TTL, OFPAT_DEC_NW_TTL:
		act = new(ActionEmpty)
	case OFPAT_SET_MPLS_TTL, OFPAT_SET_NW_TTL:
		act = new(ActionTtl)
	case OFPAT_PUSH_VLAN, OFPAT_PUSH_MPLS, OFPAT_PUSH_PBB:
		act = new(ActionPush)
	case OFPAT_POP_VLAN, OFPAT_POP_MPLS, OFPAT_POP_PBB:
		act = new(ActionPop)
	case OFPAT_SET_QUEUE:
		act = new(ActionSetQueue)
	case OFPAT_GROUP:
		act = new(ActionGroup)
	case OFPAT_SET_FIELD:
		act = new(ActionSetField)
	case OFPAT_EXPERIMENTER:
		act = new(ActionExperimenter)
	default:
		return nil, fmt.Errorf("unknown action type %d", t)
	}
	if err := act.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return act, nil
}
