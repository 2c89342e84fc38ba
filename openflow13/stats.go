package openflow13

import (
	"encoding/binary"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/contiv/ofdp/ofbase"
)

// ofp_multipart_type (OpenFlow 1.3 §7.3.5). Only the types §6 names are
// wired to concrete request/reply bodies; the rest (port/queue/group/meter)
// belong to collaborators this package does not model.
const (
	MultipartType_Desc = iota
	MultipartType_Flow
	MultipartType_Aggregate
	MultipartType_Table
	MultipartType_Port
	MultipartType_Queue
	MultipartType_Group
	MultipartType_GroupDesc
	MultipartType_GroupFeatures
	MultipartType_Meter
	MultipartType_MeterConfig
	MultipartType_MeterFeatures
	MultipartType_TableFeatures
	MultipartType_PortDesc
	MultipartType_Experimenter = 0xffff
)

const (
	OFPMPF_REQ_MORE   = 1 << 0
	OFPMPF_REPLY_MORE = 1 << 0
)

// ofp_type values for the multipart envelope (OpenFlow 1.3 §7.1).
const (
	OFPT_MULTIPART_REQUEST = 18
	OFPT_MULTIPART_REPLY   = 19
)

// MultipartBody is satisfied by every request/reply payload this package
// knows how to frame inside a MultipartRequest/MultipartReply envelope.
type MultipartBody interface {
	Len() uint16
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

// MultipartRequest: ofp_multipart_request.
type MultipartRequest struct {
	Header
	Type  uint16
	Flags uint16
	Body  []MultipartBody
}

func NewMultipartRequest(mpType uint16) *MultipartRequest {
	h := NewOfp13Header()
	h.Type = OFPT_MULTIPART_REQUEST
	return &MultipartRequest{Header: h, Type: mpType}
}

func (s *MultipartRequest) Len() (n uint16) {
	n = s.Header.Len() + 8
	for _, body := range s.Body {
		n += body.Len()
	}
	return
}

func (s *MultipartRequest) MessageName() string { return "MultipartRequest" }

func (s *MultipartRequest) Serialize(encoder *ofbase.Encoder) error {
	s.Header.Length = s.Len()
	hdr, err := s.Header.MarshalBinary()
	if err != nil {
		return err
	}
	encoder.Write(hdr)
	encoder.PutUint16(s.Type)
	encoder.PutUint16(s.Flags)
	encoder.Write(make([]byte, 4))
	for _, body := range s.Body {
		b, err := body.MarshalBinary()
		if err != nil {
			return err
		}
		encoder.Write(b)
	}
	return nil
}

func (s *MultipartRequest) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := s.Serialize(enc); err != nil {
		return nil, err
	}
	log.Debugf("Sending MultipartRequest (%d): %v", len(enc.Bytes()), enc.Bytes())
	return enc.Bytes(), nil
}

func (s *MultipartRequest) UnmarshalBinary(data []byte) error {
	if err := s.Header.UnmarshalBinary(data); err != nil {
		return err
	}
	n := int(s.Header.Len())
	s.Type = binary.BigEndian.Uint16(data[n:])
	n += 2
	s.Flags = binary.BigEndian.Uint16(data[n:])
	n += 2
	n += 4

	for n < int(s.Header.Length) {
		var req MultipartBody
		switch s.Type {
		case MultipartType_Aggregate:
			req = NewAggregateStatsRequest()
		case MultipartType_Flow:
			req = NewFlowStatsRequest()
		case MultipartType_Table:
			req = new(TableStatsRequest)
		case MultipartType_TableFeatures:
			req = new(OFPTableFeatures)
		default:
			return fmt.Errorf("unsupported MultipartRequest type: %d", s.Type)
		}
		if err := req.UnmarshalBinary(data[n:]); err != nil {
			return err
		}
		n += int(req.Len())
		s.Body = append(s.Body, req)
	}
	return nil
}

// MultipartReply: ofp_multipart_reply.
type MultipartReply struct {
	Header
	Type  uint16
	Flags uint16
	Body  []MultipartBody
}

func NewMultipartReply(mpType uint16) *MultipartReply {
	h := NewOfp13Header()
	h.Type = OFPT_MULTIPART_REPLY
	return &MultipartReply{Header: h, Type: mpType}
}

func (s *MultipartReply) Len() (n uint16) {
	n = s.Header.Len() + 8
	for _, r := range s.Body {
		n += r.Len()
	}
	return
}

func (s *MultipartReply) MessageName() string { return "MultipartReply" }

func (s *MultipartReply) Serialize(encoder *ofbase.Encoder) error {
	s.Header.Length = s.Len()
	hdr, err := s.Header.MarshalBinary()
	if err != nil {
		return err
	}
	encoder.Write(hdr)
	encoder.PutUint16(s.Type)
	encoder.PutUint16(s.Flags)
	encoder.Write(make([]byte, 4))
	for _, r := range s.Body {
		b, err := r.MarshalBinary()
		if err != nil {
			return err
		}
		encoder.Write(b)
	}
	return nil
}

func (s *MultipartReply) MarshalBinary() (data []byte, err error) {
	enc := ofbase.NewEncoder()
	if err := s.Serialize(enc); err != nil {
		return nil, err
	}
	return enc.Bytes(), nil
}

func (s *MultipartReply) UnmarshalBinary(data []byte) error {
	if err := s.Header.UnmarshalBinary(data); err != nil {
		return err
	}
	n := int(s.Header.Len())
	s.Type = binary.BigEndian.Uint16(data[n:])
	n += 2
	s.Flags = binary.BigEndian.Uint16(data[n:])
	n += 2
	n += 4

	for n < int(s.Header.Length) {
		var repl MultipartBody
		switch s.Type {
		case MultipartType_Aggregate:
			repl = NewAggregateStats()
		case MultipartType_Desc:
			repl = NewDescStats()
		case MultipartType_Flow:
			repl = NewFlowStats()
		case MultipartType_Table:
			repl = new(TableStats)
		case MultipartType_TableFeatures:
			repl = new(OFPTableFeatures)
		default:
			log.Warnf("unsupported MultipartReply type while parsing: %d", s.Type)
			return nil
		}
		if err := repl.UnmarshalBinary(data[n:]); err != nil {
			log.Errorf("error parsing multipart reply body: %v", err)
			return err
		}
		n += int(repl.Len())
		s.Body = append(s.Body, repl)
	}
	return nil
}

const (
	DESC_STR_LEN   = 256
	SERIAL_NUM_LEN = 32
)

const (
	OFPTT_MAX = 0xfe
	OFPTT_ALL = 0xff
)

// DescStats: ofp_desc.
type DescStats struct {
	MfrDesc   []byte
	HWDesc    []byte
	SWDesc    []byte
	SerialNum []byte
	DPDesc    []byte
}

func NewDescStats() *DescStats {
	s := new(DescStats)
	s.MfrDesc = make([]byte, DESC_STR_LEN)
	s.HWDesc = make([]byte, DESC_STR_LEN)
	s.SWDesc = make([]byte, DESC_STR_LEN)
	s.SerialNum = make([]byte, SERIAL_NUM_LEN)
	s.DPDesc = make([]byte, DESC_STR_LEN)
	return s
}

func (s *DescStats) Len() uint16 {
	return uint16(DESC_STR_LEN*4 + SERIAL_NUM_LEN)
}

func (s *DescStats) MarshalBinary() (data []byte, err error) {
	data = make([]byte, int(s.Len()))
	n := 0
	for _, f := range [][]byte{s.MfrDesc, s.HWDesc, s.SWDesc, s.SerialNum, s.DPDesc} {
		copy(data[n:], f)
		n += len(f)
	}
	return data, nil
}

func (s *DescStats) UnmarshalBinary(data []byte) error {
	n := 0
	for _, f := range [][]byte{s.MfrDesc, s.HWDesc, s.SWDesc, s.SerialNum, s.DPDesc} {
		copy(f, data[n:])
		n += len(f)
	}
	return nil
}

// FlowStatsRequest: ofp_flow_stats_request.
type FlowStatsRequest struct {
	TableId    uint8
	OutPort    uint32
	OutGroup   uint32
	Cookie     uint64
	CookieMask uint64
	Match      Match
}

func NewFlowStatsRequest() *FlowStatsRequest {
	s := new(FlowStatsRequest)
	s.TableId = OFPTT_ALL
	s.OutPort = P_ANY
	s.OutGroup = 0xffffffff
	s.Match = *NewMatch()
	return s
}

func (s *FlowStatsRequest) Len() (n uint16) {
	return s.Match.Len() + 32
}

func (s *FlowStatsRequest) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 32)
	data[0] = s.TableId
	binary.BigEndian.PutUint32(data[4:], s.OutPort)
	binary.BigEndian.PutUint32(data[8:], s.OutGroup)
	binary.BigEndian.PutUint64(data[16:], s.Cookie)
	binary.BigEndian.PutUint64(data[24:], s.CookieMask)
	b, err := s.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return append(data, b...), nil
}

func (s *FlowStatsRequest) UnmarshalBinary(data []byte) error {
	if len(data) < 32 {
		return fmt.Errorf("the []byte is too short to unmarshal FlowStatsRequest")
	}
	s.TableId = data[0]
	s.OutPort = binary.BigEndian.Uint32(data[4:])
	s.OutGroup = binary.BigEndian.Uint32(data[8:])
	s.Cookie = binary.BigEndian.Uint64(data[16:])
	s.CookieMask = binary.BigEndian.Uint64(data[24:])
	return s.Match.UnmarshalBinary(data[32:])
}

// FlowStats: ofp_flow_stats.
type FlowStats struct {
	Length       uint16
	TableId      uint8
	DurationSec  uint32
	DurationNSec uint32
	Priority     uint16
	IdleTimeout  uint16
	HardTimeout  uint16
	Flags        uint16
	Cookie       uint64
	PacketCount  uint64
	ByteCount    uint64
	Match        Match
	Instructions []Instruction
}

func NewFlowStats() *FlowStats {
	f := new(FlowStats)
	f.Match = *NewMatch()
	f.Instructions = make([]Instruction, 0)
	return f
}

func (s *FlowStats) Len() (n uint16) {
	n = 48 + s.Match.Len()
	for _, instr := range s.Instructions {
		n += instr.Len()
	}
	return
}

func (s *FlowStats) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 48)
	binary.BigEndian.PutUint16(data[0:], s.Length)
	data[2] = s.TableId
	binary.BigEndian.PutUint32(data[4:], s.DurationSec)
	binary.BigEndian.PutUint32(data[8:], s.DurationNSec)
	binary.BigEndian.PutUint16(data[12:], s.Priority)
	binary.BigEndian.PutUint16(data[14:], s.IdleTimeout)
	binary.BigEndian.PutUint16(data[16:], s.HardTimeout)
	binary.BigEndian.PutUint16(data[18:], s.Flags)
	binary.BigEndian.PutUint64(data[24:], s.Cookie)
	binary.BigEndian.PutUint64(data[32:], s.PacketCount)
	binary.BigEndian.PutUint64(data[40:], s.ByteCount)

	b, err := s.Match.MarshalBinary()
	if err != nil {
		return nil, err
	}
	data = append(data, b...)

	for _, instr := range s.Instructions {
		b, err = instr.MarshalBinary()
		if err != nil {
			return nil, err
		}
		data = append(data, b...)
	}
	return data, nil
}

func (s *FlowStats) UnmarshalBinary(data []byte) error {
	if len(data) < 48 {
		return fmt.Errorf("the []byte is too short to unmarshal FlowStats")
	}
	s.Length = binary.BigEndian.Uint16(data[0:])
	s.TableId = data[2]
	s.DurationSec = binary.BigEndian.Uint32(data[4:])
	s.DurationNSec = binary.BigEndian.Uint32(data[8:])
	s.Priority = binary.BigEndian.Uint16(data[12:])
	s.IdleTimeout = binary.BigEndian.Uint16(data[14:])
	s.HardTimeout = binary.BigEndian.Uint16(data[16:])
	s.Flags = binary.BigEndian.Uint16(data[18:])
	s.Cookie = binary.BigEndian.Uint64(data[24:])
	s.PacketCount = binary.BigEndian.Uint64(data[32:])
	s.ByteCount = binary.BigEndian.Uint64(data[40:])

	n := 48
	if err := s.Match.UnmarshalBinary(data[n:]); err != nil {
		return err
	}
	n += int(s.Match.Len())

	s.Instructions = nil
	for n < int(s.Length) {
		instr := DecodeInstr(data[n:])
		if instr == nil {
			break
		}
		s.Instructions = append(s.Instructions, instr)
		n += int(instr.Len())
	}
	return nil
}

// AggregateStatsRequest: ofp_aggregate_stats_request (identical wire shape
// to FlowStatsRequest).
type AggregateStatsRequest struct {
	FlowStatsRequest
}

func NewAggregateStatsRequest() *AggregateStatsRequest {
	return &AggregateStatsRequest{FlowStatsRequest: *NewFlowStatsRequest()}
}

// AggregateStats: ofp_aggregate_stats_reply.
type AggregateStats struct {
	PacketCount uint64
	ByteCount   uint64
	FlowCount   uint32
}

func NewAggregateStats() *AggregateStats {
	return new(AggregateStats)
}

func (s *AggregateStats) Len() uint16 {
	return 24
}

func (s *AggregateStats) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 24)
	binary.BigEndian.PutUint64(data[0:], s.PacketCount)
	binary.BigEndian.PutUint64(data[8:], s.ByteCount)
	binary.BigEndian.PutUint32(data[16:], s.FlowCount)
	return data, nil
}

func (s *AggregateStats) UnmarshalBinary(data []byte) error {
	if len(data) < 24 {
		return fmt.Errorf("the []byte is too short to unmarshal AggregateStats")
	}
	s.PacketCount = binary.BigEndian.Uint64(data[0:])
	s.ByteCount = binary.BigEndian.Uint64(data[8:])
	s.FlowCount = binary.BigEndian.Uint32(data[16:])
	return nil
}

// TableStatsRequest: ofp_table_stats request body is empty in OF1.3.
type TableStatsRequest struct{}

func (s *TableStatsRequest) Len() uint16                       { return 0 }
func (s *TableStatsRequest) MarshalBinary() ([]byte, error)    { return []byte{}, nil }
func (s *TableStatsRequest) UnmarshalBinary(data []byte) error { return nil }

// TableStats: ofp_table_stats (the 1.3 shape — table_id, pad[3],
// active_count, lookup_count, matched_count; OpenFlow 1.0's wildcards/name
// fields were dropped from the wire format in 1.1+).
type TableStats struct {
	TableId      uint8
	ActiveCount  uint32
	LookupCount  uint64
	MatchedCount uint64
}

func NewTableStats() *TableStats {
	return new(TableStats)
}

func (s *TableStats) Len() uint16 {
	return 24
}

func (s *TableStats) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 24)
	data[0] = s.TableId
	binary.BigEndian.PutUint32(data[4:], s.ActiveCount)
	binary.BigEndian.PutUint64(data[8:], s.LookupCount)
	binary.BigEndian.PutUint64(data[16:], s.MatchedCount)
	return data, nil
}

func (s *TableStats) UnmarshalBinary(data []byte) error {
	if len(data) < 24 {
		return fmt.Errorf("the []byte is too short to unmarshal TableStats")
	}
	s.TableId = data[0]
	s.ActiveCount = binary.BigEndian.Uint32(data[4:])
	s.LookupCount = binary.BigEndian.Uint64(data[8:])
	s.MatchedCount = binary.BigEndian.Uint64(data[16:])
	return nil
}

// ofp_table_feature_prop_type.
const (
	OFPTFPT13_INSTRUCTIONS        = 0
	OFPTFPT13_INSTRUCTIONS_MISS   = 1
	OFPTFPT13_NEXT_TABLES         = 2
	OFPTFPT13_NEXT_TABLES_MISS    = 3
	OFPTFPT13_WRITE_ACTIONS       = 4
	OFPTFPT13_WRITE_ACTIONS_MISS  = 5
	OFPTFPT13_APPLY_ACTIONS       = 6
	OFPTFPT13_APPLY_ACTIONS_MISS  = 7
	OFPTFPT13_MATCH               = 8
	OFPTFPT13_WILDCARDS           = 10
	OFPTFPT13_WRITE_SETFIELD      = 12
	OFPTFPT13_WRITE_SETFIELD_MISS = 13
	OFPTFPT13_APPLY_SETFIELD      = 14
	OFPTFPT13_APPLY_SETFIELD_MISS = 15
	OFPTFPT13_EXPERIMENTER        = 0xfffe
	OFPTFPT13_EXPERIMENTER_MISS   = 0xffff
)

type OFTablePropertyHeader struct {
	Type   uint16
	Length uint16
}

func (h *OFTablePropertyHeader) Len() uint16 { return 4 }

func (h *OFTablePropertyHeader) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:], h.Type)
	binary.BigEndian.PutUint16(data[2:], h.Length)
	return data, nil
}

func (h *OFTablePropertyHeader) UnmarshalBinary(data []byte) error {
	if len(data) < 4 {
		return fmt.Errorf("the []byte is too short to unmarshal an OFTablePropertyHeader")
	}
	h.Type = binary.BigEndian.Uint16(data[0:])
	h.Length = binary.BigEndian.Uint16(data[2:])
	return nil
}

// TableFeatureProperty is satisfied by every table-feature property below.
type TableFeatureProperty interface {
	Len() uint16
	MarshalBinary() ([]byte, error)
	UnmarshalBinary([]byte) error
}

type InstructionProperty struct {
	OFTablePropertyHeader
	Instructions []InstrHeader
}

func (p *InstructionProperty) Len() uint16 {
	n := p.OFTablePropertyHeader.Len()
	for _, instr := range p.Instructions {
		n += instr.Len()
	}
	return (n + 7) / 8 * 8
}

func (p *InstructionProperty) MarshalBinary() (data []byte, err error) {
	data = make([]byte, p.Len())
	header, err := p.OFTablePropertyHeader.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(data, header)
	n := 4
	for _, instr := range p.Instructions {
		b, err := instr.MarshalBinary()
		if err != nil {
			return nil, err
		}
		copy(data[n:], b)
		n += int(instr.Len())
	}
	return data, nil
}

func (p *InstructionProperty) UnmarshalBinary(data []byte) error {
	if err := p.OFTablePropertyHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	if len(data) < int(p.Length) {
		return fmt.Errorf("the []byte is too short to unmarshal a full InstructionProperty")
	}
	n := 4
	p.Instructions = make([]InstrHeader, 0)
	for n < int(p.Length) {
		instr := new(InstrHeader)
		if err := instr.UnmarshalBinary(data[n : n+4]); err != nil {
			return err
		}
		p.Instructions = append(p.Instructions, *instr)
		n += int(instr.Len())
	}
	return nil
}

type NextTableProperty struct {
	OFTablePropertyHeader
	TableIDs []uint8
}

func (p *NextTableProperty) Len() uint16 {
	return (p.OFTablePropertyHeader.Len() + uint16(len(p.TableIDs)) + 7) / 8 * 8
}

func (p *NextTableProperty) MarshalBinary() (data []byte, err error) {
	data = make([]byte, p.Len())
	header, err := p.OFTablePropertyHeader.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(data, header)
	copy(data[4:], p.TableIDs)
	return data, nil
}

func (p *NextTableProperty) UnmarshalBinary(data []byte) error {
	if err := p.OFTablePropertyHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	if len(data) < int(p.Length) {
		return fmt.Errorf("the []byte is too short to unmarshal a full NextTableProperty")
	}
	p.TableIDs = append([]byte(nil), data[4:p.Length]...)
	return nil
}

type ActionProperty struct {
	OFTablePropertyHeader
	Actions []ActionHeader
}

func (p *ActionProperty) Len() uint16 {
	n := p.OFTablePropertyHeader.Len()
	for _, act := range p.Actions {
		n += act.Len()
	}
	return (n + 7) / 8 * 8
}

func (p *ActionProperty) MarshalBinary() (data []byte, err error) {
	data = make([]byte, p.Len())
	header, err := p.OFTablePropertyHeader.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(data, header)
	n := 4
	for _, act := range p.Actions {
		b, err := act.MarshalBinary()
		if err != nil {
			return nil, err
		}
		copy(data[n:], b)
		n += int(act.Len())
	}
	return data, nil
}

func (p *ActionProperty) UnmarshalBinary(data []byte) error {
	if err := p.OFTablePropertyHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	if len(data) < int(p.Length) {
		return fmt.Errorf("the []byte is too short to unmarshal a full ActionProperty")
	}
	n := 4
	p.Actions = make([]ActionHeader, 0)
	for n < int(p.Length) {
		act := new(ActionHeader)
		if err := act.UnmarshalBinary(data[n:]); err != nil {
			return err
		}
		p.Actions = append(p.Actions, *act)
		n += int(act.Len())
	}
	return nil
}

type SetFieldProperty struct {
	OFTablePropertyHeader
	IDs []uint32
}

func (p *SetFieldProperty) Len() uint16 {
	n := p.OFTablePropertyHeader.Len() + 4*uint16(len(p.IDs))
	return (n + 7) / 8 * 8
}

func (p *SetFieldProperty) MarshalBinary() (data []byte, err error) {
	data = make([]byte, p.Len())
	header, err := p.OFTablePropertyHeader.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(data, header)
	n := 4
	for _, oid := range p.IDs {
		binary.BigEndian.PutUint32(data[n:], oid)
		n += 4
	}
	return data, nil
}

func (p *SetFieldProperty) UnmarshalBinary(data []byte) error {
	if err := p.OFTablePropertyHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	if len(data) < int(p.Length) {
		return fmt.Errorf("the []byte is too short to unmarshal a full SetFieldProperty")
	}
	n := 4
	p.IDs = make([]uint32, 0)
	for n < int(p.Length) {
		p.IDs = append(p.IDs, binary.BigEndian.Uint32(data[n:]))
		n += 4
	}
	return nil
}

type TableExperimenterProperty struct {
	OFTablePropertyHeader
	Experimenter     uint32
	ExperimenterType uint32
	ExperimenterData []uint32
}

func (p *TableExperimenterProperty) Len() uint16 {
	return p.OFTablePropertyHeader.Len() + 8 + (4*uint16(len(p.ExperimenterData))+7)/8*8
}

func (p *TableExperimenterProperty) MarshalBinary() (data []byte, err error) {
	data = make([]byte, p.Len())
	header, err := p.OFTablePropertyHeader.MarshalBinary()
	if err != nil {
		return nil, err
	}
	copy(data, header)
	n := 4
	binary.BigEndian.PutUint32(data[n:], p.Experimenter)
	n += 4
	binary.BigEndian.PutUint32(data[n:], p.ExperimenterType)
	n += 4
	for _, d := range p.ExperimenterData {
		binary.BigEndian.PutUint32(data[n:], d)
		n += 4
	}
	return data, nil
}

func (p *TableExperimenterProperty) UnmarshalBinary(data []byte) error {
	if err := p.OFTablePropertyHeader.UnmarshalBinary(data); err != nil {
		return err
	}
	if len(data) < int(p.Length) {
		return fmt.Errorf("the []byte is too short to unmarshal a full TableExperimenterProperty")
	}
	n := 4
	p.Experimenter = binary.BigEndian.Uint32(data[n:])
	n += 4
	p.ExperimenterType = binary.BigEndian.Uint32(data[n:])
	n += 4
	p.ExperimenterData = make([]uint32, 0)
	for n < int(p.Length) {
		p.ExperimenterData = append(p.ExperimenterData, binary.BigEndian.Uint32(data[n:]))
		n += 4
	}
	return nil
}

// OFPTableFeatures: ofp_table_features.
type OFPTableFeatures struct {
	Length        uint16
	TableID       uint8
	Command       uint8
	Name          [32]byte
	MetadataMatch uint64
	MetadataWrite uint64
	Capabilities  uint32
	MaxEntries    uint32
	Properties    []TableFeatureProperty
}

func (f *OFPTableFeatures) Len() uint16 {
	n := uint16(64)
	for _, p := range f.Properties {
		n += p.Len()
	}
	return n
}

func (f *OFPTableFeatures) MarshalBinary() (data []byte, err error) {
	data = make([]byte, f.Len())
	binary.BigEndian.PutUint16(data[0:], f.Len())
	data[2] = f.TableID
	data[3] = f.Command
	copy(data[8:40], f.Name[:])
	binary.BigEndian.PutUint64(data[40:], f.MetadataMatch)
	binary.BigEndian.PutUint64(data[48:], f.MetadataWrite)
	binary.BigEndian.PutUint32(data[56:], f.Capabilities)
	binary.BigEndian.PutUint32(data[60:], f.MaxEntries)
	n := 64
	for _, p := range f.Properties {
		pd, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		copy(data[n:], pd)
		n += int(p.Len())
	}
	return data, nil
}

func (f *OFPTableFeatures) UnmarshalBinary(data []byte) error {
	if len(data) < 64 {
		return fmt.Errorf("the []byte is too short to unmarshal OFPTableFeatures")
	}
	f.Length = binary.BigEndian.Uint16(data[0:])
	if len(data) < int(f.Length) {
		return fmt.Errorf("the []byte is too short to unmarshal a full OFPTableFeatures message")
	}
	f.TableID = data[2]
	f.Command = data[3]
	copy(f.Name[:], data[8:40])
	f.MetadataMatch = binary.BigEndian.Uint64(data[40:])
	f.MetadataWrite = binary.BigEndian.Uint64(data[48:])
	f.Capabilities = binary.BigEndian.Uint32(data[56:])
	f.MaxEntries = binary.BigEndian.Uint32(data[60:])

	f.Properties = make([]TableFeatureProperty, 0)
	n := 64
	for n < int(f.Length) {
		t := binary.BigEndian.Uint16(data[n:])
		var p TableFeatureProperty
		switch t {
		case OFPTFPT13_INSTRUCTIONS, OFPTFPT13_INSTRUCTIONS_MISS:
			p = new(InstructionProperty)
		case OFPTFPT13_NEXT_TABLES, OFPTFPT13_NEXT_TABLES_MISS:
			p = new(NextTableProperty)
		case OFPTFPT13_APPLY_ACTIONS, OFPTFPT13_APPLY_ACTIONS_MISS,
			OFPTFPT13_WRITE_ACTIONS, OFPTFPT13_WRITE_ACTIONS_MISS:
			p = new(ActionProperty)
		case OFPTFPT13_WRITE_SETFIELD, OFPTFPT13_WRITE_SETFIELD_MISS,
			OFPTFPT13_APPLY_SETFIELD, OFPTFPT13_APPLY_SETFIELD_MISS:
			p = new(SetFieldProperty)
		case OFPTFPT13_EXPERIMENTER, OFPTFPT13_EXPERIMENTER_MISS:
			p = new(TableExperimenterProperty)
		default:
			return fmt.Errorf("unsupported table feature property type: %d", t)
		}
		if err := p.UnmarshalBinary(data[n:]); err != nil {
			return err
		}
		f.Properties = append(f.Properties, p)
		n += int(p.Len())
	}
	return nil
}
