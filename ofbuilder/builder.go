// Package ofbuilder provides a fluent API for constructing the OXM match
// set and instruction/action set of a flow_mod, mirroring the way the
// teacher's ofctrl package let callers build up a Flow before installing it
// — but generalized to the full closed OXM field set and the real
// openflow13 action/instruction types instead of a fixed dozen fields and a
// string-keyed action list.
package ofbuilder

import (
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/contiv/ofdp/openflow13"
)

const (
	IP_PROTO_TCP  = 6
	IP_PROTO_UDP  = 17
	IP_PROTO_SCTP = 132
)

// FlowMatch mirrors the teacher's flat match-field struct, extended with
// the rest of the closed OXM field set (IPv6, ARP, MPLS, PBB, tunnel id).
type FlowMatch struct {
	Priority     uint16
	InputPort    uint32
	MacDa        *net.HardwareAddr
	MacDaMask    *net.HardwareAddr
	MacSa        *net.HardwareAddr
	MacSaMask    *net.HardwareAddr
	Ethertype    uint16
	VlanId       uint16
	VlanIdMask   *uint16
	ArpOper      uint16
	IpSa         *net.IP
	IpSaMask     *net.IP
	IpDa         *net.IP
	IpDaMask     *net.IP
	Ipv6Sa       *net.IP
	Ipv6SaMask   *net.IP
	Ipv6Da       *net.IP
	Ipv6DaMask   *net.IP
	Ipv6Exthdr   *uint16
	Ipv6ExthdrMask *uint16
	IpProto      uint8
	IpDscp       uint8
	TcpSrcPort   uint16
	TcpDstPort   uint16
	UdpSrcPort   uint16
	UdpDstPort   uint16
	SctpSrcPort  uint16
	SctpDstPort  uint16
	MplsLabel    *uint32
	Metadata     *uint64
	MetadataMask *uint64
	TunnelId     uint64
	PbbIsid      *uint32
	PbbIsidMask  *uint32
}

// flowAction is one pending builder-time action, keyed by the closed
// openflow13 action-type constant instead of a free-form string.
type flowAction struct {
	actType      uint16
	vlanId       uint16
	macAddr      net.HardwareAddr
	ipAddr       net.IP
	l4Port       uint16
	tunnelId     uint64
	metadata     uint64
	metadataMask uint64
	dscp         uint8
	queueId      uint32
	groupId      uint32
}

// FlowOutput is the builder's notion of "what the instruction set ships
// out as" — goto-table, flood, output-to-controller, or a concrete port.
type FlowOutput struct {
	outputType string
	outPortNo  uint32
	tblId      uint8
}

// FlowModBuilder accumulates a match and an action list and compiles them
// into an openflow13.Match (GetMatchFields) plus an openflow13.Instruction
// (GetFlowInstructions).
type FlowModBuilder struct {
	TableId     uint8
	Match       FlowMatch
	flowActions []*flowAction
	flowOutput  FlowOutput
	lock        sync.RWMutex
}

func NewFlowModBuilder(tableId uint8) *FlowModBuilder {
	return &FlowModBuilder{
		TableId:     tableId,
		flowActions: make([]*flowAction, 0),
	}
}

// GetMatchFields compiles the FlowMatch struct into an openflow13.Match,
// adding only the fields the caller actually set.
func (b *FlowModBuilder) GetMatchFields() openflow13.Match {
	ofMatch := openflow13.NewMatch()

	if b.Match.InputPort != 0 {
		ofMatch.AddField(*openflow13.NewInPortField(b.Match.InputPort))
	}
	if b.Match.MacDa != nil {
		ofMatch.AddField(*openflow13.NewEthDstField(*b.Match.MacDa, b.Match.MacDaMask))
	}
	if b.Match.MacSa != nil {
		ofMatch.AddField(*openflow13.NewEthSrcField(*b.Match.MacSa, b.Match.MacSaMask))
	}
	if b.Match.Ethertype != 0 {
		ofMatch.AddField(*openflow13.NewEthTypeField(b.Match.Ethertype))
	}
	if b.Match.VlanId != 0 {
		ofMatch.AddField(*openflow13.NewVlanIdField(b.Match.VlanId, b.Match.VlanIdMask))
	}
	if b.Match.ArpOper != 0 {
		ofMatch.AddField(*openflow13.NewArpOperField(b.Match.ArpOper))
	}
	if b.Match.IpDa != nil {
		ofMatch.AddField(*openflow13.NewIpv4DstField(*b.Match.IpDa, b.Match.IpDaMask))
	}
	if b.Match.IpSa != nil {
		ofMatch.AddField(*openflow13.NewIpv4SrcField(*b.Match.IpSa, b.Match.IpSaMask))
	}
	if b.Match.Ipv6Da != nil {
		ofMatch.AddField(*openflow13.NewIpv6DstField(*b.Match.Ipv6Da, b.Match.Ipv6DaMask))
	}
	if b.Match.Ipv6Sa != nil {
		ofMatch.AddField(*openflow13.NewIpv6SrcField(*b.Match.Ipv6Sa, b.Match.Ipv6SaMask))
	}
	if b.Match.Ipv6Exthdr != nil {
		ofMatch.AddField(*openflow13.NewIpv6ExthdrField(*b.Match.Ipv6Exthdr, b.Match.Ipv6ExthdrMask))
	}
	if b.Match.IpProto != 0 {
		ofMatch.AddField(*openflow13.NewIpProtoField(b.Match.IpProto))
	}
	if b.Match.IpDscp != 0 {
		ofMatch.AddField(*openflow13.NewIpDscpField(b.Match.IpDscp))
	}
	if b.Match.IpProto == IP_PROTO_TCP && b.Match.TcpSrcPort != 0 {
		ofMatch.AddField(*openflow13.NewTcpSrcField(b.Match.TcpSrcPort))
	}
	if b.Match.IpProto == IP_PROTO_TCP && b.Match.TcpDstPort != 0 {
		ofMatch.AddField(*openflow13.NewTcpDstField(b.Match.TcpDstPort))
	}
	if b.Match.IpProto == IP_PROTO_UDP && b.Match.UdpSrcPort != 0 {
		ofMatch.AddField(*openflow13.NewUdpSrcField(b.Match.UdpSrcPort))
	}
	if b.Match.IpProto == IP_PROTO_UDP && b.Match.UdpDstPort != 0 {
		ofMatch.AddField(*openflow13.NewUdpDstField(b.Match.UdpDstPort))
	}
	if b.Match.IpProto == IP_PROTO_SCTP && b.Match.SctpSrcPort != 0 {
		ofMatch.AddField(*openflow13.NewSctpSrcField(b.Match.SctpSrcPort))
	}
	if b.Match.IpProto == IP_PROTO_SCTP && b.Match.SctpDstPort != 0 {
		ofMatch.AddField(*openflow13.NewSctpDstField(b.Match.SctpDstPort))
	}
	if b.Match.MplsLabel != nil {
		ofMatch.AddField(*openflow13.NewMplsLabelField(*b.Match.MplsLabel))
	}
	if b.Match.PbbIsid != nil {
		ofMatch.AddField(*openflow13.NewPbbIsidField(*b.Match.PbbIsid, b.Match.PbbIsidMask))
	}
	if b.Match.Metadata != nil {
		ofMatch.AddField(*openflow13.NewMetadataField(*b.Match.Metadata, b.Match.MetadataMask))
	}
	if b.Match.TunnelId != 0 {
		ofMatch.AddField(*openflow13.NewTunnelIdField(b.Match.TunnelId))
	}

	return *ofMatch
}

// GetFlowInstructions compiles the output selection and pending actions
// into an openflow13.Instruction (APPLY_ACTIONS in every case but
// GOTO_TABLE, which carries no action list).
func (b *FlowModBuilder) GetFlowInstructions() openflow13.Instruction {
	var instr openflow13.Instruction

	switch b.flowOutput.outputType {
	case "gotoCtrl":
		apply := openflow13.NewInstrApplyActions()
		out := openflow13.NewActionOutput(openflow13.P_CONTROLLER)
		out.MaxLen = openflow13.OFPCML_NO_BUFFER
		apply.AddAction(out, false)
		instr = apply
		log.Debugf("flow build: output type %s", b.flowOutput.outputType)
	case "gotoTbl":
		instr = openflow13.NewInstrGotoTable(b.flowOutput.tblId)
		log.Debugf("flow build: output type %s", b.flowOutput.outputType)
	case "flood":
		apply := openflow13.NewInstrApplyActions()
		apply.AddAction(openflow13.NewActionOutput(openflow13.P_FLOOD), false)
		instr = apply
		log.Debugf("flow build: output type %s", b.flowOutput.outputType)
	case "outPort":
		apply := openflow13.NewInstrApplyActions()
		apply.AddAction(openflow13.NewActionOutput(b.flowOutput.outPortNo), false)
		instr = apply
		log.Debugf("flow build: output type %s", b.flowOutput.outputType)
	default:
		log.Fatalf("unknown flow output type %s", b.flowOutput.outputType)
	}

	applyInstr, isApply := instr.(*openflow13.InstrActions)

	for _, act := range b.flowActions {
		if !isApply {
			log.Warnf("flow build: action type %d cannot attach to a non-apply instruction, skipping", act.actType)
			continue
		}
		switch act.actType {
		case openflow13.OFPAT_PUSH_VLAN:
			push := openflow13.NewActionPushVlan(0x8100)
			setVlan := openflow13.NewActionSetField(*openflow13.NewVlanIdField(act.vlanId, nil))
			applyInstr.AddAction(setVlan, true)
			applyInstr.AddAction(push, true)
			log.Debugf("flow build: added push_vlan %+v, set_field(vlan) %+v", push, setVlan)

		case openflow13.OFPAT_POP_VLAN:
			applyInstr.AddAction(openflow13.NewActionPopVlan(), true)
			log.Debugf("flow build: added pop_vlan")

		case openflow13.OFPAT_SET_FIELD | ethDstTag:
			setMacDa := openflow13.NewActionSetField(*openflow13.NewEthDstField(act.macAddr, nil))
			applyInstr.AddAction(setMacDa, true)
			log.Debugf("flow build: added set_field(eth_dst) %+v", setMacDa)

		case openflow13.OFPAT_SET_FIELD | ethSrcTag:
			setMacSa := openflow13.NewActionSetField(*openflow13.NewEthSrcField(act.macAddr, nil))
			applyInstr.AddAction(setMacSa, true)
			log.Debugf("flow build: added set_field(eth_src) %+v", setMacSa)

		case openflow13.OFPAT_SET_FIELD | tunnelIdTag:
			setTunnel := openflow13.NewActionSetField(*openflow13.NewTunnelIdField(act.tunnelId))
			applyInstr.AddAction(setTunnel, true)
			log.Debugf("flow build: added set_field(tunnel_id) %+v", setTunnel)

		case openflow13.OFPAT_SET_FIELD | ipSrcTag:
			setIpSa := openflow13.NewActionSetField(*openflow13.NewIpv4SrcField(act.ipAddr, nil))
			applyInstr.AddAction(setIpSa, true)
			log.Debugf("flow build: added set_field(ipv4_src) %+v", setIpSa)

		case openflow13.OFPAT_SET_FIELD | ipDstTag:
			setIpDa := openflow13.NewActionSetField(*openflow13.NewIpv4DstField(act.ipAddr, nil))
			applyInstr.AddAction(setIpDa, true)
			log.Debugf("flow build: added set_field(ipv4_dst) %+v", setIpDa)

		case openflow13.OFPAT_SET_FIELD | dscpTag:
			setDscp := openflow13.NewActionSetField(*openflow13.NewIpDscpField(act.dscp))
			applyInstr.AddAction(setDscp, true)
			log.Debugf("flow build: added set_field(ip_dscp) %+v", setDscp)

		case openflow13.OFPAT_SET_FIELD | tcpSrcTag:
			setPort := openflow13.NewActionSetField(*openflow13.NewTcpSrcField(act.l4Port))
			applyInstr.AddAction(setPort, true)
			log.Debugf("flow build: added set_field(tcp_src) %+v", setPort)

		case openflow13.OFPAT_SET_FIELD | tcpDstTag:
			setPort := openflow13.NewActionSetField(*openflow13.NewTcpDstField(act.l4Port))
			applyInstr.AddAction(setPort, true)
			log.Debugf("flow build: added set_field(tcp_dst) %+v", setPort)

		case openflow13.OFPAT_SET_FIELD | udpSrcTag:
			setPort := openflow13.NewActionSetField(*openflow13.NewUdpSrcField(act.l4Port))
			applyInstr.AddAction(setPort, true)
			log.Debugf("flow build: added set_field(udp_src) %+v", setPort)

		case openflow13.OFPAT_SET_FIELD | udpDstTag:
			setPort := openflow13.NewActionSetField(*openflow13.NewUdpDstField(act.l4Port))
			applyInstr.AddAction(setPort, true)
			log.Debugf("flow build: added set_field(udp_dst) %+v", setPort)

		case openflow13.OFPAT_SET_QUEUE:
			applyInstr.AddAction(openflow13.NewActionSetQueue(act.queueId), true)
			log.Debugf("flow build: added set_queue(%d)", act.queueId)

		case openflow13.OFPAT_GROUP:
			applyInstr.AddAction(openflow13.NewActionGroup(act.groupId), true)
			log.Debugf("flow build: added group(%d)", act.groupId)

		default:
			log.Fatalf("unknown action type %d", act.actType)
		}
	}
	return instr
}

// The builder needs to distinguish several SET_FIELD sub-cases that all
// share OFPAT_SET_FIELD as their wire action type; these private tags only
// ever appear as switch keys above, never on the wire.
const (
	ethDstTag = 1 << 8 * iota
	ethSrcTag
	tunnelIdTag
	ipSrcTag
	ipDstTag
	dscpTag
	tcpSrcTag
	tcpDstTag
	udpSrcTag
	udpDstTag
)

func (b *FlowModBuilder) GetWriteMetaDataInstruction() (*openflow13.InstrWriteMetadata, error) {
	for _, act := range b.flowActions {
		if act.actType == metadataTag {
			mask := act.metadataMask
			return openflow13.NewInstrWriteMetadata(act.metadata, &mask), nil
		}
	}
	return nil, fmt.Errorf("no write_metadata action staged on this flow")
}

const metadataTag = 1 << 15

func (b *FlowModBuilder) SetGotoController() {
	b.flowOutput.outputType = "gotoCtrl"
}

func (b *FlowModBuilder) SetGotoTable(tableId uint8) {
	b.flowOutput.outputType = "gotoTbl"
	b.flowOutput.tblId = tableId
}

func (b *FlowModBuilder) SetFlood() {
	b.flowOutput.outputType = "flood"
}

func (b *FlowModBuilder) SetOutputPort(portNo uint32) {
	b.flowOutput.outputType = "outPort"
	b.flowOutput.outPortNo = portNo
}

func (b *FlowModBuilder) addAction(act *flowAction) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.flowActions = append(b.flowActions, act)
}

func (b *FlowModBuilder) PushVlan(vlanId uint16) {
	b.addAction(&flowAction{actType: openflow13.OFPAT_PUSH_VLAN, vlanId: vlanId})
}

func (b *FlowModBuilder) PopVlan() {
	b.addAction(&flowAction{actType: openflow13.OFPAT_POP_VLAN})
}

func (b *FlowModBuilder) SetMacDa(mac net.HardwareAddr) {
	b.addAction(&flowAction{actType: openflow13.OFPAT_SET_FIELD | ethDstTag, macAddr: mac})
}

func (b *FlowModBuilder) SetMacSa(mac net.HardwareAddr) {
	b.addAction(&flowAction{actType: openflow13.OFPAT_SET_FIELD | ethSrcTag, macAddr: mac})
}

func (b *FlowModBuilder) SetTunnelId(tunnelId uint64) {
	b.addAction(&flowAction{actType: openflow13.OFPAT_SET_FIELD | tunnelIdTag, tunnelId: tunnelId})
}

func (b *FlowModBuilder) SetIPField(ip net.IP, field string) error {
	switch field {
	case "Src":
		b.addAction(&flowAction{actType: openflow13.OFPAT_SET_FIELD | ipSrcTag, ipAddr: ip})
	case "Dst":
		b.addAction(&flowAction{actType: openflow13.OFPAT_SET_FIELD | ipDstTag, ipAddr: ip})
	default:
		return fmt.Errorf("field not supported: %s", field)
	}
	return nil
}

func (b *FlowModBuilder) SetL4Field(port uint16, field string) error {
	var tag uint16
	switch field {
	case "TCPSrc":
		tag = tcpSrcTag
	case "TCPDst":
		tag = tcpDstTag
	case "UDPSrc":
		tag = udpSrcTag
	case "UDPDst":
		tag = udpDstTag
	default:
		return fmt.Errorf("field not supported: %s", field)
	}
	b.addAction(&flowAction{actType: openflow13.OFPAT_SET_FIELD | tag, l4Port: port})
	return nil
}

func (b *FlowModBuilder) SetMetadata(metadata, metadataMask uint64) {
	b.addAction(&flowAction{actType: metadataTag, metadata: metadata, metadataMask: metadataMask})
}

func (b *FlowModBuilder) SetDscp(dscp uint8) {
	b.addAction(&flowAction{actType: openflow13.OFPAT_SET_FIELD | dscpTag, dscp: dscp})
}

func (b *FlowModBuilder) SetQueue(queueId uint32) {
	b.addAction(&flowAction{actType: openflow13.OFPAT_SET_QUEUE, queueId: queueId})
}

func (b *FlowModBuilder) SetGroup(groupId uint32) {
	b.addAction(&flowAction{actType: openflow13.OFPAT_GROUP, groupId: groupId})
}

// UnsetDscp removes a previously staged SetDscp action, matching the
// teacher's Unset-prefixed undo methods.
func (b *FlowModBuilder) UnsetDscp() {
	b.lock.Lock()
	defer b.lock.Unlock()
	for idx, act := range b.flowActions {
		if act.actType == openflow13.OFPAT_SET_FIELD|dscpTag {
			b.flowActions = append(b.flowActions[:idx], b.flowActions[idx+1:]...)
			return
		}
	}
}
