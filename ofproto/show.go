package ofproto

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/contiv/ofdp/openflow13"
)

// portString renders a port number the way flowdb_show.c's port_string did:
// the well-known reserved ports get a name, everything else is numeric.
func portString(p uint32) string {
	switch p {
	case openflow13.P_IN_PORT:
		return "in_port"
	case openflow13.P_TABLE:
		return "table"
	case openflow13.P_NORMAL:
		return "normal"
	case openflow13.P_FLOOD:
		return "flood"
	case openflow13.P_ALL:
		return "all"
	case openflow13.P_CONTROLLER:
		return "controller"
	case openflow13.P_LOCAL:
		return "local"
	default:
		return fmt.Sprintf("%d", p)
	}
}

func beUint(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}

// writeMatch renders one OXM TLV as "name=value[/mask]", mirroring
// show_match's per-field switch.
func writeMatch(w io.Writer, m openflow13.MatchField) {
	name := m.GetOXMName()
	switch m.Field {
	case openflow13.OXM_FIELD_IN_PORT, openflow13.OXM_FIELD_IN_PHY_PORT:
		fmt.Fprintf(w, ",%s=%s", name, portString(uint32(beUint(m.Value))))
	case openflow13.OXM_FIELD_ETH_DST, openflow13.OXM_FIELD_ETH_SRC,
		openflow13.OXM_FIELD_ARP_SHA, openflow13.OXM_FIELD_ARP_THA,
		openflow13.OXM_FIELD_IPV6_ND_SLL, openflow13.OXM_FIELD_IPV6_ND_TLL:
		fmt.Fprintf(w, ",%s=%s", name, net.HardwareAddr(m.Value).String())
		if m.HasMask {
			fmt.Fprintf(w, "/%s", net.HardwareAddr(m.Mask).String())
		}
	case openflow13.OXM_FIELD_ETH_TYPE:
		writeEthType(w, m.Value)
	case openflow13.OXM_FIELD_IPV4_SRC, openflow13.OXM_FIELD_IPV4_DST,
		openflow13.OXM_FIELD_ARP_SPA, openflow13.OXM_FIELD_ARP_TPA:
		fmt.Fprintf(w, ",%s=%s", name, net.IP(m.Value).String())
		if m.HasMask {
			fmt.Fprintf(w, "/%s", net.IP(m.Mask).String())
		}
	case openflow13.OXM_FIELD_IPV6_SRC, openflow13.OXM_FIELD_IPV6_DST,
		openflow13.OXM_FIELD_IPV6_ND_TARGET:
		fmt.Fprintf(w, ",%s=%s", name, net.IP(m.Value).String())
		if m.HasMask {
			fmt.Fprintf(w, "/%s", net.IP(m.Mask).String())
		}
	case openflow13.OXM_FIELD_METADATA, openflow13.OXM_FIELD_TUNNEL_ID:
		fmt.Fprintf(w, ",%s=%d", name, beUint(m.Value))
		if m.HasMask {
			fmt.Fprintf(w, "/0x%x", beUint(m.Mask))
		}
	case openflow13.OXM_FIELD_PBB_ISID:
		fmt.Fprintf(w, ",%s=%d", name, beUint(m.Value))
		if m.HasMask {
			fmt.Fprintf(w, "/0x%x", beUint(m.Mask))
		}
	default:
		if m.HasMask {
			fmt.Fprintf(w, ",%s=%d/0x%x", name, beUint(m.Value), beUint(m.Mask))
		} else {
			fmt.Fprintf(w, ",%s=%d", name, beUint(m.Value))
		}
	}
}

func writeEthType(w io.Writer, value []byte) {
	switch binary.BigEndian.Uint16(value) {
	case ethTypeARP:
		io.WriteString(w, ",arp")
	case ethTypeIPv4:
		io.WriteString(w, ",ip")
	case ethTypeIPv6:
		io.WriteString(w, ",ipv6")
	case ethTypeMPLS:
		io.WriteString(w, ",mpls")
	case ethTypeMPLS_MC:
		io.WriteString(w, ",mplsmc")
	case ethTypePBB:
		io.WriteString(w, ",pbb")
	default:
		fmt.Fprintf(w, ",eth_type=0x%04x", binary.BigEndian.Uint16(value))
	}
}

// writeAction renders one action the way show_action did: a bare keyword,
// or keyword:value for actions carrying a parameter.
func writeAction(w io.Writer, a openflow13.Action) {
	switch act := a.(type) {
	case *openflow13.ActionOutput:
		fmt.Fprintf(w, "output:%s", portString(act.Port))
	case *openflow13.ActionEmpty:
		io.WriteString(w, actionKeyword(act.GetType()))
	case *openflow13.ActionTtl:
		fmt.Fprintf(w, "%s:%d", actionKeyword(act.GetType()), act.Ttl)
	case *openflow13.ActionPush:
		fmt.Fprintf(w, "%s:0x%04x", actionKeyword(act.GetType()), act.EtherType)
	case *openflow13.ActionPop:
		if act.GetType() == openflow13.OFPAT_POP_MPLS {
			fmt.Fprintf(w, "pop_mpls:0x%04x", act.EtherType)
		} else {
			io.WriteString(w, actionKeyword(act.GetType()))
		}
	case *openflow13.ActionSetQueue:
		fmt.Fprintf(w, "set_queue:%d", act.QueueId)
	case *openflow13.ActionGroup:
		fmt.Fprintf(w, "group:%d", act.GroupId)
	case *openflow13.ActionSetField:
		io.WriteString(w, "set_field:")
		writeMatch(w, act.Field)
	default:
		io.WriteString(w, "unknown")
	}
}

func actionKeyword(t uint16) string {
	switch t {
	case openflow13.OFPAT_COPY_TTL_OUT:
		return "copy_ttl_out"
	case openflow13.OFPAT_COPY_TTL_IN:
		return "copy_ttl_in"
	case openflow13.OFPAT_SET_MPLS_TTL:
		return "set_mpls_ttl"
	case openflow13.OFPAT_DEC_MPLS_TTL:
		return "dec_mpls_ttl"
	case openflow13.OFPAT_PUSH_VLAN:
		return "push_vlan"
	case openflow13.OFPAT_POP_VLAN:
		return "pop_vlan"
	case openflow13.OFPAT_PUSH_MPLS:
		return "push_mpls"
	case openflow13.OFPAT_PUSH_PBB:
		return "push_pbb"
	case openflow13.OFPAT_POP_PBB:
		return "pop_pbb"
	case openflow13.OFPAT_SET_NW_TTL:
		return "set_nw_ttl"
	case openflow13.OFPAT_DEC_NW_TTL:
		return "dec_nw_ttl"
	default:
		return "unknown"
	}
}

// writeInstruction renders one instruction slot: goto_table/write_metadata/
// meter print a single value; the action-carrying slots print their action
// list comma-joined, matching show_instruction.
func writeInstruction(w io.Writer, instr openflow13.Instruction) {
	switch ins := instr.(type) {
	case *openflow13.InstrGotoTable:
		fmt.Fprintf(w, "goto_table:%d", ins.TableId)
	case *openflow13.InstrWriteMetadata:
		fmt.Fprintf(w, "write_metadata:0x%x", ins.Metadata)
	case *openflow13.InstrActions:
		for i, a := range ins.Actions {
			if i > 0 {
				io.WriteString(w, ",")
			}
			writeAction(w, a)
		}
	case *openflow13.InstrMeter:
		fmt.Fprintf(w, "meter:%d", ins.MeterId)
	default:
		io.WriteString(w, "unknown")
	}
}

// writeFlow renders one flow entry as a single line: priority, stats,
// matches, then actions — the line shape show_flow produced.
func writeFlow(w io.Writer, f *Flow) {
	fmt.Fprintf(w, "  priority=%d", f.Priority)
	fmt.Fprintf(w, ",idle_timeout=%d", f.IdleTimeout)
	fmt.Fprintf(w, ",hard_timeout=%d", f.HardTimeout)
	fmt.Fprintf(w, ",flags=%d", f.Flags)
	fmt.Fprintf(w, ",cookie=%d", f.Cookie)
	fmt.Fprintf(w, ",packet_count=%d", f.PacketCount())
	fmt.Fprintf(w, ",byte_count=%d", f.ByteCount())

	for _, m := range f.Matches {
		writeMatch(w, m)
	}

	io.WriteString(w, " actions=")
	any := false
	for _, idx := range []int{InstrIndexWriteActions, InstrIndexApplyActions, InstrIndexClearActions, InstrIndexGotoTable, InstrIndexWriteMetadata, InstrIndexMeter} {
		if f.Instructions[idx] == nil {
			continue
		}
		if any {
			io.WriteString(w, ",")
		}
		writeInstruction(w, f.Instructions[idx])
		any = true
	}
	if !any {
		io.WriteString(w, "drop")
	}
	io.WriteString(w, "\n")
}

// DumpTable writes every flow in one table, in priority order, the
// table_show.c layout ("Table id: N" followed by one line per flow).
func DumpTable(w io.Writer, t *Table) {
	fmt.Fprintf(w, " Table id: %d\n", t.TableID)
	for _, f := range t.Flows.Snapshot() {
		writeFlow(w, f)
	}
}

// Dump writes every allocated table in the flowdb, the flowdb_show.c
// "show flow" command's full output.
func Dump(w io.Writer, db *Flowdb) {
	db.mu.RLock()
	tables := make([]*Table, 0, FlowdbTableSizeMax)
	for _, t := range db.tables {
		if t != nil {
			tables = append(tables, t)
		}
	}
	db.mu.RUnlock()

	for _, t := range tables {
		DumpTable(w, t)
	}
}
